package scheduler

import "math"

func (ind Individual) clone() Individual {
	return append(Individual(nil), ind...)
}

// isPermutation 检查 ind 是否恰好包含 0..n-1 各一次
func isPermutation(ind Individual, n int) bool {
	if len(ind) != n {
		return false
	}
	seen := make([]bool, n)
	for _, gene := range ind {
		if gene < 0 || gene >= n || seen[gene] {
			return false
		}
		seen[gene] = true
	}
	return true
}

func roundFitness(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
