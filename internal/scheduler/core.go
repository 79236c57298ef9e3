package scheduler

import (
	"sort"

	"github.com/sourcegraph/conc/pool"
)

// hotel 作为出行矩阵查询的出发地时使用的下标
const hotel = -1

// initPopulation 随机初始化种群
// 先按优先级把下标排好序（确定性的预处理），然后每个个体都是这个序列的一次均匀随机打乱
func (s *Scheduler) initPopulation() []Individual {
	indices := make([]int, len(s.sites))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return s.sites[indices[a]].priority && !s.sites[indices[b]].priority
	})

	pop := make([]Individual, s.parameters.PopulationSize)
	for i := range pop {
		ind := make(Individual, len(indices))
		copy(ind, indices)
		s.rng.Shuffle(len(ind), func(a, b int) {
			ind[a], ind[b] = ind[b], ind[a]
		})
		pop[i] = ind
	}

	return pop
}

// travel 查询从 from 到 to 的出行时间（分钟），from 为 hotel 时表示从酒店出发
func (s *Scheduler) travel(from, to int) int {
	return s.legs[from+1][to+1]
}

/**
 * 计算个体的适应度，同时完成按天切分
 * 从左到右遍历游览顺序，如果当前地点放不进今天的时间预算，就结束这一天，第二天从酒店重新出发
 * 天数用完之后剩下的地点直接丢弃（不算错误，只是适应度会变低）
 *
 * fitness = (N - daysUsed) * 200 + priorityBonus * 100 + openingBonus * 50 + max(1, N * 30 - totalTravel)
 */
func (s *Scheduler) evaluate(ind Individual) evaluation {
	var (
		days      DaySplit
		today     []int
		clock     = s.parameters.DayStartMinute
		used      = 0
		day       = 0
		priority  = 0
		opening   = 0
		travelSum = 0
	)

	for _, idx := range ind {
		st := &s.sites[idx]

		origin := hotel
		if len(today) > 0 {
			origin = today[len(today)-1]
		}
		travel := s.travel(origin, idx)
		total := st.visit + travel

		// 放不进今天就换到下一天；今天还空着的话说明这个地点本身就超出预算，只能单独占用一天
		if used+total > s.parameters.DailyMinutes && len(today) > 0 {
			days = append(days, today)
			today = nil
			clock = s.parameters.DayStartMinute
			used = 0
			day++

			if day >= len(s.weekdays) {
				break // 超出行程天数
			}

			travel = s.travel(hotel, idx)
			total = st.visit + travel
		}

		// 营业时间内到达才有奖励，营业时间外不惩罚
		w := st.windows[s.weekdays[day]]
		arrival := clock + travel
		if w.open && w.start <= arrival && arrival <= w.end-st.visit {
			opening++
		}

		if st.priority {
			priority++
		}

		today = append(today, idx)
		clock += total
		used += total
		travelSum += travel
	}

	if len(today) > 0 {
		days = append(days, today)
	}

	n := len(ind)
	fitness := (n-len(days))*daySavedReward +
		priority*priorityReward +
		opening*openingReward +
		max(1, n*travelAllowance-travelSum)

	return evaluation{
		fitness:  float64(fitness),
		days:     days,
		priority: priority,
		opening:  opening,
		travel:   travelSum,
	}
}

// evaluatePopulation 计算整个种群的适应度
// 个体之间没有共享的可变状态，可以并行计算；结果按种群顺序写回
func (s *Scheduler) evaluatePopulation(pop []Individual) []evaluation {
	evals := make([]evaluation, len(pop))

	if s.parameters.Workers <= 1 {
		for i, ind := range pop {
			evals[i] = s.evaluate(ind)
		}
		return evals
	}

	p := pool.New().WithMaxGoroutines(s.parameters.Workers)
	for i, ind := range pop {
		p.Go(func() {
			evals[i] = s.evaluate(ind)
		})
	}
	p.Wait()

	return evals
}

// selectParents 精英 + 锦标赛选择
// 精英按适应度从高到低取前 EliteCount 个（同分时保持种群中的原始顺序），直接进入下一代，不参与交叉和变异
// 其余 PopulationSize - EliteCount 个父本通过锦标赛选出
func (s *Scheduler) selectParents(pop []Individual, evals []evaluation) (elite []Individual, parents []Individual) {
	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return evals[order[a]].fitness > evals[order[b]].fitness
	})

	eliteCount := min(s.parameters.EliteCount, len(pop))
	elite = make([]Individual, 0, eliteCount)
	for _, i := range order[:eliteCount] {
		elite = append(elite, pop[i].clone())
	}

	k := min(s.parameters.TournamentSize, len(pop))
	parents = make([]Individual, 0, len(pop)-eliteCount)
	for len(parents) < len(pop)-eliteCount {
		parents = append(parents, pop[s.tournament(evals, k)])
	}

	return elite, parents
}

// tournament 不放回地抽取 k 个个体，返回其中适应度最高者的下标（同分取先抽到的）
func (s *Scheduler) tournament(evals []evaluation, k int) int {
	contestants := s.rng.Perm(len(evals))[:k]

	winner := contestants[0]
	for _, c := range contestants[1:] {
		if evals[c].fitness > evals[winner].fitness {
			winner = c
		}
	}
	return winner
}

// crossover 将父本两两配对（0 和 1，2 和 3，……）进行顺序交叉（OX）
// 以 1 - CrossoverRate 的概率直接克隆父本；父本数量为奇数时最后一个直接克隆
func (s *Scheduler) crossover(parents []Individual) []Individual {
	children := make([]Individual, 0, len(parents))

	for i := 0; i+1 < len(parents); i += 2 {
		p1, p2 := parents[i], parents[i+1]

		if s.rng.Float64() < s.parameters.CrossoverRate {
			a, b := s.cutPoints(len(p1))
			children = append(children, orderCrossover(p1, p2, a, b), orderCrossover(p2, p1, a, b))
		} else {
			children = append(children, p1.clone(), p2.clone())
		}
	}

	if len(parents)%2 == 1 {
		children = append(children, parents[len(parents)-1].clone())
	}

	return children
}

// cutPoints 在 [0, n) 上均匀随机地选出两个切点 a <= b
func (s *Scheduler) cutPoints(n int) (int, int) {
	a, b := s.rng.Intn(n), s.rng.Intn(n)
	if a > b {
		a, b = b, a
	}
	return a, b
}

// orderCrossover 子代在 [a, b] 上原样保留 donor 的片段，
// 其余位置按 filler 中的相对顺序填入不在片段中的基因，因此子代一定是合法的排列
func orderCrossover(donor, filler Individual, a, b int) Individual {
	inSlice := make([]bool, len(donor))
	for _, gene := range donor[a : b+1] {
		inSlice[gene] = true
	}

	rest := make([]int, 0, len(donor)-(b-a+1))
	for _, gene := range filler {
		if !inSlice[gene] {
			rest = append(rest, gene)
		}
	}

	child := make(Individual, 0, len(donor))
	child = append(child, rest[:a]...)
	child = append(child, donor[a:b+1]...)
	child = append(child, rest[a:]...)
	return child
}

// mutate 每个子代以 MutationRate 的概率做两次随机交换
// 返回新的切片，不修改传入的子代
func (s *Scheduler) mutate(children []Individual) []Individual {
	mutated := make([]Individual, len(children))

	for i, child := range children {
		m := child.clone()

		if len(m) >= 2 && s.rng.Float64() < s.parameters.MutationRate {
			for range swapsPerMutation {
				a := s.rng.Intn(len(m))
				b := s.rng.Intn(len(m) - 1)
				if b >= a {
					b++
				}
				m[a], m[b] = m[b], m[a]
			}
		}

		mutated[i] = m
	}

	return mutated
}

// replace 下一代 = 精英 + 子代，截断或补齐到 PopulationSize
func (s *Scheduler) replace(elite, children []Individual) []Individual {
	next := make([]Individual, 0, s.parameters.PopulationSize+len(elite))
	next = append(next, elite...)
	next = append(next, children...)

	for i := 0; len(next) < s.parameters.PopulationSize; i++ {
		next = append(next, next[i].clone())
	}

	return next[:s.parameters.PopulationSize]
}
