package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

func TestOrderCrossover(t *testing.T) {
	donor := Individual{0, 1, 2, 3, 4}
	filler := Individual{4, 3, 2, 1, 0}

	cases := []struct {
		name string
		a, b int
		want Individual
	}{
		{name: "middle slice", a: 1, b: 3, want: Individual{4, 1, 2, 3, 0}},
		{name: "whole individual", a: 0, b: 4, want: Individual{0, 1, 2, 3, 4}},
		{name: "first gene only", a: 0, b: 0, want: Individual{0, 4, 3, 2, 1}},
		{name: "last gene only", a: 4, b: 4, want: Individual{3, 2, 1, 0, 4}},
		{name: "prefix", a: 0, b: 2, want: Individual{0, 1, 2, 4, 3}},
		{name: "suffix", a: 2, b: 4, want: Individual{1, 0, 2, 3, 4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			child := orderCrossover(donor, filler, tc.a, tc.b)
			require.Equal(t, tc.want, child)
			require.Equal(t, donor[tc.a:tc.b+1], child[tc.a:tc.b+1], "slice must be copied from donor")
			require.True(t, isPermutation(child, len(donor)))
		})
	}

	require.Equal(t, Individual{0, 1, 2, 3, 4}, donor, "donor must not be modified")
	require.Equal(t, Individual{4, 3, 2, 1, 0}, filler, "filler must not be modified")
}

func TestOperatorsKeepPermutations(t *testing.T) {
	trip := randomTrip(13, 9, 3)
	p := testParameters(13)
	p.MutationRate = 1
	p.CrossoverRate = 1
	p.PopulationSize = 21
	p.EliteCount = 3
	sc := newTestScheduler(t, p, trip)

	n := len(trip.Places)
	pop := sc.initPopulation()
	require.Len(t, pop, p.PopulationSize)

	for gen := 0; gen < 30; gen++ {
		for _, ind := range pop {
			require.True(t, isPermutation(ind, n), "generation %d: %v", gen, ind)
		}

		evals := sc.evaluatePopulation(pop)
		elite, parents := sc.selectParents(pop, evals)
		require.Len(t, elite, p.EliteCount)
		require.Len(t, parents, p.PopulationSize-p.EliteCount)

		children := sc.crossover(parents)
		require.Len(t, children, len(parents))
		mutated := sc.mutate(children)
		require.Len(t, mutated, len(children))

		pop = sc.replace(elite, mutated)
		require.Len(t, pop, p.PopulationSize)
	}
}

func TestInitPopulationProducesPermutations(t *testing.T) {
	trip := randomTrip(2, 4, 1)
	trip.Places[0].Priority = false
	trip.Places[1].Priority = true
	trip.Places[2].Priority = false
	trip.Places[3].Priority = true

	sc := newTestScheduler(t, testParameters(2), trip)
	for _, ind := range sc.initPopulation() {
		require.True(t, isPermutation(ind, 4))
	}
}

func TestElitesAreTheFittest(t *testing.T) {
	trip := randomTrip(17, 12, 2)
	p := testParameters(17)
	p.EliteCount = 5
	sc := newTestScheduler(t, p, trip)

	pop := sc.initPopulation()
	evals := sc.evaluatePopulation(pop)
	elite, _ := sc.selectParents(pop, evals)

	worstElite := sc.evaluate(elite[0]).fitness
	for _, ind := range elite {
		worstElite = min(worstElite, sc.evaluate(ind).fitness)
	}

	better := 0
	for _, ev := range evals {
		if ev.fitness > worstElite {
			better++
		}
	}
	require.Less(t, better, p.EliteCount)

	for i := 1; i < len(elite); i++ {
		require.GreaterOrEqual(t, sc.evaluate(elite[i-1]).fitness, sc.evaluate(elite[i]).fitness)
	}
}

func TestElitesAreCopies(t *testing.T) {
	sc := newTestScheduler(t, testParameters(4), randomTrip(4, 6, 2))

	pop := sc.initPopulation()
	evals := sc.evaluatePopulation(pop)
	elite, _ := sc.selectParents(pop, evals)

	before := elite[0].clone()
	for i := range pop {
		for j := range pop[i] {
			pop[i][j] = -1
		}
	}
	require.Equal(t, before, elite[0])
}

func TestTournamentPicksBestContestant(t *testing.T) {
	sc := newTestScheduler(t, testParameters(8), randomTrip(8, 3, 1))
	evals := []evaluation{{fitness: 1}, {fitness: 5}, {fitness: 3}}

	// 抽取全部个体时一定选中最优者
	for range 20 {
		require.Equal(t, 1, sc.tournament(evals, len(evals)))
	}
}

func TestMutateDoesNotModifyInput(t *testing.T) {
	p := testParameters(6)
	p.MutationRate = 1
	sc := newTestScheduler(t, p, randomTrip(6, 5, 1))

	children := []Individual{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}}
	mutated := sc.mutate(children)

	require.Equal(t, []Individual{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}}, children)
	for _, m := range mutated {
		require.True(t, isPermutation(m, 5))
	}
}

func TestReplacePadsAndTruncates(t *testing.T) {
	p := testParameters(1)
	p.PopulationSize = 4
	p.EliteCount = 1
	sc := newTestScheduler(t, p, randomTrip(1, 3, 1))

	elite := []Individual{{0, 1, 2}}

	padded := sc.replace(elite, []Individual{{2, 1, 0}})
	require.Equal(t, []Individual{{0, 1, 2}, {2, 1, 0}, {0, 1, 2}, {2, 1, 0}}, padded)

	padded[2][0] = 9
	require.Equal(t, Individual{0, 1, 2}, elite[0], "padding must clone")

	truncated := sc.replace(elite, []Individual{{2, 1, 0}, {1, 0, 2}, {1, 2, 0}, {0, 2, 1}})
	require.Len(t, truncated, 4)
	require.Equal(t, Individual{0, 1, 2}, truncated[0])
}

func TestEvaluateOpeningWindow(t *testing.T) {
	places := []domain.Place{
		place("early", 30, "08:00-09:00", false),
		place("tight", 60, "08:00-09:15", false),
	}
	trip := &domain.Trip{Places: places, Matrix: uniformMatrix(places, 15), StartDate: monday, EndDate: monday}
	sc := newTestScheduler(t, testParameters(1), trip)

	// early: 到达 08:15，08:15 <= 09:00 - 30 满足
	// tight: 到达 08:15 + 30 + 15 = 09:00，09:00 > 09:15 - 60 不满足
	ev := sc.evaluate(Individual{0, 1})
	require.Equal(t, 1, ev.opening)
	require.Equal(t, 30, ev.travel)

	// tight 先到达 08:15 <= 08:15 满足；early 到达 09:30 > 08:30 不满足
	ev = sc.evaluate(Individual{1, 0})
	require.Equal(t, 1, ev.opening)
}

func TestEvaluateUsesWeekdayOfEachDay(t *testing.T) {
	// 2024-01-01 是周一
	hours := weeklyHours("Closed")
	hours["tue"] = "08:00-18:00"
	places := []domain.Place{
		{Name: "A", OpeningHours: hours, EstimatedMinutes: 200},
		{Name: "B", OpeningHours: hours, EstimatedMinutes: 200},
	}
	trip := &domain.Trip{Places: places, Matrix: uniformMatrix(places, 10), StartDate: monday, EndDate: monday.AddDate(0, 0, 1)}
	sc := newTestScheduler(t, testParameters(1), trip)

	ev := sc.evaluate(Individual{0, 1})
	require.Equal(t, DaySplit{{0}, {1}}, ev.days)
	require.Equal(t, 1, ev.opening, "only the place visited on tuesday is open")
}

func TestEvaluateFitnessFloor(t *testing.T) {
	places := []domain.Place{place("far", 10, "Closed", false)}
	trip := &domain.Trip{Places: places, Matrix: uniformMatrix(places, 200), StartDate: monday, EndDate: monday}
	sc := newTestScheduler(t, testParameters(1), trip)

	// (1 - 1) * 200 + max(1, 30 - 200)
	require.Equal(t, 1.0, sc.evaluate(Individual{0}).fitness)
}
