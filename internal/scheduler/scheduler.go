package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/utils"
)

type Scheduler struct {
	parameters *Parameters
	sites      []site         // 候选地点（不包含 HOTEL），下标即 Individual 中的基因
	legs       [][]int        // 出行时间表，下标 0 为 HOTEL，地点 i 对应下标 i+1
	dates      []time.Time    // 行程中的每一天
	weekdays   []time.Weekday // dates 对应的星期
	rng        *rand.Rand
	logger     *slog.Logger
	observer   func(Progress)
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithObserver 每一代评估完成后回调 fn，回调在调度循环中同步执行
func WithObserver(fn func(Progress)) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

func New(parameters *Parameters, trip *domain.Trip, opts ...Option) (*Scheduler, error) {
	if err := validateParameters(parameters); err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, dataErrorf("缺少行程数据")
	}
	if err := utils.ValidatePlaces(trip.Places); err != nil {
		return nil, &DataError{Reason: err.Error()}
	}
	if err := utils.ValidateTripDates(trip.StartDate, trip.EndDate); err != nil {
		return nil, &DataError{Reason: err.Error()}
	}
	if err := utils.ValidateTravelMatrix(trip.Matrix, trip.Places); err != nil {
		return nil, &DataError{Reason: err.Error()}
	}
	if trip.Rows != nil && len(trip.Rows) != len(trip.Places) {
		return nil, dataErrorf("地点行号数量 %d 与地点数量 %d 不一致", len(trip.Rows), len(trip.Places))
	}

	s := &Scheduler{
		parameters: parameters,
		sites:      make([]site, len(trip.Places)),
		dates:      utils.DateRange(trip.StartDate, trip.EndDate),
		logger:     slog.Default(),
	}

	for i, place := range trip.Places {
		row := i
		if trip.Rows != nil {
			row = trip.Rows[i]
		}
		s.sites[i] = newSite(row, place)
	}

	s.weekdays = make([]time.Weekday, len(s.dates))
	for i, date := range s.dates {
		s.weekdays[i] = date.Weekday()
	}

	// 按名称查一次矩阵，之后全部使用整数下标
	index := trip.Matrix.Index()
	rows := make([]int, len(s.sites)+1)
	rows[0] = index[domain.HotelName]
	for i, st := range s.sites {
		rows[i+1] = index[st.name]
	}

	s.legs = make([][]int, len(rows))
	for i, from := range rows {
		s.legs[i] = make([]int, len(rows))
		for j, to := range rows {
			s.legs[i][j] = trip.Matrix.Duration[from][to]
		}
	}

	seed := parameters.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func validateParameters(p *Parameters) error {
	switch {
	case p == nil:
		return dataErrorf("缺少遗传算法参数")
	case p.PopulationSize <= 0:
		return dataErrorf("种群大小必须大于 0（当前为 %d）", p.PopulationSize)
	case p.MaxGenerations <= 0:
		return dataErrorf("最大迭代次数必须大于 0（当前为 %d）", p.MaxGenerations)
	case p.CrossoverRate < 0 || p.CrossoverRate > 1:
		return dataErrorf("交叉概率必须在 [0, 1] 之间（当前为 %g）", p.CrossoverRate)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return dataErrorf("变异概率必须在 [0, 1] 之间（当前为 %g）", p.MutationRate)
	case p.EliteCount < 0 || p.EliteCount > p.PopulationSize:
		return dataErrorf("精英数量必须在 [0, 种群大小] 之间（当前为 %d）", p.EliteCount)
	case p.TournamentSize <= 0:
		return dataErrorf("锦标赛规模必须大于 0（当前为 %d）", p.TournamentSize)
	case p.DailyMinutes <= 0:
		return dataErrorf("每日可用时间必须大于 0（当前为 %d）", p.DailyMinutes)
	case p.DayStartMinute < 0 || p.DayStartMinute >= 24*60:
		return dataErrorf("每日出发时刻必须在 00:00 到 23:59 之间（当前为 %d）", p.DayStartMinute)
	case p.StagnationLimit <= 0:
		return dataErrorf("停滞代数上限必须大于 0（当前为 %d）", p.StagnationLimit)
	}
	return nil
}

func newSite(row int, place domain.Place) site {
	st := site{
		name:      place.Name,
		row:       row,
		latitude:  place.Latitude,
		longitude: place.Longitude,
		visit:     place.EstimatedMinutes,
		priority:  place.Priority,
	}

	// domain.Weekdays 从周一开始，time.Weekday 从周日开始
	for i, abbr := range domain.Weekdays {
		// 缺少某一天的营业时间时视为闭馆
		start, end, ok := utils.ParseTimeRange(place.OpeningHours[abbr])
		st.windows[time.Weekday((i+1)%7)] = window{start: start, end: end, open: ok}
	}

	return st
}

// Schedule 运行遗传算法
// 每一代：评估 -> 记录最优 -> 选择 -> 交叉 -> 变异 -> 替换；达到最大代数或连续 StagnationLimit 代没有改进时停止
func (s *Scheduler) Schedule(ctx context.Context) (*domain.RunResult, error) {
	var pop []Individual
	if err := s.guard("initialize", 0, func() {
		pop = s.initPopulation()
	}); err != nil {
		return nil, err
	}

	best := champion{fitness: math.Inf(-1)}
	stagnation := 0
	executed := 0
	stopReason := StopGenerationLimit

	for gen := 0; gen < s.parameters.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var evals []evaluation
		if err := s.guard("evaluate", gen, func() {
			evals = s.evaluatePopulation(pop)
		}); err != nil {
			return nil, err
		}
		executed = gen + 1

		// 找到本代最佳样本
		genBestIndex := 0
		for i := 1; i < len(evals); i++ {
			if evals[i].fitness > evals[genBestIndex].fitness {
				genBestIndex = i
			}
		}
		genBest := evals[genBestIndex]

		if genBest.fitness > best.fitness {
			best = champion{
				individual: pop[genBestIndex].clone(),
				days:       genBest.days,
				fitness:    genBest.fitness,
				generation: gen,
			}
			stagnation = 0
			s.logger.Info("找到新的最优解", "generation", gen, "fitness", best.fitness, "days", len(best.days))
		} else {
			stagnation++
		}

		s.logger.Debug("本代评估完成", "generation", gen, "generationBest", genBest.fitness, "bestFitness", best.fitness, "stagnation", stagnation)
		if s.observer != nil {
			s.observer(Progress{
				Generation:     gen,
				GenerationBest: genBest.fitness,
				BestFitness:    best.fitness,
				Stagnation:     stagnation,
			})
		}

		if stagnation >= s.parameters.StagnationLimit {
			stopReason = StopStagnation
			s.logger.Info("连续多代没有改进，提前停止", "generation", gen, "stagnation", stagnation)
			break
		}
		if gen == s.parameters.MaxGenerations-1 {
			// 最后一代的子代不会再被评估，不需要繁殖
			break
		}

		var elite, parents []Individual
		if err := s.guard("select", gen, func() {
			elite, parents = s.selectParents(pop, evals)
		}); err != nil {
			return nil, err
		}

		var next []Individual
		if err := s.guard("breed", gen, func() {
			children := s.mutate(s.crossover(parents))
			next = s.replace(elite, children)
		}); err != nil {
			return nil, err
		}
		pop = next
	}

	result := s.buildResult(best, executed, stopReason)

	s.logger.Info("遗传算法运行结束", "generations", executed, "bestFitness", result.BestFitness, "stopReason", stopReason)
	for i, day := range best.days {
		date := utils.FormatDate(s.dates[i])
		names := make([]string, len(day))
		for j, idx := range day {
			names[j] = s.sites[idx].name
		}
		s.logger.Info(fmt.Sprintf("第 %d 天 (%s)", i+1, date), "places", names)
	}

	return result, nil
}

// guard 执行某个阶段，阶段内的 panic 会被记录并转换为 AlgorithmError
func (s *Scheduler) guard(stage string, gen int, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AlgorithmError{Stage: stage, Generation: gen, Err: fmt.Errorf("panic: %v", r)}
			s.logger.Error("遗传算法运行失败", "stage", stage, "generation", gen, "error", err, "stack", string(debug.Stack()))
		}
	}()

	fn()
	return nil
}

// buildResult 将最优个体及其每日切分整理为 RunResult，第 i 个切分对应行程开始日期之后的第 i 天
func (s *Scheduler) buildResult(best champion, executed int, stopReason string) *domain.RunResult {
	result := &domain.RunResult{
		BestFitness:         roundFitness(best.fitness),
		GenerationsExecuted: executed,
		BestIndividual:      make([]int, len(best.individual)),
		BestIndividualNames: make([]string, len(best.individual)),
		Itinerary:           make(map[string]domain.DayPlan, len(best.days)),
		StopReason:          stopReason,
	}

	for i, idx := range best.individual {
		result.BestIndividual[i] = s.sites[idx].row
		result.BestIndividualNames[i] = s.sites[idx].name
	}

	for i, day := range best.days {
		plan := domain.DayPlan{Places: make([]domain.PlaceVisit, len(day))}
		for j, idx := range day {
			plan.Places[j] = domain.PlaceVisit{
				Name:      s.sites[idx].name,
				Latitude:  s.sites[idx].latitude,
				Longitude: s.sites[idx].longitude,
			}
		}
		result.Itinerary[utils.FormatDate(s.dates[i])] = plan
	}

	return result
}
