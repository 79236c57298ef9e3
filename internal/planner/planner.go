package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/places"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/travel"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/utils"
	"golang.org/x/sync/errgroup"
)

type PlaceSetLoader interface {
	GetPlaceSetByID(id int64) (*domain.PlaceSet, error)
}

type Geocoder interface {
	Coordinates(ctx context.Context, address string) (float64, float64, error)
}

// Planner 把一个行程请求整理成 Trip（地点、酒店、出行矩阵、日期），然后交给遗传算法
type Planner struct {
	config   *config.Config
	loader   PlaceSetLoader
	geocoder Geocoder
	provider travel.Provider
}

// New 中 loader 和 geocoder 可以为 nil，此时请求必须分别内联地点表和住宿坐标
func New(cfg *config.Config, loader PlaceSetLoader, geocoder Geocoder, provider travel.Provider) *Planner {
	return &Planner{
		config:   cfg,
		loader:   loader,
		geocoder: geocoder,
		provider: provider,
	}
}

// Parameters 以配置中的默认值为基础，覆盖请求中给出的参数
func (p *Planner) Parameters(rp domain.RunParameters) *scheduler.Parameters {
	s := p.config.Scheduler
	params := &scheduler.Parameters{
		PopulationSize:  s.PopulationSize,
		MaxGenerations:  s.MaxGenerations,
		CrossoverRate:   s.CrossoverRate,
		MutationRate:    s.MutationRate,
		EliteCount:      s.EliteCount,
		TournamentSize:  s.TournamentSize,
		DailyMinutes:    s.DailyMinutes,
		DayStartMinute:  s.DayStartMinute,
		StagnationLimit: s.StagnationLimit,
		Workers:         s.Workers,
	}

	if rp.PopulationSize != nil {
		params.PopulationSize = *rp.PopulationSize
	}
	if rp.MaxGenerations != nil {
		params.MaxGenerations = *rp.MaxGenerations
	}
	if rp.CrossoverRate != nil {
		params.CrossoverRate = *rp.CrossoverRate
	}
	if rp.MutationRate != nil {
		params.MutationRate = *rp.MutationRate
	}
	if rp.EliteCount != nil {
		params.EliteCount = *rp.EliteCount
	}
	if rp.TournamentSize != nil {
		params.TournamentSize = *rp.TournamentSize
	}
	if rp.DailyMinutes != nil {
		params.DailyMinutes = *rp.DailyMinutes
	}
	if rp.StagnationLimit != nil {
		params.StagnationLimit = *rp.StagnationLimit
	}
	if rp.Seed != nil {
		params.Seed = *rp.Seed
	}

	return params
}

// Prepare 并发地加载地点表和解析住宿坐标，然后获取出行矩阵
// 输入不完整或不合法时返回 scheduler.DataError
func (p *Planner) Prepare(ctx context.Context, req *domain.ItineraryRequest) (*domain.Trip, error) {
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return nil, &scheduler.DataError{Reason: fmt.Sprintf("无法解析开始日期 %q", req.StartDate)}
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return nil, &scheduler.DataError{Reason: fmt.Sprintf("无法解析结束日期 %q", req.EndDate)}
	}
	if err := utils.ValidateTripDates(start, end); err != nil {
		return nil, &scheduler.DataError{Reason: err.Error()}
	}

	var (
		table   []domain.Place
		lodging *domain.Place
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		table, err = p.loadPlaces(req)
		return err
	})
	g.Go(func() error {
		var err error
		lodging, err = p.resolveLodging(gctx, req.Lodging)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 地点表中的 HOTEL 行只在请求没有给出住宿信息时使用
	hotelRow, candidates, rows, err := places.SplitHotel(table)
	if err != nil {
		return nil, &scheduler.DataError{Reason: err.Error()}
	}
	var hotel domain.Place
	switch {
	case lodging != nil:
		hotel = *lodging
	case hotelRow != nil:
		hotel = *hotelRow
		hotel.EstimatedMinutes = 0
	default:
		return nil, &scheduler.DataError{Reason: "缺少住宿地点：请提供住宿地址、住宿坐标或在地点表中包含 HOTEL 行"}
	}
	if err := utils.ValidatePlaces(candidates); err != nil {
		return nil, &scheduler.DataError{Reason: err.Error()}
	}

	matrix := req.Matrix
	if matrix != nil {
		metrics.MatrixRequests.WithLabelValues("inline").Inc()
	} else {
		if p.provider == nil {
			return nil, &scheduler.DataError{Reason: "缺少出行矩阵"}
		}

		metrics.MatrixRequests.WithLabelValues("provider").Inc()
		matrix, err = p.provider.Matrix(ctx, append([]domain.Place{hotel}, candidates...))
		if err != nil {
			return nil, fmt.Errorf("获取出行矩阵失败: %w", err)
		}
	}

	return &domain.Trip{
		Places:    candidates,
		Rows:      rows,
		Hotel:     hotel,
		Matrix:    matrix,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func (p *Planner) loadPlaces(req *domain.ItineraryRequest) ([]domain.Place, error) {
	if req.PlaceSetID == nil {
		if len(req.Places) == 0 {
			return nil, &scheduler.DataError{Reason: "请提供地点集合 ID 或地点列表"}
		}
		return req.Places, nil
	}

	if p.loader == nil {
		return nil, errors.New("当前环境不支持按 ID 加载地点集合")
	}
	set, err := p.loader.GetPlaceSetByID(*req.PlaceSetID)
	if err != nil {
		return nil, err
	}
	return set.Places, nil
}

// resolveLodging 优先使用请求中的坐标，其次对地址进行地理编码；都没有时返回 nil
func (p *Planner) resolveLodging(ctx context.Context, l domain.Lodging) (*domain.Place, error) {
	if l.Latitude != nil && l.Longitude != nil {
		hotel := domain.NewHotel(*l.Latitude, *l.Longitude)
		return &hotel, nil
	}
	if l.Address == "" {
		return nil, nil
	}
	if p.geocoder == nil {
		return nil, &scheduler.DataError{Reason: "未配置地理编码服务，请直接提供住宿坐标"}
	}

	lat, lng, err := p.geocoder.Coordinates(ctx, l.Address)
	if err != nil {
		return nil, fmt.Errorf("解析住宿地址失败: %w", err)
	}
	slog.Debug("住宿地址解析完成", "address", l.Address, "latitude", lat, "longitude", lng)

	hotel := domain.NewHotel(lat, lng)
	return &hotel, nil
}

// Plan 准备数据并运行遗传算法
func (p *Planner) Plan(ctx context.Context, req *domain.ItineraryRequest, opts ...scheduler.Option) (*domain.RunResult, error) {
	trip, err := p.Prepare(ctx, req)
	if err != nil {
		var de *scheduler.DataError
		if errors.As(err, &de) {
			metrics.Runs.WithLabelValues("data_error").Inc()
		}
		return nil, err
	}

	return p.Run(ctx, trip, p.Parameters(req.Parameters), opts...)
}

// Run 对已经准备好的 Trip 运行遗传算法并记录指标
func (p *Planner) Run(ctx context.Context, trip *domain.Trip, params *scheduler.Parameters, opts ...scheduler.Option) (*domain.RunResult, error) {
	s, err := scheduler.New(params, trip, opts...)
	if err != nil {
		metrics.Runs.WithLabelValues("data_error").Inc()
		return nil, err
	}

	start := time.Now()
	result, err := s.Schedule(ctx)
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var ae *scheduler.AlgorithmError
		switch {
		case errors.As(err, &ae):
			metrics.Runs.WithLabelValues("algorithm_error").Inc()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			metrics.Runs.WithLabelValues("canceled").Inc()
		}
		return nil, err
	}

	metrics.Runs.WithLabelValues("ok").Inc()
	metrics.Generations.Observe(float64(result.GenerationsExecuted))
	metrics.BestFitness.Observe(result.BestFitness)

	return result, nil
}
