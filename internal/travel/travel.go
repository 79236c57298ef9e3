package travel

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/utils"
)

// Provider 计算一组地点两两之间的出行时间和距离
// 返回的矩阵的地点顺序与 places 一致
type Provider interface {
	Matrix(ctx context.Context, places []domain.Place) (*domain.TravelMatrix, error)
}

func newMatrix(places []domain.Place) *domain.TravelMatrix {
	m := &domain.TravelMatrix{
		Places:   make([]string, len(places)),
		Duration: make([][]int, len(places)),
		Distance: make([][]int, len(places)),
	}
	for i, p := range places {
		m.Places[i] = p.Name
		m.Duration[i] = make([]int, len(places))
		m.Distance[i] = make([]int, len(places))
	}
	return m
}

// Estimator 不调用任何外部服务，按直线距离和固定速度估算出行时间
type Estimator struct {
	SpeedKmh float64
}

func NewEstimator(speedKmh float64) *Estimator {
	if speedKmh <= 0 {
		speedKmh = 30
	}
	return &Estimator{SpeedKmh: speedKmh}
}

func (e *Estimator) Matrix(ctx context.Context, places []domain.Place) (*domain.TravelMatrix, error) {
	m := newMatrix(places)

	for i, from := range places {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j, to := range places {
			if i == j {
				continue
			}
			km := utils.HaversineKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
			m.Duration[i][j] = int(math.Floor(km / e.SpeedKmh * 60))
			m.Distance[i][j] = int(math.Round(km * 1000))
		}
	}

	return m, nil
}

// NewProvider 配置了 Google API key 时使用 Routes API，否则使用直线距离估算
// rdb 不为 nil 时对结果进行缓存
func NewProvider(cfg *config.Config, rdb *redis.Client) Provider {
	var (
		provider Provider
		scope    string
	)
	if cfg.Google.APIKey != "" {
		provider = NewRoutesClient(cfg)
		scope = "routes_" + cfg.Google.TravelMode
	} else {
		provider = NewEstimator(cfg.Google.FallbackSpeedKm)
		scope = fmt.Sprintf("estimate_%g", cfg.Google.FallbackSpeedKm)
	}

	if rdb == nil {
		return provider
	}

	cache := NewRedisCache(rdb, time.Duration(cfg.Redis.OperationExpiration)*time.Second)
	return NewCachedProvider(provider, cache, time.Duration(cfg.Google.MatrixCacheTTL)*time.Second, scope)
}
