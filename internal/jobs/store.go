package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

var ErrJobNotFound = errors.New("任务不存在或已过期")

// Store 保存任务的状态和结果
type Store interface {
	Save(ctx context.Context, job *domain.ItineraryJob) error
	Get(ctx context.Context, id string) (*domain.ItineraryJob, error)
}

// RedisStore 任务以 JSON 形式保存在 redis 中，过期后自动删除
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisStore(cfg *config.Config, client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		ttl:     time.Duration(cfg.Job.ResultTTL) * time.Second,
		timeout: time.Duration(cfg.Redis.OperationExpiration) * time.Second,
	}
}

func jobKey(id string) string {
	return fmt.Sprintf("itinerary_job_%s", id)
}

func (s *RedisStore) Save(ctx context.Context, job *domain.ItineraryJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.client.Set(ctx, jobKey(job.ID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.ItineraryJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	job := &domain.ItineraryJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, err
	}
	return job, nil
}
