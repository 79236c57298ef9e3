package travel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

// ErrCacheMiss 缓存中不存在对应的键
var ErrCacheMiss = errors.New("缓存未命中")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisCache(client *redis.Client, timeout time.Duration) *RedisCache {
	return &RedisCache{client: client, timeout: timeout}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedProvider 以地点坐标为键缓存出行矩阵，缓存读写失败只记录日志，不影响结果
type CachedProvider struct {
	next  Provider
	cache Cache
	ttl   time.Duration
	scope string // 区分不同的出行方式或数据来源
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, scope string) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, scope: scope}
}

func (p *CachedProvider) Matrix(ctx context.Context, places []domain.Place) (*domain.TravelMatrix, error) {
	key := p.key(places)

	data, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		var m domain.TravelMatrix
		if err := json.Unmarshal(data, &m); err == nil {
			slog.Debug("出行矩阵缓存命中", "key", key)
			return &m, nil
		}
		slog.Warn("出行矩阵缓存内容无法解析", "key", key)
	case !errors.Is(err, ErrCacheMiss):
		slog.Warn("读取出行矩阵缓存失败", "key", key, "error", err)
	}

	m, err := p.next.Matrix(ctx, places)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
		slog.Warn("写入出行矩阵缓存失败", "key", key, "error", err)
	}

	return m, nil
}

// key 由地点名称和坐标决定，地点顺序不同则键不同
func (p *CachedProvider) key(places []domain.Place) string {
	h := sha256.New()
	for _, place := range places {
		fmt.Fprintf(h, "%s|%.6f|%.6f\n", place.Name, place.Latitude, place.Longitude)
	}
	return fmt.Sprintf("travel_matrix_%s_%s", p.scope, hex.EncodeToString(h.Sum(nil)))
}
