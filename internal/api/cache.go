package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BartekS5/reviewflow/internal/metrics"
)

// Cache stores JSON-encoded report responses.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

type RedisCache struct {
	c *redis.Client
	m *metrics.Metrics
}

func NewRedisCache(client *redis.Client, m *metrics.Metrics) *RedisCache {
	return &RedisCache{c: client, m: m}
}

func (r *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.m.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.m.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *RedisCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.m.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, ttl).Err()
}
