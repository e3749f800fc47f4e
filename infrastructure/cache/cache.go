// Package cache provides TTL caches for dashboard datasets: an in-process
// cache and a Redis-backed one. Values are stored as JSON.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// Cache names used in metrics.
const (
	NameMemory = "memory"
	NameRedis  = "redis"
)

// Memory is an in-process TTL cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates an in-process cache that purges expired entries every
// cleanup interval.
func NewMemory(cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, cleanup)}
}

// Get decodes the value stored under key into dst. It reports false on a miss.
func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		metrics.ObserveCache(NameMemory, metrics.CacheMiss)
		return false, nil
	}
	metrics.ObserveCache(NameMemory, metrics.CacheHit)
	b, _ := v.([]byte)
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key for ttl.
func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	metrics.ObserveCache(NameMemory, metrics.CacheSet)
	m.c.Set(key, b, ttl)
	return nil
}

// Del removes key.
func (m *Memory) Del(_ context.Context, key string) error {
	metrics.ObserveCache(NameMemory, metrics.CacheDel)
	m.c.Delete(key)
	return nil
}

// Redis is a cache stored in Redis.
type Redis struct {
	c *redis.Client
}

// NewRedis connects to the Redis server at a redis:// URL.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{c: redis.NewClient(opts)}, nil
}

// Ping checks the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

// Get decodes the value stored under key into dst. It reports false on a miss.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.ObserveCache(NameRedis, metrics.CacheMiss)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	metrics.ObserveCache(NameRedis, metrics.CacheHit)
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	metrics.ObserveCache(NameRedis, metrics.CacheSet)
	if err := r.c.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Del removes key.
func (r *Redis) Del(ctx context.Context, key string) error {
	metrics.ObserveCache(NameRedis, metrics.CacheDel)
	if err := r.c.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (r *Redis) Close() error {
	return r.c.Close()
}
