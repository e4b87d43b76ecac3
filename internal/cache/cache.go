// Package cache provides the shared, TTL-bounded cache backing slate
// warming and per-event pre-fetch. It optionally backs onto Redis when
// REDIS_ADDR is set, so a multi-process deployment can share pre-fetch
// results instead of each process cold-starting its own cache.
package cache

import (
	"context"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// FloorTTL is the non-negotiable cache TTL floor: this system does not do
// sub-second freshness, and 2 minutes is the shortest window it honors.
const FloorTTL = 2 * time.Minute

// Cache is the minimal interface the Slate Builder and engines need: get,
// set-with-ttl. Kept narrow so both backends satisfy it trivially.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// New returns an in-process map-backed cache.
func New() Cache { return &memoryCache{m: make(map[string]entry)} }

// NewAuto returns a Redis-backed cache when REDIS_ADDR is set, otherwise an
// in-process cache.
func NewAuto() Cache {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return &redisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
	}
	return New()
}

// clampTTL enforces FloorTTL; a caller asking for a shorter TTL is asking
// for semantics this system doesn't support.
func clampTTL(ttl time.Duration) time.Duration {
	if ttl < FloorTTL {
		return FloorTTL
	}
	return ttl
}

type entry struct {
	val []byte
	exp time.Time
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]entry
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false
	}
	return e.val, true
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry{val: append([]byte(nil), val...), exp: time.Now().Add(clampTTL(ttl))}
}

type redisCache struct{ client *redis.Client }

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	v, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_ = r.client.Set(ctx, key, val, clampTTL(ttl)).Err()
}
