// Package cache stores serialized render calls in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/mapfield/internal/config"
	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "mapfield:"

// DefaultTTL applies when a non-positive TTL is configured.
const DefaultTTL = 10 * time.Minute

// client is the subset of *redis.Client the cache needs.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RenderCache implements core.RenderCache.
type RenderCache struct {
	rc  client
	ttl time.Duration
}

var _ core.RenderCache = (*RenderCache)(nil)

// OpenRedis returns a client for cfg, or nil when no address is configured.
func OpenRedis(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// New wraps rc. A nil rc yields a nil cache, which callers treat as disabled.
func New(rc *redis.Client, ttl time.Duration) *RenderCache {
	if rc == nil {
		return nil
	}
	return newCache(rc, ttl)
}

func newCache(rc client, ttl time.Duration) *RenderCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RenderCache{rc: rc, ttl: ttl}
}

// Get returns (nil, false, nil) on a miss.
func (c *RenderCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rc.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return data, true, nil
}

func (c *RenderCache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.rc.Set(ctx, KeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
