package cache

import (
	"context"
	"time"
)

// Cache is a TTL key/value store with prefix invalidation. Values are
// serialised by the implementation.
type Cache interface {
	// Get decodes the value stored at key into dest. It reports false on a
	// miss, including an expired entry.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
