package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/metrics"
)

// Coordinator applies the cache policy used by the services: reads are
// read-through, writes invalidate whole families, and no cache failure is
// ever returned to the caller. A nil backend behaves as a permanent miss.
type Coordinator struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func NewCoordinator(backend Cache, ttl time.Duration, logger *zap.Logger) *Coordinator {
	return &Coordinator{backend: backend, ttl: ttl, logger: logger}
}

// Get reports whether key was found and decoded into dest. Backend errors
// count as a miss.
func (c *Coordinator) Get(ctx context.Context, key string, dest any) bool {
	if c.backend == nil {
		return false
	}
	found, err := c.backend.Get(ctx, key, dest)
	if err != nil {
		metrics.RecordCacheLookup("error")
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		metrics.RecordCacheLookup("miss")
		return false
	}
	metrics.RecordCacheLookup("hit")
	return true
}

// Set stores value under key with the configured TTL. Failures are logged.
func (c *Coordinator) Set(ctx context.Context, key string, value any) {
	if c.backend == nil {
		return
	}
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every entry of the given families. Call it only after the
// mutating write has committed.
func (c *Coordinator) Invalidate(ctx context.Context, families ...string) {
	if c.backend == nil {
		return
	}
	for _, family := range families {
		if err := c.backend.DeleteByPrefix(ctx, Prefix(family)); err != nil {
			c.logger.Warn("cache invalidation failed", zap.String("family", family), zap.Error(err))
		}
	}
}

// ReadThrough returns the cached value at key, or calls load, caches its
// result and returns it. Load errors are returned and nothing is cached.
func ReadThrough[T any](ctx context.Context, c *Coordinator, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(ctx, key, value)
	return value, nil
}
