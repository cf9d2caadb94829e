package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/config"
)

const scanBatchSize = 200

type RedisCache struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisURL(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisCache wraps client with a circuit breaker so an unreachable Redis
// fails fast instead of adding latency to every request.
func NewRedisCache(client *redis.Client, cfg config.Redis, logger *zap.Logger) *RedisCache {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &RedisCache{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return val, err
	})
	if err != nil {
		return false, err
	}

	val, _ := res.([]byte)
	if val == nil {
		return false, nil
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("decode cached value %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}

	_, err = r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, data, ttl).Err()
	})
	return err
}

// DeleteByPrefix walks the keyspace with SCAN and deletes matches in batches.
func (r *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(prefix) + "*"

	_, err := r.cb.Execute(func() (interface{}, error) {
		var cursor uint64
		for {
			keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				if err := r.client.Del(ctx, keys...).Err(); err != nil {
					return nil, err
				}
			}
			cursor = next
			if cursor == 0 {
				return nil, nil
			}
		}
	})
	return err
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}
