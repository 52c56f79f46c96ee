package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores entries in Redis.
type RedisBackend struct {
	redis *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a Backend on top of an existing Redis client.
func NewRedisBackend(redisClient *redis.Client) (*RedisBackend, error) {
	if redisClient == nil {
		return nil, ErrNilClient
	}
	return &RedisBackend{redis: redisClient}, nil
}

// Get retrieves the raw value stored under key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// Set stores value with SET EX, or SET EX NX when noOverwrite is true.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration, noOverwrite bool) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}

	if noOverwrite {
		stored, err := b.redis.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("redis set nx: %w", err)
		}
		return stored, nil
	}

	if err := b.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, fmt.Errorf("redis set: %w", err)
	}
	return true, nil
}

// Ping checks the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
