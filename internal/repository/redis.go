package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sunolegal/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	flagKeyPrefix      = "flags:"
	rateLimitKeyPrefix = "rate_limit:"
)

// RedisFlagStore keeps flags under the "flags:" prefix.
type RedisFlagStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisFlagStore(client *redis.Client, ttl time.Duration) *RedisFlagStore {
	return &RedisFlagStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisFlagStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, flagKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get flag from redis: %w", err)
	}
	return val, true, nil
}

func (r *RedisFlagStore) Set(ctx context.Context, key, value string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, flagKeyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flag in redis: %w", err)
	}
	return nil
}

func (r *RedisFlagStore) Remove(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, flagKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete flag from redis: %w", err)
	}
	return nil
}

func (r *RedisFlagStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := rateLimitKeyPrefix + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rk, window)
	}

	return count <= int64(limit), nil
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
