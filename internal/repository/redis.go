package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mareeba/internal/config"
	"mareeba/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityCache stores per-date availability projections as
// JSON under "availability:<date>".
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(date string) string {
	return fmt.Sprintf("availability:%s", date)
}

func (r *RedisAvailabilityCache) Get(ctx context.Context, date string) ([]models.SessionAvailability, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, cacheKey(date)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get availability from redis: %w", err)
	}

	var rows []models.SessionAvailability
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal availability: %w", err)
	}
	return rows, true, nil
}

func (r *RedisAvailabilityCache) Set(ctx context.Context, date string, rows []models.SessionAvailability) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(date), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}
	return nil
}

func (r *RedisAvailabilityCache) Invalidate(ctx context.Context, date string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, cacheKey(date)).Err(); err != nil {
		return fmt.Errorf("failed to delete availability from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
