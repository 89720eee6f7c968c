package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed Cache implementation. Values are stored as JSON.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis cache from an address and optional password,
// verifying connectivity before returning.
func NewRedis(ctx context.Context, addr, password string, logger *slog.Logger) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address missing")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("redis cache connected", slog.String("addr", addr))
	return &Redis{client: client, logger: logger}, nil
}

// NewRedisFromClient wraps an existing Redis client.
func NewRedisFromClient(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

// Get retrieves a cached value by key and unmarshals it into target.
func (c *Redis) Get(ctx context.Context, key string, target any) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", slog.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for %s: %w", key, err)
	}
	c.logger.Debug("cache hit", slog.String("key", key))
	return true, nil
}

// Set stores a value under key with the given TTL.
func (c *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *Redis) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity. Used by the readiness endpoint.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for health checks.
func (c *Redis) Client() *redis.Client {
	return c.client
}
