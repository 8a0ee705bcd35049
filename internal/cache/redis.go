// Package cache keeps short-lived state in Redis: revoked session tokens and
// presigned photo URLs.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"groupsnap-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	revokedPrefix = "session:revoked:"
	urlPrefix     = "photo:url:"
)

// RedisCache is backed by a single Redis client
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Ping checks that Redis answers
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Revoke marks a token id as signed out until ttl elapses
func (c *RedisCache) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token id was signed out
func (c *RedisCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// GetURL returns a cached presigned URL for a storage key
func (c *RedisCache) GetURL(ctx context.Context, storageKey string) (string, bool, error) {
	url, err := c.client.Get(ctx, urlPrefix+storageKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cached url: %w", err)
	}
	return url, true, nil
}

// SetURL caches a presigned URL for ttl
func (c *RedisCache) SetURL(ctx context.Context, storageKey, url string, ttl time.Duration) error {
	if err := c.client.Set(ctx, urlPrefix+storageKey, url, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache url: %w", err)
	}
	return nil
}

// DeleteURL drops a cached URL, e.g. after the photo is deleted
func (c *RedisCache) DeleteURL(ctx context.Context, storageKey string) error {
	return c.client.Del(ctx, urlPrefix+storageKey).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
