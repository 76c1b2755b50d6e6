// Package session caches resolved participant identities in Redis so the
// websocket handshake and room reads avoid a database lookup per request.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports that no identity is cached for a token digest.
var ErrMiss = errors.New("session: identity not cached")

const defaultTTL = 24 * time.Hour

// RedisCache maps session token digests to participant identifiers.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at redisURL.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{
		client: client,
		prefix: "meetgrid:identity:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(digest string) string {
	return c.prefix + digest
}

// Lookup returns the participant identifier cached for digest, or ErrMiss.
func (c *RedisCache) Lookup(ctx context.Context, digest string) (string, error) {
	uid, err := c.client.Get(ctx, c.key(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("lookup identity: %w", err)
	}
	return uid, nil
}

// Store caches the participant identifier for digest.
func (c *RedisCache) Store(ctx context.Context, digest, participantUID string) error {
	if err := c.client.Set(ctx, c.key(digest), participantUID, c.ttl).Err(); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

// Forget drops a cached identity. Missing keys are not an error.
func (c *RedisCache) Forget(ctx context.Context, digest string) error {
	if err := c.client.Del(ctx, c.key(digest)).Err(); err != nil {
		return fmt.Errorf("forget identity: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
