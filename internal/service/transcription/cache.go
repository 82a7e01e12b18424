package transcription

import (
	"context"
	"errors"
	"time"

	"podcastrelay/internal/redis"
)

// RedisCache stores transcripts keyed by audio digest and recognition config.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key)
	if errors.Is(err, redis.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, transcript string) error {
	return c.client.Set(ctx, key, transcript, c.ttl)
}
