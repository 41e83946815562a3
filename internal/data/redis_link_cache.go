package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLinkCache caches resolved download links in Redis. Provider links are
// time-limited, so callers must pass a TTL shorter than the link expiry.
type RedisLinkCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLinkCache creates a new RedisLinkCache with the given Redis client.
func NewRedisLinkCache(client redis.UniversalClient) *RedisLinkCache {
	return &RedisLinkCache{client: client, prefix: "export:link:"}
}

// Get retrieves a cached link by key. A missing key returns (nil, nil).
func (r *RedisLinkCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return []byte(result), nil
}

// Set stores a link with the given key and TTL.
func (r *RedisLinkCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}
