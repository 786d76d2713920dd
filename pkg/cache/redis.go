package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures [RedisCache].
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RedisCache stores entries in Redis so every server instance sees the
// same metadata invalidations.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to Redis and pings it. Connection failures are
// wrapped with [Retryable] so callers can use [RetryWithBackoff].
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, Retryable(err)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Clear scans for matching keys in batches. Prefixes come from a Keyer and
// never contain glob metacharacters.
func (c *RedisCache) Clear(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 500).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }

var _ Cache = (*RedisCache)(nil)
