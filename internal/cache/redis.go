package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to addr and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisCache stores JSON-encoded values under a key prefix. Errors are
// logged and reported as misses; Redis is never the source of truth.
type RedisCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisCache binds a cache for values of type T to client. A ttl of 0
// stores keys without expiry.
func NewRedisCache[T any](client *goredis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RedisCache[T]) key(k string) string {
	return c.prefix + k
}

// Get retrieves and decodes a value from Redis.
func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "Redis cache read failed", "key", c.key(key), "error", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.WarnContext(ctx, "Redis cache entry undecodable", "key", c.key(key), "error", err)
		return zero, false
	}
	return v, true
}

// Set encodes value and stores it in Redis under key.
func (c *RedisCache[T]) Set(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "Redis cache marshal failed", "key", c.key(key), "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis cache write failed", "key", c.key(key), "error", err)
	}
}

// Delete removes a key from Redis.
func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis cache delete failed", "key", c.key(key), "error", err)
	}
}
