package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"
)

// Versioner tracks a monotonically increasing data version. Cache keys that
// embed the version are invalidated wholesale by a single Bump.
type Versioner interface {
	Version(ctx context.Context) (int64, error)
	Bump(ctx context.Context) error
}

// LocalVersion is a process-local Versioner.
type LocalVersion struct {
	n atomic.Int64
}

func (v *LocalVersion) Version(context.Context) (int64, error) {
	return v.n.Load(), nil
}

func (v *LocalVersion) Bump(context.Context) error {
	v.n.Add(1)
	return nil
}

// RedisVersion keeps the version in a Redis counter so every process
// sharing the cache agrees on it.
type RedisVersion struct {
	client *goredis.Client
	key    string
}

func NewRedisVersion(client *goredis.Client, key string) *RedisVersion {
	return &RedisVersion{client: client, key: key}
}

func (v *RedisVersion) Version(ctx context.Context) (int64, error) {
	n, err := v.client.Get(ctx, v.key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version %s: %w", v.key, err)
	}
	return n, nil
}

func (v *RedisVersion) Bump(ctx context.Context) error {
	if err := v.client.Incr(ctx, v.key).Err(); err != nil {
		return fmt.Errorf("bump version %s: %w", v.key, err)
	}
	return nil
}
