package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "isbridge:"

// RedisStore implements a key-value store on a redis server.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects to config.RedisURL and checks the connection.
func NewRedisStore(ctx context.Context, config *types.StorageConfig) (*RedisStore, error) {
	if config.RedisURL == "" {
		return nil, fmt.Errorf("redis_url is required for redis storage")
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := config.RedisPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

// Get reads key from redis.
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}

	return v, true, nil
}

// Set writes key to redis without expiry.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}

	return nil
}

// Delete removes key from redis.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}

	return nil
}

// Close closes the redis client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
