package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisKV stores each key as a JSON string value with no expiry.
type RedisKV struct {
	client RedisClient
	log    *zap.Logger
}

func NewRedisKV(client RedisClient, logger *zap.Logger) *RedisKV {
	return &RedisKV{client: client, log: logger.Named("store.redis")}
}

func (r *RedisKV) GetAll(ctx context.Context, key string) ([]schemas.Profile, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []schemas.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load key %q: %w", key, err)
	}
	return decodeProfiles(raw)
}

func (r *RedisKV) SetAll(ctx context.Context, key string, profiles []schemas.Profile) error {
	raw, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store key %q: %w", key, err)
	}
	r.log.Debug("Stored profiles", zap.String("key", key), zap.Int("count", len(profiles)))
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
