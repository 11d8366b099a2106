package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// KV is the persistence collaborator behind the profile store. A key maps to
// the whole profile list; SetAll replaces it atomically.
type KV interface {
	GetAll(ctx context.Context, key string) ([]schemas.Profile, error)
	SetAll(ctx context.Context, key string, profiles []schemas.Profile) error
	Close() error
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (KV, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileKV(cfg.File.Path, logger)
	case config.BackendMemory:
		return NewMemoryKV(), nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		kv := NewPostgresKV(pool, logger)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return kv, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisKV(client, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

func decodeProfiles(raw []byte) ([]schemas.Profile, error) {
	if len(raw) == 0 {
		return []schemas.Profile{}, nil
	}
	var profiles []schemas.Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode stored profiles: %w", err)
	}
	if profiles == nil {
		profiles = []schemas.Profile{}
	}
	return profiles, nil
}

func encodeProfiles(profiles []schemas.Profile) ([]byte, error) {
	if profiles == nil {
		profiles = []schemas.Profile{}
	}
	raw, err := json.Marshal(profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profiles: %w", err)
	}
	return raw, nil
}
