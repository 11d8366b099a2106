package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const (
	sqlCreateKVTable = `
        CREATE TABLE IF NOT EXISTS kv_store (
            key TEXT PRIMARY KEY,
            value JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlSelectValue = `SELECT value FROM kv_store WHERE key = $1`
	sqlUpsertValue = `
        INSERT INTO kv_store (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            updated_at = EXCLUDED.updated_at;
    `
)

// PostgresKV keeps each key as one JSONB row. The single-statement upsert
// replaces the whole list atomically.
type PostgresKV struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgresKV wraps an already verified pool.
func NewPostgresKV(pool DBPool, logger *zap.Logger) *PostgresKV {
	return &PostgresKV{pool: pool, log: logger.Named("store.postgres")}
}

// EnsureSchema creates the kv_store table when it is missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, sqlCreateKVTable); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

func (p *PostgresKV) GetAll(ctx context.Context, key string) ([]schemas.Profile, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, sqlSelectValue, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []schemas.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load key %q: %w", key, err)
	}
	return decodeProfiles(raw)
}

func (p *PostgresKV) SetAll(ctx context.Context, key string, profiles []schemas.Profile) error {
	raw, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, sqlUpsertValue, key, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store key %q: %w", key, err)
	}
	p.log.Debug("Stored profiles", zap.String("key", key), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}
