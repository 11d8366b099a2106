package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRedis is an in-memory RedisClient built on go-redis' result constructors.
type fakeRedis struct {
	values map[string]string
	getErr error
	setErr error
	ttls   map[string]time.Duration
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is an empty list", func(t *testing.T) {
		kv := NewRedisKV(newFakeRedis(), zap.NewNop())
		got, err := kv.GetAll(ctx, "vfs_autofill_profiles")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("round trip without expiry", func(t *testing.T) {
		client := newFakeRedis()
		kv := NewRedisKV(client, zap.NewNop())

		require.NoError(t, kv.SetAll(ctx, "vfs_autofill_profiles", sampleProfiles()))
		assert.Equal(t, time.Duration(0), client.ttls["vfs_autofill_profiles"])
		assert.Contains(t, client.values["vfs_autofill_profiles"], `"passportNumber":"P1234567A"`)

		got, err := kv.GetAll(ctx, "vfs_autofill_profiles")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "MARIA", got[0].FirstName)
	})

	t.Run("errors are wrapped", func(t *testing.T) {
		client := newFakeRedis()
		client.getErr = errors.New("i/o timeout")
		client.setErr = errors.New("READONLY")
		kv := NewRedisKV(client, zap.NewNop())

		_, err := kv.GetAll(ctx, "k")
		assert.ErrorIs(t, err, client.getErr)
		err = kv.SetAll(ctx, "k", sampleProfiles())
		assert.ErrorIs(t, err, client.setErr)
	})

	t.Run("close closes the client", func(t *testing.T) {
		client := newFakeRedis()
		require.NoError(t, NewRedisKV(client, zap.NewNop()).Close())
		assert.True(t, client.closed)
	})
}
