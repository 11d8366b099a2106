package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		kv, err := Open(ctx, config.StoreConfig{Backend: config.BackendMemory}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &MemoryKV{}, kv)
	})

	t.Run("file", func(t *testing.T) {
		cfg := config.StoreConfig{Backend: config.BackendFile}
		cfg.File.Path = filepath.Join(t.TempDir(), "storage.json")
		kv, err := Open(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		require.IsType(t, &FileKV{}, kv)
		assert.Equal(t, cfg.File.Path, kv.(*FileKV).Path())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, config.StoreConfig{Backend: "etcd"}, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})
}
