package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

func TestFileKV(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file reads as an empty list", func(t *testing.T) {
		kv, err := NewFileKV(filepath.Join(t.TempDir(), "nested", "storage.json"), zaptest.NewLogger(t))
		require.NoError(t, err)

		got, err := kv.GetAll(ctx, schemas.ProfileStorageKey)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.DirExists(t, filepath.Dir(kv.Path()))
	})

	t.Run("round trip", func(t *testing.T) {
		kv, err := NewFileKV(filepath.Join(t.TempDir(), "storage.json"), zaptest.NewLogger(t))
		require.NoError(t, err)

		want := sampleProfiles()
		require.NoError(t, kv.SetAll(ctx, schemas.ProfileStorageKey, want))

		got, err := kv.GetAll(ctx, schemas.ProfileStorageKey)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("profiles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("replace keeps other keys and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		kv, err := NewFileKV(filepath.Join(dir, "storage.json"), zaptest.NewLogger(t))
		require.NoError(t, err)

		require.NoError(t, kv.SetAll(ctx, "other", sampleProfiles()[:1]))
		require.NoError(t, kv.SetAll(ctx, schemas.ProfileStorageKey, sampleProfiles()))
		require.NoError(t, kv.SetAll(ctx, schemas.ProfileStorageKey, sampleProfiles()[1:]))

		got, err := kv.GetAll(ctx, schemas.ProfileStorageKey)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "JOSE", got[0].FirstName)

		other, err := kv.GetAll(ctx, "other")
		require.NoError(t, err)
		assert.Len(t, other, 1)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "only the storage file should remain")
	})

	t.Run("reads the extension export layout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "storage.json")
		raw := `{"vfs_autofill_profiles":[{"id":"profile_1","profileName":"Ana","firstName":"ANA","lastName":"CRUZ","gender":"Female","nationality":"PHILIPPINES","dateOfBirth":"02/03/1994","passportNumber":"P0000001C","passportExpiry":"02/03/2032","countryCode":"63","mobileNumber":"9990001111","email":"ANA@EXAMPLE.COM","createdAt":"2025-01-05T10:00:00.000Z"}]}`
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

		kv, err := NewFileKV(path, zaptest.NewLogger(t))
		require.NoError(t, err)
		got, err := kv.GetAll(ctx, schemas.ProfileStorageKey)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "profile_1", got[0].ID)
		assert.Equal(t, "9990001111", got[0].MobileNumber)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "storage.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		kv, err := NewFileKV(path, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = kv.GetAll(ctx, schemas.ProfileStorageKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "corrupt")
	})
}
