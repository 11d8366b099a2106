package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	got, err := kv.GetAll(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	profiles := sampleProfiles()
	require.NoError(t, kv.SetAll(ctx, "k", profiles))

	// Mutating the caller's slice must not leak into the store.
	profiles[0].FirstName = "CHANGED"
	got, err = kv.GetAll(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MARIA", got[0].FirstName)

	got[1].FirstName = "CHANGED"
	again, err := kv.GetAll(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "JOSE", again[1].FirstName)
}
