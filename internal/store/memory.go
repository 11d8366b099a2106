package store

import (
	"context"
	"sync"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// MemoryKV keeps profile lists in process memory. Lists are copied on the
// way in and out so callers never share backing arrays with the store.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]schemas.Profile
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]schemas.Profile)}
}

func (m *MemoryKV) GetAll(_ context.Context, key string) ([]schemas.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schemas.Profile, len(m.data[key]))
	copy(out, m.data[key])
	return out, nil
}

func (m *MemoryKV) SetAll(_ context.Context, key string, profiles []schemas.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]schemas.Profile, len(profiles))
	copy(stored, profiles)
	m.data[key] = stored
	return nil
}

func (m *MemoryKV) Close() error { return nil }
