package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// FileKV stores every key in a single JSON object on disk, the same shape
// the browser extension's local storage export uses:
//
//	{"vfs_autofill_profiles": [ ... ]}
type FileKV struct {
	path string
	mu   sync.Mutex
	log  *zap.Logger
}

// NewFileKV resolves path (a leading ~ is expanded) and makes sure its
// directory exists. The file itself is created on the first write.
func NewFileKV(path string, logger *zap.Logger) (*FileKV, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand storage path %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileKV{path: expanded, log: logger.Named("store.file")}, nil
}

// Path returns the resolved storage file location.
func (f *FileKV) Path() string { return f.path }

func (f *FileKV) GetAll(_ context.Context, key string) ([]schemas.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return decodeProfiles(doc[key])
}

func (f *FileKV) SetAll(_ context.Context, key string, profiles []schemas.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	raw, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}
	doc[key] = raw

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage file: %w", err)
	}
	if err := f.replace(out); err != nil {
		return err
	}
	f.log.Debug("Stored profiles", zap.String("key", key), zap.Int("count", len(profiles)))
	return nil
}

func (f *FileKV) Close() error { return nil }

func (f *FileKV) load() (map[string]jsoniter.RawMessage, error) {
	doc := make(map[string]jsoniter.RawMessage)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("storage file %s is corrupt: %w", f.path, err)
	}
	return doc, nil
}

// replace writes data next to the target and renames it into place, so a
// crash mid-write never leaves a truncated file behind.
func (f *FileKV) replace(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set storage file mode: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
