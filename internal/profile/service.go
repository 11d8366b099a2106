package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/store"
)

var (
	// ErrLimitReached is returned when adding a profile to a full collection.
	ErrLimitReached = fmt.Errorf("maximum %d profiles allowed, delete one to add more", schemas.MaxProfiles)
	// ErrNotFound is returned when no profile matches an id or position.
	ErrNotFound = errors.New("profile not found")
)

// Service is the profile store: an ordered list of at most MaxProfiles
// records kept under a single key. Every mutation reads the whole list,
// changes it and writes it back with one SetAll.
type Service struct {
	kv  store.KV
	key string
	log *zap.Logger
	now func() time.Time
}

// NewService creates a profile service over kv. An empty key selects the
// default storage key.
func NewService(kv store.KV, key string, logger *zap.Logger) *Service {
	if key == "" {
		key = schemas.ProfileStorageKey
	}
	return &Service{
		kv:  kv,
		key: key,
		log: logger.Named("profile"),
		now: time.Now,
	}
}

// List returns the stored profiles in order.
func (s *Service) List(ctx context.Context) ([]schemas.Profile, error) {
	profiles, err := s.kv.GetAll(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return profiles, nil
}

// Get returns the profile with the given id.
func (s *Service) Get(ctx context.Context, id string) (schemas.Profile, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return schemas.Profile{}, err
	}
	if i := indexOf(profiles, id); i >= 0 {
		return profiles[i], nil
	}
	return schemas.Profile{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Resolve finds a profile by id or by its 1-based position in the list
// ("2" or "#2"), returning the profile and its 0-based index.
func (s *Service) Resolve(ctx context.Context, ref string) (schemas.Profile, int, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return schemas.Profile{}, -1, err
	}
	i, err := resolveIndex(profiles, ref)
	if err != nil {
		return schemas.Profile{}, -1, err
	}
	return profiles[i], i, nil
}

// Save adds or updates a profile. A profile whose id is already stored is
// replaced in place; anything else is appended, provided the collection is
// not full. The stored record is returned.
func (s *Service) Save(ctx context.Context, p schemas.Profile) (schemas.Profile, error) {
	p = Normalize(p)
	if err := Validate(p); err != nil {
		return schemas.Profile{}, err
	}

	profiles, err := s.List(ctx)
	if err != nil {
		return schemas.Profile{}, err
	}

	now := s.now().UTC()
	p.CreatedAt = now

	if i := indexOf(profiles, p.ID); p.ID != "" && i >= 0 {
		profiles[i] = p
		if err := s.write(ctx, profiles); err != nil {
			return schemas.Profile{}, err
		}
		s.log.Info("Profile updated", zap.String("id", p.ID), zap.String("name", p.ProfileName))
		return p, nil
	}

	if len(profiles) >= schemas.MaxProfiles {
		return schemas.Profile{}, ErrLimitReached
	}
	if p.ID == "" {
		p.ID = NewID(now)
	}
	profiles = append(profiles, p)
	if err := s.write(ctx, profiles); err != nil {
		return schemas.Profile{}, err
	}
	s.log.Info("Profile saved", zap.String("id", p.ID), zap.String("name", p.ProfileName), zap.Int("count", len(profiles)))
	return p, nil
}

// Delete removes the profile at the 0-based index, preserving the order of
// the rest.
func (s *Service) Delete(ctx context.Context, index int) (schemas.Profile, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return schemas.Profile{}, err
	}
	if index < 0 || index >= len(profiles) {
		return schemas.Profile{}, fmt.Errorf("%w: no profile at position %d", ErrNotFound, index+1)
	}
	removed := profiles[index]
	remaining := append(profiles[:index:index], profiles[index+1:]...)
	if err := s.write(ctx, remaining); err != nil {
		return schemas.Profile{}, err
	}
	s.log.Info("Profile deleted", zap.String("id", removed.ID), zap.Int("count", len(remaining)))
	return removed, nil
}

// DeleteRef removes the profile addressed by id or 1-based position.
func (s *Service) DeleteRef(ctx context.Context, ref string) (schemas.Profile, error) {
	_, i, err := s.Resolve(ctx, ref)
	if err != nil {
		return schemas.Profile{}, err
	}
	return s.Delete(ctx, i)
}

// Import saves each profile in turn, stopping at the first failure. It
// returns how many were stored.
func (s *Service) Import(ctx context.Context, profiles []schemas.Profile) (int, error) {
	for i, p := range profiles {
		if _, err := s.Save(ctx, p); err != nil {
			return i, fmt.Errorf("profile %d (%s): %w", i+1, p.ProfileName, err)
		}
	}
	return len(profiles), nil
}

func (s *Service) write(ctx context.Context, profiles []schemas.Profile) error {
	if err := s.kv.SetAll(ctx, s.key, profiles); err != nil {
		return fmt.Errorf("failed to store profiles: %w", err)
	}
	return nil
}

func indexOf(profiles []schemas.Profile, id string) int {
	for i, p := range profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func resolveIndex(profiles []schemas.Profile, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if i := indexOf(profiles, ref); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		if n >= 1 && n <= len(profiles) {
			return n - 1, nil
		}
		return -1, fmt.Errorf("%w: no profile at position %d (have %d)", ErrNotFound, n, len(profiles))
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, ref)
}
