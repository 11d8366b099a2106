package profile

import (
	"bytes"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReadJSON decodes profiles from either a bare JSON array or the extension's
// storage export object ({"vfs_autofill_profiles": [...]}).
func ReadJSON(r io.Reader) ([]schemas.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []schemas.Profile{}, nil
	}

	var profiles []schemas.Profile
	if data[0] == '{' {
		var export map[string][]schemas.Profile
		if err := json.Unmarshal(data, &export); err != nil {
			return nil, fmt.Errorf("failed to decode profile export: %w", err)
		}
		list, ok := export[schemas.ProfileStorageKey]
		if !ok {
			return nil, fmt.Errorf("export has no %q entry", schemas.ProfileStorageKey)
		}
		profiles = list
	} else if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	if profiles == nil {
		profiles = []schemas.Profile{}
	}
	return profiles, nil
}

// WriteJSON writes profiles in the extension's storage export layout.
func WriteJSON(w io.Writer, profiles []schemas.Profile) error {
	if profiles == nil {
		profiles = []schemas.Profile{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string][]schemas.Profile{schemas.ProfileStorageKey: profiles}); err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	return nil
}
