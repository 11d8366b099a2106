package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

func flagNames(flags []flag) []string {
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		names = append(names, f.name)
	}
	return names
}

func TestAllocatorFlags(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		names := flagNames(allocatorFlags(config.BrowserConfig{}))
		assert.Contains(t, names, "disable-dev-shm-usage")
		assert.Contains(t, names, "disable-popup-blocking")
		assert.NotContains(t, names, "ignore-certificate-errors")
		assert.NotContains(t, names, "allow-insecure-localhost")
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		names := flagNames(flags)
		assert.Contains(t, names, "ignore-certificate-errors")
		assert.Contains(t, names, "allow-insecure-localhost")
		assert.Len(t, flags, len(allocatorFlags(config.BrowserConfig{}))+2)
	})

	t.Run("CustomArgs", func(t *testing.T) {
		base := allocatorFlags(config.BrowserConfig{})
		flags := allocatorFlags(config.BrowserConfig{
			Args: []string{"--lang=en-PH", "--mute-audio", "--"},
		})
		require.Len(t, flags, len(base)+2)
		assert.Equal(t, []flag{{"lang", "en-PH"}, {"mute-audio", true}}, flags[len(base):])
	})
}

func TestAllocatorOptions(t *testing.T) {
	base := len(AllocatorOptions(config.BrowserConfig{}, schemas.Persona{}))

	t.Run("FlagsIncluded", func(t *testing.T) {
		cfg := config.BrowserConfig{IgnoreTLSErrors: true, Args: []string{"--mute-audio"}}
		opts := AllocatorOptions(cfg, schemas.Persona{})
		assert.Len(t, opts, base+3)
	})

	t.Run("PersonaAndPaths", func(t *testing.T) {
		opts := AllocatorOptions(config.BrowserConfig{
			Headless:    true,
			ExecPath:    "/usr/bin/chromium",
			UserDataDir: "/tmp/profile",
		}, schemas.DefaultPersona)
		// headless, no-sandbox, exec path, user data dir, user agent, window size
		assert.Len(t, opts, base+6)
	})
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "", acceptLanguage(nil))
	assert.Equal(t, "en-US", acceptLanguage([]string{"en-US"}))
	assert.Equal(t, "en-US,en;q=0.9,fil;q=0.8", acceptLanguage([]string{"en-US", "en", "fil"}))
}

func TestPersonaTasks(t *testing.T) {
	logger := testLogger(t)
	assert.Empty(t, PersonaTasks(schemas.Persona{}, logger))
	// user agent, Accept-Language header, timezone, locale, viewport
	assert.Len(t, PersonaTasks(schemas.DefaultPersona, logger), 5)
}
