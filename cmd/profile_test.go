package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/profile"
)

func TestProfileCommands_Lifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run(t, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No profiles saved")

	env.addProfile(t, "Juan - tourist", "Juan")
	env.addProfile(t, "Maria - work", "Maria")

	out, err = env.run(t, "profile", "list")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^1\s+Juan - tourist\s+JUAN DELA CRUZ\s+P1234567A\s+profile_\d+_\w+$`, out)
	assert.Regexp(t, `(?m)^2\s+Maria - work\s+MARIA DELA CRUZ`, out)
	assert.Contains(t, out, "2 of 5 profiles used")

	out, err = env.run(t, "profile", "show", "1")
	require.NoError(t, err)
	assert.Regexp(t, `Gender:\s+Male`, out)
	assert.Regexp(t, `Nationality:\s+PHILIPPINES`, out)
	assert.Regexp(t, `Mobile:\s+\+63 9171234567`, out)
	assert.Regexp(t, `Email:\s+JUAN@EXAMPLE.COM`, out)

	out, err = env.run(t, "profile", "edit", "2", "--gender", "Female", "--mobile", "9998887777")
	require.NoError(t, err)
	assert.Contains(t, out, `Profile "Maria - work" updated`)

	out, err = env.run(t, "profile", "show", "2")
	require.NoError(t, err)
	assert.Regexp(t, `Gender:\s+Female`, out)
	assert.Regexp(t, `Mobile:\s+\+63 9998887777`, out)
	assert.Regexp(t, `First name:\s+MARIA`, out)

	_, err = env.run(t, "profile", "edit", "2")
	assert.ErrorContains(t, err, "nothing to change")

	out, err = env.run(t, "profile", "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Profile "Juan - tourist" deleted`)

	out, err = env.run(t, "profile", "list")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^1\s+Maria - work`, out)
	assert.Contains(t, out, "1 of 5 profiles used")
}

func TestProfileAdd_Validation(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.run(t, "profile", "add",
		"--name", "bad", "--first-name", "A", "--last-name", "B",
		"--dob", "1990-03-15", "--passport", "X1", "--passport-expiry", "01/12/2030",
		"--mobile", "9171234567", "--email", "a@b.co",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DD/MM/YYYY")
	assert.NoFileExists(t, env.store)
}

func TestProfileAdd_LimitReached(t *testing.T) {
	env := newTestEnv(t, "")
	for i := 0; i < schemas.MaxProfiles; i++ {
		env.addProfile(t, "p"+strings.Repeat("x", i), "Juan")
	}
	_, err := env.run(t, "profile", "add",
		"--name", "sixth", "--first-name", "A", "--last-name", "B",
		"--dob", "15/03/1990", "--passport", "X1", "--passport-expiry", "01/12/2030",
		"--mobile", "9171234567", "--email", "a@b.co",
	)
	assert.ErrorIs(t, err, profile.ErrLimitReached)
}

func TestProfileShow_NotFound(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.run(t, "profile", "show", "3")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestProfileExportImport(t *testing.T) {
	src := newTestEnv(t, "")
	src.addProfile(t, "Juan - tourist", "Juan")
	src.addProfile(t, "Maria - work", "Maria")

	exported := filepath.Join(t.TempDir(), "profiles.json")
	_, err := src.run(t, "profile", "export", exported)
	require.NoError(t, err)
	info, err := os.Stat(exported)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	stdout, err := src.run(t, "profile", "export")
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), stdout)

	dst := newTestEnv(t, "")
	out, err := dst.run(t, "profile", "import", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 of 2 profiles")

	out, err = dst.run(t, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Juan - tourist")
	assert.Contains(t, out, "Maria - work")
}

func TestProfileImport_MissingFile(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.run(t, "profile", "import", filepath.Join(env.dir, "nope.json"))
	assert.ErrorContains(t, err, "failed to open")
}
