package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vfs-autofill/internal/observability"
)

// testEnv is a config file and file-backed store in a temp directory.
type testEnv struct {
	dir    string
	config string
	store  string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		store:  filepath.Join(dir, "storage.json"),
	}
	cfg := fmt.Sprintf(`logger:
  level: error
store:
  backend: file
  file:
    path: %s
browser:
  keep_open: false
fill:
  overlay_timeout: 100ms
  poll_interval: 10ms
%s`, env.store, extra)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))

	t.Cleanup(func() {
		cfgFile = ""
		observability.ResetForTest()
	})
	return env
}

// run executes the CLI with the env's config and returns what it printed.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runContext(context.Background(), t, args...)
}

func (e *testEnv) runContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) addProfile(t *testing.T, name, first string) {
	t.Helper()
	_, err := e.run(t, "profile", "add",
		"--name", name,
		"--first-name", first,
		"--last-name", "Dela Cruz",
		"--dob", "15/03/1990",
		"--passport", "p1234567a",
		"--passport-expiry", "01/12/2030",
		"--mobile", "9171234567",
		"--email", "juan@example.com",
	)
	require.NoError(t, err)
}
