package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

var formInputs = []string{
	"First Name", "Last Name", "Date of Birth", "Passport Number",
	"Passport Expiry", "Country Code", "Mobile Number", "Email",
}

type fakeTab struct {
	doc *dom.Document
	url string
}

func (t *fakeTab) Page() dom.Page                           { return t.doc }
func (t *fakeTab) URL(ctx context.Context) (string, error) { return t.url, nil }

type fakeDriver struct {
	tab    *fakeTab
	opened []string
	closed bool
}

func (d *fakeDriver) Open(ctx context.Context, url string) (browser.Tab, error) {
	d.opened = append(d.opened, url)
	return d.tab, nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func loadForm(t *testing.T) *dom.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "vfs_form.html"))
	require.NoError(t, err)
	defer f.Close()
	doc, err := dom.NewDocument(f)
	require.NoError(t, err)
	return doc
}

func useDriver(t *testing.T, d browser.Driver) *config.BrowserConfig {
	t.Helper()
	var got config.BrowserConfig
	newDriver = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
		got = cfg
		return d, nil
	}
	t.Cleanup(func() { newDriver = browser.NewDriver })
	return &got
}

func readReport(t *testing.T, path string) schemas.FillReport {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report schemas.FillReport
	require.NoError(t, jsoniter.Unmarshal(data, &report))
	return report
}

func TestFill_Offline(t *testing.T) {
	env := newTestEnv(t, "")
	env.addProfile(t, "Juan - tourist", "Juan")

	reportPath := filepath.Join(env.dir, "report.json")
	htmlOut := filepath.Join(env.dir, "filled.html")
	_, err := env.run(t, "fill",
		"--html", filepath.Join("testdata", "vfs_form.html"),
		"--html-out", htmlOut,
		"--format", "json", "-o", reportPath,
	)
	// Nothing opens the dropdown overlays in a static document.
	require.ErrorIs(t, err, ErrPartialFill)

	report := readReport(t, reportPath)
	assert.False(t, report.Success)
	assert.Equal(t, formInputs, report.Filled)
	assert.Equal(t, []string{"Gender", "Current Nationality"}, report.Failed)
	assert.Equal(t, "vfs-content", report.Layout)
	for _, o := range report.Outcomes {
		if !o.Filled {
			assert.Equal(t, schemas.FailureOverlayMissing, o.Failure, o.Field)
		}
	}

	html, err := os.ReadFile(htmlOut)
	require.NoError(t, err)
	assert.Contains(t, string(html), `value="JUAN"`)
	assert.Contains(t, string(html), `value="P1234567A"`)
	assert.NotContains(t, string(html), dom.RefAttribute)
}

func TestFill_LiveWithFakeDriver(t *testing.T) {
	env := newTestEnv(t, "")
	env.addProfile(t, "Juan - tourist", "Juan")
	env.addProfile(t, "Maria - work", "Maria")

	const formURL = "https://visa.vfsglobal.com/phl/en/ita/your-details"
	doc := loadForm(t)
	d := &fakeDriver{tab: &fakeTab{doc: doc, url: formURL}}
	got := useDriver(t, d)

	out, err := env.run(t, "fill", "-p", "2", "--url", formURL, "--layout", "vfs-popup", "--headless")
	require.ErrorIs(t, err, ErrPartialFill)
	assert.Equal(t, []string{formURL}, d.opened)
	assert.True(t, d.closed)
	assert.True(t, got.Headless)

	assert.Contains(t, out, "Form partially filled: 8 filled, 2 failed (Gender, Current Nationality)")
	assert.Regexp(t, `First Name\s+input\s+filled`, out)

	els, err := doc.Query(context.Background(), "#mat-input-3")
	require.NoError(t, err)
	require.Len(t, els, 1)
	v, err := doc.Value(context.Background(), els[0].Ref)
	require.NoError(t, err)
	assert.Equal(t, "DELA CRUZ", v)
}

func TestFill_Rejections(t *testing.T) {
	env := newTestEnv(t, "")
	d := &fakeDriver{tab: &fakeTab{doc: loadForm(t), url: "https://example.com/form"}}
	useDriver(t, d)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"neither source", []string{"fill"}, "exactly one of --url or --html"},
		{"both sources", []string{"fill", "--url", "https://visa.vfsglobal.com", "--html", "x.html"}, "exactly one of --url or --html"},
		{"html-out without html", []string{"fill", "--url", "https://visa.vfsglobal.com", "--html-out", "x.html"}, "--html-out needs --html"},
		{"foreign host", []string{"fill", "--url", "https://example.com/form"}, "not a supported VFS Global page"},
		{"no profiles", []string{"fill", "--url", "https://example.com/form", "--force"}, "no profiles saved"},
		{"bad format", []string{"fill", "--html", "x.html", "--format", "xml"}, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Empty(t, d.opened)
}

func TestFill_AttachedTabMovedAway(t *testing.T) {
	env := newTestEnv(t, "")
	env.addProfile(t, "Juan - tourist", "Juan")
	d := &fakeDriver{tab: &fakeTab{doc: loadForm(t), url: "https://accounts.example.com/login"}}
	useDriver(t, d)

	_, err := env.run(t, "fill", "--url", "https://visa.vfsglobal.com/phl/en/ita/your-details")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accounts.example.com is not a supported VFS Global page")
	assert.True(t, d.closed)
}

func TestFill_AmbiguousProfile(t *testing.T) {
	env := newTestEnv(t, "")
	env.addProfile(t, "Juan - tourist", "Juan")
	env.addProfile(t, "Maria - work", "Maria")

	_, err := env.run(t, "fill", "--html", filepath.Join("testdata", "vfs_form.html"))
	assert.ErrorContains(t, err, "2 profiles saved; choose one with --profile")
}

func TestFill_DriverError(t *testing.T) {
	env := newTestEnv(t, "")
	env.addProfile(t, "Juan - tourist", "Juan")
	newDriver = func(context.Context, config.BrowserConfig, *zap.Logger) (browser.Driver, error) {
		return nil, errors.New("chrome not found")
	}
	t.Cleanup(func() { newDriver = browser.NewDriver })

	_, err := env.run(t, "fill", "--url", "https://visa.vfsglobal.com/")
	assert.EqualError(t, err, "chrome not found")
}

func TestCheckHost(t *testing.T) {
	allowed := []string{"vfsglobal.com"}
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://visa.vfsglobal.com/phl/en/ita/", true},
		{"https://VISA.VFSGLOBAL.COM/", true},
		{"https://vfsglobal.com:8443/x", true},
		{"https://example.com/?next=vfsglobal.com", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		err := checkHost(tt.url, allowed)
		if tt.ok {
			assert.NoError(t, err, tt.url)
		} else {
			assert.Error(t, err, tt.url)
		}
	}
	assert.Error(t, checkHost("https://visa.vfsglobal.com", nil))
}
