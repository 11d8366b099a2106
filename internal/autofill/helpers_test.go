package autofill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

var dropdownOptions = map[string][]string{
	"mat-select-23": {"Male", "Female", "Other"},
	"mat-select-24": {"AFGHANISTAN", "JAPAN", "PHILIPPINES", "PHILIPPINES (DIPLOMATIC)"},
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

// mountOverlay renders the option panel for the mat-select that was clicked,
// unless a panel is already open.
func mountOverlay(t *testing.T, d *dom.Document, el dom.Element) {
	open, err := d.Query(context.Background(), ".cdk-overlay-container mat-option")
	require.NoError(t, err)
	if len(open) > 0 {
		return
	}
	var b strings.Builder
	b.WriteString(`<div class="cdk-overlay-backdrop"></div><div class="cdk-overlay-pane"><div class="mat-select-panel" role="listbox">`)
	for _, opt := range dropdownOptions[el.Attr("id")] {
		fmt.Fprintf(&b, `<mat-option role="option"><span class="mat-option-text"> %s </span></mat-option>`, opt)
	}
	b.WriteString(`</div></div>`)
	require.NoError(t, d.Append(".cdk-overlay-container", b.String()))
}

func closeOverlay(t *testing.T, d *dom.Document) {
	require.NoError(t, d.Remove(".cdk-overlay-container > *"))
}

// wireOverlays makes the document behave like the live form: clicking a
// mat-select opens its panel, and clicking an option or the backdrop closes it.
func wireOverlays(t *testing.T, doc *dom.Document) *selections {
	t.Helper()
	sel := &selections{}
	require.NoError(t, doc.OnClick("mat-select", func(d *dom.Document, el dom.Element) {
		mountOverlay(t, d, el)
	}))
	require.NoError(t, doc.OnClick("mat-option", func(d *dom.Document, el dom.Element) {
		sel.add(el.TrimmedText())
		closeOverlay(t, d)
	}))
	require.NoError(t, doc.OnClick(".cdk-overlay-backdrop", func(d *dom.Document, el dom.Element) {
		sel.backdrop()
		closeOverlay(t, d)
	}))
	return sel
}

type selections struct {
	mu        sync.Mutex
	picked    []string
	backdrops int
}

func (s *selections) add(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picked = append(s.picked, v)
}

func (s *selections) backdrop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backdrops++
}

func (s *selections) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.picked...), s.backdrops
}

func valueOf(t *testing.T, doc *dom.Document, selector string) string {
	t.Helper()
	el, ok, err := dom.QueryFirst(context.Background(), doc, selector)
	require.NoError(t, err)
	require.True(t, ok, "no element matches %s", selector)
	v, err := doc.Value(context.Background(), el.Ref)
	require.NoError(t, err)
	return v
}

func taro() schemas.Profile {
	return schemas.Profile{
		ID:             "profile_1710408600000_abcdef123",
		ProfileName:    "Taro",
		FirstName:      "TARO",
		LastName:       "YAMADA",
		Gender:         "Male",
		Nationality:    "JAPAN",
		DateOfBirth:    "01/01/1990",
		PassportNumber: "TK1234567",
		PassportExpiry: "15/06/2031",
		CountryCode:    "81",
		MobileNumber:   "9012345678",
		Email:          "TARO@EXAMPLE.COM",
	}
}

// fakeClock advances only when the filler sleeps, so schedules are exact.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

// advance moves the clock without recording a sleep, as slow page work does.
func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// mockPage is a testify mock of dom.Page for failure injection.
type mockPage struct {
	mock.Mock
}

var _ dom.Page = (*mockPage)(nil)

func (m *mockPage) Query(ctx context.Context, selector string) ([]dom.Element, error) {
	args := m.Called(ctx, selector)
	els, _ := args.Get(0).([]dom.Element)
	return els, args.Error(1)
}

func (m *mockPage) QueryWithin(ctx context.Context, scope dom.Ref, selector string) ([]dom.Element, error) {
	args := m.Called(ctx, scope, selector)
	els, _ := args.Get(0).([]dom.Element)
	return els, args.Error(1)
}

func (m *mockPage) Closest(ctx context.Context, ref dom.Ref, selector string) (dom.Element, bool, error) {
	args := m.Called(ctx, ref, selector)
	el, _ := args.Get(0).(dom.Element)
	return el, args.Bool(1), args.Error(2)
}

func (m *mockPage) Value(ctx context.Context, ref dom.Ref) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *mockPage) SetValue(ctx context.Context, ref dom.Ref, value string) error {
	return m.Called(ctx, ref, value).Error(0)
}

func (m *mockPage) Focus(ctx context.Context, ref dom.Ref) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockPage) Click(ctx context.Context, ref dom.Ref) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockPage) Dispatch(ctx context.Context, ref dom.Ref, ev dom.Event) error {
	return m.Called(ctx, ref, ev).Error(0)
}
