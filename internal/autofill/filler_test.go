package autofill

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

func newTestFiller(t *testing.T, layoutName string, opts Options) (*Filler, *fakeClock) {
	t.Helper()
	layout, err := Builtin(layoutName)
	require.NoError(t, err)
	if opts.OverlayTimeout == 0 {
		opts.OverlayTimeout = 200 * time.Millisecond
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	f, err := NewFiller(layout, opts, zap.NewNop())
	require.NoError(t, err)
	clock := newFakeClock()
	f.now = clock.now
	f.sleep = clock.sleep
	return f, clock
}

// ignoreRunDetails drops the fields that depend on timing.
var ignoreRunDetails = cmpopts.IgnoreFields(schemas.FillReport{}, "StartedAt", "FinishedAt", "Outcomes")

func TestFiller_FillsTheWholeForm(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := loadForm(t)
			picks := wireOverlays(t, doc)
			f, _ := newTestFiller(t, name, Options{})
			p := taro()

			report, err := f.Fill(ctx, doc, p)
			require.NoError(t, err)

			layout := f.Layout()
			var names []string
			for _, field := range layout.Inputs() {
				names = append(names, field.Name)
			}
			for _, field := range layout.Dropdowns() {
				names = append(names, field.Name)
			}
			want := &schemas.FillReport{
				Success:   true,
				Filled:    names,
				Failed:    []string{},
				ProfileID: p.ID,
				Layout:    name,
			}
			if diff := cmp.Diff(want, report, ignoreRunDetails); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}

			assert.Equal(t, "TARO", valueOf(t, doc, `input[placeholder="Enter your first name"]`))
			assert.Equal(t, "YAMADA", valueOf(t, doc, "#mat-input-3"))
			assert.Equal(t, "01/01/1990", valueOf(t, doc, "#dateOfBirth"))
			assert.Equal(t, "TK1234567", valueOf(t, doc, "#mat-input-4"))
			assert.Equal(t, "15/06/2031", valueOf(t, doc, "#passportExpirtyDate"))
			assert.Equal(t, "81", valueOf(t, doc, "#mat-input-5"))
			assert.Equal(t, "9012345678", valueOf(t, doc, "#mat-input-6"))
			assert.Equal(t, "TARO@EXAMPLE.COM", valueOf(t, doc, "#mat-input-7"))

			picked, backdrops := picks.snapshot()
			assert.Equal(t, []string{"Male", "JAPAN"}, picked)
			assert.Zero(t, backdrops)

			for _, o := range report.Outcomes {
				assert.True(t, o.Filled, o.Field)
				assert.NotEmpty(t, o.Strategy, o.Field)
			}
		})
	}
}

func TestFiller_SingleFirstNameInput(t *testing.T) {
	ctx := context.Background()
	doc := mustDoc(t, `<body><input placeholder="Enter your first name"></body>`)
	f, _ := newTestFiller(t, LayoutContent, Options{OverlayTimeout: 10 * time.Millisecond})

	report, err := f.Fill(ctx, doc, schemas.Profile{FirstName: "TARO"})
	require.NoError(t, err)
	assert.Equal(t, "TARO", valueOf(t, doc, "input"))
	assert.Contains(t, report.Filled, "First Name")
	assert.False(t, report.Success, "the other fields are missing")
}

func TestFiller_EmptyDocument(t *testing.T) {
	ctx := context.Background()
	doc := mustDoc(t, `<html><body><p>Maintenance</p></body></html>`)
	f, _ := newTestFiller(t, LayoutContent, Options{})

	report, err := f.Fill(ctx, doc, taro())
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Empty(t, report.Filled)
	assert.Len(t, report.Failed, len(f.Layout().Fields))
	for _, o := range report.Outcomes {
		assert.Equal(t, schemas.FailureNotFound, o.Failure, o.Field)
	}
}

func TestFiller_OverlayNeverMounts(t *testing.T) {
	ctx := context.Background()
	doc := loadForm(t)
	f, _ := newTestFiller(t, LayoutContent, Options{OverlayTimeout: 30 * time.Millisecond})

	report, err := f.Fill(ctx, doc, taro())
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, []string{"Gender", "Current Nationality"}, report.Failed)
	assert.Len(t, report.Filled, len(f.Layout().Inputs()))

	for _, o := range report.Outcomes {
		if o.Kind == schemas.FieldDropdown {
			assert.Equal(t, schemas.FailureOverlayMissing, o.Failure)
		}
	}
}

func TestFiller_ValueMismatchAndMissingOption(t *testing.T) {
	ctx := context.Background()
	doc := loadForm(t)
	wireOverlays(t, doc)
	require.NoError(t, doc.OnEvent("#mat-input-7", "blur", func(d *dom.Document, el dom.Element) {
		require.NoError(t, d.SetValue(ctx, el.Ref, "taro@example.com"))
	}))
	f, _ := newTestFiller(t, LayoutContent, Options{})

	p := taro()
	p.Nationality = "ATLANTIS"
	report, err := f.Fill(ctx, doc, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Current Nationality"}, report.Failed)

	failures := map[string]schemas.FailureKind{}
	for _, o := range report.Outcomes {
		if !o.Filled {
			failures[o.Field] = o.Failure
		}
	}
	assert.Equal(t, map[string]schemas.FailureKind{
		"Email":               schemas.FailureValueMismatch,
		"Current Nationality": schemas.FailureOptionNotFound,
	}, failures)
}

func TestFiller_DropdownDefaults(t *testing.T) {
	ctx := context.Background()
	doc := loadForm(t)
	picks := wireOverlays(t, doc)
	f, _ := newTestFiller(t, LayoutContent, Options{})

	p := taro()
	p.Gender = ""
	p.Nationality = ""
	report, err := f.Fill(ctx, doc, p)
	require.NoError(t, err)
	assert.True(t, report.Success)
	picked, _ := picks.snapshot()
	assert.Equal(t, []string{"Male", "PHILIPPINES"}, picked)
}

func TestFiller_Schedules(t *testing.T) {
	tests := []struct {
		layout string
		want   []time.Duration
	}{
		// Inputs back to back, dropdowns 500ms in and 600ms apart.
		{LayoutContent, []time.Duration{500 * time.Millisecond, 600 * time.Millisecond}},
		// Inputs 100ms apart, dropdowns at 8*100+200ms and 600ms apart.
		{LayoutPopup, []time.Duration{
			100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond,
			100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond,
			300 * time.Millisecond, 600 * time.Millisecond,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			doc := loadForm(t)
			wireOverlays(t, doc)
			f, clock := newTestFiller(t, tt.layout, Options{})

			_, err := f.Fill(context.Background(), doc, taro())
			require.NoError(t, err)
			assert.Equal(t, tt.want, clock.sleeps())
		})
	}
}

func TestFiller_SlowDropdownDelaysTheNext(t *testing.T) {
	doc := loadForm(t)
	f, clock := newTestFiller(t, LayoutContent, Options{})

	// Gender's selection takes 900ms, past the 600ms stagger, and its panel
	// only goes away while the filler waits.
	picks := &selections{}
	closing := false
	require.NoError(t, doc.OnClick("mat-select", func(d *dom.Document, el dom.Element) {
		mountOverlay(t, d, el)
	}))
	require.NoError(t, doc.OnClick("mat-option", func(d *dom.Document, el dom.Element) {
		picks.add(el.TrimmedText())
		clock.advance(900 * time.Millisecond)
		closing = true
	}))
	f.sleep = func(ctx context.Context, d time.Duration) error {
		if closing {
			closeOverlay(t, doc)
			closing = false
		}
		return clock.sleep(ctx, d)
	}

	report, err := f.Fill(context.Background(), doc, taro())
	require.NoError(t, err)
	assert.True(t, report.Success, "failed: %v", report.Failed)

	picked, _ := picks.snapshot()
	assert.Equal(t, []string{"Male", "JAPAN"}, picked)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 600 * time.Millisecond}, clock.sleeps())
}

func TestFiller_InjectionOverride(t *testing.T) {
	ctx := context.Background()
	doc := loadForm(t)
	wireOverlays(t, doc)
	f, _ := newTestFiller(t, LayoutContent, Options{Injection: ModeDirect})

	_, err := f.Fill(ctx, doc, taro())
	require.NoError(t, err)

	el := firstInput(t, doc, "#mat-input-2")
	types := eventTypes(doc.EventsFor(el.Ref))
	assert.Contains(t, types, "event:ngModelChange")
	assert.NotContains(t, types, "keyboard:keydown")
}

func TestFiller_CanceledMidRun(t *testing.T) {
	doc := loadForm(t)
	wireOverlays(t, doc)
	f, _ := newTestFiller(t, LayoutContent, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Cancel as soon as the last name has been typed.
	require.NoError(t, doc.OnEvent("#mat-input-3", "blur", func(*dom.Document, dom.Element) { cancel() }))

	report, err := f.Fill(ctx, doc, taro())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, []string{"First Name"}, report.Filled)
	assert.Len(t, report.Failed, len(f.Layout().Fields)-1)
	assert.False(t, report.Success)
	for _, o := range report.Outcomes[1:] {
		assert.Equal(t, schemas.FailureCanceled, o.Failure, o.Field)
	}
	assert.False(t, report.FinishedAt.IsZero())
}

func TestNewFiller_Rejects(t *testing.T) {
	_, err := NewFiller(nil, Options{}, zap.NewNop())
	assert.Error(t, err)

	layout, err := Builtin(LayoutContent)
	require.NoError(t, err)
	_, err = NewFiller(layout, Options{Injection: "paste"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewFiller(&Layout{Name: "empty"}, Options{}, zap.NewNop())
	assert.Error(t, err)
}
