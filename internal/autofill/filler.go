// Package autofill fills the visa application form from a profile: it
// resolves each field through the layout's locators, injects plain values,
// drives the dropdown widgets, and reports the outcome of every field.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

const (
	DefaultOverlayTimeout = 1500 * time.Millisecond
	DefaultPollInterval   = 50 * time.Millisecond
)

// Options tune a Filler beyond its layout.
type Options struct {
	// Injection overrides the layout's injection mode when set.
	Injection      Mode
	OverlayTimeout time.Duration
	PollInterval   time.Duration
	Pacer          Pacer
}

// Filler runs one layout against pages. It holds no per-page state and can
// be reused.
type Filler struct {
	layout   *Layout
	injector *Injector
	dropdown *DropdownDriver
	log      *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFiller validates layout and builds a filler for it.
func NewFiller(layout *Layout, opts Options, logger *zap.Logger) (*Filler, error) {
	if layout == nil {
		return nil, errors.New("layout is nil")
	}
	layout.applyDefaults()
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	mode := layout.Injection
	if opts.Injection != "" {
		mode = opts.Injection
	}
	if mode != ModeKeystroke && mode != ModeDirect {
		return nil, fmt.Errorf("unknown injection mode %q", mode)
	}
	if opts.OverlayTimeout <= 0 {
		opts.OverlayTimeout = DefaultOverlayTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	log := logger.Named("filler").With(zap.String("layout", layout.Name))
	return &Filler{
		layout:   layout,
		injector: NewInjector(mode, opts.Pacer, log),
		dropdown: NewDropdownDriver(layout.Overlay, layout.OpenEvent, opts.OverlayTimeout, opts.PollInterval, log),
		log:      log,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Layout returns the layout the filler runs.
func (f *Filler) Layout() *Layout { return f.layout }

// Fill fills every field of the layout on page from p. Field failures are
// recorded in the report and never stop the run. When ctx ends mid-run
// the fields not yet attempted are reported failed and the context error
// is returned with the partial report.
func (f *Filler) Fill(ctx context.Context, page dom.Page, p schemas.Profile) (*schemas.FillReport, error) {
	report := schemas.NewFillReport(p.ID, f.layout.Name)
	log := f.log.With(zap.String("profile_id", p.ID))
	start := f.now()

	inputs := f.layout.Inputs()
	dropdowns := f.layout.Dropdowns()
	timing := f.layout.Timing

	log.Info("Starting form fill", zap.Int("inputs", len(inputs)), zap.Int("dropdowns", len(dropdowns)))

	pending := append(append([]Field{}, inputs...), dropdowns...)
	abort := func(err error) (*schemas.FillReport, error) {
		for _, field := range pending {
			report.Record(schemas.FieldOutcome{
				Field:   field.Name,
				Kind:    field.Kind,
				Failure: schemas.FailureCanceled,
				Detail:  err.Error(),
			})
		}
		report.Finish()
		log.Warn("Form fill interrupted", zap.Error(err), zap.Int("unattempted", len(pending)))
		return report, err
	}

	for i, field := range inputs {
		if err := f.waitUntil(ctx, start.Add(time.Duration(i)*timing.FieldStagger)); err != nil {
			return abort(err)
		}
		outcome, err := f.fillInput(ctx, page, p, field)
		if err != nil {
			return abort(err)
		}
		pending = pending[1:]
		f.record(log, report, outcome)
	}

	dropdownStart := start.Add(timing.DropdownDelay + time.Duration(len(inputs))*timing.DropdownDelayPerInput)
	var prevDone time.Time
	for i, field := range dropdowns {
		at := dropdownStart.Add(time.Duration(i) * timing.DropdownStagger)
		// The previous overlay needs a full stagger to close, however long
		// that dropdown took.
		if !prevDone.IsZero() && prevDone.Add(timing.DropdownStagger).After(at) {
			at = prevDone.Add(timing.DropdownStagger)
		}
		if err := f.waitUntil(ctx, at); err != nil {
			return abort(err)
		}
		outcome, err := f.fillDropdown(ctx, page, p, field)
		if err != nil {
			return abort(err)
		}
		prevDone = f.now()
		pending = pending[1:]
		f.record(log, report, outcome)
	}

	report.Finish()
	log.Info("Form fill complete",
		zap.Bool("success", report.Success),
		zap.Int("filled", len(report.Filled)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (f *Filler) fillInput(ctx context.Context, page dom.Page, p schemas.Profile, field Field) (schemas.FieldOutcome, error) {
	started := f.now()
	outcome := schemas.FieldOutcome{Field: field.Name, Kind: field.Kind}
	value := fieldValue(p, field)

	el, loc, ok, err := Locate(ctx, page, field.Locators, f.log)
	if err != nil {
		return outcome, err
	}
	if !ok {
		outcome.Failure = schemas.FailureNotFound
		outcome.Elapsed = f.now().Sub(started)
		return outcome, nil
	}
	outcome.Strategy = loc.String()

	matched, got, err := f.injector.Inject(ctx, page, el.Ref, value)
	outcome.Elapsed = f.now().Sub(started)
	switch {
	case err != nil && ctx.Err() != nil:
		return outcome, ctx.Err()
	case err != nil:
		outcome.Failure = schemas.FailureDriver
		outcome.Detail = err.Error()
	case !matched:
		outcome.Failure = schemas.FailureValueMismatch
		outcome.Detail = fmt.Sprintf("read back %q", got)
	default:
		outcome.Filled = true
	}
	return outcome, nil
}

func (f *Filler) fillDropdown(ctx context.Context, page dom.Page, p schemas.Profile, field Field) (schemas.FieldOutcome, error) {
	started := f.now()
	outcome := schemas.FieldOutcome{Field: field.Name, Kind: field.Kind}
	value := fieldValue(p, field)

	el, loc, ok, err := Locate(ctx, page, field.Locators, f.log)
	if err != nil {
		return outcome, err
	}
	if !ok {
		outcome.Failure = schemas.FailureNotFound
		outcome.Elapsed = f.now().Sub(started)
		return outcome, nil
	}
	outcome.Strategy = loc.String()

	res, err := f.dropdown.Select(ctx, page, el.Ref, value)
	outcome.Elapsed = f.now().Sub(started)
	switch {
	case err != nil && ctx.Err() != nil:
		return outcome, ctx.Err()
	case err != nil:
		outcome.Failure = schemas.FailureDriver
		outcome.Detail = fmt.Sprintf("%s: %v", res.State, err)
	case res.Failure != schemas.FailureNone:
		outcome.Failure = res.Failure
		outcome.Detail = fmt.Sprintf("no option matched %q after %s", value, res.Waited.Round(time.Millisecond))
		if res.Failure == schemas.FailureOverlayMissing {
			outcome.Detail = fmt.Sprintf("overlay did not render within %s", f.dropdown.timeout)
		}
	default:
		outcome.Filled = true
		outcome.Detail = fmt.Sprintf("selected %q", res.Option)
	}
	return outcome, nil
}

func (f *Filler) record(log *zap.Logger, report *schemas.FillReport, o schemas.FieldOutcome) {
	report.Record(o)
	if o.Filled {
		log.Info("Filled field", zap.String("field", o.Field), zap.String("strategy", o.Strategy))
		return
	}
	log.Warn("Could not fill field",
		zap.String("field", o.Field),
		zap.String("failure", string(o.Failure)),
		zap.String("detail", o.Detail))
}

// waitUntil sleeps until t, returning at once if t has passed.
func (f *Filler) waitUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := t.Sub(f.now())
	if d <= 0 {
		return nil
	}
	return f.sleep(ctx, d)
}

func fieldValue(p schemas.Profile, field Field) string {
	value, _ := p.Value(field.Key)
	if value == "" {
		value = field.Default
	}
	return value
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
