package autofill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

// DropdownState is a step of the dropdown selection sequence.
type DropdownState string

const (
	StateClosed            DropdownState = "closed"
	StateOpening           DropdownState = "opening"
	StateWaitingForOverlay DropdownState = "waiting_for_overlay"
	StateScanning          DropdownState = "scanning"
	StateSelected          DropdownState = "selected"
	StateClosedNoMatch     DropdownState = "closed_no_match"
	StateOverlayMissing    DropdownState = "overlay_missing"
)

// DropdownResult is the terminal state of one selection attempt.
type DropdownResult struct {
	State DropdownState
	// Option is the trimmed text of the option clicked.
	Option  string
	Waited  time.Duration
	Failure schemas.FailureKind
}

// DropdownDriver opens a mat-select style widget, waits for its floating
// overlay, and clicks the first option whose text matches.
type DropdownDriver struct {
	overlay   Overlay
	openEvent dom.EventClass
	timeout   time.Duration
	poll      time.Duration
	log       *zap.Logger
}

// NewDropdownDriver creates a driver that waits at most timeout for the
// overlay, checking every poll. Non-positive values take the defaults.
func NewDropdownDriver(overlay Overlay, openEvent dom.EventClass, timeout, poll time.Duration, logger *zap.Logger) *DropdownDriver {
	if timeout <= 0 {
		timeout = DefaultOverlayTimeout
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if poll > timeout {
		poll = timeout
	}
	return &DropdownDriver{
		overlay:   overlay,
		openEvent: openEvent,
		timeout:   timeout,
		poll:      poll,
		log:       logger.Named("dropdown"),
	}
}

// Select drives the widget behind ref to the option matching target.
// Missing overlays and unmatched options are results, not errors; errors
// come from the page or the context.
func (d *DropdownDriver) Select(ctx context.Context, page dom.Page, ref dom.Ref, target string) (DropdownResult, error) {
	log := d.log.With(zap.String("target", target))
	state := StateClosed
	transition := func(next DropdownState) {
		log.Debug("Dropdown transition", zap.String("from", string(state)), zap.String("to", string(next)))
		state = next
	}

	transition(StateOpening)
	if err := page.Click(ctx, ref); err != nil {
		return DropdownResult{State: state}, fmt.Errorf("open click: %w", err)
	}
	if err := page.Dispatch(ctx, ref, dom.Event{Type: "click", Class: d.openEvent, Bubbles: true}); err != nil {
		return DropdownResult{State: state}, fmt.Errorf("open click event: %w", err)
	}

	transition(StateWaitingForOverlay)
	start := time.Now()
	options, err := d.waitForOptions(ctx, page)
	waited := time.Since(start)
	if err != nil {
		return DropdownResult{State: state, Waited: waited}, err
	}
	if len(options) == 0 {
		transition(StateOverlayMissing)
		if err := d.dismiss(ctx, page); err != nil {
			return DropdownResult{State: state, Waited: waited}, err
		}
		return DropdownResult{State: state, Waited: waited, Failure: schemas.FailureOverlayMissing}, nil
	}

	transition(StateScanning)
	want := strings.ToUpper(target)
	for _, opt := range options {
		text := strings.ToUpper(opt.TrimmedText())
		if text == want || strings.Contains(text, want) {
			if err := page.Click(ctx, opt.Ref); err != nil {
				return DropdownResult{State: state, Waited: waited}, fmt.Errorf("option click: %w", err)
			}
			transition(StateSelected)
			return DropdownResult{State: state, Option: opt.TrimmedText(), Waited: waited}, nil
		}
	}

	transition(StateClosedNoMatch)
	if err := d.dismiss(ctx, page); err != nil {
		return DropdownResult{State: state, Waited: waited}, err
	}
	return DropdownResult{State: state, Waited: waited, Failure: schemas.FailureOptionNotFound}, nil
}

// waitForOptions polls the overlay until it holds options or the deadline
// passes. An empty result means the overlay never rendered.
func (d *DropdownDriver) waitForOptions(ctx context.Context, page dom.Page) ([]dom.Element, error) {
	selector := d.overlay.Container + " " + d.overlay.Option
	deadline := time.NewTimer(d.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		options, err := page.Query(ctx, selector)
		if err != nil {
			return nil, fmt.Errorf("overlay query: %w", err)
		}
		if len(options) > 0 {
			return options, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			options, err := page.Query(ctx, selector)
			if err != nil {
				return nil, fmt.Errorf("overlay query: %w", err)
			}
			return options, nil
		case <-ticker.C:
		}
	}
}

// dismiss clicks the overlay backdrop when there is one.
func (d *DropdownDriver) dismiss(ctx context.Context, page dom.Page) error {
	backdrop, ok, err := dom.QueryFirst(ctx, page, d.overlay.Backdrop)
	if err != nil {
		return fmt.Errorf("backdrop query: %w", err)
	}
	if !ok {
		return nil
	}
	if err := page.Click(ctx, backdrop.Ref); err != nil {
		return fmt.Errorf("backdrop click: %w", err)
	}
	return nil
}
