package autofill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

// Pacer spaces out typed characters. *humanoid.Cadence implements it.
type Pacer interface {
	Pause(ctx context.Context, runes []rune, index int) error
}

// Injector writes values into inputs and fires the events a reactive form
// binding listens for.
type Injector struct {
	mode  Mode
	pacer Pacer
	log   *zap.Logger
}

// NewInjector creates an injector for mode. pacer may be nil.
func NewInjector(mode Mode, pacer Pacer, logger *zap.Logger) *Injector {
	return &Injector{mode: mode, pacer: pacer, log: logger.Named("injector")}
}

func event(typ string, class dom.EventClass, cancelable bool) dom.Event {
	return dom.Event{Type: typ, Class: class, Bubbles: true, Cancelable: cancelable}
}

// Inject sets value on the element behind ref and reports whether the
// element's value reads back unchanged. A false result with a nil error is
// a value mismatch; errors come from the page itself.
func (in *Injector) Inject(ctx context.Context, page dom.Page, ref dom.Ref, value string) (bool, string, error) {
	var err error
	switch in.mode {
	case ModeDirect:
		err = in.direct(ctx, page, ref, value)
	default:
		err = in.keystroke(ctx, page, ref, value)
	}
	if err != nil {
		return false, "", err
	}

	got, err := page.Value(ctx, ref)
	if err != nil {
		return false, "", fmt.Errorf("failed to read back value: %w", err)
	}
	if got != value {
		in.log.Debug("Value did not read back", zap.String("want", value), zap.String("got", got))
	}
	return got == value, got, nil
}

// keystroke types value one character at a time, firing an input event
// after each, then the closing change, keyboard and InputEvent sequence.
func (in *Injector) keystroke(ctx context.Context, page dom.Page, ref dom.Ref, value string) error {
	if err := page.Focus(ctx, ref); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	if err := page.SetValue(ctx, ref, ""); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	runes := []rune(value)
	for i := range runes {
		if in.pacer != nil {
			if err := in.pacer.Pause(ctx, runes, i); err != nil {
				return err
			}
		}
		if err := page.SetValue(ctx, ref, string(runes[:i+1])); err != nil {
			return fmt.Errorf("type character %d: %w", i+1, err)
		}
		if err := page.Dispatch(ctx, ref, event("input", dom.ClassEvent, true)); err != nil {
			return fmt.Errorf("input event: %w", err)
		}
	}

	closing := []dom.Event{
		event("input", dom.ClassEvent, false),
		event("change", dom.ClassEvent, false),
		event("blur", dom.ClassEvent, false),
		event("keydown", dom.ClassKeyboard, false),
		event("keyup", dom.ClassKeyboard, false),
		event("keypress", dom.ClassKeyboard, false),
		{Type: "input", Class: dom.ClassInput, Bubbles: true, Cancelable: true, InputType: "insertText", Data: value},
	}
	return dispatchAll(ctx, page, ref, closing)
}

// direct assigns value in one step and fires the change notifications,
// ending with the ngModelChange event Angular's two-way binding observes.
func (in *Injector) direct(ctx context.Context, page dom.Page, ref dom.Ref, value string) error {
	if err := page.Focus(ctx, ref); err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	if err := page.SetValue(ctx, ref, ""); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := page.SetValue(ctx, ref, value); err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return dispatchAll(ctx, page, ref, []dom.Event{
		event("input", dom.ClassEvent, false),
		event("change", dom.ClassEvent, false),
		event("blur", dom.ClassEvent, false),
		event("keyup", dom.ClassKeyboard, false),
		event("ngModelChange", dom.ClassEvent, false),
	})
}

func dispatchAll(ctx context.Context, page dom.Page, ref dom.Ref, events []dom.Event) error {
	for _, ev := range events {
		if err := page.Dispatch(ctx, ref, ev); err != nil {
			return fmt.Errorf("%s event: %w", ev.Type, err)
		}
	}
	return nil
}
