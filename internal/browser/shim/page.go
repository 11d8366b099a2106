package shim

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

// Runtime evaluates expressions in a live page. Both browser drivers
// implement it.
type Runtime interface {
	// Evaluate runs expression in the page's main frame and decodes its
	// JSON result into res.
	Evaluate(ctx context.Context, expression string, res interface{}) error
	// Install (re)installs the helper script in the current document.
	Install(ctx context.Context) error
}

// Page implements dom.Page by calling the helper script through a Runtime.
type Page struct {
	rt     Runtime
	logger *zap.Logger
}

var _ dom.Page = (*Page)(nil)

// NewPage wraps rt. The helper script must already be installed, or the
// first call installs it.
func NewPage(rt Runtime, logger *zap.Logger) *Page {
	return &Page{rt: rt, logger: logger.Named("shim_page")}
}

// call evaluates helper fn once, reinstalling the helper and retrying when
// the document lost it (a reload or a client side navigation).
func (p *Page) call(ctx context.Context, res interface{}, fn string, args ...interface{}) error {
	expr, err := Call(fn, args...)
	if err != nil {
		return err
	}

	err = p.rt.Evaluate(ctx, expr, res)
	if err != nil && isMissingHelper(err) && ctx.Err() == nil {
		p.logger.Debug("Autofill helper missing from the document, reinstalling.", zap.String("fn", fn))
		if ierr := p.rt.Install(ctx); ierr != nil {
			return fmt.Errorf("failed to reinstall autofill helper: %w", ierr)
		}
		err = p.rt.Evaluate(ctx, expr, res)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if strings.Contains(err.Error(), "stale ref") {
		return fmt.Errorf("%s: %w", fn, dom.ErrStaleRef)
	}
	return fmt.Errorf("autofill helper %s failed: %w", fn, err)
}

func isMissingHelper(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "__vfsAutofill") ||
		strings.Contains(msg, "Cannot read properties of undefined") ||
		strings.Contains(msg, "is undefined")
}

func (p *Page) Query(ctx context.Context, selector string) ([]dom.Element, error) {
	var out []dom.Element
	if err := p.call(ctx, &out, "query", selector); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Page) QueryWithin(ctx context.Context, scope dom.Ref, selector string) ([]dom.Element, error) {
	var out []dom.Element
	if err := p.call(ctx, &out, "queryWithin", scope, selector); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Page) Closest(ctx context.Context, ref dom.Ref, selector string) (dom.Element, bool, error) {
	var out []dom.Element
	if err := p.call(ctx, &out, "closest", ref, selector); err != nil {
		return dom.Element{}, false, err
	}
	if len(out) == 0 {
		return dom.Element{}, false, nil
	}
	return out[0], true, nil
}

func (p *Page) Value(ctx context.Context, ref dom.Ref) (string, error) {
	var v string
	if err := p.call(ctx, &v, "value", ref); err != nil {
		return "", err
	}
	return v, nil
}

func (p *Page) SetValue(ctx context.Context, ref dom.Ref, value string) error {
	var ok bool
	return p.call(ctx, &ok, "setValue", ref, value)
}

func (p *Page) Focus(ctx context.Context, ref dom.Ref) error {
	var ok bool
	return p.call(ctx, &ok, "focus", ref)
}

func (p *Page) Click(ctx context.Context, ref dom.Ref) error {
	var ok bool
	return p.call(ctx, &ok, "click", ref)
}

// Dispatch fires ev on the element. A listener canceling the event is not
// an error.
func (p *Page) Dispatch(ctx context.Context, ref dom.Ref, ev dom.Event) error {
	var delivered bool
	return p.call(ctx, &delivered, "dispatch", ref, ev)
}
