package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/shim"
)

// Tab is one browser tab. It implements shim.Runtime, and Page exposes it
// to the form filler.
type Tab struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	script   string
	attached bool
	page     *shim.Page
}

var _ shim.Runtime = (*Tab)(nil)

func newTab(ctx context.Context, cancel context.CancelFunc, attached bool, logger *zap.Logger) (*Tab, error) {
	script, err := shim.Script(dom.RefAttribute)
	if err != nil {
		return nil, fmt.Errorf("failed to build autofill helper: %w", err)
	}
	t := &Tab{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.Named("tab"),
		script:   script,
		attached: attached,
	}
	t.page = shim.NewPage(t, t.logger)
	return t, nil
}

// Page returns the tab as a dom.Page.
func (t *Tab) Page() dom.Page { return t.page }

// Attached reports whether the tab was already open in the user's browser.
func (t *Tab) Attached() bool { return t.attached }

// run executes actions in the tab, bounded by ctx.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (t *Tab) Evaluate(ctx context.Context, expression string, res interface{}) error {
	return t.run(ctx, chromedp.Evaluate(expression, res))
}

// Install evaluates the helper script in the current document.
func (t *Tab) Install(ctx context.Context) error {
	if err := t.Evaluate(ctx, t.script, nil); err != nil {
		return fmt.Errorf("could not install autofill helper: %w", err)
	}
	return nil
}

// installPersistent registers the helper for every document the tab loads.
func (t *Tab) installPersistent(ctx context.Context) error {
	var id page.ScriptIdentifier
	err := t.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		id, err = page.AddScriptToEvaluateOnNewDocument(t.script).Do(c)
		return err
	}))
	if err != nil {
		return fmt.Errorf("could not inject persistent script: %w", err)
	}
	t.logger.Debug("Injected persistent script.", zap.String("scriptID", string(id)))
	return nil
}

// Navigate loads rawURL, waits for the body and then settle, and makes sure
// the helper is present.
func (t *Tab) Navigate(ctx context.Context, rawURL string, timeout, settle time.Duration) error {
	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	t.logger.Info("Navigating.", zap.String("url", rawURL))
	if err := t.run(navCtx, chromedp.Navigate(rawURL), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}

	if settle > 0 {
		timer := time.NewTimer(settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.Install(ctx)
}

// URL returns the address the tab currently shows.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Close releases the tab's context. Tabs the driver opened are closed.
func (t *Tab) Close() {
	t.cancel()
}
