// Package browser opens the live page a form is filled in, through either
// chromedp or Playwright.
package browser

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/session"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

// Tab is an open page ready to be filled.
type Tab interface {
	Page() dom.Page
	// URL returns the address the page currently shows.
	URL(ctx context.Context) (string, error)
}

// Driver opens tabs in one browser.
type Driver interface {
	Open(ctx context.Context, url string) (Tab, error)
	Close() error
}

// NewDriver returns the driver cfg.Driver names.
func NewDriver(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Driver, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverCDP, "":
		m, err := session.NewManager(ctx, cfg, schemas.DefaultPersona, logger)
		if err != nil {
			return nil, err
		}
		return cdpDriver{m}, nil
	case config.DriverPlaywright:
		return playwrightDriver{NewManager(cfg, schemas.DefaultPersona, logger)}, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
}

type cdpDriver struct{ m *session.Manager }

func (d cdpDriver) Open(ctx context.Context, url string) (Tab, error) {
	tab, err := d.m.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func (d cdpDriver) Close() error { return d.m.Close() }

type playwrightDriver struct{ m *Manager }

func (d playwrightDriver) Open(ctx context.Context, url string) (Tab, error) {
	tab, err := d.m.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func (d playwrightDriver) Close() error { return d.m.Close() }
