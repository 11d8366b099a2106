package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

// Manager owns one Chrome instance, either launched by chromedp or reached
// through BrowserConfig.RemoteURL, and the tabs opened in it.
type Manager struct {
	cfg     config.BrowserConfig
	persona schemas.Persona
	logger  *zap.Logger
	remote  bool

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	tabs   []*Tab
	closed bool
}

// NewManager launches or connects to the browser. ctx only supplies values;
// the browser lives until Close.
func NewManager(ctx context.Context, cfg config.BrowserConfig, persona schemas.Persona, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		cfg:     cfg,
		persona: persona,
		logger:  logger.Named("cdp_manager"),
		remote:  cfg.RemoteURL != "",
	}

	base := Detach(ctx)
	if m.remote {
		m.logger.Info("Connecting to running browser.", zap.String("remote_url", cfg.RemoteURL))
		m.allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(base, cfg.RemoteURL)
	} else {
		m.logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(base, AllocatorOptions(cfg, persona)...)
	}

	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Debugf),
	)
	// The first Run starts the browser and must not carry a deadline.
	if err := chromedp.Run(m.browserCtx); err != nil {
		m.browserCancel()
		m.allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return m, nil
}

// Open returns a tab showing rawURL. Against a remote browser a tab already
// on that page is attached as is; otherwise a new tab navigates there.
func (m *Manager) Open(ctx context.Context, rawURL string) (*Tab, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager is closed")
	}
	m.mu.Unlock()

	var opts []chromedp.ContextOption
	attached := false
	if m.remote {
		id, err := m.findTarget(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if id != "" {
			opts = append(opts, chromedp.WithTargetID(id))
			attached = true
		}
	}

	tabCtx, cancel := chromedp.NewContext(m.browserCtx, opts...)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	tab, err := newTab(tabCtx, cancel, attached, m.logger)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := m.prepare(ctx, tab, rawURL); err != nil {
		tab.Close()
		return nil, err
	}

	m.mu.Lock()
	m.tabs = append(m.tabs, tab)
	m.mu.Unlock()
	m.logger.Info("Tab ready.", zap.String("url", rawURL), zap.Bool("attached", attached))
	return tab, nil
}

func (m *Manager) prepare(ctx context.Context, tab *Tab, rawURL string) error {
	if !m.remote {
		if err := tab.run(ctx, PersonaTasks(m.persona, m.logger)); err != nil {
			return fmt.Errorf("failed to apply persona: %w", err)
		}
	}
	if err := tab.installPersistent(ctx); err != nil {
		return err
	}
	if tab.attached {
		return tab.Install(ctx)
	}
	return tab.Navigate(ctx, rawURL, m.cfg.NavigationTimeout, m.cfg.PostLoadWait)
}

// findTarget looks for an open page at rawURL: a URL prefix match wins over
// a page on the same host.
func (m *Manager) findTarget(ctx context.Context, rawURL string) (target.ID, error) {
	runCtx, cancel := CombineContext(m.browserCtx, ctx)
	defer cancel()
	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return "", fmt.Errorf("failed to list browser targets: %w", err)
	}

	want, _ := url.Parse(rawURL)
	var sameHost target.ID
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		if strings.HasPrefix(info.URL, rawURL) {
			return info.TargetID, nil
		}
		if got, err := url.Parse(info.URL); err == nil && want != nil && want.Host != "" &&
			strings.EqualFold(got.Host, want.Host) && sameHost == "" {
			sameHost = info.TargetID
		}
	}
	return sameHost, nil
}

// Close shuts the browser down, or only disconnects from a remote one.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	tabs := m.tabs
	m.tabs = nil
	m.mu.Unlock()

	for _, t := range tabs {
		t.Close()
	}

	var err error
	if !m.remote {
		if cerr := chromedp.Cancel(m.browserCtx); cerr != nil && cerr != context.Canceled {
			err = fmt.Errorf("failed to close browser: %w", cerr)
		}
	}
	m.browserCancel()
	m.allocCancel()
	m.logger.Info("Browser manager closed.")
	return err
}
