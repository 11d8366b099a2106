package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/shim"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	playwrightInstallTimeout = 5 * time.Minute
	playwrightLaunchTimeout  = 60 * time.Second
)

// Manager handles the browser process lifecycle using Playwright.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *zap.Logger
	cfg     config.BrowserConfig
	persona schemas.Persona

	mu     sync.Mutex
	tabs   []*PlaywrightTab
	closed bool

	// Initialization is deferred until the first tab is requested.
	initOnce sync.Once
	initErr  error
}

// NewManager creates a Playwright manager. Nothing is launched yet.
func NewManager(cfg config.BrowserConfig, persona schemas.Persona, logger *zap.Logger) *Manager {
	m := &Manager{
		logger:  logger.Named("playwright_manager"),
		cfg:     cfg,
		persona: persona,
	}
	m.logger.Debug("Playwright manager created (initialization deferred).")
	return m
}

// initialize installs the driver if needed, starts it and launches Chromium.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Initializing Playwright and launching browser...")

		if err := m.ensureInstallation(ctx); err != nil {
			m.initErr = err
			return
		}

		pw, err := playwright.Run()
		if err != nil {
			m.initErr = fmt.Errorf("failed to start playwright driver: %w", err)
			return
		}
		m.pw = pw

		browser, err := pw.Chromium.Launch(launchOptions(m.cfg))
		if err != nil {
			pw.Stop()
			m.initErr = fmt.Errorf("failed to launch browser instance: %w", err)
			return
		}
		m.browser = browser

		m.logger.Info("Playwright browser launched.", zap.String("browser_version", browser.Version()))
	})
	return m.initErr
}

func (m *Manager) ensureInstallation(ctx context.Context) error {
	m.logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, playwrightInstallTimeout)
	defer cancel()

	// Install blocks without a context.
	errCh := make(chan error, 1)
	go func() {
		opts := &playwright.RunOptions{Browsers: []string{"chromium"}}
		if err := playwright.Install(opts); err != nil {
			errCh <- fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

func launchOptions(cfg config.BrowserConfig) playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Timeout:  playwright.Float(float64(playwrightLaunchTimeout.Milliseconds())),
		Args:     append([]string{"--disable-dev-shm-usage", "--disable-popup-blocking"}, cfg.Args...),
	}
	if cfg.Headless {
		opts.Args = append(opts.Args, "--no-sandbox")
	}
	if cfg.ExecPath != "" {
		opts.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	return opts
}

func contextOptions(cfg config.BrowserConfig, p schemas.Persona) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreTLSErrors),
	}
	if p.UserAgent != "" {
		opts.UserAgent = playwright.String(p.UserAgent)
	}
	if p.Locale != "" {
		opts.Locale = playwright.String(p.Locale)
	}
	if p.Timezone != "" {
		opts.TimezoneId = playwright.String(p.Timezone)
	}
	if p.Width > 0 && p.Height > 0 {
		opts.Viewport = &playwright.Size{Width: int(p.Width), Height: int(p.Height)}
	}
	return opts
}

// Open creates a browser context with the persona, installs the autofill
// helper and navigates to rawURL.
func (m *Manager) Open(ctx context.Context, rawURL string) (*PlaywrightTab, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("browser manager is closed")
	}
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	script, err := shim.Script(dom.RefAttribute)
	if err != nil {
		return nil, fmt.Errorf("failed to build autofill helper: %w", err)
	}

	bctx, err := m.browser.NewContext(contextOptions(m.cfg, m.persona))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
		bctx.Close()
		return nil, fmt.Errorf("could not inject persistent script: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	tab := &PlaywrightTab{
		bctx:   bctx,
		page:   page,
		script: script,
		logger: m.logger.Named("tab"),
	}
	tab.dom = shim.NewPage(tab, tab.logger)

	if err := tab.Navigate(ctx, rawURL, m.cfg.NavigationTimeout, m.cfg.PostLoadWait); err != nil {
		tab.Close()
		return nil, err
	}

	m.mu.Lock()
	m.tabs = append(m.tabs, tab)
	m.mu.Unlock()
	return tab, nil
}

// Close closes every tab, the browser and the driver.
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

	if m.pw == nil {
		m.logger.Debug("Manager not initialized, nothing to shut down.")
		return nil
	}
	var g errgroup.Group
	for _, t := range tabs {
		g.Go(t.Close)
	}
	if err := g.Wait(); err != nil {
		m.logger.Debug("Failed to close browser context.", zap.Error(err))
	}

	var shutdownErr error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.logger.Error("Failed to close browser instance.", zap.Error(err))
			shutdownErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if err := m.pw.Stop(); err != nil {
		m.logger.Error("Failed to stop Playwright driver.", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
		}
	}
	m.logger.Info("Playwright manager shutdown complete.")
	return shutdownErr
}

// PlaywrightTab is one page in its own browser context. It implements
// shim.Runtime.
type PlaywrightTab struct {
	bctx   playwright.BrowserContext
	page   playwright.Page
	script string
	logger *zap.Logger
	dom    *shim.Page
}

var _ shim.Runtime = (*PlaywrightTab)(nil)

// Page returns the tab as a dom.Page.
func (t *PlaywrightTab) Page() dom.Page { return t.dom }

// URL returns the page's current address.
func (t *PlaywrightTab) URL(ctx context.Context) (string, error) {
	return t.page.URL(), ctx.Err()
}

// Evaluate runs expression and decodes its result into res. Playwright
// calls are not context aware, so ctx only bounds the wait.
func (t *PlaywrightTab) Evaluate(ctx context.Context, expression string, res interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type result struct {
		v   interface{}
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := t.page.Evaluate(expression)
		ch <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		return decodeResult(r.v, res)
	}
}

// decodeResult converts Playwright's generic result into res.
func decodeResult(v interface{}, res interface{}) error {
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("failed to decode evaluation result: %w", err)
	}
	return nil
}

// Install evaluates the helper script in the current document.
func (t *PlaywrightTab) Install(ctx context.Context) error {
	if err := t.Evaluate(ctx, t.script, nil); err != nil {
		return fmt.Errorf("could not install autofill helper: %w", err)
	}
	return nil
}

// Navigate loads rawURL, waits for the load event and then settle.
func (t *PlaywrightTab) Navigate(ctx context.Context, rawURL string, timeout, settle time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.logger.Info("Navigating.", zap.String("url", rawURL))
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	if _, err := t.page.Goto(rawURL, opts); err != nil {
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

// Close closes the page's browser context.
func (t *PlaywrightTab) Close() error {
	return t.bctx.Close()
}
