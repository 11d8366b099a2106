package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/autofill"
	"github.com/xkilldash9x/vfs-autofill/internal/browser"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
	"github.com/xkilldash9x/vfs-autofill/internal/humanoid"
	"github.com/xkilldash9x/vfs-autofill/internal/observability"
	"github.com/xkilldash9x/vfs-autofill/internal/reporting"
)

// ErrPartialFill is returned when at least one field could not be filled.
var ErrPartialFill = errors.New("form partially filled")

// newDriver is replaced in tests.
var newDriver = browser.NewDriver

type fillOptions struct {
	profileRef string
	url        string
	htmlFile   string
	htmlOut    string
	output     string
	format     string
	force      bool
}

func newFillCmd() *cobra.Command {
	var opts fillOptions
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the application form with a saved profile",
		Long: `Fill the VFS Global application form with a saved profile.

The form is opened in a browser at --url (or attached to, when
--remote-url points at a running Chrome that already shows it). With
--html the fill runs offline against a saved copy of the page, which
checks the layout's locators without touching the live site.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			return runFill(cmd, cfg, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.profileRef, "profile", "p", "", "profile id or 1-based position (default: the only saved profile)")
	fs.StringVar(&opts.url, "url", "", "address of the application form")
	fs.StringVar(&opts.htmlFile, "html", "", "fill a saved HTML page offline instead of a live browser")
	fs.StringVar(&opts.htmlOut, "html-out", "", "with --html, write the filled document here")
	fs.StringVarP(&opts.output, "output", "o", "", "report file (default stdout)")
	fs.StringVar(&opts.format, "format", reporting.FormatText, "report format: text or json")
	fs.BoolVar(&opts.force, "force", false, "fill pages outside fill.allowed_hosts")

	fs.String("driver", "", "browser driver: cdp or playwright")
	fs.String("remote-url", "", "DevTools URL of a running Chrome to attach to")
	fs.Bool("headless", false, "run the launched browser headless")
	fs.String("layout", "", "built-in field layout")
	fs.String("layout-file", "", "YAML field layout file")
	fs.String("injection", "", "override the layout's injection mode: keystroke or direct")
	bindFlag(cmd, "driver", "browser.driver")
	bindFlag(cmd, "remote-url", "browser.remote_url")
	bindFlag(cmd, "headless", "browser.headless")
	bindFlag(cmd, "layout", "fill.layout")
	bindFlag(cmd, "layout-file", "fill.layout_file")
	bindFlag(cmd, "injection", "fill.injection")
	return cmd
}

func runFill(cmd *cobra.Command, cfg *config.Config, opts fillOptions) error {
	ctx := cmd.Context()
	logger := observability.GetLogger().Named("fill")

	if (opts.url == "") == (opts.htmlFile == "") {
		return errors.New("exactly one of --url or --html is required")
	}
	if opts.htmlOut != "" && opts.htmlFile == "" {
		return errors.New("--html-out needs --html")
	}
	if opts.url != "" && !opts.force {
		if err := checkHost(opts.url, cfg.Fill.AllowedHosts); err != nil {
			return err
		}
	}

	reporter, err := reporting.New(opts.format, opts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer reporter.Close()

	p, err := selectProfile(cmd, opts.profileRef)
	if err != nil {
		return err
	}
	filler, err := newFiller(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Filling form",
		zap.String("profile", p.ProfileName),
		zap.String("layout", filler.Layout().Name),
		zap.String("url", opts.url),
		zap.String("html", opts.htmlFile),
	)

	var report *schemas.FillReport
	if opts.htmlFile != "" {
		report, err = fillOffline(ctx, filler, p, opts)
	} else {
		report, err = fillLive(ctx, cmd, cfg, filler, p, opts, logger)
	}
	if report != nil {
		if werr := reporter.Write(report); werr != nil {
			logger.Error("Failed to write fill report", zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}
	if !report.Success {
		return fmt.Errorf("%w: %s", ErrPartialFill, strings.Join(report.Failed, ", "))
	}
	return nil
}

// selectProfile resolves ref, or picks the only saved profile when ref is empty.
func selectProfile(cmd *cobra.Command, ref string) (schemas.Profile, error) {
	svc, closeFn, err := openProfiles(cmd)
	if err != nil {
		return schemas.Profile{}, err
	}
	defer closeFn()

	if ref == "" {
		profiles, err := svc.List(cmd.Context())
		if err != nil {
			return schemas.Profile{}, err
		}
		switch len(profiles) {
		case 0:
			return schemas.Profile{}, errors.New("no profiles saved; add one with 'vfs-autofill profile add'")
		case 1:
			return profiles[0], nil
		default:
			return schemas.Profile{}, fmt.Errorf("%d profiles saved; choose one with --profile", len(profiles))
		}
	}
	p, _, err := svc.Resolve(cmd.Context(), ref)
	return p, err
}

func newFiller(cfg *config.Config, logger *zap.Logger) (*autofill.Filler, error) {
	layout, err := autofill.ResolveLayout(cfg.Fill.Layout, cfg.Fill.LayoutFile)
	if err != nil {
		return nil, err
	}
	return autofill.NewFiller(layout, autofill.Options{
		Injection:      autofill.Mode(cfg.Fill.Injection),
		OverlayTimeout: cfg.Fill.OverlayTimeout,
		PollInterval:   cfg.Fill.PollInterval,
		Pacer:          humanoid.New(cfg.Browser.Humanoid),
	}, logger)
}

func fillOffline(ctx context.Context, filler *autofill.Filler, p schemas.Profile, opts fillOptions) (*schemas.FillReport, error) {
	f, err := os.Open(opts.htmlFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", opts.htmlFile, err)
	}
	doc, err := dom.NewDocument(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	report, err := filler.Fill(ctx, doc, p)
	if err != nil {
		return report, err
	}
	if opts.htmlOut != "" {
		html, err := doc.HTML()
		if err != nil {
			return report, err
		}
		if err := os.WriteFile(opts.htmlOut, []byte(html), 0o600); err != nil {
			return report, fmt.Errorf("failed to write %s: %w", opts.htmlOut, err)
		}
	}
	return report, nil
}

func fillLive(ctx context.Context, cmd *cobra.Command, cfg *config.Config, filler *autofill.Filler, p schemas.Profile, opts fillOptions, logger *zap.Logger) (*schemas.FillReport, error) {
	driver, err := newDriver(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	tab, err := driver.Open(ctx, opts.url)
	if err != nil {
		return nil, err
	}
	// An attached tab may have moved on from the requested address.
	if !opts.force {
		current, err := tab.URL(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read page address: %w", err)
		}
		if err := checkHost(current, cfg.Fill.AllowedHosts); err != nil {
			return nil, err
		}
	}

	report, err := filler.Fill(ctx, tab.Page(), p)
	if err != nil || !cfg.Browser.KeepOpen {
		return report, err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\nReview the form in the browser and submit it yourself. Press Ctrl+C to close.\n", reporting.Summary(report))
	<-ctx.Done()
	return report, nil
}

// checkHost accepts rawURL when its host contains one of allowed.
func checkHost(rawURL string, allowed []string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid page address %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	for _, a := range allowed {
		if a != "" && strings.Contains(host, strings.ToLower(a)) {
			return nil
		}
	}
	return fmt.Errorf("%s is not a supported VFS Global page (allowed hosts: %s); use --force to fill it anyway",
		host, strings.Join(allowed, ", "))
}
