// Package session drives a Chrome tab over the DevTools protocol with
// chromedp and exposes it to the form filler as a dom.Page.
package session

import (
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/config"
)

// AllocatorOptions builds the flags for a Chrome process launched by the
// cdp driver.
func AllocatorOptions(cfg config.BrowserConfig, persona schemas.Persona) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if persona.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(persona.UserAgent))
	}
	if persona.Width > 0 && persona.Height > 0 {
		opts = append(opts, chromedp.WindowSize(int(persona.Width), int(persona.Height)))
	}
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	return opts
}

type flag struct {
	name  string
	value interface{}
}

// allocatorFlags lists the command line switches passed with
// chromedp.Flag, in order.
func allocatorFlags(cfg config.BrowserConfig) []flag {
	flags := []flag{
		{"disable-dev-shm-usage", true},
		{"disable-popup-blocking", true},
		{"disable-background-timer-throttling", true},
		{"disable-renderer-backgrounding", true},
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			flag{"ignore-certificate-errors", true},
			flag{"allow-insecure-localhost", true},
		)
	}

	// key=value args become string flags, bare args boolean ones.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		if key, value, found := strings.Cut(arg, "="); found {
			flags = append(flags, flag{key, value})
		} else {
			flags = append(flags, flag{arg, true})
		}
	}
	return flags
}
