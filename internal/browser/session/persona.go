package session

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// PersonaTasks emulates the persona in a tab the driver launched. Attached
// tabs are left as the user's browser presents them.
func PersonaTasks(p schemas.Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
		zap.String("timezone", p.Timezone),
	)

	var tasks chromedp.Tasks
	if p.UserAgent != "" {
		ua := emulation.SetUserAgentOverride(p.UserAgent).WithPlatform(p.Platform)
		if lang := acceptLanguage(p.Languages); lang != "" {
			ua = ua.WithAcceptLanguage(lang)
			tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": lang}))
		}
		tasks = append(tasks, ua)
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	if p.Width > 0 && p.Height > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(p.Width, p.Height))
	}
	return tasks
}

// acceptLanguage renders languages as an Accept-Language header with
// decreasing quality values.
func acceptLanguage(langs []string) string {
	parts := make([]string, 0, len(langs))
	for i, l := range langs {
		switch {
		case i == 0:
			parts = append(parts, l)
		case i < 9:
			parts = append(parts, fmt.Sprintf("%s;q=0.%d", l, 10-i))
		default:
			parts = append(parts, l+";q=0.1")
		}
	}
	return strings.Join(parts, ",")
}
