package autofill

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

// Locate evaluates locators in order and returns the first element found
// along with the strategy that found it. A strategy that errors is logged
// and skipped; only context cancellation stops the search early.
func Locate(ctx context.Context, page dom.Page, locators []Locator, logger *zap.Logger) (dom.Element, Locator, bool, error) {
	for _, loc := range locators {
		el, ok, err := locateOne(ctx, page, loc)
		if err != nil {
			if ctx.Err() != nil {
				return dom.Element{}, Locator{}, false, ctx.Err()
			}
			logger.Warn("Locator strategy failed", zap.Stringer("strategy", loc), zap.Error(err))
			continue
		}
		if ok {
			return el, loc, true, nil
		}
	}
	return dom.Element{}, Locator{}, false, nil
}

func locateOne(ctx context.Context, page dom.Page, loc Locator) (dom.Element, bool, error) {
	switch loc.Type {
	case StrategySelector:
		return dom.QueryFirst(ctx, page, loc.Selector)
	case StrategyPlaceholder:
		return matchAttr(ctx, page, loc.Selector, "placeholder", loc.Text, !loc.Substring)
	case StrategyID:
		return matchAttr(ctx, page, loc.Selector, "id", loc.Text, !loc.Substring)
	case StrategyLabel:
		return byLabel(ctx, page, loc)
	case StrategyNth:
		els, err := page.Query(ctx, loc.Selector)
		if err != nil || loc.Index < 0 || loc.Index >= len(els) {
			return dom.Element{}, false, err
		}
		return els[loc.Index], true, nil
	}
	return dom.Element{}, false, nil
}

// matchAttr returns the first case-insensitive substring match among the
// candidates. With exactFirst an exact attribute match anywhere wins.
func matchAttr(ctx context.Context, page dom.Page, selector, attr, text string, exactFirst bool) (dom.Element, bool, error) {
	if selector == "" {
		selector = defaultInputTarget
	}
	candidates, err := page.Query(ctx, selector)
	if err != nil {
		return dom.Element{}, false, err
	}
	for _, el := range candidates {
		if v, ok := el.Attrs[attr]; ok && exactFirst && v == text {
			return el, true, nil
		}
	}
	needle := strings.ToLower(text)
	for _, el := range candidates {
		if v, ok := el.Attrs[attr]; ok && strings.Contains(strings.ToLower(v), needle) {
			return el, true, nil
		}
	}
	return dom.Element{}, false, nil
}

// byLabel scans every div in document order for one whose trimmed text
// starts with the label and carries the required marker, then looks for
// the target inside the div's closest scope ancestor. A label with no
// usable control around it does not end the scan.
func byLabel(ctx context.Context, page dom.Page, loc Locator) (dom.Element, bool, error) {
	divs, err := page.Query(ctx, "div")
	if err != nil {
		return dom.Element{}, false, err
	}
	for _, div := range divs {
		text := div.TrimmedText()
		if !strings.HasPrefix(text, loc.Text) || !strings.Contains(text, requiredMarker) {
			continue
		}
		scope, ok, err := page.Closest(ctx, div.Ref, loc.Scope)
		if err != nil {
			return dom.Element{}, false, err
		}
		if !ok {
			continue
		}
		targets, err := page.QueryWithin(ctx, scope.Ref, loc.Target)
		if err != nil {
			return dom.Element{}, false, err
		}
		if len(targets) > 0 {
			return targets[0], true, nil
		}
	}
	return dom.Element{}, false, nil
}
