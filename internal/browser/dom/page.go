// Package dom defines the page contract the form filler works against and an
// offline implementation of it backed by a parsed HTML document.
package dom

import (
	"context"
	"errors"
	"strings"
)

// RefAttribute is the attribute a page stamps on elements it hands out so
// later calls can address them again.
const RefAttribute = "data-autofill-ref"

// ErrStaleRef is returned when a reference no longer points at an element
// attached to the document.
var ErrStaleRef = errors.New("element reference is no longer attached to the document")

// Ref addresses an element previously returned by a Page.
type Ref string

// Element is a snapshot of an element taken when it was queried.
type Element struct {
	Ref   Ref               `json:"ref"`
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs"`
	// Text is the element's textContent, untrimmed.
	Text string `json:"text"`
}

// Attr returns the attribute value, or "" when it is absent.
func (e Element) Attr(name string) string {
	return e.Attrs[name]
}

// EventClass selects the DOM event constructor used for a synthetic event.
type EventClass string

const (
	ClassEvent    EventClass = "event"
	ClassKeyboard EventClass = "keyboard"
	ClassMouse    EventClass = "mouse"
	ClassInput    EventClass = "input"
)

// Event describes a synthetic DOM event to dispatch on an element.
type Event struct {
	Type       string     `json:"type"`
	Class      EventClass `json:"class"`
	Bubbles    bool       `json:"bubbles"`
	Cancelable bool       `json:"cancelable"`
	// Key is set on keyboard events.
	Key string `json:"key,omitempty"`
	// InputType and Data are set on InputEvents.
	InputType string `json:"inputType,omitempty"`
	Data      string `json:"data,omitempty"`
}

// Page is the live document a form is filled in. Implementations address
// elements through Refs; every query returns matches in document order.
type Page interface {
	// Query returns every element matching the CSS selector.
	Query(ctx context.Context, selector string) ([]Element, error)
	// QueryWithin returns the descendants of scope matching the selector.
	QueryWithin(ctx context.Context, scope Ref, selector string) ([]Element, error)
	// Closest returns the nearest inclusive ancestor of ref matching the selector.
	Closest(ctx context.Context, ref Ref, selector string) (Element, bool, error)
	// Value reads the element's current value property.
	Value(ctx context.Context, ref Ref) (string, error)
	// SetValue assigns the element's value property without firing events.
	SetValue(ctx context.Context, ref Ref, value string) error
	Focus(ctx context.Context, ref Ref) error
	// Click performs the element's native click.
	Click(ctx context.Context, ref Ref) error
	Dispatch(ctx context.Context, ref Ref, ev Event) error
}

// QueryFirst returns the first element matching selector, if any.
func QueryFirst(ctx context.Context, p Page, selector string) (Element, bool, error) {
	els, err := p.Query(ctx, selector)
	if err != nil || len(els) == 0 {
		return Element{}, false, err
	}
	return els[0], true, nil
}

// TrimmedText is the element's textContent with surrounding whitespace removed.
func (e Element) TrimmedText() string {
	return strings.TrimSpace(e.Text)
}
