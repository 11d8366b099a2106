package dom

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// RecordedEvent is one interaction observed by a Document.
type RecordedEvent struct {
	Ref   Ref
	Type  string
	Class EventClass
	// Value is the element's value right after the interaction.
	Value string
	Data  string
}

// Hook reacts to an interaction on an element. Hooks run without the
// document lock held and may mutate the document.
type Hook func(d *Document, el Element)

type hook struct {
	match     cascadia.Selector
	eventType string
	fn        Hook
}

// Document is an in-memory Page over parsed HTML. It has no script engine:
// values live in the value attribute, and behavior the real page would
// script (overlays opening on click, reformatting on input) is supplied
// with hooks. Every interaction is recorded.
type Document struct {
	mu      sync.Mutex
	doc     *goquery.Document
	refs    map[Ref]*html.Node
	nextRef int
	focused Ref
	events  []RecordedEvent
	hooks   []hook
}

var _ Page = (*Document)(nil)

// NewDocument parses r as HTML.
func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc, refs: make(map[Ref]*html.Node)}, nil
}

// NewDocumentFromString parses an HTML string.
func NewDocumentFromString(s string) (*Document, error) {
	return NewDocument(strings.NewReader(s))
}

// OnClick registers fn for native clicks on elements matching selector.
func (d *Document) OnClick(selector string, fn Hook) error {
	return d.OnEvent(selector, "click", fn)
}

// OnEvent registers fn for dispatched events of eventType on elements
// matching selector. Native clicks count as "click".
func (d *Document) OnEvent(selector, eventType string, fn Hook) error {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, hook{match: sel, eventType: eventType, fn: fn})
	return nil
}

// Append parses fragment and appends it to every element matching parentSelector.
func (d *Document) Append(parentSelector, fragment string) error {
	sel, err := cascadia.Compile(parentSelector)
	if err != nil {
		return fmt.Errorf("invalid selector %q: %w", parentSelector, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	target := d.doc.FindMatcher(sel)
	if target.Length() == 0 {
		return fmt.Errorf("no element matches %q", parentSelector)
	}
	target.AppendHtml(fragment)
	return nil
}

// Remove detaches every element matching selector.
func (d *Document) Remove(selector string) error {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.FindMatcher(sel).Remove()
	return nil
}

// SetAttr sets an attribute on the element behind ref.
func (d *Document) SetAttr(ref Ref, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(ref)
	if err != nil {
		return err
	}
	setAttr(n, name, value)
	return nil
}

// Events returns a copy of the interaction log.
func (d *Document) Events() []RecordedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RecordedEvent, len(d.events))
	copy(out, d.events)
	return out
}

// EventsFor returns the logged interactions on ref.
func (d *Document) EventsFor(ref Ref) []RecordedEvent {
	var out []RecordedEvent
	for _, ev := range d.Events() {
		if ev.Ref == ref {
			out = append(out, ev)
		}
	}
	return out
}

// Focused returns the element that last received focus.
func (d *Document) Focused() Ref {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// HTML renders the current document without the ref attributes.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := d.doc.Selection.Clone()
	clone.Find("[" + RefAttribute + "]").RemoveAttr(RefAttribute)
	return goquery.NewDocumentFromNode(clone.Nodes[0]).Html()
}

func (d *Document) Query(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elements(d.doc.FindMatcher(sel)), nil
}

func (d *Document) QueryWithin(ctx context.Context, scope Ref, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(scope)
	if err != nil {
		return nil, err
	}
	return d.elements(goquery.NewDocumentFromNode(n).Selection.FindMatcher(sel)), nil
}

func (d *Document) Closest(ctx context.Context, ref Ref, selector string) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return Element{}, false, err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return Element{}, false, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(ref)
	if err != nil {
		return Element{}, false, err
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && sel.Match(cur) {
			return d.element(cur), true, nil
		}
	}
	return Element{}, false, nil
}

func (d *Document) Value(ctx context.Context, ref Ref) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(ref)
	if err != nil {
		return "", err
	}
	return getAttr(n, "value"), nil
}

func (d *Document) SetValue(ctx context.Context, ref Ref, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.node(ref)
	if err != nil {
		return err
	}
	setAttr(n, "value", value)
	return nil
}

func (d *Document) Focus(ctx context.Context, ref Ref) error {
	return d.interact(ctx, ref, Event{Type: "focus", Class: ClassEvent}, func() { d.focused = ref })
}

func (d *Document) Click(ctx context.Context, ref Ref) error {
	return d.interact(ctx, ref, Event{Type: "click", Class: ClassMouse, Bubbles: true}, nil)
}

func (d *Document) Dispatch(ctx context.Context, ref Ref, ev Event) error {
	return d.interact(ctx, ref, ev, nil)
}

// interact records ev on ref, applies mutate under the lock, then runs the
// hooks registered for the event type.
func (d *Document) interact(ctx context.Context, ref Ref, ev Event, mutate func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	n, err := d.node(ref)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if mutate != nil {
		mutate()
	}
	d.events = append(d.events, RecordedEvent{
		Ref:   ref,
		Type:  ev.Type,
		Class: ev.Class,
		Value: getAttr(n, "value"),
		Data:  ev.Data,
	})
	var fns []Hook
	for _, h := range d.hooks {
		if h.eventType == ev.Type && h.match.Match(n) {
			fns = append(fns, h.fn)
		}
	}
	el := d.element(n)
	d.mu.Unlock()

	for _, fn := range fns {
		fn(d, el)
	}
	return nil
}

// node resolves ref to an attached element. Callers hold d.mu.
func (d *Document) node(ref Ref) (*html.Node, error) {
	n, ok := d.refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ref %q", ErrStaleRef, ref)
	}
	root := d.doc.Nodes[0]
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrStaleRef, ref)
}

func (d *Document) elements(s *goquery.Selection) []Element {
	out := make([]Element, 0, s.Length())
	for _, n := range s.Nodes {
		out = append(out, d.element(n))
	}
	return out
}

// element snapshots n, stamping it with a ref on first sight. Callers hold d.mu.
func (d *Document) element(n *html.Node) Element {
	ref := Ref(getAttr(n, RefAttribute))
	if ref == "" || d.refs[ref] != n {
		d.nextRef++
		ref = Ref("n" + strconv.Itoa(d.nextRef))
		setAttr(n, RefAttribute, string(ref))
		d.refs[ref] = n
	}

	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		if a.Key == RefAttribute {
			continue
		}
		attrs[a.Key] = a.Val
	}
	return Element{
		Ref:   ref,
		Tag:   strings.ToLower(n.Data),
		Attrs: attrs,
		Text:  goquery.NewDocumentFromNode(n).Text(),
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
