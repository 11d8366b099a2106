package autofill

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

// Mode selects the event sequence the injector fires.
type Mode string

const (
	// ModeKeystroke types the value one character at a time.
	ModeKeystroke Mode = "keystroke"
	// ModeDirect assigns the value in one step and fires change events.
	ModeDirect Mode = "direct"
)

// StrategyType names a way of finding an element.
type StrategyType string

const (
	// StrategySelector takes the first element matching a CSS selector.
	StrategySelector StrategyType = "selector"
	// StrategyPlaceholder matches the placeholder attribute: exact first,
	// then a case-insensitive substring.
	StrategyPlaceholder StrategyType = "placeholder"
	// StrategyID matches the id attribute the same way.
	StrategyID StrategyType = "id"
	// StrategyLabel finds a required-field label by its text and searches
	// the enclosing form control for the target element.
	StrategyLabel StrategyType = "label"
	// StrategyNth takes the element at Index among a selector's matches.
	StrategyNth StrategyType = "nth"
)

const (
	defaultInputScope    = "app-input-control, app-ngb-datepicker, app-dropdown"
	defaultDropdownScope = "app-dropdown"
	defaultInputTarget   = "input"
	defaultSelectTarget  = "mat-select"
	// requiredMarker must appear in a label's text for the label strategy.
	requiredMarker = "*"
)

// Locator is one typed lookup strategy.
type Locator struct {
	Type StrategyType `yaml:"type"`
	// Selector is the CSS selector for selector and nth; for placeholder
	// and id it narrows the candidates (default "input").
	Selector string `yaml:"selector,omitempty"`
	// Text is the placeholder, id or label text to match.
	Text string `yaml:"text,omitempty"`
	// Substring makes placeholder and id take the first case-insensitive
	// substring match in document order, skipping the exact match pass.
	Substring bool `yaml:"substring,omitempty"`
	Index     int  `yaml:"index,omitempty"`
	// Scope and Target apply to the label strategy: the ancestor tags that
	// enclose a form control and the element looked up inside it.
	Scope  string `yaml:"scope,omitempty"`
	Target string `yaml:"target,omitempty"`
}

func (l Locator) String() string {
	switch l.Type {
	case StrategySelector:
		return fmt.Sprintf("selector(%s)", l.Selector)
	case StrategyNth:
		return fmt.Sprintf("nth(%s, %d)", l.Selector, l.Index)
	case StrategyPlaceholder, StrategyID, StrategyLabel:
		name := string(l.Type)
		if l.Substring {
			name += "*"
		}
		if l.Selector != "" && l.Selector != defaultInputTarget {
			return fmt.Sprintf("%s(%q in %s)", name, l.Text, l.Selector)
		}
		return fmt.Sprintf("%s(%q)", name, l.Text)
	}
	return string(l.Type)
}

// Field describes one form field: where its value comes from and how to find it.
type Field struct {
	Name string             `yaml:"name"`
	Kind schemas.FieldKind  `yaml:"kind"`
	Key  schemas.ProfileKey `yaml:"key"`
	// Default is used when the profile value is empty.
	Default  string    `yaml:"default,omitempty"`
	Locators []Locator `yaml:"locators"`
}

// Overlay names the elements of the floating dropdown panel.
type Overlay struct {
	Container string `yaml:"container"`
	Option    string `yaml:"option"`
	Backdrop  string `yaml:"backdrop"`
}

// Timing schedules a fill. Input i starts FieldStagger*i after the fill
// begins; dropdowns start at DropdownDelay + DropdownDelayPerInput*inputs,
// each DropdownStagger after the previous one was scheduled and never
// sooner than DropdownStagger after it finished.
type Timing struct {
	FieldStagger          time.Duration `yaml:"field_stagger"`
	DropdownDelay         time.Duration `yaml:"dropdown_delay"`
	DropdownDelayPerInput time.Duration `yaml:"dropdown_delay_per_input"`
	DropdownStagger       time.Duration `yaml:"dropdown_stagger"`
}

// Layout is the data that adapts the filler to one version of the target form.
type Layout struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Injection   Mode   `yaml:"injection"`
	// OpenEvent is the class of the synthetic click sent after the native
	// click that opens a dropdown.
	OpenEvent dom.EventClass `yaml:"open_event"`
	Overlay   Overlay        `yaml:"overlay"`
	Timing    Timing         `yaml:"timing"`
	Fields    []Field        `yaml:"fields"`
}

// Inputs returns the plain input fields in layout order.
func (l *Layout) Inputs() []Field { return l.fieldsOf(schemas.FieldInput) }

// Dropdowns returns the dropdown fields in layout order.
func (l *Layout) Dropdowns() []Field { return l.fieldsOf(schemas.FieldDropdown) }

func (l *Layout) fieldsOf(kind schemas.FieldKind) []Field {
	var out []Field
	for _, f := range l.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// applyDefaults fills the optional parts of a layout.
func (l *Layout) applyDefaults() {
	if l.Injection == "" {
		l.Injection = ModeKeystroke
	}
	if l.OpenEvent == "" {
		l.OpenEvent = dom.ClassMouse
	}
	if l.Overlay.Container == "" {
		l.Overlay.Container = ".cdk-overlay-container"
	}
	if l.Overlay.Option == "" {
		l.Overlay.Option = "mat-option"
	}
	if l.Overlay.Backdrop == "" {
		l.Overlay.Backdrop = ".cdk-overlay-backdrop"
	}
	for i := range l.Fields {
		f := &l.Fields[i]
		if f.Kind == "" {
			f.Kind = schemas.FieldInput
		}
		for j := range f.Locators {
			loc := &f.Locators[j]
			switch loc.Type {
			case StrategyPlaceholder, StrategyID:
				if loc.Selector == "" {
					loc.Selector = defaultInputTarget
				}
			case StrategyLabel:
				if loc.Scope == "" {
					loc.Scope = defaultInputScope
					if f.Kind == schemas.FieldDropdown {
						loc.Scope = defaultDropdownScope
					}
				}
				if loc.Target == "" {
					loc.Target = defaultInputTarget
					if f.Kind == schemas.FieldDropdown {
						loc.Target = defaultSelectTarget
					}
				}
			}
		}
	}
}

// Validate checks that a layout can drive a fill.
func (l *Layout) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("layout name is required")
	}
	switch l.Injection {
	case ModeKeystroke, ModeDirect:
	default:
		return fmt.Errorf("layout %s: unknown injection mode %q", l.Name, l.Injection)
	}
	switch l.OpenEvent {
	case dom.ClassEvent, dom.ClassMouse:
	default:
		return fmt.Errorf("layout %s: open_event must be %q or %q", l.Name, dom.ClassEvent, dom.ClassMouse)
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("layout %s: no fields", l.Name)
	}
	if l.Timing.FieldStagger < 0 || l.Timing.DropdownDelay < 0 || l.Timing.DropdownDelayPerInput < 0 || l.Timing.DropdownStagger < 0 {
		return fmt.Errorf("layout %s: timings must not be negative", l.Name)
	}

	seen := make(map[string]bool, len(l.Fields))
	for _, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("layout %s: field without a name", l.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("layout %s: duplicate field %q", l.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Kind != schemas.FieldInput && f.Kind != schemas.FieldDropdown {
			return fmt.Errorf("field %s: unknown kind %q", f.Name, f.Kind)
		}
		if _, ok := (schemas.Profile{}).Value(f.Key); !ok {
			return fmt.Errorf("field %s: unknown profile key %q", f.Name, f.Key)
		}
		if len(f.Locators) == 0 {
			return fmt.Errorf("field %s: no locators", f.Name)
		}
		for i, loc := range f.Locators {
			if err := loc.validate(); err != nil {
				return fmt.Errorf("field %s: locator %d: %w", f.Name, i+1, err)
			}
		}
	}
	return nil
}

func (l Locator) validate() error {
	switch l.Type {
	case StrategySelector:
		if l.Selector == "" {
			return fmt.Errorf("selector strategy needs a selector")
		}
	case StrategyNth:
		if l.Selector == "" || l.Index < 0 {
			return fmt.Errorf("nth strategy needs a selector and a non-negative index")
		}
	case StrategyPlaceholder, StrategyID, StrategyLabel:
		if l.Text == "" {
			return fmt.Errorf("%s strategy needs text", l.Type)
		}
		if l.Substring && l.Type == StrategyLabel {
			return fmt.Errorf("label strategy does not take substring")
		}
	default:
		return fmt.Errorf("unknown strategy %q", l.Type)
	}
	return nil
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	l.applyDefaults()
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLayout reads a YAML layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return ParseLayout(data)
}

// MarshalLayout renders a layout as YAML.
func MarshalLayout(l *Layout) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return nil, fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Builtin returns a copy of the named built-in layout.
func Builtin(name string) (*Layout, error) {
	build, ok := builtinLayouts[name]
	if !ok {
		return nil, fmt.Errorf("unknown layout %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	l := build()
	l.applyDefaults()
	return l, nil
}

// BuiltinNames lists the built-in layouts in name order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinLayouts))
	for name := range builtinLayouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveLayout returns the layout from file when one is given, otherwise
// the named built-in.
func ResolveLayout(name, file string) (*Layout, error) {
	if file != "" {
		return LoadLayout(file)
	}
	return Builtin(name)
}
