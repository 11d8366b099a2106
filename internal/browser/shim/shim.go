// Package shim holds the in-page helper script both live browser drivers
// install before filling a form.
package shim

import (
	_ "embed"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	// RefAttrPlaceholder is replaced in the template with the JSON encoded
	// name of the element reference attribute.
	RefAttrPlaceholder = "/*{{AUTOFILL_REF_ATTR}}*/"

	// Global is the window property the script installs itself under.
	Global = "window.__vfsAutofill"
)

//go:embed autofill_shim.js
var autofillShimTemplate string

// GetAutofillShimTemplate returns the embedded script template.
func GetAutofillShimTemplate() (string, error) {
	if autofillShimTemplate == "" {
		return "", fmt.Errorf("embedded autofill_shim.js template is empty or failed to load")
	}
	return autofillShimTemplate, nil
}

// BuildAutofillShim fills the template's reference attribute slot.
func BuildAutofillShim(template, refAttr string) (string, error) {
	if template == "" {
		return "", fmt.Errorf("template is empty")
	}
	if !strings.Contains(template, RefAttrPlaceholder) {
		return "", fmt.Errorf("template does not contain the required placeholder: %s", RefAttrPlaceholder)
	}
	if refAttr == "" {
		return "", fmt.Errorf("reference attribute name is empty")
	}
	encoded, err := jsoniter.MarshalToString(refAttr)
	if err != nil {
		return "", err
	}
	return strings.Replace(template, RefAttrPlaceholder, encoded, 1), nil
}

// Script returns the ready-to-install helper script.
func Script(refAttr string) (string, error) {
	template, err := GetAutofillShimTemplate()
	if err != nil {
		return "", err
	}
	return BuildAutofillShim(template, refAttr)
}

// Call renders a JS expression invoking helper fn with JSON encoded args.
func Call(fn string, args ...interface{}) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		s, err := jsoniter.MarshalToString(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode argument %d for %s: %w", i, fn, err)
		}
		encoded[i] = s
	}
	return fmt.Sprintf("%s.%s(%s)", Global, fn, strings.Join(encoded, ", ")), nil
}
