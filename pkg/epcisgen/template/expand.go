// Package template expands ${name} placeholders in identifier and event
// field templates.
//
// ManualURI identifiers use it to splice allocated serials into a URI
// ("https://example.com/item/${serial}"), and event nodes use it to vary
// readPoint, bizLocation and business transaction values per event
// ("urn:epc:id:sgln:952198.00000.${eventIndex}").
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholder matches ${name}; name is alphanumeric plus underscore.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingAction specifies how to handle placeholders without a value.
type MissingAction int

const (
	// MissingKeep leaves the placeholder as-is. This is the default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty

	// MissingError fails the expansion with an UndefinedVariableError.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// Expander expands placeholders. It is safe for concurrent use.
type Expander struct {
	missingAction MissingAction
}

// NewExpander creates an Expander. The default keeps unknown placeholders.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{missingAction: MissingKeep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces every ${name} in s with vars[name].
func (e *Expander) Expand(s string, vars map[string]string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var missing []string
	result := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, name)
		}
		return match
	})

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// UndefinedVariableError is returned under MissingError when one or more
// placeholders have no value.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// Placeholders returns the distinct placeholder names in s, in order of
// first appearance.
func Placeholders(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Has reports whether s contains a ${name} placeholder.
func Has(s, name string) bool {
	return strings.Contains(s, "${"+name+"}")
}

var strict = NewExpander(WithMissingAction(MissingError))

// Expand expands s and fails on any placeholder missing from vars.
func Expand(s string, vars map[string]string) (string, error) {
	return strict.Expand(s, vars)
}
