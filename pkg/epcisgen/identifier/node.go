package identifier

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
)

// Node binds instance, class and parent identifier specs to an id that
// event references look up. The parent spec falls back to the instance
// spec when unset.
type Node struct {
	ID              int    `yaml:"identifierId" json:"identifierId"`
	Syntax          Syntax `yaml:"objectIdentifierSyntax,omitempty" json:"objectIdentifierSyntax,omitempty"`
	DigitalLinkBase string `yaml:"dlURL,omitempty" json:"dlURL,omitempty"`
	Instance        *Spec  `yaml:"instanceData,omitempty" json:"instanceData,omitempty"`
	Class           *Spec  `yaml:"classData,omitempty" json:"classData,omitempty"`
	Parent          *Spec  `yaml:"parentData,omitempty" json:"parentData,omitempty"`
}

// FieldError reports a problem with one spec of a node.
type FieldError struct {
	Field string
	Kind  Kind
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Field, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate checks every configured spec. Errors are joined *FieldError
// values so callers can attach the node id.
func (n *Node) Validate() error {
	var errs []error
	switch n.Syntax {
	case "", URN, WebURI:
	default:
		errs = append(errs, &FieldError{Field: "objectIdentifierSyntax", Err: fmt.Errorf("%w: %q", ErrInvalidSyntax, n.Syntax)})
	}
	if n.Instance == nil && n.Class == nil && n.Parent == nil {
		errs = append(errs, &FieldError{Field: "identifier", Err: ErrMissingSpec})
	}
	check := func(field string, s *Spec, role Role) {
		if s == nil {
			return
		}
		if err := s.Validate(role); err != nil {
			errs = append(errs, &FieldError{Field: field, Kind: s.Kind, Err: err})
		}
	}
	check("instanceData", n.Instance, RoleInstance)
	check("classData", n.Class, RoleClass)
	check("parentData", n.Parent, RoleInstance)
	return errors.Join(errs...)
}

// Clone returns a deep copy whose range cursors start where n's are now.
func (n *Node) Clone() *Node {
	c := *n
	c.Instance = n.Instance.Clone()
	c.Class = n.Class.Clone()
	c.Parent = n.Parent.Clone()
	return &c
}

// Base returns the Digital Link base for the node: its own, else fallback,
// else DefaultDigitalLinkBase.
func (n *Node) Base(fallback string) string {
	switch {
	case n.DigitalLinkBase != "":
		return n.DigitalLinkBase
	case fallback != "":
		return fallback
	default:
		return DefaultDigitalLinkBase
	}
}

// HasInstance reports whether the node can produce instance identifiers.
func (n *Node) HasInstance() bool { return n.Instance != nil }

// HasClass reports whether the node can produce class identifiers.
func (n *Node) HasClass() bool { return n.Class != nil }

// HasParent reports whether the node can produce parent identifiers,
// directly or through its instance spec.
func (n *Node) HasParent() bool { return n.Parent != nil || n.Instance != nil }

// Instances formats count instance identifiers.
func (n *Node) Instances(a *serial.Allocator, count int, fallbackBase string) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	if n.Instance == nil {
		return nil, n.missing("instanceData")
	}
	return n.Instance.Instances(a, n.syntax(), count, n.Base(fallbackBase))
}

// Classes formats count class identifiers; override replaces the spec's quantity.
func (n *Node) Classes(a *serial.Allocator, count int, fallbackBase string, override *float64) ([]epcis.QuantityElement, error) {
	if count <= 0 {
		return nil, nil
	}
	if n.Class == nil {
		return nil, n.missing("classData")
	}
	return n.Class.Classes(a, n.syntax(), count, n.Base(fallbackBase), override)
}

// Parents formats count parent identifiers from the parent spec, or the
// instance spec when no parent spec is set.
func (n *Node) Parents(a *serial.Allocator, count int, fallbackBase string) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	spec := n.Parent
	if spec == nil {
		spec = n.Instance
	}
	if spec == nil {
		return nil, n.missing("parentData")
	}
	return spec.Instances(a, n.syntax(), count, n.Base(fallbackBase))
}

func (n *Node) syntax() Syntax {
	if n.Syntax == WebURI {
		return WebURI
	}
	return URN
}

func (n *Node) missing(field string) error {
	return &FieldError{Field: field, Err: fmt.Errorf("%w on identifier node %d", ErrMissingSpec, n.ID)}
}
