package identifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/template"
)

// Sentinel errors for identifier configuration and formatting.
var (
	// ErrUnknownKind indicates an identifier type outside the supported set.
	ErrUnknownKind = errors.New("unknown identifier type")

	// ErrUnsupportedRole indicates a kind used where it cannot appear, such
	// as an SSCC as a class identifier.
	ErrUnsupportedRole = errors.New("identifier type not supported in this role")

	// ErrInvalidValue indicates a raw value or serial with the wrong length
	// or characters for its kind.
	ErrInvalidValue = errors.New("invalid identifier value")

	// ErrInvalidPrefix indicates a company prefix length outside 6..12.
	ErrInvalidPrefix = errors.New("invalid company prefix length")

	// ErrOverflow indicates a serial too long for the kind's fixed length.
	ErrOverflow = errors.New("serial overflows identifier length")

	// ErrMissingSpec indicates a node lacks the identifier data a reference asks for.
	ErrMissingSpec = errors.New("identifier data not configured")

	// ErrInvalidSyntax indicates an unknown identifier syntax.
	ErrInvalidSyntax = errors.New("invalid identifier syntax")
)

// Spec is the encoding rule for one identifier family: its kind, the raw
// digits, the company prefix length and the serial policy. Class specs also
// carry a default quantity and unit of measure.
//
// The embedded Policy holds the range cursor; formatting advances it.
type Spec struct {
	Kind          Kind   `yaml:"identifierType" json:"identifierType"`
	Value         string `yaml:"value" json:"value"`
	GCPLength     int    `yaml:"gcpLength,omitempty" json:"gcpLength,omitempty"`
	serial.Policy `yaml:",inline"`

	Quantity *float64 `yaml:"quantity,omitempty" json:"quantity,omitempty"`
	UOM      string   `yaml:"uom,omitempty" json:"uom,omitempty"`
}

// Clone returns a deep copy with its own range cursor.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	c := *s
	c.Policy = s.Policy.Clone()
	if s.Quantity != nil {
		q := *s.Quantity
		c.Quantity = &q
	}
	return &c
}

// Validate checks the spec against its kind's raw-value rules and, where
// serials are drawn, against its serial policy.
func (s *Spec) Validate(role Role) error {
	info, err := s.lookup(role)
	if err != nil {
		return err
	}
	if !s.usesPolicy(info, role) {
		return nil
	}
	if err := s.Policy.Validate(); err != nil {
		return err
	}
	if info.numericSerial && !s.Policy.Numeric() {
		return fmt.Errorf("%w: %s serials must be numeric", ErrInvalidValue, s.Kind)
	}

	limit, bounded := s.serialLimit(info)
	if !bounded || s.Policy.Type == serial.TypeRange {
		return nil
	}
	if n := s.Policy.MaxLen(1); n > limit {
		return fmt.Errorf("%w: %s allows %d serial characters, policy yields up to %d",
			ErrOverflow, s.Kind, limit, n)
	}
	return nil
}

// lookup resolves the kind table entry and checks role and raw value.
func (s *Spec) lookup(role Role) (kindInfo, error) {
	info, ok := kinds[s.Kind]
	if !ok {
		return kindInfo{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if !s.Kind.Supports(role) {
		return kindInfo{}, fmt.Errorf("%w: %s as %s identifier", ErrUnsupportedRole, s.Kind, role)
	}
	if err := s.validateValue(info); err != nil {
		return kindInfo{}, err
	}
	return info, nil
}

// usesPolicy reports whether formatting draws serials from the policy.
// Pattern classes (GTIN, GRAI, ...) carry no serial.
func (s *Spec) usesPolicy(info kindInfo, role Role) bool {
	if info.shape == shapeManual {
		if template.Has(s.Value, "serial") {
			return true
		}
		return role == RoleInstance && !(s.Policy.IsStatic() && s.Policy.Value == "")
	}
	return role == RoleInstance || s.Kind == LGTIN
}

// serialLimit returns the maximum serial length. bounded is false when the
// kind imposes no limit.
func (s *Spec) serialLimit(info kindInfo) (limit int, bounded bool) {
	switch info.shape {
	case shapePadded, shapeReference:
		return info.total - len(s.Value), true
	case shapeBIC:
		return info.total, true
	case shapeIMOVN:
		return info.total - len(s.Value), true
	}
	if info.serialMax > 0 {
		return info.serialMax, true
	}
	return 0, false
}

func (s *Spec) validateValue(info kindInfo) error {
	v, g := s.Value, s.GCPLength
	if info.gs1() && (g < 6 || g > 12) {
		return fmt.Errorf("%w: %s gcpLength must be 6-12, got %d", ErrInvalidPrefix, s.Kind, g)
	}

	switch info.shape {
	case shapeGTIN:
		return s.digits(14)
	case shapeITIP:
		return s.digits(18)
	case shapeKeyed:
		return s.digits(13)
	case shapePadded:
		want := g
		if info.extension {
			want = g + 1
		}
		return s.digits(want)
	case shapeReference:
		return s.digits(g)
	case shapeCPI:
		if len(v) <= g || len(v) > info.total {
			return s.invalid("must be %d company prefix digits plus a part reference, at most %d characters", g, info.total)
		}
		if !isDigits(v[:g]) || !onlyChars(v[g:], cpiChars) {
			return s.invalid("part reference %q has invalid characters", v[g:])
		}
	case shapeADI:
		if g != 5 && g != 6 {
			return fmt.Errorf("%w: ADI CAGE/DODAAC length must be 5 or 6, got %d", ErrInvalidPrefix, g)
		}
		if len(v) <= g || !onlyChars(v[:g], upperAlnum) || !onlyChars(v[g:], adiChars) {
			return s.invalid("must be a CAGE/DODAAC code followed by a part number")
		}
	case shapeBIC:
		if len(v) != 4 || !onlyChars(v, upperAlpha) || !onlyChars(v[3:], "UJZ") {
			return s.invalid("must be a 3 letter owner code plus U, J or Z")
		}
	case shapeGID:
		if g < 1 || len(v) <= g || !isDigits(v) {
			return s.invalid("must be manager number digits followed by object class digits")
		}
	case shapeIMOVN:
		if len(v) > info.total || !isDigits(v) {
			return s.invalid("must be at most %d digits", info.total)
		}
	case shapeUSDoD:
		if len(v) < 5 || len(v) > 6 || !onlyChars(v, upperAlnum) {
			return s.invalid("must be a 5 or 6 character CAGE/DODAAC code")
		}
	case shapeManual:
		if v == "" {
			return s.invalid("URI template must not be empty")
		}
	}
	return nil
}

func (s *Spec) digits(n int) error {
	if len(s.Value) != n || !isDigits(s.Value) {
		return s.invalid("must be %d digits, got %q", n, s.Value)
	}
	return nil
}

func (s *Spec) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s value %s", ErrInvalidValue, s.Kind, fmt.Sprintf(format, args...))
}

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	upperAlnum = "0123456789" + upperAlpha
	cpiChars   = upperAlnum + "#-/"
	adiChars   = upperAlnum + "#-/"
)

func onlyChars(s, allowed string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(allowed, s[i]) < 0 {
			return false
		}
	}
	return true
}
