package identifier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/template"
)

// Syntax selects the textual form of a formatted identifier.
type Syntax string

const (
	// URN renders identifiers as urn:epc:... strings.
	URN Syntax = "URN"
	// WebURI renders identifiers as GS1 Digital Link URLs.
	WebURI Syntax = "WebURI"
)

// DefaultDigitalLinkBase is the resolver root used when none is configured.
const DefaultDigitalLinkBase = "https://id.gs1.org"

// urnEscaper percent-encodes the characters not allowed verbatim in EPC URN
// serial and reference components.
var urnEscaper = strings.NewReplacer(
	"%", "%25",
	`"`, "%22",
	"#", "%23",
	"&", "%26",
	"/", "%2F",
	"<", "%3C",
	">", "%3E",
	"?", "%3F",
)

func escapeURN(s string) string { return urnEscaper.Replace(s) }

func escapeDL(s string) string { return url.PathEscape(s) }

// manualExpander leaves unknown placeholders in ManualURI templates intact.
var manualExpander = template.NewExpander()

// Instances allocates count serials and formats them as instance
// identifiers. count <= 0 yields nil. Kinds without a Digital Link form are
// rendered as URNs whatever syntax is requested.
func (s *Spec) Instances(a *serial.Allocator, syntax Syntax, count int, base string) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	info, err := s.lookup(RoleInstance)
	if err != nil {
		return nil, err
	}
	syntax = s.effectiveSyntax(syntax)

	if info.shape == shapeManual && !s.usesPolicy(info, RoleInstance) {
		out := make([]string, count)
		for i := range out {
			out[i] = s.Value
		}
		return out, nil
	}

	serials, err := a.Allocate(&s.Policy, count)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Kind, err)
	}

	out := make([]string, 0, len(serials))
	for _, sn := range serials {
		id, err := s.instance(info, syntax, base, sn)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Classes formats count class identifiers with their quantity. Lot-bearing
// kinds (LGTIN, templated ManualURI) allocate one lot per entry; pattern
// kinds yield a single entry. override, when set, replaces the spec's own
// quantity. UOM is only emitted for measured kinds.
func (s *Spec) Classes(a *serial.Allocator, syntax Syntax, count int, base string, override *float64) ([]epcis.QuantityElement, error) {
	if count <= 0 {
		return nil, nil
	}
	info, err := s.lookup(RoleClass)
	if err != nil {
		return nil, err
	}
	syntax = s.effectiveSyntax(syntax)

	var classes []string
	if s.usesPolicy(info, RoleClass) {
		lots, err := a.AllocateClass(&s.Policy, count)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, err)
		}
		for _, lot := range lots {
			c, err := s.lot(info, syntax, base, lot)
			if err != nil {
				return nil, err
			}
			classes = append(classes, c)
		}
	} else {
		c, err := s.pattern(info, syntax, base)
		if err != nil {
			return nil, err
		}
		classes = []string{c}
	}

	qty := s.Quantity
	if override != nil {
		qty = override
	}

	out := make([]epcis.QuantityElement, len(classes))
	for i, c := range classes {
		out[i].EPCClass = c
		if qty != nil {
			q := *qty
			out[i].Quantity = &q
		}
		if info.measured {
			out[i].UOM = s.UOM
		}
	}
	return out, nil
}

func (s *Spec) effectiveSyntax(syntax Syntax) Syntax {
	if syntax == WebURI && s.Kind.HasDigitalLink() {
		return WebURI
	}
	return URN
}

func (s *Spec) instance(info kindInfo, syntax Syntax, base, sn string) (string, error) {
	if err := s.checkSerial(info, sn); err != nil {
		return "", err
	}
	v, g := s.Value, s.GCPLength

	switch info.shape {
	case shapeGTIN:
		if syntax == URN {
			return info.urn + gtinURN(v, g) + "." + escapeURN(sn), nil
		}
		gtin, err := withCheckDigit(v[:13])
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, gtin, info.serialAI, escapeDL(sn)), nil

	case shapeITIP:
		if syntax == URN {
			return info.urn + gtinURN(v, g) + "." + v[14:16] + "." + v[16:18] + "." + escapeURN(sn), nil
		}
		gtin, err := withCheckDigit(v[:13])
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, gtin+v[14:18], info.serialAI, escapeDL(sn)), nil

	case shapeKeyed:
		if syntax == URN {
			return info.urn + v[:g] + "." + v[g:12] + "." + escapeURN(sn), nil
		}
		key, err := withCheckDigit(info.keyPrefix + v[:12])
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, key+escapeDL(sn)), nil

	case shapePadded:
		ref := padLeft(sn, info.total-len(v))
		if syntax == URN {
			if info.extension {
				return info.urn + v[1:] + "." + v[:1] + ref, nil
			}
			return info.urn + v + "." + ref, nil
		}
		key, err := withCheckDigit(v + ref)
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, key), nil

	case shapeReference:
		if syntax == URN {
			return info.urn + v + "." + escapeURN(sn), nil
		}
		return digitalLink(base, info.ai, v+escapeDL(sn)), nil

	case shapeCPI:
		if syntax == URN {
			return info.urn + v[:g] + "." + escapeURN(v[g:]) + "." + sn, nil
		}
		return digitalLink(base, info.ai, escapeDL(v), info.serialAI, sn), nil

	case shapeADI:
		return info.urn + v[:g] + "." + escapeURN(v[g:]) + "." + escapeURN(sn), nil

	case shapeBIC:
		code := v + padLeft(sn, info.total)
		cd, err := containerCheckDigit(code)
		if err != nil {
			return "", err
		}
		return info.urn + code + string(cd), nil

	case shapeGID:
		return info.urn + v[:g] + "." + v[g:] + "." + sn, nil

	case shapeIMOVN:
		body := v + padLeft(sn, info.total-len(v))
		cd, err := imoCheckDigit(body)
		if err != nil {
			return "", err
		}
		return info.urn + body + string(cd), nil

	case shapeUSDoD:
		return info.urn + v + "." + sn, nil

	case shapeManual:
		return s.expandManual(sn)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}

// lot formats a lot-bearing class identifier.
func (s *Spec) lot(info kindInfo, syntax Syntax, base, lot string) (string, error) {
	if info.shape == shapeManual {
		return s.expandManual(lot)
	}
	if err := s.checkSerial(info, lot); err != nil {
		return "", err
	}
	if syntax == URN {
		return info.pattern + gtinURN(s.Value, s.GCPLength) + "." + escapeURN(lot), nil
	}
	gtin, err := withCheckDigit(s.Value[:13])
	if err != nil {
		return "", err
	}
	return digitalLink(base, info.ai, gtin, info.serialAI, escapeDL(lot)), nil
}

// pattern formats a serial-less class identifier (an EPC pattern in URN
// form, the bare key in Digital Link form).
func (s *Spec) pattern(info kindInfo, syntax Syntax, base string) (string, error) {
	v, g := s.Value, s.GCPLength

	switch info.shape {
	case shapeGTIN:
		if syntax == URN {
			return info.pattern + gtinURN(v, g) + ".*", nil
		}
		gtin, err := withCheckDigit(v[:13])
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, gtin), nil

	case shapeITIP:
		if syntax == URN {
			return info.pattern + gtinURN(v, g) + "." + v[14:16] + "." + v[16:18] + ".*", nil
		}
		gtin, err := withCheckDigit(v[:13])
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, gtin+v[14:18]), nil

	case shapeKeyed:
		if syntax == URN {
			return info.pattern + v[:g] + "." + v[g:12] + ".*", nil
		}
		key, err := withCheckDigit(info.keyPrefix + v[:12])
		if err != nil {
			return "", err
		}
		return digitalLink(base, info.ai, key), nil

	case shapeCPI:
		if syntax == URN {
			return info.pattern + v[:g] + "." + escapeURN(v[g:]) + ".*", nil
		}
		return digitalLink(base, info.ai, escapeDL(v)), nil

	case shapeManual:
		return v, nil
	}
	return "", fmt.Errorf("%w: %s as class identifier", ErrUnsupportedRole, s.Kind)
}

func (s *Spec) expandManual(sn string) (string, error) {
	if !template.Has(s.Value, "serial") {
		return s.Value + sn, nil
	}
	return manualExpander.Expand(s.Value, map[string]string{"serial": sn})
}

// checkSerial rejects serials the kind cannot hold.
func (s *Spec) checkSerial(info kindInfo, sn string) error {
	if sn == "" {
		return fmt.Errorf("%w: %s serial is empty", ErrInvalidValue, s.Kind)
	}
	if info.numericSerial && !isDigits(sn) {
		return fmt.Errorf("%w: %s serial %q must be numeric", ErrInvalidValue, s.Kind, sn)
	}
	if limit, bounded := s.serialLimit(info); bounded && len(sn) > limit {
		return fmt.Errorf("%w: %s serial %q exceeds %d characters", ErrOverflow, s.Kind, sn, limit)
	}
	return nil
}

// gtinURN splits a 14 digit GTIN into "company prefix . indicator+item ref".
func gtinURN(gtin string, gcpLength int) string {
	return gtin[1:1+gcpLength] + "." + gtin[:1] + gtin[1+gcpLength:13]
}

func digitalLink(base string, segments ...string) string {
	if base == "" {
		base = DefaultDigitalLinkBase
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
