package identifier

// Kind is the identifier scheme of a Spec. The set is closed: every kind is
// listed in the kinds table below and formatted by one of a handful of shapes.
type Kind string

// Instance-capable kinds.
const (
	SGTIN     Kind = "SGTIN"
	SSCC      Kind = "SSCC"
	GRAI      Kind = "GRAI"
	GDTI      Kind = "GDTI"
	GCN       Kind = "GCN"
	GIAI      Kind = "GIAI"
	GSRN      Kind = "GSRN"
	GSRNP     Kind = "GSRNP"
	GSIN      Kind = "GSIN"
	GINC      Kind = "GINC"
	ITIP      Kind = "ITIP"
	UPUI      Kind = "UPUI"
	CPI       Kind = "CPI"
	ADI       Kind = "ADI"
	BIC       Kind = "BIC"
	GID       Kind = "GID"
	IMOVN     Kind = "IMOVN"
	USDoD     Kind = "USDoD"
	ManualURI Kind = "ManualURI"
)

// Class-only kinds.
const (
	LGTIN Kind = "LGTIN"
	GTIN  Kind = "GTIN"
)

// Role is the position a Spec fills on an identifier node.
type Role int

const (
	RoleInstance Role = iota
	RoleClass
)

func (r Role) String() string {
	if r == RoleClass {
		return "class"
	}
	return "instance"
}

// shape groups kinds that share a formatting algorithm.
type shape int

const (
	// 14-digit GTIN plus a serial or lot (SGTIN, UPUI, LGTIN, GTIN).
	shapeGTIN shape = iota
	// 18 digits: GTIN + piece + total (ITIP).
	shapeITIP
	// 13 digits: GCP + reference + check digit, serial appended (GRAI, GDTI, GCN).
	shapeKeyed
	// GCP with the serial zero-padded into a fixed-length numeric key (SSCC, GSIN, GSRN, GSRNP).
	shapePadded
	// GCP followed by an alphanumeric serial, bounded total length (GIAI, GINC).
	shapeReference
	// GCP + part reference, separate numeric serial (CPI).
	shapeCPI
	shapeADI
	shapeBIC
	shapeGID
	shapeIMOVN
	shapeUSDoD
	shapeManual
)

// kindInfo is the per-kind constant table driving the shared format skeleton.
type kindInfo struct {
	shape shape

	// urn is the instance URN prefix; pattern is the class URN prefix.
	urn     string
	pattern string

	// ai is the Digital Link path segment of the primary key and serialAI
	// the one carrying the serial (or lot). keyPrefix is prepended to the
	// key before the check digit is computed (GRAI's leading zero).
	ai        string
	serialAI  string
	keyPrefix string

	// total is the fixed digit count of a padded key (without check digit),
	// or the maximum character count of a reference key.
	total int
	// serialMax bounds the serial length; 0 means only total applies.
	serialMax int

	numericSerial bool
	extension     bool

	instance bool
	class    bool
	measured bool
}

// gs1 reports whether the kind is a GS1 key with a company prefix and a
// Digital Link form.
func (k kindInfo) gs1() bool {
	switch k.shape {
	case shapeGTIN, shapeITIP, shapeKeyed, shapePadded, shapeReference, shapeCPI:
		return true
	}
	return false
}

var kinds = map[Kind]kindInfo{
	SGTIN: {shape: shapeGTIN, urn: "urn:epc:id:sgtin:", ai: "01", serialAI: "21", serialMax: 20, instance: true},
	UPUI: {shape: shapeGTIN, urn: "urn:epc:id:upui:", pattern: "urn:epc:idpat:upui:", ai: "01", serialAI: "235",
		serialMax: 28, instance: true, class: true, measured: true},
	LGTIN: {shape: shapeGTIN, pattern: "urn:epc:class:lgtin:", ai: "01", serialAI: "10", serialMax: 20,
		class: true, measured: true},
	GTIN: {shape: shapeGTIN, pattern: "urn:epc:idpat:sgtin:", ai: "01", class: true, measured: true},
	ITIP: {shape: shapeITIP, urn: "urn:epc:id:itip:", pattern: "urn:epc:idpat:itip:", ai: "8006", serialAI: "21",
		serialMax: 20, instance: true, class: true, measured: true},

	GRAI: {shape: shapeKeyed, urn: "urn:epc:id:grai:", pattern: "urn:epc:idpat:grai:", ai: "8003", keyPrefix: "0",
		serialMax: 16, instance: true, class: true},
	GDTI: {shape: shapeKeyed, urn: "urn:epc:id:gdti:", pattern: "urn:epc:idpat:gdti:", ai: "253",
		serialMax: 17, instance: true, class: true},
	GCN: {shape: shapeKeyed, urn: "urn:epc:id:sgcn:", pattern: "urn:epc:idpat:sgcn:", ai: "255",
		serialMax: 12, numericSerial: true, instance: true, class: true},

	SSCC:  {shape: shapePadded, urn: "urn:epc:id:sscc:", ai: "00", total: 17, extension: true, numericSerial: true, instance: true},
	GSIN:  {shape: shapePadded, urn: "urn:epc:id:gsin:", ai: "402", total: 16, numericSerial: true, instance: true},
	GSRN:  {shape: shapePadded, urn: "urn:epc:id:gsrn:", ai: "8018", total: 17, numericSerial: true, instance: true},
	GSRNP: {shape: shapePadded, urn: "urn:epc:id:gsrnp:", ai: "8017", total: 17, numericSerial: true, instance: true},

	GIAI: {shape: shapeReference, urn: "urn:epc:id:giai:", ai: "8004", total: 30, instance: true},
	GINC: {shape: shapeReference, urn: "urn:epc:id:ginc:", ai: "401", total: 30, instance: true},
	CPI: {shape: shapeCPI, urn: "urn:epc:id:cpi:", pattern: "urn:epc:idpat:cpi:", ai: "8010", serialAI: "8011",
		total: 30, serialMax: 12, numericSerial: true, instance: true, class: true},

	ADI:   {shape: shapeADI, urn: "urn:epc:id:adi:", serialMax: 30, instance: true},
	BIC:   {shape: shapeBIC, urn: "urn:epc:id:bic:", total: 6, numericSerial: true, instance: true},
	GID:   {shape: shapeGID, urn: "urn:epc:id:gid:", serialMax: 11, numericSerial: true, instance: true},
	IMOVN: {shape: shapeIMOVN, urn: "urn:epc:id:imovn:", total: 6, numericSerial: true, instance: true},
	USDoD: {shape: shapeUSDoD, urn: "urn:epc:id:usdod:", serialMax: 11, numericSerial: true, instance: true},

	ManualURI: {shape: shapeManual, instance: true, class: true, measured: true},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Supports reports whether k may be used in role r.
func (k Kind) Supports(r Role) bool {
	info, ok := kinds[k]
	if !ok {
		return false
	}
	if r == RoleClass {
		return info.class
	}
	return info.instance
}

// HasDigitalLink reports whether k has a GS1 Digital Link form. Kinds
// without one are always rendered as URNs.
func (k Kind) HasDigitalLink() bool {
	info, ok := kinds[k]
	return ok && (info.gs1() || info.shape == shapeManual)
}
