package identifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
)

func spec(kind Kind, value string, gcp int, p serial.Policy) *Spec {
	return &Spec{Kind: kind, Value: value, GCPLength: gcp, Policy: p}
}

func ptr(f float64) *float64 { return &f }

func TestInstances_SGTINScenario(t *testing.T) {
	s := spec(SGTIN, "09521987654327", 6, serial.Range(1))
	a := serial.New(1)

	first, err := s.Instances(a, WebURI, 4, "")
	require.NoError(t, err)
	second, err := s.Instances(a, WebURI, 4, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://id.gs1.org/01/09521987654327/21/1",
		"https://id.gs1.org/01/09521987654327/21/2",
		"https://id.gs1.org/01/09521987654327/21/3",
		"https://id.gs1.org/01/09521987654327/21/4",
	}, first)
	assert.Equal(t, "https://id.gs1.org/01/09521987654327/21/5", second[0])
	assert.Equal(t, "https://id.gs1.org/01/09521987654327/21/8", second[3])
}

func TestInstances_Formats(t *testing.T) {
	tests := []struct {
		name   string
		spec   *Spec
		syntax Syntax
		want   string
	}{
		{"sgtin urn", spec(SGTIN, "09521987654327", 6, serial.Range(1)), URN,
			"urn:epc:id:sgtin:952198.0765432.1"},
		{"sgtin urn escapes serial", spec(SGTIN, "09521987654327", 6, serial.Static("A/B")), URN,
			"urn:epc:id:sgtin:952198.0765432.A%2FB"},
		{"sgtin web uri escapes serial", spec(SGTIN, "09521987654327", 6, serial.Static("A/B")), WebURI,
			"https://id.gs1.org/01/09521987654327/21/A%2FB"},
		{"upui urn", spec(UPUI, "09521987654327", 6, serial.Static("X1")), URN,
			"urn:epc:id:upui:952198.0765432.X1"},
		{"upui web uri", spec(UPUI, "09521987654327", 6, serial.Static("X1")), WebURI,
			"https://id.gs1.org/01/09521987654327/235/X1"},
		{"itip urn", spec(ITIP, "095219876543270102", 6, serial.Range(7)), URN,
			"urn:epc:id:itip:952198.0765432.01.02.7"},
		{"itip web uri", spec(ITIP, "095219876543270102", 6, serial.Range(7)), WebURI,
			"https://id.gs1.org/8006/095219876543270102/21/7"},
		{"grai urn", spec(GRAI, "9521981234560", 6, serial.Range(42)), URN,
			"urn:epc:id:grai:952198.123456.42"},
		{"grai web uri", spec(GRAI, "9521981234560", 6, serial.Range(42)), WebURI,
			"https://id.gs1.org/8003/0952198123456342"},
		{"gdti urn", spec(GDTI, "9521981234560", 6, serial.Static("D1")), URN,
			"urn:epc:id:gdti:952198.123456.D1"},
		{"gdti web uri", spec(GDTI, "9521981234560", 6, serial.Static("D1")), WebURI,
			"https://id.gs1.org/253/9521981234563D1"},
		{"gcn urn", spec(GCN, "9521981234560", 6, serial.Range(5)), URN,
			"urn:epc:id:sgcn:952198.123456.5"},
		{"gcn web uri", spec(GCN, "9521981234560", 6, serial.Range(5)), WebURI,
			"https://id.gs1.org/255/95219812345635"},
		{"sscc urn", spec(SSCC, "0952198", 6, serial.Range(1)), URN,
			"urn:epc:id:sscc:952198.00000000001"},
		{"sscc web uri", spec(SSCC, "0952198", 6, serial.Range(1)), WebURI,
			"https://id.gs1.org/00/095219800000000015"},
		{"gsrn urn", spec(GSRN, "952198", 6, serial.Range(1)), URN,
			"urn:epc:id:gsrn:952198.00000000001"},
		{"gsrnp urn", spec(GSRNP, "952198", 6, serial.Range(12)), URN,
			"urn:epc:id:gsrnp:952198.00000000012"},
		{"gsin urn", spec(GSIN, "952198", 6, serial.Range(1)), URN,
			"urn:epc:id:gsin:952198.0000000001"},
		{"giai urn", spec(GIAI, "952198", 6, serial.Static("ASSET/1")), URN,
			"urn:epc:id:giai:952198.ASSET%2F1"},
		{"giai web uri", spec(GIAI, "952198", 6, serial.Static("ASSET/1")), WebURI,
			"https://id.gs1.org/8004/952198ASSET%2F1"},
		{"ginc urn", spec(GINC, "952198", 6, serial.Static("XYZ")), URN,
			"urn:epc:id:ginc:952198.XYZ"},
		{"ginc web uri", spec(GINC, "952198", 6, serial.Static("XYZ")), WebURI,
			"https://id.gs1.org/401/952198XYZ"},
		{"cpi urn", spec(CPI, "95219812345-A", 6, serial.Range(3)), URN,
			"urn:epc:id:cpi:952198.12345-A.3"},
		{"cpi web uri", spec(CPI, "95219812345-A", 6, serial.Range(3)), WebURI,
			"https://id.gs1.org/8010/95219812345-A/8011/3"},
		{"adi", spec(ADI, "2S19412345A1", 5, serial.Static("#1")), URN,
			"urn:epc:id:adi:2S194.12345A1.%231"},
		{"bic", spec(BIC, "CSQU", 0, serial.Static("305438")), URN,
			"urn:epc:id:bic:CSQU3054383"},
		{"bic pads serial", spec(BIC, "CSQU", 0, serial.Range(1)), URN,
			"urn:epc:id:bic:CSQU000001" + bicDigit(t, "CSQU000001")},
		{"gid", spec(GID, "9510000012345", 8, serial.Static("400")), URN,
			"urn:epc:id:gid:95100000.12345.400"},
		{"imovn", spec(IMOVN, "9074", 0, serial.Range(72)), URN,
			"urn:epc:id:imovn:9074729"},
		{"usdod", spec(USDoD, "2S194", 0, serial.Range(1)), URN,
			"urn:epc:id:usdod:2S194.1"},
		{"manual template", spec(ManualURI, "https://example.com/item/${serial}", 0, serial.Range(9)), URN,
			"https://example.com/item/9"},
		{"manual without placeholder appends serial", spec(ManualURI, "urn:example:item:", 0, serial.Range(9)), URN,
			"urn:example:item:9"},
		{"manual fixed uri", spec(ManualURI, "urn:example:fixed", 0, serial.Policy{}), URN,
			"urn:example:fixed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Instances(serial.New(1), tt.syntax, 1, "")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func bicDigit(t *testing.T, code string) string {
	t.Helper()
	cd, err := containerCheckDigit(code)
	require.NoError(t, err)
	return string(cd)
}

func TestInstances_NonGS1IgnoresWebURI(t *testing.T) {
	for _, s := range []*Spec{
		spec(BIC, "CSQU", 0, serial.Static("305438")),
		spec(USDoD, "2S194", 0, serial.Range(1)),
		spec(GID, "9510000012345", 8, serial.Range(1)),
	} {
		got, err := s.Instances(serial.New(1), WebURI, 1, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got[0], "urn:epc:id:"), got[0])
	}
}

func TestInstances_CustomBase(t *testing.T) {
	s := spec(SGTIN, "09521987654327", 6, serial.Range(1))
	got, err := s.Instances(serial.New(1), WebURI, 1, "https://example.org/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/01/09521987654327/21/1", got[0])
}

// Every Digital Link key carries a valid check digit at its fixed length.
func TestInstances_DigitalLinkKeys(t *testing.T) {
	tests := []struct {
		spec   *Spec
		ai     string
		keyLen int
	}{
		{spec(SGTIN, "09521987654327", 6, serial.Random(1, 20, serial.URLSafe)), "01", 14},
		{spec(SGTIN, "00614141123452", 7, serial.Range(1)), "01", 14},
		{spec(UPUI, "09521987654327", 6, serial.Random(1, 28, serial.Alphanumeric)), "01", 14},
		{spec(ITIP, "095219876543270102", 6, serial.Range(1)), "8006", 14},
		{spec(GRAI, "9521981234560", 6, serial.Random(1, 16, serial.Alphanumeric)), "8003", 14},
		{spec(GDTI, "9521981234560", 6, serial.Range(1)), "253", 13},
		{spec(GCN, "9521981234560", 6, serial.Range(1)), "255", 13},
		{spec(SSCC, "0952198", 6, serial.Random(1, 10, serial.Numeric)), "00", 18},
		{spec(SSCC, "3061414112", 9, serial.Range(1)), "00", 18},
		{spec(GSIN, "952198", 6, serial.Range(1)), "402", 17},
		{spec(GSRN, "952198765432", 12, serial.Range(1)), "8018", 18},
		{spec(GSRNP, "952198", 6, serial.Range(1)), "8017", 18},
	}

	a := serial.New(99)
	for _, tt := range tests {
		t.Run(string(tt.spec.Kind), func(t *testing.T) {
			require.NoError(t, tt.spec.Validate(RoleInstance))
			ids, err := tt.spec.Instances(a, WebURI, 25, "")
			require.NoError(t, err)
			require.Len(t, ids, 25)

			prefix := DefaultDigitalLinkBase + "/" + tt.ai + "/"
			for _, id := range ids {
				require.True(t, strings.HasPrefix(id, prefix), id)
				rest := id[len(prefix):]
				require.GreaterOrEqual(t, len(rest), tt.keyLen, id)
				key := rest[:tt.keyLen]
				assert.True(t, isDigits(key), id)
				assert.True(t, VerifyCheckDigit(key), id)
			}
		})
	}
}

func TestInstances_PaddedLengths(t *testing.T) {
	s := spec(SSCC, "0952198", 6, serial.Range(123))
	ids, err := s.Instances(serial.New(1), URN, 3, "")
	require.NoError(t, err)
	for _, id := range ids {
		ref := id[strings.LastIndex(id, ".")+1:]
		assert.Len(t, ref, 11, id)
	}
	assert.Equal(t, "urn:epc:id:sscc:952198.00000000125", ids[2])
}

func TestInstances_CountZero(t *testing.T) {
	s := spec(SGTIN, "09521987654327", 6, serial.Range(1))
	got, err := s.Instances(serial.New(1), URN, 0, "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(1), *s.RangeFrom)

	classes, err := spec(GTIN, "09521987654327", 6, serial.Policy{}).Classes(serial.New(1), URN, -1, "", nil)
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestInstances_Overflow(t *testing.T) {
	s := spec(SSCC, "0952198", 6, serial.Range(9999999999))
	_, err := s.Instances(serial.New(1), URN, 2, "")
	assert.ErrorIs(t, err, ErrOverflow)

	s = spec(SGTIN, "09521987654327", 6, serial.Random(21, 21, serial.Numeric))
	assert.ErrorIs(t, s.Validate(RoleInstance), ErrOverflow)
}

func TestInstances_Deterministic(t *testing.T) {
	run := func() []string {
		s := spec(SGTIN, "09521987654327", 6, serial.Random(4, 12, serial.URLSafe))
		ids, err := s.Instances(serial.New(7), WebURI, 10, "")
		require.NoError(t, err)
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestInstances_StaticWithoutValue(t *testing.T) {
	s := spec(SGTIN, "09521987654327", 6, serial.Policy{Type: serial.TypeStatic})
	_, err := s.Instances(serial.New(1), URN, 1, "")
	assert.ErrorIs(t, err, serial.ErrMissingParameter)
}

func TestClasses(t *testing.T) {
	tests := []struct {
		name     string
		spec     *Spec
		syntax   Syntax
		count    int
		override *float64
		want     []epcis.QuantityElement
	}{
		{
			name:   "lgtin static lot yields one entry",
			spec:   &Spec{Kind: LGTIN, Value: "09521987654327", GCPLength: 6, Policy: serial.Static("LOT1"), Quantity: ptr(10), UOM: "KGM"},
			syntax: URN,
			count:  3,
			want:   []epcis.QuantityElement{{EPCClass: "urn:epc:class:lgtin:952198.0765432.LOT1", Quantity: ptr(10), UOM: "KGM"}},
		},
		{
			name:   "lgtin range lots",
			spec:   &Spec{Kind: LGTIN, Value: "09521987654327", GCPLength: 6, Policy: serial.Range(1)},
			syntax: WebURI,
			count:  2,
			want: []epcis.QuantityElement{
				{EPCClass: "https://id.gs1.org/01/09521987654327/10/1"},
				{EPCClass: "https://id.gs1.org/01/09521987654327/10/2"},
			},
		},
		{
			name:     "gtin pattern with override",
			spec:     &Spec{Kind: GTIN, Value: "09521987654327", GCPLength: 6, Quantity: ptr(5), UOM: "EA"},
			syntax:   URN,
			count:    4,
			override: ptr(2),
			want:     []epcis.QuantityElement{{EPCClass: "urn:epc:idpat:sgtin:952198.0765432.*", Quantity: ptr(2), UOM: "EA"}},
		},
		{
			name:   "gtin web uri",
			spec:   &Spec{Kind: GTIN, Value: "09521987654327", GCPLength: 6, Quantity: ptr(1)},
			syntax: WebURI,
			count:  1,
			want:   []epcis.QuantityElement{{EPCClass: "https://id.gs1.org/01/09521987654327", Quantity: ptr(1)}},
		},
		{
			name:   "grai is not measured",
			spec:   &Spec{Kind: GRAI, Value: "9521981234560", GCPLength: 6, Quantity: ptr(3), UOM: "KGM"},
			syntax: URN,
			count:  1,
			want:   []epcis.QuantityElement{{EPCClass: "urn:epc:idpat:grai:952198.123456.*", Quantity: ptr(3)}},
		},
		{
			name:   "grai web uri",
			spec:   &Spec{Kind: GRAI, Value: "9521981234560", GCPLength: 6},
			syntax: WebURI,
			count:  1,
			want:   []epcis.QuantityElement{{EPCClass: "https://id.gs1.org/8003/09521981234563"}},
		},
		{
			name:   "itip pattern",
			spec:   &Spec{Kind: ITIP, Value: "095219876543270102", GCPLength: 6},
			syntax: URN,
			count:  1,
			want:   []epcis.QuantityElement{{EPCClass: "urn:epc:idpat:itip:952198.0765432.01.02.*"}},
		},
		{
			name:   "cpi pattern",
			spec:   &Spec{Kind: CPI, Value: "95219812345-A", GCPLength: 6},
			syntax: WebURI,
			count:  1,
			want:   []epcis.QuantityElement{{EPCClass: "https://id.gs1.org/8010/95219812345-A"}},
		},
		{
			name:   "manual class with lots",
			spec:   &Spec{Kind: ManualURI, Value: "urn:example:lot:${serial}", Policy: serial.Range(1), Quantity: ptr(1), UOM: "EA"},
			syntax: URN,
			count:  2,
			want: []epcis.QuantityElement{
				{EPCClass: "urn:example:lot:1", Quantity: ptr(1), UOM: "EA"},
				{EPCClass: "urn:example:lot:2", Quantity: ptr(1), UOM: "EA"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Classes(serial.New(1), tt.syntax, tt.count, "", tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClasses_QuantityNotAliased(t *testing.T) {
	s := &Spec{Kind: LGTIN, Value: "09521987654327", GCPLength: 6, Policy: serial.Range(1), Quantity: ptr(4)}
	got, err := s.Classes(serial.New(1), URN, 2, "", nil)
	require.NoError(t, err)
	*got[0].Quantity = 99
	assert.Equal(t, 4.0, *got[1].Quantity)
	assert.Equal(t, 4.0, *s.Quantity)
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    *Spec
		role    Role
		wantErr error
	}{
		{"valid sgtin", spec(SGTIN, "09521987654327", 6, serial.Range(1)), RoleInstance, nil},
		{"unknown kind", spec("SGLN", "09521987654327", 6, serial.Range(1)), RoleInstance, ErrUnknownKind},
		{"sscc as class", spec(SSCC, "0952198", 6, serial.Range(1)), RoleClass, ErrUnsupportedRole},
		{"lgtin as instance", spec(LGTIN, "09521987654327", 6, serial.Range(1)), RoleInstance, ErrUnsupportedRole},
		{"short gtin", spec(SGTIN, "952198765432", 6, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"non-digit gtin", spec(SGTIN, "0952198765432X", 6, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"gcp too short", spec(SGTIN, "09521987654327", 5, serial.Range(1)), RoleInstance, ErrInvalidPrefix},
		{"gcp too long", spec(GRAI, "9521981234560", 13, serial.Range(1)), RoleInstance, ErrInvalidPrefix},
		{"sscc missing extension", spec(SSCC, "952198", 6, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"sscc alphanumeric serial", spec(SSCC, "0952198", 6, serial.Random(1, 5, serial.Alphanumeric)), RoleInstance, ErrInvalidValue},
		{"sscc static overflow", spec(SSCC, "0952198", 6, serial.Static("12345678901")), RoleInstance, ErrOverflow},
		{"giai total overflow", spec(GIAI, "952198", 6, serial.Random(1, 25, serial.Alphanumeric)), RoleInstance, ErrOverflow},
		{"range without from", spec(SGTIN, "09521987654327", 6, serial.Policy{Type: serial.TypeRange}), RoleInstance, serial.ErrMissingParameter},
		{"gtin class ignores policy", spec(GTIN, "09521987654327", 6, serial.Policy{Type: serial.TypeRange}), RoleClass, nil},
		{"bic bad category", spec(BIC, "CSQX", 0, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"imovn too long", spec(IMOVN, "1234567", 0, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"adi bad cage length", spec(ADI, "2S19412345", 4, serial.Range(1)), RoleInstance, ErrInvalidPrefix},
		{"usdod lowercase", spec(USDoD, "2s194", 0, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"cpi bad part", spec(CPI, "952198abc", 6, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"manual empty", spec(ManualURI, "", 0, serial.Range(1)), RoleInstance, ErrInvalidValue},
		{"manual fixed", spec(ManualURI, "urn:example:x", 0, serial.Policy{}), RoleClass, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate(tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKind_Roles(t *testing.T) {
	instance := []Kind{SGTIN, SSCC, GRAI, GDTI, GCN, GIAI, GSRN, GSRNP, GSIN, GINC, ITIP, UPUI, CPI, ADI, BIC, GID, IMOVN, USDoD, ManualURI}
	class := []Kind{LGTIN, GTIN, GRAI, GDTI, GCN, CPI, ITIP, UPUI, ManualURI}

	for _, k := range instance {
		assert.True(t, k.Supports(RoleInstance), k)
	}
	for _, k := range class {
		assert.True(t, k.Supports(RoleClass), k)
	}
	assert.Len(t, kinds, 21)
	assert.False(t, Kind("SGLN").Valid())
	assert.False(t, BIC.HasDigitalLink())
	assert.True(t, SSCC.HasDigitalLink())
}
