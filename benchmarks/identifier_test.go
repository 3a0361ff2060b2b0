package benchmarks

import (
	"testing"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
)

func benchmarkInstances(b *testing.B, spec *identifier.Spec, syntax identifier.Syntax) {
	a := serial.New(1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := spec.Instances(a, syntax, 10, identifier.DefaultDigitalLinkBase); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSGTIN_URN formats 10 range-serial SGTINs as URNs.
func BenchmarkSGTIN_URN(b *testing.B) {
	spec := &identifier.Spec{Kind: identifier.SGTIN, Value: "09521987654327", GCPLength: 6, Policy: serial.Range(1)}
	benchmarkInstances(b, spec, identifier.URN)
}

// BenchmarkSGTIN_DigitalLink formats 10 random-serial SGTINs as Digital Link URIs.
func BenchmarkSGTIN_DigitalLink(b *testing.B) {
	spec := &identifier.Spec{Kind: identifier.SGTIN, Value: "09521987654327", GCPLength: 6, Policy: serial.Random(6, 12, serial.Alphanumeric)}
	benchmarkInstances(b, spec, identifier.WebURI)
}

// BenchmarkSSCC_URN formats 10 SSCCs, which need a check digit each.
func BenchmarkSSCC_URN(b *testing.B) {
	spec := &identifier.Spec{Kind: identifier.SSCC, Value: "0952198", GCPLength: 6, Policy: serial.Range(1)}
	benchmarkInstances(b, spec, identifier.URN)
}

// BenchmarkCheckDigit computes a GTIN-14 check digit.
func BenchmarkCheckDigit(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = identifier.CheckDigit("0952198765432")
	}
}
