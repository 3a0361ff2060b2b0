package epcisgen

import (
	"context"
	"testing"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
)

// Test fixtures used across tests

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func testCtx() context.Context { return context.Background() }

func intPtr(v int) *int { return &v }

func sgtinIdentifier(id int, from int64) identifier.Node {
	return identifier.Node{
		ID:     id,
		Syntax: identifier.WebURI,
		Instance: &identifier.Spec{
			Kind:      identifier.SGTIN,
			Value:     "09521987654327",
			GCPLength: 6,
			Policy:    serial.Range(from),
		},
	}
}

func ssccIdentifier(id int, from int64) identifier.Node {
	return identifier.Node{
		ID: id,
		Instance: &identifier.Spec{
			Kind:      identifier.SSCC,
			Value:     "0952198",
			GCPLength: 6,
			Policy:    serial.Range(from),
		},
	}
}

func objectNode(id, count int, refs ...Reference) EventNode {
	return EventNode{NodeID: id, EventType: epcis.ObjectEvent, EventCount: count, ReferencedIdentifiers: refs}
}

func aggregationNode(id, count int, parent *Reference, refs ...Reference) EventNode {
	return EventNode{NodeID: id, EventType: epcis.AggregationEvent, EventCount: count, ParentReference: parent, ReferencedIdentifiers: refs}
}

// sgtinTemplate is one ObjectEvent root emitting 2 events of 4 SGTINs.
func sgtinTemplate() *Template {
	return &Template{
		Identifiers: []identifier.Node{sgtinIdentifier(1, 1)},
		Events:      []EventNode{objectNode(1, 2, FromIdentifier(1, 4, 0))},
	}
}

// aggregationTemplate adds two aggregations per object event, each taking
// 2 of its EPCs and a fresh SSCC as parent.
func aggregationTemplate() *Template {
	tmpl := sgtinTemplate()
	tmpl.Identifiers = append(tmpl.Identifiers, ssccIdentifier(2, 1))
	parent := FromIdentifier(2, 0, 0)
	tmpl.Events = append(tmpl.Events, aggregationNode(2, 2, &parent, FromNode(1, 2, 0)))
	return tmpl
}

func mustCompile(t testing.TB, tmpl *Template) *Graph {
	t.Helper()
	g, err := Compile(tmpl)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return g
}

func nodeIDs(events []*epcis.Event) []int {
	ids := make([]int, len(events))
	for i, e := range events {
		ids[i] = e.NodeID
	}
	return ids
}
