package epcisgen

import (
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
)

// Template is the parsed input to a generation run: the event graph, the
// identifier pool and an optional seed.
type Template struct {
	Events      []EventNode       `yaml:"eventNodes" json:"eventNodes"`
	Identifiers []identifier.Node `yaml:"identifiers" json:"identifiers"`
	RandomSeed  *int64            `yaml:"randomSeed,omitempty" json:"randomSeed,omitempty"`
}

// EventNode describes one event-producing point in the graph.
//
// A node whose references never name a ParentNodeID is a root: it emits
// one event per production step until EventCount is spent. Any other node
// emits EventCount events each time its upstream join completes.
//
// ReadPoint, BizLocation, business transaction values and source/destination
// values may contain ${nodeId}, ${eventIndex} and ${round} placeholders.
type EventNode struct {
	NodeID     int             `yaml:"nodeId" json:"nodeId"`
	EventType  epcis.EventType `yaml:"eventType" json:"eventType"`
	EventCount int             `yaml:"eventCount" json:"eventCount"`

	Action          epcis.Action           `yaml:"action,omitempty" json:"action,omitempty"`
	BizStep         string                 `yaml:"bizStep,omitempty" json:"bizStep,omitempty"`
	Disposition     string                 `yaml:"disposition,omitempty" json:"disposition,omitempty"`
	ReadPoint       string                 `yaml:"readPoint,omitempty" json:"readPoint,omitempty"`
	BizLocation     string                 `yaml:"bizLocation,omitempty" json:"bizLocation,omitempty"`
	EventTime       EventTimeSpec          `yaml:"eventTime,omitempty" json:"eventTime,omitempty"`
	BizTransactions []epcis.BizTransaction `yaml:"bizTransactions,omitempty" json:"bizTransactions,omitempty"`
	Sources         []epcis.SourceDest     `yaml:"sources,omitempty" json:"sources,omitempty"`
	Destinations    []epcis.SourceDest     `yaml:"destinations,omitempty" json:"destinations,omitempty"`

	ReferencedIdentifiers []Reference `yaml:"referencedIdentifiers,omitempty" json:"referencedIdentifiers,omitempty"`
	ParentReference       *Reference  `yaml:"parentReference,omitempty" json:"parentReference,omitempty"`
	OutputReferences      []Reference `yaml:"outputReferences,omitempty" json:"outputReferences,omitempty"`
}

// Reference pulls identifiers into an event, either freshly formatted from
// an identifier node (IdentifierID) or sliced from the events of an
// upstream event node (ParentNodeID). Exactly one of the two is set.
type Reference struct {
	IdentifierID *int `yaml:"identifierId,omitempty" json:"identifierId,omitempty"`
	ParentNodeID *int `yaml:"parentNodeId,omitempty" json:"parentNodeId,omitempty"`

	EPCCount   int `yaml:"epcCount,omitempty" json:"epcCount,omitempty"`
	ClassCount int `yaml:"classCount,omitempty" json:"classCount,omitempty"`
	// InheritParentCount moves that many of the upstream event's parent
	// identifiers into this event's EPCs. Only valid with ParentNodeID.
	InheritParentCount int `yaml:"inheritParentCount,omitempty" json:"inheritParentCount,omitempty"`

	// Quantity overrides the quantity of every class identifier pulled.
	Quantity *float64 `yaml:"quantity,omitempty" json:"quantity,omitempty"`
}

// FromIdentifier returns a reference to identifier node id.
func FromIdentifier(id, epcCount, classCount int) Reference {
	return Reference{IdentifierID: &id, EPCCount: epcCount, ClassCount: classCount}
}

// FromNode returns a reference inheriting from event node id.
func FromNode(id, epcCount, classCount int) Reference {
	return Reference{ParentNodeID: &id, EPCCount: epcCount, ClassCount: classCount}
}

// EventTimeSpec selects how event times are generated: a fixed time, a
// uniformly random time in [From, To], or the run clock when neither is
// set. TimeZoneOffset defaults to "+00:00".
type EventTimeSpec struct {
	Specific       *time.Time `yaml:"specificTime,omitempty" json:"specificTime,omitempty"`
	From           *time.Time `yaml:"fromTime,omitempty" json:"fromTime,omitempty"`
	To             *time.Time `yaml:"toTime,omitempty" json:"toTime,omitempty"`
	TimeZoneOffset string     `yaml:"timeZoneOffset,omitempty" json:"timeZoneOffset,omitempty"`
}

// upstreams returns the distinct parent node ids named by the node's
// references, in first-reference order.
func (n *EventNode) upstreams() []int {
	var ids []int
	seen := make(map[int]bool)
	for _, ref := range n.references() {
		if ref.ParentNodeID != nil && !seen[*ref.ParentNodeID] {
			seen[*ref.ParentNodeID] = true
			ids = append(ids, *ref.ParentNodeID)
		}
	}
	return ids
}

// references returns every reference of the node in build order.
func (n *EventNode) references() []Reference {
	refs := make([]Reference, 0, len(n.ReferencedIdentifiers)+len(n.OutputReferences)+1)
	refs = append(refs, n.ReferencedIdentifiers...)
	if n.ParentReference != nil {
		refs = append(refs, *n.ParentReference)
	}
	return append(refs, n.OutputReferences...)
}
