// Package epcis defines the event records produced by the generator.
//
// Field names follow the EPCIS 2.0 JSON binding so that an Event can be
// handed to any JSON encoder without a mapping layer. Serialisation into
// documents, XML or other EPCIS versions is left to callers.
package epcis

import (
	"fmt"
	"time"
)

// EventType is the EPCIS event type tag.
type EventType string

const (
	ObjectEvent         EventType = "ObjectEvent"
	AggregationEvent    EventType = "AggregationEvent"
	TransactionEvent    EventType = "TransactionEvent"
	TransformationEvent EventType = "TransformationEvent"
	AssociationEvent    EventType = "AssociationEvent"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case ObjectEvent, AggregationEvent, TransactionEvent, TransformationEvent, AssociationEvent:
		return true
	}
	return false
}

// HasParent reports whether events of this type carry a parentID.
func (t EventType) HasParent() bool {
	return t == AggregationEvent || t == TransactionEvent || t == AssociationEvent
}

// HasAction reports whether events of this type carry an action.
func (t EventType) HasAction() bool {
	return t != TransformationEvent
}

// Action is the EPCIS action field.
type Action string

const (
	ActionAdd     Action = "ADD"
	ActionObserve Action = "OBSERVE"
	ActionDelete  Action = "DELETE"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionAdd || a == ActionObserve || a == ActionDelete
}

// QuantityElement is a class-level identifier with an optional quantity.
type QuantityElement struct {
	EPCClass string   `json:"epcClass"`
	Quantity *float64 `json:"quantity,omitempty"`
	UOM      string   `json:"uom,omitempty"`
}

// Location is a readPoint or bizLocation.
type Location struct {
	ID string `json:"id" yaml:"id"`
}

// BizTransaction is one entry of bizTransactionList.
type BizTransaction struct {
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Value string `json:"bizTransaction" yaml:"bizTransaction"`
}

// SourceDest is one entry of sourceList or destinationList.
type SourceDest struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Event is one fully-populated EPCIS event.
type Event struct {
	Type                EventType `json:"type"`
	EventID             string    `json:"eventID"`
	EventTime           time.Time `json:"eventTime"`
	EventTimeZoneOffset string    `json:"eventTimeZoneOffset"`
	Action              Action    `json:"action,omitempty"`
	BizStep             string    `json:"bizStep,omitempty"`
	Disposition         string    `json:"disposition,omitempty"`
	ReadPoint           *Location `json:"readPoint,omitempty"`
	BizLocation         *Location `json:"bizLocation,omitempty"`

	ParentID          string            `json:"parentID,omitempty"`
	EPCList           []string          `json:"epcList,omitempty"`
	QuantityList      []QuantityElement `json:"quantityList,omitempty"`
	ChildEPCs         []string          `json:"childEPCs,omitempty"`
	ChildQuantityList []QuantityElement `json:"childQuantityList,omitempty"`

	InputEPCList       []string          `json:"inputEPCList,omitempty"`
	InputQuantityList  []QuantityElement `json:"inputQuantityList,omitempty"`
	OutputEPCList      []string          `json:"outputEPCList,omitempty"`
	OutputQuantityList []QuantityElement `json:"outputQuantityList,omitempty"`
	TransformationID   string            `json:"transformationID,omitempty"`

	BizTransactionList []BizTransaction `json:"bizTransactionList,omitempty"`
	SourceList         []SourceDest     `json:"sourceList,omitempty"`
	DestinationList    []SourceDest     `json:"destinationList,omitempty"`

	// NodeID is the template node that produced the event. It is not part
	// of the EPCIS payload.
	NodeID int `json:"-"`
}

// AddEPCs appends instance identifiers to the event's primary EPC slot.
func (e *Event) AddEPCs(ids ...string) {
	if len(ids) == 0 {
		return
	}
	switch e.Type {
	case AggregationEvent, AssociationEvent:
		e.ChildEPCs = append(e.ChildEPCs, ids...)
	case TransformationEvent:
		e.InputEPCList = append(e.InputEPCList, ids...)
	default:
		e.EPCList = append(e.EPCList, ids...)
	}
}

// AddQuantities appends class identifiers to the event's primary quantity slot.
func (e *Event) AddQuantities(qs ...QuantityElement) {
	if len(qs) == 0 {
		return
	}
	switch e.Type {
	case AggregationEvent, AssociationEvent:
		e.ChildQuantityList = append(e.ChildQuantityList, qs...)
	case TransformationEvent:
		e.InputQuantityList = append(e.InputQuantityList, qs...)
	default:
		e.QuantityList = append(e.QuantityList, qs...)
	}
}

// AddOutputs appends to the output lists of a transformation event.
func (e *Event) AddOutputs(ids []string, qs []QuantityElement) {
	e.OutputEPCList = append(e.OutputEPCList, ids...)
	e.OutputQuantityList = append(e.OutputQuantityList, qs...)
}

// Instances returns the identifiers downstream events inherit as EPCs:
// the outputs of a transformation, the children of an aggregation or
// association, and the epcList otherwise.
func (e *Event) Instances() []string {
	switch e.Type {
	case AggregationEvent, AssociationEvent:
		return e.ChildEPCs
	case TransformationEvent:
		return e.OutputEPCList
	default:
		return e.EPCList
	}
}

// Classes is the quantity counterpart of Instances.
func (e *Event) Classes() []QuantityElement {
	switch e.Type {
	case AggregationEvent, AssociationEvent:
		return e.ChildQuantityList
	case TransformationEvent:
		return e.OutputQuantityList
	default:
		return e.QuantityList
	}
}

// Parents returns the parentID as a list (empty when unset).
func (e *Event) Parents() []string {
	if e.ParentID == "" {
		return nil
	}
	return []string{e.ParentID}
}

// Validate checks the structural rules EPCIS places on each event type.
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.EventID == "" {
		return fmt.Errorf("%s: eventID is required", e.Type)
	}
	if e.Type.HasAction() && !e.Action.Valid() {
		return fmt.Errorf("%s: invalid action %q", e.Type, e.Action)
	}
	if !e.Type.HasAction() && e.Action != "" {
		return fmt.Errorf("%s: action is not allowed", e.Type)
	}
	if e.Type == AggregationEvent && e.Action != ActionObserve && e.ParentID == "" {
		return fmt.Errorf("%s: parentID is required for action %s", e.Type, e.Action)
	}
	if e.Type == AssociationEvent && e.ParentID == "" {
		return fmt.Errorf("%s: parentID is required", e.Type)
	}
	return nil
}
