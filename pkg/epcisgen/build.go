package epcisgen

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
)

// build constructs the next event of h. lineage holds the upstream
// trackers the event inherits from; it is empty for root events.
func (r *Run) build(ctx context.Context, h *handler, lineage map[int]*Tracker) (*epcis.Event, error) {
	n := h.node

	id, err := r.newID()
	if err != nil {
		return nil, err
	}
	e := &epcis.Event{
		Type:        n.EventType,
		EventID:     id,
		Action:      n.Action,
		BizStep:     n.BizStep,
		Disposition: n.Disposition,
		NodeID:      n.NodeID,
	}
	if e.Type.HasAction() && e.Action == "" {
		e.Action = epcis.ActionAdd
	}

	e.EventTime, e.EventTimeZoneOffset, err = r.eventTime(n.EventTime)
	if err != nil {
		return nil, err
	}

	x := r.fields(n, h.produced)
	if n.ReadPoint != "" {
		e.ReadPoint = &epcis.Location{ID: x.expand(n.ReadPoint)}
	}
	if n.BizLocation != "" {
		e.BizLocation = &epcis.Location{ID: x.expand(n.BizLocation)}
	}
	for _, bt := range n.BizTransactions {
		bt.Value = x.expand(bt.Value)
		e.BizTransactionList = append(e.BizTransactionList, bt)
	}
	for _, sd := range n.Sources {
		sd.Value = x.expand(sd.Value)
		e.SourceList = append(e.SourceList, sd)
	}
	for _, sd := range n.Destinations {
		sd.Value = x.expand(sd.Value)
		e.DestinationList = append(e.DestinationList, sd)
	}
	if x.err != nil {
		return nil, x.err
	}

	for _, ref := range n.ReferencedIdentifiers {
		ids, qs, err := r.resolve(ctx, ref, lineage)
		if err != nil {
			return nil, err
		}
		e.AddEPCs(ids...)
		e.AddQuantities(qs...)
	}

	if n.ParentReference != nil {
		e.ParentID, err = r.resolveParent(ctx, *n.ParentReference, lineage)
		if err != nil {
			return nil, err
		}
	}

	for _, ref := range n.OutputReferences {
		ids, qs, err := r.resolve(ctx, ref, lineage)
		if err != nil {
			return nil, err
		}
		e.AddOutputs(ids, qs)
	}

	if e.Type == epcis.TransformationEvent {
		if e.TransformationID, err = r.newID(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// resolve returns the instance and class identifiers a reference pulls
// into an event.
func (r *Run) resolve(ctx context.Context, ref Reference, lineage map[int]*Tracker) ([]string, []epcis.QuantityElement, error) {
	if ref.IdentifierID != nil {
		node, err := r.identifiers.Lookup(*ref.IdentifierID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrUnknownIdentifier, err)
		}
		ids, err := node.Instances(r.alloc, ref.EPCCount, r.cfg.baseURL)
		if err != nil {
			return nil, nil, wrapIdentifier(node, err)
		}
		qs, err := node.Classes(r.alloc, ref.ClassCount, r.cfg.baseURL, ref.Quantity)
		if err != nil {
			return nil, nil, wrapIdentifier(node, err)
		}
		r.recordIdentifiers(ctx, node.Instance, len(ids))
		r.recordIdentifiers(ctx, node.Class, len(qs))
		return ids, qs, nil
	}

	t, err := r.upstream(*ref.ParentNodeID, lineage)
	if err != nil {
		return nil, nil, err
	}
	ids := t.NextInstances(ref.EPCCount)
	qs := t.NextClasses(ref.ClassCount)
	if ref.Quantity != nil {
		for i := range qs {
			q := *ref.Quantity
			qs[i].Quantity = &q
		}
	}
	ids = append(ids, t.NextParents(ref.InheritParentCount)...)
	return ids, qs, nil
}

// resolveParent returns the parentID for an event. An upstream event
// without a parentID of its own lends one of its instance identifiers.
func (r *Run) resolveParent(ctx context.Context, ref Reference, lineage map[int]*Tracker) (string, error) {
	if ref.IdentifierID != nil {
		node, err := r.identifiers.Lookup(*ref.IdentifierID)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnknownIdentifier, err)
		}
		ps, err := node.Parents(r.alloc, 1, r.cfg.baseURL)
		if err != nil {
			return "", wrapIdentifier(node, err)
		}
		spec := node.Parent
		if spec == nil {
			spec = node.Instance
		}
		r.recordIdentifiers(ctx, spec, len(ps))
		return ps[0], nil
	}

	t, err := r.upstream(*ref.ParentNodeID, lineage)
	if err != nil {
		return "", err
	}
	ps := t.NextParents(1)
	if len(t.parents) == 0 {
		ps = t.NextInstances(1)
	}
	if len(ps) == 0 {
		return "", nil
	}
	return ps[0], nil
}

func (r *Run) upstream(id int, lineage map[int]*Tracker) (*Tracker, error) {
	t, ok := lineage[id]
	if !ok {
		return nil, fmt.Errorf("%w: no event from node %d to inherit from", ErrUnknownNode, id)
	}
	return t, nil
}

func (r *Run) recordIdentifiers(ctx context.Context, spec *identifier.Spec, count int) {
	if spec == nil || count == 0 {
		return
	}
	r.cfg.metrics.RecordIdentifiers(ctx, string(spec.Kind), count)
}

// newID returns a urn:uuid event id drawn from the run's allocator, so
// seeded runs repeat their ids.
func (r *Run) newID() (string, error) {
	u, err := uuid.NewRandomFromReader(r.alloc)
	if err != nil {
		return "", err
	}
	return "urn:uuid:" + u.String(), nil
}

// eventTime picks the event time: the configured time, a random
// millisecond in [from, to], or the run clock.
func (r *Run) eventTime(s EventTimeSpec) (time.Time, string, error) {
	offset := s.TimeZoneOffset
	if offset == "" {
		offset = defaultOffset
	}
	loc, err := parseOffset(offset)
	if err != nil {
		return time.Time{}, "", err
	}

	var t time.Time
	switch {
	case s.Specific != nil:
		t = *s.Specific
	case s.From != nil && s.To != nil:
		span := s.To.Sub(*s.From).Milliseconds()
		t = s.From.Add(time.Duration(r.alloc.Int63n(span+1)) * time.Millisecond)
	default:
		t = r.cfg.clock()
	}
	return t.In(loc), offset, nil
}

// fieldExpander fills ${nodeId}, ${eventIndex} and ${round} in free-text
// event fields. The first error sticks.
type fieldExpander struct {
	r    *Run
	vars map[string]string
	err  error
}

func (r *Run) fields(n *EventNode, index int) *fieldExpander {
	return &fieldExpander{
		r: r,
		vars: map[string]string{
			"nodeId":     strconv.Itoa(n.NodeID),
			"eventIndex": strconv.Itoa(index),
			"round":      strconv.Itoa(r.round),
		},
	}
}

func (x *fieldExpander) expand(s string) string {
	if x.err != nil {
		return s
	}
	out, err := x.r.expander.Expand(s, x.vars)
	if err != nil {
		x.err = err
		return s
	}
	return out
}

func wrapIdentifier(n *identifier.Node, err error) error {
	return fmt.Errorf("identifier %d: %w", n.ID, err)
}
