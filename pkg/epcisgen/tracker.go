package epcisgen

import (
	"maps"
	"slices"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
)

// Tracker carries the identifiers of one produced event to the nodes
// downstream of it. Each identifier list has its own cursor, so children
// of the same event draw consecutive slices until the list runs short.
//
// Trackers are shared by every consumer of a run; their cursors advance
// once per production, never per subscription.
type Tracker struct {
	NodeID int
	Event  *epcis.Event

	instances []string
	classes   []epcis.QuantityElement
	parents   []string

	instanceCursor int
	classCursor    int
	parentCursor   int

	// lineage maps every node on the path to this event, this one included,
	// to the tracker it produced.
	lineage map[int]*Tracker
}

// NewTracker wraps e. parentLineage is the merged lineage of the trackers
// that e was built from, or nil for root events.
func NewTracker(nodeID int, e *epcis.Event, parentLineage map[int]*Tracker) *Tracker {
	t := &Tracker{
		NodeID:    nodeID,
		Event:     e,
		instances: e.Instances(),
		classes:   e.Classes(),
		parents:   e.Parents(),
		lineage:   make(map[int]*Tracker, len(parentLineage)+1),
	}
	maps.Copy(t.lineage, parentLineage)
	t.lineage[nodeID] = t
	return t
}

// NextInstances returns the next count instance identifiers.
func (t *Tracker) NextInstances(count int) []string {
	return next(t.instances, &t.instanceCursor, count)
}

// NextClasses returns the next count class identifiers.
func (t *Tracker) NextClasses(count int) []epcis.QuantityElement {
	return next(t.classes, &t.classCursor, count)
}

// NextParents returns the next count parent identifiers.
func (t *Tracker) NextParents(count int) []string {
	return next(t.parents, &t.parentCursor, count)
}

// Lineage returns the tracker produced by nodeID on the path to this one.
func (t *Tracker) Lineage(nodeID int) (*Tracker, bool) {
	lt, ok := t.lineage[nodeID]
	return lt, ok
}

// next slices count items from list at *cursor. When fewer than count
// items remain, distribution restarts from the front: the first count
// items (or the whole list when it is shorter) are returned and the cursor
// resets to 0. Earlier and later consumers then share identifiers.
func next[T any](list []T, cursor *int, count int) []T {
	if count <= 0 {
		return nil
	}
	c := *cursor
	switch {
	case len(list) >= c+count:
		*cursor = c + count
		return slices.Clone(list[c : c+count])
	case len(list) >= count:
		*cursor = 0
		return slices.Clone(list[:count])
	default:
		*cursor = 0
		return slices.Clone(list)
	}
}

// mergeLineage combines the lineage of trackers joined for one production.
// Later trackers win on overlap.
func mergeLineage(trackers []*Tracker) map[int]*Tracker {
	merged := make(map[int]*Tracker)
	for _, t := range trackers {
		maps.Copy(merged, t.lineage)
	}
	return merged
}
