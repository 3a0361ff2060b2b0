package epcisgen

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/registry"
)

// Compile validates the template and wires it into an immutable Graph.
// All problems found are returned together as joined *ConfigError values.
//
// Validation checks (in order):
//  1. The template has at least one event node
//  2. Identifier and event node ids are positive and unique
//  3. Event type, event count, action and event time are valid
//  4. Every reference names exactly one existing identifier or event node
//     and asks only for what that node can produce
//  5. Every referenced identifier node has valid encoding rules
//  6. Event node dependencies are acyclic
//  7. Every upstream of a node can produce at least one event
//
// Identifier nodes no event references are logged as warnings but do not
// cause compilation to fail.
func Compile(t *Template) (*Graph, error) {
	if t == nil || len(t.Events) == 0 {
		return nil, ErrEmptyTemplate
	}

	c := &compiler{
		identifiers: registry.New[int, *identifier.Node](),
		nodes:       make(map[int]*EventNode, len(t.Events)),
		referenced:  make(map[int]bool),
	}

	c.addIdentifiers(t.Identifiers)
	c.addNodes(t.Events)
	for _, n := range c.order {
		c.checkNode(n)
	}
	c.checkIdentifiers()

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	g := c.wire()
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	g.seed = t.RandomSeed
	return g, nil
}

// compiler accumulates validation errors across the whole template.
type compiler struct {
	identifiers *registry.Registry[int, *identifier.Node]
	nodes       map[int]*EventNode
	order       []*EventNode
	referenced  map[int]bool
	errs        []error
}

func (c *compiler) fail(err *ConfigError) {
	c.errs = append(c.errs, err)
}

func (c *compiler) addIdentifiers(nodes []identifier.Node) {
	for i := range nodes {
		n := &nodes[i]
		if n.ID <= 0 {
			c.fail(&ConfigError{Field: fmt.Sprintf("identifiers[%d].identifierId", i), Err: fmt.Errorf("%w: id must be positive, got %d", ErrInvalidReference, n.ID)})
			continue
		}
		if err := c.identifiers.Add(n.ID, n.Clone()); err != nil {
			c.fail(&ConfigError{IdentifierID: n.ID, Field: "identifierId", Err: ErrDuplicateID})
		}
	}
}

func (c *compiler) addNodes(nodes []EventNode) {
	for i := range nodes {
		n := nodes[i]
		if n.NodeID <= 0 {
			c.fail(&ConfigError{Field: fmt.Sprintf("eventNodes[%d].nodeId", i), Err: fmt.Errorf("%w: id must be positive, got %d", ErrInvalidNode, n.NodeID)})
			continue
		}
		if _, exists := c.nodes[n.NodeID]; exists {
			c.fail(&ConfigError{NodeID: n.NodeID, Field: "nodeId", Err: ErrDuplicateID})
			continue
		}
		c.nodes[n.NodeID] = &n
		c.order = append(c.order, &n)
	}
}

// checkNode validates one event node's own fields and references.
func (c *compiler) checkNode(n *EventNode) {
	bad := func(field string, err error) {
		c.fail(&ConfigError{NodeID: n.NodeID, Field: field, Err: err})
	}

	if !n.EventType.Valid() {
		bad("eventType", fmt.Errorf("%w: unknown event type %q", ErrInvalidNode, n.EventType))
		return
	}
	if n.EventCount < 0 {
		bad("eventCount", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidNode, n.EventCount))
	}
	if n.Action != "" {
		switch {
		case !n.EventType.HasAction():
			bad("action", fmt.Errorf("%w: %s has no action", ErrInvalidNode, n.EventType))
		case !n.Action.Valid():
			bad("action", fmt.Errorf("%w: unknown action %q", ErrInvalidNode, n.Action))
		}
	}
	if err := n.EventTime.validate(); err != nil {
		bad("eventTime", err)
	}

	for i, ref := range n.ReferencedIdentifiers {
		c.checkReference(n, ref, fmt.Sprintf("referencedIdentifiers[%d]", i), false)
	}
	if n.ParentReference != nil {
		if !n.EventType.HasParent() {
			bad("parentReference", fmt.Errorf("%w: %s has no parentID", ErrInvalidReference, n.EventType))
		} else {
			c.checkReference(n, *n.ParentReference, "parentReference", true)
		}
	}
	if len(n.OutputReferences) > 0 && n.EventType != epcis.TransformationEvent {
		bad("outputReferences", fmt.Errorf("%w: only TransformationEvent has outputs", ErrInvalidReference))
	} else {
		for i, ref := range n.OutputReferences {
			c.checkReference(n, ref, fmt.Sprintf("outputReferences[%d]", i), false)
		}
	}
}

func (c *compiler) checkReference(n *EventNode, ref Reference, field string, parent bool) {
	bad := func(sub string, err error) {
		c.fail(&ConfigError{NodeID: n.NodeID, Field: field + sub, Err: err})
	}

	if (ref.IdentifierID == nil) == (ref.ParentNodeID == nil) {
		bad("", fmt.Errorf("%w: exactly one of identifierId and parentNodeId must be set", ErrInvalidReference))
		return
	}
	if ref.EPCCount < 0 || ref.ClassCount < 0 || ref.InheritParentCount < 0 {
		bad("", fmt.Errorf("%w: counts must not be negative", ErrInvalidReference))
	}

	if ref.ParentNodeID != nil {
		id := *ref.ParentNodeID
		switch {
		case id == n.NodeID:
			bad(".parentNodeId", fmt.Errorf("%w: node %d references itself", ErrCycle, id))
		case c.nodes[id] == nil:
			bad(".parentNodeId", fmt.Errorf("%w: %d", ErrUnknownNode, id))
		}
		return
	}

	id := *ref.IdentifierID
	ident, ok := c.identifiers.Get(id)
	if !ok {
		bad(".identifierId", fmt.Errorf("%w: %d", ErrUnknownIdentifier, id))
		return
	}
	c.referenced[id] = true

	if ref.InheritParentCount > 0 {
		bad(".inheritParentCount", fmt.Errorf("%w: only valid with parentNodeId", ErrInvalidReference))
	}
	if parent {
		if !ident.HasParent() {
			bad(".identifierId", fmt.Errorf("%w: identifier %d has no parentData or instanceData", ErrInvalidReference, id))
		}
		return
	}
	if ref.EPCCount > 0 && !ident.HasInstance() {
		bad(".epcCount", fmt.Errorf("%w: identifier %d has no instanceData", ErrInvalidReference, id))
	}
	if ref.ClassCount > 0 && !ident.HasClass() {
		bad(".classCount", fmt.Errorf("%w: identifier %d has no classData", ErrInvalidReference, id))
	}
}

// checkIdentifiers validates the referenced identifier nodes and warns
// about the others.
func (c *compiler) checkIdentifiers() {
	for id, n := range c.identifiers.All() {
		if !c.referenced[id] {
			slog.Warn("identifier node is never referenced", "identifier_id", id)
			continue
		}
		err := n.Validate()
		if err == nil {
			continue
		}
		for _, e := range unjoin(err) {
			ce := &ConfigError{IdentifierID: id, Err: e}
			var fe *identifier.FieldError
			if errors.As(e, &fe) {
				ce.Field, ce.Kind, ce.Err = fe.Field, string(fe.Kind), fe.Err
			}
			c.fail(ce)
		}
	}
}

// wire builds the dependency maps and checks the structure of the graph.
func (c *compiler) wire() *Graph {
	g := &Graph{
		nodes:       c.order,
		index:       c.nodes,
		identifiers: c.identifiers,
		upstream:    make(map[int][]int, len(c.order)),
		downstream:  make(map[int][]int, len(c.order)),
		ancestors:   make(map[int]map[int]bool, len(c.order)),
		joinOn:      make(map[int][]int, len(c.order)),
	}

	for _, n := range c.order {
		ups := n.upstreams()
		g.upstream[n.NodeID] = ups
		if len(ups) == 0 {
			g.roots = append(g.roots, n.NodeID)
		}
		for _, u := range ups {
			g.downstream[u] = append(g.downstream[u], n.NodeID)
		}
	}

	order, cyclic := g.topoSort()
	if len(cyclic) > 0 {
		for _, id := range cyclic {
			c.fail(&ConfigError{NodeID: id, Field: "parentNodeId", Err: fmt.Errorf("%w through node %d", ErrCycle, id)})
		}
		return nil
	}

	// Ancestor sets, in dependency order so every upstream is complete.
	for _, id := range order {
		set := make(map[int]bool)
		for _, u := range g.upstream[id] {
			set[u] = true
			for a := range g.ancestors[u] {
				set[a] = true
			}
		}
		g.ancestors[id] = set
	}

	// A node joins on its direct upstreams minus those already reached
	// through another direct upstream.
	for _, id := range order {
		ups := g.upstream[id]
		for _, u := range ups {
			covered := false
			for _, v := range ups {
				if v != u && g.ancestors[v][u] {
					covered = true
					break
				}
			}
			if !covered {
				g.joinOn[id] = append(g.joinOn[id], u)
			}
		}
	}

	for _, id := range order {
		for _, u := range g.upstream[id] {
			if g.index[u].EventCount == 0 {
				c.fail(&ConfigError{NodeID: id, Field: "parentNodeId", Err: fmt.Errorf("%w: upstream %d has eventCount 0", ErrUnsatisfiableJoin, u)})
			}
		}
	}
	return g
}

// topoSort orders node ids so every node follows its upstreams (Kahn's
// algorithm, ties broken by declaration order). Nodes left over belong to
// a cycle.
func (g *Graph) topoSort() (order, cyclic []int) {
	inDegree := make(map[int]int, len(g.nodes))
	for _, n := range g.nodes {
		inDegree[n.NodeID] = len(g.upstream[n.NodeID])
	}

	queue := append([]int(nil), g.roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, d := range g.downstream[id] {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	for _, n := range g.nodes {
		if inDegree[n.NodeID] > 0 {
			cyclic = append(cyclic, n.NodeID)
		}
	}
	return order, cyclic
}

func (s EventTimeSpec) validate() error {
	if (s.From == nil) != (s.To == nil) {
		return fmt.Errorf("%w: fromTime and toTime must be set together", ErrInvalidNode)
	}
	if s.From != nil && s.To.Before(*s.From) {
		return fmt.Errorf("%w: toTime is before fromTime", ErrInvalidNode)
	}
	if _, err := parseOffset(s.TimeZoneOffset); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNode, err)
	}
	return nil
}

// parseOffset turns "+hh:mm" into a fixed zone. Empty means UTC.
func parseOffset(offset string) (*time.Location, error) {
	if offset == "" {
		offset = defaultOffset
	}
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("timeZoneOffset %q: want +hh:mm", offset)
	}
	_, secs := t.Zone()
	return time.FixedZone(offset, secs), nil
}

const defaultOffset = "+00:00"

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
