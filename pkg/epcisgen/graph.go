package epcisgen

import (
	"slices"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/registry"
)

// Graph is a compiled, immutable event graph. It is created by Compile.
//
// A Graph is safe for concurrent use: every Run clones the identifier pool,
// so range cursors advance per run and never in the Graph itself.
//
// Use the introspection methods (Roots, Upstream, JoinOn, etc.) to examine
// the wiring for debugging or visualization.
type Graph struct {
	nodes       []*EventNode
	index       map[int]*EventNode
	identifiers *registry.Registry[int, *identifier.Node]

	upstream   map[int][]int
	downstream map[int][]int
	ancestors  map[int]map[int]bool
	joinOn     map[int][]int
	roots      []int

	seed *int64
}

// NodeIDs returns all event node ids in declaration order.
func (g *Graph) NodeIDs() []int {
	ids := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.NodeID
	}
	return ids
}

// Node returns a copy of the event node with the given id.
func (g *Graph) Node(id int) (EventNode, bool) {
	n, ok := g.index[id]
	if !ok {
		return EventNode{}, false
	}
	return *n, true
}

// HasNode checks if an event node exists in the graph.
func (g *Graph) HasNode(id int) bool {
	_, ok := g.index[id]
	return ok
}

// IdentifierIDs returns the identifier node ids in declaration order.
func (g *Graph) IdentifierIDs() []int {
	return g.identifiers.Keys()
}

// Roots returns the ids of nodes with no upstream, in declaration order.
func (g *Graph) Roots() []int {
	return slices.Clone(g.roots)
}

// Upstream returns the distinct event nodes id references by parentNodeId.
func (g *Graph) Upstream(id int) []int {
	return slices.Clone(g.upstream[id])
}

// Downstream returns the nodes that reference id, in declaration order.
func (g *Graph) Downstream(id int) []int {
	return slices.Clone(g.downstream[id])
}

// Ancestors returns every node id transitively depends on, sorted.
func (g *Graph) Ancestors(id int) []int {
	out := make([]int, 0, len(g.ancestors[id]))
	for a := range g.ancestors[id] {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// JoinOn returns the upstreams whose events a node waits for before
// producing. Upstreams that are ancestors of another upstream are left
// out: their events arrive through that upstream's lineage.
func (g *Graph) JoinOn(id int) []int {
	return slices.Clone(g.joinOn[id])
}

// Seed returns the template's random seed, if any.
func (g *Graph) Seed() (int64, bool) {
	if g.seed == nil {
		return 0, false
	}
	return *g.seed, true
}
