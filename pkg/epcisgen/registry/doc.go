// Package registry provides a generic thread-safe registry for values
// indexed by key, remembering insertion order.
//
// Generation runs use it for the identifier node pool (looked up by
// identifierId from event references) and the event node index.
//
// # Basic Usage
//
//	pool := registry.New[int, *identifier.Node]()
//	if err := pool.Add(n.ID, n); err != nil {
//	    // duplicate identifierId
//	}
//
//	node, err := pool.Lookup(7)
//	if errors.Is(err, registry.ErrNotFound) {
//	    // dangling reference
//	}
//
// # Iteration
//
// Keys and All yield entries in the order they were added, so anything
// derived from a registry is deterministic:
//
//	for id, node := range pool.All() {
//	    fmt.Println(id, node.Syntax)
//	}
//
// # Per-run copies
//
// Clone copies the registry, transforming each value. A run clones the
// identifier pool so range cursors start from the template's values:
//
//	runPool := pool.Clone((*identifier.Node).Clone)
package registry
