package epcisgen

// handlerState is the production state of one event node.
type handlerState int

const (
	// stateIdle: nothing buffered.
	stateIdle handlerState = iota
	// stateAwaitingJoin: some, but not all, join upstreams have delivered.
	stateAwaitingJoin
	// stateProducing: building the node's batch of events.
	stateProducing
)

// String returns a human-readable state name.
func (s handlerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingJoin:
		return "awaiting_join"
	case stateProducing:
		return "producing"
	default:
		return "unknown"
	}
}

// handler is the per-node state machine of a run:
// Idle -> AwaitingJoin -> Producing -> Idle.
//
// Each join upstream has its own FIFO buffer. The handler produces once
// every buffer holds a tracker, consuming the head of each.
type handler struct {
	node       *EventNode
	joinOn     []int
	buffers    map[int][]*Tracker
	downstream []*handler

	// produced counts events built by this node over the whole run.
	produced int
	state    handlerState
}

func newHandler(n *EventNode, joinOn []int) *handler {
	h := &handler{
		node:    n,
		joinOn:  joinOn,
		buffers: make(map[int][]*Tracker, len(joinOn)),
	}
	for _, u := range joinOn {
		h.buffers[u] = nil
	}
	return h
}

func (h *handler) isRoot() bool {
	return len(h.joinOn) == 0
}

// remaining returns how many more events a root may emit.
func (h *handler) remaining() int {
	if !h.isRoot() {
		return 0
	}
	return max(h.node.EventCount-h.produced, 0)
}

// deliver buffers a tracker from upstream node from. Trackers from
// upstreams the node does not join on are ignored (they reach the node
// through the lineage of a joined tracker) and deliver reports false.
func (h *handler) deliver(from int, t *Tracker) bool {
	buf, ok := h.buffers[from]
	if !ok {
		return false
	}
	h.buffers[from] = append(buf, t)
	if h.state == stateIdle {
		h.state = stateAwaitingJoin
	}
	return true
}

// ready reports whether every join upstream has a buffered tracker.
func (h *handler) ready() bool {
	if h.isRoot() {
		return false
	}
	for _, u := range h.joinOn {
		if len(h.buffers[u]) == 0 {
			return false
		}
	}
	return true
}

// take pops one tracker per join upstream, in join order.
func (h *handler) take() []*Tracker {
	joined := make([]*Tracker, len(h.joinOn))
	for i, u := range h.joinOn {
		joined[i] = h.buffers[u][0]
		h.buffers[u][0] = nil
		h.buffers[u] = h.buffers[u][1:]
	}
	h.state = stateProducing
	return joined
}

// settle leaves the Producing state.
func (h *handler) settle() {
	if h.pending() > 0 {
		h.state = stateAwaitingJoin
	} else {
		h.state = stateIdle
	}
}

// pending returns the number of buffered trackers.
func (h *handler) pending() int {
	n := 0
	for _, buf := range h.buffers {
		n += len(buf)
	}
	return n
}
