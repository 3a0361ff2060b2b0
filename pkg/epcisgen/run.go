package epcisgen

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/observability"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/registry"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/template"
)

// Run is one evaluation of a Graph. Events are produced on demand, one
// step at a time, when a Subscription asks for more than its queue holds.
//
// A step is one round: every root with budget left emits one event, in
// declaration order, and each event is pushed depth-first through the
// graph. A node whose join completes emits its whole eventCount batch
// inside the step. Output order is therefore an event followed by
// everything produced from it.
//
// Steps never interleave. All subscriptions of a run see the same events
// and share identifier cursors.
type Run struct {
	graph       *Graph
	cfg         runConfig
	id          string
	seed        int64
	logger      *slog.Logger
	alloc       *serial.Allocator
	identifiers *registry.Registry[int, *identifier.Node]
	expander    *template.Expander
	handlers    map[int]*handler
	roots       []*handler

	mu      sync.Mutex
	subs    []*Subscription
	round   int
	events  int
	step    []*epcis.Event
	started time.Time
	spanCtx context.Context
	span    trace.Span
	done    bool
	err     error
}

// Stats summarises a run's progress.
type Stats struct {
	RunID  string
	Seed   int64
	Rounds int
	Events int
	Done   bool
	Err    error
}

// NewRun prepares a run of the graph. The seed is taken from WithSeed,
// then the template's randomSeed; without either the run is not
// reproducible.
func (g *Graph) NewRun(opts ...RunOption) (*Run, error) {
	if g == nil {
		return nil, ErrEmptyTemplate
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var alloc *serial.Allocator
	switch {
	case cfg.seed != nil:
		alloc = serial.New(*cfg.seed)
	case g.seed != nil:
		alloc = serial.New(*g.seed)
	default:
		alloc = serial.NewUnseeded()
	}

	runID := cfg.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	r := &Run{
		graph:       g,
		cfg:         cfg,
		id:          runID,
		seed:        alloc.Seed(),
		logger:      observability.EnrichLogger(cfg.logger, runID, alloc.Seed()),
		alloc:       alloc,
		identifiers: g.identifiers.Clone((*identifier.Node).Clone),
		expander:    template.NewExpander(),
		handlers:    make(map[int]*handler, len(g.nodes)),
	}

	for _, n := range g.nodes {
		h := newHandler(n, g.joinOn[n.NodeID])
		r.handlers[n.NodeID] = h
		if h.isRoot() {
			r.roots = append(r.roots, h)
		}
	}
	for _, n := range g.nodes {
		h := r.handlers[n.NodeID]
		for _, d := range g.downstream[n.NodeID] {
			h.downstream = append(h.downstream, r.handlers[d])
		}
	}
	return r, nil
}

// ID returns the run id.
func (r *Run) ID() string {
	return r.id
}

// Seed returns the seed of the run's allocator.
func (r *Run) Seed() int64 {
	return r.seed
}

// Stats returns a snapshot of the run's progress.
func (r *Run) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{RunID: r.id, Seed: r.seed, Rounds: r.round, Events: r.events, Done: r.done, Err: r.err}
}

// Subscribe attaches a new consumer. It receives every event produced
// from now on.
func (r *Run) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Subscription{run: r}
	r.subs = append(r.subs, s)
	return s
}

// unsubscribe detaches s. Caller holds r.mu.
func (r *Run) unsubscribe(s *Subscription) {
	r.subs = slices.DeleteFunc(r.subs, func(x *Subscription) bool { return x == s })
}

// advance runs one production step. Caller holds r.mu.
//
// A cancelled ctx returns a *CancellationError and leaves the run intact.
// A production failure ends the run; it is returned now and to every
// later caller.
func (r *Run) advance(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	if r.done {
		return ErrExhausted
	}
	if err := ctx.Err(); err != nil {
		return &CancellationError{Round: r.round, Cause: err}
	}

	if r.started.IsZero() {
		r.started = time.Now()
		r.spanCtx, r.span = r.cfg.spans.StartRunSpan(ctx, r.id, r.seed)
		observability.LogRunStart(r.logger, r.id, len(r.roots), len(r.handlers))
	}

	active := slices.ContainsFunc(r.roots, func(h *handler) bool { return h.remaining() > 0 })
	if !active {
		r.finish(nil, 0)
		return ErrExhausted
	}

	r.round++
	stepStart := time.Now()
	stepCtx, span := r.cfg.spans.StartStepSpan(r.spanCtx, r.round)

	var err error
	for _, h := range r.roots {
		if h.remaining() == 0 {
			continue
		}
		if err = r.produce(stepCtx, h, nil, 1); err != nil {
			break
		}
	}

	r.cfg.spans.EndSpanWithError(span, err)
	r.cfg.metrics.RecordStep(stepCtx, r.round, time.Since(stepStart))

	if err != nil {
		r.step = nil
		nodeID := 0
		var perr *ProductionError
		if errors.As(err, &perr) {
			nodeID = perr.NodeID
		}
		r.finish(err, nodeID)
		return r.err
	}

	for _, s := range r.subs {
		s.queue = append(s.queue, r.step...)
	}
	r.events += len(r.step)
	r.step = nil
	return nil
}

// produce builds count events of h from lineage and pushes each one
// downstream before building the next.
func (r *Run) produce(ctx context.Context, h *handler, lineage map[int]*Tracker, count int) error {
	h.state = stateProducing
	defer h.settle()

	n := h.node
	for range count {
		e, err := r.build(ctx, h, lineage)
		if err != nil {
			return &ProductionError{NodeID: n.NodeID, Round: r.round, Err: err}
		}
		h.produced++
		r.step = append(r.step, e)

		t := NewTracker(n.NodeID, e, lineage)
		if err := r.push(ctx, h, t); err != nil {
			return err
		}
	}

	observability.LogNodeProduced(r.logger, n.NodeID, string(n.EventType), r.round, count)
	r.cfg.metrics.RecordEvents(ctx, n.NodeID, string(n.EventType), count)
	return nil
}

// push delivers t to every downstream handler, producing wherever a join
// completes.
func (r *Run) push(ctx context.Context, h *handler, t *Tracker) error {
	for _, d := range h.downstream {
		if !d.deliver(h.node.NodeID, t) {
			continue
		}
		for d.ready() {
			joined := d.take()
			if err := r.produce(ctx, d, mergeLineage(joined), d.node.EventCount); err != nil {
				return err
			}
		}
	}
	return nil
}

// finish ends the run. Caller holds r.mu.
func (r *Run) finish(err error, nodeID int) {
	r.done = true
	duration := time.Since(r.started)
	durationMs := float64(duration.Microseconds()) / 1000

	if err != nil {
		r.err = &runFailure{cause: err}
		observability.LogRunError(r.logger, r.id, err, durationMs, nodeID)
	} else {
		for _, n := range r.graph.nodes {
			if p := r.handlers[n.NodeID].pending(); p > 0 {
				observability.LogJoinAbandoned(r.logger, n.NodeID, p)
			}
		}
		observability.LogRunComplete(r.logger, r.id, durationMs, r.events, r.round)
	}

	r.cfg.metrics.RecordRun(r.spanCtx, err == nil, duration)
	r.cfg.spans.EndSpanWithError(r.span, err)
}

// Generate runs the graph to exhaustion and returns every event in
// production order.
func (g *Graph) Generate(ctx context.Context, opts ...RunOption) ([]*epcis.Event, error) {
	run, err := g.NewRun(opts...)
	if err != nil {
		return nil, err
	}
	sub := run.Subscribe()
	defer sub.Cancel()

	var events []*epcis.Event
	for e, err := range sub.All(ctx) {
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
	return events, nil
}
