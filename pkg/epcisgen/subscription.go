package epcisgen

import (
	"context"
	"errors"
	"iter"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
)

// Subscription is one consumer of a Run. It has its own queue: surplus
// events produced while satisfying another request wait there until asked
// for.
//
// Events are shared between subscriptions and must be treated as
// read-only.
type Subscription struct {
	run       *Run
	queue     []*epcis.Event
	cancelled bool
}

// Next returns the next event, producing one more step if the queue is
// empty. It returns ErrExhausted once the run is complete and the queue
// drained, ErrCancelled after Cancel, and a *CancellationError if ctx ends
// before a step starts.
func (s *Subscription) Next(ctx context.Context) (*epcis.Event, error) {
	r := s.run
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if s.cancelled {
			return nil, ErrCancelled
		}
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			return e, nil
		}
		if err := r.advance(ctx); err != nil {
			return nil, err
		}
	}
}

// Request returns up to n events. Fewer are returned only when the stream
// ends or fails; in that case the events already collected come back with
// the error, except that exhaustion after at least one event is not an
// error.
func (s *Subscription) Request(ctx context.Context, n int) ([]*epcis.Event, error) {
	var out []*epcis.Event
	for len(out) < n {
		e, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrExhausted) && len(out) > 0 {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// All iterates the remaining events. Iteration stops silently at
// exhaustion; any other error is yielded once as the final pair.
func (s *Subscription) All(ctx context.Context) iter.Seq2[*epcis.Event, error] {
	return func(yield func(*epcis.Event, error) bool) {
		for {
			e, err := s.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Pending returns the number of events queued for the subscription.
func (s *Subscription) Pending() int {
	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	return len(s.queue)
}

// Cancel detaches the subscription and drops its queue. Production for
// other subscriptions continues. Cancel is idempotent.
func (s *Subscription) Cancel() {
	r := s.run
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.queue = nil
	r.unsubscribe(s)
}
