package sink

import (
	"context"
	"sort"
	"sync"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
)

// Memory keeps events in process memory. Data is lost when the process
// exits.
type Memory struct {
	mu     sync.RWMutex
	runs   map[string][]*epcis.Event
	closed bool
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string][]*epcis.Event)}
}

// Name implements Sink.
func (m *Memory) Name() string { return "memory" }

// Write implements Sink.
func (m *Memory) Write(ctx context.Context, runID string, events []*epcis.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}
	m.runs[runID] = append(m.runs[runID], events...)
	return nil
}

// Events returns a copy of the events stored for a run, in write order.
func (m *Memory) Events(runID string) ([]*epcis.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrSinkClosed
	}
	stored, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := make([]*epcis.Event, len(stored))
	copy(out, stored)
	return out, nil
}

// Runs returns the ids of all runs with stored events, sorted.
func (m *Memory) Runs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close implements Sink.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.runs = nil
	return nil
}
