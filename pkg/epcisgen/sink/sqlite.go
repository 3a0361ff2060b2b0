package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite" // Pure Go SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	generrors "github.com/randalmurphal/epcisgen/pkg/epcisgen/errors"
)

// SQLite persists events to a SQLite database, one row per event.
// It is suitable for single-process use.
type SQLite struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Stored is one event row.
type Stored struct {
	RunID     string
	Sequence  int
	EventID   string
	NodeID    int
	EventType epcis.EventType
	EventTime time.Time
	Data      []byte
}

// NewSQLite opens (or creates) an event database.
// The path should be a file path (e.g., "./events.db") or ":memory:" for testing.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			node_id INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			event_time TEXT NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (run_id, sequence)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_event_id
		ON events(event_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Name implements Sink.
func (s *SQLite) Name() string { return "sqlite" }

// Write implements Sink. The batch is inserted in one transaction after
// the run's current last sequence number. Busy or locked database errors
// are reported as transient.
func (s *SQLite) Write(ctx context.Context, runID string, events []*epcis.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if len(events) == 0 {
		return nil
	}

	rows := make([][]byte, len(events))
	for i, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.EventID, err)
		}
		rows[i] = data
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var seq int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence), 0) FROM events WHERE run_id = ?
	`, runID).Scan(&seq); err != nil {
		return classify(fmt.Errorf("read sequence: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, sequence, event_id, node_id, event_type, event_time, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return classify(fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for i, e := range events {
		seq++
		if _, err := stmt.ExecContext(ctx, runID, seq, e.EventID, e.NodeID, string(e.Type),
			e.EventTime.UTC().Format(time.RFC3339Nano), rows[i]); err != nil {
			return classify(fmt.Errorf("insert event %s: %w", e.EventID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Count returns the number of events stored for a run.
func (s *SQLite) Count(runID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrSinkClosed
	}

	var n int
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM events WHERE run_id = ?
	`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// List returns the rows of a run, ordered by sequence.
// Returns ErrRunNotFound if the run has no events.
func (s *SQLite) List(runID string) ([]Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSinkClosed
	}

	rows, err := s.db.Query(`
		SELECT sequence, event_id, node_id, event_type, event_time, data
		FROM events
		WHERE run_id = ?
		ORDER BY sequence
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		st := Stored{RunID: runID}
		var eventType, eventTime string
		if err := rows.Scan(&st.Sequence, &st.EventID, &st.NodeID, &eventType, &eventTime, &st.Data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		st.EventType = epcis.EventType(eventType)
		st.EventTime, _ = time.Parse(time.RFC3339Nano, eventTime)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrRunNotFound
	}
	return out, nil
}

// Events decodes the stored events of a run. NodeID is restored from the
// row since it is not part of the JSON payload.
func (s *SQLite) Events(runID string) ([]*epcis.Event, error) {
	rows, err := s.List(runID)
	if err != nil {
		return nil, err
	}
	out := make([]*epcis.Event, len(rows))
	for i, row := range rows {
		var e epcis.Event
		if err := json.Unmarshal(row.Data, &e); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", row.EventID, err)
		}
		e.NodeID = row.NodeID
		out[i] = &e
	}
	return out, nil
}

// DeleteRun removes all events of a run.
// Returns nil if the run has no events.
func (s *SQLite) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if _, err := s.db.Exec(`DELETE FROM events WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run events: %w", err)
	}
	return nil
}

// Close implements Sink. It is idempotent.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// classify marks lock contention as transient so writes are retried.
func classify(err error) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return generrors.Transient(err, "database busy")
		}
	}
	return err
}
