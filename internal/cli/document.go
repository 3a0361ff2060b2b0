package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/sink"
)

// EPCISContext is the JSON-LD context of EPCIS 2.0 documents.
const EPCISContext = "https://ref.gs1.org/standards/epcis/epcis-context.jsonld"

// Document is an EPCIS 2.0 JSON document.
type Document struct {
	Context       []string `json:"@context"`
	Type          string   `json:"type"`
	SchemaVersion string   `json:"schemaVersion"`
	CreationDate  string   `json:"creationDate"`
	Body          Body     `json:"epcisBody"`
}

// Body holds the event list of a Document.
type Body struct {
	EventList []*epcis.Event `json:"eventList"`
}

// streamSink writes events to w as they arrive, either as one EPCIS
// document or as JSON lines. In document mode Close writes the closing
// brackets.
type streamSink struct {
	w        io.Writer
	document bool
	created  time.Time

	mu      sync.Mutex
	started bool
	closed  bool
	count   int
}

var _ sink.Sink = (*streamSink)(nil)

func newStreamSink(w io.Writer, document bool, created time.Time) *streamSink {
	return &streamSink{w: w, document: document, created: created}
}

func (s *streamSink) Name() string {
	if s.document {
		return "document"
	}
	return "jsonl"
}

func (s *streamSink) Write(_ context.Context, _ string, events []*epcis.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return sink.ErrSinkClosed
	}
	if err := s.start(); err != nil {
		return err
	}

	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.EventID, err)
		}
		if s.document {
			prefix := ",\n"
			if s.count == 0 {
				prefix = "\n"
			}
			data = append([]byte(prefix), data...)
		} else {
			data = append(data, '\n')
		}
		if _, err := s.w.Write(data); err != nil {
			return err
		}
		s.count++
	}
	return nil
}

// start writes the document header once.
func (s *streamSink) start() error {
	if s.started {
		return nil
	}
	s.started = true
	if !s.document {
		return nil
	}

	ctx, err := json.Marshal([]string{EPCISContext})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.w,
		`{"@context":%s,"type":"EPCISDocument","schemaVersion":"2.0","creationDate":%q,"epcisBody":{"eventList":[`,
		ctx, s.created.UTC().Format(time.RFC3339))
	return err
}

func (s *streamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.document {
		return nil
	}
	if err := s.start(); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, "\n]}}\n")
	return err
}
