package event

import (
	"sync"

	"github.com/blueberrycongee/forge/ids"
)

// Sink receives bare events, without sequencing metadata. Most callers that
// only want to observe a run (render a transcript, forward over a socket)
// implement Sink.
type Sink interface {
	Emit(e Event)
}

// RecordSink receives fully sequenced Records. Components that need the
// total order (the trace writer, a persisted event log) implement RecordSink
// instead of Sink.
type RecordSink interface {
	EmitRecord(r Record)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

// RecordSinkFunc adapts a function to a RecordSink.
type RecordSinkFunc func(Record)

// EmitRecord implements RecordSink.
func (f RecordSinkFunc) EmitRecord(r Record) { f(r) }

// Sequencer assigns monotonically increasing sequence numbers and fresh
// identifiers to events within the scope of a single run. It is safe for
// concurrent use: the executor's node goroutines and the tool registry's
// async handlers may all sequence events on the same run concurrently, and
// the total order (P1) must still hold.
type Sequencer struct {
	mu   sync.Mutex
	next uint64
}

// NewSequencer returns a Sequencer starting at seq 0.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the Meta for the next event: a fresh event id, the current
// wall-clock time, and the next sequence number in this Sequencer's run scope.
func (s *Sequencer) Next() Meta {
	s.mu.Lock()
	seq := s.next
	s.next++
	s.mu.Unlock()
	return Meta{
		EventID:     ids.NewEventID(),
		TimestampMs: Now(),
		Seq:         seq,
	}
}

// History is an append-only, mutex-guarded buffer of Records, backing the
// in-memory view of a run's event log before it is handed to the trace
// writer or a snapshot store.
type History struct {
	mu      sync.RWMutex
	records []Record
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Append adds r to the end of the history.
func (h *History) Append(r Record) {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
}

// Records returns a defensive copy of the recorded events in sequence order.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Len reports the number of recorded events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Replace atomically swaps the buffer's contents with records, used by the
// prune policy to drop retired tool events.
func (h *History) Replace(records []Record) {
	h.mu.Lock()
	h.records = append([]Record(nil), records...)
	h.mu.Unlock()
}
