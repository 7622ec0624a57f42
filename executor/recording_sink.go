package executor

import (
	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/session"
)

// RecordingSink wraps a caller-provided EventSink (and, optionally, an
// EventRecordSink) with the bookkeeping every run needs: it assigns
// sequence metadata, appends to an in-memory history, forwards both the bare
// event and the full record to the wrapped sinks, then drives the
// session-state reducer and records and forwards whatever the reducer
// produces the same way.
//
// Per the single-threaded-per-run concurrency model, RecordingSink does not
// itself need to synchronize sequencing or reducer application across
// concurrent producers; the history buffer remains mutex-guarded so a
// shared sink across runs still observes a consistent buffer.
type RecordingSink struct {
	seq     *event.Sequencer
	history *event.History
	state   *session.State

	sink       event.Sink
	recordSink event.RecordSink
}

// NewRecordingSink constructs a RecordingSink over state, forwarding to sink
// (required) and recordSink (optional; pass nil if the caller only wants
// bare events).
func NewRecordingSink(state *session.State, sink event.Sink, recordSink event.RecordSink) *RecordingSink {
	return &RecordingSink{
		seq:        event.NewSequencer(),
		history:    event.NewHistory(),
		state:      state,
		sink:       sink,
		recordSink: recordSink,
	}
}

// Emit implements event.Sink.
func (r *RecordingSink) Emit(e event.Event) {
	r.record(e)
}

// EmitRecord implements event.RecordSink by discarding the caller's
// metadata and re-sequencing the event, preserving RecordingSink's own
// total order.
func (r *RecordingSink) EmitRecord(rec event.Record) {
	r.record(rec.Event)
}

func (r *RecordingSink) record(e event.Event) {
	meta := r.seq.Next()
	rec := event.Record{Meta: meta, Event: e}
	r.history.Append(rec)

	if r.sink != nil {
		r.sink.Emit(e)
	}
	if r.recordSink != nil {
		r.recordSink.EmitRecord(rec)
	}

	for _, produced := range session.Apply(r.state, e) {
		r.record(produced)
	}
}

// History returns the accumulated event history for this run.
func (r *RecordingSink) History() []event.Record {
	return r.history.Records()
}

// PruneHistory replaces the accumulated history with records, used by the
// prune policy to drop retired tool events between node executions.
func (r *RecordingSink) PruneHistory(records []event.Record) {
	r.history.Replace(records)
}
