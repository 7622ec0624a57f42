// Package trace records the structured node/compaction trace that runs
// alongside the event stream, and replays that trace into any event sink for
// audit or introspection purposes.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blueberrycongee/forge/event"
)

// Kind enumerates the trace entry kinds.
type Kind string

const (
	KindNodeStart  Kind = "node_start"
	KindNodeFinish Kind = "node_finish"
	KindCompacted  Kind = "compacted"
)

// Entry is a single trace record. Exactly one of the kind-specific fields is
// populated, selected by Kind.
type Entry struct {
	Kind Kind `json:"kind"`

	// NodeStart / NodeFinish fields.
	Node       string `json:"node,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`

	// Compacted fields.
	SessionID string `json:"session_id,omitempty"`
	SummaryRef string `json:"summary_ref,omitempty"`

	TimestampMs int64 `json:"timestamp_ms"`
}

// NodeStart returns a node-start Entry stamped at ts.
func NodeStart(node string, ts time.Time) Entry {
	return Entry{Kind: KindNodeStart, Node: node, TimestampMs: ts.UnixMilli()}
}

// NodeFinish returns a node-finish Entry stamped at ts, recording how long
// the node ran.
func NodeFinish(node string, duration time.Duration, ts time.Time) Entry {
	return Entry{Kind: KindNodeFinish, Node: node, DurationMs: duration.Milliseconds(), TimestampMs: ts.UnixMilli()}
}

// Compacted returns a compacted Entry stamped at ts.
func Compacted(sessionID, summaryRef string, ts time.Time) Entry {
	return Entry{Kind: KindCompacted, SessionID: sessionID, SummaryRef: summaryRef, TimestampMs: ts.UnixMilli()}
}

// ExecutionTrace is an append-only, run-scoped log of trace Entries. It is
// safe for concurrent use.
type ExecutionTrace struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty ExecutionTrace.
func New() *ExecutionTrace {
	return &ExecutionTrace{}
}

// Append adds e to the trace.
func (t *ExecutionTrace) Append(e Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
}

// Entries returns a defensive copy of the recorded entries in append order.
func (t *ExecutionTrace) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Replay returns the trace's entries unchanged; it is the identity
// projection used by callers that just want the raw trace sequence.
func Replay(t *ExecutionTrace) []Entry {
	return t.Entries()
}

// ReplayToSink maps each trace entry onto a synthetic runtime event and
// emits it to sink, preserving the entries' relative order. NodeStart
// entries do not themselves carry a runtime event kind; they mark the
// start of a node's execution and are represented as a SessionPhaseChanged
// event from the "thinking" to the "streaming" phase. NodeFinish entries
// replay as an empty StepFinish, and Compacted entries as SessionCompacted.
func ReplayToSink(t *ExecutionTrace, sink event.Sink) {
	for _, e := range t.Entries() {
		if ev, ok := toEvent(e); ok {
			sink.Emit(ev)
		}
	}
}

// ReplayToRecordSink replays the trace into a RecordSink, assigning fresh
// sequence metadata via seq. The relative order of entries is preserved;
// only the seq/timestamp/event-id values are new.
func ReplayToRecordSink(t *ExecutionTrace, sink event.RecordSink, seq *event.Sequencer) {
	for _, e := range t.Entries() {
		if ev, ok := toEvent(e); ok {
			sink.EmitRecord(event.Record{Meta: seq.Next(), Event: ev})
		}
	}
}

func toEvent(e Entry) (event.Event, bool) {
	switch e.Kind {
	case KindNodeStart:
		return event.SessionPhaseChanged{From: "thinking", To: "streaming"}, true
	case KindNodeFinish:
		return event.StepFinish{}, true
	case KindCompacted:
		return event.SessionCompacted{SessionID: e.SessionID, Summary: e.SummaryRef}, true
	default:
		return nil, false
	}
}

// ReplayToJSON renders the trace as the structured audit document: an
// ordered array of entries, each with its kind and fields. The output is
// deterministic for a given trace (audit determinism requirement).
func ReplayToJSON(t *ExecutionTrace) ([]byte, error) {
	entries := t.Entries()
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("trace: marshal audit document: %w", err)
	}
	return data, nil
}

// WriteAuditLog renders the trace to JSON and writes it to path.
func WriteAuditLog(t *ExecutionTrace, path string) error {
	data, err := ReplayToJSON(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("trace: write audit log to %q: %w", path, err)
	}
	return nil
}
