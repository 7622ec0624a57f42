// Package snapshot implements the versioned, persistable document that
// binds a session's message history, tool-call records, compaction summaries
// and execution trace together for resume and audit.
package snapshot

import (
	"fmt"
	"time"

	"github.com/blueberrycongee/forge/session"
	"github.com/blueberrycongee/forge/tools"
	"github.com/blueberrycongee/forge/trace"
)

// CurrentVersion is the highest snapshot document version this build
// understands.
const CurrentVersion = 1

// CompactionRecord is a single compaction event recorded into a snapshot.
type CompactionRecord struct {
	Summary string
	Tokens  int
	At      time.Time
}

// Snapshot is the in-memory form of a session's persisted state.
type Snapshot struct {
	Version     int
	Messages    []session.Message
	ToolCalls   map[string]tools.CallRecord
	Compactions []CompactionRecord
	Trace       *trace.ExecutionTrace
	// RunLogRefs are opaque identifiers into an external run log, left for
	// the caller to interpret.
	RunLogRefs []string
}

// New returns an empty Snapshot at CurrentVersion.
func New() *Snapshot {
	return &Snapshot{
		Version:   CurrentVersion,
		ToolCalls: make(map[string]tools.CallRecord),
		Trace:     trace.New(),
	}
}

// hasRenderableContent reports whether msg carries any part a reader would
// actually render: text, a tool result/error, or an attachment. A message
// consisting only of, say, a bare token-usage part is not pushed.
func hasRenderableContent(msg session.Message) bool {
	for _, p := range msg.Parts {
		switch p.Kind {
		case session.PartTextDelta, session.PartTextFinal, session.PartToolResult, session.PartToolError, session.PartAttachment:
			return true
		}
	}
	return false
}

// PushMessage appends msg to the snapshot's message history, skipping
// messages with no renderable content.
func (s *Snapshot) PushMessage(msg session.Message) {
	if !hasRenderableContent(msg) {
		return
	}
	s.Messages = append(s.Messages, msg)
}

// ToMessages returns a defensive copy of the snapshot's message history, in
// the form a resumed session reconstructs its transcript from.
func (s *Snapshot) ToMessages() []session.Message {
	out := make([]session.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// RecordCompaction appends a CompactionRecord built from a compaction
// summary and token count.
func (s *Snapshot) RecordCompaction(summary string, tokens int, at time.Time) {
	s.Compactions = append(s.Compactions, CompactionRecord{Summary: summary, Tokens: tokens, At: at})
}

// ErrUnsupportedVersion is returned by decoders when a document's version
// exceeds CurrentVersion.
type ErrUnsupportedVersion struct {
	Observed, Supported int
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("snapshot: unsupported document version %d (supports up to %d)", e.Observed, e.Supported)
}

// CheckVersion validates a decoded document's version field against
// CurrentVersion.
func CheckVersion(version int) error {
	if version > CurrentVersion {
		return &ErrUnsupportedVersion{Observed: version, Supported: CurrentVersion}
	}
	return nil
}
