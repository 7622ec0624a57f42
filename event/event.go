// Package event defines the wire-level event shape of a Forge run: the
// tagged union of observable happenings, their sequencing metadata, and the
// sink interfaces a caller implements to receive them.
package event

import (
	"encoding/json"
	"time"

	"github.com/blueberrycongee/forge/permission"
	"github.com/blueberrycongee/forge/tools"
)

// Kind enumerates the event record kinds Forge emits.
type Kind string

const (
	KindRunStarted                     Kind = "run_started"
	KindRunPaused                      Kind = "run_paused"
	KindRunResumed                     Kind = "run_resumed"
	KindRunCompleted                   Kind = "run_completed"
	KindRunFailed                      Kind = "run_failed"
	KindTextDelta                      Kind = "text_delta"
	KindTextFinal                      Kind = "text_final"
	KindAttachment                     Kind = "attachment"
	KindError                          Kind = "error"
	KindToolStart                      Kind = "tool_start"
	KindToolUpdate                     Kind = "tool_update"
	KindToolResult                     Kind = "tool_result"
	KindToolError                      Kind = "tool_error"
	KindToolStatus                     Kind = "tool_status"
	KindPermissionAsked                Kind = "permission_asked"
	KindPermissionReplied              Kind = "permission_replied"
	KindSessionCompacted               Kind = "session_compacted"
	KindSessionPhaseChanged            Kind = "session_phase_changed"
	KindSessionPhaseTransitionRejected Kind = "session_phase_transition_rejected"
	KindStepFinish                     Kind = "step_finish"
)

// Event is the tagged union of record kinds described in spec.md §3. Each
// concrete type below implements Event via its EventKind method. Events are
// value types: construct and pass them by value.
type Event interface {
	// EventKind returns the event's tag, letting sinks switch on EventKind()
	// without a type assertion when they only need coarse routing.
	EventKind() Kind
}

type (
	// RunStarted marks the beginning of dispatch.
	RunStarted struct{ RunID string }

	// RunPaused marks a run suspending into a checkpoint.
	RunPaused struct {
		RunID        string
		CheckpointID string
	}

	// RunResumed marks a run continuing from a checkpoint.
	RunResumed struct {
		RunID        string
		CheckpointID string
	}

	// RunCompleted marks successful run completion.
	RunCompleted struct{ RunID string }

	// RunFailed marks a fatal run failure.
	RunFailed struct {
		RunID   string
		Message string
	}

	// TextDelta streams an incremental fragment of assistant text.
	TextDelta struct {
		SessionID string
		MessageID string
		Delta     string
	}

	// TextFinal closes a text span, carrying the full accreted text.
	TextFinal struct {
		SessionID string
		MessageID string
		Text      string
	}

	// Attachment carries an out-of-band payload reference.
	Attachment struct {
		SessionID string
		MessageID string
		Payload   AttachmentPayload
	}

	// AttachmentPayload references an attachment blob, managed externally
	// (the attachment blob store is out of core scope per spec.md §1).
	AttachmentPayload struct {
		MimeType string
		URI      string
		Metadata map[string]any
	}

	// ErrorEvent reports an error condition associated with a session.
	// Named ErrorEvent in Go to avoid shadowing the builtin error type;
	// its wire kind is "error" per spec.md §3.
	ErrorEvent struct {
		SessionID string
		Message   string
	}

	// ToolStart marks that a tool call has begun.
	ToolStart struct {
		Tool   string
		CallID string
		Input  json.RawMessage
	}

	// ToolUpdate carries a non-terminal patch for an in-flight tool call.
	ToolUpdate struct {
		CallID string
		Patch  json.RawMessage
	}

	// ToolResult carries a tool call's successful result.
	ToolResult struct {
		Tool   string
		CallID string
		Output tools.Output
	}

	// ToolError carries a tool call's failure.
	ToolError struct {
		Tool   string
		CallID string
		Error  string
	}

	// ToolStatus reports a tool call's lifecycle state transition.
	ToolStatus struct {
		CallID string
		State  tools.State
	}

	// PermissionAsked reports that the permission gate suspended a run to
	// ask a human for a decision.
	PermissionAsked struct {
		Permission string
		Patterns   []string
	}

	// PermissionReplied reports that a human (or a resume command) answered
	// a pending permission question.
	PermissionReplied struct {
		Permission string
		Reply      permission.Reply
	}

	// SessionCompacted reports that the compaction hook ran and produced a
	// summary.
	SessionCompacted struct {
		SessionID string
		Summary   string
	}

	// SessionPhaseChanged reports a legal phase transition.
	SessionPhaseChanged struct {
		From string
		To   string
	}

	// SessionPhaseTransitionRejected reports an attempted but illegal phase
	// transition; the phase is left unchanged.
	SessionPhaseTransitionRejected struct {
		From    string
		To      string
		Attempt string
	}

	// StepFinish reports token usage and cost for a completed step.
	StepFinish struct {
		Tokens int
		Cost   float64
	}
)

func (RunStarted) EventKind() Kind                     { return KindRunStarted }
func (RunPaused) EventKind() Kind                      { return KindRunPaused }
func (RunResumed) EventKind() Kind                     { return KindRunResumed }
func (RunCompleted) EventKind() Kind                   { return KindRunCompleted }
func (RunFailed) EventKind() Kind                      { return KindRunFailed }
func (TextDelta) EventKind() Kind                      { return KindTextDelta }
func (TextFinal) EventKind() Kind                      { return KindTextFinal }
func (Attachment) EventKind() Kind                     { return KindAttachment }
func (ErrorEvent) EventKind() Kind                     { return KindError }
func (ToolStart) EventKind() Kind                      { return KindToolStart }
func (ToolUpdate) EventKind() Kind                     { return KindToolUpdate }
func (ToolResult) EventKind() Kind                     { return KindToolResult }
func (ToolError) EventKind() Kind                      { return KindToolError }
func (ToolStatus) EventKind() Kind                     { return KindToolStatus }
func (PermissionAsked) EventKind() Kind                { return KindPermissionAsked }
func (PermissionReplied) EventKind() Kind              { return KindPermissionReplied }
func (SessionCompacted) EventKind() Kind               { return KindSessionCompacted }
func (SessionPhaseChanged) EventKind() Kind            { return KindSessionPhaseChanged }
func (SessionPhaseTransitionRejected) EventKind() Kind { return KindSessionPhaseTransitionRejected }
func (StepFinish) EventKind() Kind                     { return KindStepFinish }

// Meta carries the sequencing metadata assigned to every recorded event.
type Meta struct {
	// EventID is a fresh, unique identifier for this event occurrence.
	EventID string
	// TimestampMs is the wall-clock time the event was sequenced, in
	// milliseconds since the Unix epoch.
	TimestampMs int64
	// Seq is the run-scoped, strictly increasing sequence number. Seq is the
	// total order of events within one run (P1); replay must preserve it.
	Seq uint64
}

// Record pairs an Event with its sequencing Meta. The recording sink emits
// Records; a bare-event Sink only ever sees the Event half.
type Record struct {
	Meta  Meta
	Event Event
}

// Now returns the current time in the form Meta.TimestampMs expects.
// Exposed so custom Clock implementations can reuse the conversion.
func Now() int64 { return time.Now().UnixMilli() }
