package session

import "github.com/blueberrycongee/forge/tools"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind enumerates Part's tags.
type PartKind string

const (
	PartTextDelta  PartKind = "text_delta"
	PartTextFinal  PartKind = "text_final"
	PartToolResult PartKind = "tool_result"
	PartToolError  PartKind = "tool_error"
	PartAttachment PartKind = "attachment"
	PartTokenUsage PartKind = "token_usage"
)

// Part is a single fragment of a Message's content. Exactly one of the
// kind-specific fields is populated, selected by Kind. Parts preserve
// arrival order within a Message.
type Part struct {
	Kind PartKind

	Text string // TextDelta, TextFinal

	CallID string // ToolResult, ToolError
	Output tools.Output
	Error  string

	Attachment any // structured attachment payload, opaque to the reducer

	Tokens int // TokenUsage
}

// Message is a single turn in the conversation, assembled from Parts drained
// from pending_parts by finalize_message.
type Message struct {
	Role  Role
	Parts []Part
}

// State is the structured record the session reducer folds events into. It
// is mutated by Apply, by FinalizeMessage, and by the executor (which clears
// Next and sets Complete); callers otherwise treat it as read-only.
type State struct {
	SessionID string
	MessageID string
	Step      uint64

	PendingParts []Part
	Messages     []Message
	ToolCalls    map[string]tools.CallRecord

	phase *Machine

	// Next, when set, is the node the executor should dispatch to next,
	// overriding the compiled graph's static/conditional routing.
	Next string
	// Complete marks the session as finished; the executor sets this when
	// the run reaches __end__.
	Complete bool
}

// NewState returns a fresh State for sessionID, in the default initial
// phase.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		ToolCalls: make(map[string]tools.CallRecord),
		phase:     NewMachine(),
	}
}

// Phase returns the session's current phase.
func (s *State) Phase() Phase { return s.phase.Current() }

// FinalizeMessage drains PendingParts (in order) into a new Message appended
// to Messages, tagged with role. It is a no-op when PendingParts is empty.
func (s *State) FinalizeMessage(role Role) {
	if len(s.PendingParts) == 0 {
		return
	}
	s.Messages = append(s.Messages, Message{Role: role, Parts: s.PendingParts})
	s.PendingParts = nil
}
