package session

import "github.com/blueberrycongee/forge/event"

// Phase enumerates the stages a session moves through over the course of a
// run.
type Phase string

const (
	PhaseUserInput  Phase = "user_input"
	PhaseThinking   Phase = "thinking"
	PhaseStreaming  Phase = "streaming"
	PhaseTool       Phase = "tool"
	PhaseFinalize   Phase = "finalize"
	PhaseCompleted  Phase = "completed"
	PhaseInterrupted Phase = "interrupted"
	PhaseResumed    Phase = "resumed"
)

// transitions is the static table of legal (from, to) phase pairs. Any pair
// absent from this table is rejected: the phase is left unchanged and a
// rejection event is emitted instead of aborting the run.
var transitions = map[Phase]map[Phase]bool{
	PhaseUserInput: {
		PhaseThinking:    true,
		PhaseInterrupted: true,
	},
	PhaseThinking: {
		PhaseStreaming:   true,
		PhaseTool:        true,
		PhaseInterrupted: true,
	},
	PhaseStreaming: {
		PhaseTool:        true,
		PhaseFinalize:    true,
		PhaseInterrupted: true,
	},
	PhaseTool: {
		PhaseStreaming:   true,
		PhaseInterrupted: true,
	},
	PhaseFinalize: {
		PhaseCompleted:   true,
		PhaseInterrupted: true,
	},
	PhaseCompleted: {
		PhaseInterrupted: true,
	},
	PhaseInterrupted: {
		PhaseResumed: true,
	},
	PhaseResumed: {
		PhaseThinking:    true,
		PhaseInterrupted: true,
	},
}

// CanTransition reports whether moving from "from" to "to" is a legal phase
// transition.
func CanTransition(from, to Phase) bool {
	return transitions[from][to]
}

// Machine tracks a single session's current phase and enforces the legal
// transition table. It is not safe for concurrent use; callers serialize
// access the same way they serialize reducer calls.
type Machine struct {
	current Phase
}

// NewMachine returns a Machine starting in the default initial phase,
// UserInput.
func NewMachine() *Machine {
	return &Machine{current: PhaseUserInput}
}

// Current returns the machine's current phase.
func (m *Machine) Current() Phase { return m.current }

// TryTransition attempts to move to "to". It mutates and returns true when
// the transition is legal, and returns false (leaving the phase unchanged)
// otherwise.
func (m *Machine) TryTransition(to Phase) bool {
	if !CanTransition(m.current, to) {
		return false
	}
	m.current = to
	return true
}

// TryTransitionWithEvent attempts to move to "to" and returns the runtime
// event the reducer should emit for the attempt: SessionPhaseChanged on
// success, SessionPhaseTransitionRejected on failure. The phase is left
// unchanged on failure.
func (m *Machine) TryTransitionWithEvent(to Phase) event.Event {
	from := m.current
	if m.TryTransition(to) {
		return event.SessionPhaseChanged{From: string(from), To: string(to)}
	}
	return event.SessionPhaseTransitionRejected{From: string(from), To: string(from), Attempt: string(to)}
}
