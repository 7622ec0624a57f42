// Package session implements the pure session-state reducer: a deterministic
// fold from the runtime event stream into a structured record of messages,
// pending parts, tool-call records, and the session phase machine.
package session

import (
	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/tools"
)

// Apply folds e into s, mutating s in place, and returns any events the
// reducer itself produced as a side effect (phase-change or
// phase-rejection events). Apply never fails: an event the reducer does not
// recognize, or a phase transition the machine rejects, is handled
// best-effort and never aborts the run.
func Apply(s *State, e event.Event) []event.Event {
	switch ev := e.(type) {
	case event.TextDelta:
		s.PendingParts = append(s.PendingParts, Part{Kind: PartTextDelta, Text: ev.Delta})
		return emit(s.phase.TryTransitionWithEvent(PhaseStreaming))

	case event.TextFinal:
		s.PendingParts = append(s.PendingParts, Part{Kind: PartTextFinal, Text: ev.Text})
		return nil

	case event.ToolStart:
		rec := s.ToolCalls[ev.CallID]
		rec.CallID = ev.CallID
		rec.ToolName = ev.Tool
		rec.Status = tools.StateRunning
		s.ToolCalls[ev.CallID] = rec
		return emit(s.phase.TryTransitionWithEvent(PhaseTool))

	case event.ToolResult:
		rec := s.ToolCalls[ev.CallID]
		rec.CallID = ev.CallID
		rec.ToolName = ev.Tool
		rec.Status = tools.StateCompleted
		out := ev.Output
		rec.Output = &out
		s.ToolCalls[ev.CallID] = rec
		s.PendingParts = append(s.PendingParts, Part{Kind: PartToolResult, CallID: ev.CallID, Output: ev.Output})
		return emit(s.phase.TryTransitionWithEvent(PhaseStreaming))

	case event.ToolError:
		rec := s.ToolCalls[ev.CallID]
		rec.CallID = ev.CallID
		rec.Status = tools.StateError
		rec.Error = ev.Error
		s.ToolCalls[ev.CallID] = rec
		s.PendingParts = append(s.PendingParts, Part{Kind: PartToolError, CallID: ev.CallID, Error: ev.Error})
		return emit(s.phase.TryTransitionWithEvent(PhaseStreaming))

	case event.Attachment:
		s.PendingParts = append(s.PendingParts, Part{Kind: PartAttachment, Attachment: ev.Payload})
		return nil

	case event.ErrorEvent:
		s.PendingParts = append(s.PendingParts, Part{Kind: PartTextFinal, Text: ev.Message})
		return nil

	case event.StepFinish:
		s.PendingParts = append(s.PendingParts, Part{Kind: PartTokenUsage, Tokens: ev.Tokens})
		return emit(s.phase.TryTransitionWithEvent(PhaseFinalize))

	default:
		return nil
	}
}

// emit wraps a single produced event (which may itself be a no-op rejection
// with From==To, see Machine) into the slice shape Apply returns.
func emit(e event.Event) []event.Event {
	return []event.Event{e}
}
