package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/session"
	"github.com/blueberrycongee/forge/tools"
)

func TestPhaseMachineLegalAndIllegalTransitions(t *testing.T) {
	m := session.NewMachine()
	assert.Equal(t, session.PhaseUserInput, m.Current())

	assert.True(t, m.TryTransition(session.PhaseThinking))
	assert.Equal(t, session.PhaseThinking, m.Current())

	// UserInput -> Streaming direct is illegal; Thinking -> Completed is too.
	assert.False(t, m.TryTransition(session.PhaseCompleted))
	assert.Equal(t, session.PhaseThinking, m.Current())
}

func TestPhaseMachineTryTransitionWithEventEmitsRejection(t *testing.T) {
	m := session.NewMachine()
	ev := m.TryTransitionWithEvent(session.PhaseCompleted)
	rejected, ok := ev.(event.SessionPhaseTransitionRejected)
	require.True(t, ok)
	assert.Equal(t, string(session.PhaseUserInput), rejected.From)
	assert.Equal(t, string(session.PhaseCompleted), rejected.Attempt)
	assert.Equal(t, session.PhaseUserInput, m.Current())
}

func TestApplyTextDeltaThenFinalAccreteIntoMessage(t *testing.T) {
	s := session.NewState("sess1")
	assert.Equal(t, session.PhaseUserInput, s.Phase())

	// A fresh session starts in UserInput, so TextDelta's attempt to move to
	// Streaming is illegal and rejected; the run continues regardless.
	emitted := session.Apply(s, event.TextDelta{SessionID: "sess1", MessageID: "m1", Delta: "hel"})
	require.Len(t, emitted, 1)
	_, rejected := emitted[0].(event.SessionPhaseTransitionRejected)
	assert.True(t, rejected, "UserInput -> Streaming is illegal, so TextDelta's attempt is rejected")

	emitted = session.Apply(s, event.TextFinal{SessionID: "sess1", MessageID: "m1", Text: "hello"})
	assert.Nil(t, emitted)

	s.FinalizeMessage(session.RoleAssistant)
	require.Len(t, s.Messages, 1)
	require.Len(t, s.Messages[0].Parts, 2)
	assert.Equal(t, session.PartTextDelta, s.Messages[0].Parts[0].Kind)
	assert.Equal(t, session.PartTextFinal, s.Messages[0].Parts[1].Kind)
	assert.Empty(t, s.PendingParts)
}

func TestApplyToolLifecycleTracksCallRecord(t *testing.T) {
	s := session.NewState("sess1")

	session.Apply(s, event.ToolStart{Tool: "search", CallID: "c1"})
	rec, ok := s.ToolCalls["c1"]
	require.True(t, ok)
	assert.Equal(t, tools.StateRunning, rec.Status)

	session.Apply(s, event.ToolResult{Tool: "search", CallID: "c1", Output: tools.Output{Content: "found it"}})
	rec = s.ToolCalls["c1"]
	assert.Equal(t, tools.StateCompleted, rec.Status)
	require.NotNil(t, rec.Output)
	assert.Equal(t, "found it", rec.Output.Content)

	require.Len(t, s.PendingParts, 1)
	assert.Equal(t, session.PartToolResult, s.PendingParts[0].Kind)
}

func TestApplyToolErrorTracksFailure(t *testing.T) {
	s := session.NewState("sess1")
	session.Apply(s, event.ToolStart{Tool: "search", CallID: "c1"})
	session.Apply(s, event.ToolError{Tool: "search", CallID: "c1", Error: "boom"})

	rec := s.ToolCalls["c1"]
	assert.Equal(t, tools.StateError, rec.Status)
	assert.Equal(t, "boom", rec.Error)
}

func TestFinalizeMessageNoopWhenEmpty(t *testing.T) {
	s := session.NewState("sess1")
	s.FinalizeMessage(session.RoleAssistant)
	assert.Empty(t, s.Messages)
}
