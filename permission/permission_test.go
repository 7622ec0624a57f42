package permission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/forge/permission"
)

func TestPolicyDecideFirstMatchWins(t *testing.T) {
	policy := permission.NewPolicy(
		permission.Rule{Pattern: "tool:danger*", Decision: permission.Deny},
		permission.Rule{Pattern: "tool:*", Decision: permission.Ask},
	)
	assert.Equal(t, permission.Deny, policy.Decide("tool:danger_delete"))
	assert.Equal(t, permission.Ask, policy.Decide("tool:echo"))
	assert.Equal(t, permission.Allow, policy.Decide("resource:file"))
}

func TestNilPolicyAllowsEverything(t *testing.T) {
	var policy *permission.Policy
	assert.Equal(t, permission.Allow, policy.Decide("tool:echo"))
}

// P3 — permission precedence: reject > always > once > policy, and a "once"
// reply is consumed after a single Decide.
func TestSessionDecidePrecedenceOrder(t *testing.T) {
	policy := permission.NewPolicy(permission.Rule{Pattern: "tool:echo", Decision: permission.Ask})
	s := permission.NewSession(policy)

	assert.Equal(t, permission.Ask, s.Decide("tool:echo"))

	s.ApplyReply("tool:echo", permission.ReplyOnce)
	assert.Equal(t, permission.Allow, s.Decide("tool:echo"))
	// Once is consumed: the policy's Ask reasserts itself.
	assert.Equal(t, permission.Ask, s.Decide("tool:echo"))

	s.ApplyReply("tool:echo", permission.ReplyAlways)
	assert.Equal(t, permission.Allow, s.Decide("tool:echo"))
	assert.Equal(t, permission.Allow, s.Decide("tool:echo"))

	s.ApplyReply("tool:echo", permission.ReplyReject)
	assert.Equal(t, permission.Deny, s.Decide("tool:echo"))
	// Reject outranks the always entry left over from before.
	assert.Equal(t, permission.Deny, s.Decide("tool:echo"))
}

func TestApplyResumeRejectsMalformedValues(t *testing.T) {
	s := permission.NewSession(permission.NewPolicy())

	err := s.ApplyResume(permission.ResumeValue{Permission: "", Reply: permission.ReplyAlways})
	require.Error(t, err)

	err = s.ApplyResume(permission.ResumeValue{Permission: "tool:echo", Reply: "maybe"})
	require.Error(t, err)

	require.NoError(t, s.ApplyResume(permission.ResumeValue{Permission: "tool:echo", Reply: permission.ReplyAlways}))
	assert.Equal(t, permission.Allow, s.Decide("tool:echo"))
}

// P4 — snapshot round-trip: restore(snapshot(s)) decides identically to s.
func TestSnapshotRestoreRoundTrip(t *testing.T) {
	policy := permission.NewPolicy(permission.Rule{Pattern: "tool:*", Decision: permission.Ask})
	s := permission.NewSession(policy)
	s.ApplyReply("tool:echo", permission.ReplyAlways)
	s.ApplyReply("tool:danger", permission.ReplyReject)
	s.ApplyReply("tool:once_only", permission.ReplyOnce)

	restored := permission.Restore(s.Snapshot(), policy)

	assert.Equal(t, s.Decide("tool:echo"), restored.Decide("tool:echo"))
	assert.Equal(t, s.Decide("tool:danger"), restored.Decide("tool:danger"))
	assert.Equal(t, permission.Allow, restored.Decide("tool:once_only"))
	assert.Equal(t, permission.Ask, restored.Decide("tool:unseen"))
}
