// Package ids centralizes identifier generation for Forge. Every identifier
// domain (events, checkpoints, runs, tool calls) goes through this package so
// the ID format can change in one place.
package ids

import "github.com/google/uuid"

// NewEventID returns a fresh, unique event identifier.
func NewEventID() string { return "evt_" + uuid.NewString() }

// NewCheckpointID returns a fresh, unique checkpoint identifier.
func NewCheckpointID() string { return "ckpt_" + uuid.NewString() }

// NewRunID returns a fresh, unique run identifier.
func NewRunID() string { return "run_" + uuid.NewString() }

// NewCallID returns a fresh, unique tool call identifier. Callers that
// already have a caller-supplied call id should use that instead.
func NewCallID() string { return "call_" + uuid.NewString() }

// NewInterruptID returns a fresh, unique interrupt identifier.
func NewInterruptID() string { return "intr_" + uuid.NewString() }

// NewMessageID returns a fresh, unique message identifier.
func NewMessageID() string { return "msg_" + uuid.NewString() }
