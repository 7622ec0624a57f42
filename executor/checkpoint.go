package executor

import (
	"time"

	"github.com/blueberrycongee/forge/forgeerr"
	"github.com/blueberrycongee/forge/graph"
)

// Checkpoint captures everything needed to resume a suspended run: the
// state as of the interrupted node's entry, which node to re-enter, the
// pending interrupts raised there, and the iteration count so the guard
// carries over.
type Checkpoint struct {
	RunID             string
	CheckpointID      string
	CreatedAt         time.Time
	State             graph.State
	NextNode          string
	PendingInterrupts []forgeerr.Interrupt
	Iterations        uint32
	ResumeValues      map[string]any
}

// Command answers a pending interrupt on resume. When InterruptID is set,
// the resume value is bound to a specific interrupt within the checkpoint;
// otherwise it is bound generically to the node being resumed.
type Command struct {
	InterruptID string
	Value       any
}
