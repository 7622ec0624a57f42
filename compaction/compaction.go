// Package compaction implements the two size-bounded history policies that
// run between node executions: message-count-triggered summarization and
// tool-event pruning.
package compaction

import (
	"context"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/session"
)

// Policy controls whether and when the executor invokes a Hook to summarize
// session history.
type Policy struct {
	// Enabled turns compaction on or off. A disabled policy is a no-op.
	Enabled bool `yaml:"enabled"`
	// MessageThreshold is the message count above which compaction runs.
	MessageThreshold int `yaml:"message_threshold"`
}

// Context carries the inputs a Hook needs to produce a summary.
type Context struct {
	Messages   []session.Message
	PromptHint string
}

// Result is a Hook's output: a summary and, optionally, a token count spent
// producing it.
type Result struct {
	Summary string
	Tokens  int
}

// Hook summarizes session history when a Policy's threshold is crossed. The
// default hook, NoopHook, never summarizes.
type Hook interface {
	Compact(ctx context.Context, cctx Context) (Result, error)
}

// NoopHook is the default Hook: it never produces a summary.
type NoopHook struct{}

// Compact implements Hook by returning an empty Result.
func (NoopHook) Compact(context.Context, Context) (Result, error) {
	return Result{}, nil
}

// ShouldCompact reports whether the current message count crosses p's
// threshold. A disabled policy never triggers.
func (p Policy) ShouldCompact(messageCount int) bool {
	return p.Enabled && messageCount > p.MessageThreshold
}

// Run invokes hook when p.ShouldCompact(len(messages)) holds, and returns the
// SessionCompacted event to emit alongside the produced Result. ok is false
// when compaction did not run (disabled policy or below threshold) or when
// hook returned an error; the error itself is not returned.
func Run(ctx context.Context, p Policy, hook Hook, sessionID string, messages []session.Message, promptHint string) (Result, event.Event, bool) {
	if !p.ShouldCompact(len(messages)) {
		return Result{}, nil, false
	}
	if hook == nil {
		hook = NoopHook{}
	}
	result, err := hook.Compact(ctx, Context{Messages: messages, PromptHint: promptHint})
	if err != nil {
		return Result{}, nil, false
	}
	return result, event.SessionCompacted{SessionID: sessionID, Summary: result.Summary}, true
}

// PrunePolicy controls tool-event retention in the event history.
type PrunePolicy struct {
	// Enabled turns pruning on or off. A disabled policy is a no-op.
	Enabled bool `yaml:"enabled"`
	// KeepLastNToolEvents is the number of most-recent tool-related events
	// to retain; older ones are dropped.
	KeepLastNToolEvents int `yaml:"keep_last_n_tool_events"`
}

// toolKinds is the set of event kinds PruneToolEvents scans and trims.
var toolKinds = map[event.Kind]bool{
	event.KindToolStart:  true,
	event.KindToolUpdate: true,
	event.KindToolResult: true,
	event.KindToolError:  true,
	event.KindToolStatus: true,
}

// PruneToolEvents returns history with all but the most recent
// p.KeepLastNToolEvents tool-related records removed. Non-tool records are
// always preserved, in their original relative order. A disabled policy
// returns history unchanged.
func PruneToolEvents(p PrunePolicy, history []event.Record) []event.Record {
	if !p.Enabled {
		return history
	}

	toolIdx := make([]int, 0)
	for i, r := range history {
		if toolKinds[r.Event.EventKind()] {
			toolIdx = append(toolIdx, i)
		}
	}
	if len(toolIdx) <= p.KeepLastNToolEvents {
		return history
	}

	cut := len(toolIdx) - p.KeepLastNToolEvents
	drop := make(map[int]bool, cut)
	for _, i := range toolIdx[:cut] {
		drop[i] = true
	}

	out := make([]event.Record, 0, len(history)-cut)
	for i, r := range history {
		if drop[i] {
			continue
		}
		out = append(out, r)
	}
	return out
}
