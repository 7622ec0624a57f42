// Package executor runs a compiled graph to completion or to a checkpoint:
// the dispatch loop, iteration guard, trace recording, compaction/prune
// scheduling, and checkpoint/resume handling that ties the other components
// together.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/blueberrycongee/forge/compaction"
	"github.com/blueberrycongee/forge/engineconfig"
	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/forgeerr"
	"github.com/blueberrycongee/forge/graph"
	"github.com/blueberrycongee/forge/ids"
	"github.com/blueberrycongee/forge/permission"
	"github.com/blueberrycongee/forge/session"
	"github.com/blueberrycongee/forge/snapshot"
	"github.com/blueberrycongee/forge/telemetry"
	"github.com/blueberrycongee/forge/trace"
)

// DefaultMaxIterations bounds dispatch loops that never set an explicit
// override.
const DefaultMaxIterations = 25

// Executor drives one compiled graph's node dispatch loop.
type Executor struct {
	graph *graph.CompiledGraph

	maxIterations uint32

	compactionPolicy      compaction.Policy
	compactionHook        compaction.Hook
	prunePolicy           compaction.PrunePolicy
	pruneBeforeCompaction bool

	permSession *permission.Session
	snapStore   snapshot.Store

	log     telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n uint32) Option {
	return func(e *Executor) { e.maxIterations = n }
}

// WithCompaction installs a CompactionPolicy and the Hook to invoke when it
// triggers.
func WithCompaction(policy compaction.Policy, hook compaction.Hook) Option {
	return func(e *Executor) { e.compactionPolicy = policy; e.compactionHook = hook }
}

// WithPrune installs a PrunePolicy and whether pruning runs before
// compaction between node executions (default true).
func WithPrune(policy compaction.PrunePolicy, beforeCompaction bool) Option {
	return func(e *Executor) { e.prunePolicy = policy; e.pruneBeforeCompaction = beforeCompaction }
}

// WithPermissionSession attaches the permission session a resume command
// should apply permission replies to, when the interrupt being resumed
// carries a permission.Request.
func WithPermissionSession(s *permission.Session) Option {
	return func(e *Executor) { e.permSession = s }
}

// WithSnapshotStore attaches the Store a run's Snapshot document is persisted
// to after every dispatch return (completed, failed, or paused). A nil store
// (the default) skips persistence; Run.Snapshot is still populated either way.
func WithSnapshotStore(store snapshot.Store) Option {
	return func(e *Executor) { e.snapStore = store }
}

// WithTelemetry overrides the Executor's logger, metrics, and tracer.
func WithTelemetry(log telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) Option {
	return func(e *Executor) { e.log = log; e.metrics = metrics; e.tracer = tracer }
}

// WithExecutionConfig applies a loaded engineconfig.ExecutionConfig's
// iteration guard, compaction policy, and prune policy in one call. hook is
// the compaction hook to pair with cfg.Compaction; pass nil for the default
// no-op hook.
func WithExecutionConfig(cfg engineconfig.ExecutionConfig, hook compaction.Hook) Option {
	return func(e *Executor) {
		if cfg.MaxIterations > 0 {
			e.maxIterations = cfg.MaxIterations
		}
		e.compactionPolicy = cfg.Compaction
		e.compactionHook = hook
		e.prunePolicy = cfg.Prune
		e.pruneBeforeCompaction = cfg.PruneBeforeCompaction
	}
}

// New constructs an Executor over a compiled graph.
func New(g *graph.CompiledGraph, opts ...Option) *Executor {
	e := &Executor{
		graph:                 g,
		maxIterations:         DefaultMaxIterations,
		pruneBeforeCompaction: true,
		log:                   telemetry.NoopLogger{},
		metrics:               telemetry.NoopMetrics{},
		tracer:                telemetry.NoopTracer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run holds the per-invocation state threaded through the dispatch loop and
// returned to the caller: either the completed user state, or a Checkpoint
// to resume from later.
type Run struct {
	State      graph.State
	Checkpoint *Checkpoint
	// History is the sequenced record of the events emitted during this
	// Invoke/StreamEvents/Resume call, in emit order, without the tool
	// events the prune policy dropped. Meta.Seq is
	// strictly increasing across it regardless of which sink(s) the caller
	// passed in.
	History []event.Record
	// Trace is the node/compaction trace recorded across this call.
	Trace *trace.ExecutionTrace
	// Snapshot is the session document built from this call's messages,
	// tool calls, compactions, and trace. It has already been persisted via
	// the Executor's snapshot.Store, if one was configured.
	Snapshot *snapshot.Snapshot
}

// Invoke runs state through the graph to completion or to a checkpoint,
// using a discarding event sink.
func (e *Executor) Invoke(ctx context.Context, sessionID string, state graph.State) (Run, error) {
	return e.StreamEvents(ctx, sessionID, state, discardSink{})
}

// StreamEvents runs state through the graph, forwarding every emitted event
// to sink.
func (e *Executor) StreamEvents(ctx context.Context, sessionID string, state graph.State, sink event.Sink) (Run, error) {
	sessState := session.NewState(sessionID)
	rs := NewRecordingSink(sessState, sink, nil)
	tr := trace.New()

	runID := ids.NewRunID()
	rs.Emit(event.RunStarted{RunID: runID})
	return e.dispatch(ctx, dispatchInput{
		runID:      runID,
		sessState:  sessState,
		rs:         rs,
		trace:      tr,
		snap:       snapshot.New(),
		state:      state,
		node:       e.graph.EntryNode(),
		iterations: 0,
	})
}

// Resume continues a suspended run from checkpoint, injecting cmd's value
// as a resume value and, when the checkpoint's pending interrupt is a
// permission request, applying it to the attached permission session.
func (e *Executor) Resume(ctx context.Context, sessionID string, ckpt *Checkpoint, cmd Command, sink event.Sink) (Run, error) {
	key := fmt.Sprintf("resume:%s", ckpt.NextNode)
	if cmd.InterruptID != "" {
		key = fmt.Sprintf("resume:%s:%s", ckpt.NextNode, cmd.InterruptID)
	}
	if ckpt.ResumeValues == nil {
		ckpt.ResumeValues = make(map[string]any)
	}
	ckpt.ResumeValues[key] = cmd.Value

	if e.permSession != nil {
		for _, intr := range ckpt.PendingInterrupts {
			if cmd.InterruptID != "" && intr.ID != cmd.InterruptID {
				continue
			}
			if req, ok := intr.Value.(permission.Request); ok {
				if rv, ok := cmd.Value.(permission.ResumeValue); ok {
					if err := e.permSession.ApplyResume(rv); err != nil {
						return Run{}, forgeerr.Wrap(forgeerr.KindOther, "", err)
					}
					_ = req
				}
			}
		}
	}

	sessState := session.NewState(sessionID)
	rs := NewRecordingSink(sessState, sink, nil)
	tr := trace.New()

	rs.Emit(event.RunResumed{RunID: ckpt.RunID, CheckpointID: ckpt.CheckpointID})
	return e.dispatch(ctx, dispatchInput{
		runID:      ckpt.RunID,
		sessState:  sessState,
		rs:         rs,
		trace:      tr,
		snap:       snapshot.New(),
		state:      ckpt.State,
		node:       ckpt.NextNode,
		iterations: ckpt.Iterations,
	})
}

type dispatchInput struct {
	runID      string
	sessState  *session.State
	rs         *RecordingSink
	trace      *trace.ExecutionTrace
	snap       *snapshot.Snapshot
	state      graph.State
	node       string
	iterations uint32
}

func (e *Executor) dispatch(ctx context.Context, in dispatchInput) (Run, error) {
	ctx, span := e.tracer.Start(ctx, "executor.dispatch")
	defer span.End()

	current := in.node
	iterations := in.iterations
	state := in.state

	for current != graph.End {
		iterations++
		if iterations > e.maxIterations {
			err := forgeerr.MaxIterationsExceeded(current, int(e.maxIterations))
			in.rs.Emit(event.RunFailed{RunID: in.runID, Message: err.Error()})
			return e.finishRun(ctx, in, Run{}), err
		}

		entryState := state
		start := time.Now()
		in.trace.Append(trace.NodeStart(current, start))

		var err error
		if e.graph.IsPlain(current) {
			state, err = e.graph.InvokePlain(ctx, current, state)
		} else {
			state, err = e.graph.InvokeStream(ctx, current, state, in.rs)
		}

		if err != nil {
			fe := forgeerr.FromError(err)
			if fe.Kind == forgeerr.KindInterrupted {
				checkpointID := ids.NewCheckpointID()
				in.rs.Emit(event.RunPaused{RunID: in.runID, CheckpointID: checkpointID})
				ckpt := &Checkpoint{
					RunID:             in.runID,
					CheckpointID:      checkpointID,
					CreatedAt:         time.Now(),
					State:             entryState,
					NextNode:          current,
					PendingInterrupts: fe.Interrupts,
					Iterations:        iterations,
					ResumeValues:      make(map[string]any),
				}
				return e.finishRun(ctx, in, Run{Checkpoint: ckpt}), nil
			}
			e.log.Error(ctx, "node execution failed", "node", current, "run_id", in.runID, "error", err)
			e.metrics.IncCounter("forge.run.failed", 1, "node", current)
			in.rs.Emit(event.RunFailed{RunID: in.runID, Message: err.Error()})
			return e.finishRun(ctx, in, Run{}), err
		}

		in.trace.Append(trace.NodeFinish(current, time.Since(start), time.Now()))
		e.metrics.RecordTimer("forge.node.duration", time.Since(start), "node", current)
		in.sessState.FinalizeMessage(session.RoleAssistant)
		e.runCompactionAndPrune(ctx, in)

		override := in.sessState.Next
		in.sessState.Next = ""
		next, err := e.graph.Next(ctx, current, state, override)
		if err != nil {
			in.rs.Emit(event.RunFailed{RunID: in.runID, Message: err.Error()})
			return e.finishRun(ctx, in, Run{}), err
		}
		current = next
	}

	in.sessState.Complete = true
	in.rs.Emit(event.RunCompleted{RunID: in.runID})
	return e.finishRun(ctx, in, Run{State: state}), nil
}

// finishRun builds the run's Snapshot from its accumulated session state and
// trace, persists it via the configured snapshot.Store (if any), and fills
// partial's History/Trace/Snapshot fields.
func (e *Executor) finishRun(ctx context.Context, in dispatchInput, partial Run) Run {
	in.snap.Trace = in.trace
	for _, msg := range in.sessState.Messages {
		in.snap.PushMessage(msg)
	}
	for callID, rec := range in.sessState.ToolCalls {
		in.snap.ToolCalls[callID] = rec
	}

	if e.snapStore != nil {
		if err := e.snapStore.Save(ctx, in.sessState.SessionID, in.snap); err != nil {
			e.log.Error(ctx, "snapshot save failed", "session_id", in.sessState.SessionID, "error", err)
		}
	}

	partial.History = in.rs.History()
	partial.Trace = in.trace
	partial.Snapshot = in.snap
	return partial
}

func (e *Executor) runCompactionAndPrune(ctx context.Context, in dispatchInput) {
	prune := func() {
		if !e.prunePolicy.Enabled {
			return
		}
		in.rs.PruneHistory(compaction.PruneToolEvents(e.prunePolicy, in.rs.History()))
	}
	compact := func() {
		if !e.compactionPolicy.Enabled {
			return
		}
		result, ev, ok := compaction.Run(ctx, e.compactionPolicy, e.compactionHook, in.sessState.SessionID, in.sessState.Messages, "")
		if ok {
			now := time.Now()
			in.trace.Append(trace.Compacted(in.sessState.SessionID, result.Summary, now))
			in.snap.RecordCompaction(result.Summary, result.Tokens, now)
			in.rs.Emit(ev)
		}
	}
	if e.pruneBeforeCompaction {
		prune()
		compact()
	} else {
		compact()
		prune()
	}
}

// discardSink is the silent sink Invoke uses: it drops every event.
type discardSink struct{}

func (discardSink) Emit(event.Event) {}
