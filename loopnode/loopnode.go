// Package loopnode implements the tool-calling streaming node: a
// caller-supplied handler runs inside a LoopContext that gates every tool
// call through the permission session before forwarding it to the tool
// registry, raising an interrupt when a human decision is required.
package loopnode

import (
	"context"
	"fmt"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/forgeerr"
	"github.com/blueberrycongee/forge/graph"
	"github.com/blueberrycongee/forge/ids"
	"github.com/blueberrycongee/forge/permission"
	"github.com/blueberrycongee/forge/tools"
	"github.com/blueberrycongee/forge/toolregistry"
)

// Handler is the caller-supplied loop body: given the current state and a
// LoopContext bound to this invocation, it returns the next state.
type Handler func(ctx context.Context, state graph.State, lc *LoopContext) (graph.State, error)

// LoopContext is handed to a loop handler on every invocation. It carries
// the event sink the node streams through, the shared tool registry and
// permission session, and the node name used to scope raised interrupts.
type LoopContext struct {
	sink        event.Sink
	registry    *toolregistry.Registry
	permSession *permission.Session
	nodeName    string
}

// PermissionFor builds the permission string consulted for a tool call,
// using the "tool:{name}" convention.
func PermissionFor(toolName string) string {
	return fmt.Sprintf("tool:%s", toolName)
}

// RunTool resolves the permission decision for call and either forwards it
// to the registry, raises an interrupt carrying a permission.Request, or
// denies it outright, per the permission decision:
//
//   - Allow: forwarded to the registry via RunWithEvents.
//   - Ask: emits PermissionAsked and returns a *forgeerr.Error of
//     KindInterrupted carrying a permission.Request for the caller to
//     resolve via Resume.
//   - Deny: emits a synthetic ToolError and fails with KindExecutionError.
func (lc *LoopContext) RunTool(ctx context.Context, call tools.Call) (tools.Output, error) {
	perm := PermissionFor(call.ToolName)

	switch lc.permSession.Decide(perm) {
	case permission.Allow:
		return lc.registry.RunWithEvents(ctx, call, lc.sink)

	case permission.Ask:
		lc.sink.Emit(event.PermissionAsked{Permission: perm})
		req := permission.Request{
			Permission: perm,
			Tool:       call.ToolName,
			CallID:     call.CallID,
			Input:      call.Input,
		}
		return tools.Output{}, forgeerr.Interrupted([]forgeerr.Interrupt{
			{ID: ids.NewInterruptID(), NodeName: lc.nodeName, Value: req},
		})

	default: // permission.Deny
		lc.sink.Emit(event.ToolError{Tool: call.ToolName, CallID: call.CallID, Error: "permission denied"})
		return tools.Output{}, forgeerr.ExecutionError(lc.nodeName, "permission denied")
	}
}

// ReplyPermission records reply against perm in the session's override
// state and emits PermissionReplied.
func (lc *LoopContext) ReplyPermission(perm string, reply permission.Reply) {
	lc.permSession.ApplyReply(perm, reply)
	lc.sink.Emit(event.PermissionReplied{Permission: perm, Reply: reply})
}

// ResumePermission parses and applies a resume value answering a pending
// PermissionAsked interrupt, then emits PermissionReplied.
func (lc *LoopContext) ResumePermission(value permission.ResumeValue) error {
	if err := lc.permSession.ApplyResume(value); err != nil {
		return err
	}
	lc.sink.Emit(event.PermissionReplied{Permission: value.Permission, Reply: value.Reply})
	return nil
}

// Emit forwards e to the node's event sink, letting a loop handler stream
// its own events (text deltas, attachments) alongside tool lifecycle events.
func (lc *LoopContext) Emit(e event.Event) {
	lc.sink.Emit(e)
}

// LoopNode wraps handler with the permission-gated tool-calling context and
// produces a graph.NodeSpec via IntoNode.
type LoopNode struct {
	name        string
	handler     Handler
	registry    *toolregistry.Registry
	permSession *permission.Session
}

// New constructs a LoopNode named name, running handler against registry and
// permSession.
func New(name string, handler Handler, registry *toolregistry.Registry, permSession *permission.Session) *LoopNode {
	return &LoopNode{name: name, handler: handler, registry: registry, permSession: permSession}
}

// IntoNode produces the graph.NodeSpec the graph builder accepts via
// AddNodeSpec.
func (n *LoopNode) IntoNode() graph.NodeSpec {
	return graph.NodeSpec{
		Name: n.name,
		Handler: func(ctx context.Context, state graph.State, sink event.Sink) (graph.State, error) {
			lc := &LoopContext{sink: sink, registry: n.registry, permSession: n.permSession, nodeName: n.name}
			return n.handler(ctx, state, lc)
		},
	}
}
