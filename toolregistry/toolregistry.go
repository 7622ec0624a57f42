// Package toolregistry maps tool names to handlers and drives the
// lifecycle-event contract every tool call must emit: Pending, Start,
// Running, then a terminal Result/Error paired with Completed/Error.
package toolregistry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/forgeerr"
	"github.com/blueberrycongee/forge/telemetry"
	"github.com/blueberrycongee/forge/tools"
)

// Handler invokes a single registered tool call. Handlers run after input
// validation and rate limiting, and are themselves responsible for honoring
// ctx cancellation.
type Handler func(ctx context.Context, call tools.Call) (tools.Output, error)

type entry struct {
	def     tools.Definition
	handler Handler
	limiter *rate.Limiter
}

// Registry is a name -> handler map with declaration schemas, tool output
// schema annotations, and optional per-tool rate limiting. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	schemas *tools.SchemaRegistry
	log     telemetry.Logger
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger overrides the Registry's logger. Defaults to telemetry.NoopLogger.
func WithLogger(l telemetry.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New constructs an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		schemas: tools.NewSchemaRegistry(),
		log:     telemetry.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterWithDefinition compiles def's input schema and registers handler
// under def.Name. It fails if a tool by that name is already registered or
// the schema fails to compile.
func (r *Registry) RegisterWithDefinition(def tools.Definition, handler Handler) error {
	if def.Name == "" {
		return forgeerr.Newf(forgeerr.KindValidationError, "toolregistry: tool name is required")
	}
	if err := def.Compile(); err != nil {
		return forgeerr.Wrap(forgeerr.KindValidationError, "", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return forgeerr.Newf(forgeerr.KindValidationError, "toolregistry: tool %q already registered", def.Name)
	}
	r.entries[def.Name] = &entry{def: def, handler: handler}
	return nil
}

// SetRateLimit installs a token-bucket limit of rps calls per second, with
// the given burst, for the named tool. Calling RunWithEvents on that tool
// blocks until the limiter admits it or ctx is canceled.
func (r *Registry) SetRateLimit(name string, rps float64, burst int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return forgeerr.Newf(forgeerr.KindNodeNotFound, "toolregistry: tool %q not registered", name)
	}
	e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// SchemaRegistry returns the registry's output-schema annotator, shared
// across all registered tools.
func (r *Registry) SchemaRegistry() *tools.SchemaRegistry {
	return r.schemas
}

// RunWithEvents executes call against the tool registered under call.ToolName,
// emitting the lifecycle event sequence described in the tool-calling-loop
// design: Pending -> Start -> Running, then on completion either
// Result -> Completed or Error -> Error. An unregistered tool name emits a
// synthetic ToolError and fails with KindExecutionError without ever
// reaching Running.
func (r *Registry) RunWithEvents(ctx context.Context, call tools.Call, sink event.Sink) (tools.Output, error) {
	r.mu.RLock()
	e, ok := r.entries[call.ToolName]
	r.mu.RUnlock()

	if !ok {
		sink.Emit(event.ToolError{Tool: call.ToolName, CallID: call.CallID, Error: "unknown tool"})
		return tools.Output{}, forgeerr.ExecutionError("", fmt.Sprintf("toolregistry: unknown tool %q", call.ToolName))
	}

	sink.Emit(event.ToolStatus{CallID: call.CallID, State: tools.StatePending})
	sink.Emit(event.ToolStart{Tool: call.ToolName, CallID: call.CallID, Input: call.Input})
	sink.Emit(event.ToolStatus{CallID: call.CallID, State: tools.StateRunning})

	if err := e.def.Validate(call.Input); err != nil {
		sink.Emit(event.ToolError{Tool: call.ToolName, CallID: call.CallID, Error: err.Error()})
		sink.Emit(event.ToolStatus{CallID: call.CallID, State: tools.StateError})
		return tools.Output{}, forgeerr.Wrap(forgeerr.KindExecutionError, "", err)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			sink.Emit(event.ToolError{Tool: call.ToolName, CallID: call.CallID, Error: err.Error()})
			sink.Emit(event.ToolStatus{CallID: call.CallID, State: tools.StateError})
			return tools.Output{}, forgeerr.Wrap(forgeerr.KindExecutionError, "", err)
		}
	}

	out, err := e.handler(ctx, call)
	if err != nil {
		r.log.Warn(ctx, "tool call failed", "tool", call.ToolName, "call_id", call.CallID, "error", err)
		sink.Emit(event.ToolError{Tool: call.ToolName, CallID: call.CallID, Error: err.Error()})
		sink.Emit(event.ToolStatus{CallID: call.CallID, State: tools.StateError})
		return tools.Output{}, forgeerr.Wrap(forgeerr.KindExecutionError, "", err)
	}

	r.schemas.AnnotateOutput(call.ToolName, &out)
	sink.Emit(event.ToolResult{Tool: call.ToolName, CallID: call.CallID, Output: out})
	sink.Emit(event.ToolStatus{CallID: call.CallID, State: tools.StateCompleted})
	return out, nil
}
