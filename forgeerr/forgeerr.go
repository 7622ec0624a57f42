// Package forgeerr defines the structured error taxonomy shared by every
// Forge component. Errors carry a stable Kind, kind-specific fields, and an
// optional wrapped cause, modeled on the message/cause chaining pattern used
// throughout the teacher runtime's tool-error type.
package forgeerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the structured failure categories a Forge component can
// raise. Kind values are stable strings: callers may switch on them, log
// them, or serialize them without risking churn from Go type renames.
type Kind string

const (
	// KindNodeNotFound reports a reference to an undefined node.
	KindNodeNotFound Kind = "node_not_found"
	// KindNodeAlreadyExists reports a duplicate node name at build time.
	KindNodeAlreadyExists Kind = "node_already_exists"
	// KindInvalidNodeName reports an empty or sentinel-colliding node name.
	KindInvalidNodeName Kind = "invalid_node_name"
	// KindInvalidEdge reports an edge referencing an unknown node.
	KindInvalidEdge Kind = "invalid_edge"
	// KindNoEntryPoint reports a graph with no path from __start__ to __end__.
	KindNoEntryPoint Kind = "no_entry_point"
	// KindValidationError reports a general compile-time validation failure,
	// such as a conditional router with overlapping static successors.
	KindValidationError Kind = "validation_error"
	// KindMaxIterationsExceeded reports that a run exceeded its iteration guard.
	KindMaxIterationsExceeded Kind = "max_iterations_exceeded"
	// KindExecutionError reports a node handler failure during execution.
	KindExecutionError Kind = "execution_error"
	// KindBranchError reports a conditional router failure during execution.
	KindBranchError Kind = "branch_error"
	// KindNotCompiled reports an attempt to execute an uncompiled graph.
	KindNotCompiled Kind = "not_compiled"
	// KindCompilationError reports a generic compile-time failure.
	KindCompilationError Kind = "compilation_error"
	// KindInterrupted reports a node suspension carrying pending interrupts.
	// This is not a failure: the executor intercepts it and returns a
	// Checkpoint to the caller instead of propagating an error.
	KindInterrupted Kind = "interrupted"
	// KindOther reports an unclassified failure.
	KindOther Kind = "other"
)

// Error is the single structured error type used across Forge. Fields beyond
// Message/Kind are populated only for the Kind they're relevant to; callers
// should inspect Kind before reading kind-specific accessors.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Message is the human-readable summary of the failure.
	Message string
	// Node identifies the node associated with the failure, when applicable
	// (KindExecutionError, KindBranchError, KindNodeNotFound, ...).
	Node string
	// Edge fields populated for KindInvalidEdge.
	EdgeFrom, EdgeTo, EdgeReason string
	// Interrupts carries the pending interrupts for KindInterrupted.
	Interrupts []Interrupt
	// Cause links to the underlying error, enabling error chains with
	// errors.Is/As while keeping Forge's own error shape serializable.
	Cause *Error
}

// Interrupt describes a single suspension request raised by a node. It lives
// here rather than in package executor, which stores it in
// Checkpoint.PendingInterrupts, because executor depends on forgeerr and not
// the other way around.
type Interrupt struct {
	ID       string
	NodeName string
	Value    any
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into an *Error chain, preserving an
// existing Forge error if the chain already contains one.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{Kind: KindOther, Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// NodeNotFound constructs a KindNodeNotFound error.
func NodeNotFound(name string) *Error {
	return &Error{Kind: KindNodeNotFound, Message: fmt.Sprintf("node %q not found", name), Node: name}
}

// NodeAlreadyExists constructs a KindNodeAlreadyExists error.
func NodeAlreadyExists(name string) *Error {
	return &Error{Kind: KindNodeAlreadyExists, Message: fmt.Sprintf("node %q already exists", name), Node: name}
}

// InvalidNodeName constructs a KindInvalidNodeName error.
func InvalidNodeName(name string) *Error {
	return &Error{Kind: KindInvalidNodeName, Message: fmt.Sprintf("invalid node name %q", name), Node: name}
}

// InvalidEdge constructs a KindInvalidEdge error.
func InvalidEdge(from, to, reason string) *Error {
	return &Error{
		Kind:     KindInvalidEdge,
		Message:  fmt.Sprintf("invalid edge %q -> %q: %s", from, to, reason),
		EdgeFrom: from, EdgeTo: to, EdgeReason: reason,
	}
}

// NoEntryPoint constructs a KindNoEntryPoint error.
func NoEntryPoint() *Error {
	return &Error{Kind: KindNoEntryPoint, Message: "no path from __start__ to __end__"}
}

// ValidationError constructs a KindValidationError error.
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidationError, Message: message}
}

// MaxIterationsExceeded constructs a KindMaxIterationsExceeded error.
func MaxIterationsExceeded(node string, max int) *Error {
	return &Error{
		Kind: KindMaxIterationsExceeded, Node: node,
		Message: fmt.Sprintf("exceeded max iterations (%d) at node %q", max, node),
	}
}

// ExecutionError constructs a KindExecutionError error.
func ExecutionError(node, message string) *Error {
	return &Error{Kind: KindExecutionError, Node: node, Message: message}
}

// BranchError constructs a KindBranchError error.
func BranchError(node, message string) *Error {
	return &Error{Kind: KindBranchError, Node: node, Message: message}
}

// NotCompiled constructs a KindNotCompiled error.
func NotCompiled() *Error {
	return &Error{Kind: KindNotCompiled, Message: "graph has not been compiled"}
}

// CompilationError constructs a KindCompilationError error.
func CompilationError(message string) *Error {
	return &Error{Kind: KindCompilationError, Message: message}
}

// Interrupted constructs a KindInterrupted error carrying the pending
// interrupts. The executor special-cases this kind: it is translated into a
// Checkpoint rather than surfaced as a failure.
func Interrupted(interrupts []Interrupt) *Error {
	return &Error{Kind: KindInterrupted, Message: "run interrupted", Interrupts: interrupts}
}

// Other constructs a KindOther error for failures that don't fit a more
// specific kind (e.g. malformed resume values).
func Other(message string) *Error {
	return &Error{Kind: KindOther, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, forgeerr.New(forgeerr.KindNodeNotFound, "")) style
// checks, though comparing Kind via errors.As is usually clearer.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) || te == nil {
		return false
	}
	return e.Kind == te.Kind
}
