// Package tools defines the shared tool metadata types consumed by the tool
// registry, the loop node, and the session-state reducer: tool definitions,
// calls, outputs, and lifecycle records.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

type (
	// Definition describes a tool's name, human-readable purpose, and input
	// schema. Definitions are registered once per tool name.
	Definition struct {
		// Name is the tool's unique identifier within a registry.
		Name string
		// Description is human-readable context for planners and policy.
		Description string
		// InputSchema is a JSON-schema-shaped value describing the tool's
		// expected input. May be nil: a nil schema disables input validation
		// for this tool.
		InputSchema json.RawMessage

		compiled *jsonschema.Schema
	}

	// Call describes a single invocation of a registered tool.
	Call struct {
		// ToolName identifies the tool to invoke.
		ToolName string
		// CallID is a caller-supplied unique identifier for this invocation,
		// used to correlate lifecycle events and track the call in session
		// state.
		CallID string
		// Input is the JSON-serializable argument payload for the tool.
		Input json.RawMessage
	}

	// Output describes a tool's result.
	Output struct {
		// Content is the tool's textual result.
		Content string
		// Metadata carries optional structured metadata about the result.
		Metadata Metadata
	}

	// Metadata carries optional, structured context about a tool result.
	Metadata struct {
		// MimeType describes the content's media type, when known.
		MimeType string
		// Schema names the output schema identifier registered for this
		// tool, when known. Forge does not validate against it; it is
		// informational for clients.
		Schema string
		// Source names where the content originated (e.g. a URL or file path).
		Source string
		// Attributes carries arbitrary extension metadata.
		Attributes map[string]any
	}

	// State enumerates the lifecycle states of a tool call.
	State string

	// CallRecord tracks a single tool call's lifecycle as observed by the
	// session-state reducer.
	CallRecord struct {
		// CallID identifies the tool call.
		CallID string
		// ToolName identifies the tool that was invoked.
		ToolName string
		// Status is the call's current lifecycle state.
		Status State
		// Output holds the tool's result once Status is StateCompleted.
		Output *Output
		// Error holds the failure message once Status is StateError.
		Error string
	}

	// SchemaRegistry maps tool names to output-schema identifiers. Forge does
	// not validate output against the schema itself; the registry exists so
	// AnnotateOutput can fill in missing Output.Metadata fields.
	SchemaRegistry struct {
		schemas map[string]string
	}
)

const (
	// StatePending marks a call that has been accepted but not yet started.
	StatePending State = "pending"
	// StateRunning marks a call whose handler is executing.
	StateRunning State = "running"
	// StateCompleted marks a call that finished successfully.
	StateCompleted State = "completed"
	// StateError marks a call that finished with an error.
	StateError State = "error"
)

// CanTransition reports whether a State transition is one of the two legal
// sequences: Pending->Running->Completed or Pending->Running->Error.
func CanTransition(from, to State) bool {
	switch {
	case from == StatePending && to == StateRunning:
		return true
	case from == StateRunning && to == StateCompleted:
		return true
	case from == StateRunning && to == StateError:
		return true
	default:
		return false
	}
}

// Compile parses and compiles InputSchema, caching the compiled schema on
// the Definition. Call this once at registration time so malformed schemas
// fail fast rather than on the first tool call. A nil or empty InputSchema
// is a no-op: the tool is left unvalidated.
func (d *Definition) Compile() error {
	if len(d.InputSchema) == 0 {
		return nil
	}
	var schemaDoc any
	if err := json.Unmarshal(d.InputSchema, &schemaDoc); err != nil {
		return fmt.Errorf("tools: parse input schema for %q: %w", d.Name, err)
	}
	resource := "forge://tool-input-schema/" + d.Name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, schemaDoc); err != nil {
		return fmt.Errorf("tools: add input schema resource for %q: %w", d.Name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return fmt.Errorf("tools: compile input schema for %q: %w", d.Name, err)
	}
	d.compiled = schema
	return nil
}

// Validate checks input against the compiled input schema. It is a no-op
// (returns nil) when the Definition carries no schema or Compile was never
// called.
func (d *Definition) Validate(input json.RawMessage) error {
	if d.compiled == nil {
		return nil
	}
	var payloadDoc any
	if err := json.Unmarshal(input, &payloadDoc); err != nil {
		return fmt.Errorf("tools: parse input for %q: %w", d.Name, err)
	}
	if err := d.compiled.Validate(payloadDoc); err != nil {
		return fmt.Errorf("tools: input for %q failed validation: %w", d.Name, err)
	}
	return nil
}

// NewSchemaRegistry constructs an empty SchemaRegistry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]string)}
}

// Register associates a tool name with an output schema identifier.
func (r *SchemaRegistry) Register(toolName, schemaID string) {
	r.schemas[toolName] = schemaID
}

// AnnotateOutput fills Output.Metadata.Schema from the registry when the
// caller left it empty. It never overwrites an already-populated field.
func (r *SchemaRegistry) AnnotateOutput(toolName string, out *Output) {
	if r == nil || out == nil || out.Metadata.Schema != "" {
		return
	}
	if schemaID, ok := r.schemas[toolName]; ok {
		out.Metadata.Schema = schemaID
	}
}

