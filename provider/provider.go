// Package provider defines the provider-agnostic abstractions a planner-style
// node consumes from outside the kernel: chat completion, retrieval, and
// embedding. Forge ships zero concrete adapters for these interfaces — a
// caller wires in its own OpenAI/Bedrock/Anthropic/vector-store client the
// way the teacher runtime's planners consume model.Client and leave the
// concrete SDK binding to features/model/*.
package provider

import (
	"context"

	"github.com/blueberrycongee/forge/event"
	"github.com/blueberrycongee/forge/session"
	"github.com/blueberrycongee/forge/tools"
)

type (
	// ChatRequest captures the normalized parameters for a single model
	// invocation: the conversation so far, the tools the model may call, and
	// sampling parameters. Fields map to common provider parameters but may
	// not be supported by every backend; implementations document
	// unsupported fields rather than silently ignoring them.
	ChatRequest struct {
		// Messages is the ordered chat history, including any system
		// prompt, prior assistant turns, and tool results.
		Messages []session.Message
		// Tools describes the tool schemas exposed to the model for
		// function calling. Empty if the model should not call tools.
		Tools []tools.Definition
		// Model identifies the target model using the provider's own
		// identifier (e.g. "gpt-4o", "claude-opus-4").
		Model string
		// Temperature controls sampling randomness. Zero means greedy
		// decoding where the provider supports it.
		Temperature float32
		// MaxTokens caps the number of completion tokens generated. Zero
		// means use the provider's default.
		MaxTokens int
	}

	// ChatResponse wraps the generated content and any tool calls the model
	// requested.
	ChatResponse struct {
		// Messages holds the assistant turn(s) produced by the model.
		// Empty when the model only requested tool calls.
		Messages []session.Message
		// ToolCalls lists tool invocations requested by the model. A loop
		// node forwards each through LoopContext.RunTool and feeds the
		// results back on the next turn.
		ToolCalls []tools.Call
		// Usage reports token counts when the provider supplies them.
		Usage TokenUsage
		// StopReason explains why generation stopped: "stop", "length",
		// "tool_calls", or a provider-specific value.
		StopReason string
	}

	// TokenUsage records prompt/completion token counts when a provider
	// reports them. Zero fields mean the provider did not report usage for
	// this call.
	TokenUsage struct {
		InputTokens  int
		OutputTokens int
		TotalTokens  int
	}

	// ChatModel is the contract a loop node's handler uses to invoke a
	// language model. Implementations wrap a concrete provider SDK and
	// translate ChatRequest/ChatResponse to that provider's wire format.
	// Implementations should be safe for concurrent use across runs.
	ChatModel interface {
		// Generate sends req and returns the complete response. Returns an
		// error if the provider is unavailable, quota is exceeded, or the
		// request is malformed.
		Generate(ctx context.Context, req ChatRequest) (ChatResponse, error)
		// Stream sends req and forwards incremental output (TextDelta,
		// ToolStart/ToolResult, StepFinish) to sink as it arrives, returning
		// the same accreted ChatResponse Generate would have returned once
		// the stream closes. Implementations that cannot stream return an
		// error.
		Stream(ctx context.Context, req ChatRequest, sink event.Sink) (ChatResponse, error)
	}

	// RetrieveRequest parameterizes a single Retriever.Retrieve call.
	RetrieveRequest struct {
		Query string
		TopK  int
	}

	// Document is a single retrieved passage and its relevance score.
	Document struct {
		ID       string
		Content  string
		Score    float32
		Metadata map[string]any
	}

	// Retriever abstracts a retrieval backend (vector store, search index)
	// a planner-style node queries for grounding context before calling a
	// ChatModel.
	Retriever interface {
		Retrieve(ctx context.Context, req RetrieveRequest) ([]Document, error)
	}

	// EmbeddingModel abstracts a text-embedding backend. Implementations
	// batch texts according to their own provider limits; the returned
	// slice has one embedding per input text, in order.
	EmbeddingModel interface {
		Embed(ctx context.Context, texts []string) ([][]float32, error)
	}
)
