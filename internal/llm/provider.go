// Package llm wraps the chat-completion provider used by the
// conversational agent: streamed tool-calling chat plus one-shot
// completions for query rewriting.
package llm

import "context"

// ToolCall is a tool invocation requested by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is one message in the provider-facing transcript
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes a callable tool to the model
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatOptions tunes a single chat invocation
type ChatOptions struct {
	Temperature float32
	// DisableTools forces a plain textual answer. Used on the final
	// step of the agent loop so the model cannot stop at a tool call.
	DisableTools bool
}

// StreamHandler receives text deltas as the model emits them
type StreamHandler func(delta string)

// Config holds provider configuration
type Config struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	ChatModel      string `mapstructure:"chat_model"`
	RewriteModel   string `mapstructure:"rewrite_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	EmbeddingDims  int    `mapstructure:"embedding_dimensions"`
}

// ChatProvider is the interface the agent orchestrator consumes
type ChatProvider interface {
	// StreamChat invokes the model with the transcript and tool catalog,
	// forwarding text deltas through onDelta, and returns the completed
	// assistant message including any tool calls.
	StreamChat(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, opts ChatOptions, onDelta StreamHandler) (*ChatMessage, error)

	// Complete runs a non-streamed single completion. Used for query
	// rewriting.
	Complete(ctx context.Context, system, user string) (string, error)
}
