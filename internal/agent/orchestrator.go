package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopmesh/shopmesh/internal/llm"
	"github.com/shopmesh/shopmesh/internal/models"
	"github.com/shopmesh/shopmesh/internal/observability"
)

// DefaultMaxSteps bounds the model-invocation loop per user turn
const DefaultMaxSteps = 5

// DefaultRequestTimeout is the wall-clock ceiling for one agent run
const DefaultRequestTimeout = 30 * time.Second

// systemPrompt is the fixed persona and tool-usage policy
const systemPrompt = `You are a concise, professional shopping assistant for an online store. ` +
	`Whenever the customer mentions searching, recommendations, budget, price, or style, you MUST call the searchProducts tool before replying. ` +
	`Never stop at a tool call: always finish with a textual reply for the customer. ` +
	`If every tool fails or returns nothing, apologize briefly and suggest the customer adjust their budget or keywords. ` +
	`Keep answers short and grounded in tool results; never invent products, prices, or order details.`

// Event types streamed to the client
const (
	EventTextDelta  = "text-delta"
	EventToolResult = "tool-result"
	EventError      = "error"
	EventDone       = "done"
)

// Event is one fragment of the streamed agent response
type Event struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Sink receives events in emission order. Implementations must not
// reorder them.
type Sink func(Event)

// Config tunes the orchestrator
type Config struct {
	MaxSteps       int           `mapstructure:"max_steps"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Orchestrator drives the tool-calling loop:
// idle -> awaiting-model -> (tool-dispatch <-> awaiting-model)* ->
// streaming-final-answer -> idle. It terminates when a model turn
// carries no tool calls, when the step budget is exhausted, or when the
// caller cancels the context.
type Orchestrator struct {
	provider llm.ChatProvider
	registry *Registry
	maxSteps int
	logger   observability.Logger
}

// NewOrchestrator creates an orchestrator with the given step budget
func NewOrchestrator(provider llm.ChatProvider, registry *Registry, cfg Config, logger observability.Logger) *Orchestrator {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Orchestrator{
		provider: provider,
		registry: registry,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Run executes one agent turn: it normalizes the transcript, binds the
// tool set to the caller, loops the model against the tools, and pushes
// events to the sink as they become available. The final assistant turn
// (text plus tool-result parts in emission order) is returned for
// callers that want the assembled message. A provider failure is fatal
// and returned as an error; tool failures are not.
func (o *Orchestrator) Run(ctx context.Context, transcript []models.Message, caller models.CallerContext, sink Sink) (*models.Message, error) {
	if sink == nil {
		sink = func(Event) {}
	}

	tools := o.registry.Bind(caller)
	messages := o.buildModelTranscript(transcript)

	turn := &models.Message{Role: models.RoleAssistant}

	for step := 1; step <= o.maxSteps; step++ {
		opts := llm.ChatOptions{Temperature: 0}
		// The last step must produce a textual answer, so tools are
		// withheld from the model.
		if step == o.maxSteps {
			opts.DisableTools = true
		}

		assistant, err := o.provider.StreamChat(ctx, messages, tools.Definitions(), opts, func(delta string) {
			sink(Event{Type: EventTextDelta, Delta: delta})
		})
		if err != nil {
			return nil, fmt.Errorf("model invocation failed at step %d: %w", step, err)
		}

		if assistant.Content != "" {
			turn.Parts = append(turn.Parts, models.Part{Type: models.PartTypeText, Text: assistant.Content})
		}

		if len(assistant.ToolCalls) == 0 {
			sink(Event{Type: EventDone})
			return turn, nil
		}

		messages = append(messages, *assistant)

		results := o.dispatch(ctx, tools, assistant.ToolCalls)

		// Results are appended in call-site order only after every
		// sibling resolves, so the model sees a complete step.
		for i, call := range assistant.ToolCalls {
			part := models.Part{
				Type:     models.PartTypeToolResult,
				ToolName: call.Name,
				Result:   results[i],
			}
			turn.Parts = append(turn.Parts, part)
			sink(Event{Type: EventToolResult, ToolName: call.Name, Result: results[i]})

			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				Content:    string(results[i]),
				ToolCallID: call.ID,
			})
		}
	}

	// The step budget only expires after a DisableTools turn, so the
	// turn always ends with text.
	sink(Event{Type: EventDone})
	return turn, nil
}

// dispatch executes sibling tool calls concurrently and returns their
// results indexed by call-site position.
func (o *Orchestrator) dispatch(ctx context.Context, tools *ToolSet, calls []llm.ToolCall) []json.RawMessage {
	results := make([]json.RawMessage, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			started := time.Now()
			results[i] = tools.Execute(ctx, call)
			o.logger.Debug("tool executed", map[string]interface{}{
				"tool":     call.Name,
				"duration": time.Since(started).String(),
			})
		}(i, call)
	}
	wg.Wait()

	return results
}

// buildModelTranscript converts the normalized client transcript into
// provider messages. Tool-result parts from previous turns are folded
// into the assistant text so the model keeps conversational context
// without replaying stale tool calls.
func (o *Orchestrator) buildModelTranscript(transcript []models.Message) []llm.ChatMessage {
	messages := []llm.ChatMessage{{Role: "system", Content: systemPrompt}}

	for _, m := range models.NormalizeTranscript(transcript) {
		content := m.PlainText()
		if content == "" {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: m.Role, Content: content})
	}
	return messages
}
