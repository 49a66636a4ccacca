package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh/internal/llm"
	"github.com/shopmesh/shopmesh/internal/models"
)

// scriptedProvider replays a fixed sequence of model turns
type scriptedProvider struct {
	turns       []llm.ChatMessage
	err         error
	invocations int
	sawDisabled bool
	transcripts [][]llm.ChatMessage
}

func (p *scriptedProvider) StreamChat(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDefinition, opts llm.ChatOptions, onDelta llm.StreamHandler) (*llm.ChatMessage, error) {
	p.invocations++
	p.transcripts = append(p.transcripts, messages)
	if p.err != nil {
		return nil, p.err
	}

	var turn llm.ChatMessage
	if p.invocations <= len(p.turns) {
		turn = p.turns[p.invocations-1]
	} else {
		turn = llm.ChatMessage{Role: "assistant", Content: "fallback answer"}
	}

	if opts.DisableTools {
		p.sawDisabled = true
		// A correct provider cannot emit tool calls when tools are
		// withheld.
		turn = llm.ChatMessage{Role: "assistant", Content: "final answer after budget"}
	}

	if turn.Content != "" && onDelta != nil {
		onDelta(turn.Content)
	}
	return &turn, nil
}

func (p *scriptedProvider) Complete(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not implemented")
}

func toolCallTurn(calls ...llm.ToolCall) llm.ChatMessage {
	return llm.ChatMessage{Role: "assistant", ToolCalls: calls}
}

func newOrchestrator(p llm.ChatProvider, f *fixtures) *Orchestrator {
	return NewOrchestrator(p, f.registry, Config{}, nil)
}

func collectEvents() (*[]Event, Sink) {
	events := &[]Event{}
	return events, func(e Event) { *events = append(*events, e) }
}

func userTurn(text string) []models.Message {
	return []models.Message{{Role: models.RoleUser, Content: text}}
}

func TestOrchestrator_PlainAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatMessage{
		{Role: "assistant", Content: "Hello! How can I help?"},
	}}
	f := newFixtures()
	events, sink := collectEvents()

	turn, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("hi"), models.Anonymous(), sink)

	require.NoError(t, err)
	assert.Equal(t, 1, provider.invocations)
	require.Len(t, turn.Parts, 1)
	assert.Equal(t, models.PartTypeText, turn.Parts[0].Type)

	last := (*events)[len(*events)-1]
	assert.Equal(t, EventDone, last.Type)
}

func TestOrchestrator_ToolCallThenAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatMessage{
		toolCallTurn(llm.ToolCall{ID: "c1", Name: string(ToolSearchProducts), Arguments: `{"query":"boots"}`}),
		{Role: "assistant", Content: "I found some boots for you."},
	}}
	f := newFixtures()
	f.search.results = []models.RankedProduct{{Product: models.Product{ID: "p1", Name: "Boots"}}}
	events, sink := collectEvents()

	turn, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("find boots"), models.Anonymous(), sink)

	require.NoError(t, err)
	assert.Equal(t, 2, provider.invocations)

	// Tool result part precedes the final text part in the turn.
	require.Len(t, turn.Parts, 2)
	assert.Equal(t, models.PartTypeToolResult, turn.Parts[0].Type)
	assert.Equal(t, string(ToolSearchProducts), turn.Parts[0].ToolName)
	assert.Equal(t, models.PartTypeText, turn.Parts[1].Type)

	var sawToolResult bool
	for _, e := range *events {
		if e.Type == EventToolResult {
			sawToolResult = true
		}
	}
	assert.True(t, sawToolResult)
}

func TestOrchestrator_StepBudgetEnforced(t *testing.T) {
	// The model requests tools forever; the loop must stop at 5
	// invocations with a forced textual answer.
	turns := make([]llm.ChatMessage, 10)
	for i := range turns {
		turns[i] = toolCallTurn(llm.ToolCall{ID: "c", Name: string(ToolSearchProducts), Arguments: `{"query":"x"}`})
	}
	provider := &scriptedProvider{turns: turns}
	f := newFixtures()

	turn, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("loop"), models.Anonymous(), nil)

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSteps, provider.invocations)
	assert.True(t, provider.sawDisabled)

	last := turn.Parts[len(turn.Parts)-1]
	assert.Equal(t, models.PartTypeText, last.Type)
	assert.Equal(t, "final answer after budget", last.Text)
}

func TestOrchestrator_SiblingFailureIsolated(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatMessage{
		toolCallTurn(
			llm.ToolCall{ID: "c1", Name: "bogusTool", Arguments: `{}`},
			llm.ToolCall{ID: "c2", Name: string(ToolSearchProducts), Arguments: `{"query":"boots"}`},
		),
		{Role: "assistant", Content: "Here is what I found."},
	}}
	f := newFixtures()
	f.search.results = []models.RankedProduct{{Product: models.Product{ID: "p1"}}}

	turn, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("boots"), models.Anonymous(), nil)

	require.NoError(t, err)
	require.Len(t, turn.Parts, 3)

	// Merge order follows call-site order, not completion order.
	assert.Equal(t, "bogusTool", turn.Parts[0].ToolName)
	assert.Equal(t, string(ToolSearchProducts), turn.Parts[1].ToolName)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(turn.Parts[0].Result, &first))
	assert.Contains(t, first["error"], "unknown tool")

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(turn.Parts[1].Result, &second))
	assert.NotContains(t, second, "error")

	assert.Equal(t, "Here is what I found.", turn.Parts[2].Text)
}

func TestOrchestrator_ProviderFailureIsFatal(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("upstream 500")}
	f := newFixtures()

	_, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("hi"), models.Anonymous(), nil)
	assert.Error(t, err)
}

func TestOrchestrator_TranscriptNormalization(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatMessage{
		{Role: "assistant", Content: "ok"},
	}}
	f := newFixtures()

	transcript := []models.Message{
		{Role: models.RoleUser, Content: "plain form"},
		{Role: models.RoleAssistant, Parts: []models.Part{
			{Type: models.PartTypeText, Text: "structured form"},
			{Type: models.PartTypeToolResult, ToolName: "searchProducts"},
		}},
		{Role: models.RoleUser, Parts: []models.Part{{Type: models.PartTypeText, Text: "follow-up"}}},
	}

	_, err := newOrchestrator(provider, f).Run(context.Background(), transcript, models.Anonymous(), nil)
	require.NoError(t, err)

	sent := provider.transcripts[0]
	require.Len(t, sent, 4) // system + three turns
	assert.Equal(t, "system", sent[0].Role)
	assert.Equal(t, "plain form", sent[1].Content)
	assert.Equal(t, "structured form", sent[2].Content)
	assert.Equal(t, "follow-up", sent[3].Content)
}

func TestOrchestrator_ToolResultsFedBackToModel(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatMessage{
		toolCallTurn(llm.ToolCall{ID: "c1", Name: string(ToolSearchProducts), Arguments: `{"query":"boots"}`}),
		{Role: "assistant", Content: "done"},
	}}
	f := newFixtures()

	_, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("boots"), models.Anonymous(), nil)
	require.NoError(t, err)

	second := provider.transcripts[1]
	last := second[len(second)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.Contains(t, last.Content, "products")
}

func TestOrchestrator_CallerContextReachesTools(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatMessage{
		toolCallTurn(llm.ToolCall{ID: "c1", Name: string(ToolListUserOrders), Arguments: `{}`}),
		{Role: "assistant", Content: "your orders"},
	}}
	f := newFixtures()
	f.orders.orders["o1"] = &models.Order{ID: "o1", UserID: "u1"}

	turn, err := newOrchestrator(provider, f).Run(context.Background(), userTurn("my orders"), caller("u1", models.RoleCustomer), nil)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(turn.Parts[0].Result, &result))
	assert.NotContains(t, result, "error")
	assert.Len(t, result["orders"].([]interface{}), 1)
}
