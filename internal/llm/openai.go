package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements ChatProvider against an OpenAI-compatible API
type OpenAIProvider struct {
	client       *openai.Client
	chatModel    string
	rewriteModel string
}

// NewOpenAIProvider creates a provider for the configured models
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	rewriteModel := cfg.RewriteModel
	if rewriteModel == "" {
		rewriteModel = chatModel
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		chatModel:    chatModel,
		rewriteModel: rewriteModel,
	}, nil
}

// StreamChat runs a streamed chat completion, forwarding text deltas and
// accumulating tool-call fragments into complete tool calls.
func (p *OpenAIProvider) StreamChat(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, opts ChatOptions, onDelta StreamHandler) (*ChatMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Messages:    toOpenAIMessages(messages),
		Temperature: opts.Temperature,
		Stream:      true,
	}

	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		// tool_choice is only valid alongside tools, so the catalog
		// stays attached even when a textual answer is forced.
		if opts.DisableTools {
			req.ToolChoice = "none"
		}
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	defer stream.Close()

	result := &ChatMessage{Role: "assistant"}
	// Tool-call fragments arrive interleaved and are keyed by index.
	calls := map[int]*ToolCall{}
	maxIndex := -1

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chat stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			result.Content += delta.Content
			if onDelta != nil {
				onDelta(delta.Content)
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &ToolCall{}
				calls[idx] = call
				if idx > maxIndex {
					maxIndex = idx
				}
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Name = tc.Function.Name
			}
			call.Arguments += tc.Function.Arguments
		}
	}

	for i := 0; i <= maxIndex; i++ {
		if call, ok := calls[i]; ok {
			result.ToolCalls = append(result.ToolCalls, *call)
		}
	}

	return result, nil
}

// Complete runs a non-streamed completion with a system and user message
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.rewriteModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out[i] = msg
	}
	return out
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
