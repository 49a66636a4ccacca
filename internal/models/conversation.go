package models

import "encoding/json"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part kinds within a message
const (
	PartTypeText       = "text"
	PartTypeToolResult = "tool-result"
)

// Part is one ordered fragment of a conversation turn: either a text
// fragment or the structured result of a tool invocation. Parts keep
// their emission order within a turn.
type Part struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// Message is one role-tagged conversation turn. Clients may send either
// a plain {role, content} pair or a pre-structured {role, parts} form;
// Normalize collapses both into the ordered-parts representation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// Normalize returns the message in ordered-parts form. A plain content
// string becomes a single text part; an already structured message is
// returned as-is.
func (m Message) Normalize() Message {
	if len(m.Parts) > 0 {
		return m
	}
	out := Message{Role: m.Role}
	if m.Content != "" {
		out.Parts = []Part{{Type: PartTypeText, Text: m.Content}}
	}
	return out
}

// PlainText concatenates the message's text parts, falling back to the
// raw content field for unnormalized messages.
func (m Message) PlainText() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var s string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			s += p.Text
		}
	}
	return s
}

// NormalizeTranscript normalizes every message of a transcript and
// drops empty turns.
func NormalizeTranscript(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		n := m.Normalize()
		if len(n.Parts) == 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}
