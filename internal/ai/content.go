package ai

import (
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// Part is one element of a message's content. Which fields are set depends
// on Type: Text for text, ToolCallID/ToolName/Args for tool-call and
// ToolCallID/ToolName/Result for tool-result.
type Part struct {
	Type       PartType        `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Message is the provider independent representation of one conversation turn.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

func ToolCallPart(id, name string, args json.RawMessage) Part {
	return Part{Type: PartToolCall, ToolCallID: id, ToolName: name, Args: args}
}

func ToolResultPart(id, name string, result json.RawMessage) Part {
	return Part{Type: PartToolResult, ToolCallID: id, ToolName: name, Result: result}
}

// Text joins the message's text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (m Message) ToolCalls() []Part {
	var calls []Part
	for _, p := range m.Parts {
		if p.Type == PartToolCall {
			calls = append(calls, p)
		}
	}
	return calls
}

// EncodeParts returns the storage form of a message's content.
func EncodeParts(parts []Part) ([]byte, error) {
	if parts == nil {
		parts = []Part{}
	}
	return json.Marshal(parts)
}

func DecodeParts(raw []byte) ([]Part, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var parts []Part
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}
