package ai

import (
	"encoding/json"
	"fmt"
)

// UIMessage is a chat message as sent by the browser client.
type UIMessage struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
}

type ToolInvocation struct {
	State      string          `json:"state"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

const ToolStateResult = "result"

// ConvertUIMessages reduces client messages to canonical messages. An
// assistant message with tool invocations expands into the assistant turn
// followed by a tool turn carrying the invocations that have results.
// Invocations without a result are left out entirely; a call with no
// answer is rejected by the model API.
func ConvertUIMessages(in []UIMessage) ([]Message, error) {
	out := make([]Message, 0, len(in))
	for i, m := range in {
		switch Role(m.Role) {
		case RoleUser, RoleSystem:
			out = append(out, Message{Role: Role(m.Role), Parts: []Part{TextPart(m.Content)}})
		case RoleAssistant:
			if len(m.ToolInvocations) == 0 {
				out = append(out, Message{Role: RoleAssistant, Parts: []Part{TextPart(m.Content)}})
				continue
			}

			parts := make([]Part, 0, len(m.ToolInvocations)+1)
			if m.Content != "" {
				parts = append(parts, TextPart(m.Content))
			}
			var results []Part
			for _, inv := range m.ToolInvocations {
				if inv.State != ToolStateResult {
					continue
				}
				parts = append(parts, ToolCallPart(inv.ToolCallID, inv.ToolName, normalizeJSON(inv.Args)))
				results = append(results, ToolResultPart(inv.ToolCallID, inv.ToolName, normalizeJSON(inv.Result)))
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, Message{Role: RoleAssistant, Parts: parts})
			if len(results) > 0 {
				out = append(out, Message{Role: RoleTool, Parts: results})
			}
		case "data":
			// client-side annotations, never sent to the model
		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	return out, nil
}

// MostRecentUserMessage returns the last user authored message.
func MostRecentUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}

func normalizeJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		return quoted
	}
	return raw
}
