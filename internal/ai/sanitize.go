package ai

import "strings"

// SanitizeResponseMessages drops assistant messages that contain a tool call
// without a matching tool result, together with any tool results that
// answered calls of a dropped message. Empty text parts are removed and
// messages left without parts are dropped. The input is not modified.
func SanitizeResponseMessages(messages []Message) []Message {
	resolved := make(map[string]struct{})
	for _, m := range messages {
		if m.Role != RoleTool {
			continue
		}
		for _, p := range m.Parts {
			if p.Type == PartToolResult {
				resolved[p.ToolCallID] = struct{}{}
			}
		}
	}

	orphaned := make(map[string]struct{})
	keep := make([]bool, len(messages))
	for i, m := range messages {
		keep[i] = true
		if m.Role != RoleAssistant {
			continue
		}
		for _, call := range m.ToolCalls() {
			if _, ok := resolved[call.ToolCallID]; !ok {
				keep[i] = false
				break
			}
		}
		if !keep[i] {
			for _, call := range m.ToolCalls() {
				orphaned[call.ToolCallID] = struct{}{}
			}
		}
	}

	out := make([]Message, 0, len(messages))
	for i, m := range messages {
		if !keep[i] {
			continue
		}
		parts := make([]Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Type {
			case PartText:
				if strings.TrimSpace(p.Text) == "" {
					continue
				}
			case PartToolResult:
				if _, ok := orphaned[p.ToolCallID]; ok {
					continue
				}
			}
			parts = append(parts, p)
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, Message{Role: m.Role, Parts: parts})
	}
	return out
}
