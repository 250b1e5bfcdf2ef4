package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
}

// OpenAIGateway talks to any OpenAI compatible chat completions endpoint.
type OpenAIGateway struct {
	client *openai.Client
	log    *zap.Logger
}

func NewOpenAIGateway(cfg OpenAIConfig, log *zap.Logger) *OpenAIGateway {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		log:    log.With(zap.String("component", "openai_gateway")),
	}
}

func (g *OpenAIGateway) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty llm choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) Stream(ctx context.Context, req StreamRequest) (*Stream, error) {
	if req.Model == "" {
		return nil, errors.New("model is required")
	}
	return NewStream(ctx, 32, func(emit Emit) (StreamResult, error) {
		return g.run(ctx, req, emit)
	}), nil
}

// run executes generation steps until the model stops calling tools, a
// tool call goes unanswered, or MaxSteps is reached.
func (g *OpenAIGateway) run(ctx context.Context, req StreamRequest, emit Emit) (StreamResult, error) {
	maxSteps := req.MaxSteps
	if maxSteps < 1 {
		maxSteps = 1
	}

	history := append([]Message(nil), req.Messages...)
	var result StreamResult
	for step := 0; step < maxSteps; step++ {
		out, err := g.step(ctx, req, history, emit)
		if err != nil {
			return result, err
		}
		result.Steps++
		result.Usage.Add(out.usage)
		result.FinishReason = out.finishReason

		if len(out.message.Parts) > 0 {
			result.ResponseMessages = append(result.ResponseMessages, out.message)
			history = append(history, out.message)
		}

		calls := out.message.ToolCalls()
		resolved := 0
		if len(calls) > 0 {
			toolMsg := g.callTools(ctx, req.Tools, calls, emit)
			resolved = len(toolMsg.Parts)
			if resolved > 0 {
				result.ResponseMessages = append(result.ResponseMessages, toolMsg)
				history = append(history, toolMsg)
			}
		}

		continued := len(calls) > 0 && resolved == len(calls) && step+1 < maxSteps
		if !emit(Event{Type: EventStepFinish, FinishReason: out.finishReason, Usage: out.usage, IsContinued: continued}) {
			return result, ctx.Err()
		}
		if !continued {
			break
		}
	}

	emit(Event{Type: EventFinish, FinishReason: result.FinishReason, Usage: result.Usage})
	return result, nil
}

type stepOutput struct {
	message      Message
	finishReason string
	usage        Usage
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

func (g *OpenAIGateway) step(ctx context.Context, req StreamRequest, history []Message, emit Emit) (stepOutput, error) {
	creq := openai.ChatCompletionRequest{
		Model:         req.Model,
		Messages:      toOpenAIMessages(req.System, history),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	if req.Tools.Len() > 0 {
		creq.Tools = toOpenAITools(req.Tools)
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		return stepOutput{}, fmt.Errorf("llm stream request failed: %w", err)
	}
	defer stream.Close()

	var (
		out   stepOutput
		text  strings.Builder
		calls = map[int]*pendingCall{}
	)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stepOutput{}, fmt.Errorf("llm stream receive failed: %w", err)
		}
		if resp.Usage != nil {
			out.usage = Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
		}
		for _, choice := range resp.Choices {
			if delta := choice.Delta.Content; delta != "" {
				text.WriteString(delta)
				if !emit(Event{Type: EventTextDelta, Text: delta}) {
					return stepOutput{}, ctx.Err()
				}
			}
			for i, tc := range choice.Delta.ToolCalls {
				idx := i
				if tc.Index != nil {
					idx = *tc.Index
				}
				pc, ok := calls[idx]
				if !ok {
					pc = &pendingCall{}
					calls[idx] = pc
				}
				if tc.ID != "" {
					pc.id = tc.ID
				}
				if tc.Function.Name != "" {
					pc.name = tc.Function.Name
				}
				pc.args.WriteString(tc.Function.Arguments)
			}
			if choice.FinishReason != "" {
				out.finishReason = mapFinishReason(choice.FinishReason)
			}
		}
	}

	if text.Len() > 0 {
		out.message.Parts = append(out.message.Parts, TextPart(text.String()))
	}
	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		pc := calls[idx]
		if pc.id == "" {
			pc.id = "call_" + uuid.NewString()
		}
		part := ToolCallPart(pc.id, pc.name, normalizeJSON(json.RawMessage(pc.args.String())))
		out.message.Parts = append(out.message.Parts, part)
		if !emit(Event{Type: EventToolCall, Part: part}) {
			return stepOutput{}, ctx.Err()
		}
	}
	out.message.Role = RoleAssistant
	if out.finishReason == "" {
		out.finishReason = "unknown"
	}
	return out, nil
}

// callTools runs each call and returns a tool message with the results that
// could be produced. Calls to unknown tools or failing tools stay unresolved.
func (g *OpenAIGateway) callTools(ctx context.Context, tools *ToolSet, calls []Part, emit Emit) Message {
	msg := Message{Role: RoleTool}
	for _, call := range calls {
		tool, ok := tools.Lookup(call.ToolName)
		if !ok {
			g.log.Warn("model called unknown tool", zap.String("tool", call.ToolName))
			continue
		}
		value, err := tool.Call(ctx, call.Args)
		if err != nil {
			g.log.Warn("tool call failed", zap.String("tool", call.ToolName), zap.Error(err))
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			g.log.Warn("marshal tool result failed", zap.String("tool", call.ToolName), zap.Error(err))
			continue
		}
		part := ToolResultPart(call.ToolCallID, call.ToolName, raw)
		msg.Parts = append(msg.Parts, part)
		emit(Event{Type: EventToolResult, Part: part})
	}
	return msg
}

func toOpenAIMessages(system string, history []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Text()})
		case RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Text()})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Text()}
			for _, call := range m.ToolCalls() {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ToolCallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.ToolName,
						Arguments: string(call.Args),
					},
				})
			}
			out = append(out, msg)
		case RoleTool:
			for _, p := range m.Parts {
				if p.Type != PartToolResult {
					continue
				}
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    string(p.Result),
					Name:       p.ToolName,
					ToolCallID: p.ToolCallID,
				})
			}
		}
	}
	return out
}

func toOpenAITools(tools *ToolSet) []openai.Tool {
	out := make([]openai.Tool, 0, tools.Len())
	for _, t := range tools.All() {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}

func mapFinishReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonStop:
		return "stop"
	case openai.FinishReasonLength:
		return "length"
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return "tool-calls"
	case openai.FinishReasonContentFilter:
		return "content-filter"
	default:
		return "other"
	}
}
