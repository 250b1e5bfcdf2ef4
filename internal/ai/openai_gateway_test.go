package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lookupTool struct {
	calls []string
}

func (t *lookupTool) Name() string        { return "lookup" }
func (t *lookupTool) Description() string { return "looks things up" }
func (t *lookupTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`)
}
func (t *lookupTool) Call(_ context.Context, args json.RawMessage) (any, error) {
	t.calls = append(t.calls, string(args))
	return map[string]int{"answer": 42}, nil
}

// fakeLLM serves scripted SSE responses, one script per request.
type fakeLLM struct {
	mu       sync.Mutex
	scripts  [][]string
	requests []map[string]any
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if n >= len(f.scripts) {
		http.Error(w, `{"error":{"message":"no more scripts"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	for _, chunk := range f.scripts[n] {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newTestGateway(t *testing.T, llm http.Handler) *OpenAIGateway {
	t.Helper()
	srv := httptest.NewServer(llm)
	t.Cleanup(srv.Close)
	return NewOpenAIGateway(OpenAIConfig{BaseURL: srv.URL + "/v1", APIKey: "test"}, zap.NewNop())
}

const (
	toolCallChunk1 = `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"lookup","arguments":"{\"q\":"}}]}}]}`
	toolCallChunk2 = `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"acme\"}"}}]}}]}`
	toolCallFinish = `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`
	unknownTool    = `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"missing","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`
	textChunk1     = `{"id":"2","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"}}]}`
	textChunk2     = `{"id":"2","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":"stop"}]}`
	usageChunk     = `{"id":"2","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
)

func drain(s *Stream) []Event {
	var events []Event
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events
}

func TestOpenAIGateway_ToolStepLoop(t *testing.T) {
	llm := &fakeLLM{scripts: [][]string{
		{toolCallChunk1, toolCallChunk2, toolCallFinish},
		{textChunk1, textChunk2, usageChunk},
	}}
	gw := newTestGateway(t, llm)
	tool := &lookupTool{}

	stream, err := gw.Stream(context.Background(), StreamRequest{
		Model:    "m",
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Parts: []Part{TextPart("who is acme")}}},
		MaxSteps: 5,
		Tools:    NewToolSet(tool),
	})
	require.NoError(t, err)

	events := drain(stream)
	res, err := stream.Wait()
	require.NoError(t, err)

	var types []EventType
	var text string
	for _, ev := range events {
		types = append(types, ev.Type)
		text += ev.Text
	}
	assert.Equal(t, []EventType{
		EventToolCall, EventToolResult, EventStepFinish,
		EventTextDelta, EventTextDelta, EventStepFinish,
		EventFinish,
	}, types)
	assert.Equal(t, "Hello world", text)
	assert.True(t, events[2].IsContinued)
	assert.False(t, events[5].IsContinued)

	assert.Equal(t, []string{`{"q":"acme"}`}, tool.calls)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, "stop", res.FinishReason)
	assert.Equal(t, Usage{PromptTokens: 10, CompletionTokens: 5}, res.Usage)

	require.Len(t, res.ResponseMessages, 3)
	assert.Equal(t, RoleAssistant, res.ResponseMessages[0].Role)
	assert.Equal(t, "call_1", res.ResponseMessages[0].Parts[0].ToolCallID)
	assert.Equal(t, RoleTool, res.ResponseMessages[1].Role)
	assert.JSONEq(t, `{"answer":42}`, string(res.ResponseMessages[1].Parts[0].Result))
	assert.Equal(t, "Hello world", res.ResponseMessages[2].Text())

	// second request replays the tool round trip
	require.Len(t, llm.requests, 2)
	msgs, ok := llm.requests[1]["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	toolMsg := msgs[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	_, hasTools := llm.requests[0]["tools"]
	assert.True(t, hasTools)
}

func TestOpenAIGateway_UnknownToolLeavesCallUnresolved(t *testing.T) {
	llm := &fakeLLM{scripts: [][]string{{unknownTool}}}
	gw := newTestGateway(t, llm)

	stream, err := gw.Stream(context.Background(), StreamRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Parts: []Part{TextPart("hi")}}},
		MaxSteps: 5,
		Tools:    NewToolSet(&lookupTool{}),
	})
	require.NoError(t, err)
	drain(stream)
	res, err := stream.Wait()
	require.NoError(t, err)

	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, "tool-calls", res.FinishReason)
	require.Len(t, res.ResponseMessages, 1)
	assert.Empty(t, SanitizeResponseMessages(res.ResponseMessages))
}

func TestOpenAIGateway_MaxStepsBoundsLoop(t *testing.T) {
	llm := &fakeLLM{scripts: [][]string{
		{toolCallChunk1, toolCallChunk2, toolCallFinish},
	}}
	gw := newTestGateway(t, llm)

	stream, err := gw.Stream(context.Background(), StreamRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Parts: []Part{TextPart("hi")}}},
		MaxSteps: 1,
		Tools:    NewToolSet(&lookupTool{}),
	})
	require.NoError(t, err)
	drain(stream)
	res, err := stream.Wait()
	require.NoError(t, err)

	assert.Len(t, llm.requests, 1)
	assert.Equal(t, 1, res.Steps)
	assert.Len(t, SanitizeResponseMessages(res.ResponseMessages), 2)
}

func TestOpenAIGateway_UpstreamError(t *testing.T) {
	gw := newTestGateway(t, &fakeLLM{})

	stream, err := gw.Stream(context.Background(), StreamRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Parts: []Part{TextPart("hi")}}},
	})
	require.NoError(t, err)

	events := drain(stream)
	_, err = stream.Wait()
	require.Error(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, EventError, events[len(events)-1].Type)
}

func TestOpenAIGateway_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Apple 10-K revenue"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	gw := NewOpenAIGateway(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"}, zap.NewNop())
	got, err := gw.Complete(context.Background(), CompleteRequest{Model: "m", System: TitlePrompt, Prompt: "tell me about apple revenue"})
	require.NoError(t, err)
	assert.Equal(t, "Apple 10-K revenue", got)
}

func TestOpenAIGateway_RequiresModel(t *testing.T) {
	gw := NewOpenAIGateway(OpenAIConfig{APIKey: "k"}, zap.NewNop())
	_, err := gw.Stream(context.Background(), StreamRequest{})
	assert.Error(t, err)
}
