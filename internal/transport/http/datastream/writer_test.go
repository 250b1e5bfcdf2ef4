package datastream

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filingchat/internal/ai"
)

func TestWriterLines(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.NoError(t, w.Data(json.RawMessage(`{"chatId":"c1"}`)))
	require.NoError(t, w.Text("Hello \"world\"\n"))
	require.NoError(t, w.ToolCall(ai.ToolCallPart("call_1", "search_filings", json.RawMessage(`{"ticker":"AAPL"}`))))
	require.NoError(t, w.ToolResult(ai.ToolResultPart("call_1", "search_filings", json.RawMessage(`{"total":3}`))))
	require.NoError(t, w.FinishStep("tool-calls", ai.Usage{PromptTokens: 5, CompletionTokens: 2}, true))
	require.NoError(t, w.Finish("stop", ai.Usage{PromptTokens: 9, CompletionTokens: 4}))
	require.NoError(t, w.Error("An error occurred."))

	want := `2:[{"chatId":"c1"}]
0:"Hello \"world\"\n"
9:{"toolCallId":"call_1","toolName":"search_filings","args":{"ticker":"AAPL"}}
a:{"toolCallId":"call_1","result":{"total":3}}
e:{"finishReason":"tool-calls","usage":{"promptTokens":5,"completionTokens":2},"isContinued":true}
d:{"finishReason":"stop","usage":{"promptTokens":9,"completionTokens":4}}
3:"An error occurred."
`
	assert.Equal(t, want, rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestWriterEventMasksErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.NoError(t, w.Event(ai.Event{Type: ai.EventError, Err: errors.New("api key leaked")}, "An error occurred."))
	assert.Equal(t, "3:\"An error occurred.\"\n", rec.Body.String())
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write([]byte) (int, error) {
	f.writes++
	return 0, errors.New("broken pipe")
}

func TestWriterStickyError(t *testing.T) {
	fw := &failingWriter{}
	w := NewWriter(fw)

	assert.Error(t, w.Text("a"))
	assert.Error(t, w.Text("b"))
	assert.Error(t, w.Err())
	assert.Equal(t, 1, fw.writes)
}

func TestSetHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetHeaders(rec.Header())
	assert.Equal(t, "v1", rec.Header().Get("X-Vercel-AI-Data-Stream"))
	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
}
