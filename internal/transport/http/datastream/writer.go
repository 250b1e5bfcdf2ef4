// Package datastream encodes a model response in the line based data stream
// protocol understood by the browser chat client. Every part is a single
// line "<code>:<json>\n" that is flushed as soon as it is written.
package datastream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"filingchat/internal/ai"
)

const (
	HeaderName  = "X-Vercel-AI-Data-Stream"
	HeaderValue = "v1"
	ContentType = "text/plain; charset=utf-8"
)

const (
	codeText       = '0'
	codeData       = '2'
	codeError      = '3'
	codeToolCall   = '9'
	codeToolResult = 'a'
	codeFinishStep = 'e'
	codeFinish     = 'd'
)

// Writer stops writing after the first failure and keeps reporting it, so a
// caller can continue draining its sources after the client went away.
type Writer struct {
	w   io.Writer
	f   http.Flusher
	err error
}

func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, f: f}
}

// SetHeaders prepares a response for streaming.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", ContentType)
	h.Set(HeaderName, HeaderValue)
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
}

func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) Text(delta string) error {
	return w.write(codeText, delta)
}

// Data writes one or more items of the auxiliary data channel.
func (w *Writer) Data(items ...json.RawMessage) error {
	return w.write(codeData, items)
}

func (w *Writer) Error(message string) error {
	return w.write(codeError, message)
}

type toolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

func (w *Writer) ToolCall(p ai.Part) error {
	args := p.Args
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return w.write(codeToolCall, toolCallPayload{ToolCallID: p.ToolCallID, ToolName: p.ToolName, Args: args})
}

type toolResultPayload struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result"`
}

func (w *Writer) ToolResult(p ai.Part) error {
	result := p.Result
	if len(result) == 0 {
		result = json.RawMessage(`null`)
	}
	return w.write(codeToolResult, toolResultPayload{ToolCallID: p.ToolCallID, Result: result})
}

type finishPayload struct {
	FinishReason string   `json:"finishReason"`
	Usage        ai.Usage `json:"usage"`
	IsContinued  *bool    `json:"isContinued,omitempty"`
}

func (w *Writer) FinishStep(reason string, usage ai.Usage, isContinued bool) error {
	return w.write(codeFinishStep, finishPayload{FinishReason: reason, Usage: usage, IsContinued: &isContinued})
}

func (w *Writer) Finish(reason string, usage ai.Usage) error {
	return w.write(codeFinish, finishPayload{FinishReason: reason, Usage: usage})
}

// Event writes the stream part for a gateway event. Error events are written
// with errorMessage instead of the underlying error text.
func (w *Writer) Event(ev ai.Event, errorMessage string) error {
	switch ev.Type {
	case ai.EventTextDelta:
		return w.Text(ev.Text)
	case ai.EventToolCall:
		return w.ToolCall(ev.Part)
	case ai.EventToolResult:
		return w.ToolResult(ev.Part)
	case ai.EventStepFinish:
		return w.FinishStep(ev.FinishReason, ev.Usage, ev.IsContinued)
	case ai.EventFinish:
		return w.Finish(ev.FinishReason, ev.Usage)
	case ai.EventError:
		return w.Error(errorMessage)
	default:
		return w.err
	}
}

func (w *Writer) write(code byte, v any) error {
	if w.err != nil {
		return w.err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stream part failed: %w", err)
	}
	line := make([]byte, 0, len(payload)+3)
	line = append(line, code, ':')
	line = append(line, payload...)
	line = append(line, '\n')

	if _, err := w.w.Write(line); err != nil {
		w.err = err
		return err
	}
	if w.f != nil {
		w.f.Flush()
	}
	return nil
}
