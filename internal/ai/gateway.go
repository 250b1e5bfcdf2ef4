package ai

import "context"

// Gateway is the boundary to a hosted generative language API.
type Gateway interface {
	// Stream starts a streamed generation. The caller must drain
	// Stream.Events until it is closed.
	Stream(ctx context.Context, req StreamRequest) (*Stream, error)
	// Complete runs a single non-streamed generation and returns its text.
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}

type StreamRequest struct {
	Model    string
	System   string
	Messages []Message
	MaxSteps int
	Tools    *ToolSet
}

type CompleteRequest struct {
	Model  string
	System string
	Prompt string
}

type EventType string

const (
	EventTextDelta  EventType = "text-delta"
	EventToolCall   EventType = "tool-call"
	EventToolResult EventType = "tool-result"
	EventStepFinish EventType = "step-finish"
	EventFinish     EventType = "finish"
	EventError      EventType = "error"
)

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

type Event struct {
	Type         EventType
	Text         string
	Part         Part
	FinishReason string
	Usage        Usage
	IsContinued  bool
	Err          error
}

// StreamResult is available once the event channel is closed.
type StreamResult struct {
	ResponseMessages []Message
	FinishReason     string
	Usage            Usage
	Steps            int
}

// Stream carries events from exactly one producer goroutine to one consumer.
type Stream struct {
	events chan Event
	done   chan struct{}
	result StreamResult
	err    error
}

// Emit delivers one event to the consumer. It returns false once the
// stream's context is cancelled.
type Emit func(Event) bool

// NewStream runs produce in its own goroutine. The event channel is closed
// after produce returns; a non-nil error is also delivered as an EventError.
func NewStream(ctx context.Context, buffer int, produce func(emit Emit) (StreamResult, error)) *Stream {
	s := &Stream{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	emit := func(ev Event) bool {
		select {
		case s.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.events)

		result, err := produce(emit)
		s.result = result
		s.err = err
		if err != nil {
			emit(Event{Type: EventError, Err: err})
		}
	}()
	return s
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

// Wait blocks until the producer is done.
func (s *Stream) Wait() (StreamResult, error) {
	<-s.done
	return s.result, s.err
}
