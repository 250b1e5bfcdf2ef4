package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrStreamDataClosed = errors.New("stream data closed")

// StreamData is the out-of-band channel written next to the token stream.
// It must be closed on every exit path so the response can complete.
type StreamData struct {
	mu     sync.Mutex
	ch     chan json.RawMessage
	closed bool
}

func NewStreamData(buffer int) *StreamData {
	return &StreamData{ch: make(chan json.RawMessage, buffer)}
}

func (d *StreamData) Append(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stream data failed: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrStreamDataClosed
	}
	d.ch <- raw
	return nil
}

// Close is safe to call more than once.
func (d *StreamData) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.ch)
}

func (d *StreamData) C() <-chan json.RawMessage {
	return d.ch
}
