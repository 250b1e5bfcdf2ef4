package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDataCloseIsIdempotent(t *testing.T) {
	d := NewStreamData(2)
	require.NoError(t, d.Append(map[string]string{"chatId": "c1"}))
	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Append("late"), ErrStreamDataClosed)

	var got []string
	for raw := range d.C() {
		got = append(got, string(raw))
	}
	assert.Equal(t, []string{`{"chatId":"c1"}`}, got)
}

func TestNewStreamDeliversEventsThenResult(t *testing.T) {
	s := NewStream(context.Background(), 0, func(emit Emit) (StreamResult, error) {
		emit(Event{Type: EventTextDelta, Text: "a"})
		emit(Event{Type: EventTextDelta, Text: "b"})
		return StreamResult{Steps: 1, FinishReason: "stop"}, nil
	})

	var text string
	for ev := range s.Events() {
		text += ev.Text
	}
	res, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
	assert.Equal(t, 1, res.Steps)
}

func TestNewStreamReportsProducerError(t *testing.T) {
	boom := errors.New("upstream closed")
	s := NewStream(context.Background(), 1, func(emit Emit) (StreamResult, error) {
		return StreamResult{}, boom
	})

	var types []EventType
	for ev := range s.Events() {
		types = append(types, ev.Type)
	}
	_, err := s.Wait()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []EventType{EventError}, types)
}

func TestNewStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStream(ctx, 0, func(emit Emit) (StreamResult, error) {
		if !emit(Event{Type: EventTextDelta, Text: "never read"}) {
			return StreamResult{}, ctx.Err()
		}
		return StreamResult{}, nil
	})

	_, err := s.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}
