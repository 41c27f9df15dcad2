package events

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	payload := PolicyAdjustedPayload{
		Mode:        "advisory",
		Adjustments: map[string]any{"intervalModifier": 1.05},
	}

	event, err := NewEvent(TypePolicyAdjusted, userID, payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypePolicyAdjusted, event.Type)
	assert.Equal(t, userID, event.UserID)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded PolicyAdjustedPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "advisory", decoded.Mode)
	assert.False(t, decoded.Applied)
	assert.InDelta(t, 1.05, decoded.Adjustments["intervalModifier"], 1e-9)
}

func TestNewEventUnserializablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent(TypeReviewRecorded, uuid.New(), make(chan int))
	assert.Error(t, err)
}

// recordingHandler counts the events it receives.
type recordingHandler struct {
	events []*Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *Event) error {
	h.events = append(h.events, event)
	return h.err
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	event, err := NewEvent(TypeReviewRecorded, uuid.New(), ReviewRecordedPayload{CardID: "c1", Grade: 4})
	require.NoError(t, err)

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("all handlers receive event", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		h1, h2 := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, []*Event{event}, h1.events)
		assert.Equal(t, []*Event{event}, h2.events)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(nil)
		failing := &recordingHandler{err: errors.New("handler error")}
		ok := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		err := emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "handler error")
		assert.Len(t, ok.events, 1)
	})

	t.Run("every failure is reported", func(t *testing.T) {
		t.Parallel()
		errA, errB := errors.New("a"), errors.New("b")
		emitter := NewInMemoryEventEmitter(nil)
		emitter.RegisterHandler(&recordingHandler{err: errA})
		emitter.RegisterHandler(&recordingHandler{err: errB})

		err := emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
	})
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := NewLogHandler(logger)

	review, err := NewEvent(TypeReviewRecorded, uuid.New(), ReviewRecordedPayload{CardID: "c1"})
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), review))
	assert.Empty(t, buf.String(), "review events log at debug")

	adjusted, err := NewEvent(TypePolicyAdjusted, uuid.New(), PolicyAdjustedPayload{Mode: "advisory"})
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), adjusted))
	assert.Contains(t, buf.String(), `"event_type":"policy_adjusted"`)
	assert.Contains(t, buf.String(), `"component":"event_log"`)
}
