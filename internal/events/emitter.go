package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/scry-scheduler/internal/redact"
)

// InMemoryEventEmitter delivers each event synchronously to every handler
// registered with it.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{logger: logger.With(slog.String("component", "event_emitter"))}
}

// RegisterHandler subscribes handler to all later events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	n := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", slog.Int("handlers", n))
}

// EmitEvent hands event to every handler. A failing handler does not stop
// delivery to the rest; all failures are returned joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := slices.Clone(e.handlers)
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	log.Debug("emitting event", slog.Int("handlers", len(handlers)))

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("event handler failed", redact.Attr(err), slog.Int("handler", i))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogHandler returns a handler that records every event in the log.
// Policy adjustments are logged at Info so advisory proposals are visible to
// operators; review events at Debug.
func NewLogHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "event_log"))

	return HandlerFunc(func(ctx context.Context, event *Event) error {
		level := slog.LevelDebug
		if event.Type == TypePolicyAdjusted {
			level = slog.LevelInfo
		}
		logger.Log(ctx, level, "scheduling event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.Type),
			slog.String("user_id", event.UserID.String()),
			slog.String("payload", string(event.Payload)))
		return nil
	})
}
