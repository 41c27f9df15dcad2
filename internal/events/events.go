package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	// TypeReviewRecorded is emitted after an answer has been graded and saved.
	TypeReviewRecorded = "review_recorded"

	// TypePolicyAdjusted is emitted when adaptive tuning proposes or applies
	// policy changes.
	TypePolicyAdjusted = "policy_adjusted"
)

// Event is a notification about something that happened to one user's
// scheduling data.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type constants
	Type string `json:"type"`

	// UserID is the learner the event belongs to
	UserID uuid.UUID `json:"user_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an event of the given type for userID with payload
// serialized as JSON.
func NewEvent(eventType string, userID uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ReviewRecordedPayload is the payload of a TypeReviewRecorded event.
type ReviewRecordedPayload struct {
	EventID    uuid.UUID `json:"event_id"`
	CardID     string    `json:"card_id"`
	Grade      int       `json:"grade"`
	Interval   int       `json:"interval"`
	NextReview time.Time `json:"next_review"`
}

// PolicyAdjustedPayload is the payload of a TypePolicyAdjusted event.
type PolicyAdjustedPayload struct {
	Mode        string         `json:"mode"`
	Applied     bool           `json:"applied"`
	Adjustments map[string]any `json:"adjustments"`
}

// EventHandler is implemented by components that react to events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter is implemented by components that publish events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
