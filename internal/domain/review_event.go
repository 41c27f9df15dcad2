package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewEvent is an immutable record of one grading call. Unlike
// CardMemoryState, which only keeps the latest result, events keep every
// review so history can be bucketed exactly.
type ReviewEvent struct {
	ID           uuid.UUID      `json:"id"`
	CardID       string         `json:"card_id"`
	Grade        Grade          `json:"grade"`
	ResponseTime *time.Duration `json:"response_time,omitempty"`
	ReviewedAt   time.Time      `json:"reviewed_at"`

	// Scheduling result and the repetition count before the review.
	PrevRepetitions int     `json:"prev_repetitions"`
	EaseFactor      float64 `json:"ease_factor"`
	Interval        int     `json:"interval"`
}

// NewReviewEvent creates an event for a review that produced state.
func NewReviewEvent(
	state *CardMemoryState,
	prevRepetitions int,
	responseTime *time.Duration,
	reviewedAt time.Time,
) ReviewEvent {
	return ReviewEvent{
		ID:              uuid.New(),
		CardID:          state.CardID,
		Grade:           state.Performance,
		ResponseTime:    responseTime,
		ReviewedAt:      reviewedAt,
		PrevRepetitions: prevRepetitions,
		EaseFactor:      state.EaseFactor,
		Interval:        state.Interval,
	}
}
