package domain

import (
	"strings"
	"time"
)

// Scheduling constants shared by the algorithm and the entities it produces.
const (
	// DefaultEaseFactor is the ease factor every new card starts with.
	DefaultEaseFactor = 2.5

	// MinEaseFactor is the hard floor no ease factor may fall below.
	MinEaseFactor = 1.3

	// Day is the length of one scheduling interval unit.
	Day = 24 * time.Hour
)

// CardRef is a card as supplied by the deck collaborator. The scheduler never
// creates or deletes cards; it only reads the identifier.
type CardRef struct {
	ID       string         `json:"id"`
	Front    string         `json:"front,omitempty"`
	Back     string         `json:"back,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CardMemoryState is the scheduling state of one card.
//
// NextReview always equals LastReview plus Interval days once the card has
// been graded. A card without state has never been reviewed and is due.
type CardMemoryState struct {
	CardID      string     `json:"card_id"`
	Repetitions int        `json:"repetitions"`
	EaseFactor  float64    `json:"ease_factor"`
	Interval    int        `json:"interval"`    // days until the next review
	NextReview  time.Time  `json:"next_review"` // when the card becomes due
	LastReview  *time.Time `json:"last_review,omitempty"`
	Performance Grade      `json:"performance"` // last recorded grade
}

// NewCardMemoryState returns the state of a card that has never been graded.
func NewCardMemoryState(cardID string, easeFactor float64, now time.Time) *CardMemoryState {
	if easeFactor < MinEaseFactor {
		easeFactor = MinEaseFactor
	}
	return &CardMemoryState{
		CardID:     cardID,
		EaseFactor: easeFactor,
		NextReview: now,
	}
}

// Validate checks the state invariants.
func (s *CardMemoryState) Validate() error {
	if strings.TrimSpace(s.CardID) == "" {
		return ErrEmptyCardID
	}
	if s.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}
	if s.Interval < 0 {
		return ErrInvalidInterval
	}
	if !s.Performance.IsValid() {
		return ErrInvalidGrade
	}
	return nil
}

// IsDue reports whether the card should be reviewed at now.
func (s *CardMemoryState) IsDue(now time.Time) bool {
	return !s.NextReview.After(now)
}

// Reviewed reports whether the card has been graded at least once.
func (s *CardMemoryState) Reviewed() bool {
	return s.LastReview != nil
}

// Clone returns a deep copy of the state.
func (s *CardMemoryState) Clone() *CardMemoryState {
	c := *s
	if s.LastReview != nil {
		t := *s.LastReview
		c.LastReview = &t
	}
	return &c
}
