package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// Common errors
var (
	ErrNilState     = errors.New("card memory state cannot be nil")
	ErrInvalidGrade = errors.New("invalid grade")
	ErrInvalidDays  = errors.New("postpone days must be at least 1")
)

// Service defines the interface for SRS algorithm operations
type Service interface {
	// NewState returns the state of a card that has never been graded.
	NewState(cardID string, now time.Time) *domain.CardMemoryState

	// CalculateNextReview computes a new state based on a grade
	CalculateNextReview(
		state *domain.CardMemoryState,
		grade domain.Grade,
		now time.Time,
	) (*domain.CardMemoryState, error)

	// PostponeReview pushes the next review time forward by a specified number of days
	PostponeReview(
		state *domain.CardMemoryState,
		days int,
	) (*domain.CardMemoryState, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// NewState implements Service.NewState
func (s *defaultService) NewState(cardID string, now time.Time) *domain.CardMemoryState {
	return domain.NewCardMemoryState(cardID, s.params.InitialEaseFactor, now)
}

// CalculateNextReview implements the Service interface for calculating updated state
func (s *defaultService) CalculateNextReview(
	state *domain.CardMemoryState,
	grade domain.Grade,
	now time.Time,
) (*domain.CardMemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if !grade.IsValid() {
		return nil, ErrInvalidGrade
	}

	return calculateNextState(state, grade, now, s.params), nil
}

// PostponeReview implements the Service interface for postponing reviews.
// The interval grows by the same number of days so that NextReview stays
// LastReview plus Interval days.
func (s *defaultService) PostponeReview(
	state *domain.CardMemoryState,
	days int,
) (*domain.CardMemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if days < 1 {
		return nil, ErrInvalidDays
	}

	newState := state.Clone()
	newState.NextReview = state.NextReview.Add(time.Duration(days) * domain.Day)
	if state.Reviewed() {
		newState.Interval = state.Interval + days
	}

	return newState, nil
}
