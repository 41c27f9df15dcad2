package api

import (
	"errors"
	"strings"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// AnswerRequest is the body of POST /cards/{id}/answer. Exactly one of
// Grade and Answer is set. Grades outside 0-5 are clamped.
type AnswerRequest struct {
	Grade               *int     `json:"grade"                 validate:"required_without=Answer,excluded_with=Answer"`
	Answer              string   `json:"answer"                validate:"required_without=Grade"`
	ResponseTimeSeconds *float64 `json:"response_time_seconds" validate:"omitempty,gte=0"`
}

// resolve returns the grade and response time the request describes.
func (r AnswerRequest) resolve() (domain.Grade, *time.Duration, error) {
	var grade domain.Grade
	if r.Grade != nil {
		grade = domain.Grade(*r.Grade).Clamp()
	} else {
		answer, err := domain.ParseAnswer(r.Answer)
		if err != nil {
			return 0, nil, err
		}
		grade, err = answer.Grade()
		if err != nil {
			return 0, nil, err
		}
	}

	var responseTime *time.Duration
	if r.ResponseTimeSeconds != nil {
		d := time.Duration(*r.ResponseTimeSeconds * float64(time.Second))
		responseTime = &d
	}
	return grade, responseTime, nil
}

// CardPayload is a card as sent by the client.
type CardPayload struct {
	ID       string         `json:"id"                 validate:"required"`
	Front    string         `json:"front,omitempty"`
	Back     string         `json:"back,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CardsRequest is the body of POST /cards/due and POST /cards/batch.
type CardsRequest struct {
	Cards []CardPayload `json:"cards" validate:"required,dive"`
}

// refs converts the payload into domain card references.
func (r CardsRequest) refs() []domain.CardRef {
	refs := make([]domain.CardRef, len(r.Cards))
	for i, c := range r.Cards {
		refs[i] = domain.CardRef{ID: c.ID, Front: c.Front, Back: c.Back, Metadata: c.Metadata}
	}
	return refs
}

// CardsResponse lists selected cards in request order.
type CardsResponse struct {
	Cards []domain.CardRef `json:"cards"`
	Count int              `json:"count"`
}

func newCardsResponse(cards []domain.CardRef) CardsResponse {
	if cards == nil {
		cards = []domain.CardRef{}
	}
	return CardsResponse{Cards: cards, Count: len(cards)}
}

// PostponeRequest is the body of POST /cards/{id}/postpone.
type PostponeRequest struct {
	Days int `json:"days" validate:"required,gte=1,lte=36500"`
}

// CardStateResponse is the scheduling state of one card.
type CardStateResponse struct {
	*domain.CardMemoryState
	LastAnswer domain.Answer `json:"last_answer,omitempty"`
	Due        bool          `json:"due"`
}

func newCardStateResponse(state *domain.CardMemoryState, now time.Time) CardStateResponse {
	resp := CardStateResponse{CardMemoryState: state, Due: state.IsDue(now)}
	if state.Reviewed() {
		resp.LastAnswer = state.Performance.Answer()
	}
	return resp
}

// ResetCardResponse reports whether a card had state to forget.
type ResetCardResponse struct {
	CardID  string `json:"card_id"`
	Removed bool   `json:"removed"`
}

// HistoryResponse holds per-day review counts, oldest first. Days is the
// number of buckets returned, which is capped by the retained history.
type HistoryResponse struct {
	Days    int                `json:"days"`
	History []domain.DayBucket `json:"history"`
}

// PresetRequest is the body of PUT /policy/preset.
type PresetRequest struct {
	Preset string `json:"preset" validate:"required"`
}

// SettingsRequest is the body of PATCH /policy/settings and
// POST /policy/validate: setting keys mapped to new values.
type SettingsRequest map[string]any

var errNoSettings = errors.New("no settings given")

// Validate implements the custom validation hook of shared.ValidateRequest.
func (r SettingsRequest) Validate() error {
	if len(r) == 0 {
		return errNoSettings
	}
	for key := range r {
		if strings.TrimSpace(key) == "" {
			return errors.New("setting key cannot be empty")
		}
	}
	return nil
}

// ValidationResponse is the result of POST /policy/validate.
type ValidationResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}
