package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
)

// StudyService is the part of the study service the study endpoints use.
type StudyService interface {
	RecordAnswer(ctx context.Context, userID uuid.UUID, cardID string, grade domain.Grade, responseTime *time.Duration) (*domain.CardMemoryState, error)
	DueCards(ctx context.Context, userID uuid.UUID, cards []domain.CardRef) ([]domain.CardRef, error)
	StudyBatch(ctx context.Context, userID uuid.UUID, cards []domain.CardRef) ([]domain.CardRef, error)
	CardState(ctx context.Context, userID uuid.UUID, cardID string) (*domain.CardMemoryState, bool, error)
	Postpone(ctx context.Context, userID uuid.UUID, cardID string, days int) (*domain.CardMemoryState, error)
	ResetCard(ctx context.Context, userID uuid.UUID, cardID string) (bool, error)
	ResetAll(ctx context.Context, userID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (domain.StudyStats, error)
	DifficultyDistribution(ctx context.Context, userID uuid.UUID) (domain.DifficultyDistribution, error)
	History(ctx context.Context, userID uuid.UUID, days int) ([]domain.DayBucket, error)
}

// DefaultHistoryDays is used when GET /stats/history has no days parameter.
const DefaultHistoryDays = 30

// maxHistoryDays bounds GET /stats/history.
const maxHistoryDays = 3650

// StudyHandler serves grading, selection and statistics endpoints.
type StudyHandler struct {
	study  StudyService
	logger *slog.Logger
	now    func() time.Time
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(study StudyService, logger *slog.Logger) *StudyHandler {
	if study == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("study service cannot be nil for StudyHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		study:  study,
		logger: logger.With(slog.String("component", "study_handler")),
		now:    time.Now,
	}
}

// SubmitAnswer handles POST /cards/{id}/answer.
func (h *StudyHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	grade, responseTime, err := req.resolve()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.study.RecordAnswer(r.Context(), userID, cardID, grade, responseTime)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	log.Debug("answer submitted",
		slog.String("card_id", cardID),
		slog.Int("grade", int(grade)))
	shared.RespondWithJSON(w, r, http.StatusOK, newCardStateResponse(state, h.now()))
}

// DueCards handles POST /cards/due.
func (h *StudyHandler) DueCards(w http.ResponseWriter, r *http.Request) {
	h.selectCards(w, r, h.study.DueCards, "Failed to select due cards")
}

// StudyBatch handles POST /cards/batch.
func (h *StudyHandler) StudyBatch(w http.ResponseWriter, r *http.Request) {
	h.selectCards(w, r, h.study.StudyBatch, "Failed to build study batch")
}

func (h *StudyHandler) selectCards(
	w http.ResponseWriter,
	r *http.Request,
	pick func(context.Context, uuid.UUID, []domain.CardRef) ([]domain.CardRef, error),
	failure string,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	var req CardsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cards, err := pick(r.Context(), userID, req.refs())
	if err != nil {
		HandleAPIError(w, r, err, failure)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newCardsResponse(cards))
}

// GetCardState handles GET /cards/{id}/state.
func (h *StudyHandler) GetCardState(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(w, r)
	if !ok {
		return
	}

	state, found, err := h.study.CardState(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get card state")
		return
	}
	if !found {
		shared.RespondWithError(w, r, http.StatusNotFound, "Card has no scheduling state")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newCardStateResponse(state, h.now()))
}

// PostponeCard handles POST /cards/{id}/postpone.
func (h *StudyHandler) PostponeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(w, r)
	if !ok {
		return
	}
	var req PostponeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	state, err := h.study.Postpone(r.Context(), userID, cardID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newCardStateResponse(state, h.now()))
}

// ResetCard handles DELETE /cards/{id}/state.
func (h *StudyHandler) ResetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(w, r)
	if !ok {
		return
	}

	removed, err := h.study.ResetCard(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ResetCardResponse{CardID: cardID, Removed: removed})
}

// ResetAll handles DELETE /state.
func (h *StudyHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	if err := h.study.ResetAll(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "Failed to reset scheduling data")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /stats.
func (h *StudyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	stats, err := h.study.Stats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// GetDifficulty handles GET /stats/difficulty.
func (h *StudyHandler) GetDifficulty(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	dist, err := h.study.DifficultyDistribution(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get difficulty distribution")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dist)
}

// GetHistory handles GET /stats/history?days=N.
func (h *StudyHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	days, err := queryInt(r, "days", DefaultHistoryDays)
	if err == nil && (days < 1 || days > maxHistoryDays) {
		err = domain.NewValidationError("days", "must be between 1 and 3650", domain.ErrValidation)
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	history, err := h.study.History(r.Context(), userID, days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get study history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Days: len(history), History: history})
}
