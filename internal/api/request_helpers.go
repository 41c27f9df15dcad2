package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// requireUser returns the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return uuid.Nil, false
	}
	return userID, true
}

// cardIDParam returns the {id} path parameter. Card IDs are opaque strings
// owned by the deck collaborator.
func cardIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	cardID := strings.TrimSpace(chi.URLParam(r, "id"))
	if cardID == "" {
		HandleAPIError(w, r, domain.NewValidationError("id", "is required", domain.ErrEmptyCardID), "")
		return "", false
	}
	return cardID, true
}

// decodeAndValidate reads the JSON body into v and validates it, writing a
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", domain.ErrValidation)
	}
	return v, nil
}
