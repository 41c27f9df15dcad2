package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/phrazzld/scry-scheduler/internal/service"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	var verr *policy.ValidationError
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidSubject),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.As(err, &verr),
		errors.Is(err, policy.ErrUnknownSetting),
		errors.Is(err, policy.ErrInvalidSetting),
		errors.Is(err, service.ErrInvalidPolicy):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidAnswer),
		errors.Is(err, domain.ErrEmptyCardID),
		errors.Is(err, service.ErrInvalidCardID),
		errors.Is(err, srs.ErrInvalidDays),
		errors.Is(err, policy.ErrUnknownPreset),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *policy.ValidationError
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidSubject):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.As(err, &verr):
		return "Invalid policy settings"
	case errors.Is(err, policy.ErrUnknownSetting):
		return "Unknown policy setting"
	case errors.Is(err, policy.ErrInvalidSetting):
		return "Invalid policy setting value"
	case errors.Is(err, service.ErrInvalidPolicy):
		return "Invalid policy document"
	case errors.Is(err, policy.ErrUnknownPreset):
		return "Unknown preset"
	case errors.Is(err, domain.ErrInvalidGrade):
		return "Invalid grade"
	case errors.Is(err, domain.ErrInvalidAnswer):
		return "Invalid answer"
	case errors.Is(err, domain.ErrEmptyCardID),
		errors.Is(err, service.ErrInvalidCardID):
		return "Card ID is required"
	case errors.Is(err, srs.ErrInvalidDays):
		return "Days must be at least 1"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err. fallback replaces the generic
// message of a 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	var verr *policy.ValidationError
	if errors.As(err, &verr) {
		opts = append(opts, shared.WithDetails(verr.Violations))
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns a validator error into a short message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	field := fe.Field()
	if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
		field = ns[strings.Index(ns, ".")+1:]
	}
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "required_without":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "excluded_with":
		return "conflicts with another field"
	default:
		return "validation failed"
	}
}
