package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidGrade is returned when a grade falls outside the 0-5 scale.
	ErrInvalidGrade = errors.New("invalid grade")

	// ErrInvalidAnswer is returned when an answer button name is unknown.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrEmptyCardID is returned when a card identifier is blank.
	ErrEmptyCardID = errors.New("card ID cannot be empty")

	// ErrInvalidEaseFactor is returned when an ease factor is below the floor.
	ErrInvalidEaseFactor = errors.New("ease factor must be at least 1.3")

	// ErrInvalidInterval is returned when an interval is negative.
	ErrInvalidInterval = errors.New("interval must be greater than or equal to 0")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError reports an invalid field of an entity or input.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// Unwrap returns the wrapped error, ErrValidation when none was given.
func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
