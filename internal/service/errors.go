package service

import (
	"errors"
	"fmt"
)

// Common service errors. The API layer maps them to status codes.
var (
	// ErrInvalidPolicy indicates an imported policy document was rejected.
	ErrInvalidPolicy = errors.New("invalid policy document")

	// ErrInvalidCardID indicates a blank card identifier.
	ErrInvalidCardID = errors.New("card ID cannot be empty")
)

// ServiceError wraps errors from the study service with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "record_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("study service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("study service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError. A nil err yields nil.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
