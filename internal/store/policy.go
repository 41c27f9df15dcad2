package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// PolicyStore persists a user's exported scheduling policy as an opaque blob.
type PolicyStore interface {
	// Get returns the saved blob.
	// Returns ErrPolicyNotFound when the user never saved one.
	Get(ctx context.Context, userID uuid.UUID) ([]byte, error)

	// Save inserts or replaces the blob.
	Save(ctx context.Context, userID uuid.UUID, blob []byte) error

	// WithTx returns a PolicyStore that runs on the provided transaction.
	WithTx(tx *sql.Tx) PolicyStore
}
