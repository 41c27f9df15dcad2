package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// CardStateStore persists the memory state of each card a user has graded.
type CardStateStore interface {
	// LoadAll returns every stored state of the user. An unknown user has
	// none; that is not an error.
	LoadAll(ctx context.Context, userID uuid.UUID) ([]*domain.CardMemoryState, error)

	// Save inserts or replaces the state of one card.
	// Returns ErrInvalidEntity when the state fails validation.
	Save(ctx context.Context, userID uuid.UUID, state *domain.CardMemoryState) error

	// Delete removes the state of one card.
	// Returns ErrCardStateNotFound if nothing was stored for it.
	Delete(ctx context.Context, userID uuid.UUID, cardID string) error

	// DeleteAll removes every state of the user and returns how many rows went.
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)

	// WithTx returns a CardStateStore that runs on the provided transaction.
	WithTx(tx *sql.Tx) CardStateStore
}
