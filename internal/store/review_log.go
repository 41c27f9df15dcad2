package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// ReviewLogFilter narrows ReviewLogStore.List. Zero fields do not filter.
type ReviewLogFilter struct {
	CardID string    // only events of this card
	Since  time.Time // events at or after this time
	Until  time.Time // events strictly before this time
	Limit  int       // at most this many of the most recent matching events
}

// ReviewLogStore is the append-only log of review events.
type ReviewLogStore interface {
	// Append adds an event to the user's log.
	// Returns ErrReviewEventExists if the event ID is already logged.
	Append(ctx context.Context, userID uuid.UUID, event domain.ReviewEvent) error

	// List returns the user's matching events in chronological order.
	List(ctx context.Context, userID uuid.UUID, filter ReviewLogFilter) ([]domain.ReviewEvent, error)

	// DeleteAll removes the user's whole log and returns how many events went.
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)

	// WithTx returns a ReviewLogStore that runs on the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
