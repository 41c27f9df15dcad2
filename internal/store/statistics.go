package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// StatisticsStore persists a user's aggregate study statistics.
type StatisticsStore interface {
	// Get returns the statistics of the user.
	// Returns ErrStatisticsNotFound when none were saved.
	Get(ctx context.Context, userID uuid.UUID) (*domain.StudyStatistics, error)

	// Save inserts or replaces the statistics of the user.
	Save(ctx context.Context, userID uuid.UUID, stats domain.StudyStatistics) error

	// Delete removes the statistics of the user. Deleting missing statistics
	// is not an error.
	Delete(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a StatisticsStore that runs on the provided transaction.
	WithTx(tx *sql.Tx) StatisticsStore
}
