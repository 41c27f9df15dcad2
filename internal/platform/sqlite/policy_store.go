package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PolicyStore implements store.PolicyStore.
type PolicyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPolicyStore creates a PolicyStore on db.
func NewPolicyStore(db store.DBTX, logger *slog.Logger) *PolicyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyStore{
		db:     db,
		logger: logger.With(slog.String("component", "policy_store"), slog.String("driver", "sqlite")),
	}
}

var _ store.PolicyStore = (*PolicyStore)(nil)

// Get implements store.PolicyStore.Get.
func (s *PolicyStore) Get(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM scheduling_policies WHERE user_id = ?`, userID.String()).Scan(&blob)
	if err != nil {
		return nil, MapError(err, store.ErrPolicyNotFound, nil)
	}
	return []byte(blob), nil
}

// Save implements store.PolicyStore.Save.
func (s *PolicyStore) Save(ctx context.Context, userID uuid.UUID, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduling_policies (user_id, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			config     = excluded.config,
			updated_at = excluded.updated_at
	`, userID.String(), string(blob), toMillis(time.Now()))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save scheduling policy",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return MapError(err, nil, nil)
	}
	return nil
}

// WithTx implements store.PolicyStore.WithTx.
func (s *PolicyStore) WithTx(tx *sql.Tx) store.PolicyStore {
	return &PolicyStore{db: tx, logger: s.logger}
}
