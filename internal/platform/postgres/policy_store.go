package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresPolicyStore implements store.PolicyStore.
type PostgresPolicyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPolicyStore creates a PostgresPolicyStore on db.
func NewPostgresPolicyStore(db store.DBTX, logger *slog.Logger) *PostgresPolicyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPolicyStore{
		db:     db,
		logger: logger.With(slog.String("component", "policy_store")),
	}
}

var _ store.PolicyStore = (*PostgresPolicyStore)(nil)

// Get implements store.PolicyStore.Get.
func (s *PostgresPolicyStore) Get(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM scheduling_policies WHERE user_id = $1`, userID).Scan(&blob)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to get scheduling policy",
				redact.Attr(err),
				slog.String("user_id", userID.String()))
		}
		return nil, MapError(err, store.ErrPolicyNotFound, nil)
	}
	return []byte(blob), nil
}

// Save implements store.PolicyStore.Save.
func (s *PostgresPolicyStore) Save(ctx context.Context, userID uuid.UUID, blob []byte) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduling_policies (user_id, config, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			config     = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`, userID, string(blob), time.Now().UTC())
	if err != nil {
		log.Error("failed to save scheduling policy",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return MapError(err, nil, nil)
	}

	log.Debug("scheduling policy saved", slog.String("user_id", userID.String()))
	return nil
}

// WithTx implements store.PolicyStore.WithTx.
func (s *PostgresPolicyStore) WithTx(tx *sql.Tx) store.PolicyStore {
	return &PostgresPolicyStore{db: tx, logger: s.logger}
}
