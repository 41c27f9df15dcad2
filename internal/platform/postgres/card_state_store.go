package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresCardStateStore implements store.CardStateStore.
type PostgresCardStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStateStore creates a PostgresCardStateStore on db, which may
// be a connection pool or a transaction. If logger is nil, a default logger
// will be used.
func NewPostgresCardStateStore(db store.DBTX, logger *slog.Logger) *PostgresCardStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_state_store")),
	}
}

var _ store.CardStateStore = (*PostgresCardStateStore)(nil)

// LoadAll implements store.CardStateStore.LoadAll.
func (s *PostgresCardStateStore) LoadAll(ctx context.Context, userID uuid.UUID) ([]*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, repetitions, ease_factor, interval_days,
		       next_review_at, last_review_at, performance
		FROM card_states
		WHERE user_id = $1
		ORDER BY card_id
	`, userID)
	if err != nil {
		log.Error("failed to query card states",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return nil, MapError(err, store.ErrCardStateNotFound, nil)
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.CardMemoryState
	for rows.Next() {
		var (
			state       domain.CardMemoryState
			lastReview  sql.NullTime
			performance int
		)
		if err := rows.Scan(
			&state.CardID,
			&state.Repetitions,
			&state.EaseFactor,
			&state.Interval,
			&state.NextReview,
			&lastReview,
			&performance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card state: %w", err)
		}
		if lastReview.Valid {
			t := lastReview.Time
			state.LastReview = &t
		}
		state.Performance = domain.Grade(performance)
		states = append(states, &state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card states: %w", err)
	}

	log.Debug("card states loaded",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(states)))
	return states, nil
}

// Save implements store.CardStateStore.Save.
func (s *PostgresCardStateStore) Save(ctx context.Context, userID uuid.UUID, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("card state validation failed",
			redact.Attr(err),
			slog.String("card_id", state.CardID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var lastReview sql.NullTime
	if state.LastReview != nil {
		lastReview = sql.NullTime{Time: *state.LastReview, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_states (
			user_id, card_id, repetitions, ease_factor, interval_days,
			next_review_at, last_review_at, performance, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			repetitions    = EXCLUDED.repetitions,
			ease_factor    = EXCLUDED.ease_factor,
			interval_days  = EXCLUDED.interval_days,
			next_review_at = EXCLUDED.next_review_at,
			last_review_at = EXCLUDED.last_review_at,
			performance    = EXCLUDED.performance,
			updated_at     = EXCLUDED.updated_at
	`,
		userID,
		state.CardID,
		state.Repetitions,
		state.EaseFactor,
		state.Interval,
		state.NextReview.UTC(),
		lastReview,
		int(state.Performance),
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to save card state",
			redact.Attr(err),
			slog.String("user_id", userID.String()),
			slog.String("card_id", state.CardID))
		return MapError(err, nil, nil)
	}

	log.Debug("card state saved",
		slog.String("user_id", userID.String()),
		slog.String("card_id", state.CardID),
		slog.Time("next_review", state.NextReview))
	return nil
}

// Delete implements store.CardStateStore.Delete.
func (s *PostgresCardStateStore) Delete(ctx context.Context, userID uuid.UUID, cardID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM card_states WHERE user_id = $1 AND card_id = $2`, userID, cardID)
	if err != nil {
		log.Error("failed to delete card state",
			redact.Attr(err),
			slog.String("card_id", cardID))
		return MapError(err, store.ErrCardStateNotFound, nil)
	}
	if err := checkRowsAffected(result, store.ErrCardStateNotFound); err != nil {
		return err
	}

	log.Debug("card state deleted",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID))
	return nil
}

// DeleteAll implements store.CardStateStore.DeleteAll.
func (s *PostgresCardStateStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM card_states WHERE user_id = $1`, userID)
	if err != nil {
		log.Error("failed to delete card states",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return 0, MapError(err, nil, nil)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Debug("card states deleted",
		slog.String("user_id", userID.String()),
		slog.Int64("count", n))
	return n, nil
}

// WithTx implements store.CardStateStore.WithTx.
func (s *PostgresCardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return &PostgresCardStateStore{db: tx, logger: s.logger}
}
