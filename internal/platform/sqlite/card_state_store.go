package sqlite

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

// CardStateStore implements store.CardStateStore.
type CardStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCardStateStore creates a CardStateStore on db. If logger is nil, a
// default logger will be used.
func NewCardStateStore(db store.DBTX, logger *slog.Logger) *CardStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_state_store"), slog.String("driver", "sqlite")),
	}
}

var _ store.CardStateStore = (*CardStateStore)(nil)

// LoadAll implements store.CardStateStore.LoadAll.
func (s *CardStateStore) LoadAll(ctx context.Context, userID uuid.UUID) ([]*domain.CardMemoryState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, repetitions, ease_factor, interval_days,
		       next_review_at, last_review_at, performance
		FROM card_states
		WHERE user_id = ?
		ORDER BY card_id
	`, userID.String())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query card states",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return nil, MapError(err, store.ErrCardStateNotFound, nil)
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.CardMemoryState
	for rows.Next() {
		var (
			state       domain.CardMemoryState
			nextReview  int64
			lastReview  sql.NullInt64
			performance int
		)
		if err := rows.Scan(
			&state.CardID,
			&state.Repetitions,
			&state.EaseFactor,
			&state.Interval,
			&nextReview,
			&lastReview,
			&performance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card state: %w", err)
		}
		state.NextReview = fromMillis(nextReview)
		state.LastReview = timePtr(lastReview)
		state.Performance = domain.Grade(performance)
		states = append(states, &state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card states: %w", err)
	}
	return states, nil
}

// Save implements store.CardStateStore.Save.
func (s *CardStateStore) Save(ctx context.Context, userID uuid.UUID, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("card state validation failed",
			redact.Attr(err),
			slog.String("card_id", state.CardID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_states (
			user_id, card_id, repetitions, ease_factor, interval_days,
			next_review_at, last_review_at, performance, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			repetitions    = excluded.repetitions,
			ease_factor    = excluded.ease_factor,
			interval_days  = excluded.interval_days,
			next_review_at = excluded.next_review_at,
			last_review_at = excluded.last_review_at,
			performance    = excluded.performance,
			updated_at     = excluded.updated_at
	`,
		userID.String(),
		state.CardID,
		state.Repetitions,
		state.EaseFactor,
		state.Interval,
		toMillis(state.NextReview),
		nullMillis(state.LastReview),
		int(state.Performance),
		toMillis(time.Now()),
	)
	if err != nil {
		log.Error("failed to save card state",
			redact.Attr(err),
			slog.String("card_id", state.CardID))
		return MapError(err, nil, nil)
	}
	return nil
}

// Delete implements store.CardStateStore.Delete.
func (s *CardStateStore) Delete(ctx context.Context, userID uuid.UUID, cardID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM card_states WHERE user_id = ? AND card_id = ?`, userID.String(), cardID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete card state",
			redact.Attr(err),
			slog.String("card_id", cardID))
		return MapError(err, store.ErrCardStateNotFound, nil)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrCardStateNotFound
	}
	return nil
}

// DeleteAll implements store.CardStateStore.DeleteAll.
func (s *CardStateStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM card_states WHERE user_id = ?`, userID.String())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete card states",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return 0, MapError(err, nil, nil)
	}
	return result.RowsAffected()
}

// WithTx implements store.CardStateStore.WithTx.
func (s *CardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return &CardStateStore{db: tx, logger: s.logger}
}
