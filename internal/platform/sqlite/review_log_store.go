package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// ReviewLogStore implements store.ReviewLogStore.
type ReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewReviewLogStore creates a ReviewLogStore on db.
func NewReviewLogStore(db store.DBTX, logger *slog.Logger) *ReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store"), slog.String("driver", "sqlite")),
	}
}

var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// Append implements store.ReviewLogStore.Append.
func (s *ReviewLogStore) Append(ctx context.Context, userID uuid.UUID, event domain.ReviewEvent) error {
	var responseMS sql.NullInt64
	if event.ResponseTime != nil {
		responseMS = sql.NullInt64{Int64: event.ResponseTime.Milliseconds(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_events (
			id, user_id, card_id, grade, response_time_ms, reviewed_at,
			prev_repetitions, ease_factor, interval_days
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID.String(),
		userID.String(),
		event.CardID,
		int(event.Grade),
		responseMS,
		toMillis(event.ReviewedAt),
		event.PrevRepetitions,
		event.EaseFactor,
		event.Interval,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to append review event",
			redact.Attr(err),
			slog.String("event_id", event.ID.String()))
		return MapError(err, nil, store.ErrReviewEventExists)
	}
	return nil
}

// List implements store.ReviewLogStore.List.
func (s *ReviewLogStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.ReviewLogFilter,
) ([]domain.ReviewEvent, error) {
	query := squirrel.
		Select("id", "card_id", "grade", "response_time_ms", "reviewed_at",
			"prev_repetitions", "ease_factor", "interval_days").
		From("review_events").
		Where(squirrel.Eq{"user_id": userID.String()})
	if filter.CardID != "" {
		query = query.Where(squirrel.Eq{"card_id": filter.CardID})
	}
	if !filter.Since.IsZero() {
		query = query.Where(squirrel.GtOrEq{"reviewed_at": toMillis(filter.Since)})
	}
	if !filter.Until.IsZero() {
		query = query.Where(squirrel.Lt{"reviewed_at": toMillis(filter.Until)})
	}
	newestFirst := filter.Limit > 0
	if newestFirst {
		query = query.OrderBy("reviewed_at DESC", "rowid DESC").Limit(uint64(filter.Limit))
	} else {
		query = query.OrderBy("reviewed_at ASC", "rowid ASC")
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review log query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query review events",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return nil, MapError(err, nil, nil)
	}
	defer func() { _ = rows.Close() }()

	var events []domain.ReviewEvent
	for rows.Next() {
		var (
			event      domain.ReviewEvent
			id         string
			grade      int
			responseMS sql.NullInt64
			reviewedAt int64
		)
		if err := rows.Scan(
			&id,
			&event.CardID,
			&grade,
			&responseMS,
			&reviewedAt,
			&event.PrevRepetitions,
			&event.EaseFactor,
			&event.Interval,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review event: %w", err)
		}
		if event.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse review event id %q: %w", id, err)
		}
		event.Grade = domain.Grade(grade)
		event.ReviewedAt = fromMillis(reviewedAt)
		if responseMS.Valid {
			d := time.Duration(responseMS.Int64) * time.Millisecond
			event.ResponseTime = &d
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review events: %w", err)
	}

	if newestFirst {
		slices.Reverse(events)
	}
	return events, nil
}

// DeleteAll implements store.ReviewLogStore.DeleteAll.
func (s *ReviewLogStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM review_events WHERE user_id = ?`, userID.String())
	if err != nil {
		return 0, MapError(err, nil, nil)
	}
	return result.RowsAffected()
}

// WithTx implements store.ReviewLogStore.WithTx.
func (s *ReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &ReviewLogStore{db: tx, logger: s.logger}
}
