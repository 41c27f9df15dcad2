package postgres

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

// psql builds queries with PostgreSQL placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresReviewLogStore implements store.ReviewLogStore.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a PostgresReviewLogStore on db.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// Append implements store.ReviewLogStore.Append.
func (s *PostgresReviewLogStore) Append(ctx context.Context, userID uuid.UUID, event domain.ReviewEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var responseMS sql.NullInt64
	if event.ResponseTime != nil {
		responseMS = sql.NullInt64{Int64: event.ResponseTime.Milliseconds(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_events (
			id, user_id, card_id, grade, response_time_ms, reviewed_at,
			prev_repetitions, ease_factor, interval_days
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.ID,
		userID,
		event.CardID,
		int(event.Grade),
		responseMS,
		event.ReviewedAt.UTC(),
		event.PrevRepetitions,
		event.EaseFactor,
		event.Interval,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("review event already logged",
				slog.String("event_id", event.ID.String()))
		} else {
			log.Error("failed to append review event",
				redact.Attr(err),
				slog.String("user_id", userID.String()),
				slog.String("card_id", event.CardID))
		}
		return MapError(err, nil, store.ErrReviewEventExists)
	}
	return nil
}

// List implements store.ReviewLogStore.List.
func (s *PostgresReviewLogStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.ReviewLogFilter,
) ([]domain.ReviewEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := psql.
		Select("id", "card_id", "grade", "response_time_ms", "reviewed_at",
			"prev_repetitions", "ease_factor", "interval_days").
		From("review_events").
		Where(squirrel.Eq{"user_id": userID})
	if filter.CardID != "" {
		query = query.Where(squirrel.Eq{"card_id": filter.CardID})
	}
	if !filter.Since.IsZero() {
		query = query.Where(squirrel.GtOrEq{"reviewed_at": filter.Since.UTC()})
	}
	if !filter.Until.IsZero() {
		query = query.Where(squirrel.Lt{"reviewed_at": filter.Until.UTC()})
	}
	// A limit keeps the newest events, so read newest first and flip afterwards.
	newestFirst := filter.Limit > 0
	if newestFirst {
		query = query.OrderBy("reviewed_at DESC", "id DESC").Limit(uint64(filter.Limit))
	} else {
		query = query.OrderBy("reviewed_at ASC", "id ASC")
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review log query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to query review events",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return nil, MapError(err, nil, nil)
	}
	defer func() { _ = rows.Close() }()

	var events []domain.ReviewEvent
	for rows.Next() {
		var (
			event      domain.ReviewEvent
			grade      int
			responseMS sql.NullInt64
		)
		if err := rows.Scan(
			&event.ID,
			&event.CardID,
			&grade,
			&responseMS,
			&event.ReviewedAt,
			&event.PrevRepetitions,
			&event.EaseFactor,
			&event.Interval,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review event: %w", err)
		}
		event.Grade = domain.Grade(grade)
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
func (s *PostgresReviewLogStore) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM review_events WHERE user_id = $1`, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete review events",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return 0, MapError(err, nil, nil)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// WithTx implements store.ReviewLogStore.WithTx.
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{db: tx, logger: s.logger}
}
