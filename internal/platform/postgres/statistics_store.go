package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresStatisticsStore implements store.StatisticsStore.
type PostgresStatisticsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatisticsStore creates a PostgresStatisticsStore on db.
func NewPostgresStatisticsStore(db store.DBTX, logger *slog.Logger) *PostgresStatisticsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStatisticsStore{
		db:     db,
		logger: logger.With(slog.String("component", "statistics_store")),
	}
}

var _ store.StatisticsStore = (*PostgresStatisticsStore)(nil)

// Get implements store.StatisticsStore.Get.
func (s *PostgresStatisticsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.StudyStatistics, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		stats       domain.StudyStatistics
		lastSession sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT total_reviews, correct_answers, incorrect_answers, study_streak, last_study_session
		FROM study_statistics
		WHERE user_id = $1
	`, userID).Scan(
		&stats.TotalReviews,
		&stats.CorrectAnswers,
		&stats.IncorrectAnswers,
		&stats.StudyStreak,
		&lastSession,
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get study statistics",
				redact.Attr(err),
				slog.String("user_id", userID.String()))
		}
		return nil, MapError(err, store.ErrStatisticsNotFound, nil)
	}
	if lastSession.Valid {
		t := lastSession.Time
		stats.LastStudySession = &t
	}
	return &stats, nil
}

// Save implements store.StatisticsStore.Save.
func (s *PostgresStatisticsStore) Save(ctx context.Context, userID uuid.UUID, stats domain.StudyStatistics) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var lastSession sql.NullTime
	if stats.LastStudySession != nil {
		lastSession = sql.NullTime{Time: stats.LastStudySession.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO study_statistics (
			user_id, total_reviews, correct_answers, incorrect_answers,
			study_streak, last_study_session, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			total_reviews      = EXCLUDED.total_reviews,
			correct_answers    = EXCLUDED.correct_answers,
			incorrect_answers  = EXCLUDED.incorrect_answers,
			study_streak       = EXCLUDED.study_streak,
			last_study_session = EXCLUDED.last_study_session,
			updated_at         = EXCLUDED.updated_at
	`,
		userID,
		stats.TotalReviews,
		stats.CorrectAnswers,
		stats.IncorrectAnswers,
		stats.StudyStreak,
		lastSession,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to save study statistics",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return MapError(err, nil, nil)
	}
	return nil
}

// Delete implements store.StatisticsStore.Delete.
func (s *PostgresStatisticsStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM study_statistics WHERE user_id = $1`, userID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete study statistics",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return MapError(err, nil, nil)
	}
	return nil
}

// WithTx implements store.StatisticsStore.WithTx.
func (s *PostgresStatisticsStore) WithTx(tx *sql.Tx) store.StatisticsStore {
	return &PostgresStatisticsStore{db: tx, logger: s.logger}
}
