package sqlite

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

// StatisticsStore implements store.StatisticsStore.
type StatisticsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewStatisticsStore creates a StatisticsStore on db.
func NewStatisticsStore(db store.DBTX, logger *slog.Logger) *StatisticsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatisticsStore{
		db:     db,
		logger: logger.With(slog.String("component", "statistics_store"), slog.String("driver", "sqlite")),
	}
}

var _ store.StatisticsStore = (*StatisticsStore)(nil)

// Get implements store.StatisticsStore.Get.
func (s *StatisticsStore) Get(ctx context.Context, userID uuid.UUID) (*domain.StudyStatistics, error) {
	var (
		stats       domain.StudyStatistics
		lastSession sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT total_reviews, correct_answers, incorrect_answers, study_streak, last_study_session
		FROM study_statistics
		WHERE user_id = ?
	`, userID.String()).Scan(
		&stats.TotalReviews,
		&stats.CorrectAnswers,
		&stats.IncorrectAnswers,
		&stats.StudyStreak,
		&lastSession,
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to get study statistics",
				redact.Attr(err),
				slog.String("user_id", userID.String()))
		}
		return nil, MapError(err, store.ErrStatisticsNotFound, nil)
	}
	stats.LastStudySession = timePtr(lastSession)
	return &stats, nil
}

// Save implements store.StatisticsStore.Save.
func (s *StatisticsStore) Save(ctx context.Context, userID uuid.UUID, stats domain.StudyStatistics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO study_statistics (
			user_id, total_reviews, correct_answers, incorrect_answers,
			study_streak, last_study_session, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			total_reviews      = excluded.total_reviews,
			correct_answers    = excluded.correct_answers,
			incorrect_answers  = excluded.incorrect_answers,
			study_streak       = excluded.study_streak,
			last_study_session = excluded.last_study_session,
			updated_at         = excluded.updated_at
	`,
		userID.String(),
		stats.TotalReviews,
		stats.CorrectAnswers,
		stats.IncorrectAnswers,
		stats.StudyStreak,
		nullMillis(stats.LastStudySession),
		toMillis(time.Now()),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save study statistics",
			redact.Attr(err),
			slog.String("user_id", userID.String()))
		return MapError(err, nil, nil)
	}
	return nil
}

// Delete implements store.StatisticsStore.Delete.
func (s *StatisticsStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM study_statistics WHERE user_id = ?`, userID.String()); err != nil {
		return MapError(err, nil, nil)
	}
	return nil
}

// WithTx implements store.StatisticsStore.WithTx.
func (s *StatisticsStore) WithTx(tx *sql.Tx) store.StatisticsStore {
	return &StatisticsStore{db: tx, logger: s.logger}
}
