package scheduler_test

import (
	"testing"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStudyStats(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		s := newScheduler(newClock(start))
		stats := s.GetStudyStats()
		assert.Zero(t, stats.Accuracy)
		assert.Zero(t, stats.CardsDue)
		assert.Nil(t, stats.NextReviewDate)
	})

	t.Run("populated", func(t *testing.T) {
		t.Parallel()
		c := newClock(start)
		s := newScheduler(c)

		s.RecordAnswer("a", domain.GradeGood, nil)  // due in 1 day
		s.RecordAnswer("b", domain.GradeGood, nil)  // 1 day
		s.RecordAnswer("b", domain.GradeGood, nil)  // then 6 days
		s.RecordAnswer("c", domain.GradeAgain, nil) // due in 1 day
		_, err := s.Postpone("c", 1)                // due in 2 days
		require.NoError(t, err)

		c.Advance(36 * time.Hour)
		stats := s.GetStudyStats()
		assert.Equal(t, 4, stats.TotalReviews)
		assert.InDelta(t, 75.0, stats.Accuracy, 1e-9)
		assert.Equal(t, 3, stats.TrackedCards)
		assert.Equal(t, 1, stats.CardsDue)
		require.NotNil(t, stats.NextReviewDate)
		assert.Equal(t, start.Add(48*time.Hour), *stats.NextReviewDate)
	})
}

func TestGetDifficultyDistribution(t *testing.T) {
	t.Parallel()

	s := newScheduler(newClock(start))
	s.Restore(scheduler.Snapshot{States: []*domain.CardMemoryState{
		{CardID: "easy", EaseFactor: 2.6},
		{CardID: "medium", EaseFactor: 2.0},
		{CardID: "hard", EaseFactor: 1.4},
	}})

	assert.Equal(t, domain.DifficultyDistribution{Easy: 1, Medium: 1, Hard: 1}, s.GetDifficultyDistribution())
}

func TestGetDifficultyDistributionBoundaries(t *testing.T) {
	t.Parallel()

	s := newScheduler(newClock(start))
	s.Restore(scheduler.Snapshot{States: []*domain.CardMemoryState{
		{CardID: "a", EaseFactor: 2.5},
		{CardID: "b", EaseFactor: 1.5},
		{CardID: "c", EaseFactor: 1.49},
		{CardID: "d", EaseFactor: 1.3},
	}})

	assert.Equal(t, domain.DifficultyDistribution{Easy: 1, Medium: 1, Hard: 2}, s.GetDifficultyDistribution())
}

func TestGetStudyHistory(t *testing.T) {
	t.Parallel()

	c := newClock(time.Date(2026, 1, 8, 10, 0, 0, 0, time.UTC))
	s := newScheduler(c)

	s.RecordAnswer("old", domain.GradeGood, nil) // Jan 8, first day of the window

	c.Set(time.Date(2026, 1, 7, 23, 59, 0, 0, time.UTC))
	s.RecordAnswer("older", domain.GradeGood, nil) // Jan 7, outside

	c.Set(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	s.RecordAnswer("x", domain.GradeGood, nil)
	c.Set(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	s.RecordAnswer("x", domain.GradeAgain, nil)
	c.Set(time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC))
	s.RecordAnswer("x", domain.GradeEasy, nil)

	history := s.GetStudyHistory(3)
	require.Len(t, history, 3)

	assert.Equal(t, time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), history[0].Date)
	assert.Equal(t, domain.DayBucket{Date: history[0].Date, Reviews: 1, Correct: 1}, history[0])
	assert.Equal(t, domain.DayBucket{Date: time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)}, history[1])
	assert.Equal(t, domain.DayBucket{
		Date:      time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Reviews:   3,
		Correct:   2,
		Incorrect: 1,
	}, history[2])
}

func TestGetStudyHistoryDefaultWindow(t *testing.T) {
	t.Parallel()

	s := newScheduler(newClock(start))
	for _, days := range []int{0, -4} {
		history := s.GetStudyHistory(days)
		require.Len(t, history, scheduler.DefaultHistoryDays)
		assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), history[0].Date)
		assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), history[6].Date)
	}
}

func TestPerformance(t *testing.T) {
	t.Parallel()

	c := newClock(time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC))
	s := newScheduler(c)

	s.RecordAnswer("a", domain.GradeGood, nil)  // first grading
	s.RecordAnswer("b", domain.GradeAgain, nil) // first grading

	c.Set(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	s.RecordAnswer("a", domain.GradeGood, nil) // mature, retained
	s.RecordAnswer("b", domain.GradeHard, nil) // mature, lapsed

	perf := s.Performance(2)
	assert.InDelta(t, 0.5, perf.AverageSuccessRate, 1e-9)
	assert.InDelta(t, 0.5, perf.RetentionRate, 1e-9)
	assert.InDelta(t, 2.0, perf.AverageDailyReviews, 1e-9)
	assert.Equal(t, 4, s.EventCount(2))

	today := s.Performance(1)
	assert.InDelta(t, 0.5, today.AverageSuccessRate, 1e-9)
	assert.InDelta(t, 2.0, today.AverageDailyReviews, 1e-9)
	assert.Equal(t, 2, s.EventCount(1))

	assert.Equal(t, domain.PerformanceStats{}, newScheduler(c).Performance(7))
}
