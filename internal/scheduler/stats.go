package scheduler

import (
	"sort"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// DefaultHistoryDays is the history window used when none is given.
const DefaultHistoryDays = 7

// Difficulty bands by ease factor.
const (
	easyEaseFactor   = 2.5
	mediumEaseFactor = 1.5
)

// GetStudyStats returns the statistics together with the accuracy
// percentage, the number of tracked cards due now and the earliest future
// review time.
func (s *Scheduler) GetStudyStats() domain.StudyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := domain.StudyStats{
		StudyStatistics: s.statisticsLocked(),
		Accuracy:        s.stats.Accuracy(),
		TrackedCards:    s.store.Len(),
	}

	s.store.each(func(state *domain.CardMemoryState) {
		if state.IsDue(now) {
			out.CardsDue++
			return
		}
		if out.NextReviewDate == nil || state.NextReview.Before(*out.NextReviewDate) {
			next := state.NextReview
			out.NextReviewDate = &next
		}
	})
	return out
}

// GetDifficultyDistribution classifies tracked cards by ease factor: at
// least 2.5 is easy, at least 1.5 medium, anything lower hard.
func (s *Scheduler) GetDifficultyDistribution() domain.DifficultyDistribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dist domain.DifficultyDistribution
	s.store.each(func(state *domain.CardMemoryState) {
		switch {
		case state.EaseFactor >= easyEaseFactor:
			dist.Easy++
		case state.EaseFactor >= mediumEaseFactor:
			dist.Medium++
		default:
			dist.Hard++
		}
	})
	return dist
}

// GetStudyHistory buckets review events into the trailing days local
// calendar days, oldest first, ending today. Every review counts once, so
// repeated reviews of a card on the same day are all reported. days <= 0
// selects DefaultHistoryDays.
func (s *Scheduler) GetStudyHistory(days int) []domain.DayBucket {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.startOfDay(s.now()).AddDate(0, 0, -(days - 1))
	buckets := make([]domain.DayBucket, days)
	for i := range buckets {
		buckets[i].Date = start.AddDate(0, 0, i)
	}

	for _, e := range s.events {
		i := s.daysBetween(start, e.ReviewedAt)
		if e.ReviewedAt.Before(start) || i >= days {
			continue
		}
		buckets[i].Reviews++
		if e.Grade.IsCorrect() {
			buckets[i].Correct++
		} else {
			buckets[i].Incorrect++
		}
	}
	return buckets
}

// Performance summarises the trailing days local calendar days for adaptive
// tuning. The success rate covers every review; the retention rate covers
// only reviews of cards that had been graded before. Both are 0 without
// matching reviews. days <= 0 selects DefaultHistoryDays.
func (s *Scheduler) Performance(days int) domain.PerformanceStats {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.startOfDay(s.now()).AddDate(0, 0, -(days - 1))

	var total, correct, mature, retained int
	for _, e := range s.events {
		if e.ReviewedAt.Before(start) {
			continue
		}
		total++
		if e.Grade.IsCorrect() {
			correct++
		}
		if e.PrevRepetitions > 0 {
			mature++
			if e.Grade.IsCorrect() {
				retained++
			}
		}
	}

	var stats domain.PerformanceStats
	if total > 0 {
		stats.AverageSuccessRate = float64(correct) / float64(total)
		stats.AverageDailyReviews = float64(total) / float64(days)
	}
	if mature > 0 {
		stats.RetentionRate = float64(retained) / float64(mature)
	}
	return stats
}

// EventCount returns the number of review events in the trailing days.
func (s *Scheduler) EventCount(days int) int {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.startOfDay(s.now()).AddDate(0, 0, -(days - 1))
	n := 0
	for _, e := range s.events {
		if !e.ReviewedAt.Before(start) {
			n++
		}
	}
	return n
}

func sortEvents(events []domain.ReviewEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ReviewedAt.Before(events[j].ReviewedAt)
	})
}
