package domain

import "time"

// StudyStatistics aggregates grading activity for one learner. Counters only
// grow; the whole record is zeroed by an explicit reset.
type StudyStatistics struct {
	TotalReviews     int        `json:"total_reviews"`
	CorrectAnswers   int        `json:"correct_answers"`
	IncorrectAnswers int        `json:"incorrect_answers"`
	StudyStreak      int        `json:"study_streak"`
	LastStudySession *time.Time `json:"last_study_session,omitempty"`
}

// Accuracy returns the share of correct answers as a percentage.
func (s StudyStatistics) Accuracy() float64 {
	if s.TotalReviews == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalReviews) * 100
}

// StudyStats is the dashboard view of the statistics.
type StudyStats struct {
	StudyStatistics
	Accuracy       float64    `json:"accuracy"`
	CardsDue       int        `json:"cards_due"`
	TrackedCards   int        `json:"tracked_cards"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
}

// DifficultyDistribution counts tracked cards by ease factor band.
type DifficultyDistribution struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// DayBucket holds the reviews that happened on one local calendar day.
type DayBucket struct {
	Date      time.Time `json:"date"` // local midnight starting the day
	Reviews   int       `json:"reviews"`
	Correct   int       `json:"correct"`
	Incorrect int       `json:"incorrect"`
}

// PerformanceStats summarises recent results for adaptive tuning.
type PerformanceStats struct {
	RetentionRate       float64 `json:"retentionRate"`
	AverageSuccessRate  float64 `json:"averageSuccessRate"`
	AverageDailyReviews float64 `json:"averageDailyReviews"`
}
