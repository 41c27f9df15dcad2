package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// calculateNewEaseFactor applies the SuperMemo-2 ease update for a grade q:
//
//	EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02))
//
// A perfect grade adds 0.1, a grade of 4 leaves the factor unchanged and lower
// grades subtract superlinearly. The result never drops below params.MinEaseFactor.
func calculateNewEaseFactor(currentEF float64, grade domain.Grade, params *Params) float64 {
	q := float64(grade.Clamp())
	newEF := currentEF + (0.1 - (5-q)*(0.08+(5-q)*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the next interval in days.
//
// The repetition count before the review selects the branch:
//   - 0: params.GraduatingInterval, or params.EasyInterval for grades of 4 and up
//     when that is longer
//   - 1: params.SecondInterval
//   - otherwise: round(currentInterval * easeFactor * IntervalModifier), with
//     EasyBonus for grades of 4 and up and HardMultiplier for a hard grade
//
// Failing grades take the same path as passing ones; there is no separate
// relearning interval. The result is at least one day and at most
// params.MaximumInterval.
func calculateNewInterval(
	repetitions int,
	currentInterval int,
	easeFactor float64,
	grade domain.Grade,
	params *Params,
) int {
	var interval int

	switch repetitions {
	case 0:
		interval = params.GraduatingInterval
		if grade >= domain.GradeEasy && params.EasyInterval > interval {
			interval = params.EasyInterval
		}
	case 1:
		interval = params.SecondInterval
	default:
		growth := easeFactor * params.IntervalModifier
		switch {
		case grade >= domain.GradeEasy:
			growth *= params.EasyBonus
		case grade == domain.GradeHard:
			growth *= params.HardMultiplier
		}
		interval = int(math.Round(float64(currentInterval) * growth))
	}

	if interval < 1 {
		interval = 1
	}
	if params.MaximumInterval > 0 && interval > params.MaximumInterval {
		interval = params.MaximumInterval
	}

	return interval
}

// calculateNextReviewDate converts an interval into an absolute due time.
// Intervals are whole 24 hour periods, not calendar days, so NextReview minus
// LastReview is always exactly interval * 24h.
func calculateNextReviewDate(interval int, now time.Time) time.Time {
	return now.Add(time.Duration(interval) * domain.Day)
}

// calculateNextState returns a new state with the outcome of grading the card at now.
// The input state is not modified.
func calculateNextState(
	state *domain.CardMemoryState,
	grade domain.Grade,
	now time.Time,
	params *Params,
) *domain.CardMemoryState {
	next := state.Clone()

	next.EaseFactor = calculateNewEaseFactor(state.EaseFactor, grade, params)
	next.Interval = calculateNewInterval(
		state.Repetitions,
		state.Interval,
		next.EaseFactor,
		grade,
		params,
	)

	reviewedAt := now
	next.LastReview = &reviewedAt
	next.NextReview = calculateNextReviewDate(next.Interval, now)
	next.Repetitions = state.Repetitions + 1
	next.Performance = grade

	return next
}
