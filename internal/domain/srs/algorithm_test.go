package srs

import (
	"math"
	"testing"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

func TestCalculateNewEaseFactor(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		grade    domain.Grade
		expected float64
	}{
		{
			name:     "Perfect grade should increase ease factor",
			current:  2.5,
			grade:    domain.GradePerfect,
			expected: 2.6, // 2.5 + 0.1
		},
		{
			name:     "Grade 4 should leave ease factor unchanged",
			current:  2.5,
			grade:    domain.GradeEasy,
			expected: 2.5,
		},
		{
			name:     "Grade 3 should decrease ease factor",
			current:  2.5,
			grade:    domain.GradeGood,
			expected: 2.36, // 2.5 - 0.14
		},
		{
			name:     "Grade 2 should decrease ease factor more",
			current:  2.5,
			grade:    domain.GradeHard,
			expected: 2.18, // 2.5 - 0.32
		},
		{
			name:     "Grade 0 should decrease ease factor the most",
			current:  2.5,
			grade:    domain.GradeBlackout,
			expected: 1.7, // 2.5 - 0.8
		},
		{
			name:     "Minimum ease factor should be enforced",
			current:  1.4,
			grade:    domain.GradeBlackout,
			expected: 1.3, // 1.4 - 0.8 = 0.6, but min is 1.3
		},
		{
			name:     "Ease factor has no upper bound",
			current:  3.0,
			grade:    domain.GradePerfect,
			expected: 3.1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			newEF := calculateNewEaseFactor(tc.current, tc.grade, params)

			if math.Abs(newEF-tc.expected) > 1e-9 {
				t.Errorf("Expected ease factor %f, got %f", tc.expected, newEF)
			}
		})
	}
}

func TestCalculateNewEaseFactor_FloorNeverViolated(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	ef := domain.DefaultEaseFactor
	for i := 0; i < 50; i++ {
		ef = calculateNewEaseFactor(ef, domain.GradeBlackout, params)
		if ef < domain.MinEaseFactor {
			t.Fatalf("ease factor %f dropped below floor after %d reviews", ef, i+1)
		}
	}
	if ef != domain.MinEaseFactor {
		t.Errorf("Expected ease factor to settle on %f, got %f", domain.MinEaseFactor, ef)
	}
}

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		reps     int
		current  int
		ef       float64
		grade    domain.Grade
		expected int
	}{
		{
			name:     "First review is one day",
			reps:     0,
			current:  0,
			ef:       2.5,
			grade:    domain.GradeGood,
			expected: 1,
		},
		{
			name:     "First review ignores the grade",
			reps:     0,
			current:  0,
			ef:       1.7,
			grade:    domain.GradeBlackout,
			expected: 1,
		},
		{
			name:     "Second review is six days",
			reps:     1,
			current:  1,
			ef:       2.5,
			grade:    domain.GradeEasy,
			expected: 6,
		},
		{
			name:     "Later reviews multiply by ease factor",
			reps:     2,
			current:  6,
			ef:       2.6,
			grade:    domain.GradePerfect,
			expected: 16, // round(6 * 2.6 = 15.6)
		},
		{
			name:     "Rounding is to nearest",
			reps:     3,
			current:  10,
			ef:       1.34,
			grade:    domain.GradeGood,
			expected: 13, // round(13.4)
		},
		{
			name:     "Failing grades take the same path",
			reps:     4,
			current:  10,
			ef:       1.3,
			grade:    domain.GradeAgain,
			expected: 13,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			newInterval := calculateNewInterval(tc.reps, tc.current, tc.ef, tc.grade, params)

			if newInterval != tc.expected {
				t.Errorf("Expected interval %d, got %d", tc.expected, newInterval)
			}
		})
	}
}

func TestCalculateNewInterval_CustomParams(t *testing.T) {
	t.Parallel()

	params := NewParams(ParamsConfig{
		GraduatingInterval: 2,
		EasyInterval:       4,
		IntervalModifier:   0.8,
		EasyBonus:          1.3,
		HardMultiplier:     0.5,
		MaximumInterval:    30,
	})

	testCases := []struct {
		name     string
		reps     int
		current  int
		ef       float64
		grade    domain.Grade
		expected int
	}{
		{"graduating interval", 0, 0, 2.5, domain.GradeGood, 2},
		{"easy interval on first review", 0, 0, 2.5, domain.GradeEasy, 4},
		{"interval modifier", 2, 10, 2.5, domain.GradeGood, 20}, // 10 * 2.5 * 0.8
		{"easy bonus", 2, 10, 2.5, domain.GradePerfect, 26},     // 10 * 2.5 * 0.8 * 1.3
		{"hard multiplier", 2, 10, 2.5, domain.GradeHard, 10},   // 10 * 2.5 * 0.8 * 0.5
		{"maximum interval", 5, 25, 2.5, domain.GradeGood, 30},  // 50 capped at 30
		{"at least one day", 2, 1, 1.3, domain.GradeHard, 1},    // 0.52 rounds to 1
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewInterval(tc.reps, tc.current, tc.ef, tc.grade, params)
			if got != tc.expected {
				t.Errorf("Expected interval %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestCalculateNextReviewDate(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 7, 15, 30, 0, 0, time.UTC)

	got := calculateNextReviewDate(6, now)
	want := now.Add(6 * 24 * time.Hour)

	if !got.Equal(want) {
		t.Errorf("Expected next review at %v, got %v", want, got)
	}
}

func TestCalculateNextState(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)

	state := domain.NewCardMemoryState("c1", params.InitialEaseFactor, now)

	first := calculateNextState(state, domain.GradeEasy, now, params)
	if first.Repetitions != 1 || first.Interval != 1 {
		t.Fatalf("first review: expected reps=1 interval=1, got reps=%d interval=%d",
			first.Repetitions, first.Interval)
	}
	if first.LastReview == nil || !first.LastReview.Equal(now) {
		t.Errorf("first review: expected last review %v, got %v", now, first.LastReview)
	}
	if !first.NextReview.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("first review: unexpected next review %v", first.NextReview)
	}
	if first.Performance != domain.GradeEasy {
		t.Errorf("first review: expected performance %d, got %d", domain.GradeEasy, first.Performance)
	}

	// The input must not be modified.
	if state.Repetitions != 0 || state.LastReview != nil {
		t.Errorf("input state was mutated: %+v", state)
	}

	later := now.Add(24 * time.Hour)
	second := calculateNextState(first, domain.GradeEasy, later, params)
	if second.Repetitions != 2 || second.Interval != 6 {
		t.Fatalf("second review: expected reps=2 interval=6, got reps=%d interval=%d",
			second.Repetitions, second.Interval)
	}

	third := calculateNextState(second, domain.GradePerfect, later.Add(6*24*time.Hour), params)
	expectedEase := second.EaseFactor + 0.1
	if math.Abs(third.EaseFactor-expectedEase) > 1e-9 {
		t.Errorf("third review: expected ease %f, got %f", expectedEase, third.EaseFactor)
	}
	if third.Interval != int(math.Round(6*third.EaseFactor)) {
		t.Errorf("third review: expected interval round(6*%f), got %d", third.EaseFactor, third.Interval)
	}
}
