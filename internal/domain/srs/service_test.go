package srs

import (
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CalculateNextReview(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	t.Run("nil state", func(t *testing.T) {
		_, err := svc.CalculateNextReview(nil, domain.GradeGood, now)
		assert.True(t, errors.Is(err, ErrNilState))
	})

	t.Run("invalid grade", func(t *testing.T) {
		state := svc.NewState("c1", now)
		_, err := svc.CalculateNextReview(state, domain.Grade(7), now)
		assert.True(t, errors.Is(err, ErrInvalidGrade))
	})

	t.Run("new card", func(t *testing.T) {
		state := svc.NewState("c1", now)
		assert.Equal(t, domain.DefaultEaseFactor, state.EaseFactor)
		assert.Equal(t, now, state.NextReview)
		assert.Nil(t, state.LastReview)

		next, err := svc.CalculateNextReview(state, domain.GradeGood, now)
		require.NoError(t, err)
		assert.Equal(t, 1, next.Repetitions)
		assert.Equal(t, 1, next.Interval)
		assert.InDelta(t, 2.36, next.EaseFactor, 1e-9)
	})
}

func TestService_PostponeReview(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	reviewed, err := svc.CalculateNextReview(svc.NewState("c1", now), domain.GradePerfect, now)
	require.NoError(t, err)

	t.Run("invalid days", func(t *testing.T) {
		_, err := svc.PostponeReview(reviewed, 0)
		assert.True(t, errors.Is(err, ErrInvalidDays))
	})

	t.Run("nil state", func(t *testing.T) {
		_, err := svc.PostponeReview(nil, 3)
		assert.True(t, errors.Is(err, ErrNilState))
	})

	t.Run("keeps interval invariant", func(t *testing.T) {
		postponed, err := svc.PostponeReview(reviewed, 3)
		require.NoError(t, err)
		assert.Equal(t, reviewed.Interval+3, postponed.Interval)
		assert.Equal(t, reviewed.NextReview.Add(3*24*time.Hour), postponed.NextReview)
		assert.Equal(
			t,
			postponed.LastReview.Add(time.Duration(postponed.Interval)*24*time.Hour),
			postponed.NextReview,
		)
		// Original untouched
		assert.Equal(t, 1, reviewed.Interval)
	})

	t.Run("never reviewed card", func(t *testing.T) {
		fresh := svc.NewState("c2", now)
		postponed, err := svc.PostponeReview(fresh, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, postponed.Interval)
		assert.Equal(t, now.Add(48*time.Hour), postponed.NextReview)
	})
}
