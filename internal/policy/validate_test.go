package policy_test

import (
	"testing"

	"github.com/phrazzld/scry-scheduler/internal/policy"
	"github.com/stretchr/testify/assert"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	valid := func() policy.Config {
		p, _ := policy.LookupPreset(policy.DefaultPreset)
		return p.Config
	}

	tests := []struct {
		name   string
		mutate func(*policy.Config)
		want   []string
	}{
		{
			name:   "valid",
			mutate: func(*policy.Config) {},
		},
		{
			name:   "starting ease too low",
			mutate: func(c *policy.Config) { c.StartingEase = 1299 },
			want:   []string{"startingEase must be at least 1300"},
		},
		{
			name:   "starting ease too high",
			mutate: func(c *policy.Config) { c.StartingEase = 3001 },
			want:   []string{"startingEase must be at most 3000"},
		},
		{
			name:   "interval modifier bounds",
			mutate: func(c *policy.Config) { c.IntervalModifier = 5.5 },
			want:   []string{"intervalModifier must be at most 5"},
		},
		{
			name:   "retention bounds",
			mutate: func(c *policy.Config) { c.RequestRetention = 0.4 },
			want:   []string{"requestRetention must be at least 0.5"},
		},
		{
			name:   "nil learning steps",
			mutate: func(c *policy.Config) { c.LearningSteps = nil },
			want:   []string{"learningSteps must not be empty"},
		},
		{
			name:   "empty learning steps",
			mutate: func(c *policy.Config) { c.LearningSteps = []float64{} },
			want:   []string{"learningSteps must not be empty"},
		},
		{
			name:   "non-positive step",
			mutate: func(c *policy.Config) { c.LearningSteps = []float64{1, 0} },
			want:   []string{"learningSteps[1] must be greater than 0"},
		},
		{
			name: "multiple violations",
			mutate: func(c *policy.Config) {
				c.StartingEase = 0
				c.IntervalModifier = 0
			},
			want: []string{
				"startingEase must be at least 1300",
				"intervalModifier must be at least 0.1",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(&cfg)
			assert.Equal(t, tc.want, policy.ValidateConfig(cfg))
		})
	}
}

func TestValidateConfigZeroValueDoesNotPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		assert.NotEmpty(t, policy.ValidateConfig(policy.Config{}))
	})
}
