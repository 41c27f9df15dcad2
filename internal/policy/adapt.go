package policy

import (
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// AdaptiveMode selects what happens to adjustments computed from performance.
type AdaptiveMode string

// Adaptive modes.
const (
	// AdaptiveOff never computes adjustments.
	AdaptiveOff AdaptiveMode = "off"
	// AdaptiveAdvisory computes adjustments and reports them without applying.
	AdaptiveAdvisory AdaptiveMode = "advisory"
	// AdaptiveAutomatic applies adjustments as user customizations.
	AdaptiveAutomatic AdaptiveMode = "automatic"
)

// ParseAdaptiveMode converts a mode name. An empty string means advisory.
func ParseAdaptiveMode(s string) (AdaptiveMode, error) {
	switch m := AdaptiveMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return AdaptiveAdvisory, nil
	case AdaptiveOff, AdaptiveAdvisory, AdaptiveAutomatic:
		return m, nil
	default:
		return "", fmt.Errorf("unknown adaptive mode %q", s)
	}
}

// Thresholds tune the adaptive procedure. Zero values select the defaults.
type Thresholds struct {
	HighSuccessRate    float64 // raise starting ease above this (0.9)
	LowSuccessRate     float64 // lower starting ease below this (0.6)
	RetentionTolerance float64 // ignore retention gaps up to this (0.02)
	EaseStep           int     // starting ease change in permille (100)
	WorkloadStep       float64 // interval modifier reduction on overload (0.05)
}

// Bounds applied to adaptive output.
const (
	minAdaptiveModifier = 0.5
	maxAdaptiveModifier = 2.0
	minStartingEase     = 1300
	maxStartingEase     = 3000
)

func (t Thresholds) withDefaults() Thresholds {
	if t.HighSuccessRate == 0 {
		t.HighSuccessRate = 0.9
	}
	if t.LowSuccessRate == 0 {
		t.LowSuccessRate = 0.6
	}
	if t.RetentionTolerance == 0 {
		t.RetentionTolerance = 0.02
	}
	if t.EaseStep == 0 {
		t.EaseStep = 100
	}
	if t.WorkloadStep == 0 {
		t.WorkloadStep = 0.05
	}
	return t
}

// Adapt computes parameter adjustments for cfg from recent performance. It is
// a pure function: the returned map holds only the changed setting keys and
// their new values, or nil when nothing needs to change.
//
//   - intervalModifier moves proportionally to the gap between actual and
//     requested retention, bounded to [0.5, 2.0]. A zero retention rate means
//     no mature reviews were seen and is ignored;
//   - startingEase rises above the high success threshold and falls below the
//     low one, bounded to [1300, 3000];
//   - intervalModifier additionally shrinks by one workload step when the
//     average daily reviews exceed maximumReviewsPerDay.
func Adapt(cfg Config, stats domain.PerformanceStats, th Thresholds) map[string]any {
	th = th.withDefaults()
	adjustments := make(map[string]any)

	modifier, nudged := cfg.IntervalModifier, false
	gap := stats.RetentionRate - cfg.RequestRetention
	if stats.RetentionRate > 0 && math.Abs(gap) > th.RetentionTolerance {
		modifier, nudged = round2(modifier*(1+gap)), true
	}
	if cfg.MaximumReviewsPerDay > 0 && stats.AverageDailyReviews > float64(cfg.MaximumReviewsPerDay) {
		modifier, nudged = round2(modifier-th.WorkloadStep), true
	}
	if nudged {
		modifier = clampFloat(modifier, minAdaptiveModifier, maxAdaptiveModifier)
		if modifier != cfg.IntervalModifier {
			adjustments["intervalModifier"] = modifier
		}
	}

	ease := cfg.StartingEase
	switch {
	case stats.AverageSuccessRate > th.HighSuccessRate:
		ease = min(maxStartingEase, ease+th.EaseStep)
	case stats.AverageSuccessRate < th.LowSuccessRate:
		ease = max(minStartingEase, ease-th.EaseStep)
	}
	if ease != cfg.StartingEase {
		adjustments["startingEase"] = ease
	}

	if len(adjustments) == 0 {
		return nil
	}
	return adjustments
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
