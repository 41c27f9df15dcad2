package srs

import (
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Ease factor limits
	InitialEaseFactor float64
	MinEaseFactor     float64

	// Fixed intervals (days) for the first two successful reviews
	GraduatingInterval int
	EasyInterval       int
	SecondInterval     int

	// Growth multipliers applied from the third review on
	IntervalModifier float64
	EasyBonus        float64
	HardMultiplier   float64

	// Upper bound on any interval, in days
	MaximumInterval int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	InitialEaseFactor  float64
	MinEaseFactor      float64
	GraduatingInterval int
	EasyInterval       int
	SecondInterval     int
	IntervalModifier   float64
	EasyBonus          float64
	HardMultiplier     float64
	MaximumInterval    int
}

// NewDefaultParams creates a new Params instance with the classic SuperMemo-2 constants.
// With these values every multiplier is neutral, so the schedule is 1 day, 6 days,
// then interval * ease factor.
func NewDefaultParams() *Params {
	return &Params{
		InitialEaseFactor: domain.DefaultEaseFactor,
		MinEaseFactor:     domain.MinEaseFactor,

		GraduatingInterval: 1,
		EasyInterval:       1,
		SecondInterval:     6,

		IntervalModifier: 1.0,
		EasyBonus:        1.0,
		HardMultiplier:   1.0,

		MaximumInterval: 36500,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	// The floor can be raised but never lowered below the domain minimum.
	if config.MinEaseFactor > domain.MinEaseFactor {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if params.InitialEaseFactor < params.MinEaseFactor {
		params.InitialEaseFactor = params.MinEaseFactor
	}

	if config.GraduatingInterval > 0 {
		params.GraduatingInterval = config.GraduatingInterval
	}
	if config.EasyInterval > 0 {
		params.EasyInterval = config.EasyInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}

	if config.IntervalModifier > 0 {
		params.IntervalModifier = config.IntervalModifier
	}
	if config.EasyBonus > 0 {
		params.EasyBonus = config.EasyBonus
	}
	if config.HardMultiplier > 0 {
		params.HardMultiplier = config.HardMultiplier
	}

	if config.MaximumInterval > 0 {
		params.MaximumInterval = config.MaximumInterval
	}

	return params
}
