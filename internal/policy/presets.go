package policy

import "sort"

// DefaultPreset is active when nothing else has been chosen. Its values
// reproduce the plain SuperMemo-2 schedule.
const DefaultPreset = "standard"

// Preset is a named, immutable bundle of parameters.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Config      Config `json:"config"`
}

var presets = map[string]Preset{
	"conservative": {
		Name:        "conservative",
		Description: "Short intervals and high retention for material that must not be forgotten",
		Config: Config{
			LearningSteps:        []float64{1, 10, 60},
			GraduatingInterval:   1,
			EasyInterval:         2,
			StartingEase:         2300,
			EasyBonus:            1.1,
			HardMultiplier:       0.8,
			IntervalModifier:     0.8,
			MaximumInterval:      180,
			RequestRetention:     0.95,
			NewCardsPerDay:       10,
			MaximumReviewsPerDay: 150,
		},
	},
	"standard": {
		Name:        "standard",
		Description: "Classic SuperMemo-2 schedule",
		Config: Config{
			LearningSteps:        []float64{1, 10},
			GraduatingInterval:   1,
			EasyInterval:         1,
			StartingEase:         2500,
			EasyBonus:            1.0,
			HardMultiplier:       1.0,
			IntervalModifier:     1.0,
			MaximumInterval:      36500,
			RequestRetention:     0.9,
			NewCardsPerDay:       20,
			MaximumReviewsPerDay: 200,
		},
	},
	"aggressive": {
		Name:        "aggressive",
		Description: "Fast-growing intervals for a lighter daily load",
		Config: Config{
			LearningSteps:        []float64{10},
			GraduatingInterval:   2,
			EasyInterval:         4,
			StartingEase:         2700,
			EasyBonus:            1.4,
			HardMultiplier:       1.0,
			IntervalModifier:     1.3,
			MaximumInterval:      36500,
			RequestRetention:     0.8,
			NewCardsPerDay:       40,
			MaximumReviewsPerDay: 400,
		},
	},
	"speed": {
		Name:        "speed",
		Description: "Many new cards with a single learning step",
		Config: Config{
			LearningSteps:        []float64{1},
			GraduatingInterval:   1,
			EasyInterval:         3,
			StartingEase:         2500,
			EasyBonus:            1.3,
			HardMultiplier:       1.0,
			IntervalModifier:     1.2,
			MaximumInterval:      365,
			RequestRetention:     0.85,
			NewCardsPerDay:       50,
			MaximumReviewsPerDay: 500,
		},
	},
	"medical": {
		Name:        "medical",
		Description: "Dense learning steps and capped intervals for large fact bases",
		Config: Config{
			LearningSteps:        []float64{1, 10, 60, 360},
			GraduatingInterval:   1,
			EasyInterval:         2,
			StartingEase:         2300,
			EasyBonus:            1.15,
			HardMultiplier:       0.9,
			IntervalModifier:     0.85,
			MaximumInterval:      365,
			RequestRetention:     0.95,
			NewCardsPerDay:       15,
			MaximumReviewsPerDay: 300,
		},
	},
	"language": {
		Name:        "language",
		Description: "Vocabulary study with a next-day learning step",
		Config: Config{
			LearningSteps:        []float64{1, 10, 1440},
			GraduatingInterval:   1,
			EasyInterval:         4,
			StartingEase:         2500,
			EasyBonus:            1.3,
			HardMultiplier:       1.0,
			IntervalModifier:     1.0,
			MaximumInterval:      36500,
			RequestRetention:     0.9,
			NewCardsPerDay:       25,
			MaximumReviewsPerDay: 250,
		},
	},
	"exam": {
		Name:        "exam",
		Description: "Short horizon cramming before a fixed date",
		Config: Config{
			LearningSteps:        []float64{1, 5, 20},
			GraduatingInterval:   1,
			EasyInterval:         2,
			StartingEase:         2500,
			EasyBonus:            1.2,
			HardMultiplier:       0.9,
			IntervalModifier:     0.7,
			MaximumInterval:      60,
			RequestRetention:     0.95,
			NewCardsPerDay:       30,
			MaximumReviewsPerDay: 400,
		},
	},
}

// LookupPreset returns a copy of the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, false
	}
	p.Config = p.Config.clone()
	return p, true
}

// PresetNames returns the names of all presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns copies of all presets in alphabetical order.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, name := range PresetNames() {
		p, _ := LookupPreset(name)
		out = append(out, p)
	}
	return out
}
