package policy

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
)

// Config is the full set of tunable scheduling parameters. JSON keys are the
// setting names accepted by Policy.UpdateSetting.
type Config struct {
	// LearningSteps are the in-session re-show delays in minutes.
	LearningSteps []float64 `json:"learningSteps" validate:"required,min=1,dive,gt=0"`

	GraduatingInterval int `json:"graduatingInterval" validate:"gte=1,lte=365"`
	EasyInterval       int `json:"easyInterval"       validate:"gte=1,lte=365"`

	// StartingEase is the ease of new cards in permille (2500 = 2.5).
	StartingEase int `json:"startingEase" validate:"gte=1300,lte=3000"`

	EasyBonus        float64 `json:"easyBonus"        validate:"gte=1,lte=3"`
	HardMultiplier   float64 `json:"hardMultiplier"   validate:"gt=0,lte=2"`
	IntervalModifier float64 `json:"intervalModifier" validate:"gte=0.1,lte=5"`
	MaximumInterval  int     `json:"maximumInterval"  validate:"gte=1,lte=36500"`

	// RequestRetention is the target share of reviews answered correctly.
	RequestRetention float64 `json:"requestRetention" validate:"gte=0.5,lte=1"`

	NewCardsPerDay       int `json:"newCardsPerDay"       validate:"gte=0"`
	MaximumReviewsPerDay int `json:"maximumReviewsPerDay" validate:"gte=0"`
}

// Params converts the configuration into algorithm parameters.
func (c Config) Params() *srs.Params {
	return srs.NewParams(srs.ParamsConfig{
		InitialEaseFactor:  float64(c.StartingEase) / 1000,
		GraduatingInterval: c.GraduatingInterval,
		EasyInterval:       c.EasyInterval,
		IntervalModifier:   c.IntervalModifier,
		EasyBonus:          c.EasyBonus,
		HardMultiplier:     c.HardMultiplier,
		MaximumInterval:    c.MaximumInterval,
	})
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	c.LearningSteps = append([]float64(nil), c.LearningSteps...)
	return c
}

// settingKeys lists every JSON key of Config.
var settingKeys = func() map[string]struct{} {
	keys := make(map[string]struct{})
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}()

// IsSetting reports whether key names a Config field.
func IsSetting(key string) bool {
	_, ok := settingKeys[key]
	return ok
}

// merge layers overrides on top of base. Values are matched by JSON key, so an
// override whose type does not fit the field is reported as an error.
func merge(base Config, overrides map[string]any) (Config, error) {
	if len(overrides) == 0 {
		return base.clone(), nil
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return Config{}, fmt.Errorf("encode base config: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Config{}, fmt.Errorf("decode base config: %w", err)
	}

	for k, v := range overrides {
		if !IsSetting(k) {
			return Config{}, fmt.Errorf("%w: %q", ErrUnknownSetting, k)
		}
		fields[k] = v
	}

	raw, err = json.Marshal(fields)
	if err != nil {
		return Config{}, fmt.Errorf("encode merged config: %w", err)
	}
	var merged Config
	if err := json.Unmarshal(raw, &merged); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return merged, nil
}

// normalizeValue round-trips v through JSON so stored overrides always hold
// the same dynamic types regardless of where they came from.
func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return out, nil
}
