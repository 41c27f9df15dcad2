package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
)

// Settings configures a new Policy.
type Settings struct {
	// Preset is the initially active preset. Empty selects DefaultPreset.
	Preset string
	// Mode controls what adaptive adjustments do.
	Mode AdaptiveMode
	// Thresholds tune the adaptive procedure.
	Thresholds Thresholds
}

// Option customizes a Policy.
type Option func(*Policy)

// WithClock overrides the time source used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// Policy holds the active preset and the user's sparse overrides. The
// effective configuration is the preset with the overrides laid over it.
// A Policy is safe for concurrent use.
type Policy struct {
	mu         sync.RWMutex
	preset     string
	overrides  map[string]any
	mode       AdaptiveMode
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// NewPolicy creates a Policy. It returns an error for an unknown preset or
// adaptive mode.
func NewPolicy(settings Settings, logger *slog.Logger, opts ...Option) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := settings.Preset
	if name == "" {
		name = DefaultPreset
	}
	if _, ok := LookupPreset(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	mode, err := ParseAdaptiveMode(string(settings.Mode))
	if err != nil {
		return nil, err
	}

	p := &Policy{
		preset:     name,
		overrides:  make(map[string]any),
		mode:       mode,
		thresholds: settings.Thresholds.withDefaults(),
		logger:     logger.With(slog.String("component", "scheduling_policy")),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Preset returns the name of the active preset.
func (p *Policy) Preset() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.preset
}

// Mode returns the adaptive mode.
func (p *Policy) Mode() AdaptiveMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Customizations returns a copy of the user's overrides.
func (p *Policy) Customizations() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.overrides)
}

// ApplyPreset switches the active preset. It returns false and leaves the
// policy untouched when the name is unknown. Overrides survive the switch.
func (p *Policy) ApplyPreset(name string) bool {
	if _, ok := LookupPreset(name); !ok {
		p.logger.Debug("ignoring unknown preset", slog.String("preset", name))
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.preset = name
	p.logger.Debug("preset applied", slog.String("preset", name))
	return true
}

// GetConfig returns the effective configuration.
func (p *Policy) GetConfig() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.effective()
}

// effective must be called with p.mu held.
func (p *Policy) effective() Config {
	preset, _ := LookupPreset(p.preset)
	cfg, err := merge(preset.Config, p.overrides)
	if err != nil {
		// Stored overrides are checked on the way in.
		p.logger.Error("stored overrides are invalid, using preset values",
			slog.String("preset", p.preset),
			slog.String("error", err.Error()))
		return preset.Config.clone()
	}
	return cfg
}

// Params implements the scheduler's ParamsProvider.
func (p *Policy) Params() *srs.Params {
	return p.GetConfig().Params()
}

// UpdateSetting records a single override. Unknown keys, values of the wrong
// type and values that make the effective configuration invalid are rejected
// and leave the policy unchanged.
func (p *Policy) UpdateSetting(key string, value any) error {
	return p.ApplyAdjustments(map[string]any{key: value})
}

// ApplyAdjustments records several overrides at once. Either all of them are
// applied or none is.
func (p *Policy) ApplyAdjustments(adjustments map[string]any) error {
	if len(adjustments) == 0 {
		return nil
	}

	normalized := make(map[string]any, len(adjustments))
	for k, v := range adjustments {
		if !IsSetting(k) {
			return fmt.Errorf("%w: %q", ErrUnknownSetting, k)
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return fmt.Errorf("setting %q: %w", k, err)
		}
		normalized[k] = nv
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := maps.Clone(p.overrides)
	maps.Copy(next, normalized)
	if err := p.checkOverrides(p.preset, next); err != nil {
		return err
	}

	p.overrides = next
	p.logger.Debug("settings updated", slog.Any("settings", normalized))
	return nil
}

// checkOverrides reports whether overrides yield a valid configuration on top
// of the named preset.
func (p *Policy) checkOverrides(presetName string, overrides map[string]any) error {
	preset, ok := LookupPreset(presetName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, presetName)
	}
	cfg, err := merge(preset.Config, overrides)
	if err != nil {
		return err
	}
	if violations := ValidateConfig(cfg); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ResetCustomizations drops every override so the active preset applies as is.
func (p *Policy) ResetCustomizations() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides = make(map[string]any)
}

// AdaptConfigurationBasedOnPerformance computes adjustments for the current
// effective configuration. It does not change the policy; nil means no
// adjustment is warranted or adaptation is off.
func (p *Policy) AdaptConfigurationBasedOnPerformance(stats domain.PerformanceStats) map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.mode == AdaptiveOff {
		return nil
	}
	return Adapt(p.effective(), stats, p.thresholds)
}

// Adapt computes adjustments and, in automatic mode, applies them. It returns
// the adjustments and whether they were applied.
func (p *Policy) Adapt(stats domain.PerformanceStats) (map[string]any, bool, error) {
	adjustments := p.AdaptConfigurationBasedOnPerformance(stats)
	if adjustments == nil {
		return nil, false, nil
	}
	if p.Mode() != AdaptiveAutomatic {
		return adjustments, false, nil
	}
	if err := p.ApplyAdjustments(adjustments); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			p.logger.Warn("adaptive adjustments rejected",
				slog.Any("adjustments", adjustments),
				slog.Any("violations", verr.Violations))
		}
		return adjustments, false, err
	}
	return adjustments, true, nil
}
