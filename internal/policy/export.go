package policy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"time"
)

// exported is the blob written by ExportConfig.
type exported struct {
	Preset         string         `json:"preset"`
	Customizations map[string]any `json:"customizations"`
	ExportedAt     time.Time      `json:"exportedAt"`
}

// ExportConfig serializes the active preset name, the overrides and the time
// of export. The format carries no version.
func (p *Policy) ExportConfig() ([]byte, error) {
	p.mu.RLock()
	blob := exported{
		Preset:         p.preset,
		Customizations: maps.Clone(p.overrides),
		ExportedAt:     p.now().UTC(),
	}
	p.mu.RUnlock()

	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return data, nil
}

// ImportConfig replaces the preset and overrides with those in data. A
// malformed payload, an unknown preset or overrides that do not validate are
// logged and reported with false; the previous configuration stays intact.
func (p *Policy) ImportConfig(data []byte) bool {
	if err := p.importConfig(data); err != nil {
		p.logger.Warn("policy import rejected", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (p *Policy) importConfig(data []byte) error {
	var blob exported
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("decode policy: %w", err)
	}
	if blob.Preset == "" {
		return fmt.Errorf("%w: missing preset", ErrUnknownPreset)
	}

	overrides := make(map[string]any, len(blob.Customizations))
	for k, v := range blob.Customizations {
		if !IsSetting(k) {
			return fmt.Errorf("%w: %q", ErrUnknownSetting, k)
		}
		overrides[k] = v
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkOverrides(blob.Preset, overrides); err != nil {
		return err
	}
	p.preset = blob.Preset
	p.overrides = overrides
	return nil
}
