package main

import (
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/TrevorS/cyclops/modelseg"
	"github.com/TrevorS/cyclops/stereo"
)

// stereoConfig holds every tunable of the stereo command. The JSON file
// uses the mapstructure keys, with the belief propagation parameters at the
// top level.
type stereoConfig struct {
	stereo.HEBPConfig `mapstructure:",squash"`

	// LuvMult scales Luv colours before they are compared.
	LuvMult float64 `mapstructure:"luv_mult"`
	// LuvCap caps the matching cost of a single pixel.
	LuvCap float64 `mapstructure:"luv_cap"`
	// Bound matches the colour range around each pixel instead of its colour.
	Bound bool `mapstructure:"bound"`
	// RegionRadius aggregates matching costs over a window when > 0.
	RegionRadius int `mapstructure:"region_radius"`
	// CornerWeight is the relative weight of the window corners.
	CornerWeight float64 `mapstructure:"corner_weight"`
}

func defaultStereoConfig() stereoConfig {
	return stereoConfig{
		HEBPConfig:   stereo.DefaultHEBPConfig(),
		LuvMult:      0.1,
		LuvCap:       3,
		CornerWeight: 0.25,
	}
}

func (c *stereoConfig) validate() error {
	if c.LuvMult <= 0 {
		return errors.Errorf("luv_mult must be > 0, got %v", c.LuvMult)
	}
	if c.RegionRadius < 0 {
		return errors.Errorf("region_radius must be >= 0, got %d", c.RegionRadius)
	}
	if c.RegionRadius > 0 && (c.CornerWeight <= 0 || c.CornerWeight > 1) {
		return errors.Errorf("corner_weight must be in (0, 1], got %v", c.CornerWeight)
	}
	return nil
}

// segmentConfig holds every tunable of the segment command.
type segmentConfig struct {
	modelseg.Config `mapstructure:",squash"`

	// Colours is the number of palette entries, one model each.
	Colours int `mapstructure:"colours"`
	// Samples bounds the number of pixels the palette is chosen from.
	Samples int `mapstructure:"samples"`
	// ColourMult converts a Luv distance into a model cost.
	ColourMult float64 `mapstructure:"colour_mult"`
	// Fallback is the search budget for pixels with no palette entry
	// within the cost cap.
	Fallback int `mapstructure:"fallback"`
}

func defaultSegmentConfig() segmentConfig {
	cfg := modelseg.DefaultConfig()
	cfg.DiffCost = 0.5
	cfg.CostCap = 4
	return segmentConfig{
		Config:     cfg,
		Colours:    8,
		Samples:    4096,
		ColourMult: 0.2,
		Fallback:   8,
	}
}

func (c *segmentConfig) validate() error {
	if c.Colours < 1 {
		return errors.Errorf("colours must be >= 1, got %d", c.Colours)
	}
	if c.Samples < c.Colours {
		return errors.Errorf("samples must be >= colours (%d), got %d", c.Colours, c.Samples)
	}
	if !(c.CostCap > 0) {
		return errors.Errorf("cost_cap must be > 0, got %v", c.CostCap)
	}
	if c.ColourMult <= 0 {
		return errors.Errorf("colour_mult must be > 0, got %v", c.ColourMult)
	}
	if c.Fallback < 0 {
		return errors.Errorf("fallback must be >= 0, got %d", c.Fallback)
	}
	return nil
}

// loadConfig decodes the JSON object in path over out. An empty path
// leaves out untouched.
func loadConfig(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "parsing config %s", path)
	}
	return errors.Wrapf(decodeConfig(raw, out), "config %s", path)
}

// decodeConfig decodes raw over out. Values are weakly typed, so "8" is
// accepted for an int, and unknown keys are an error.
func decodeConfig(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "building config decoder")
	}
	return dec.Decode(raw)
}
