package configuration

import (
	"time"

	"github.com/markusressel/fancond/internal/curves"
)

// ControllerConfig holds the tunables of the control loop.
// They are part of the device set document and replaced as a whole on every reload.
type ControllerConfig struct {
	// Time interval between each fan speed update cycle.
	UpdateInterval time.Duration `json:"updateInterval" yaml:"updateInterval"`
	// Dynamic enables interpolation between the points of a fan curve
	Dynamic bool `json:"dynamic" yaml:"dynamic"`
	// SmoothingIntervals is the number of update cycles used to reach a new target speed
	SmoothingIntervals int `json:"smoothingIntervals" yaml:"smoothingIntervals"`
	// TopStickinessIntervals is the number of update cycles a speed decrease is held back
	TopStickinessIntervals int `json:"topStickinessIntervals" yaml:"topStickinessIntervals"`
	// TempAveragingIntervals is the number of sensor readings averaged into the temperature used for control
	TempAveragingIntervals int `json:"tempAveragingIntervals" yaml:"tempAveragingIntervals"`
	// LegacyInterpolation weighs interpolation with temp / (floor + ceil) like older versions did
	LegacyInterpolation bool `json:"legacyInterpolation,omitempty" yaml:"legacyInterpolation,omitempty"`
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		UpdateInterval:         500 * time.Millisecond,
		Dynamic:                true,
		SmoothingIntervals:     4,
		TopStickinessIntervals: 4,
		TempAveragingIntervals: 8,
	}
}

// Sanitized returns a copy where every value outside its valid range is replaced by its default
func (c ControllerConfig) Sanitized() ControllerConfig {
	defaults := DefaultControllerConfig()
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = defaults.UpdateInterval
	}
	if c.SmoothingIntervals < 1 {
		c.SmoothingIntervals = 1
	}
	if c.TopStickinessIntervals < 0 {
		c.TopStickinessIntervals = 0
	}
	if c.TempAveragingIntervals < 1 {
		c.TempAveragingIntervals = 1
	}
	return c
}

func (c ControllerConfig) CurveParams() curves.Params {
	return curves.Params{
		Dynamic:                c.Dynamic,
		LegacyInterpolation:    c.LegacyInterpolation,
		SmoothingIntervals:     c.SmoothingIntervals,
		TopStickinessIntervals: c.TopStickinessIntervals,
	}
}
