package config

import (
	"fmt"

	"github.com/kilianp07/marinecast/core/forecast"
)

// ForecastConfig holds the defaults of forecast sweeps.
type ForecastConfig struct {
	// Workers bounds concurrent grid points; 0 uses every CPU.
	Workers    int    `json:"workers"`
	Resolution int    `json:"resolution"`
	Hours      int    `json:"hours"`
	Mode       string `json:"mode"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.Resolution <= 0 {
		c.Resolution = 10
	}
	if c.Hours <= 0 {
		c.Hours = forecast.DefaultHours
	}
	if c.Mode == "" {
		c.Mode = string(forecast.ModeHybrid)
	}
}

// Validate checks the ranges of the sweep parameters.
func (c ForecastConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	switch forecast.Mode(c.Mode) {
	case forecast.ModeHybrid, forecast.ModeSymbolic:
	default:
		return fmt.Errorf("unknown mode %s", c.Mode)
	}
	return nil
}
