package config

import (
	"fmt"

	"github.com/kilianp07/marinecast/core/ensemble"
	"github.com/kilianp07/marinecast/core/training"
)

// DatasetConfig selects where labelled samples are read from.
type DatasetConfig struct {
	// Backend is "csv" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// TrainingConfig holds the ensemble hyper-parameters.
type TrainingConfig struct {
	Dataset         DatasetConfig `json:"dataset"`
	Trees           int           `json:"trees"`
	Seed            int64         `json:"seed"`
	MaxDepth        int           `json:"max_depth"`
	LearningRate    float64       `json:"learning_rate"`
	SkipSingleClass bool          `json:"skip_single_class"`
	Workers         int           `json:"workers"`
}

// SetDefaults applies sane defaults.
func (c *TrainingConfig) SetDefaults() {
	if c.Dataset.Backend == "" {
		c.Dataset.Backend = "csv"
	}
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 3
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.1
	}
}

// Validate checks the ranges of the hyper-parameters.
func (c TrainingConfig) Validate() error {
	if c.Dataset.Backend != "csv" && c.Dataset.Backend != "sqlite" {
		return fmt.Errorf("unknown dataset backend %s", c.Dataset.Backend)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be within (0, 1], got %g", c.LearningRate)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	return nil
}

// Options converts the section into trainer options. MaxDepth bounds the
// boosted trees; forest trees grow until their leaves are pure.
func (c TrainingConfig) Options() training.Options {
	forest := ensemble.DefaultForestOptions()
	forest.Trees, forest.Seed = c.Trees, c.Seed
	booster := ensemble.DefaultBoostingOptions()
	booster.Trees, booster.Seed = c.Trees, c.Seed
	booster.MaxDepth, booster.LearningRate = c.MaxDepth, c.LearningRate
	return training.Options{
		Forest:          forest,
		Booster:         booster,
		SkipSingleClass: c.SkipSingleClass,
		Workers:         c.Workers,
	}
}
