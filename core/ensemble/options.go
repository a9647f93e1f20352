package ensemble

import "errors"

var (
	// ErrNoData is returned when a model is fit on an empty sample set.
	ErrNoData = errors.New("no training data")
	// ErrDimension is returned for rows whose width differs from the fitted
	// feature count.
	ErrDimension = errors.New("dimension mismatch")
	// ErrMalformedTree is returned by Validate for trees that cannot be
	// walked safely.
	ErrMalformedTree = errors.New("malformed tree")
)

// Options configures tree growth and ensemble size.
type Options struct {
	Trees           int     `json:"trees" yaml:"trees"`
	Seed            int64   `json:"seed" yaml:"seed"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split" yaml:"min_samples_split"`
	MaxFeatures     int     `json:"max_features" yaml:"max_features"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
}

// DefaultForestOptions mirrors the usual out-of-the-box forest settings:
// 100 fully grown trees, sqrt(p) features per split, seed 42.
func DefaultForestOptions() Options {
	return Options{Trees: 100, Seed: 42, MinSamplesSplit: 2}
}

// DefaultBoostingOptions mirrors the usual boosted classifier settings:
// 100 stages of depth-3 trees with learning rate 0.1, seed 42.
func DefaultBoostingOptions() Options {
	return Options{Trees: 100, Seed: 42, MaxDepth: 3, MinSamplesSplit: 2, LearningRate: 0.1}
}

func (o Options) withDefaults(def Options) Options {
	if o.Trees <= 0 {
		o.Trees = def.Trees
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.LearningRate <= 0 {
		o.LearningRate = def.LearningRate
	}
	return o
}

func checkData(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrNoData
	}
	if len(X) != len(y) {
		return 0, errors.Join(ErrDimension, errors.New("rows and targets differ in length"))
	}
	width := len(X[0])
	if width == 0 {
		return 0, errors.Join(ErrDimension, errors.New("rows have no features"))
	}
	for _, row := range X {
		if len(row) != width {
			return 0, errors.Join(ErrDimension, errors.New("ragged rows"))
		}
	}
	return width, nil
}
