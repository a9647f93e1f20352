package ensemble

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of classification trees. Each leaf stores
// the fraction of positive samples that reached it.
type RandomForest struct {
	Trees       []Tree `json:"trees"`
	NumFeatures int    `json:"num_features"`
}

// FitRandomForest grows opts.Trees trees on bootstrap samples of X. y holds
// 0/1 class labels. Results are reproducible for a given seed.
func FitRandomForest(X [][]float64, y []float64, opts Options) (*RandomForest, error) {
	width, err := checkData(X, y)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults(DefaultForestOptions())
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(width)))))
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	b := &treeBuilder{
		X:           X,
		y:           y,
		maxDepth:    opts.MaxDepth,
		minSplit:    opts.MinSamplesSplit,
		maxFeatures: maxFeatures,
		rng:         rng,
		leafValue:   func(idx []int) float64 { return meanOf(y, idx) },
	}
	f := &RandomForest{Trees: make([]Tree, 0, opts.Trees), NumFeatures: width}
	sample := make([]int, len(X))
	for t := 0; t < opts.Trees; t++ {
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, b.build(sample))
	}
	return f, nil
}

// PredictProba returns the mean positive-class probability across trees.
func (f *RandomForest) PredictProba(row []float64) (float64, error) {
	if len(row) != f.NumFeatures {
		return 0, fmt.Errorf("%w: forest expects %d features, got %d", ErrDimension, f.NumFeatures, len(row))
	}
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("%w: forest has no trees", ErrNoData)
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(row)
	}
	return sum / float64(len(f.Trees)), nil
}

// Validate checks every tree against the fitted feature count.
func (f *RandomForest) Validate() error {
	return validateTrees("forest", f.Trees, f.NumFeatures)
}
