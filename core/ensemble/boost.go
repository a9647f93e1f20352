package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// priorEpsilon bounds the prior probability away from 0 and 1 so that
// single-class targets still yield a finite initial log-odds.
const priorEpsilon = 1e-6

// GradientBoosting is a binary classifier built from regression trees fit to
// the log-loss gradient. Leaves hold Newton step values.
type GradientBoosting struct {
	Init         float64 `json:"init"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
	NumFeatures  int     `json:"num_features"`
}

// FitGradientBoosting fits opts.Trees boosting stages to 0/1 labels y.
func FitGradientBoosting(X [][]float64, y []float64, opts Options) (*GradientBoosting, error) {
	width, err := checkData(X, y)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults(DefaultBoostingOptions())

	prior := floats.Sum(y) / float64(len(y))
	prior = math.Min(math.Max(prior, priorEpsilon), 1-priorEpsilon)
	g := &GradientBoosting{
		Init:         math.Log(prior / (1 - prior)),
		LearningRate: opts.LearningRate,
		Trees:        make([]Tree, 0, opts.Trees),
		NumFeatures:  width,
	}

	raw := make([]float64, len(X))
	prob := make([]float64, len(X))
	residual := make([]float64, len(X))
	for i := range raw {
		raw[i] = g.Init
	}
	all := make([]int, len(X))
	for i := range all {
		all[i] = i
	}

	b := &treeBuilder{
		X:           X,
		y:           residual,
		maxDepth:    opts.MaxDepth,
		minSplit:    opts.MinSamplesSplit,
		maxFeatures: opts.MaxFeatures,
		rng:         rand.New(rand.NewSource(opts.Seed)),
		leafValue: func(idx []int) float64 {
			var num, den float64
			for _, i := range idx {
				num += residual[i]
				den += prob[i] * (1 - prob[i])
			}
			if den < 1e-150 {
				return 0
			}
			return num / den
		},
	}
	for stage := 0; stage < opts.Trees; stage++ {
		for i := range raw {
			prob[i] = sigmoid(raw[i])
			residual[i] = y[i] - prob[i]
		}
		tree := b.build(all)
		for i, row := range X {
			raw[i] += g.LearningRate * tree.Predict(row)
		}
		g.Trees = append(g.Trees, tree)
	}
	return g, nil
}

// DecisionFunction returns the raw log-odds for row.
func (g *GradientBoosting) DecisionFunction(row []float64) (float64, error) {
	if len(row) != g.NumFeatures {
		return 0, fmt.Errorf("%w: booster expects %d features, got %d", ErrDimension, g.NumFeatures, len(row))
	}
	f := g.Init
	for i := range g.Trees {
		f += g.LearningRate * g.Trees[i].Predict(row)
	}
	return f, nil
}

// PredictProba returns the positive-class probability for row.
func (g *GradientBoosting) PredictProba(row []float64) (float64, error) {
	f, err := g.DecisionFunction(row)
	if err != nil {
		return 0, err
	}
	return sigmoid(f), nil
}

// Validate checks every stage against the fitted feature count.
func (g *GradientBoosting) Validate() error {
	return validateTrees("booster", g.Trees, g.NumFeatures)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
