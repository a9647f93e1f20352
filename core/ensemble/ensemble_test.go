package ensemble

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns points labelled 1 when x0 + x1 > 1.
func separable(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64(), rng.NormFloat64()}
		if X[i][0]+X[i][1] > 1 {
			y[i] = 1
		}
	}
	return X, y
}

func accuracy(t *testing.T, predict func([]float64) (float64, error), X [][]float64, y []float64) float64 {
	t.Helper()
	correct := 0
	for i, row := range X {
		p, err := predict(row)
		require.NoError(t, err)
		require.True(t, p >= 0 && p <= 1, "probability %v out of range", p)
		if (p >= 0.5) == (y[i] == 1) {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}}
	s, err := FitStandardScaler(X)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")

	out, err := s.Transform(X)
	require.NoError(t, err)
	var sum, sq float64
	for _, r := range out {
		sum += r[0]
		sq += r[0] * r[0]
		assert.Zero(t, r[1])
	}
	assert.InDelta(t, 0, sum/4, 1e-12)
	assert.InDelta(t, 1, sq/4, 1e-12)

	_, err = s.TransformRow([]float64{1})
	assert.ErrorIs(t, err, ErrDimension)
	_, err = FitStandardScaler(nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = FitStandardScaler([][]float64{{1, 2}, {1}})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestRandomForestLearnsSeparableData(t *testing.T) {
	X, y := separable(300, 1)
	f, err := FitRandomForest(X, y, Options{Trees: 30, Seed: 42})
	require.NoError(t, err)
	assert.Len(t, f.Trees, 30)

	Xt, yt := separable(200, 2)
	assert.Greater(t, accuracy(t, f.PredictProba, Xt, yt), 0.8)
}

func TestRandomForestDeterministic(t *testing.T) {
	X, y := separable(100, 3)
	a, err := FitRandomForest(X, y, Options{Trees: 10, Seed: 42})
	require.NoError(t, err)
	b, err := FitRandomForest(X, y, Options{Trees: 10, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGradientBoostingLearnsSeparableData(t *testing.T) {
	X, y := separable(300, 4)
	g, err := FitGradientBoosting(X, y, DefaultBoostingOptions())
	require.NoError(t, err)
	assert.Len(t, g.Trees, 100)
	for i := range g.Trees {
		assert.LessOrEqual(t, g.Trees[i].Depth(), 3)
	}

	Xt, yt := separable(200, 5)
	assert.Greater(t, accuracy(t, g.PredictProba, Xt, yt), 0.8)
}

func TestSingleClassTargets(t *testing.T) {
	X, _ := separable(50, 6)
	ones := make([]float64, len(X))
	for i := range ones {
		ones[i] = 1
	}
	zeros := make([]float64, len(X))

	f1, err := FitRandomForest(X, ones, Options{Trees: 5})
	require.NoError(t, err)
	g1, err := FitGradientBoosting(X, ones, Options{Trees: 5})
	require.NoError(t, err)
	g0, err := FitGradientBoosting(X, zeros, Options{Trees: 5})
	require.NoError(t, err)

	p, err := f1.PredictProba(X[0])
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
	hi, err := g1.PredictProba(X[0])
	require.NoError(t, err)
	lo, err := g0.PredictProba(X[0])
	require.NoError(t, err)
	assert.Greater(t, hi, 0.99)
	assert.Less(t, lo, 0.01)
}

func TestDimensionChecks(t *testing.T) {
	X, y := separable(20, 7)
	f, err := FitRandomForest(X, y, Options{Trees: 2})
	require.NoError(t, err)
	g, err := FitGradientBoosting(X, y, Options{Trees: 2})
	require.NoError(t, err)

	_, err = f.PredictProba([]float64{1})
	assert.ErrorIs(t, err, ErrDimension)
	_, err = g.PredictProba([]float64{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrDimension)

	_, err = FitRandomForest(X, y[:3], Options{})
	assert.ErrorIs(t, err, ErrDimension)
	_, err = FitGradientBoosting(nil, nil, Options{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMaxDepthRespected(t *testing.T) {
	X, y := separable(200, 8)
	f, err := FitRandomForest(X, y, Options{Trees: 5, MaxDepth: 2})
	require.NoError(t, err)
	for i := range f.Trees {
		assert.LessOrEqual(t, f.Trees[i].Depth(), 2)
	}
}

func TestModelsSurviveJSON(t *testing.T) {
	X, y := separable(80, 9)
	f, err := FitRandomForest(X, y, Options{Trees: 5})
	require.NoError(t, err)
	g, err := FitGradientBoosting(X, y, Options{Trees: 5})
	require.NoError(t, err)

	var f2 RandomForest
	var g2 GradientBoosting
	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &f2))
	data, err = json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &g2))

	for _, row := range X[:10] {
		a, _ := f.PredictProba(row)
		b, _ := f2.PredictProba(row)
		assert.InDelta(t, a, b, 1e-12)
		a, _ = g.PredictProba(row)
		b, _ = g2.PredictProba(row)
		assert.InDelta(t, a, b, 1e-12)
	}
}

func TestTreeValidate(t *testing.T) {
	leaf := Node{Left: -1, Right: -1}
	cases := []struct {
		name  string
		nodes []Node
		ok    bool
	}{
		{"single leaf", []Node{leaf}, true},
		{"split", []Node{{Feature: 2, Left: 1, Right: 2}, leaf, leaf}, true},
		{"empty", nil, false},
		{"feature too large", []Node{{Feature: 3, Left: 1, Right: 2}, leaf, leaf}, false},
		{"negative feature", []Node{{Feature: -1, Left: 1, Right: 2}, leaf, leaf}, false},
		{"child out of range", []Node{{Left: 1, Right: 5}, leaf, leaf}, false},
		{"self loop", []Node{{Left: 0, Right: 1}, leaf}, false},
		{"back edge", []Node{{Left: 1, Right: 2}, {Left: 0, Right: 2}, leaf}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree := Tree{Nodes: tc.nodes}
			err := tree.Validate(3)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformedTree)
			}
		})
	}
}

func TestFittedEnsemblesValidate(t *testing.T) {
	X, y := separable(60, 10)
	f, err := FitRandomForest(X, y, Options{Trees: 4})
	require.NoError(t, err)
	g, err := FitGradientBoosting(X, y, Options{Trees: 4})
	require.NoError(t, err)
	assert.NoError(t, f.Validate())
	assert.NoError(t, g.Validate())

	f.NumFeatures = 0
	assert.ErrorIs(t, f.Validate(), ErrMalformedTree)
	g.Trees[1].Nodes = nil
	assert.ErrorIs(t, g.Validate(), ErrMalformedTree)
}
