package prediction

import (
	"sync/atomic"

	"github.com/kilianp07/marinecast/core/model"
)

// MockEngine returns deterministic probabilities. When Func is set it is
// used to compute the probability of each behaviour from the vector,
// otherwise Probabilities is returned as is.
type MockEngine struct {
	Probabilities map[string]float64
	Func          func(behavior string, fv model.FeatureVector) float64
	Err           error

	calls atomic.Int64
}

// Calls returns the number of prediction calls served.
func (m *MockEngine) Calls() int64 { return m.calls.Load() }

func (m *MockEngine) probability(b string, fv model.FeatureVector) float64 {
	if m.Func != nil {
		return m.Func(b, fv)
	}
	return m.Probabilities[b]
}

// PredictSymbolic returns the configured probabilities tagged as symbolic.
func (m *MockEngine) PredictSymbolic(fv model.FeatureVector) (map[string]model.SymbolicPrediction, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]model.SymbolicPrediction, len(m.Probabilities))
	for b := range m.Probabilities {
		p := m.probability(b, fv)
		out[b] = model.SymbolicPrediction{Probability: p, EquationType: model.EquationTypeSindy}
	}
	return out, nil
}

// PredictHybrid returns the configured probabilities tagged as hybrid.
func (m *MockEngine) PredictHybrid(fv model.FeatureVector) (map[string]model.HybridPrediction, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]model.HybridPrediction, len(m.Probabilities))
	for b := range m.Probabilities {
		p := m.probability(b, fv)
		out[b] = model.HybridPrediction{Probability: p, MLComponent: p, Confidence: p, Method: model.MethodHybrid}
	}
	return out, nil
}
