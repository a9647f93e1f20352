package prediction

import "github.com/kilianp07/marinecast/core/model"

// Engine predicts behaviour probabilities for a single observation.
type Engine interface {
	// PredictSymbolic evaluates the discovered equations only.
	PredictSymbolic(fv model.FeatureVector) (map[string]model.SymbolicPrediction, error)

	// PredictHybrid blends equations with the trained ensembles, falling back
	// to the symbolic probability for behaviours without ensembles.
	PredictHybrid(fv model.FeatureVector) (map[string]model.HybridPrediction, error)
}
