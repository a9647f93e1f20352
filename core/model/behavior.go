package model

// Behaviour labels predicted by the engine.
const (
	BehaviorFeeding     = "feeding"
	BehaviorSocializing = "socializing"
	BehaviorTraveling   = "traveling"
	BehaviorResting     = "resting"
)

// EquationTypeSindy tags predictions produced by discovered equations.
const EquationTypeSindy = "sindy_discovered"

// Method identifies how a hybrid prediction was produced.
type Method string

const (
	// MethodHybrid blends the symbolic and ensemble probabilities.
	MethodHybrid Method = "hybrid"
	// MethodSindyOnly falls back to the symbolic probability when no trained
	// ensembles exist for the behaviour.
	MethodSindyOnly Method = "sindy_only"
	// MethodMLOnly is used for behaviours that have ensembles but no equation.
	MethodMLOnly Method = "ml_only"
)

// Behaviors returns the known behaviour labels in their canonical order.
func Behaviors() []string {
	return []string{BehaviorFeeding, BehaviorSocializing, BehaviorTraveling, BehaviorResting}
}

// SymbolicPrediction is the output of the pure equation path for one behaviour.
type SymbolicPrediction struct {
	Probability  float64  `json:"probability"`
	RawScore     float64  `json:"raw_score"`
	KeyFactors   []string `json:"key_factors"`
	EquationType string   `json:"equation_type"`
}

// HybridPrediction blends the symbolic and ensemble signals for one behaviour.
// Probabilities are independent per behaviour and do not sum to one.
type HybridPrediction struct {
	Probability    float64 `json:"probability"`
	SindyComponent float64 `json:"sindy_component"`
	MLComponent    float64 `json:"ml_component"`
	Confidence     float64 `json:"confidence"`
	Method         Method  `json:"method"`
}

// TrainingSample pairs an observation with its ground-truth behaviour labels.
type TrainingSample struct {
	Features FeatureVector   `json:"features"`
	Labels   map[string]bool `json:"labels"`
}
