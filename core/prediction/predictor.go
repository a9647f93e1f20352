package prediction

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/marinecast/core/bundle"
	"github.com/kilianp07/marinecast/core/equation"
	"github.com/kilianp07/marinecast/core/model"
)

var (
	// ErrFeatureOrderMismatch is returned when the augmented feature ordering
	// rebuilt at inference differs from the one recorded at training time.
	ErrFeatureOrderMismatch = errors.New("augmented feature ordering mismatch")
	// ErrNoBundle is returned when a predictor is built without a bundle.
	ErrNoBundle = errors.New("no model bundle")
)

// Predictor serves predictions from one immutable bundle. It holds no
// mutable state and is safe for concurrent use.
type Predictor struct {
	bundle *bundle.Bundle
	eval   *equation.Evaluator
}

// NewPredictor creates a Predictor over b.
func NewPredictor(b *bundle.Bundle, eval *equation.Evaluator) (*Predictor, error) {
	if b == nil || b.Registry == nil {
		return nil, ErrNoBundle
	}
	if eval == nil {
		eval = equation.NewEvaluator(nil, nil)
	}
	return &Predictor{bundle: b, eval: eval}, nil
}

// Bundle returns the bundle served by the predictor.
func (p *Predictor) Bundle() *bundle.Bundle { return p.bundle }

// SymbolicScores evaluates every equation and returns raw scores and
// probabilities in registry order.
func (p *Predictor) SymbolicScores(fv model.FeatureVector) (raw, prob []float64, err error) {
	if err := fv.Validate(); err != nil {
		return nil, nil, err
	}
	entries := p.bundle.Registry.Entries()
	raw = make([]float64, len(entries))
	prob = make([]float64, len(entries))
	for i, e := range entries {
		raw[i] = p.eval.Evaluate(e.Behavior, e.Expression, fv)
		prob[i] = Score(raw[i])
	}
	return raw, prob, nil
}

// PredictSymbolic implements Engine.
func (p *Predictor) PredictSymbolic(fv model.FeatureVector) (map[string]model.SymbolicPrediction, error) {
	raw, prob, err := p.SymbolicScores(fv)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.SymbolicPrediction, len(raw))
	for i, e := range p.bundle.Registry.Entries() {
		kf := make([]string, len(e.KeyFactors))
		copy(kf, e.KeyFactors)
		out[e.Behavior] = model.SymbolicPrediction{
			Probability:  prob[i],
			RawScore:     raw[i],
			KeyFactors:   kf,
			EquationType: model.EquationTypeSindy,
		}
	}
	return out, nil
}

// AugmentedRow returns the feature values followed by the symbolic
// probabilities, matching the training-time column ordering.
func (p *Predictor) AugmentedRow(fv model.FeatureVector) ([]float64, error) {
	_, prob, err := p.SymbolicScores(fv)
	if err != nil {
		return nil, err
	}
	return p.augment(fv, prob)
}

func (p *Predictor) augment(fv model.FeatureVector, prob []float64) ([]float64, error) {
	values, err := fv.Values()
	if err != nil {
		return nil, err
	}
	return append(values, prob...), nil
}

// PredictHybrid implements Engine.
func (p *Predictor) PredictHybrid(fv model.FeatureVector) (map[string]model.HybridPrediction, error) {
	_, prob, err := p.SymbolicScores(fv)
	if err != nil {
		return nil, err
	}
	reg := p.bundle.Registry
	sindy := make(map[string]float64, len(prob))
	for i, b := range reg.Behaviors() {
		sindy[b] = prob[i]
	}

	out := make(map[string]model.HybridPrediction, len(sindy)+len(p.bundle.Models))
	for b, s := range sindy {
		out[b] = model.HybridPrediction{Probability: s, SindyComponent: s, Confidence: s, Method: model.MethodSindyOnly}
	}
	if !p.bundle.Trained() {
		return out, nil
	}
	if p.bundle.Scaler == nil {
		return nil, fmt.Errorf("%w: trained bundle without scaler", bundle.ErrInconsistent)
	}

	want := bundle.AugmentedFeatures(reg)
	if !sameOrder(want, p.bundle.AugmentedFeatures) {
		return nil, fmt.Errorf("%w: trained on %v, rebuilt %v", ErrFeatureOrderMismatch, p.bundle.AugmentedFeatures, want)
	}
	row, err := p.augment(fv, prob)
	if err != nil {
		return nil, err
	}
	scaled, err := p.bundle.Scaler.TransformRow(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeatureOrderMismatch, err)
	}

	for _, b := range modelNames(p.bundle) {
		m := p.bundle.Models[b]
		pf, err := m.Forest.PredictProba(scaled)
		if err != nil {
			return nil, fmt.Errorf("behavior %s forest: %w", b, err)
		}
		pb, err := m.Booster.PredictProba(scaled)
		if err != nil {
			return nil, fmt.Errorf("behavior %s booster: %w", b, err)
		}
		ml := (pf + pb) / 2

		hp := model.HybridPrediction{MLComponent: ml, Method: model.MethodHybrid}
		if s, ok := sindy[b]; ok {
			hp.SindyComponent = s
			hp.Probability = Blend(s, ml)
		} else {
			hp.Probability = ml
			hp.Method = model.MethodMLOnly
		}
		hp.Confidence = hp.Probability
		out[b] = hp
	}
	return out, nil
}

func modelNames(b *bundle.Bundle) []string {
	names := make([]string, 0, len(b.Models))
	for n := range b.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
