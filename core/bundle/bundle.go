// Package bundle defines the model bundle: the unit of state needed to
// reproduce predictions (equations, ensembles, scaler and feature ordering)
// and its versioned on-disk container.
package bundle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/marinecast/core/ensemble"
	"github.com/kilianp07/marinecast/core/equation"
	"github.com/kilianp07/marinecast/core/model"
)

// SymbolicFeaturePrefix prefixes the augmented column holding a behaviour's
// symbolic probability.
const SymbolicFeaturePrefix = "sindy_"

// ErrInconsistent is returned when a bundle's parts disagree with each other.
var ErrInconsistent = errors.New("inconsistent bundle")

// BehaviorModel holds the two ensembles trained for one behaviour.
type BehaviorModel struct {
	Forest  *ensemble.RandomForest     `json:"forest"`
	Booster *ensemble.GradientBoosting `json:"booster"`
}

// Bundle is immutable once built by training or loading; readers may share
// it without synchronisation.
type Bundle struct {
	ID                string
	CreatedAt         time.Time
	Samples           int
	Registry          *equation.Registry
	BaseFeatures      []string
	AugmentedFeatures []string
	Scaler            *ensemble.StandardScaler
	Models            map[string]BehaviorModel
}

// NewSymbolic returns an untrained bundle carrying only equations.
func NewSymbolic(reg *equation.Registry) *Bundle {
	return &Bundle{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Registry:     reg,
		BaseFeatures: model.FeatureNames(),
		Models:       map[string]BehaviorModel{},
	}
}

// AugmentedFeatures returns the canonical feature names followed by one
// symbolic column per registry entry, in registry order.
func AugmentedFeatures(reg *equation.Registry) []string {
	names := model.FeatureNames()
	for _, b := range reg.Behaviors() {
		names = append(names, SymbolicFeaturePrefix+b)
	}
	return names
}

// Trained reports whether the bundle holds at least one ensemble pair.
func (b *Bundle) Trained() bool { return len(b.Models) > 0 }

// Model returns the ensembles of a behaviour.
func (b *Bundle) Model(behavior string) (BehaviorModel, bool) {
	m, ok := b.Models[behavior]
	return m, ok
}

// Validate checks that the recorded feature ordering matches the ordering
// reconstructed from the registry and that every fitted part agrees on the
// feature count.
func (b *Bundle) Validate() error {
	if b.Registry == nil {
		return fmt.Errorf("%w: missing registry", ErrInconsistent)
	}
	if !equalStrings(b.BaseFeatures, model.FeatureNames()) {
		return fmt.Errorf("%w: base features %v", ErrInconsistent, b.BaseFeatures)
	}
	if !b.Trained() {
		return nil
	}
	want := AugmentedFeatures(b.Registry)
	if !equalStrings(b.AugmentedFeatures, want) {
		return fmt.Errorf("%w: augmented features %v, registry implies %v", ErrInconsistent, b.AugmentedFeatures, want)
	}
	if b.Scaler == nil || len(b.Scaler.Mean) != len(want) || len(b.Scaler.Scale) != len(want) {
		return fmt.Errorf("%w: scaler does not cover %d features", ErrInconsistent, len(want))
	}
	for name, m := range b.Models {
		if m.Forest == nil || m.Booster == nil {
			return fmt.Errorf("%w: behavior %s lacks an ensemble", ErrInconsistent, name)
		}
		if m.Forest.NumFeatures != len(want) || m.Booster.NumFeatures != len(want) {
			return fmt.Errorf("%w: behavior %s fitted on a different feature count", ErrInconsistent, name)
		}
		if err := m.Forest.Validate(); err != nil {
			return fmt.Errorf("%w: behavior %s: %w", ErrInconsistent, name, err)
		}
		if err := m.Booster.Validate(); err != nil {
			return fmt.Errorf("%w: behavior %s: %w", ErrInconsistent, name, err)
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
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
