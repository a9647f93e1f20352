package equation

import (
	"errors"
	"fmt"

	"github.com/kilianp07/marinecast/core/model"
)

// ErrDuplicateBehavior is returned when a registry lists a behaviour twice.
var ErrDuplicateBehavior = errors.New("duplicate behavior")

// Entry is the discovered equation of one behaviour. KeyFactors is
// informational and does not restrict which symbols the expression may use.
type Entry struct {
	Behavior   string
	Expression *Expr
	KeyFactors []string
}

// Registry is an ordered, immutable set of equations keyed by behaviour. The
// iteration order defines the order of symbolic features in augmented
// vectors, so it must stay stable between training and inference.
type Registry struct {
	order   []string
	entries map[string]Entry
}

// NewRegistry builds a registry preserving the order of entries. Entries
// without an expression are skipped: such behaviours have no symbolic path.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Behavior == "" {
			return nil, errors.New("entry without behavior")
		}
		if e.Expression == nil {
			continue
		}
		if _, ok := r.entries[e.Behavior]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBehavior, e.Behavior)
		}
		kf := make([]string, len(e.KeyFactors))
		copy(kf, e.KeyFactors)
		e.KeyFactors = kf
		r.order = append(r.order, e.Behavior)
		r.entries[e.Behavior] = e
	}
	return r, nil
}

// DefaultRegistry returns the built-in equations for feeding, socializing and
// traveling. They are example discovered dynamics rather than a validated
// model; resting has no equation.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Entry{
			Behavior:   model.BehaviorFeeding,
			Expression: MustParse("0.0002*N*T + 0.8*P*exp(-0.002*D) - 0.3"),
			KeyFactors: []string{model.FeatureHourOfDay, model.FeatureTemperature, model.FeaturePreyDensity, model.FeatureDepth},
		},
		Entry{
			Behavior:   model.BehaviorSocializing,
			Expression: MustParse("0.05*G + 0.4*sin(0.2618*N) - 0.01*L"),
			KeyFactors: []string{model.FeaturePodSize, model.FeatureHourOfDay, model.FeatureNoiseLevel},
		},
		Entry{
			Behavior:   model.BehaviorTraveling,
			Expression: MustParse("1.2*C + 0.3*abs(F) - 0.02*V + 0.1*cos(0.0172*Y)"),
			KeyFactors: []string{model.FeatureCurrentSpeed, model.FeatureTidalFlow, model.FeatureVisibility, model.FeatureDayOfYear},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of equations.
func (r *Registry) Len() int { return len(r.order) }

// Behaviors returns the behaviours in registry order.
func (r *Registry) Behaviors() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the entry of a behaviour.
func (r *Registry) Get(behavior string) (Entry, bool) {
	e, ok := r.entries[behavior]
	return e, ok
}

// Entries returns all entries in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, b := range r.order {
		out = append(out, r.entries[b])
	}
	return out
}

// UnknownSymbols lists, per behaviour, the symbols that resolve to no
// feature. Such equations always fall back to 0.0 at evaluation time.
func (r *Registry) UnknownSymbols() map[string][]string {
	out := map[string][]string{}
	for _, e := range r.Entries() {
		for _, s := range e.Expression.Symbols() {
			if _, ok := ResolveSymbol(s); !ok {
				out[e.Behavior] = append(out[e.Behavior], s)
			}
		}
	}
	return out
}
