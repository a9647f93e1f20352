package equation

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
)

type fallbackRecorder struct {
	mu     sync.Mutex
	events []metrics.EvaluationFallbackEvent
}

func (r *fallbackRecorder) RecordEvaluationFallback(ev metrics.EvaluationFallbackEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type warnLogger struct {
	baseLogger
	warnings []map[string]any
}

type baseLogger struct{}

func (baseLogger) Debugf(string, ...any)         {}
func (baseLogger) Debugw(string, map[string]any) {}
func (baseLogger) Infof(string, ...any)          {}
func (baseLogger) Warnf(string, ...any)          {}
func (baseLogger) Errorf(string, ...any)         {}

func (l *warnLogger) Warnw(_ string, f map[string]any) { l.warnings = append(l.warnings, f) }

func sampleVector() model.FeatureVector {
	return model.FeatureVector{
		model.FeatureLatitude:     48.5,
		model.FeatureLongitude:    -123.1,
		model.FeatureDepth:        40,
		model.FeatureTemperature:  12,
		model.FeatureTidalFlow:    -0.4,
		model.FeaturePreyDensity:  0.7,
		model.FeatureNoiseLevel:   55,
		model.FeatureVisibility:   8,
		model.FeatureCurrentSpeed: 0.3,
		model.FeatureSalinity:     31,
		model.FeaturePodSize:      6,
		model.FeatureHourOfDay:    15,
		model.FeatureDayOfYear:    200,
	}
}

func TestEvaluateHourTemperatureProduct(t *testing.T) {
	ev := NewEvaluator(nil, nil)
	raw := ev.Evaluate(model.BehaviorFeeding, MustParse("0.0002*N*T"), sampleVector())
	assert.InDelta(t, 0.036, raw, 1e-12)
}

func TestEvaluateUsesCanonicalNames(t *testing.T) {
	ev := NewEvaluator(nil, nil)
	got, err := ev.TryEvaluate(MustParse("temperature*hour_of_day - T*N"), sampleVector())
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestEvaluateFallbackIsObservable(t *testing.T) {
	rec := &fallbackRecorder{}
	log := &warnLogger{}
	ev := NewEvaluator(log, rec)

	fv := sampleVector()
	delete(fv, model.FeatureSalinity)
	tests := []*Expr{
		MustParse("S * 2"),
		MustParse("unknown + 1"),
		MustParse("(-D)^0.5"),
		MustParse("exp(T*1000)"),
		{Kind: KindPow},
	}
	for _, e := range tests {
		assert.Equal(t, FallbackValue, ev.Evaluate(model.BehaviorFeeding, e, fv))
	}
	assert.Len(t, rec.events, len(tests))
	assert.Len(t, log.warnings, len(tests))
	assert.Equal(t, model.BehaviorFeeding, rec.events[0].Behavior)
	assert.Contains(t, rec.events[1].Reason, "unknown symbol")
	assert.Equal(t, FallbackValue, log.warnings[2]["fallback"])
}

func TestEvaluateNeverPanicsOnRandomVectors(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ev := NewEvaluator(nil, nil)
	reg := DefaultRegistry()
	for i := 0; i < 500; i++ {
		fv := model.FeatureVector{}
		for _, name := range model.FeatureNames() {
			fv[name] = (rng.Float64() - 0.5) * math.Pow(10, float64(rng.Intn(8)))
		}
		for _, e := range reg.Entries() {
			v := ev.Evaluate(e.Behavior, e.Expression, fv)
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}
