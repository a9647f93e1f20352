package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/factory"
	coremetrics "github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordPredictions([]coremetrics.PredictionEvent{
		{Behavior: model.BehaviorFeeding, Method: model.MethodHybrid, Probability: 0.8},
		{Behavior: model.BehaviorFeeding, Method: model.MethodHybrid, Probability: 0.7},
		{Behavior: model.BehaviorResting, Method: model.MethodMLOnly, Probability: 0.1},
	}))
	require.NoError(t, sink.RecordEvaluationFallback(coremetrics.EvaluationFallbackEvent{Behavior: model.BehaviorTraveling}))
	require.NoError(t, sink.RecordTraining(coremetrics.TrainingEvent{Behavior: model.BehaviorFeeding, Duration: time.Second}))
	require.NoError(t, sink.RecordTraining(coremetrics.TrainingEvent{Behavior: model.BehaviorResting, Skipped: true}))
	require.NoError(t, sink.RecordForecastRun(coremetrics.ForecastRunEvent{Mode: "hybrid", Points: 25, Duration: 200 * time.Millisecond}))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.predictions.WithLabelValues(model.BehaviorFeeding, "hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.predictions.WithLabelValues(model.BehaviorResting, "ml_only")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.fallbacks.WithLabelValues(model.BehaviorTraveling)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.training.WithLabelValues(model.BehaviorFeeding, "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.training.WithLabelValues(model.BehaviorResting, "true")))
	assert.Equal(t, 25.0, testutil.ToFloat64(sink.gridPoints.WithLabelValues("hybrid")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.probability))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.trainingLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.forecastLatency))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordEvaluationFallback(coremetrics.EvaluationFallbackEvent{Behavior: "feeding"}))
	require.NoError(t, second.RecordEvaluationFallback(coremetrics.EvaluationFallbackEvent{Behavior: "feeding"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.fallbacks.WithLabelValues("feeding")))
	assert.Same(t, first.fallbacks, second.fallbacks)
}

func TestMetricsSinkFactory(t *testing.T) {
	for _, name := range []string{"nop", "prometheus"} {
		_, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: name}})
		assert.NoError(t, err, name)
	}
	_, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}})
	assert.Error(t, err)
}
