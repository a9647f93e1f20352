package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/factory"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordPredictions([]PredictionEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordEvaluationFallback(EvaluationFallbackEvent) error {
	r.count++
	return nil
}

// predictionOnly implements only the base interface.
type predictionOnly struct{ count int }

func (p *predictionOnly) RecordPredictions([]PredictionEvent) error {
	p.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	p := &predictionOnly{}
	m := NewMultiSink(s1, s2, p)
	assert.NoError(t, m.RecordPredictions(nil))
	assert.NoError(t, m.RecordEvaluationFallback(EvaluationFallbackEvent{Behavior: "feeding"}))
	assert.NoError(t, m.RecordTraining(TrainingEvent{}))
	assert.Equal(t, 2, s1.count)
	assert.Equal(t, 2, s2.count)
	assert.Equal(t, 1, p.count)
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordPredictions(nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s2.count)
}

func TestNewMetricsSinkDefaultsToNop(t *testing.T) {
	s, err := NewMetricsSink(nil)
	assert.NoError(t, err)
	assert.IsType(t, NopSink{}, s)
}

type closingSink struct {
	NopSink
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	NewMultiSink(NopSink{}, c).Close()
	assert.True(t, c.closed)
}

func TestNewMetricsSinkClosesBuiltSinksOnError(t *testing.T) {
	built := &closingSink{}
	require.NoError(t, RegisterMetricsSink("closing-test", func(map[string]any) (MetricsSink, error) {
		return built, nil
	}))
	assert.Contains(t, SinkTypes(), "closing-test")

	_, err := NewMetricsSink([]factory.ModuleConfig{{Type: "closing-test"}, {Type: "unknown-test"}})
	assert.ErrorContains(t, err, "metrics sink 1")
	assert.True(t, built.closed)
}
