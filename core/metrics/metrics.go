package metrics

import (
	"time"

	"github.com/kilianp07/marinecast/core/model"
)

// PredictionEvent describes one behaviour prediction returned to a caller.
type PredictionEvent struct {
	Behavior    string
	Method      model.Method
	Probability float64
	Time        time.Time
}

// MetricsSink records prediction events for observability purposes.
type MetricsSink interface {
	RecordPredictions(events []PredictionEvent) error
}

// EvaluationFallbackEvent is emitted when an equation could not be evaluated
// and the neutral 0.0 was substituted.
type EvaluationFallbackEvent struct {
	Behavior   string
	Expression string
	Reason     string
	Time       time.Time
}

// EvaluationFallbackRecorder records evaluation fallbacks.
type EvaluationFallbackRecorder interface {
	RecordEvaluationFallback(ev EvaluationFallbackEvent) error
}

// TrainingEvent summarises the ensemble fit of one behaviour.
type TrainingEvent struct {
	BundleID  string
	Behavior  string
	Samples   int
	Positives int
	Skipped   bool
	Reason    string
	Duration  time.Duration
	Time      time.Time
}

// TrainingRecorder records per-behaviour training outcomes.
type TrainingRecorder interface {
	RecordTraining(ev TrainingEvent) error
}

// ForecastRunEvent summarises one grid sweep.
type ForecastRunEvent struct {
	RunID    string
	Mode     string
	Points   int
	Hours    int
	Duration time.Duration
	Time     time.Time
}

// ForecastRunRecorder records forecast sweeps.
type ForecastRunRecorder interface {
	RecordForecastRun(ev ForecastRunEvent) error
}

// GridPointEvent carries the summary statistics of one forecast grid point.
type GridPointEvent struct {
	RunID           string
	Latitude        float64
	Longitude       float64
	MeanProbability map[string]float64
	Time            time.Time
}

// GridPointRecorder records forecast grid point summaries.
type GridPointRecorder interface {
	RecordGridPoint(ev GridPointEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPredictions([]PredictionEvent) error              { return nil }
func (NopSink) RecordEvaluationFallback(EvaluationFallbackEvent) error { return nil }
func (NopSink) RecordTraining(TrainingEvent) error                     { return nil }
func (NopSink) RecordForecastRun(ForecastRunEvent) error               { return nil }
func (NopSink) RecordGridPoint(GridPointEvent) error                   { return nil }
