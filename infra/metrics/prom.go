package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/marinecast/core/metrics"
)

// PromSink exposes prediction, training and forecast activity as Prometheus
// metrics.
type PromSink struct {
	predictions     *prometheus.CounterVec
	probability     *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
	training        *prometheus.CounterVec
	trainingLatency *prometheus.HistogramVec
	forecastLatency *prometheus.HistogramVec
	gridPoints      *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. Collectors that are
// already registered are reused, so several sinks may share a registry.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.predictions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marinecast_predictions_total",
		Help: "Behaviour predictions served, by prediction method",
	}, []string{"behavior", "method"})); err != nil {
		return nil, err
	}
	if s.probability, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marinecast_prediction_probability",
		Help:    "Distribution of served behaviour probabilities",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
	}, []string{"behavior"})); err != nil {
		return nil, err
	}
	if s.fallbacks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marinecast_evaluation_fallbacks_total",
		Help: "Equation evaluations that fell back to the neutral value",
	}, []string{"behavior"})); err != nil {
		return nil, err
	}
	if s.training, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marinecast_training_behaviors_total",
		Help: "Per-behaviour ensemble fits, by outcome",
	}, []string{"behavior", "skipped"})); err != nil {
		return nil, err
	}
	if s.trainingLatency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marinecast_training_duration_seconds",
		Help:    "Time spent fitting the ensembles of one behaviour",
		Buckets: prometheus.DefBuckets,
	}, []string{"behavior"})); err != nil {
		return nil, err
	}
	if s.forecastLatency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marinecast_forecast_duration_seconds",
		Help:    "Duration of a full forecast grid sweep",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"mode"})); err != nil {
		return nil, err
	}
	if s.gridPoints, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marinecast_forecast_grid_points_total",
		Help: "Forecast grid points computed",
	}, []string{"mode"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPredictions counts the predictions and observes their probability.
func (s *PromSink) RecordPredictions(evs []coremetrics.PredictionEvent) error {
	for _, ev := range evs {
		s.predictions.WithLabelValues(ev.Behavior, string(ev.Method)).Inc()
		s.probability.WithLabelValues(ev.Behavior).Observe(ev.Probability)
	}
	return nil
}

// RecordEvaluationFallback counts a neutral fallback.
func (s *PromSink) RecordEvaluationFallback(ev coremetrics.EvaluationFallbackEvent) error {
	s.fallbacks.WithLabelValues(ev.Behavior).Inc()
	return nil
}

// RecordTraining counts a behaviour fit and its duration.
func (s *PromSink) RecordTraining(ev coremetrics.TrainingEvent) error {
	s.training.WithLabelValues(ev.Behavior, strconv.FormatBool(ev.Skipped)).Inc()
	if !ev.Skipped {
		s.trainingLatency.WithLabelValues(ev.Behavior).Observe(ev.Duration.Seconds())
	}
	return nil
}

// RecordForecastRun observes the sweep duration and counts its points.
func (s *PromSink) RecordForecastRun(ev coremetrics.ForecastRunEvent) error {
	s.forecastLatency.WithLabelValues(ev.Mode).Observe(ev.Duration.Seconds())
	s.gridPoints.WithLabelValues(ev.Mode).Add(float64(ev.Points))
	return nil
}
