// Package app wires the prediction engine, its persistence and the
// observability sinks into the services used by the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kilianp07/marinecast/core/bundle"
	"github.com/kilianp07/marinecast/core/equation"
	"github.com/kilianp07/marinecast/core/forecast"
	"github.com/kilianp07/marinecast/core/logger"
	"github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
	"github.com/kilianp07/marinecast/core/monitoring"
	"github.com/kilianp07/marinecast/core/prediction"
	"github.com/kilianp07/marinecast/core/training"
	infralogger "github.com/kilianp07/marinecast/infra/logger"
	"github.com/kilianp07/marinecast/internal/eventbus"
)

// Options configures a Service. Zero values select the built-in registry,
// default training options, a NopSink and a no-op logger.
type Options struct {
	Registry        *equation.Registry
	Training        training.Options
	ForecastWorkers int
	Sink            metrics.MetricsSink
	Bus             *eventbus.TypedBus[metrics.GridPointEvent]
	Logger          logger.Logger
}

// Service owns the current model bundle. The bundle is replaced atomically
// by Train and Load; prediction calls read a snapshot and never block.
type Service struct {
	registry *equation.Registry
	eval     *equation.Evaluator
	trainer  *training.Trainer
	current  atomic.Pointer[prediction.Predictor]
	sink     metrics.MetricsSink
	bus      *eventbus.TypedBus[metrics.GridPointEvent]
	workers  int
	log      logger.Logger
}

// NewService creates a Service serving a symbolic-only bundle over the
// configured registry until a trained bundle is loaded or trained.
func NewService(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = equation.DefaultRegistry()
	}
	if opts.Sink == nil {
		opts.Sink = metrics.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = infralogger.NopLogger{}
	}
	if opts.Training.Forest.Trees == 0 && opts.Training.Booster.Trees == 0 {
		opts.Training = training.DefaultOptions()
	}
	var fallbacks metrics.EvaluationFallbackRecorder
	if r, ok := opts.Sink.(metrics.EvaluationFallbackRecorder); ok {
		fallbacks = r
	}
	var trainRec metrics.TrainingRecorder
	if r, ok := opts.Sink.(metrics.TrainingRecorder); ok {
		trainRec = r
	}

	eval := equation.NewEvaluator(opts.Logger, fallbacks)
	s := &Service{
		registry: opts.Registry,
		eval:     eval,
		trainer:  training.NewTrainer(opts.Registry, eval, opts.Training, opts.Logger, trainRec),
		sink:     opts.Sink,
		bus:      opts.Bus,
		workers:  opts.ForecastWorkers,
		log:      opts.Logger,
	}
	for name, syms := range opts.Registry.UnknownSymbols() {
		s.log.Warnf("equation for %s references unknown symbols %v; it will evaluate to the fallback", name, syms)
	}
	p, _ := prediction.NewPredictor(bundle.NewSymbolic(opts.Registry), eval)
	s.current.Store(p)
	return s
}

// Bundle returns the bundle currently served.
func (s *Service) Bundle() *bundle.Bundle { return s.current.Load().Bundle() }

// Registry returns the equation registry used for training.
func (s *Service) Registry() *equation.Registry { return s.registry }

// Train fits a new bundle on samples and serves it on success. On error the
// current bundle is kept.
func (s *Service) Train(ctx context.Context, samples []model.TrainingSample) (*bundle.Bundle, error) {
	start := time.Now()
	b, err := s.trainer.Train(ctx, samples)
	if err != nil {
		if ctx.Err() == nil {
			monitoring.CaptureException(err, map[string]string{"op": "train"})
		}
		return nil, err
	}
	p, err := prediction.NewPredictor(b, s.eval)
	if err != nil {
		return nil, err
	}
	s.current.Store(p)
	s.log.Infof("serving bundle %s trained in %s", b.ID, time.Since(start).Round(time.Millisecond))
	return b, nil
}

// PredictSymbolic implements prediction.Engine.
func (s *Service) PredictSymbolic(fv model.FeatureVector) (map[string]model.SymbolicPrediction, error) {
	out, err := s.current.Load().PredictSymbolic(fv)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	evs := make([]metrics.PredictionEvent, 0, len(out))
	for b, p := range out {
		evs = append(evs, metrics.PredictionEvent{Behavior: b, Method: model.MethodSindyOnly, Probability: p.Probability, Time: now})
	}
	s.recordPredictions(evs)
	return out, nil
}

// PredictHybrid implements prediction.Engine.
func (s *Service) PredictHybrid(fv model.FeatureVector) (map[string]model.HybridPrediction, error) {
	out, err := s.current.Load().PredictHybrid(fv)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	evs := make([]metrics.PredictionEvent, 0, len(out))
	for b, p := range out {
		evs = append(evs, metrics.PredictionEvent{Behavior: b, Method: p.Method, Probability: p.Probability, Time: now})
	}
	s.recordPredictions(evs)
	return out, nil
}

func (s *Service) recordPredictions(evs []metrics.PredictionEvent) {
	if err := s.sink.RecordPredictions(evs); err != nil {
		s.log.Errorf("record predictions: %v", err)
	}
}

// Forecast sweeps a grid against the bundle served when the call starts.
// Individual cell predictions are not reported as prediction metrics; the
// sweep is recorded as a whole.
func (s *Service) Forecast(ctx context.Context, req forecast.Request) (*forecast.Result, error) {
	opts := []forecast.Option{forecast.WithWorkers(s.workers), forecast.WithLogger(s.log)}
	if r, ok := s.sink.(metrics.ForecastRunRecorder); ok {
		opts = append(opts, forecast.WithRecorder(r))
	}
	if s.bus != nil {
		opts = append(opts, forecast.WithEventBus(s.bus))
	}
	return forecast.NewGenerator(s.current.Load(), opts...).Forecast(ctx, req)
}

// Save persists the current bundle to path.
func (s *Service) Save(path string) error {
	b := s.Bundle()
	if err := bundle.Save(path, b); err != nil {
		return fmt.Errorf("save bundle %s: %w", b.ID, err)
	}
	s.log.Infof("saved bundle %s to %s", b.ID, path)
	return nil
}

// LoadBundle reads the bundle at path and serves it. The served bundle is
// unchanged when an error is returned.
func (s *Service) LoadBundle(path string) error {
	b, err := bundle.Load(path)
	if err != nil {
		return err
	}
	p, err := prediction.NewPredictor(b, s.eval)
	if err != nil {
		return err
	}
	for name, syms := range b.Registry.UnknownSymbols() {
		s.log.Warnf("loaded equation for %s references unknown symbols %v", name, syms)
	}
	s.current.Store(p)
	s.log.Infof("loaded bundle %s (%d behaviours trained on %d samples)", b.ID, len(b.Models), b.Samples)
	return nil
}

// Load is LoadBundle reporting success as a boolean. Failures are logged.
func (s *Service) Load(path string) bool {
	if err := s.LoadBundle(path); err != nil {
		kind := "corrupt"
		if errors.Is(err, bundle.ErrBadMagic) || errors.Is(err, bundle.ErrUnsupportedVersion) {
			kind = "incompatible"
		}
		s.log.Errorf("load bundle %s (%s): %v", path, kind, err)
		monitoring.CaptureException(err, map[string]string{"op": "load_bundle", "kind": kind})
		return false
	}
	return true
}
