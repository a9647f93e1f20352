package forecast

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/marinecast/core/logger"
	"github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
	"github.com/kilianp07/marinecast/core/monitoring"
	"github.com/kilianp07/marinecast/core/prediction"
	"github.com/kilianp07/marinecast/internal/eventbus"
)

// Generator runs grid sweeps against a prediction engine.
type Generator struct {
	engine   prediction.Engine
	workers  int
	log      logger.Logger
	recorder metrics.ForecastRunRecorder
	bus      *eventbus.TypedBus[metrics.GridPointEvent]
}

// Option configures a Generator.
type Option func(*Generator)

// WithWorkers bounds the number of grid points computed concurrently.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(g *Generator) { g.log = l } }

// WithRecorder records one event per finished sweep.
func WithRecorder(r metrics.ForecastRunRecorder) Option { return func(g *Generator) { g.recorder = r } }

// WithEventBus publishes one event per finished grid point. Subscribers
// that fall behind slow the sweep down rather than lose points.
func WithEventBus(b *eventbus.TypedBus[metrics.GridPointEvent]) Option {
	return func(g *Generator) { g.bus = b }
}

// NewGenerator creates a Generator. Workers default to the number of CPUs.
func NewGenerator(engine prediction.Engine, opts ...Option) *Generator {
	g := &Generator{engine: engine, workers: runtime.NumCPU()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Forecast sweeps the grid described by req. Every cell is independent so
// points are computed in parallel; the output order does not depend on
// scheduling. The sweep stops at the first prediction error or when ctx is
// done.
func (g *Generator) Forecast(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.NewString()
	lats := Axis(req.LatRange[0], req.LatRange[1], req.Resolution)
	lngs := Axis(req.LngRange[0], req.LngRange[1], req.Resolution)
	points := make([]GridPoint, len(lats)*len(lngs))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, lat := range lats {
		for j, lng := range lngs {
			if ectx.Err() != nil {
				break
			}
			idx := i*len(lngs) + j
			lat, lng := lat, lng // per-iteration copies (go 1.21 loop semantics)
			eg.Go(func() error {
				defer monitoring.Recover()
				if err := ectx.Err(); err != nil {
					return err
				}
				p, err := g.point(req, lat, lng)
				if err != nil {
					return fmt.Errorf("grid point (%g, %g): %w", lat, lng, err)
				}
				points[idx] = p
				return g.publish(ectx, runID, p)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Mode: req.Mode, Hours: req.Hours, Resolution: req.Resolution, Points: points}
	g.record(res, time.Since(start))
	return res, nil
}

func (g *Generator) point(req Request, lat, lng float64) (GridPoint, error) {
	gp := GridPoint{
		Latitude:        lat,
		Longitude:       lng,
		Hours:           make([]HourPrediction, 0, req.Hours),
		MeanProbability: map[string]float64{},
	}
	counts := map[string]int{}
	for h := 0; h < req.Hours; h++ {
		fv := req.Base.Clone()
		fv[model.FeatureLatitude] = lat
		fv[model.FeatureLongitude] = lng
		fv[model.FeatureHourOfDay] = float64(h)

		preds, err := g.predict(req.Mode, fv)
		if err != nil {
			return GridPoint{}, err
		}
		for b, p := range preds {
			gp.MeanProbability[b] += p.Probability
			counts[b]++
		}
		gp.Hours = append(gp.Hours, HourPrediction{Hour: h, Predictions: preds})
	}
	for b, n := range counts {
		gp.MeanProbability[b] /= float64(n)
	}
	return gp, nil
}

func (g *Generator) predict(mode Mode, fv model.FeatureVector) (map[string]model.HybridPrediction, error) {
	if mode == ModeHybrid {
		return g.engine.PredictHybrid(fv)
	}
	sym, err := g.engine.PredictSymbolic(fv)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.HybridPrediction, len(sym))
	for b, s := range sym {
		out[b] = model.HybridPrediction{
			Probability:    s.Probability,
			SindyComponent: s.Probability,
			Confidence:     s.Probability,
			Method:         model.MethodSindyOnly,
		}
	}
	return out, nil
}

// publish hands the point to the bus, waiting for slow subscribers so that
// sinks see every point of the sweep.
func (g *Generator) publish(ctx context.Context, runID string, p GridPoint) error {
	if g.bus == nil {
		return nil
	}
	mean := make(map[string]float64, len(p.MeanProbability))
	for k, v := range p.MeanProbability {
		mean[k] = v
	}
	return g.bus.PublishWait(ctx, metrics.GridPointEvent{
		RunID:           runID,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		MeanProbability: mean,
		Time:            time.Now(),
	})
}

func (g *Generator) record(res *Result, d time.Duration) {
	if g.log != nil {
		g.log.Infof("forecast %s: %d points x %d hours (%s) in %s", res.RunID, len(res.Points), res.Hours, res.Mode, d)
	}
	if g.recorder == nil {
		return
	}
	err := g.recorder.RecordForecastRun(metrics.ForecastRunEvent{
		RunID:    res.RunID,
		Mode:     string(res.Mode),
		Points:   len(res.Points),
		Hours:    res.Hours,
		Duration: d,
		Time:     time.Now(),
	})
	if err != nil && g.log != nil {
		g.log.Errorf("record forecast run: %v", err)
	}
}
