// Package training fits the hybrid model bundle: every equation is evaluated
// on each sample, the symbolic probabilities are appended to the raw
// features, one scaler is fit over the augmented rows, and a random forest
// and a boosted classifier are fit per behaviour.
package training

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/marinecast/core/bundle"
	"github.com/kilianp07/marinecast/core/ensemble"
	"github.com/kilianp07/marinecast/core/equation"
	"github.com/kilianp07/marinecast/core/logger"
	"github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
	"github.com/kilianp07/marinecast/core/prediction"
)

// ErrNoSamples is returned when training is requested on an empty set.
var ErrNoSamples = errors.New("no training samples")

// Options configures the ensembles and the fitting policy.
type Options struct {
	Forest  ensemble.Options `json:"forest"`
	Booster ensemble.Options `json:"booster"`
	// SkipSingleClass skips behaviours whose labels are all positive or all
	// negative instead of fitting near-constant ensembles.
	SkipSingleClass bool `json:"skip_single_class"`
	// Workers bounds the number of behaviours fitted concurrently.
	Workers int `json:"workers"`
}

// DefaultOptions returns 100-tree ensembles seeded with 42.
func DefaultOptions() Options {
	return Options{
		Forest:  ensemble.DefaultForestOptions(),
		Booster: ensemble.DefaultBoostingOptions(),
	}
}

// Trainer builds model bundles. A Trainer may be reused, but concurrent
// calls to Train must target independent bundles, which they always do.
type Trainer struct {
	registry *equation.Registry
	eval     *equation.Evaluator
	opts     Options
	log      logger.Logger
	recorder metrics.TrainingRecorder
}

// NewTrainer creates a Trainer for the given registry. recorder may be nil.
func NewTrainer(reg *equation.Registry, eval *equation.Evaluator, opts Options, log logger.Logger, recorder metrics.TrainingRecorder) *Trainer {
	if eval == nil {
		eval = equation.NewEvaluator(log, nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Trainer{registry: reg, eval: eval, opts: opts, log: log, recorder: recorder}
}

type fitResult struct {
	model     bundle.BehaviorModel
	skipped   bool
	reason    string
	samples   int
	positives int
}

// Train fits a bundle on samples. Behaviours are taken from the sample
// labels; a sample without a label for a behaviour does not take part in
// that behaviour's fit.
func (t *Trainer) Train(ctx context.Context, samples []model.TrainingSample) (*bundle.Bundle, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	b := bundle.NewSymbolic(t.registry)
	pred, err := prediction.NewPredictor(b, t.eval)
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, len(samples))
	for i, s := range samples {
		row, err := pred.AugmentedRow(s.Features)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		rows[i] = row
	}
	scaler, err := ensemble.FitStandardScaler(rows)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.Transform(rows)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := map[string]fitResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Workers)
	for _, behavior := range labelledBehaviors(samples) {
		behavior := behavior // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := t.fitBehavior(behavior, samples, scaled)
			if err != nil {
				return fmt.Errorf("behavior %s: %w", behavior, err)
			}
			t.record(b.ID, behavior, res, time.Since(start))
			mu.Lock()
			results[behavior] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Samples = len(samples)
	b.AugmentedFeatures = bundle.AugmentedFeatures(t.registry)
	b.Scaler = scaler
	for behavior, res := range results {
		if !res.skipped {
			b.Models[behavior] = res.model
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if t.log != nil {
		t.log.Infof("trained bundle %s on %d samples: %d behaviours fitted", b.ID, len(samples), len(b.Models))
	}
	return b, nil
}

func (t *Trainer) fitBehavior(behavior string, samples []model.TrainingSample, scaled [][]float64) (fitResult, error) {
	var X [][]float64
	var y []float64
	positives := 0
	for i, s := range samples {
		label, ok := s.Labels[behavior]
		if !ok {
			continue
		}
		X = append(X, scaled[i])
		if label {
			y = append(y, 1)
			positives++
		} else {
			y = append(y, 0)
		}
	}
	res := fitResult{samples: len(X), positives: positives}
	switch {
	case len(X) == 0:
		res.skipped, res.reason = true, "no labelled examples"
	case t.opts.SkipSingleClass && (positives == 0 || positives == len(X)):
		res.skipped, res.reason = true, "single class labels"
	}
	if res.skipped {
		if t.log != nil {
			t.log.Warnf("skipping ensembles for %s: %s", behavior, res.reason)
		}
		return res, nil
	}
	if (positives == 0 || positives == len(X)) && t.log != nil {
		t.log.Warnf("labels for %s contain a single class; ensembles will predict a constant", behavior)
	}

	forest, err := ensemble.FitRandomForest(X, y, t.opts.Forest)
	if err != nil {
		return res, err
	}
	booster, err := ensemble.FitGradientBoosting(X, y, t.opts.Booster)
	if err != nil {
		return res, err
	}
	res.model = bundle.BehaviorModel{Forest: forest, Booster: booster}
	return res, nil
}

func (t *Trainer) record(bundleID, behavior string, res fitResult, d time.Duration) {
	if t.recorder == nil {
		return
	}
	err := t.recorder.RecordTraining(metrics.TrainingEvent{
		BundleID:  bundleID,
		Behavior:  behavior,
		Samples:   res.samples,
		Positives: res.positives,
		Skipped:   res.skipped,
		Reason:    res.reason,
		Duration:  d,
		Time:      time.Now(),
	})
	if err != nil && t.log != nil {
		t.log.Errorf("record training: %v", err)
	}
}

// labelledBehaviors returns the known behaviours in canonical order followed
// by any other label found in samples, sorted.
func labelledBehaviors(samples []model.TrainingSample) []string {
	out := model.Behaviors()
	known := map[string]bool{}
	for _, b := range out {
		known[b] = true
	}
	var extra []string
	for _, s := range samples {
		for b := range s.Labels {
			if !known[b] {
				known[b] = true
				extra = append(extra, b)
			}
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
