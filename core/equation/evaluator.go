package equation

import (
	"time"

	"github.com/kilianp07/marinecast/core/logger"
	"github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
)

// FallbackValue is substituted for equations that cannot be evaluated.
const FallbackValue = 0.0

// Evaluator substitutes feature vectors into expressions. It is safe for
// concurrent use.
type Evaluator struct {
	log      logger.Logger
	recorder metrics.EvaluationFallbackRecorder
}

// NewEvaluator creates an Evaluator. A nil recorder disables fallback metrics.
func NewEvaluator(log logger.Logger, recorder metrics.EvaluationFallbackRecorder) *Evaluator {
	return &Evaluator{log: log, recorder: recorder}
}

// TryEvaluate returns the value of expr at fv or the evaluation error.
func (e *Evaluator) TryEvaluate(expr *Expr, fv model.FeatureVector) (float64, error) {
	return expr.Eval(FeatureLookup(fv))
}

// Evaluate returns the value of expr at fv. Any failure is logged, recorded
// and replaced by FallbackValue; it never reaches the caller.
func (e *Evaluator) Evaluate(behavior string, expr *Expr, fv model.FeatureVector) float64 {
	v, err := e.TryEvaluate(expr, fv)
	if err == nil {
		return v
	}
	if e.log != nil {
		e.log.Warnw("equation evaluation fallback", map[string]any{
			"behavior":   behavior,
			"expression": expr.String(),
			"error":      err.Error(),
			"fallback":   FallbackValue,
		})
	}
	if e.recorder != nil {
		if rerr := e.recorder.RecordEvaluationFallback(metrics.EvaluationFallbackEvent{
			Behavior:   behavior,
			Expression: expr.String(),
			Reason:     err.Error(),
			Time:       time.Now(),
		}); rerr != nil && e.log != nil {
			e.log.Errorf("record evaluation fallback: %v", rerr)
		}
	}
	return FallbackValue
}
