package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/bundle"
	"github.com/kilianp07/marinecast/core/equation"
	"github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/core/model"
	"github.com/kilianp07/marinecast/core/prediction"
	"github.com/kilianp07/marinecast/internal/eventbus"
)

func baseVector() model.FeatureVector {
	fv := model.FeatureVector{}
	for _, name := range model.FeatureNames() {
		fv[name] = 1
	}
	return fv
}

type runRecorder struct{ events []metrics.ForecastRunEvent }

func (r *runRecorder) RecordForecastRun(ev metrics.ForecastRunEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestAxis(t *testing.T) {
	assert.Equal(t, []float64{10}, Axis(10, 20, 1))
	assert.Equal(t, []float64{10, 15, 20}, Axis(10, 20, 3))
	assert.Equal(t, []float64{-1, -1}, Axis(-1, -1, 2))
	assert.Nil(t, Axis(0, 1, 0))
}

func TestRequestValidate(t *testing.T) {
	missing := baseVector()
	delete(missing, model.FeatureDepth)

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"zero resolution", Request{Base: baseVector(), Hours: 1}, ErrInvalidRequest},
		{"zero hours", Request{Base: baseVector(), Resolution: 1}, ErrInvalidRequest},
		{"negative hours", Request{Base: baseVector(), Resolution: 1, Hours: -3}, ErrInvalidRequest},
		{"reversed range", Request{Base: baseVector(), Resolution: 1, Hours: 1, LatRange: [2]float64{5, 1}}, ErrInvalidRequest},
		{"unknown mode", Request{Base: baseVector(), Resolution: 1, Hours: 1, Mode: "quantum"}, ErrInvalidRequest},
		{"missing feature", Request{Base: missing, Resolution: 1, Hours: 1}, model.ErrMissingFeature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.req.Validate(), tc.want)
		})
	}

	req := Request{Base: baseVector(), Resolution: 1, Hours: 24}
	require.NoError(t, req.Validate())
	assert.Equal(t, ModeHybrid, req.Mode)

	week := Request{Base: baseVector(), Resolution: 1, Hours: 7 * 24}
	assert.NoError(t, week.Validate())
}

func TestForecastGridSize(t *testing.T) {
	engine := &prediction.MockEngine{Probabilities: map[string]float64{
		model.BehaviorFeeding: 0.6, model.BehaviorResting: 0.2,
	}}
	rec := &runRecorder{}
	g := NewGenerator(engine, WithWorkers(3), WithRecorder(rec))

	for _, tc := range []struct{ res, hours int }{{1, 1}, {3, 4}, {5, 24}, {2, 36}} {
		out, err := g.Forecast(context.Background(), Request{
			LatRange: [2]float64{48, 49}, LngRange: [2]float64{-124, -123},
			Base: baseVector(), Hours: tc.hours, Resolution: tc.res,
		})
		require.NoError(t, err)
		require.Len(t, out.Points, tc.res*tc.res)
		for _, p := range out.Points {
			require.Len(t, p.Hours, tc.hours)
			assert.InDelta(t, 0.6, p.MeanProbability[model.BehaviorFeeding], 1e-12)
			assert.InDelta(t, 0.2, p.MeanProbability[model.BehaviorResting], 1e-12)
		}
	}
	assert.Equal(t, int64(1*1*1+3*3*4+5*5*24+2*2*36), engine.Calls())
	require.Len(t, rec.events, 4)
	assert.Equal(t, 25, rec.events[2].Points)
	assert.Equal(t, "hybrid", rec.events[2].Mode)
}

func TestForecastOverridesCellFeatures(t *testing.T) {
	engine := &prediction.MockEngine{
		Probabilities: map[string]float64{model.BehaviorFeeding: 0},
		Func: func(_ string, fv model.FeatureVector) float64 {
			return fv[model.FeatureHourOfDay] / 10
		},
	}
	base := baseVector()
	out, err := NewGenerator(engine).Forecast(context.Background(), Request{
		LatRange: [2]float64{10, 20}, LngRange: [2]float64{30, 40},
		Base: base, Hours: 5, Resolution: 2,
	})
	require.NoError(t, err)

	want := [][2]float64{{10, 30}, {10, 40}, {20, 30}, {20, 40}}
	for i, p := range out.Points {
		assert.Equal(t, want[i][0], p.Latitude)
		assert.Equal(t, want[i][1], p.Longitude)
		for h, hp := range p.Hours {
			assert.Equal(t, h, hp.Hour)
			assert.InDelta(t, float64(h)/10, hp.Predictions[model.BehaviorFeeding].Probability, 1e-12)
		}
		assert.InDelta(t, 0.2, p.MeanProbability[model.BehaviorFeeding], 1e-12)
	}
	assert.Equal(t, 1.0, base[model.FeatureHourOfDay], "base vector must not be mutated")
	assert.NotEmpty(t, out.RunID)
}

func TestForecastSymbolicMode(t *testing.T) {
	p, err := prediction.NewPredictor(bundle.NewSymbolic(equation.DefaultRegistry()), nil)
	require.NoError(t, err)
	out, err := NewGenerator(p).Forecast(context.Background(), Request{
		LatRange: [2]float64{48, 49}, LngRange: [2]float64{-124, -123},
		Base: baseVector(), Hours: 2, Resolution: 2, Mode: ModeSymbolic,
	})
	require.NoError(t, err)
	assert.Equal(t, ModeSymbolic, out.Mode)
	for _, gp := range out.Points {
		for _, hp := range gp.Hours {
			require.Len(t, hp.Predictions, 3)
			for _, pred := range hp.Predictions {
				assert.Equal(t, model.MethodSindyOnly, pred.Method)
				assert.Equal(t, pred.Probability, pred.SindyComponent)
			}
		}
	}
}

func TestForecastEngineError(t *testing.T) {
	boom := errors.New("boom")
	engine := &prediction.MockEngine{Err: boom}
	_, err := NewGenerator(engine).Forecast(context.Background(), Request{
		Base: baseVector(), Hours: 3, Resolution: 3,
	})
	assert.ErrorIs(t, err, boom)
}

func TestForecastCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &prediction.MockEngine{Probabilities: map[string]float64{model.BehaviorFeeding: 0.5}}
	_, err := NewGenerator(engine, WithWorkers(1)).Forecast(ctx, Request{
		Base: baseVector(), Hours: 24, Resolution: 10,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForecastPublishesGridPoints(t *testing.T) {
	bus := eventbus.NewTyped[metrics.GridPointEvent](16)
	sub := bus.Subscribe()
	defer bus.Close()

	engine := &prediction.MockEngine{Probabilities: map[string]float64{model.BehaviorTraveling: 0.4}}
	out, err := NewGenerator(engine, WithEventBus(bus)).Forecast(context.Background(), Request{
		LatRange: [2]float64{0, 1}, LngRange: [2]float64{0, 1},
		Base: baseVector(), Hours: 2, Resolution: 3,
	})
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		select {
		case ev := <-sub:
			assert.Equal(t, out.RunID, ev.RunID)
			assert.InDelta(t, 0.4, ev.MeanProbability[model.BehaviorTraveling], 1e-12)
		case <-time.After(time.Second):
			t.Fatalf("only %d grid point events received", i)
		}
	}
}

func TestForecastLargeSweepReachesSlowSubscriber(t *testing.T) {
	bus := eventbus.NewTyped[metrics.GridPointEvent](4)
	sub := bus.Subscribe()
	defer bus.Close()

	received := make(chan int)
	go func() {
		n := 0
		for range sub {
			n++
			if n%50 == 0 {
				time.Sleep(time.Millisecond)
			}
			if n == 400 {
				break
			}
		}
		received <- n
	}()

	engine := &prediction.MockEngine{Probabilities: map[string]float64{model.BehaviorFeeding: 0.5}}
	out, err := NewGenerator(engine, WithWorkers(8), WithEventBus(bus)).Forecast(context.Background(), Request{
		LatRange: [2]float64{40, 50}, LngRange: [2]float64{-130, -120},
		Base: baseVector(), Hours: 1, Resolution: 20,
	})
	require.NoError(t, err)
	require.Len(t, out.Points, 400)

	select {
	case n := <-received:
		assert.Equal(t, 400, n)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not receive every grid point")
	}
	assert.Zero(t, bus.Dropped())
}

func TestForecastStalledSubscriberHonoursDeadline(t *testing.T) {
	bus := eventbus.NewTyped[metrics.GridPointEvent](1)
	_ = bus.Subscribe()
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	engine := &prediction.MockEngine{Probabilities: map[string]float64{model.BehaviorFeeding: 0.5}}
	_, err := NewGenerator(engine, WithWorkers(2), WithEventBus(bus)).Forecast(ctx, Request{
		Base: baseVector(), Hours: 1, Resolution: 4,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
