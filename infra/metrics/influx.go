package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/infra/logger"
)

// InfluxSink writes predictions and forecast surfaces to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordPredictions writes one point per served behaviour prediction.
func (s *InfluxSink) RecordPredictions(evs []coremetrics.PredictionEvent) error {
	if len(evs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		points = append(points, write.NewPointWithMeasurement("behavior_prediction").
			AddTag("behavior", ev.Behavior).
			AddTag("method", string(ev.Method)).
			AddField("probability", round6(ev.Probability)).
			SetTime(ev.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordEvaluationFallback writes a fallback occurrence.
func (s *InfluxSink) RecordEvaluationFallback(ev coremetrics.EvaluationFallbackEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("evaluation_fallback").
		AddTag("behavior", ev.Behavior).
		AddField("expression", ev.Expression).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTraining writes the outcome of one behaviour fit.
func (s *InfluxSink) RecordTraining(ev coremetrics.TrainingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("training_behavior").
		AddTag("bundle_id", ev.BundleID).
		AddTag("behavior", ev.Behavior).
		AddTag("skipped", strconv.FormatBool(ev.Skipped)).
		AddField("samples", ev.Samples).
		AddField("positives", ev.Positives).
		AddField("duration_ms", round6(float64(ev.Duration)/float64(time.Millisecond)))
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

// RecordForecastRun writes the summary of one grid sweep.
func (s *InfluxSink) RecordForecastRun(ev coremetrics.ForecastRunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("forecast_run").
		AddTag("run_id", ev.RunID).
		AddTag("mode", ev.Mode).
		AddField("points", ev.Points).
		AddField("hours", ev.Hours).
		AddField("duration_ms", round6(float64(ev.Duration)/float64(time.Millisecond))).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordGridPoint writes one point per behaviour with the mean probability
// of a forecast cell.
func (s *InfluxSink) RecordGridPoint(ev coremetrics.GridPointEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, gridPointPoints(ev)...)
}

func gridPointPoints(ev coremetrics.GridPointEvent) []*write.Point {
	behaviors := make([]string, 0, len(ev.MeanProbability))
	for b := range ev.MeanProbability {
		behaviors = append(behaviors, b)
	}
	sort.Strings(behaviors)
	points := make([]*write.Point, 0, len(behaviors))
	for _, b := range behaviors {
		points = append(points, write.NewPointWithMeasurement("forecast_grid_point").
			AddTag("run_id", ev.RunID).
			AddTag("behavior", b).
			AddField("latitude", ev.Latitude).
			AddField("longitude", ev.Longitude).
			AddField("mean_probability", round6(ev.MeanProbability[b])).
			SetTime(ev.Time))
	}
	return points
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
