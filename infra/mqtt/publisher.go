package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremetrics "github.com/kilianp07/marinecast/core/metrics"
	"github.com/kilianp07/marinecast/infra/logger"
)

// DefaultTopicPrefix roots every published topic when none is configured.
const DefaultTopicPrefix = "marinecast/forecast"

// GridPointMessage is the JSON payload published for each forecast cell.
type GridPointMessage struct {
	RunID           string             `json:"run_id"`
	Latitude        float64            `json:"latitude"`
	Longitude       float64            `json:"longitude"`
	MeanProbability map[string]float64 `json:"mean_probability"`
	Timestamp       int64              `json:"timestamp"`
}

// RunMessage is published once a sweep has completed.
type RunMessage struct {
	RunID      string  `json:"run_id"`
	Mode       string  `json:"mode"`
	Points     int     `json:"points"`
	Hours      int     `json:"hours"`
	DurationMS float64 `json:"duration_ms"`
	Timestamp  int64   `json:"timestamp"`
}

// Publisher sends forecast grid points and run summaries to a broker. It
// implements the grid point and forecast run recorders so it can be driven
// by the event collector.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	p := &Publisher{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}
	if p.prefix == "" {
		p.prefix = DefaultTopicPrefix
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// GridPointTopic returns the topic carrying the cells of a run.
func (p *Publisher) GridPointTopic(runID string) string {
	return fmt.Sprintf("%s/%s/points", p.prefix, runID)
}

// RunTopic returns the topic carrying the completion summary of a run.
func (p *Publisher) RunTopic(runID string) string {
	return fmt.Sprintf("%s/%s/done", p.prefix, runID)
}

// RecordPredictions does nothing; only forecast output is published.
func (p *Publisher) RecordPredictions([]coremetrics.PredictionEvent) error { return nil }

// RecordGridPoint publishes one forecast cell.
func (p *Publisher) RecordGridPoint(ev coremetrics.GridPointEvent) error {
	return p.publish(p.GridPointTopic(ev.RunID), GridPointMessage{
		RunID:           ev.RunID,
		Latitude:        ev.Latitude,
		Longitude:       ev.Longitude,
		MeanProbability: ev.MeanProbability,
		Timestamp:       ev.Time.UnixMilli(),
	})
}

// RecordForecastRun publishes the completion summary of a sweep.
func (p *Publisher) RecordForecastRun(ev coremetrics.ForecastRunEvent) error {
	return p.publish(p.RunTopic(ev.RunID), RunMessage{
		RunID:      ev.RunID,
		Mode:       ev.Mode,
		Points:     ev.Points,
		Hours:      ev.Hours,
		DurationMS: float64(ev.Duration) / float64(time.Millisecond),
		Timestamp:  ev.Time.UnixMilli(),
	})
}

func (p *Publisher) publish(topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
