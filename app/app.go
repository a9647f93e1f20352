package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/marinecast/config"
	"github.com/kilianp07/marinecast/core/equation"
	coremetrics "github.com/kilianp07/marinecast/core/metrics"
	coremon "github.com/kilianp07/marinecast/core/monitoring"
	"github.com/kilianp07/marinecast/infra/logger"
	"github.com/kilianp07/marinecast/infra/metrics"
	"github.com/kilianp07/marinecast/infra/monitoring"
	"github.com/kilianp07/marinecast/infra/mqtt"
	"github.com/kilianp07/marinecast/internal/eventbus"
)

// App is a Service together with the sinks and publishers built from the
// configuration.
type App struct {
	*Service
	cfg       *config.Config
	sink      coremetrics.MetricsSink
	base      coremetrics.MetricsSink
	bus       *eventbus.TypedBus[coremetrics.GridPointEvent]
	publisher *mqtt.Publisher
	collector <-chan struct{}
	log       logger.Logger
}

// New creates an App from the configuration. The registry comes from
// model.equations_path when set, otherwise the built-in equations are used.
func New(cfg *config.Config) (*App, error) {
	logger.Configure(cfg.Logging.Options())
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	reg := equation.DefaultRegistry()
	if cfg.Model.EquationsPath != "" {
		r, err := equation.LoadRegistryFile(cfg.Model.EquationsPath)
		if err != nil {
			return nil, fmt.Errorf("equations: %w", err)
		}
		reg = r
	}

	base, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	a := &App{cfg: cfg, sink: base, base: base, log: logg}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			if c, ok := base.(interface{ Close() }); ok {
				c.Close()
			}
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		a.publisher = pub
		a.sink = coremetrics.NewMultiSink(base, pub)
	}
	_, nop := a.sink.(coremetrics.NopSink)
	if _, ok := a.sink.(coremetrics.GridPointRecorder); ok && !nop {
		a.bus = eventbus.NewTyped[coremetrics.GridPointEvent](eventbus.DefaultBuffer)
	}

	a.Service = NewService(Options{
		Registry:        reg,
		Training:        cfg.Training.Options(),
		ForecastWorkers: cfg.Forecast.Workers,
		Sink:            a.sink,
		Bus:             a.bus,
		Logger:          logg,
	})
	return a, nil
}

// Start launches the grid point collector and the Prometheus endpoint. Both
// stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if rec, ok := a.sink.(coremetrics.GridPointRecorder); ok && a.bus != nil {
		a.collector = metrics.StartGridPointCollector(ctx, a.bus, rec)
	}
	if addr := a.cfg.Metrics.PrometheusPort; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				a.log.Errorf("prom server: %v", err)
			}
		}()
	}
}

// Close drains pending grid point events, then releases the MQTT
// connection and closable sinks.
func (a *App) Close() {
	if a.bus != nil {
		a.bus.Close()
		if a.collector != nil {
			<-a.collector
		}
		if n := a.bus.Dropped(); n > 0 {
			a.log.Warnf("%d grid point events dropped", n)
		}
	}
	if a.publisher != nil {
		a.publisher.Disconnect()
	}
	if c, ok := a.base.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(coremon.FlushTimeout)
}
