// Package metrics defines the observability interfaces of the prediction
// engine. A MetricsSink records prediction events; optional recorder
// interfaces cover evaluation fallbacks, training runs and forecast sweeps.
// Concrete sinks live in infra/metrics and are built from configuration with
// NewMetricsSink, which returns a MultiSink when several sinks are listed.
package metrics
