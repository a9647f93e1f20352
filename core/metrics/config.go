package metrics

import "github.com/kilianp07/marinecast/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort is the listen address of the /metrics endpoint. Empty
	// disables the endpoint even when a prometheus sink is configured.
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
}
