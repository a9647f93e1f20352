// Package infra contains technical adapters: dataset stores, metrics
// exporters, the MQTT forecast publisher and error monitoring. These
// packages depend only on the interfaces defined in the core packages.
package infra
