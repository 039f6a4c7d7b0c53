// Package metrics provides the Prometheus-compatible metrics used by activityboard.
//
// Two registries implement the same Registry interface:
//   - ScrapeRegistry registers metrics with a Prometheus registry served on /metrics.
//   - PushRegistry sends every update to a VictoriaMetrics/Prometheus remote write endpoint.
//
// Code that records metrics only depends on Registry and the metric interfaces below,
// so the server can pick a registry from configuration.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge is a metric that represents a single numerical value that can go up and down.
type Gauge interface {
	Set(float64)
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Inc()
	// Add panics if the value is negative.
	Add(float64)
}

// GaugeVec is a Gauge partitioned by labels.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
	// Delete removes the series for labels so it is no longer reported.
	Delete(prometheus.Labels)
}

// CounterVec is a Counter partitioned by labels.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates and registers metrics.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
