package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry implements Registry on top of a Prometheus registry exposed via HTTP.
type ScrapeRegistry struct {
	prom       *prometheus.Registry
	registerer prometheus.Registerer
}

// ScrapeOption configures a ScrapeRegistry.
type ScrapeOption func(*scrapeOptions)

type scrapeOptions struct {
	prefix string
}

// WithPrefix prepends prefix and an underscore to every metric created through the registry.
func WithPrefix(prefix string) ScrapeOption {
	return func(o *scrapeOptions) {
		o.prefix = prefix
	}
}

// NewScrapeRegistry creates a ScrapeRegistry with the Go and process collectors registered.
func NewScrapeRegistry(opts ...ScrapeOption) (*ScrapeRegistry, error) {
	var o scrapeOptions
	for _, opt := range opts {
		opt(&o)
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}

	var registerer prometheus.Registerer = reg
	if o.prefix != "" {
		registerer = prometheus.WrapRegistererWithPrefix(o.prefix+"_", reg)
	}

	return &ScrapeRegistry{prom: reg, registerer: registerer}, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// PrometheusRegistry returns the underlying registry, mainly for gathering in tests.
func (r *ScrapeRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// NewGauge creates and registers a Gauge.
func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	g := prometheus.NewGauge(opts)
	if err := r.registerer.Register(g); err != nil {
		return nil, fmt.Errorf("registering gauge %q: %w", opts.Name, err)
	}
	return g, nil
}

// NewGaugeVec creates and registers a GaugeVec.
func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	g := prometheus.NewGaugeVec(opts, labels)
	if err := r.registerer.Register(g); err != nil {
		return nil, fmt.Errorf("registering gauge vec %q: %w", opts.Name, err)
	}
	return scrapeGaugeVec{g}, nil
}

// NewCounter creates and registers a Counter.
func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	c := prometheus.NewCounter(opts)
	if err := r.registerer.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", opts.Name, err)
	}
	return c, nil
}

// NewCounterVec creates and registers a CounterVec.
func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	c := prometheus.NewCounterVec(opts, labels)
	if err := r.registerer.Register(c); err != nil {
		return nil, fmt.Errorf("registering counter vec %q: %w", opts.Name, err)
	}
	return scrapeCounterVec{c}, nil
}

// scrapeGaugeVec narrows With to return the Gauge interface.
type scrapeGaugeVec struct {
	vec *prometheus.GaugeVec
}

func (g scrapeGaugeVec) With(labels prometheus.Labels) Gauge {
	return g.vec.With(labels)
}

func (g scrapeGaugeVec) Delete(labels prometheus.Labels) {
	g.vec.Delete(labels)
}

type scrapeCounterVec struct {
	vec *prometheus.CounterVec
}

func (c scrapeCounterVec) With(labels prometheus.Labels) Counter {
	return c.vec.With(labels)
}
