package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	promvalue "github.com/prometheus/prometheus/model/value"
	"github.com/prometheus/prometheus/prompb"
)

// DefaultTimeout is the default timeout for remote write requests.
const DefaultTimeout = 30 * time.Second

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint, e.g. "http://localhost:8428".
	URL string
	// Prefix is prepended to every metric name, followed by an underscore.
	Prefix string
	// Job and Instance are attached as labels to every series.
	Job      string
	Instance string
	// Timeout bounds each push. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Logger receives push failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// PushRegistry implements Registry by pushing each update to a remote write endpoint.
// Updates are fire and forget: a failed push is logged and dropped.
type PushRegistry struct {
	pusher *pusher
}

// NewPushRegistry creates a PushRegistry for cfg.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PushRegistry{pusher: &pusher{
		url:        strings.TrimRight(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		timeout:    timeout,
		logger:     logger,
	}}
}

// NewGauge creates a push-based Gauge.
func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{pusher: r.pusher, name: opts.Name}, nil
}

// NewGaugeVec creates a push-based GaugeVec.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{pusher: r.pusher, name: opts.Name, labels: labels}, nil
}

// NewCounter creates a push-based Counter.
func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return &pushCounter{pusher: r.pusher, name: opts.Name}, nil
}

// NewCounterVec creates a push-based CounterVec.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{pusher: r.pusher, name: opts.Name, labels: labels}, nil
}

type pusher struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string
	timeout    time.Duration
	logger     *slog.Logger
}

// send pushes one sample and logs any failure.
func (p *pusher) send(name string, value float64, labels map[string]string) {
	if err := p.push(name, value, labels); err != nil {
		p.logger.Warn("failed to push metric", "metric", name, "error", err)
	}
}

func (p *pusher) push(name string, value float64, labels map[string]string) error {
	req := &prompb.WriteRequest{
		Timeseries: []prompb.TimeSeries{p.timeSeries(name, value, labels, time.Now())},
	}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(snappy.Encode(nil, data)))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// timeSeries builds the remote write series. Labels are sorted by name as the
// remote write protocol requires.
func (p *pusher) timeSeries(name string, value float64, labels map[string]string, at time.Time) prompb.TimeSeries {
	metricName := name
	if p.prefix != "" {
		metricName = p.prefix + "_" + name
	}

	all := make(map[string]string, len(labels)+3)
	for k, v := range labels {
		all[k] = v
	}
	if p.job != "" {
		all["job"] = p.job
	}
	if p.instance != "" {
		all["instance"] = p.instance
	}
	all["__name__"] = metricName

	promLabels := make([]prompb.Label, 0, len(all))
	for k, v := range all {
		promLabels = append(promLabels, prompb.Label{Name: k, Value: v})
	}
	sort.Slice(promLabels, func(i, j int) bool {
		return promLabels[i].Name < promLabels[j].Name
	})

	return prompb.TimeSeries{
		Labels:  promLabels,
		Samples: []prompb.Sample{{Value: value, Timestamp: at.UnixMilli()}},
	}
}

type pushGauge struct {
	pusher *pusher
	name   string
	labels map[string]string
}

func (g *pushGauge) Set(v float64) {
	g.pusher.send(g.name, v, g.labels)
}

type pushGaugeVec struct {
	pusher *pusher
	name   string
	labels []string
}

func (g *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{pusher: g.pusher, name: g.name, labels: labels}
}

// Delete pushes a staleness marker so the receiver ends the series.
func (g *pushGaugeVec) Delete(labels prometheus.Labels) {
	g.pusher.send(g.name, math.Float64frombits(promvalue.StaleNaN), labels)
}

// pushCounter keeps the running total locally and pushes it on every change.
type pushCounter struct {
	mu     sync.Mutex
	pusher *pusher
	name   string
	labels map[string]string
	value  float64
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.mu.Lock()
	c.value += v
	value := c.value
	c.mu.Unlock()
	c.pusher.send(c.name, value, c.labels)
}

type pushCounterVec struct {
	mu       sync.Mutex
	pusher   *pusher
	name     string
	labels   []string
	counters map[string]*pushCounter
}

func (c *pushCounterVec) With(labels prometheus.Labels) Counter {
	key := labelsKey(labels)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counters == nil {
		c.counters = make(map[string]*pushCounter)
	}
	if counter, ok := c.counters[key]; ok {
		return counter
	}
	counter := &pushCounter{pusher: c.pusher, name: c.name, labels: labels}
	c.counters[key] = counter
	return counter
}

// labelsKey returns a stable key for a label set.
func labelsKey(labels prometheus.Labels) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}
