package board

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/activityboard/clients/activitiesclient"
	"github.com/nomis52/activityboard/metrics"
)

const (
	opList       = "list"
	opSignup     = "signup"
	opUnregister = "unregister"

	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeTransport = "transport_error"
)

// Metrics counts API calls made by the controller. A nil *Metrics records nothing.
type Metrics struct {
	requests metrics.CounterVec
}

// NewMetrics registers the controller metrics with reg.
func NewMetrics(reg metrics.Registry) (*Metrics, error) {
	requests, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Activities API calls by operation and outcome",
	}, []string{"operation", "outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating api_requests_total: %w", err)
	}
	return &Metrics{requests: requests}, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.requests.With(prometheus.Labels{
		"operation": op,
		"outcome":   outcome(err),
	}).Inc()
}

func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var apiErr *activitiesclient.APIError
	if errors.As(err, &apiErr) {
		return outcomeRejected
	}
	return outcomeTransport
}
