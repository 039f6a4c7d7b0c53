// Package capacity reports how full each activity is.
//
// A Reporter fetches the activity collection and publishes one gauge per
// activity for participants and spots left, plus the number of activities. It
// is a cron.Runnable; the server schedules it and exposes the last Report on
// /api/status. Reports are kept in a Store, in memory or on disk.
package capacity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/activityboard/activity"
	"github.com/nomis52/activityboard/metrics"
)

// Lister fetches the activity collection.
type Lister interface {
	List(ctx context.Context) (activity.Collection, error)
}

// ActivityReport is the capacity of one activity.
type ActivityReport struct {
	Name            string `json:"name"`
	Participants    int    `json:"participants"`
	MaxParticipants int    `json:"max_participants"`
	SpotsLeft       int    `json:"spots_left"`
}

// Report is the outcome of one run.
type Report struct {
	At         time.Time        `json:"at"`
	Activities []ActivityReport `json:"activities,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Full returns the names of activities without spots left.
func (r Report) Full() []string {
	var full []string
	for _, a := range r.Activities {
		if a.SpotsLeft <= 0 {
			full = append(full, a.Name)
		}
	}
	return full
}

// Reporter publishes capacity gauges.
type Reporter struct {
	lister Lister
	logger *slog.Logger
	now    func() time.Time

	total        metrics.Gauge
	participants metrics.GaugeVec
	spotsLeft    metrics.GaugeVec

	gaugeMu  sync.Mutex
	reported map[string]struct{} // activities with gauges, protected by gaugeMu

	history Store

	mu   sync.Mutex
	last *Report
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithStore keeps the report history in store instead of memory.
func WithStore(store Store) Option {
	return func(r *Reporter) {
		r.history = store
	}
}

// NewReporter registers the capacity gauges with reg.
func NewReporter(lister Lister, reg metrics.Registry, logger *slog.Logger, opts ...Option) (*Reporter, error) {
	total, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "activities_total",
		Help: "Number of activities offered",
	})
	if err != nil {
		return nil, fmt.Errorf("creating activities_total: %w", err)
	}
	participants, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activity_participants",
		Help: "Signed up participants per activity",
	}, []string{"activity"})
	if err != nil {
		return nil, fmt.Errorf("creating activity_participants: %w", err)
	}
	spotsLeft, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activity_spots_left",
		Help: "Remaining spots per activity, negative when over-booked",
	}, []string{"activity"})
	if err != nil {
		return nil, fmt.Errorf("creating activity_spots_left: %w", err)
	}

	r := &Reporter{
		lister:       lister,
		logger:       logger,
		now:          time.Now,
		total:        total,
		participants: participants,
		spotsLeft:    spotsLeft,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.history == nil {
		r.history = NewMemoryStore(DefaultHistorySize)
	}
	if h := r.history.History(); len(h) > 0 {
		r.last = &h[0]
	}
	return r, nil
}

// Run fetches the collection and updates the gauges. A failed fetch leaves the
// gauges untouched and is recorded in the last report.
func (r *Reporter) Run(ctx context.Context) error {
	report := Report{At: r.now()}

	collection, err := r.lister.List(ctx)
	if err != nil {
		report.Error = err.Error()
		r.store(report)
		return fmt.Errorf("fetching activities: %w", err)
	}

	r.total.Set(float64(collection.Len()))
	current := make(map[string]struct{}, collection.Len())
	for _, a := range collection.All() {
		current[a.Name] = struct{}{}
		labels := prometheus.Labels{"activity": a.Name}
		r.participants.With(labels).Set(float64(len(a.Participants)))
		r.spotsLeft.With(labels).Set(float64(a.SpotsLeft()))

		report.Activities = append(report.Activities, ActivityReport{
			Name:            a.Name,
			Participants:    len(a.Participants),
			MaxParticipants: a.MaxParticipants,
			SpotsLeft:       a.SpotsLeft(),
		})
	}
	r.dropGone(current)
	r.store(report)

	if full := report.Full(); len(full) > 0 {
		r.logger.Info("activities at capacity", "activities", full)
	}
	return nil
}

// dropGone deletes the gauges of activities that are no longer listed.
func (r *Reporter) dropGone(current map[string]struct{}) {
	r.gaugeMu.Lock()
	defer r.gaugeMu.Unlock()
	for name := range r.reported {
		if _, ok := current[name]; !ok {
			labels := prometheus.Labels{"activity": name}
			r.participants.Delete(labels)
			r.spotsLeft.Delete(labels)
		}
	}
	r.reported = current
}

// Last returns a copy of the most recent report, or nil before the first run.
func (r *Reporter) Last() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	report := *r.last
	report.Activities = slices.Clone(r.last.Activities)
	return &report
}

// History returns the stored reports, newest first.
func (r *Reporter) History() []Report {
	return r.history.History()
}

func (r *Reporter) store(report Report) {
	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	if err := r.history.Save(report); err != nil {
		r.logger.Warn("failed to save capacity report", "error", err)
	}
}
