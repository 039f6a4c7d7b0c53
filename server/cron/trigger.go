// Package cron provides cron-based scheduling for periodic jobs such as the
// capacity report.
//
// The CronTrigger type wraps a Runnable and executes it according to a cron schedule.
// It is designed to be started once and run until the context is cancelled.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("*/5 * * * *", reporter, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Runnable is implemented by anything that can be triggered by the cron scheduler.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

// Run calls f.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// CronTrigger executes a Runnable according to a cron schedule.
type CronTrigger struct {
	spec       string
	schedule   cron.Schedule
	runnable   Runnable
	logger     *slog.Logger
	runOnStart bool
}

// Option configures a CronTrigger.
type Option func(*CronTrigger)

// WithRunOnStart runs the Runnable once as soon as the trigger starts.
func WithRunOnStart() Option {
	return func(ct *CronTrigger) {
		ct.runOnStart = true
	}
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(spec string, runnable Runnable, logger *slog.Logger, opts ...Option) (*CronTrigger, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	ct := &CronTrigger{
		spec:     spec,
		schedule: schedule,
		runnable: runnable,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct, nil
}

// Spec returns the cron specification of the trigger.
func (ct *CronTrigger) Spec() string {
	return ct.spec
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

// loop is the main scheduling loop that runs in a goroutine.
func (ct *CronTrigger) loop(ctx context.Context) {
	if ct.runOnStart {
		ct.executeRun(ctx)
	}

	for {
		nextRun := ct.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		ct.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.executeRun(ctx)
		}
	}
}

// executeRun executes the runnable and logs the result.
func (ct *CronTrigger) executeRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ct.logger.Debug("starting scheduled run", "spec", ct.spec)

	if err := ct.runnable.Run(ctx); err != nil {
		ct.logger.Warn("scheduled run completed with error", "error", err)
	} else {
		ct.logger.Debug("scheduled run completed successfully")
	}
}
