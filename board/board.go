// Package board implements the activity board view controller.
//
// The Controller turns calls against the activities API into what the page
// shows: a Listing of activity cards plus the options of the activity selector,
// and transient status Messages after a signup or a removal. It holds no state
// between calls; every Load starts from a fresh fetch, and a mutation is followed
// by a new Load (the HTTP layer redirects back to the page).
//
// Dependencies are passed in explicitly so tests can replace the API:
//
//	ctrl := board.New(client, board.WithLogger(logger))
//	listing := ctrl.Load(ctx)
//	msg := ctrl.SubmitSignup(ctx, "a@x.com", "Chess Club")
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nomis52/activityboard/activity"
	"github.com/nomis52/activityboard/clients/activitiesclient"
)

// User visible texts.
const (
	LoadFailedText     = "Failed to load activities. Please try again later."
	SignupFallbackText = "An error occurred"
	SignupFailedText   = "Failed to sign up. Please try again."
	RemoveFailedText   = "Failed to remove participant."
	PlaceholderOption  = "-- Select an activity --"
)

// MessageTTL is how long a status message stays visible unless overridden with
// WithMessageTTL.
const MessageTTL = 5 * time.Second

// API is the subset of the activities API used by the controller.
type API interface {
	List(ctx context.Context) (activity.Collection, error)
	Signup(ctx context.Context, name, email string) (string, error)
	Unregister(ctx context.Context, name, email string) (string, error)
}

// Controller drives the activity board.
type Controller struct {
	api     API
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	ttl     time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics records API outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock replaces time.Now, used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithMessageTTL sets how long status messages stay visible.
func WithMessageTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		c.ttl = ttl
	}
}

// New creates a Controller backed by api.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		logger: slog.Default(),
		now:    time.Now,
		ttl:    MessageTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the collection and builds the listing.
// On failure the listing carries LoadFailedText and only the placeholder option.
func (c *Controller) Load(ctx context.Context) Listing {
	collection, err := c.api.List(ctx)
	if err != nil {
		c.metrics.observe(opList, err)
		c.logger.Error("error fetching activities", "error", err)
		return Listing{
			Options: []string{PlaceholderOption},
			Error:   LoadFailedText,
		}
	}
	c.metrics.observe(opList, nil)
	return NewListing(collection)
}

// SubmitSignup registers email for the named activity.
func (c *Controller) SubmitSignup(ctx context.Context, email, name string) Message {
	msg, err := c.api.Signup(ctx, name, email)
	c.metrics.observe(opSignup, err)
	if err == nil {
		c.logger.Info("participant signed up", "activity", name, "email", email)
		return c.message(msg, KindSuccess)
	}

	var apiErr *activitiesclient.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("signup rejected", "activity", name, "status", apiErr.StatusCode, "detail", apiErr.Detail)
		return c.message(orDefault(apiErr.Detail, SignupFallbackText), KindError)
	}

	c.logger.Error("error signing up", "activity", name, "error", err)
	return c.message(SignupFailedText, KindError)
}

// RemoveParticipant unregisters email from the named activity. The caller is
// responsible for asking the user first, see ConfirmPrompt. A blank name or email
// aborts without calling the API and returns the zero Message.
func (c *Controller) RemoveParticipant(ctx context.Context, name, email string) Message {
	if name == "" || email == "" {
		return Message{}
	}

	msg, err := c.api.Unregister(ctx, name, email)
	c.metrics.observe(opUnregister, err)
	if err == nil {
		c.logger.Info("participant removed", "activity", name, "email", email)
		return c.message(msg, KindSuccess)
	}

	var apiErr *activitiesclient.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("removal rejected", "activity", name, "status", apiErr.StatusCode, "detail", apiErr.Detail)
		return c.message(orDefault(apiErr.Detail, RemoveFailedText), KindError)
	}

	c.logger.Error("error removing participant", "activity", name, "error", err)
	return c.message(RemoveFailedText, KindError)
}

// ConfirmPrompt is the question asked before a participant is removed.
func ConfirmPrompt(name, email string) string {
	return fmt.Sprintf("Remove %s from %s?", email, name)
}

func (c *Controller) message(text string, kind Kind) Message {
	return Message{
		Text:      text,
		Kind:      kind,
		CreatedAt: c.now(),
		HideAfter: c.ttl,
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
