// Package server provides the HTTP server of the activity board.
//
// The server renders the board page, accepts the signup and removal forms and
// talks to the activities backend on behalf of the browser. Mutations follow the
// POST/redirect/GET pattern: the handler calls the backend, stores the status
// message in the session cookie and redirects back to the page, which loads
// the activities again.
//
// # Endpoints
//
//   - GET / - Activity board page
//   - GET /fragments/activities - The activities list alone
//   - POST /signup - Signs a student up for an activity
//   - POST /unregister - Removes a participant, after confirmation
//   - GET /static/ - Stylesheet and script
//   - GET /health - Liveness check, returns "ok"
//   - GET /ready - Readiness, fails while the backend does not answer
//   - GET /api/status - Server properties and the last capacity report
//   - GET /api/capacity/history - Recent capacity reports, newest first
//   - GET /config - Returns current configuration as YAML, secrets redacted
//   - POST /reload - Reloads configuration from disk
//   - GET /metrics - Prometheus metrics, unless metrics are pushed
//
// # Architecture
//
// Config-derived dependencies (the backend client and the board controller) are
// swapped atomically on reload, so a reload never affects requests in flight.
// Listener, security and monitoring settings are fixed at startup.
//
// # Example
//
//	srv, err := server.New("/etc/activityboard/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/nomis52/activityboard/activity"
	"github.com/nomis52/activityboard/board"
	"github.com/nomis52/activityboard/buildinfo"
	"github.com/nomis52/activityboard/capacity"
	"github.com/nomis52/activityboard/clients/activitiesclient"
	"github.com/nomis52/activityboard/config"
	"github.com/nomis52/activityboard/logging"
	"github.com/nomis52/activityboard/metrics"
	"github.com/nomis52/activityboard/server/cron"
	"github.com/nomis52/activityboard/server/handlers"
	"github.com/nomis52/activityboard/server/types"
	"github.com/nomis52/activityboard/view"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	// flashMaxAge bounds the session cookie; it only ever carries one status message.
	flashMaxAge = 10 * time.Minute
)

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
	client *activitiesclient.Client
	board  *board.Controller
}

// Server is the HTTP server for the activity board.
type Server struct {
	configPath string
	logger     *logging.Logger
	deps       atomic.Pointer[serverDeps]

	scrape       *metrics.ScrapeRegistry
	boardMetrics *board.Metrics

	renderer *view.Renderer
	flashes  *handlers.FlashStore
	protect  func(http.Handler) http.Handler

	capacity    *capacity.Reporter
	history     capacity.Store
	cronTrigger *cron.CronTrigger

	startedAt time.Time
	hostname  string

	handler    http.Handler
	httpServer *http.Server
}

// New creates a new Server from the config file at configPath.
// It loads the configuration and initializes all dependencies.
func New(configPath string) (*Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	s := &Server{
		configPath: configPath,
		logger:     logger,
		startedAt:  time.Now(),
		hostname:   hostname,
	}

	registry, err := s.newRegistry(cfg.Monitoring)
	if err != nil {
		return nil, err
	}
	if s.boardMetrics, err = board.NewMetrics(registry); err != nil {
		return nil, err
	}

	if err := s.apply(cfg); err != nil {
		return nil, err
	}

	if s.renderer, err = view.NewRenderer(); err != nil {
		return nil, err
	}
	if err := s.setupSecurity(cfg); err != nil {
		return nil, err
	}

	s.history, err = newCapacityStore(cfg.Monitoring, logger.With("component", "capacity"))
	if err != nil {
		return nil, err
	}
	s.capacity, err = capacity.NewReporter(s, registry, logger.With("component", "capacity"),
		capacity.WithStore(s.history))
	if err != nil {
		return nil, err
	}
	s.cronTrigger, err = cron.NewCronTrigger(cfg.Monitoring.CapacitySchedule, s.capacity,
		logger.With("component", "cron"), cron.WithRunOnStart())
	if err != nil {
		return nil, fmt.Errorf("creating capacity schedule: %w", err)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.handler = chain(mux,
		requestID,
		logRequests(logger.Logger),
		securityHeaders,
		markPlaintext,
	)

	return s, nil
}

// newRegistry pushes metrics when a remote write URL is configured and serves
// them on /metrics otherwise.
func (s *Server) newRegistry(cfg config.MonitoringConfig) (metrics.Registry, error) {
	if cfg.VictoriaMetricsURL != "" {
		s.logger.Info("pushing metrics", "url", cfg.VictoriaMetricsURL)
		return metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.VictoriaMetricsURL,
			Prefix:   cfg.MetricsPrefix,
			Job:      cfg.JobName,
			Instance: cfg.Instance,
			Logger:   s.logger.With("component", "metrics"),
		}), nil
	}

	scrape, err := metrics.NewScrapeRegistry(metrics.WithPrefix(cfg.MetricsPrefix))
	if err != nil {
		return nil, err
	}
	s.scrape = scrape
	return scrape, nil
}

// reloadableStore is a capacity store that can re-read its reports.
type reloadableStore interface {
	Reload() error
}

func newCapacityStore(cfg config.MonitoringConfig, logger *slog.Logger) (capacity.Store, error) {
	if cfg.HistoryDir == "" {
		return capacity.NewMemoryStore(cfg.HistorySize), nil
	}
	return capacity.NewDiskStore(cfg.HistoryDir, cfg.HistorySize, logger)
}

// setupSecurity builds the session store for status messages and the CSRF
// middleware, with keys derived from the session secret.
func (s *Server) setupSecurity(cfg config.Config) error {
	k, err := deriveKeys(cfg.Security.SessionSecret)
	if err != nil {
		return err
	}

	store := sessions.NewCookieStore(k.sessionHash, k.sessionBlock)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Security.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(flashMaxAge.Seconds()))
	s.flashes = handlers.NewFlashStore(store)

	s.protect = csrf.Protect(k.csrf,
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(cfg.Security.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailure)),
	)
	return nil
}

func (s *Server) csrfFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("rejected form submission", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
}

// apply builds the config-derived dependencies and swaps them in.
func (s *Server) apply(cfg config.Config) error {
	opts := []activitiesclient.Option{
		activitiesclient.WithLogger(s.logger.With("component", "activitiesclient")),
	}
	if cfg.API.Timeout > 0 {
		opts = append(opts, activitiesclient.WithTimeout(cfg.API.Timeout))
	}
	client, err := activitiesclient.New(cfg.API.BaseURL, opts...)
	if err != nil {
		return fmt.Errorf("creating activities client: %w", err)
	}

	ctrl := board.New(client,
		board.WithLogger(s.logger.With("component", "board")),
		board.WithMetrics(s.boardMetrics),
		board.WithMessageTTL(cfg.UI.MessageTTL),
	)

	s.deps.Store(&serverDeps{
		config: &cfg,
		client: client,
		board:  ctrl,
	})
	return nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger.Logger
}

// Handler returns the server's routes with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Reload reads the config from disk and rebuilds server dependencies. The API
// settings, the message lifetime and the log level take effect immediately;
// other changes are logged and wait for a restart. A disk-backed capacity
// history is re-read from its directory.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}

	old := s.Config()
	if err := s.apply(cfg); err != nil {
		return err
	}
	if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if rs, ok := s.history.(reloadableStore); ok {
		if err := rs.Reload(); err != nil {
			return fmt.Errorf("reloading capacity history: %w", err)
		}
	}

	if cfg.Listener != old.Listener ||
		cfg.Monitoring != old.Monitoring ||
		cfg.Security.SessionSecret != old.Security.SessionSecret ||
		cfg.Security.SecureCookies != old.Security.SecureCookies ||
		!slices.Equal(cfg.Security.TrustedOrigins, old.Security.TrustedOrigins) ||
		cfg.Logging.Format != old.Logging.Format ||
		cfg.Logging.Output != old.Logging.Output {
		s.logger.Warn("some configuration changes require a restart to take effect")
	}

	s.logger.Info("configuration loaded", "config_path", s.configPath)
	return nil
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// Board returns the current board controller.
func (s *Server) Board() *board.Controller {
	return s.deps.Load().board
}

// List fetches the activities through the current client.
func (s *Server) List(ctx context.Context) (activity.Collection, error) {
	return s.deps.Load().client.List(ctx)
}

// Ping checks that the activities backend answers.
func (s *Server) Ping(ctx context.Context) error {
	_, err := s.List(ctx)
	return err
}

// CapacityReport returns the last capacity report, or nil before the first one.
func (s *Server) CapacityReport() *capacity.Report {
	return s.capacity.Last()
}

// Properties describes the running server.
func (s *Server) Properties() types.ServerProperties {
	return types.ServerProperties{
		Build:      buildinfo.Get(),
		StartedAt:  s.startedAt,
		Hostname:   s.hostname,
		BackendURL: s.Config().API.BaseURL,
	}
}

// CapacityHistory returns the stored capacity reports, newest first.
func (s *Server) CapacityHistory() []capacity.Report {
	return s.capacity.History()
}

// NextRun returns the time of the next capacity report.
func (s *Server) NextRun() *time.Time {
	next := s.cronTrigger.NextRun()
	return &next
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// The capacity report schedule is started with it.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.Config()

	s.httpServer = &http.Server{
		Addr:         cfg.Listener.Addr,
		Handler:      s.handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	if cfg.Listener.TLSEnabled() {
		loader, err := NewCertLoader(cfg.Listener.TLSCert, cfg.Listener.TLSKey, s.logger.With("component", "tls"))
		if err != nil {
			return err
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: loader.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
	}

	s.logger.Info("starting capacity schedule",
		"spec", s.cronTrigger.Spec(),
		"next_run", s.cronTrigger.NextRun(),
	)
	s.cronTrigger.Start(ctx)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", cfg.Listener.Addr,
			"tls", cfg.Listener.TLSEnabled(),
			"config_path", s.configPath,
		)
		var err error
		if s.httpServer.TLSConfig != nil {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or server error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	logger := s.logger.Logger

	// Board pages and forms
	mux.Handle("GET /{$}", s.protect(handlers.NewPageHandler(logger, s, s.renderer, s.flashes)))
	mux.Handle("GET /fragments/activities", s.protect(handlers.NewFragmentHandler(logger, s, s.renderer)))
	mux.Handle("POST /signup", s.protect(handlers.NewSignupHandler(logger, s, s.flashes)))
	mux.Handle("POST /unregister", s.protect(handlers.NewUnregisterHandler(logger, s, s.renderer, s.flashes)))
	mux.Handle("GET /static/", http.StripPrefix("/static", view.Static()))

	// API endpoints
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /ready", handlers.NewReadyHandler(logger, s))
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s, s))
	mux.Handle("GET /api/capacity/history", handlers.NewCapacityHistoryHandler(s))
	mux.Handle("GET /config", handlers.NewConfigHandler(logger, s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(logger, s))

	if s.scrape != nil {
		mux.Handle("GET /metrics", s.scrape.Handler())
	}
}
