package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

// HandleHealth is a simple liveness check that returns "ok".
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Pinger reports whether the activities backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyHandler reports ready only while the activities backend answers.
type ReadyHandler struct {
	logger *slog.Logger
	pinger Pinger
}

// NewReadyHandler creates a new ReadyHandler.
func NewReadyHandler(logger *slog.Logger, pinger Pinger) *ReadyHandler {
	return &ReadyHandler{
		logger: logger,
		pinger: pinger,
	}
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.logger.Warn("activities backend not ready", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "activities backend unavailable"})
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
