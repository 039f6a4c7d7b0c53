package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/activityboard/capacity"
	"github.com/nomis52/activityboard/server/types"
)

// NextRunResponse is the JSON response for the next capacity report.
type NextRunResponse struct {
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server   types.ServerProperties `json:"server"`
	Capacity *capacity.Report       `json:"capacity"`
	NextRun  NextRunResponse        `json:"next_run"`
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	properties PropertiesProvider
	provider   CapacityProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(properties PropertiesProvider, provider CapacityProvider) *APIStatusHandler {
	return &APIStatusHandler{
		properties: properties,
		provider:   provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	nextRun := h.provider.NextRun()

	writeJSON(w, http.StatusOK, APIStatusResponse{
		Server:   h.properties.Properties(),
		Capacity: h.provider.CapacityReport(),
		NextRun: NextRunResponse{
			Scheduled: nextRun != nil,
			NextRun:   nextRun,
		},
	})
}
