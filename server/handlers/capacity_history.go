package handlers

import (
	"net/http"
	"strconv"

	"github.com/nomis52/activityboard/capacity"
)

// CapacityHistoryResponse is the JSON response for /api/capacity/history.
type CapacityHistoryResponse struct {
	Reports []capacity.Report `json:"reports"`
}

// CapacityHistoryHandler serves the recent capacity reports. The optional
// limit query parameter caps the number of reports returned.
type CapacityHistoryHandler struct {
	provider CapacityHistoryProvider
}

// NewCapacityHistoryHandler creates a new CapacityHistoryHandler.
func NewCapacityHistoryHandler(provider CapacityHistoryProvider) *CapacityHistoryHandler {
	return &CapacityHistoryHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *CapacityHistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reports := h.provider.CapacityHistory()

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		if limit < len(reports) {
			reports = reports[:limit]
		}
	}
	if reports == nil {
		reports = []capacity.Report{}
	}

	writeJSON(w, http.StatusOK, CapacityHistoryResponse{Reports: reports})
}
