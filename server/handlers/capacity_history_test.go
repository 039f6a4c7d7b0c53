package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/activityboard/capacity"
)

type historyFunc func() []capacity.Report

func (f historyFunc) CapacityHistory() []capacity.Report {
	return f()
}

func TestCapacityHistoryHandler(t *testing.T) {
	reports := []capacity.Report{
		{At: testNow.Add(10 * time.Minute)},
		{At: testNow.Add(5 * time.Minute)},
		{At: testNow, Error: "connection refused"},
	}
	handler := NewCapacityHistoryHandler(historyFunc(func() []capacity.Report { return reports }))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{name: "all", query: "", wantStatus: http.StatusOK, wantCount: 3},
		{name: "limited", query: "?limit=2", wantStatus: http.StatusOK, wantCount: 2},
		{name: "limit above size", query: "?limit=10", wantStatus: http.StatusOK, wantCount: 3},
		{name: "zero", query: "?limit=0", wantStatus: http.StatusOK, wantCount: 0},
		{name: "negative", query: "?limit=-1", wantStatus: http.StatusBadRequest},
		{name: "not a number", query: "?limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/capacity/history"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp CapacityHistoryResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Reports, tt.wantCount)
			if tt.wantCount > 0 {
				assert.True(t, resp.Reports[0].At.Equal(testNow.Add(10*time.Minute)))
			}
		})
	}
}

func TestCapacityHistoryHandler_Empty(t *testing.T) {
	handler := NewCapacityHistoryHandler(historyFunc(func() []capacity.Report { return nil }))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/capacity/history", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reports": []}`, w.Body.String())
}
