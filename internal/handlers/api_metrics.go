package handlers

import (
	"net/http"

	"github.com/opspulse/opspulse/internal/api"
)

// handleSystemMetrics returns the newest infrastructure sample. Before the
// first infrastructure_monitor run there is nothing to report, so 404.
func (h *APIHandler) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	sample, err := h.dashboardService.LatestSample()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if sample == nil {
		api.RespondError(w, http.StatusNotFound, "No metric samples recorded yet")
		return
	}
	api.RespondJSON(w, http.StatusOK, sample)
}

// handleMetricsHistory returns recent samples oldest first so charts can
// plot them left to right without re-sorting.
func (h *APIHandler) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	samples, err := h.dashboardService.SampleHistory(api.ParseLimit(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, samples)
}
