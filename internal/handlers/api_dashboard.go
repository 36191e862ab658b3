package handlers

import (
	"net/http"

	"github.com/opspulse/opspulse/internal/api"
)

// handleDashboard returns the aggregate overview: jobs with their counters,
// open alert counts by severity, pending recommendations with projected
// savings, and the latest system metric sample.
func (h *APIHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboardService.Summary()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, summary)
}
