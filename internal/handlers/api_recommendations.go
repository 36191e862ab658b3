package handlers

import (
	"net/http"

	"github.com/opspulse/opspulse/internal/api"
)

// handleListRecommendations returns cost recommendations, optionally filtered
// by status via the query string.
func (h *APIHandler) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.recommendationService.List(api.ParseRecommendationFilters(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, rows)
}

// handleGetRecommendation returns a single recommendation by UUID.
func (h *APIHandler) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recommendationService.Get(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, rec)
}

// handleAcceptRecommendation marks a pending recommendation as accepted.
func (h *APIHandler) handleAcceptRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recommendationService.Accept(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, rec)
}

// handleDismissRecommendation marks a pending recommendation as dismissed.
func (h *APIHandler) handleDismissRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recommendationService.Dismiss(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, rec)
}
