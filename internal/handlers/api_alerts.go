package handlers

import (
	"net/http"

	"github.com/opspulse/opspulse/internal/alerts"
	"github.com/opspulse/opspulse/internal/api"
)

// handleListAlerts handles GET /api/alerts with status/severity/source/limit
// query filters.
func (h *APIHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.alertService.List(api.ParseAlertFilters(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.AlertsToListItems(rows))
}

// handleGetAlert handles GET /api/alerts/{uuid}
func (h *APIHandler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertService.Get(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleIngestAlert handles POST /api/alerts. The body goes through the same
// router as job-emitted alerts, so resubmitting an open finding refreshes it
// instead of creating a sibling.
func (h *APIHandler) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	var req api.IngestAlertRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	res, err := h.alertService.Ingest(r.Context(), api.IngestToDelta(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == alerts.OutcomeCreated {
		status = http.StatusCreated
	}
	api.RespondJSON(w, status, api.IngestAlertResponse{
		Outcome: string(res.Outcome),
		Alert:   res.Alert,
	})
}

// handleAcknowledgeAlert handles POST /api/alerts/{uuid}/acknowledge
func (h *APIHandler) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertService.Acknowledge(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleResolveAlert handles POST /api/alerts/{uuid}/resolve
func (h *APIHandler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertService.Resolve(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleSuppressAlert handles POST /api/alerts/{uuid}/suppress
func (h *APIHandler) handleSuppressAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertService.Suppress(r.PathValue("uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, alert)
}
