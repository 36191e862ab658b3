package handlers

import (
	"net/http"

	"github.com/opspulse/opspulse/internal/api"
)

// handleListJobs handles GET /api/jobs
func (h *APIHandler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, jobs)
}

// handleGetJob handles GET /api/jobs/{name}
func (h *APIHandler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Get(r.PathValue("name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, job)
}

// handleTriggerJob handles POST /api/jobs/{name}/trigger. The run executes
// synchronously; the refreshed row reports the outcome via its counters and
// last_error.
func (h *APIHandler) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Trigger(r.Context(), r.PathValue("name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, job)
}

// handlePauseJob handles POST /api/jobs/{name}/pause
func (h *APIHandler) handlePauseJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Pause(r.PathValue("name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, job)
}

// handleResumeJob handles POST /api/jobs/{name}/resume
func (h *APIHandler) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Resume(r.PathValue("name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, job)
}
