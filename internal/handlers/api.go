package handlers

import (
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/opspulse/opspulse/internal/api"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/registry"
	"github.com/opspulse/opspulse/internal/scheduler"
	"github.com/opspulse/opspulse/internal/services"
)

// APIHandler handles the JSON API consumed by the dashboard UI
type APIHandler struct {
	db                    *gorm.DB
	jobService            *services.JobService
	alertService          *services.AlertService
	recommendationService *services.RecommendationService
	dashboardService      *services.DashboardService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(db *gorm.DB, jobService *services.JobService, alertService *services.AlertService, recommendationService *services.RecommendationService, dashboardService *services.DashboardService) *APIHandler {
	return &APIHandler{
		db:                    db,
		jobService:            jobService,
		alertService:          alertService,
		recommendationService: recommendationService,
		dashboardService:      dashboardService,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	// Dashboard overview
	mux.HandleFunc("GET /api/dashboard", h.handleDashboard)

	// Jobs
	mux.HandleFunc("GET /api/jobs", h.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{name}", h.handleGetJob)
	mux.HandleFunc("POST /api/jobs/{name}/trigger", h.handleTriggerJob)
	mux.HandleFunc("POST /api/jobs/{name}/pause", h.handlePauseJob)
	mux.HandleFunc("POST /api/jobs/{name}/resume", h.handleResumeJob)

	// Alerts
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("POST /api/alerts", h.handleIngestAlert)
	mux.HandleFunc("GET /api/alerts/{uuid}", h.handleGetAlert)
	mux.HandleFunc("POST /api/alerts/{uuid}/acknowledge", h.handleAcknowledgeAlert)
	mux.HandleFunc("POST /api/alerts/{uuid}/resolve", h.handleResolveAlert)
	mux.HandleFunc("POST /api/alerts/{uuid}/suppress", h.handleSuppressAlert)

	// Cost recommendations
	mux.HandleFunc("GET /api/recommendations", h.handleListRecommendations)
	mux.HandleFunc("GET /api/recommendations/{uuid}", h.handleGetRecommendation)
	mux.HandleFunc("POST /api/recommendations/{uuid}/accept", h.handleAcceptRecommendation)
	mux.HandleFunc("POST /api/recommendations/{uuid}/dismiss", h.handleDismissRecommendation)

	// Infrastructure metrics
	mux.HandleFunc("GET /api/metrics/system", h.handleSystemMetrics)
	mux.HandleFunc("GET /api/metrics/history", h.handleMetricsHistory)

	// Notification settings
	mux.HandleFunc("GET /api/settings/notifications", h.handleGetNotificationSettings)
	mux.HandleFunc("PUT /api/settings/notifications", h.handleUpdateNotificationSettings)
}

// respondServiceError maps the error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is logged server-side and returned opaque.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, registry.ErrUnknownJob):
		api.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidTransition):
		api.RespondErrorWithCode(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		api.RespondErrorWithCode(w, http.StatusConflict, "already_running", err.Error())
	default:
		log.Printf("API request failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
