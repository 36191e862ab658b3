package handlers

import (
	"log"
	"net/http"

	"github.com/opspulse/opspulse/internal/api"
	"github.com/opspulse/opspulse/internal/database"
)

// handleGetNotificationSettings returns the Slack notification singleton with
// the bot token masked.
func (h *APIHandler) handleGetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := database.GetOrCreateNotificationSettings(h.db)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.SettingsToView(settings))
}

// handleUpdateNotificationSettings applies a partial update to the Slack
// notification singleton. Omitted fields keep their current values; the
// notifier reads the row on every send, so changes take effect immediately.
func (h *APIHandler) handleUpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateNotificationSettingsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	settings, err := database.GetOrCreateNotificationSettings(h.db)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if req.BotToken != nil {
		settings.BotToken = *req.BotToken
	}
	if req.Channel != nil {
		settings.Channel = *req.Channel
	}
	if req.MinSeverity != nil {
		settings.MinSeverity = database.AlertSeverity(*req.MinSeverity)
	}
	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}

	if err := database.UpdateNotificationSettings(h.db, settings); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("Notification settings updated (enabled=%t, min_severity=%s)", settings.Enabled, settings.MinSeverity)
	api.RespondJSON(w, http.StatusOK, api.SettingsToView(settings))
}
