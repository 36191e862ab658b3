package api

import (
	"time"

	"github.com/opspulse/opspulse/internal/database"
)

// ========== Alert Types ==========

// IngestAlertRequest is the request body for POST /api/alerts. Manual
// submissions and external webhooks share this shape; the router dedups
// them against job-emitted alerts by the same fingerprint rules.
type IngestAlertRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=255"`
	Description string   `json:"description" validate:"omitempty,max=4096"`
	Severity    string   `json:"severity" validate:"required,oneof=info warning critical"`
	Source      string   `json:"source" validate:"required,min=1,max=128"`
	Tags        []string `json:"tags" validate:"omitempty,max=16,dive,min=1,max=64"`
}

// IngestAlertResponse is the response body for POST /api/alerts.
type IngestAlertResponse struct {
	Outcome string          `json:"outcome"`
	Alert   *database.Alert `json:"alert"`
}

// AlertListItem is a compact representation of an alert for list views.
// It omits Description to keep large lists cheap.
type AlertListItem struct {
	ID          uint                   `json:"id"`
	UUID        string                 `json:"uuid"`
	Title       string                 `json:"title"`
	Severity    database.AlertSeverity `json:"severity"`
	Source      string                 `json:"source"`
	Status      database.AlertStatus   `json:"status"`
	Tags        database.StringList    `json:"tags"`
	AssignedTo  string                 `json:"assigned_to,omitempty"`
	Occurrences int                    `json:"occurrences"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ========== Settings Types ==========

// UpdateNotificationSettingsRequest is the request body for
// PUT /api/settings/notifications. Nil fields keep their stored value.
type UpdateNotificationSettingsRequest struct {
	BotToken    *string `json:"bot_token"`
	Channel     *string `json:"channel"`
	MinSeverity *string `json:"min_severity" validate:"omitempty,oneof=info warning critical"`
	Enabled     *bool   `json:"enabled"`
}

// NotificationSettingsView is the settings row as returned to clients,
// with the bot token masked.
type NotificationSettingsView struct {
	BotToken    string                 `json:"bot_token"`
	Channel     string                 `json:"channel"`
	MinSeverity database.AlertSeverity `json:"min_severity"`
	Enabled     bool                   `json:"enabled"`
	Configured  bool                   `json:"configured"`
}
