package api

import (
	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/database"
)

// IngestToDelta converts a validated ingest request into the delta shape the
// router consumes.
func IngestToDelta(req IngestAlertRequest) automation.AlertDelta {
	return automation.AlertDelta{
		Title:       req.Title,
		Description: req.Description,
		Severity:    database.AlertSeverity(req.Severity),
		Source:      req.Source,
		Tags:        req.Tags,
	}
}

// AlertToListItem converts a database Alert to a compact list representation.
func AlertToListItem(a database.Alert) AlertListItem {
	return AlertListItem{
		ID:          a.ID,
		UUID:        a.UUID,
		Title:       a.Title,
		Severity:    a.Severity,
		Source:      a.Source,
		Status:      a.Status,
		Tags:        a.Tags,
		AssignedTo:  a.AssignedTo,
		Occurrences: a.Occurrences,
		ResolvedAt:  a.ResolvedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// AlertsToListItems converts a slice of database Alerts to list items.
func AlertsToListItems(alerts []database.Alert) []AlertListItem {
	items := make([]AlertListItem, len(alerts))
	for i, a := range alerts {
		items[i] = AlertToListItem(a)
	}
	return items
}

// SettingsToView converts a settings row to its client representation,
// masking the bot token.
func SettingsToView(s *database.NotificationSettings) NotificationSettingsView {
	return NotificationSettingsView{
		BotToken:    MaskToken(s.BotToken),
		Channel:     s.Channel,
		MinSeverity: s.MinSeverity,
		Enabled:     s.Enabled,
		Configured:  s.IsConfigured(),
	}
}

// MaskToken masks a token for display, showing only last 4 characters
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
