package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertSeverity represents normalized severity levels
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityInfo     AlertSeverity = "info"
)

// SeverityRank orders severities for upgrade decisions (higher is worse)
func SeverityRank(s AlertSeverity) int {
	switch s {
	case AlertSeverityCritical:
		return 3
	case AlertSeverityWarning:
		return 2
	case AlertSeverityInfo:
		return 1
	default:
		return 0
	}
}

// GetSeverityEmoji returns an emoji for the alert severity
func GetSeverityEmoji(severity AlertSeverity) string {
	switch severity {
	case AlertSeverityCritical:
		return ":red_circle:"
	case AlertSeverityWarning:
		return ":large_yellow_circle:"
	case AlertSeverityInfo:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

// Well-known tags attached by the router and the lifecycle sweep
const (
	TagAutoResolved  = "auto_resolved"
	TagEscalated     = "escalated"
	TagAutoEscalated = "auto_escalated"
	TagK8s           = "k8s"
	TagInfra         = "infra"
	TagNightShift    = "night_shift"
	TagBusinessHours = "business_hours"
)

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "new"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusSuppressed   AlertStatus = "suppressed"
)

// alertTransitions is the forward-only lifecycle table. Reopening a resolved
// alert is not listed here: it is a router-only move gated by the dedup
// cooldown, never reachable through the transition API.
var alertTransitions = map[AlertStatus][]AlertStatus{
	AlertStatusNew:          {AlertStatusAcknowledged, AlertStatusResolved, AlertStatusSuppressed},
	AlertStatusAcknowledged: {AlertStatusResolved, AlertStatusSuppressed},
	AlertStatusSuppressed:   {AlertStatusResolved},
	AlertStatusResolved:     {},
}

// CanTransitionAlert reports whether the lifecycle table allows from -> to
func CanTransitionAlert(from, to AlertStatus) bool {
	for _, allowed := range alertTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Alert is a deduplicated operational finding. Fingerprint is the
// content-derived dedup identity (stable across resubmission); UUID addresses
// the individual row, since a recurrence past the reopen cooldown creates a
// sibling row under the same fingerprint.
type Alert struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UUID        string        `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Fingerprint string        `gorm:"size:12;not null;index" json:"fingerprint"`
	Title       string        `gorm:"type:varchar(255);not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Severity    AlertSeverity `gorm:"type:varchar(50);not null;index" json:"severity"`
	Source      string        `gorm:"size:128;not null;index" json:"source"`
	Status      AlertStatus   `gorm:"type:varchar(50);not null;default:'new';index" json:"status"`
	Tags        StringList    `gorm:"type:jsonb" json:"tags"`
	AssignedTo  string        `gorm:"size:128" json:"assigned_to,omitempty"`
	Occurrences int           `gorm:"default:1" json:"occurrences"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsOpen reports whether the alert still dedups and routes (anything not resolved)
func (a *Alert) IsOpen() bool {
	return a.Status != AlertStatusResolved
}

// BeforeCreate hook to assign a row UUID
func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == "" {
		a.UUID = uuid.New().String()
	}
	return nil
}

func (Alert) TableName() string {
	return "alerts"
}
