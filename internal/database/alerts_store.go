package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GetAlertByUUID retrieves a single alert row
func GetAlertByUUID(db *gorm.DB, id string) (*Alert, error) {
	var alert Alert
	if err := db.Where("uuid = ?", id).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &alert, nil
}

// LatestAlertByFingerprint returns the most recent row carrying the given
// dedup identity, or nil when none exists.
func LatestAlertByFingerprint(db *gorm.DB, fingerprint string) (*Alert, error) {
	var alert Alert
	err := db.Where("fingerprint = ?", fingerprint).
		Order("created_at desc").
		Order("id desc").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// AlertFilters narrows alert listings; zero values mean "any"
type AlertFilters struct {
	Status   AlertStatus
	Severity AlertSeverity
	Source   string
	Limit    int
}

// ListAlerts returns alerts newest first
func ListAlerts(db *gorm.DB, filters AlertFilters) ([]Alert, error) {
	query := db.Model(&Alert{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Source != "" {
		query = query.Where("source = ?", filters.Source)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	var alerts []Alert
	err := query.Order("created_at desc").Order("id desc").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListOpenAlerts returns every alert that still dedups and routes
func ListOpenAlerts(db *gorm.DB) ([]Alert, error) {
	var alerts []Alert
	err := db.Where("status <> ?", AlertStatusResolved).
		Order("id asc").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// CountOpenAlertsBySeverity summarizes unresolved alerts for the dashboard
func CountOpenAlertsBySeverity(db *gorm.DB) (map[AlertSeverity]int64, error) {
	var rows []struct {
		Severity AlertSeverity
		Count    int64
	}
	err := db.Model(&Alert{}).
		Select("severity, count(*) as count").
		Where("status <> ?", AlertStatusResolved).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[AlertSeverity]int64, len(rows))
	for _, row := range rows {
		counts[row.Severity] = row.Count
	}
	return counts, nil
}

// TransitionAlert moves an alert through the lifecycle table, rejecting any
// move the table does not allow. The in-memory struct is updated to match.
func TransitionAlert(db *gorm.DB, alert *Alert, to AlertStatus, now time.Time) error {
	if !CanTransitionAlert(alert.Status, to) {
		return fmt.Errorf("alert %s: %s -> %s: %w", alert.UUID, alert.Status, to, ErrInvalidTransition)
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if to == AlertStatusResolved {
		updates["resolved_at"] = now
	}

	if err := db.Model(&Alert{}).Where("id = ?", alert.ID).UpdateColumns(updates).Error; err != nil {
		return err
	}

	alert.Status = to
	alert.UpdatedAt = now
	if to == AlertStatusResolved {
		resolvedAt := now
		alert.ResolvedAt = &resolvedAt
	}
	return nil
}

// InsertAlert creates a new alert row (UUID assigned by hook)
func InsertAlert(db *gorm.DB, alert *Alert) error {
	if alert.Occurrences == 0 {
		alert.Occurrences = 1
	}
	if alert.Tags == nil {
		alert.Tags = StringList{}
	}
	return db.Create(alert).Error
}

// AlertRefresh is the set of dedup-time mutations applied to an existing row
type AlertRefresh struct {
	Severity   AlertSeverity
	Tags       StringList
	AssignedTo string // applied when non-empty
	Reopen     bool   // resolved row returning to new
	Now        time.Time
}

// RefreshAlert applies a dedup hit to an existing row: occurrences advance,
// tags and severity are replaced with the router's merged values, and a
// reopen clears the resolution. The in-memory struct is updated to match.
func RefreshAlert(db *gorm.DB, alert *Alert, refresh AlertRefresh) error {
	updates := map[string]interface{}{
		"occurrences": gorm.Expr("occurrences + 1"),
		"severity":    refresh.Severity,
		"tags":        refresh.Tags,
		"updated_at":  refresh.Now,
	}
	if refresh.AssignedTo != "" {
		updates["assigned_to"] = refresh.AssignedTo
	}
	if refresh.Reopen {
		updates["status"] = AlertStatusNew
		updates["resolved_at"] = nil
	}

	if err := db.Model(&Alert{}).Where("id = ?", alert.ID).UpdateColumns(updates).Error; err != nil {
		return err
	}

	alert.Occurrences++
	alert.Severity = refresh.Severity
	alert.Tags = refresh.Tags
	alert.UpdatedAt = refresh.Now
	if refresh.AssignedTo != "" {
		alert.AssignedTo = refresh.AssignedTo
	}
	if refresh.Reopen {
		alert.Status = AlertStatusNew
		alert.ResolvedAt = nil
	}
	return nil
}
