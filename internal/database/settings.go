package database

import (
	"time"

	"gorm.io/gorm"
)

// NotificationSettings stores Slack paging configuration (singleton row).
// Read through on every notification so token/channel changes take effect
// without a restart.
type NotificationSettings struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	BotToken    string        `gorm:"type:text" json:"bot_token"`
	Channel     string        `gorm:"type:varchar(255)" json:"channel"`
	MinSeverity AlertSeverity `gorm:"type:varchar(50);default:'critical'" json:"min_severity"`
	Enabled     bool          `gorm:"default:false" json:"enabled"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsConfigured returns true if the required Slack fields are set
func (s *NotificationSettings) IsConfigured() bool {
	return s.BotToken != "" && s.Channel != ""
}

// IsActive returns true if notifications are enabled and configured
func (s *NotificationSettings) IsActive() bool {
	return s.Enabled && s.IsConfigured()
}

// ShouldNotify reports whether the given severity clears the configured floor
func (s *NotificationSettings) ShouldNotify(severity AlertSeverity) bool {
	return s.IsActive() && SeverityRank(severity) >= SeverityRank(s.MinSeverity)
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// NewDefaultNotificationSettings returns the disabled-by-default singleton
func NewDefaultNotificationSettings() *NotificationSettings {
	return &NotificationSettings{
		MinSeverity: AlertSeverityCritical,
		Enabled:     false,
	}
}

// GetOrCreateNotificationSettings retrieves or creates the settings singleton.
// Accepts a db parameter for dependency injection, transaction contexts, and
// easier testing.
func GetOrCreateNotificationSettings(db *gorm.DB) (*NotificationSettings, error) {
	var settings NotificationSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = *NewDefaultNotificationSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateNotificationSettings persists the settings singleton.
// Uses Save() which handles both insert and update operations.
func UpdateNotificationSettings(db *gorm.DB, settings *NotificationSettings) error {
	return db.Save(settings).Error
}
