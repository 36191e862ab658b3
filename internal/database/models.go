package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringList is a custom type for string-set columns stored as JSON arrays
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Contains reports whether the list holds the given entry
func (l StringList) Contains(entry string) bool {
	for _, e := range l {
		if e == entry {
			return true
		}
	}
	return false
}

// JobKind categorizes what a recurring job does
type JobKind string

const (
	JobKindMonitoring   JobKind = "monitoring"
	JobKindOptimization JobKind = "optimization"
	JobKindAlerting     JobKind = "alerting"
)

// JobStatus represents the scheduling state of a job
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusPaused   JobStatus = "paused"
	JobStatusDisabled JobStatus = "disabled"
)

// Job is a recurring automation job row. Counters and schedule fields are
// owned by the scheduler and mutated only at run completion; Metadata carries
// handler state between runs (e.g. first-seen timestamps for grace periods).
type Job struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Kind            JobKind    `gorm:"type:varchar(50);not null;index" json:"kind"`
	IntervalSeconds int        `gorm:"not null" json:"interval_seconds"`
	Status          JobStatus  `gorm:"type:varchar(50);not null;default:'active';index" json:"status"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	NextRunAt       time.Time  `gorm:"index" json:"next_run_at"`
	RunCount        int        `gorm:"default:0" json:"run_count"`
	SuccessCount    int        `gorm:"default:0" json:"success_count"`
	FailureCount    int        `gorm:"default:0" json:"failure_count"`
	LastError       string     `gorm:"type:text" json:"last_error,omitempty"`
	Running         bool       `gorm:"default:false" json:"running"`
	ClaimExpiresAt  *time.Time `json:"claim_expires_at,omitempty"`
	Metadata        JSONB      `gorm:"type:jsonb" json:"metadata"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Interval returns the recurrence cadence as a duration
func (j *Job) Interval() time.Duration {
	return time.Duration(j.IntervalSeconds) * time.Second
}

func (Job) TableName() string {
	return "jobs"
}
