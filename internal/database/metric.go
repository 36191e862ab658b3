package database

import (
	"time"
)

// MetricSample is an immutable point-in-time snapshot of host telemetry.
// Rows are append-only; the store prunes the oldest past the retention cap.
type MetricSample struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TakenAt       time.Time `gorm:"not null;index" json:"taken_at"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskPercent   float64   `json:"disk_percent"`
	Load1         float64   `json:"load1"`
	Load5         float64   `json:"load5"`
	Load15        float64   `json:"load15"`
	ProcessCount  int       `json:"process_count"`
	NetBytesSent  uint64    `json:"net_bytes_sent"`
	NetBytesRecv  uint64    `json:"net_bytes_recv"`
	CreatedAt     time.Time `json:"created_at"`
}

func (MetricSample) TableName() string {
	return "metric_samples"
}
