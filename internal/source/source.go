// Package source supplies the snapshots job handlers evaluate: host
// telemetry, workload state, and the billable resource inventory.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/opspulse/opspulse/internal/database"
)

// ErrSourceUnavailable means a snapshot could not be fetched. A run that
// hits it fails without emitting deltas; the schedule still advances.
var ErrSourceUnavailable = errors.New("metric source unavailable")

// unavailable wraps a low-level failure so errors.Is matches the sentinel
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}

// Deployment is a point-in-time view of one workload
type Deployment struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Desired   int    `json:"desired"`
	Ready     int    `json:"ready"`
	Available int    `json:"available"`
}

// Key identifies a deployment across snapshots
func (d Deployment) Key() string {
	return d.Namespace + "/" + d.Name
}

// Usage patterns attached to inventory resources
const (
	UsagePatternHighConsistent = "high_consistent"
	UsagePatternVariable       = "variable"
	UsagePatternModerate       = "moderate"
)

// ResourceUsage is a point-in-time view of one billable resource
type ResourceUsage struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	HourlyCost    float64 `json:"hourly_cost"`
	UsagePattern  string  `json:"usage_pattern"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// MonthlyCost projects the hourly price to a month (24h x 30d)
func (r ResourceUsage) MonthlyCost() float64 {
	return r.HourlyCost * 24 * 30
}

// Source supplies the snapshots handlers consume. Implementations must be
// safe for concurrent use: multiple jobs may fetch within one poll cycle.
type Source interface {
	// Sample captures current host telemetry
	Sample(ctx context.Context) (*database.MetricSample, error)
	// Deployments lists the monitored workloads
	Deployments(ctx context.Context) ([]Deployment, error)
	// Resources lists the billable resource inventory
	Resources(ctx context.Context) ([]ResourceUsage, error)
}
