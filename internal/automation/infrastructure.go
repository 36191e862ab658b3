package automation

import (
	"context"
	"fmt"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
)

// SourceInfrastructureMonitor is the alert source name for host telemetry findings
const SourceInfrastructureMonitor = "infrastructure_monitor"

// InfrastructureMonitor watches host telemetry and alerts when a dimension
// stays over its threshold for a full hysteresis window. Each dimension is
// judged on its own; a noisy CPU never masks a full disk.
type InfrastructureMonitor struct {
	window   int
	critical float64
	dims     []dimension
}

type dimension struct {
	name    string // title fragment, e.g. "CPU"
	warning float64
	value   func(database.MetricSample) float64
}

// NewInfrastructureMonitor builds the handler from its job config
func NewInfrastructureMonitor(cfg config.InfrastructureMonitorConfig) *InfrastructureMonitor {
	return &InfrastructureMonitor{
		window:   cfg.HysteresisSamples,
		critical: cfg.CriticalTier,
		dims: []dimension{
			{name: "CPU", warning: cfg.CPUWarning, value: func(s database.MetricSample) float64 { return s.CPUPercent }},
			{name: "memory", warning: cfg.MemoryWarning, value: func(s database.MetricSample) float64 { return s.MemoryPercent }},
			{name: "disk", warning: cfg.DiskWarning, value: func(s database.MetricSample) float64 { return s.DiskPercent }},
		},
	}
}

// Evaluate implements the Handler interface
func (m *InfrastructureMonitor) Evaluate(ctx context.Context, snap Snapshot) (Deltas, error) {
	var out Deltas

	if len(snap.Samples) < m.window {
		// Cold start: not enough history to judge any dimension
		return out, nil
	}

	window := snap.Samples[len(snap.Samples)-m.window:]
	latest := window[len(window)-1]

	for _, dim := range m.dims {
		allCritical := true
		allWarning := true
		allBelow := true
		for _, sample := range window {
			v := dim.value(sample)
			if v < m.critical {
				allCritical = false
			}
			if v < dim.warning {
				allWarning = false
			}
			if v >= dim.warning {
				allBelow = false
			}
		}

		current := dim.value(latest)
		switch {
		case allCritical:
			out.Alerts = append(out.Alerts, AlertDelta{
				Title:       highUsageTitle(dim.name, current),
				Description: fmt.Sprintf("%s usage has been at or above %.0f%% for %d consecutive samples", dim.name, m.critical, m.window),
				Severity:    database.AlertSeverityCritical,
				Source:      SourceInfrastructureMonitor,
			})
		case allWarning:
			out.Alerts = append(out.Alerts, AlertDelta{
				Title:       highUsageTitle(dim.name, current),
				Description: fmt.Sprintf("%s usage has been at or above %.0f%% for %d consecutive samples", dim.name, dim.warning, m.window),
				Severity:    database.AlertSeverityWarning,
				Source:      SourceInfrastructureMonitor,
			})
		case allBelow:
			out.Resolves = append(out.Resolves, ResolveDelta{
				Title:    highUsageTitle(dim.name, current),
				Severity: database.AlertSeverityWarning,
				Source:   SourceInfrastructureMonitor,
			})
		default:
			// Mixed window: hysteresis still settling, hold position
		}
	}

	return out, nil
}

// highUsageTitle names the one incident a dimension owns across both tiers.
// The live value is for operators; fingerprinting folds the digits so every
// percentage, at either severity, lands on the same alert row.
func highUsageTitle(dim string, value float64) string {
	return fmt.Sprintf("High %s usage: %.1f%%", dim, value)
}
