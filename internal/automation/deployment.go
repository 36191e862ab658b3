package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
)

// SourceDeploymentMonitor is the alert source name for deployment findings
const SourceDeploymentMonitor = "deployment_monitor"

const degradedStateKey = "degraded"

// DeploymentMonitor raises alerts for under-replicated workloads. A degraded
// deployment warns right away and escalates to critical once it has stayed
// degraded past the grace period; first sightings are remembered in the
// job's state map so the escalation clock survives restarts.
type DeploymentMonitor struct {
	grace time.Duration
}

// NewDeploymentMonitor builds the handler from its job config
func NewDeploymentMonitor(cfg config.DeploymentMonitorConfig) *DeploymentMonitor {
	return &DeploymentMonitor{grace: time.Duration(cfg.GracePeriod)}
}

// Evaluate implements the Handler interface
func (m *DeploymentMonitor) Evaluate(ctx context.Context, snap Snapshot) (Deltas, error) {
	var out Deltas

	prev := decodeDegraded(snap.State, snap.Now)
	next := make(map[string]interface{})

	for _, dep := range snap.Deployments {
		key := dep.Key()
		degraded := dep.Desired > 0 && (dep.Ready < dep.Desired || dep.Available == 0)

		if !degraded {
			// Recovered or intentionally scaled to zero. The router ignores
			// resolves with no open match.
			out.Resolves = append(out.Resolves, ResolveDelta{
				Title:    underReplicatedTitle(key, dep.Ready, dep.Desired),
				Severity: database.AlertSeverityWarning,
				Source:   SourceDeploymentMonitor,
			})
			continue
		}

		since, seen := prev[key]
		if !seen {
			since = snap.Now
		}
		next[key] = since.UTC().Format(time.RFC3339Nano)

		severity := database.AlertSeverityWarning
		if snap.Now.Sub(since) >= m.grace {
			severity = database.AlertSeverityCritical
		}

		description := fmt.Sprintf("Deployment %s has %d of %d replicas ready, degraded since %s", key, dep.Ready, dep.Desired, since.UTC().Format(time.RFC3339))
		if dep.Available == 0 {
			description = fmt.Sprintf("Deployment %s reports zero available replicas (%d desired), degraded since %s", key, dep.Desired, since.UTC().Format(time.RFC3339))
		}

		out.Alerts = append(out.Alerts, AlertDelta{
			Title:       underReplicatedTitle(key, dep.Ready, dep.Desired),
			Description: description,
			Severity:    severity,
			Source:      SourceDeploymentMonitor,
		})
	}

	out.State = database.JSONB{degradedStateKey: next}
	return out, nil
}

// underReplicatedTitle names the one incident a degraded deployment owns.
// The live counts fold out of the dedup identity, so the same title carries
// the alert from warning through critical and back.
func underReplicatedTitle(key string, ready, desired int) string {
	return fmt.Sprintf("Deployment %s under-replicated (%d/%d)", key, ready, desired)
}

// decodeDegraded reads the carry-over map of first-degraded timestamps.
// Entries that fail to parse count as first seen now, restarting their grace.
func decodeDegraded(state database.JSONB, now time.Time) map[string]time.Time {
	out := make(map[string]time.Time)
	raw, ok := state[degradedStateKey].(map[string]interface{})
	if !ok {
		return out
	}
	for key, val := range raw {
		str, ok := val.(string)
		if !ok {
			out[key] = now
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			out[key] = now
			continue
		}
		out[key] = ts
	}
	return out
}
