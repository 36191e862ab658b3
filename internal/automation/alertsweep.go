package automation

import (
	"context"
	"time"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
)

// AlertProcessor is the lifecycle sweep: it ages out alerts nobody closed,
// escalates criticals nobody acknowledged, and expires recommendations
// nobody acted on. It never creates anything, it only moves rows along.
type AlertProcessor struct {
	staleAfter        time.Duration
	escalateAfter     time.Duration
	recommendationTTL time.Duration
	escalationTarget  string
}

// NewAlertProcessor builds the handler from its job config and the routing policy
func NewAlertProcessor(cfg config.AlertProcessorConfig, routing config.RoutingConfig) *AlertProcessor {
	return &AlertProcessor{
		staleAfter:        time.Duration(cfg.StaleAfter),
		escalateAfter:     time.Duration(cfg.EscalateAfter),
		recommendationTTL: time.Duration(cfg.RecommendationTTL),
		escalationTarget:  routing.EscalationTarget,
	}
}

// Evaluate implements the Handler interface
func (p *AlertProcessor) Evaluate(ctx context.Context, snap Snapshot) (Deltas, error) {
	var out Deltas

	for _, alert := range snap.OpenAlerts {
		// Suppressed alerts are deliberate silence: the sweep leaves them alone
		if alert.Status == database.AlertStatusSuppressed {
			continue
		}

		if snap.Now.Sub(alert.UpdatedAt) >= p.staleAfter {
			out.AutoResolves = append(out.AutoResolves, alert.UUID)
			continue
		}

		if alert.Severity == database.AlertSeverityCritical &&
			alert.Status == database.AlertStatusNew &&
			!alert.Tags.Contains(database.TagEscalated) &&
			snap.Now.Sub(alert.CreatedAt) >= p.escalateAfter {
			out.Escalations = append(out.Escalations, Escalation{
				AlertUUID: alert.UUID,
				AssignTo:  p.escalationTarget,
			})
		}
	}

	for _, rec := range snap.Pending {
		if snap.Now.Sub(rec.CreatedAt) >= p.recommendationTTL {
			out.Expiries = append(out.Expiries, rec.UUID)
		}
	}

	return out, nil
}
