// Package automation holds the job handlers: pure evaluation functions that
// turn a snapshot of observed state into alert and recommendation deltas.
// Handlers do no I/O and read no clocks; everything they need arrives in the
// snapshot, and everything they decide leaves in the deltas.
package automation

import (
	"context"
	"time"

	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/source"
)

// Snapshot is the world as of one run. Samples are chronological (oldest
// first). State is the handler's own carry-over from its previous successful
// run, opaque to everything else.
type Snapshot struct {
	Now         time.Time
	Samples     []database.MetricSample
	Deployments []source.Deployment
	Resources   []source.ResourceUsage
	OpenAlerts  []database.Alert
	Pending     []database.CostRecommendation
	State       database.JSONB
}

// AlertDelta raises or refreshes an alert. Identity for dedup is derived
// from Source, Title, and the severity class, so emitting the same finding
// twice lands on one row.
type AlertDelta struct {
	Title       string
	Description string
	Severity    database.AlertSeverity
	Source      string
	Tags        []string
}

// ResolveDelta closes the open alert whose identity matches. No-op when
// nothing open matches.
type ResolveDelta struct {
	Title    string
	Severity database.AlertSeverity
	Source   string
}

// RecommendationDelta proposes or re-prices a cost-saving action
type RecommendationDelta struct {
	ResourceID   string
	ResourceType string
	Action       database.RecommendationAction
	Description  string
	CurrentCost  float64
	Savings      float64
	Confidence   database.ConfidenceLevel
	Effort       database.EffortLevel
}

// Escalation flags one unattended alert row for reassignment
type Escalation struct {
	AlertUUID string
	AssignTo  string
}

// Deltas is everything one run wants committed, in emission order. Slices
// are applied in order; State replaces the job's carry-over on success.
type Deltas struct {
	Alerts          []AlertDelta
	Resolves        []ResolveDelta
	Recommendations []RecommendationDelta
	AutoResolves    []string // alert row UUIDs to resolve as stale
	Escalations     []Escalation
	Expiries        []string // recommendation row UUIDs past their TTL
	State           database.JSONB
}

// Empty reports whether the run produced no work for the committer
func (d Deltas) Empty() bool {
	return len(d.Alerts) == 0 && len(d.Resolves) == 0 && len(d.Recommendations) == 0 &&
		len(d.AutoResolves) == 0 && len(d.Escalations) == 0 && len(d.Expiries) == 0
}

// Handler evaluates one snapshot. Implementations must be pure: same
// snapshot in, same deltas out, no side effects.
type Handler interface {
	Evaluate(ctx context.Context, snap Snapshot) (Deltas, error)
}

// HandlerFunc adapts a plain function to the Handler interface
type HandlerFunc func(ctx context.Context, snap Snapshot) (Deltas, error)

// Evaluate implements the Handler interface
func (f HandlerFunc) Evaluate(ctx context.Context, snap Snapshot) (Deltas, error) {
	return f(ctx, snap)
}
