package alerts

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"strings"
	"sync"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/events"
)

const lockStripes = 32

// sourceKubernetes is the source name webhooks use for cluster alerts
const sourceKubernetes = "kubernetes"

// escalationKeywords promote a warning to critical when they appear as a
// whole word in its title
var escalationKeywords = map[string]struct{}{
	"down":    {},
	"failed":  {},
	"error":   {},
	"timeout": {},
}

// RouteOutcome says what a routed delta did to storage
type RouteOutcome string

const (
	OutcomeCreated   RouteOutcome = "created"
	OutcomeRefreshed RouteOutcome = "refreshed"
	OutcomeReopened  RouteOutcome = "reopened"
)

// RouteResult is the row a delta landed on and how it got there
type RouteResult struct {
	Alert   *database.Alert
	Outcome RouteOutcome
}

// Router is the single entry point for alert writes: job deltas and webhook
// ingests both land here. Writes for one fingerprint are serialized through
// a striped mutex so concurrent duplicates collapse onto one row.
type Router struct {
	cfg      config.RoutingConfig
	notifier Notifier
	bus      *events.Bus
	locks    [lockStripes]sync.Mutex
}

// NewRouter builds a router. Notifier and bus may be nil; routing then works
// without paging or event fan-out.
func NewRouter(cfg config.RoutingConfig, notifier Notifier, bus *events.Bus) *Router {
	return &Router{cfg: cfg, notifier: notifier, bus: bus}
}

func (r *Router) lockFor(fingerprint string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return &r.locks[h.Sum32()%lockStripes]
}

// Route lands one alert delta: create, refresh, or reopen per the dedup
// decision. Enrichment (tags, keyword escalation) happens before the dedup
// decision, so a promoted warning routes with critical policy.
func (r *Router) Route(ctx context.Context, db *gorm.DB, delta automation.AlertDelta, now time.Time) (*RouteResult, error) {
	delta = r.enrich(delta, now)
	fp := Fingerprint(delta.Source, delta.Title, delta.Severity)

	mu := r.lockFor(fp)
	mu.Lock()
	defer mu.Unlock()

	latest, err := database.LatestAlertByFingerprint(db, fp)
	if err != nil {
		return nil, err
	}

	switch {
	case latest == nil:
		return r.create(ctx, db, fp, delta, now)
	case latest.IsOpen():
		return r.refresh(ctx, db, latest, delta, now)
	case latest.ResolvedAt != nil && now.Sub(*latest.ResolvedAt) <= time.Duration(r.cfg.ReopenCooldown):
		return r.reopen(ctx, db, latest, delta, now)
	default:
		// Resolved long enough ago that this is a fresh incident
		return r.create(ctx, db, fp, delta, now)
	}
}

func (r *Router) create(ctx context.Context, db *gorm.DB, fingerprint string, delta automation.AlertDelta, now time.Time) (*RouteResult, error) {
	alert := &database.Alert{
		Fingerprint: fingerprint,
		Title:       delta.Title,
		Description: delta.Description,
		Severity:    delta.Severity,
		Source:      delta.Source,
		Status:      database.AlertStatusNew,
		Tags:        mergeTags(nil, delta.Tags),
		Occurrences: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if delta.Severity == database.AlertSeverityCritical {
		alert.AssignedTo = r.cfg.OnCall
	}

	if err := database.InsertAlert(db, alert); err != nil {
		return nil, err
	}

	r.publish(events.TypeAlertCreated, alert, now)
	r.notify(ctx, alert)
	return &RouteResult{Alert: alert, Outcome: OutcomeCreated}, nil
}

// refresh advances an open row. Severity is upgraded when the incoming delta
// is more severe, never downgraded; an upgrade into critical assigns the
// on-call and pages just like a fresh critical would. Suppressed rows keep
// counting but stay silent.
func (r *Router) refresh(ctx context.Context, db *gorm.DB, alert *database.Alert, delta automation.AlertDelta, now time.Time) (*RouteResult, error) {
	severity := alert.Severity
	if database.SeverityRank(delta.Severity) > database.SeverityRank(severity) {
		severity = delta.Severity
	}
	page := severity == database.AlertSeverityCritical &&
		alert.Severity != database.AlertSeverityCritical &&
		alert.Status != database.AlertStatusSuppressed

	refresh := database.AlertRefresh{
		Severity: severity,
		Tags:     mergeTags(alert.Tags, delta.Tags),
		Now:      now,
	}
	if page && alert.AssignedTo == "" {
		refresh.AssignedTo = r.cfg.OnCall
	}

	if err := database.RefreshAlert(db, alert, refresh); err != nil {
		return nil, err
	}

	r.publish(events.TypeAlertUpdated, alert, now)
	if page {
		r.notify(ctx, alert)
	}
	return &RouteResult{Alert: alert, Outcome: OutcomeRefreshed}, nil
}

func (r *Router) reopen(ctx context.Context, db *gorm.DB, alert *database.Alert, delta automation.AlertDelta, now time.Time) (*RouteResult, error) {
	severity := alert.Severity
	if database.SeverityRank(delta.Severity) > database.SeverityRank(severity) {
		severity = delta.Severity
	}

	refresh := database.AlertRefresh{
		Severity: severity,
		Tags:     mergeTags(alert.Tags, delta.Tags),
		Reopen:   true,
		Now:      now,
	}
	if severity == database.AlertSeverityCritical && alert.AssignedTo == "" {
		refresh.AssignedTo = r.cfg.OnCall
	}

	if err := database.RefreshAlert(db, alert, refresh); err != nil {
		return nil, err
	}

	r.publish(events.TypeAlertUpdated, alert, now)
	r.notify(ctx, alert)
	return &RouteResult{Alert: alert, Outcome: OutcomeReopened}, nil
}

// Resolve closes the open row matching a resolve delta's identity. Nothing
// open under that fingerprint is a no-op, not an error: monitors resolve
// optimistically on every healthy observation.
func (r *Router) Resolve(db *gorm.DB, delta automation.ResolveDelta, now time.Time) (*database.Alert, error) {
	fp := Fingerprint(delta.Source, delta.Title, delta.Severity)

	mu := r.lockFor(fp)
	mu.Lock()
	defer mu.Unlock()

	latest, err := database.LatestAlertByFingerprint(db, fp)
	if err != nil {
		return nil, err
	}
	if latest == nil || !latest.IsOpen() {
		return nil, nil
	}

	if err := database.TransitionAlert(db, latest, database.AlertStatusResolved, now); err != nil {
		return nil, err
	}

	r.publish(events.TypeAlertResolved, latest, now)
	return latest, nil
}

// ResolveStale closes one row by UUID on behalf of the lifecycle sweep,
// tagging it so dashboards can tell silence from action. Rows already
// resolved (or gone) are skipped.
func (r *Router) ResolveStale(db *gorm.DB, alertUUID string, now time.Time) (*database.Alert, error) {
	alert, err := r.lookupAlert(db, alertUUID)
	if err != nil || alert == nil {
		return nil, err
	}

	mu := r.lockFor(alert.Fingerprint)
	mu.Lock()
	defer mu.Unlock()

	alert, err = database.GetAlertByUUID(db, alertUUID)
	if err != nil {
		return nil, err
	}
	if !alert.IsOpen() {
		return nil, nil
	}

	tags := mergeTags(alert.Tags, []string{database.TagAutoResolved})
	err = db.Model(&database.Alert{}).Where("id = ?", alert.ID).
		UpdateColumns(map[string]interface{}{"tags": tags, "updated_at": now}).Error
	if err != nil {
		return nil, err
	}
	alert.Tags = tags

	if err := database.TransitionAlert(db, alert, database.AlertStatusResolved, now); err != nil {
		return nil, err
	}

	r.publish(events.TypeAlertResolved, alert, now)
	return alert, nil
}

// Escalate reassigns one unattended alert and pages again. Rows that have
// been acted on since the sweep decided (acknowledged, resolved, already
// escalated) are skipped.
func (r *Router) Escalate(ctx context.Context, db *gorm.DB, alertUUID, assignTo string, now time.Time) (*database.Alert, error) {
	alert, err := r.lookupAlert(db, alertUUID)
	if err != nil || alert == nil {
		return nil, err
	}

	mu := r.lockFor(alert.Fingerprint)
	mu.Lock()
	defer mu.Unlock()

	alert, err = database.GetAlertByUUID(db, alertUUID)
	if err != nil {
		return nil, err
	}
	if alert.Status != database.AlertStatusNew || alert.Tags.Contains(database.TagEscalated) {
		return nil, nil
	}

	tags := mergeTags(alert.Tags, []string{database.TagEscalated})
	err = db.Model(&database.Alert{}).Where("id = ?", alert.ID).
		UpdateColumns(map[string]interface{}{
			"tags":        tags,
			"assigned_to": assignTo,
			"updated_at":  now,
		}).Error
	if err != nil {
		return nil, err
	}
	alert.Tags = tags
	alert.AssignedTo = assignTo
	alert.UpdatedAt = now

	r.publish(events.TypeAlertUpdated, alert, now)
	r.notify(ctx, alert)
	return alert, nil
}

// lookupAlert resolves a UUID to a row so the caller can pick the right
// stripe before re-reading under the lock. ErrNotFound maps to (nil, nil).
func (r *Router) lookupAlert(db *gorm.DB, alertUUID string) (*database.Alert, error) {
	alert, err := database.GetAlertByUUID(db, alertUUID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// enrich applies routing policy that changes the delta itself: contextual
// tags and keyword escalation. Escalation runs last so the added tag lands
// on the promoted delta.
func (r *Router) enrich(delta automation.AlertDelta, now time.Time) automation.AlertDelta {
	tags := mergeTags(nil, delta.Tags)

	switch delta.Source {
	case sourceKubernetes, automation.SourceDeploymentMonitor:
		tags = mergeTags(tags, []string{database.TagK8s})
	case automation.SourceInfrastructureMonitor:
		tags = mergeTags(tags, []string{database.TagInfra})
	}

	utc := now.UTC()
	if utc.Hour() < 6 {
		tags = mergeTags(tags, []string{database.TagNightShift})
	}
	if wd := utc.Weekday(); wd >= time.Monday && wd <= time.Friday && utc.Hour() >= 9 && utc.Hour() < 17 {
		tags = mergeTags(tags, []string{database.TagBusinessHours})
	}

	if delta.Severity == database.AlertSeverityWarning && containsEscalationKeyword(delta.Title) {
		delta.Severity = database.AlertSeverityCritical
		tags = mergeTags(tags, []string{database.TagAutoEscalated})
	}

	delta.Tags = tags
	return delta
}

func containsEscalationKeyword(title string) bool {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := escalationKeywords[w]; ok {
			return true
		}
	}
	return false
}

// mergeTags unions, keeping first-seen order
func mergeTags(existing database.StringList, incoming []string) database.StringList {
	out := make(database.StringList, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, lists := range [][]string{existing, incoming} {
		for _, tag := range lists {
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

func (r *Router) publish(t events.Type, alert *database.Alert, now time.Time) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.Event{Type: t, At: now, Payload: alert})
}

func (r *Router) notify(ctx context.Context, alert *database.Alert) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyAlert(ctx, alert); err != nil {
		log.Printf("Failed to send notification for alert %s: %v", alert.UUID, err)
	}
}
