package services

import (
	"context"
	"time"

	"github.com/opspulse/opspulse/internal/alerts"
	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/events"
	"gorm.io/gorm"
)

// AlertService manages the alert lifecycle on behalf of the API. Ingestion
// goes through the router so manual submissions get the same fingerprinting,
// dedup, and notification treatment as job-emitted alerts.
type AlertService struct {
	db     *gorm.DB
	router *alerts.Router
	bus    *events.Bus
	now    func() time.Time
}

// NewAlertService creates a new AlertService
func NewAlertService(db *gorm.DB, router *alerts.Router, bus *events.Bus) *AlertService {
	return &AlertService{db: db, router: router, bus: bus, now: time.Now}
}

// List returns alerts newest first, narrowed by the given filters
func (s *AlertService) List(filters database.AlertFilters) ([]database.Alert, error) {
	return database.ListAlerts(s.db, filters)
}

// Get retrieves a single alert by UUID
func (s *AlertService) Get(uuid string) (*database.Alert, error) {
	return database.GetAlertByUUID(s.db, uuid)
}

// Ingest routes an externally submitted alert. Duplicates of an open alert
// refresh it; duplicates of a recently resolved one reopen it.
func (s *AlertService) Ingest(ctx context.Context, delta automation.AlertDelta) (*alerts.RouteResult, error) {
	return s.router.Route(ctx, s.db, delta, s.now())
}

// Acknowledge marks an alert as seen by an operator
func (s *AlertService) Acknowledge(uuid string) (*database.Alert, error) {
	return s.transition(uuid, database.AlertStatusAcknowledged, events.TypeAlertUpdated)
}

// Resolve closes an alert
func (s *AlertService) Resolve(uuid string) (*database.Alert, error) {
	return s.transition(uuid, database.AlertStatusResolved, events.TypeAlertResolved)
}

// Suppress silences an alert without resolving it
func (s *AlertService) Suppress(uuid string) (*database.Alert, error) {
	return s.transition(uuid, database.AlertStatusSuppressed, events.TypeAlertUpdated)
}

func (s *AlertService) transition(uuid string, to database.AlertStatus, evt events.Type) (*database.Alert, error) {
	alert, err := database.GetAlertByUUID(s.db, uuid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := database.TransitionAlert(s.db, alert, to, now); err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{Type: evt, At: now, Payload: alert})
	}
	return alert, nil
}
