package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/events"
)

// commit applies one run's deltas in emission order. Alerts route through
// the router so dedup and paging policy apply uniformly; recommendations
// land on their pending row or create one. The first error aborts the
// commit and fails the run; deltas already applied stay applied.
func (s *Scheduler) commit(ctx context.Context, deltas automation.Deltas, now time.Time) error {
	for _, delta := range deltas.Alerts {
		if _, err := s.router.Route(ctx, s.db, delta, now); err != nil {
			return fmt.Errorf("failed to route alert %q: %w", delta.Title, err)
		}
	}
	for _, delta := range deltas.Resolves {
		if _, err := s.router.Resolve(s.db, delta, now); err != nil {
			return fmt.Errorf("failed to resolve alert %q: %w", delta.Title, err)
		}
	}
	for _, delta := range deltas.Recommendations {
		if err := s.commitRecommendation(delta, now); err != nil {
			return fmt.Errorf("failed to commit recommendation for %s: %w", delta.ResourceID, err)
		}
	}
	for _, alertUUID := range deltas.AutoResolves {
		if _, err := s.router.ResolveStale(s.db, alertUUID, now); err != nil {
			return fmt.Errorf("failed to auto-resolve alert %s: %w", alertUUID, err)
		}
	}
	for _, esc := range deltas.Escalations {
		if _, err := s.router.Escalate(ctx, s.db, esc.AlertUUID, esc.AssignTo, now); err != nil {
			return fmt.Errorf("failed to escalate alert %s: %w", esc.AlertUUID, err)
		}
	}
	for _, recUUID := range deltas.Expiries {
		if err := s.expireRecommendation(recUUID, now); err != nil {
			return fmt.Errorf("failed to expire recommendation %s: %w", recUUID, err)
		}
	}
	return nil
}

// commitRecommendation re-prices the pending row for the (resource, action)
// pair when one exists, otherwise creates it. One pending row per pair is the
// invariant this function maintains.
func (s *Scheduler) commitRecommendation(delta automation.RecommendationDelta, now time.Time) error {
	existing, err := database.FindPendingRecommendation(s.db, delta.ResourceID, delta.Action)
	if err != nil {
		return err
	}

	if existing != nil {
		if err := database.RefreshRecommendation(s.db, existing, delta.CurrentCost, delta.Savings, delta.Confidence, now); err != nil {
			return err
		}
		s.publishEvent(events.TypeRecommendationUpdated, existing, now)
		return nil
	}

	rec := &database.CostRecommendation{
		ResourceID:       delta.ResourceID,
		ResourceType:     delta.ResourceType,
		Action:           delta.Action,
		Description:      delta.Description,
		CurrentCost:      delta.CurrentCost,
		PotentialSavings: delta.Savings,
		Confidence:       delta.Confidence,
		Effort:           delta.Effort,
		Status:           database.RecommendationStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := database.InsertRecommendation(s.db, rec); err != nil {
		return err
	}
	s.publishEvent(events.TypeRecommendationCreated, rec, now)
	return nil
}

// expireRecommendation retires one pending row by UUID. Rows the sweep saw as
// pending may have been accepted or dismissed since; those are skipped, not
// errors.
func (s *Scheduler) expireRecommendation(recUUID string, now time.Time) error {
	rec, err := database.GetRecommendationByUUID(s.db, recUUID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Status != database.RecommendationStatusPending {
		return nil
	}

	if err := database.TransitionRecommendation(s.db, rec, database.RecommendationStatusExpired, now); err != nil {
		return err
	}
	s.publishEvent(events.TypeRecommendationUpdated, rec, now)
	return nil
}

func (s *Scheduler) publishEvent(eventType events.Type, payload interface{}, at time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, At: at, Payload: payload})
}
