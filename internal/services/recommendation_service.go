package services

import (
	"time"

	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/events"
	"gorm.io/gorm"
)

// RecommendationService handles operator decisions on cost recommendations.
// The optimizer job creates and expires rows; operators accept or dismiss
// them here.
type RecommendationService struct {
	db  *gorm.DB
	bus *events.Bus
	now func() time.Time
}

// NewRecommendationService creates a new RecommendationService
func NewRecommendationService(db *gorm.DB, bus *events.Bus) *RecommendationService {
	return &RecommendationService{db: db, bus: bus, now: time.Now}
}

// List returns recommendations newest first, narrowed by the given filters
func (s *RecommendationService) List(filters database.RecommendationFilters) ([]database.CostRecommendation, error) {
	return database.ListRecommendations(s.db, filters)
}

// Get retrieves a single recommendation by UUID
func (s *RecommendationService) Get(uuid string) (*database.CostRecommendation, error) {
	return database.GetRecommendationByUUID(s.db, uuid)
}

// Accept marks a pending recommendation as accepted for action
func (s *RecommendationService) Accept(uuid string) (*database.CostRecommendation, error) {
	return s.transition(uuid, database.RecommendationStatusAccepted)
}

// Dismiss marks a pending recommendation as not worth acting on
func (s *RecommendationService) Dismiss(uuid string) (*database.CostRecommendation, error) {
	return s.transition(uuid, database.RecommendationStatusDismissed)
}

func (s *RecommendationService) transition(uuid string, to database.RecommendationStatus) (*database.CostRecommendation, error) {
	rec, err := database.GetRecommendationByUUID(s.db, uuid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := database.TransitionRecommendation(s.db, rec, to, now); err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.TypeRecommendationUpdated, At: now, Payload: rec})
	}
	return rec, nil
}
