package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecommendationAction identifies the cost-saving measure being proposed
type RecommendationAction string

const (
	RecommendationActionRightsize        RecommendationAction = "rightsize"
	RecommendationActionReservedInstance RecommendationAction = "reserved_instance"
	RecommendationActionSpotMigration    RecommendationAction = "spot_migration"
)

// ConfidenceLevel scores how much trend data backs a recommendation
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// EffortLevel scores how disruptive acting on a recommendation is
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// RecommendationStatus represents the lifecycle state of a recommendation
type RecommendationStatus string

const (
	RecommendationStatusPending   RecommendationStatus = "pending"
	RecommendationStatusAccepted  RecommendationStatus = "accepted"
	RecommendationStatusDismissed RecommendationStatus = "dismissed"
	RecommendationStatusExpired   RecommendationStatus = "expired"
)

// recommendationTransitions: pending is the only non-terminal state. Expiry
// goes through the alert_processor sweep, accept/dismiss through the API.
var recommendationTransitions = map[RecommendationStatus][]RecommendationStatus{
	RecommendationStatusPending: {
		RecommendationStatusAccepted,
		RecommendationStatusDismissed,
		RecommendationStatusExpired,
	},
}

// CanTransitionRecommendation reports whether from -> to is allowed
func CanTransitionRecommendation(from, to RecommendationStatus) bool {
	for _, allowed := range recommendationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CostRecommendation is a proposed cost-saving action for one resource.
// Costs are monthly USD. ResourceID is a loose reference: resources may
// disappear, so no foreign key is enforced.
type CostRecommendation struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	UUID             string               `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	ResourceID       string               `gorm:"size:128;not null;index" json:"resource_id"`
	ResourceType     string               `gorm:"size:64;not null" json:"resource_type"`
	Action           RecommendationAction `gorm:"type:varchar(50);not null" json:"action"`
	Description      string               `gorm:"type:text" json:"description"`
	CurrentCost      float64              `gorm:"not null" json:"current_cost"`
	PotentialSavings float64              `gorm:"not null" json:"potential_savings"`
	Confidence       ConfidenceLevel      `gorm:"type:varchar(50);not null" json:"confidence"`
	Effort           EffortLevel          `gorm:"type:varchar(50);not null" json:"effort"`
	Status           RecommendationStatus `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Validate enforces the savings bound. It must hold at creation and after
// every refresh; a violation is a handler bug and is rejected, not clamped.
func (r *CostRecommendation) Validate() error {
	if r.PotentialSavings < 0 {
		return fmt.Errorf("potential savings must be non-negative, got %.2f", r.PotentialSavings)
	}
	if r.PotentialSavings > r.CurrentCost {
		return fmt.Errorf("potential savings %.2f exceeds current cost %.2f for resource %s",
			r.PotentialSavings, r.CurrentCost, r.ResourceID)
	}
	return nil
}

// BeforeCreate hook to assign a row UUID
func (r *CostRecommendation) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	return nil
}

func (CostRecommendation) TableName() string {
	return "cost_recommendations"
}
