package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GetRecommendationByUUID retrieves a single recommendation row
func GetRecommendationByUUID(db *gorm.DB, id string) (*CostRecommendation, error) {
	var rec CostRecommendation
	if err := db.Where("uuid = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// FindPendingRecommendation returns the open recommendation for a
// (resource, action) pair, or nil when none exists. At most one pending row
// per pair is maintained by the commit path.
func FindPendingRecommendation(db *gorm.DB, resourceID string, action RecommendationAction) (*CostRecommendation, error) {
	var rec CostRecommendation
	err := db.Where("resource_id = ? AND action = ? AND status = ?",
		resourceID, action, RecommendationStatusPending).
		Order("id desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecommendationFilters narrows recommendation listings
type RecommendationFilters struct {
	Status RecommendationStatus
	Limit  int
}

// ListRecommendations returns recommendations newest first, biggest savings
// first within the same creation instant.
func ListRecommendations(db *gorm.DB, filters RecommendationFilters) ([]CostRecommendation, error) {
	query := db.Model(&CostRecommendation{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	var recs []CostRecommendation
	err := query.Order("created_at desc").
		Order("potential_savings desc").
		Order("id asc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ListPendingRecommendations returns all open recommendations in insertion order
func ListPendingRecommendations(db *gorm.DB) ([]CostRecommendation, error) {
	var recs []CostRecommendation
	err := db.Where("status = ?", RecommendationStatusPending).
		Order("id asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// InsertRecommendation validates the savings bound and creates the row
func InsertRecommendation(db *gorm.DB, rec *CostRecommendation) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return db.Create(rec).Error
}

// RefreshRecommendation re-prices an existing pending row. The savings bound
// is validated against the incoming figures before anything is written.
func RefreshRecommendation(db *gorm.DB, rec *CostRecommendation, currentCost, savings float64, confidence ConfidenceLevel, now time.Time) error {
	updated := *rec
	updated.CurrentCost = currentCost
	updated.PotentialSavings = savings
	if err := updated.Validate(); err != nil {
		return err
	}

	err := db.Model(&CostRecommendation{}).Where("id = ?", rec.ID).
		UpdateColumns(map[string]interface{}{
			"current_cost":      currentCost,
			"potential_savings": savings,
			"confidence":        confidence,
			"updated_at":        now,
		}).Error
	if err != nil {
		return err
	}

	rec.CurrentCost = currentCost
	rec.PotentialSavings = savings
	rec.Confidence = confidence
	rec.UpdatedAt = now
	return nil
}

// TransitionRecommendation moves a recommendation through its lifecycle,
// rejecting moves out of terminal states.
func TransitionRecommendation(db *gorm.DB, rec *CostRecommendation, to RecommendationStatus, now time.Time) error {
	if !CanTransitionRecommendation(rec.Status, to) {
		return fmt.Errorf("recommendation %s: %s -> %s: %w", rec.UUID, rec.Status, to, ErrInvalidTransition)
	}

	err := db.Model(&CostRecommendation{}).Where("id = ?", rec.ID).
		UpdateColumns(map[string]interface{}{
			"status":     to,
			"updated_at": now,
		}).Error
	if err != nil {
		return err
	}

	rec.Status = to
	rec.UpdatedAt = now
	return nil
}
