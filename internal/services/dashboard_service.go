package services

import (
	"sort"

	"github.com/opspulse/opspulse/internal/database"
	"gorm.io/gorm"
)

// topRecommendations caps how many pending recommendations the dashboard
// summary carries. The full list lives behind /api/recommendations.
const topRecommendations = 5

// DashboardSummary is the single-call overview the dashboard renders
type DashboardSummary struct {
	Jobs                   []database.Job                   `json:"jobs"`
	OpenAlerts             map[database.AlertSeverity]int64 `json:"open_alerts"`
	TotalOpenAlerts        int64                            `json:"total_open_alerts"`
	PendingRecommendations int                              `json:"pending_recommendations"`
	PendingSavingsMonthly  float64                          `json:"pending_savings_monthly"`
	TopRecommendations     []database.CostRecommendation    `json:"top_recommendations"`
	LatestSample           *database.MetricSample           `json:"latest_sample,omitempty"`
}

// DashboardService assembles read-only overviews across the other stores
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Summary builds the dashboard overview: every job with its counters, open
// alert totals by severity, the biggest pending savings, and the newest
// infrastructure sample.
func (s *DashboardService) Summary() (*DashboardSummary, error) {
	jobs, err := database.ListJobs(s.db)
	if err != nil {
		return nil, err
	}

	counts, err := database.CountOpenAlertsBySeverity(s.db)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}

	pending, err := database.ListPendingRecommendations(s.db)
	if err != nil {
		return nil, err
	}
	var savings float64
	for i := range pending {
		savings += pending[i].PotentialSavings
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].PotentialSavings > pending[j].PotentialSavings
	})
	top := pending
	if len(top) > topRecommendations {
		top = top[:topRecommendations]
	}

	sample, err := database.LatestMetricSample(s.db)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		Jobs:                   jobs,
		OpenAlerts:             counts,
		TotalOpenAlerts:        total,
		PendingRecommendations: len(pending),
		PendingSavingsMonthly:  savings,
		TopRecommendations:     top,
		LatestSample:           sample,
	}, nil
}

// LatestSample returns the newest infrastructure sample, or nil before the
// first infrastructure_monitor run.
func (s *DashboardService) LatestSample() (*database.MetricSample, error) {
	return database.LatestMetricSample(s.db)
}

// SampleHistory returns up to limit recent samples, oldest first
func (s *DashboardService) SampleHistory(limit int) ([]database.MetricSample, error) {
	if limit <= 0 {
		limit = 60
	}
	return database.RecentMetricSamples(s.db, limit)
}
