package automation

import (
	"context"
	"fmt"
	"sort"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/source"
)

// trendSamples is how much telemetry history a rightsize finding wants
// before it claims high confidence
const trendSamples = 3

// CostOptimizer inspects the resource inventory and proposes savings. Rules
// are exclusive per resource: a rightsize candidate is never also flagged
// for spot migration in the same run.
type CostOptimizer struct {
	cfg config.CostOptimizerConfig
}

// NewCostOptimizer builds the handler from its job config
func NewCostOptimizer(cfg config.CostOptimizerConfig) *CostOptimizer {
	return &CostOptimizer{cfg: cfg}
}

// Evaluate implements the Handler interface
func (o *CostOptimizer) Evaluate(ctx context.Context, snap Snapshot) (Deltas, error) {
	var out Deltas

	rightsizeConfidence := database.ConfidenceHigh
	if len(snap.Samples) < trendSamples {
		rightsizeConfidence = database.ConfidenceMedium
	}

	for _, res := range snap.Resources {
		monthly := res.MonthlyCost()

		var delta *RecommendationDelta
		switch {
		case res.CPUPercent < o.cfg.LowCPUThreshold && res.MemoryPercent < o.cfg.LowMemoryThreshold:
			delta = &RecommendationDelta{
				Action:      database.RecommendationActionRightsize,
				Description: fmt.Sprintf("Right-size to a smaller instance type (CPU: %.1f%%, memory: %.1f%%)", res.CPUPercent, res.MemoryPercent),
				Savings:     monthly * 0.5,
				Confidence:  rightsizeConfidence,
				Effort:      o.rightsizeEffort(res.Type),
			}
		case res.UsagePattern == source.UsagePatternHighConsistent && res.CPUPercent > o.cfg.HighCPUThreshold:
			delta = &RecommendationDelta{
				Action:      database.RecommendationActionReservedInstance,
				Description: "Purchase a reserved instance for this consistent workload",
				Savings:     monthly * 0.4,
				Confidence:  database.ConfidenceHigh,
				Effort:      database.EffortLow,
			}
		case res.UsagePattern == source.UsagePatternVariable && res.CPUPercent < o.cfg.SpotCPUThreshold:
			delta = &RecommendationDelta{
				Action:      database.RecommendationActionSpotMigration,
				Description: "Migrate this fault-tolerant variable workload to spot capacity",
				Savings:     monthly * 0.8,
				Confidence:  database.ConfidenceMedium,
				Effort:      database.EffortHigh,
			}
		}

		if delta == nil {
			continue
		}
		if !o.worthReporting(delta.Savings, monthly) {
			continue
		}

		delta.ResourceID = res.ID
		delta.ResourceType = res.Type
		delta.CurrentCost = monthly
		out.Recommendations = append(out.Recommendations, *delta)
	}

	// Biggest savings first; stable so equal findings keep inventory order
	sort.SliceStable(out.Recommendations, func(i, j int) bool {
		return out.Recommendations[i].Savings > out.Recommendations[j].Savings
	})

	return out, nil
}

// worthReporting applies the suppression floors: absolute dollars and share
// of the resource's cost, both must clear.
func (o *CostOptimizer) worthReporting(savings, monthly float64) bool {
	if savings < o.cfg.MinSavingsAmount {
		return false
	}
	if monthly <= 0 {
		return false
	}
	return savings/monthly*100 >= o.cfg.MinSavingsPercent
}

// rightsizeEffort looks up how disruptive resizing this resource type is.
// Reserved and spot findings carry fixed effort; only resizing varies by
// what is being resized.
func (o *CostOptimizer) rightsizeEffort(resourceType string) database.EffortLevel {
	switch o.cfg.EffortByType[resourceType] {
	case "low":
		return database.EffortLow
	case "high":
		return database.EffortHigh
	default:
		return database.EffortMedium
	}
}
