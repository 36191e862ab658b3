package automation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/source"
)

func newCostOptimizerForTest() *CostOptimizer {
	return NewCostOptimizer(config.CostOptimizerConfig{
		MinSavingsAmount:   10,
		MinSavingsPercent:  5,
		LowCPUThreshold:    20,
		LowMemoryThreshold: 30,
		HighCPUThreshold:   70,
		SpotCPUThreshold:   30,
		EffortByType: map[string]string{
			"rds_instance": "high",
			"ebs_volume":   "low",
		},
	})
}

func trendWindow() []database.MetricSample {
	base := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	out := make([]database.MetricSample, trendSamples)
	for i := range out {
		out[i] = database.MetricSample{TakenAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func costSnapshot(resources ...source.ResourceUsage) Snapshot {
	return Snapshot{
		Now:       time.Date(2025, 5, 10, 12, 5, 0, 0, time.UTC),
		Samples:   trendWindow(),
		Resources: resources,
	}
}

func TestCostOptimizerRightsize(t *testing.T) {
	o := newCostOptimizerForTest()

	snap := costSnapshot(source.ResourceUsage{
		ID: "i-underused", Type: "ec2_instance", HourlyCost: 0.0832,
		UsagePattern: "low_consistent", CPUPercent: 15.2, MemoryPercent: 25.8,
	})

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out.Recommendations))
	}

	rec := out.Recommendations[0]
	if rec.Action != database.RecommendationActionRightsize {
		t.Errorf("expected rightsize, got %s", rec.Action)
	}
	monthly := 0.0832 * 24 * 30
	if math.Abs(rec.CurrentCost-monthly) > 1e-9 {
		t.Errorf("expected current cost %.4f, got %.4f", monthly, rec.CurrentCost)
	}
	if math.Abs(rec.Savings-monthly*0.5) > 1e-9 {
		t.Errorf("expected 50%% savings, got %.4f", rec.Savings)
	}
	if rec.Confidence != database.ConfidenceHigh {
		t.Errorf("expected high confidence with a full trend window, got %s", rec.Confidence)
	}
	if rec.Effort != database.EffortMedium {
		t.Errorf("expected default medium effort, got %s", rec.Effort)
	}
}

func TestCostOptimizerRightsizeConfidenceDropsWithoutTrend(t *testing.T) {
	o := newCostOptimizerForTest()

	snap := costSnapshot(source.ResourceUsage{
		ID: "i-underused", Type: "ec2_instance", HourlyCost: 0.0832,
		UsagePattern: "low_consistent", CPUPercent: 15, MemoryPercent: 25,
	})
	snap.Samples = nil

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out.Recommendations))
	}
	if out.Recommendations[0].Confidence != database.ConfidenceMedium {
		t.Errorf("expected medium confidence without trend data, got %s", out.Recommendations[0].Confidence)
	}
}

func TestCostOptimizerReservedInstance(t *testing.T) {
	o := newCostOptimizerForTest()

	snap := costSnapshot(source.ResourceUsage{
		ID: "i-steady", Type: "ec2_instance", HourlyCost: 0.192,
		UsagePattern: source.UsagePatternHighConsistent, CPUPercent: 78.5, MemoryPercent: 82.1,
	})

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out.Recommendations))
	}

	rec := out.Recommendations[0]
	if rec.Action != database.RecommendationActionReservedInstance {
		t.Errorf("expected reserved_instance, got %s", rec.Action)
	}
	if math.Abs(rec.Savings-rec.CurrentCost*0.4) > 1e-9 {
		t.Errorf("expected 40%% savings, got %.4f of %.4f", rec.Savings, rec.CurrentCost)
	}
	if rec.Effort != database.EffortLow {
		t.Errorf("expected low effort, got %s", rec.Effort)
	}
}

func TestCostOptimizerSpotMigration(t *testing.T) {
	o := newCostOptimizerForTest()

	// Memory above the rightsize floor so only the spot rule matches
	snap := costSnapshot(source.ResourceUsage{
		ID: "i-bursty", Type: "ec2_instance", HourlyCost: 0.34,
		UsagePattern: source.UsagePatternVariable, CPUPercent: 15, MemoryPercent: 55,
	})

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out.Recommendations))
	}

	rec := out.Recommendations[0]
	if rec.Action != database.RecommendationActionSpotMigration {
		t.Errorf("expected spot_migration, got %s", rec.Action)
	}
	if math.Abs(rec.Savings-rec.CurrentCost*0.8) > 1e-9 {
		t.Errorf("expected 80%% savings, got %.4f of %.4f", rec.Savings, rec.CurrentCost)
	}
	if rec.Confidence != database.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %s", rec.Confidence)
	}
	if rec.Effort != database.EffortHigh {
		t.Errorf("expected high effort, got %s", rec.Effort)
	}
}

func TestCostOptimizerRulesAreExclusive(t *testing.T) {
	o := newCostOptimizerForTest()

	// Underutilized AND variable: the rightsize rule wins, spot never fires
	snap := costSnapshot(source.ResourceUsage{
		ID: "i-both", Type: "ec2_instance", HourlyCost: 0.5,
		UsagePattern: source.UsagePatternVariable, CPUPercent: 10, MemoryPercent: 10,
	})

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 1 {
		t.Fatalf("expected exactly 1 recommendation, got %d", len(out.Recommendations))
	}
	if out.Recommendations[0].Action != database.RecommendationActionRightsize {
		t.Errorf("expected rightsize to win, got %s", out.Recommendations[0].Action)
	}
}

func TestCostOptimizerSuppressionFloors(t *testing.T) {
	o := newCostOptimizerForTest()

	// Monthly cost 7.20, rightsize savings 3.60: under the $10 floor
	snap := costSnapshot(source.ResourceUsage{
		ID: "i-tiny", Type: "ec2_instance", HourlyCost: 0.01,
		UsagePattern: "low_consistent", CPUPercent: 5, MemoryPercent: 5,
	})

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 0 {
		t.Errorf("expected suppression below the dollar floor, got %d recommendations", len(out.Recommendations))
	}

	// Same finding with a percent floor the 50%% rule cannot clear
	strict := NewCostOptimizer(config.CostOptimizerConfig{
		MinSavingsAmount: 10, MinSavingsPercent: 60,
		LowCPUThreshold: 20, LowMemoryThreshold: 30,
		HighCPUThreshold: 70, SpotCPUThreshold: 30,
	})
	snap = costSnapshot(source.ResourceUsage{
		ID: "i-big", Type: "ec2_instance", HourlyCost: 1.0,
		UsagePattern: "low_consistent", CPUPercent: 5, MemoryPercent: 5,
	})
	out, err = strict.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 0 {
		t.Errorf("expected suppression below the percent floor, got %d recommendations", len(out.Recommendations))
	}
}

func TestCostOptimizerOrdersBySavings(t *testing.T) {
	o := newCostOptimizerForTest()

	snap := costSnapshot(
		source.ResourceUsage{
			ID: "i-small", Type: "ec2_instance", HourlyCost: 0.1,
			UsagePattern: "low_consistent", CPUPercent: 5, MemoryPercent: 5,
		},
		source.ResourceUsage{
			ID: "i-large", Type: "ec2_instance", HourlyCost: 1.0,
			UsagePattern: "low_consistent", CPUPercent: 5, MemoryPercent: 5,
		},
	)

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(out.Recommendations))
	}
	if out.Recommendations[0].ResourceID != "i-large" {
		t.Errorf("expected largest savings first, got %s", out.Recommendations[0].ResourceID)
	}
}

func TestCostOptimizerEffortByResourceType(t *testing.T) {
	o := newCostOptimizerForTest()

	snap := costSnapshot(source.ResourceUsage{
		ID: "db-1", Type: "rds_instance", HourlyCost: 0.5,
		UsagePattern: "low_consistent", CPUPercent: 5, MemoryPercent: 5,
	})

	out, err := o.Evaluate(context.Background(), snap)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(out.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out.Recommendations))
	}
	if out.Recommendations[0].Effort != database.EffortHigh {
		t.Errorf("expected rds_instance rightsize to be high effort, got %s", out.Recommendations[0].Effort)
	}
}
