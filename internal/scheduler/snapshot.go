package scheduler

import (
	"context"
	"time"

	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/registry"
)

// buildSnapshot gathers everything a handler needs so the handler itself
// stays pure. Each built-in job reads a different slice of the world; jobs
// the scheduler does not recognize get the base snapshot (clock plus their
// own carry-over state).
//
// The infrastructure job's fresh sample is persisted here, before the window
// is read back, so the sample the handler evaluates is already durable.
func (s *Scheduler) buildSnapshot(ctx context.Context, name string, job *database.Job, now time.Time) (automation.Snapshot, error) {
	snap := automation.Snapshot{Now: now, State: job.Metadata}

	switch name {
	case registry.JobInfrastructureMonitor:
		sample, err := s.source.Sample(ctx)
		if err != nil {
			return snap, err
		}
		if err := database.InsertMetricSample(s.db, sample, s.metricRetention); err != nil {
			return snap, err
		}
		samples, err := database.RecentMetricSamples(s.db, sampleWindow)
		if err != nil {
			return snap, err
		}
		snap.Samples = samples

	case registry.JobDeploymentMonitor:
		deployments, err := s.source.Deployments(ctx)
		if err != nil {
			return snap, err
		}
		snap.Deployments = deployments

	case registry.JobCostOptimizer:
		resources, err := s.source.Resources(ctx)
		if err != nil {
			return snap, err
		}
		samples, err := database.RecentMetricSamples(s.db, sampleWindow)
		if err != nil {
			return snap, err
		}
		pending, err := database.ListPendingRecommendations(s.db)
		if err != nil {
			return snap, err
		}
		snap.Resources = resources
		snap.Samples = samples
		snap.Pending = pending

	case registry.JobAlertProcessor:
		open, err := database.ListOpenAlerts(s.db)
		if err != nil {
			return snap, err
		}
		pending, err := database.ListPendingRecommendations(s.db)
		if err != nil {
			return snap, err
		}
		snap.OpenAlerts = open
		snap.Pending = pending
	}

	return snap, nil
}
