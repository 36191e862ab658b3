package services

import (
	"context"
	"fmt"
	"log"

	"github.com/opspulse/opspulse/internal/database"
	"gorm.io/gorm"
)

// JobRunner triggers a job run outside its schedule. The scheduler
// implements it.
type JobRunner interface {
	Trigger(ctx context.Context, name string) (*database.Job, error)
}

// JobService exposes the job table and manual run controls
type JobService struct {
	db     *gorm.DB
	runner JobRunner
}

// NewJobService creates a new JobService
func NewJobService(db *gorm.DB, runner JobRunner) *JobService {
	return &JobService{db: db, runner: runner}
}

// List returns all jobs in registration order
func (s *JobService) List() ([]database.Job, error) {
	return database.ListJobs(s.db)
}

// Get retrieves a single job by name
func (s *JobService) Get(name string) (*database.Job, error) {
	return database.GetJobByName(s.db, name)
}

// Trigger runs the named job immediately, bypassing its schedule. It blocks
// until the run finishes and returns the refreshed row.
func (s *JobService) Trigger(ctx context.Context, name string) (*database.Job, error) {
	return s.runner.Trigger(ctx, name)
}

// Pause takes an active job off the schedule. In-flight runs finish.
func (s *JobService) Pause(name string) (*database.Job, error) {
	return s.flipStatus(name, database.JobStatusActive, database.JobStatusPaused)
}

// Resume puts a paused job back on the schedule
func (s *JobService) Resume(name string) (*database.Job, error) {
	return s.flipStatus(name, database.JobStatusPaused, database.JobStatusActive)
}

// flipStatus moves a job between the two operator-controlled states. Disabled
// jobs are owned by the jobs file and stay out of reach.
func (s *JobService) flipStatus(name string, from, to database.JobStatus) (*database.Job, error) {
	job, err := database.GetJobByName(s.db, name)
	if err != nil {
		return nil, err
	}
	if job.Status != from {
		return nil, fmt.Errorf("job %s is %s: %w", name, job.Status, database.ErrInvalidTransition)
	}
	updated, err := database.SetJobStatus(s.db, name, to)
	if err != nil {
		return nil, err
	}
	log.Printf("Job %s %s", name, to)
	return updated, nil
}
