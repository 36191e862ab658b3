package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store functions accept a db parameter (rather than using the global DB) to
// support dependency injection, transaction contexts, and easier testing.

// GetJobByName retrieves a single job row
func GetJobByName(db *gorm.DB, name string) (*Job, error) {
	var job Job
	if err := db.Where("name = ?", name).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &job, nil
}

// ListJobs returns all job rows in insertion order
func ListJobs(db *gorm.DB) ([]Job, error) {
	var jobs []Job
	if err := db.Order("id asc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// DueJobs returns active jobs whose next run time has arrived, ordered by
// ascending next_run_at with insertion order as the stable tie-break. The
// ordering makes dispatch deterministic under simultaneous due times.
func DueJobs(db *gorm.DB, now time.Time) ([]Job, error) {
	var jobs []Job
	err := db.Where("status = ? AND next_run_at <= ?", JobStatusActive, now).
		Order("next_run_at asc").
		Order("id asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimJob attempts to mark a job as running with a single compare-and-set
// update. Exactly one of any number of concurrent claimants wins. A stale
// claim (holder died without releasing) is reclaimable once claim_expires_at
// has passed.
func ClaimJob(db *gorm.DB, jobID uint, now time.Time, ttl time.Duration) (bool, error) {
	expires := now.Add(ttl)
	result := db.Model(&Job{}).
		Where("id = ? AND (running = ? OR claim_expires_at < ?)", jobID, false, now).
		UpdateColumns(map[string]interface{}{
			"running":          true,
			"claim_expires_at": expires,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseJob backs out a claim without recording a run. Used when a claimed
// job is dropped before execution (e.g. shutdown between claim and dispatch).
func ReleaseJob(db *gorm.DB, jobID uint, now time.Time) error {
	return db.Model(&Job{}).
		Where("id = ?", jobID).
		UpdateColumns(map[string]interface{}{
			"running":          false,
			"claim_expires_at": nil,
			"updated_at":       now,
		}).Error
}

// RunResult captures one finished execution for commit
type RunResult struct {
	CompletedAt time.Time
	Err         error // nil on success
	Metadata    JSONB // replacement handler carry-over state; nil keeps stored value
}

// CompleteJobRun releases the claim and records the outcome in one update:
// counters advance via SQL expressions so concurrent readers never observe
// run_count out of step with success_count + failure_count, and the schedule
// advances by one interval from completion time (fixed cadence, not
// drift-corrected).
func CompleteJobRun(db *gorm.DB, job *Job, res RunResult) error {
	updates := map[string]interface{}{
		"running":          false,
		"claim_expires_at": nil,
		"last_run_at":      res.CompletedAt,
		"next_run_at":      res.CompletedAt.Add(job.Interval()),
		"run_count":        gorm.Expr("run_count + 1"),
		"updated_at":       res.CompletedAt,
	}
	if res.Err != nil {
		updates["failure_count"] = gorm.Expr("failure_count + 1")
		updates["last_error"] = res.Err.Error()
	} else {
		updates["success_count"] = gorm.Expr("success_count + 1")
		updates["last_error"] = ""
		if res.Metadata != nil {
			updates["metadata"] = res.Metadata
		}
	}

	result := db.Model(&Job{}).Where("id = ?", job.ID).UpdateColumns(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", job.Name, ErrNotFound)
	}
	return nil
}

// SetJobStatus flips a job between active/paused/disabled
func SetJobStatus(db *gorm.DB, name string, status JobStatus) (*Job, error) {
	job, err := GetJobByName(db, name)
	if err != nil {
		return nil, err
	}
	if err := db.Model(job).Update("status", status).Error; err != nil {
		return nil, err
	}
	job.Status = status
	return job, nil
}
