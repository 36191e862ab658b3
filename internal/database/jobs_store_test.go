package database

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDueJobs_OrderAndFiltering(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Due later in the cycle, inserted first
	late := mustCreateJob(t, db, "cost_optimizer", 5*time.Minute, now.Add(-1*time.Second))
	// Due earliest
	early := mustCreateJob(t, db, "infrastructure_monitor", time.Minute, now.Add(-30*time.Second))
	// Same due time as late but inserted after: insertion order breaks the tie
	tied := mustCreateJob(t, db, "deployment_monitor", time.Minute, now.Add(-1*time.Second))
	// Not due yet
	mustCreateJob(t, db, "alert_processor", 2*time.Minute, now.Add(time.Hour))
	// Due but paused
	paused := mustCreateJob(t, db, "paused_job", time.Minute, now.Add(-time.Minute))
	db.Model(paused).Update("status", JobStatusPaused)

	due, err := DueJobs(db, now)
	if err != nil {
		t.Fatalf("DueJobs() error = %v", err)
	}

	if len(due) != 3 {
		t.Fatalf("expected 3 due jobs, got %d", len(due))
	}
	if due[0].ID != early.ID {
		t.Errorf("expected %s first, got %s", early.Name, due[0].Name)
	}
	if due[1].ID != late.ID {
		t.Errorf("expected %s second (earlier insertion), got %s", late.Name, due[1].Name)
	}
	if due[2].ID != tied.ID {
		t.Errorf("expected %s third, got %s", tied.Name, due[2].Name)
	}
}

func TestClaimJob_Exclusive(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := mustCreateJob(t, db, "deployment_monitor", time.Minute, now)

	claimed, err := ClaimJob(db, job.ID, now, time.Minute)
	if err != nil {
		t.Fatalf("ClaimJob() error = %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	claimed, err = ClaimJob(db, job.ID, now, time.Minute)
	if err != nil {
		t.Fatalf("second ClaimJob() error = %v", err)
	}
	if claimed {
		t.Error("expected second claim to fail while job is running")
	}
}

func TestClaimJob_ConcurrentSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := mustCreateJob(t, db, "infrastructure_monitor", time.Minute, now)

	const claimants = 8
	var wg sync.WaitGroup
	wins := make(chan bool, claimants)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ClaimJob(db, job.ID, now, time.Minute)
			if err != nil {
				t.Errorf("ClaimJob() error = %v", err)
				return
			}
			if ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Errorf("expected exactly 1 winning claim, got %d", winners)
	}
}

func TestClaimJob_StaleClaimReclaimable(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := mustCreateJob(t, db, "cost_optimizer", time.Minute, start)

	if ok, _ := ClaimJob(db, job.ID, start, 30*time.Second); !ok {
		t.Fatal("expected initial claim to succeed")
	}

	// Holder died; before expiry the claim still blocks
	beforeExpiry := start.Add(20 * time.Second)
	if ok, _ := ClaimJob(db, job.ID, beforeExpiry, 30*time.Second); ok {
		t.Error("expected claim to be held before expiry")
	}

	// After expiry the job is treated as available again
	afterExpiry := start.Add(31 * time.Second)
	ok, err := ClaimJob(db, job.ID, afterExpiry, 30*time.Second)
	if err != nil {
		t.Fatalf("ClaimJob() after expiry error = %v", err)
	}
	if !ok {
		t.Error("expected expired claim to be reclaimable")
	}
}

func TestReleaseJob_MakesJobClaimable(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := mustCreateJob(t, db, "alert_processor", time.Minute, now)

	if ok, _ := ClaimJob(db, job.ID, now, time.Minute); !ok {
		t.Fatal("expected claim to succeed")
	}
	if err := ReleaseJob(db, job.ID, now); err != nil {
		t.Fatalf("ReleaseJob() error = %v", err)
	}

	reloaded, err := GetJobByName(db, "alert_processor")
	if err != nil {
		t.Fatalf("GetJobByName() error = %v", err)
	}
	if reloaded.Running {
		t.Error("expected released job to not be running")
	}
	if reloaded.RunCount != 0 {
		t.Errorf("expected release to not count a run, got run_count %d", reloaded.RunCount)
	}

	if ok, _ := ClaimJob(db, job.ID, now, time.Minute); !ok {
		t.Error("expected released job to be claimable again")
	}
}

func TestCompleteJobRun_Success(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := mustCreateJob(t, db, "deployment_monitor", 30*time.Second, start)

	if ok, _ := ClaimJob(db, job.ID, start, time.Minute); !ok {
		t.Fatal("expected claim to succeed")
	}

	completed := start.Add(2 * time.Second)
	err := CompleteJobRun(db, job, RunResult{
		CompletedAt: completed,
		Metadata:    JSONB{"deployments": map[string]interface{}{"default/api": "degraded"}},
	})
	if err != nil {
		t.Fatalf("CompleteJobRun() error = %v", err)
	}

	reloaded, _ := GetJobByName(db, "deployment_monitor")
	if reloaded.Running {
		t.Error("expected claim to be released")
	}
	if reloaded.RunCount != 1 || reloaded.SuccessCount != 1 || reloaded.FailureCount != 0 {
		t.Errorf("expected counters 1/1/0, got %d/%d/%d",
			reloaded.RunCount, reloaded.SuccessCount, reloaded.FailureCount)
	}
	if reloaded.LastRunAt == nil || !reloaded.LastRunAt.Equal(completed) {
		t.Errorf("expected last_run_at %v, got %v", completed, reloaded.LastRunAt)
	}
	wantNext := completed.Add(30 * time.Second)
	if !reloaded.NextRunAt.Equal(wantNext) {
		t.Errorf("expected next_run_at %v, got %v", wantNext, reloaded.NextRunAt)
	}
	if !reloaded.NextRunAt.Equal(reloaded.LastRunAt.Add(reloaded.Interval())) {
		t.Error("expected next_run_at == last_run_at + interval after completion")
	}
	if _, ok := reloaded.Metadata["deployments"]; !ok {
		t.Error("expected handler metadata to be persisted")
	}
}

func TestCompleteJobRun_FailureKeepsMetadataAndCounts(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := mustCreateJob(t, db, "infrastructure_monitor", time.Minute, start)
	db.Model(job).Update("metadata", JSONB{"carried": true})

	if ok, _ := ClaimJob(db, job.ID, start, time.Minute); !ok {
		t.Fatal("expected claim to succeed")
	}

	runErr := errors.New("metric source unreachable")
	completed := start.Add(time.Second)
	if err := CompleteJobRun(db, job, RunResult{CompletedAt: completed, Err: runErr}); err != nil {
		t.Fatalf("CompleteJobRun() error = %v", err)
	}

	reloaded, _ := GetJobByName(db, "infrastructure_monitor")
	if reloaded.RunCount != 1 || reloaded.SuccessCount != 0 || reloaded.FailureCount != 1 {
		t.Errorf("expected counters 1/0/1, got %d/%d/%d",
			reloaded.RunCount, reloaded.SuccessCount, reloaded.FailureCount)
	}
	if reloaded.LastError != "metric source unreachable" {
		t.Errorf("expected last_error recorded, got '%s'", reloaded.LastError)
	}
	if _, ok := reloaded.Metadata["carried"]; !ok {
		t.Error("expected failure to keep previously stored metadata")
	}
	if !reloaded.NextRunAt.Equal(completed.Add(time.Minute)) {
		t.Error("expected schedule to advance on failure")
	}

	// A later success clears the recorded error
	if ok, _ := ClaimJob(db, reloaded.ID, completed.Add(time.Minute), time.Minute); !ok {
		t.Fatal("expected reclaim to succeed")
	}
	if err := CompleteJobRun(db, reloaded, RunResult{CompletedAt: completed.Add(61 * time.Second)}); err != nil {
		t.Fatalf("CompleteJobRun() error = %v", err)
	}
	final, _ := GetJobByName(db, "infrastructure_monitor")
	if final.LastError != "" {
		t.Errorf("expected last_error cleared on success, got '%s'", final.LastError)
	}
	if final.RunCount != final.SuccessCount+final.FailureCount {
		t.Errorf("expected run_count == success+failure, got %d != %d+%d",
			final.RunCount, final.SuccessCount, final.FailureCount)
	}
}

func TestGetJobByName_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetJobByName(db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetJobStatus(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mustCreateJob(t, db, "cost_optimizer", time.Minute, now)

	job, err := SetJobStatus(db, "cost_optimizer", JobStatusPaused)
	if err != nil {
		t.Fatalf("SetJobStatus() error = %v", err)
	}
	if job.Status != JobStatusPaused {
		t.Errorf("expected paused, got %s", job.Status)
	}

	due, _ := DueJobs(db, now.Add(time.Hour))
	if len(due) != 0 {
		t.Errorf("expected paused job to never be due, got %d", len(due))
	}

	if _, err := SetJobStatus(db, "missing", JobStatusPaused); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown job, got %v", err)
	}
}
