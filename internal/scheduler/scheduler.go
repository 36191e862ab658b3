// Package scheduler drives the recurring jobs: it polls for due rows, claims
// each with a compare-and-set so concurrent schedulers never double-run,
// dispatches handlers to a bounded worker pool, and commits the resulting
// deltas through the alert router and the recommendation store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/opspulse/opspulse/internal/alerts"
	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/database"
	"github.com/opspulse/opspulse/internal/events"
	"github.com/opspulse/opspulse/internal/observability"
	"github.com/opspulse/opspulse/internal/registry"
	"github.com/opspulse/opspulse/internal/source"
)

var (
	// ErrAlreadyRunning means the job holds a live claim (scheduled run or
	// another manual trigger)
	ErrAlreadyRunning = errors.New("job is already running")
	// ErrHandlerTimeout means a handler exceeded its execution budget
	ErrHandlerTimeout = errors.New("handler timed out")
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultConcurrency    = 4
	defaultHandlerTimeout = 30 * time.Second
	defaultShutdownGrace  = 20 * time.Second
	defaultClaimTTL       = 5 * time.Minute
	defaultRetention      = 1000

	// degradedThreshold is how many consecutive failures flip a job's
	// degraded gauge
	degradedThreshold = 5

	// sampleWindow is how much telemetry history a snapshot carries; wide
	// enough for any handler's trend window
	sampleWindow = 60
)

// Options tunes the scheduler. Zero values fall back to the defaults above.
type Options struct {
	PollInterval    time.Duration
	Concurrency     int
	HandlerTimeout  time.Duration
	ShutdownGrace   time.Duration
	ClaimTTL        time.Duration
	MetricRetention int

	// Now supplies the clock. Tests inject a manual clock; production
	// leaves it nil for time.Now.
	Now func() time.Time
}

// RunReport is the payload published with job.completed and job.failed events
type RunReport struct {
	Job             string  `json:"job"`
	Outcome         string  `json:"outcome"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// Scheduler owns the poll loop and the worker pool. Bus and metrics may be
// nil; the router must not be.
type Scheduler struct {
	db       *gorm.DB
	registry *registry.Registry
	source   source.Source
	router   *alerts.Router
	bus      *events.Bus
	metrics  *observability.Metrics

	pollInterval    time.Duration
	handlerTimeout  time.Duration
	shutdownGrace   time.Duration
	claimTTL        time.Duration
	metricRetention int

	now func() time.Time

	slots    chan struct{}
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	failures map[string]int
}

// New wires a scheduler. The worker pool is sized by opts.Concurrency and
// shared between scheduled runs and manual triggers.
func New(db *gorm.DB, reg *registry.Registry, src source.Source, router *alerts.Router, bus *events.Bus, metrics *observability.Metrics, opts Options) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = defaultHandlerTimeout
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = defaultShutdownGrace
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = defaultClaimTTL
	}
	if opts.MetricRetention <= 0 {
		opts.MetricRetention = defaultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{
		db:              db,
		registry:        reg,
		source:          src,
		router:          router,
		bus:             bus,
		metrics:         metrics,
		pollInterval:    opts.PollInterval,
		handlerTimeout:  opts.HandlerTimeout,
		shutdownGrace:   opts.ShutdownGrace,
		claimTTL:        opts.ClaimTTL,
		metricRetention: opts.MetricRetention,
		now:             opts.Now,
		slots:           make(chan struct{}, opts.Concurrency),
		stop:            make(chan struct{}),
		failures:        make(map[string]int),
	}
}

// Start begins the poll loop in a background goroutine
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunCycle(s.now())
		case <-s.stop:
			log.Println("Scheduler stopped")
			return
		}
	}
}

// Stop halts the poll loop and waits for in-flight runs up to the shutdown
// grace. Runs still going after that are abandoned; their claims expire via
// the claim TTL, so the jobs become runnable again.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdownGrace):
		log.Printf("Scheduler: shutdown grace %s expired, abandoning in-flight jobs", s.shutdownGrace)
	}
}

// RunCycle polls once: every due job that wins its claim and finds a free
// worker slot is dispatched. Jobs that find the pool full simply stay due and
// are picked up on a later cycle. Returns the number dispatched.
func (s *Scheduler) RunCycle(now time.Time) int {
	select {
	case <-s.stop:
		return 0
	default:
	}

	due, err := database.DueJobs(s.db, now)
	if err != nil {
		log.Printf("Scheduler: failed to list due jobs: %v", err)
		return 0
	}

	dispatched := 0
	for _, job := range due {
		def, err := s.registry.Get(job.Name)
		if err != nil {
			log.Printf("Scheduler: skipping job %s: %v", job.Name, err)
			continue
		}

		select {
		case s.slots <- struct{}{}:
		default:
			// Pool full; the row stays due for the next cycle
			continue
		}

		claimed, err := database.ClaimJob(s.db, job.ID, now, s.claimTTL)
		if err != nil || !claimed {
			<-s.slots
			if err != nil {
				log.Printf("Scheduler: failed to claim job %s: %v", job.Name, err)
			}
			continue
		}

		s.wg.Add(1)
		dispatched++
		go s.execute(job, def)
	}

	s.metrics.RecordCycle()
	s.refreshAlertGauges()
	return dispatched
}

// Trigger runs one job immediately, bypassing its schedule but not its claim:
// a job already running returns ErrAlreadyRunning. The run is synchronous and
// uses a pool slot like any scheduled run. Returns the job row after the run.
func (s *Scheduler) Trigger(ctx context.Context, name string) (*database.Job, error) {
	def, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	job, err := database.GetJobByName(s.db, name)
	if err != nil {
		return nil, err
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	claimed, err := database.ClaimJob(s.db, job.ID, s.now(), s.claimTTL)
	if err != nil {
		<-s.slots
		return nil, err
	}
	if !claimed {
		<-s.slots
		return nil, fmt.Errorf("job %s: %w", name, ErrAlreadyRunning)
	}

	s.wg.Add(1)
	s.execute(*job, def)

	return database.GetJobByName(s.db, name)
}

// execute owns one claimed run end to end: snapshot, evaluate, commit,
// complete. The claim is always released through CompleteJobRun, success or
// not, so the schedule advances even for failing jobs.
func (s *Scheduler) execute(job database.Job, def registry.Definition) {
	defer s.wg.Done()
	defer func() { <-s.slots }()

	ctx := context.Background()
	started := s.now()

	var deltas automation.Deltas
	outcome := observability.OutcomeSuccess

	snap, err := s.buildSnapshot(ctx, def.Name, &job, started)
	if err != nil {
		err = fmt.Errorf("failed to build snapshot: %w", err)
		outcome = observability.OutcomeFailure
	} else {
		deltas, outcome, err = s.evaluate(ctx, def, snap)
	}

	if err == nil {
		if commitErr := s.commit(ctx, deltas, started); commitErr != nil {
			err = commitErr
			outcome = observability.OutcomeFailure
		}
	}

	completed := s.now()
	res := database.RunResult{CompletedAt: completed, Err: err}
	if err == nil {
		res.Metadata = deltas.State
	}
	if completeErr := database.CompleteJobRun(s.db, &job, res); completeErr != nil {
		log.Printf("Scheduler: failed to record run of job %s: %v", job.Name, completeErr)
	}

	elapsed := completed.Sub(started)
	s.metrics.RecordJobRun(def.Name, outcome, elapsed)
	s.noteOutcome(def.Name, err)
	s.publishRun(def.Name, outcome, err, elapsed, completed)

	if err != nil {
		log.Printf("Job %s failed: %v", def.Name, err)
	}
}

// evaluate runs the handler under its execution budget, converting panics
// into errors. A handler that overruns is abandoned: its eventual result is
// dropped, and the run is recorded as a timeout.
func (s *Scheduler) evaluate(ctx context.Context, def registry.Definition, snap automation.Snapshot) (automation.Deltas, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.handlerTimeout)
	defer cancel()

	type result struct {
		deltas  automation.Deltas
		outcome string
		err     error
	}
	resCh := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- result{
					outcome: observability.OutcomePanic,
					err:     fmt.Errorf("job %s panicked: %v", def.Name, r),
				}
			}
		}()
		deltas, err := def.Handler.Evaluate(ctx, snap)
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeFailure
		}
		resCh <- result{deltas: deltas, outcome: outcome, err: err}
	}()

	select {
	case res := <-resCh:
		return res.deltas, res.outcome, res.err
	case <-ctx.Done():
		return automation.Deltas{}, observability.OutcomeTimeout,
			fmt.Errorf("job %s after %s: %w", def.Name, s.handlerTimeout, ErrHandlerTimeout)
	}
}

// noteOutcome tracks consecutive failures per job and flips the degraded
// gauge when the streak crosses the threshold
func (s *Scheduler) noteOutcome(name string, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runErr == nil {
		if s.failures[name] >= degradedThreshold {
			log.Printf("Job %s recovered after %d consecutive failures", name, s.failures[name])
		}
		s.failures[name] = 0
		s.metrics.SetJobDegraded(name, false)
		return
	}

	s.failures[name]++
	if s.failures[name] == degradedThreshold {
		log.Printf("Job %s is degraded: %d consecutive failures", name, s.failures[name])
	}
	if s.failures[name] >= degradedThreshold {
		s.metrics.SetJobDegraded(name, true)
	}
}

func (s *Scheduler) publishRun(name, outcome string, runErr error, elapsed time.Duration, at time.Time) {
	if s.bus == nil {
		return
	}
	report := RunReport{Job: name, Outcome: outcome, DurationSeconds: elapsed.Seconds()}
	eventType := events.TypeJobCompleted
	if runErr != nil {
		eventType = events.TypeJobFailed
		report.Error = runErr.Error()
	}
	s.bus.Publish(events.Event{Type: eventType, At: at, Payload: report})
}

func (s *Scheduler) refreshAlertGauges() {
	if s.metrics == nil {
		return
	}
	counts, err := database.CountOpenAlertsBySeverity(s.db)
	if err != nil {
		return
	}
	for _, severity := range []database.AlertSeverity{
		database.AlertSeverityCritical,
		database.AlertSeverityWarning,
		database.AlertSeverityInfo,
	} {
		s.metrics.SetOpenAlerts(string(severity), counts[severity])
	}
}
