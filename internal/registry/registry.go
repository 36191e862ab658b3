// Package registry holds the catalog of job definitions: which jobs exist,
// how often they run, and which handler evaluates them. Definitions are
// code; the registry reconciles them into job rows at startup.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/database"
)

var (
	// ErrDuplicateJob means a definition with the same name is already registered
	ErrDuplicateJob = errors.New("job already registered")
	// ErrUnknownJob means no definition exists under the requested name
	ErrUnknownJob = errors.New("unknown job")
)

// Definition describes one recurring job
type Definition struct {
	Name     string
	Kind     database.JobKind
	Interval time.Duration
	Handler  automation.Handler
}

// Registry maps job names to their definitions. Registration happens during
// startup wiring; reads happen on every scheduler cycle.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// New returns an empty registry
func New() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Names are unique; registering the same name
// twice returns ErrDuplicateJob.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("job name must not be empty")
	}
	if def.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", def.Name)
	}
	if def.Handler == nil {
		return fmt.Errorf("job %s: handler must not be nil", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("job %s: %w", def.Name, ErrDuplicateJob)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns the definition for a name
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("job %s: %w", name, ErrUnknownJob)
	}
	return def, nil
}

// Names lists registered job names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Sync reconciles definitions into job rows. Missing rows are seeded with
// their first run one full interval out, so a crash-looping process never
// hammers its own jobs at boot. Existing rows pick up interval and kind
// changes; rows whose definition disappeared are disabled rather than
// deleted, keeping their run history.
func (r *Registry) Sync(db *gorm.DB, now time.Time) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		def := r.defs[name]

		job, err := database.GetJobByName(db, name)
		if errors.Is(err, database.ErrNotFound) {
			seed := &database.Job{
				Name:            def.Name,
				Kind:            def.Kind,
				IntervalSeconds: int(def.Interval / time.Second),
				Status:          database.JobStatusActive,
				NextRunAt:       now.Add(def.Interval),
				Metadata:        database.JSONB{},
			}
			if err := db.Create(seed).Error; err != nil {
				return fmt.Errorf("failed to seed job %s: %w", name, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load job %s: %w", name, err)
		}

		updates := map[string]interface{}{}
		if interval := int(def.Interval / time.Second); job.IntervalSeconds != interval {
			updates["interval_seconds"] = interval
			updates["next_run_at"] = now.Add(def.Interval)
		}
		if job.Kind != def.Kind {
			updates["kind"] = def.Kind
		}
		// A disabled row whose definition came back is re-enabled; paused
		// stays paused, that is an operator decision.
		if job.Status == database.JobStatusDisabled {
			updates["status"] = database.JobStatusActive
		}
		if len(updates) == 0 {
			continue
		}
		updates["updated_at"] = now
		if err := db.Model(&database.Job{}).Where("id = ?", job.ID).UpdateColumns(updates).Error; err != nil {
			return fmt.Errorf("failed to update job %s: %w", name, err)
		}
	}

	orphans := db.Model(&database.Job{}).Where("status <> ?", database.JobStatusDisabled)
	if len(r.order) > 0 {
		orphans = orphans.Where("name NOT IN ?", r.order)
	}
	if err := orphans.UpdateColumns(map[string]interface{}{
		"status":     database.JobStatusDisabled,
		"updated_at": now,
	}).Error; err != nil {
		return fmt.Errorf("failed to disable orphaned jobs: %w", err)
	}
	return nil
}
