package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rowandev/caretab/internal/model"
)

// ScheduledJob is one entry of the registry listing. Presence denotes an
// active schedule, not an in-flight execution.
type ScheduledJob struct {
	JobID   string    `json:"job_id"`
	Running bool      `json:"is_running"`
	NextRun time.Time `json:"next_run"`
}

// Registry maps job ids to their active timers. Invariant: an enabled
// job has exactly one timer; a disabled or deleted job has none. All
// mutations happen under one mutex, so concurrent schedule/unschedule
// calls for the same id can never leave two timers behind.
type Registry struct {
	mu     sync.Mutex
	cron   CronRuntime
	fire   func(jobID string)
	timers map[string]Timer
	logger *slog.Logger
}

// NewRegistry creates a registry. fire is invoked with the job id on
// every timer fire.
func NewRegistry(cron CronRuntime, fire func(jobID string), logger *slog.Logger) *Registry {
	return &Registry{
		cron:   cron,
		fire:   fire,
		timers: make(map[string]Timer),
		logger: logger,
	}
}

// Schedule registers a timer for the job, replacing any existing one.
// A disabled job only has its old timer cancelled; no new timer is
// created. Resolution or validation failures leave the job unscheduled
// and are returned to the caller.
func (r *Registry) Schedule(job *model.BackupJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[job.ID]; ok {
		t.Cancel()
		delete(r.timers, job.ID)
	}

	if !job.Enabled {
		return nil
	}

	expr, err := ResolveCronExpression(job)
	if err != nil {
		return err
	}
	if !r.cron.Validate(expr) {
		return fmt.Errorf("%w: %q", ErrInvalidCronExpression, expr)
	}

	jobID := job.ID
	timer, err := r.cron.Schedule(expr, func() { r.fire(jobID) })
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCronExpression, expr, err)
	}
	r.timers[job.ID] = timer

	r.logger.Info("job scheduled", "job", job.ID, "expr", expr, "next_run", timer.Next())
	return nil
}

// Unschedule cancels the job's timer, if any. Only future fires are
// suppressed; an execution already started runs to completion.
func (r *Registry) Unschedule(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[jobID]; ok {
		t.Cancel()
		delete(r.timers, jobID)
		r.logger.Info("job unscheduled", "job", jobID)
	}
}

// CancelAll cancels every timer and empties the registry.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.timers {
		t.Cancel()
		delete(r.timers, id)
	}
}

// Scheduled lists the active schedules with their next fire times.
func (r *Registry) Scheduled() []ScheduledJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ScheduledJob, 0, len(r.timers))
	for id, t := range r.timers {
		out = append(out, ScheduledJob{JobID: id, Running: true, NextRun: t.Next()})
	}
	return out
}

// Len returns the number of active timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
