package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rowandev/caretab/internal/metrics"
	"github.com/rowandev/caretab/internal/model"
	"github.com/rowandev/caretab/internal/store"
)

// Scheduler is the process-wide lifecycle over the schedule registry and
// run pipeline. The composition root constructs exactly one and passes
// it where needed; there is no hidden global instance.
type Scheduler struct {
	mu          sync.Mutex
	initialized bool

	jobs     *store.JobStore
	registry *Registry
	executor *Executor
	cron     CronRuntime
	sink     metrics.Sink
	logger   *slog.Logger
}

// New wires a scheduler from its parts. The registry must already fire
// into the executor's RunScheduled.
func New(jobs *store.JobStore, registry *Registry, executor *Executor, cron CronRuntime, sink metrics.Sink, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		registry: registry,
		executor: executor,
		cron:     cron,
		sink:     sink,
		logger:   logger,
	}
}

// Initialize loads every enabled job and registers its timer. Calling it
// again while initialized is a logged no-op. A job that fails to
// schedule is skipped; the rest still get their timers.
func (s *Scheduler) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		s.logger.Info("scheduler already initialized")
		return nil
	}

	jobs, err := s.jobs.ListEnabled()
	if err != nil {
		return fmt.Errorf("load enabled jobs: %w", err)
	}

	var scheduled int
	for i := range jobs {
		if err := s.registry.Schedule(&jobs[i]); err != nil {
			s.logger.Error("schedule job at init", "job", jobs[i].ID, "name", jobs[i].Name, "error", err)
			continue
		}
		scheduled++
	}

	s.initialized = true
	s.sink.ScheduledJobs(s.registry.Len())
	s.logger.Info("scheduler initialized", "scheduled", scheduled, "total", len(jobs))
	return nil
}

// Shutdown cancels every timer and resets the lifecycle. In-flight
// executions drain on their own. Safe to call before Initialize.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.CancelAll()
	s.initialized = false
	s.sink.ScheduledJobs(0)
	s.logger.Info("scheduler shut down")
}

// Initialized reports the lifecycle state.
func (s *Scheduler) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// ScheduleJob registers (or, for a disabled job, removes) the job's timer.
func (s *Scheduler) ScheduleJob(job *model.BackupJob) error {
	err := s.registry.Schedule(job)
	s.sink.ScheduledJobs(s.registry.Len())
	return err
}

// RescheduleJob is schedule-after-unschedule; Schedule already replaces
// any existing timer atomically.
func (s *Scheduler) RescheduleJob(job *model.BackupJob) error {
	return s.ScheduleJob(job)
}

// UnscheduleJob cancels the job's timer. No-op for unknown ids.
func (s *Scheduler) UnscheduleJob(jobID string) {
	s.registry.Unschedule(jobID)
	s.sink.ScheduledJobs(s.registry.Len())
}

// TriggerBackup runs a job immediately, bypassing its schedule.
func (s *Scheduler) TriggerBackup(ctx context.Context, jobID string) error {
	return s.executor.Trigger(ctx, jobID)
}

// ListScheduled returns the active schedules.
func (s *Scheduler) ListScheduled() []ScheduledJob {
	return s.registry.Scheduled()
}

// ValidateCronExpression reports whether expr is accepted by the cron
// runtime. Pure; no side effects.
func (s *Scheduler) ValidateCronExpression(expr string) bool {
	return s.cron.Validate(expr)
}

// DescribeSchedule returns a human-readable description of the job's
// effective schedule.
func (s *Scheduler) DescribeSchedule(job *model.BackupJob) string {
	return DescribeSchedule(job)
}
