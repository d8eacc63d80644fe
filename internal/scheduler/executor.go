package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rowandev/caretab/internal/backup"
	"github.com/rowandev/caretab/internal/metrics"
	"github.com/rowandev/caretab/internal/model"
	"github.com/rowandev/caretab/internal/store"
)

// BackupService produces and deletes backup artifacts. Implemented by
// backup.Service; an interface so tests can substitute a fake.
type BackupService interface {
	CreateBackup(ctx context.Context, job *model.BackupJob) (backup.Artifact, error)
	DeleteArtifact(ctx context.Context, storageKey string) error
}

// RunEvent describes a run lifecycle change, delivered to an optional
// notifier (the operator websocket hub).
type RunEvent struct {
	JobID   string
	JobName string
	Status  model.BackupStatus
	Error   string
}

// Executor runs the backup pipeline for one job at a time per job id.
// Run-time failures are persisted to the job and its history record and
// never propagate out of a timer callback.
type Executor struct {
	jobs    *store.JobStore
	history *store.HistoryStore
	backups BackupService
	reaper  *Reaper
	sink    metrics.Sink
	logger  *slog.Logger
	notify  func(RunEvent)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewExecutor(jobs *store.JobStore, history *store.HistoryStore, backups BackupService, reaper *Reaper, sink metrics.Sink, logger *slog.Logger) *Executor {
	return &Executor{
		jobs:    jobs,
		history: history,
		backups: backups,
		reaper:  reaper,
		sink:    sink,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// SetNotifier installs a run event callback. Must be called before the
// scheduler is initialized.
func (e *Executor) SetNotifier(fn func(RunEvent)) {
	e.notify = fn
}

// RunScheduled is the timer-fire entrypoint. It re-reads the job so each
// tick executes against the current definition, not the one that existed
// when the timer was registered.
func (e *Executor) RunScheduled(jobID string) {
	job, err := e.jobs.GetByID(jobID)
	if err != nil {
		e.logger.Error("load job for scheduled run", "job", jobID, "error", err)
		return
	}
	if job == nil || !job.Enabled {
		// Deleted or disabled between registration and fire.
		e.logger.Warn("scheduled fire for inactive job, skipping", "job", jobID)
		return
	}
	e.Execute(context.Background(), job)
}

// Trigger runs a job immediately, outside its schedule.
func (e *Executor) Trigger(ctx context.Context, jobID string) error {
	job, err := e.jobs.GetByID(jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	e.Execute(ctx, job)
	return nil
}

// Execute runs one backup for the job. If a run for the same job id is
// already in flight the fire is coalesced: skipped, not queued.
func (e *Executor) Execute(ctx context.Context, job *model.BackupJob) {
	// TryLock is atomic, so two overlapping fires cannot both proceed.
	lock := e.jobLock(job.ID)
	if !lock.TryLock() {
		e.logger.Warn("backup still running, skipping fire", "job", job.ID)
		e.sink.RunSkipped()
		return
	}
	defer lock.Unlock()

	start := time.Now()
	e.sink.RunStarted()
	e.emit(RunEvent{JobID: job.ID, JobName: job.Name, Status: model.BackupStatusRunning})

	// The running status must be persisted before any backup work so a
	// crash mid-run is observable afterward as a stuck running record.
	if err := e.jobs.UpdateLastRun(job.ID, model.BackupStatusRunning, ""); err != nil {
		e.logger.Error("mark job running", "job", job.ID, "error", err)
		e.sink.RunFailed()
		return
	}
	rec, err := e.history.Start(job.ID)
	if err != nil {
		e.logger.Error("start history record", "job", job.ID, "error", err)
		e.failJob(job, err)
		return
	}

	artifact, err := e.backups.CreateBackup(ctx, job)
	if err != nil {
		if hErr := e.history.Fail(rec.ID, err.Error()); hErr != nil {
			e.logger.Error("record backup failure", "job", job.ID, "error", hErr)
		}
		e.failJob(job, err)
		e.logger.Error("backup failed", "job", job.ID, "error", err)
		return
	}

	if err := e.history.Complete(rec.ID, artifact.Filename, artifact.StorageKey, artifact.SizeBytes); err != nil {
		e.logger.Error("record backup completion", "job", job.ID, "error", err)
	}
	if err := e.jobs.UpdateLastRun(job.ID, model.BackupStatusCompleted, ""); err != nil {
		e.logger.Error("mark job completed", "job", job.ID, "error", err)
	}
	e.sink.RunCompleted(time.Since(start), artifact.SizeBytes)
	e.emit(RunEvent{JobID: job.ID, JobName: job.Name, Status: model.BackupStatusCompleted})
	e.logger.Info("backup completed",
		"job", job.ID, "artifact", artifact.Filename,
		"size_bytes", artifact.SizeBytes, "duration", time.Since(start))

	// Retention cleanup runs only after a successful backup. Its failures
	// are logged and swallowed; the recorded run status stays completed.
	if err := e.reaper.Cleanup(ctx, job); err != nil {
		e.logger.Error("retention cleanup failed", "job", job.ID, "error", err)
		e.sink.CleanupFailed()
	}
}

func (e *Executor) failJob(job *model.BackupJob, cause error) {
	if err := e.jobs.UpdateLastRun(job.ID, model.BackupStatusFailed, cause.Error()); err != nil {
		e.logger.Error("mark job failed", "job", job.ID, "error", err)
	}
	e.sink.RunFailed()
	e.emit(RunEvent{JobID: job.ID, JobName: job.Name, Status: model.BackupStatusFailed, Error: cause.Error()})
}

func (e *Executor) emit(ev RunEvent) {
	if e.notify != nil {
		e.notify(ev)
	}
}

func (e *Executor) jobLock(jobID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[jobID] = lock
	}
	return lock
}
