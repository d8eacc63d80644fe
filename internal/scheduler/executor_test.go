package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rowandev/caretab/internal/model"
)

func TestExecuteRecordsSuccess(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "nightly", true, model.FrequencyDaily, "", nil)

	env.executor.Execute(context.Background(), job)

	got, err := env.jobs.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.LastRunStatus != model.BackupStatusCompleted {
		t.Errorf("last run status = %q, want %q", got.LastRunStatus, model.BackupStatusCompleted)
	}
	if got.LastRunAt == nil {
		t.Error("last run time should be set")
	}
	if got.LastRunError != "" {
		t.Errorf("last run error = %q, want empty", got.LastRunError)
	}

	records, err := env.history.ListByJob(job.ID, 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != model.BackupStatusCompleted {
		t.Errorf("record status = %q, want %q", rec.Status, model.BackupStatusCompleted)
	}
	if rec.Filename == "" || rec.StorageKey == "" {
		t.Errorf("record artifact fields not set: filename=%q key=%q", rec.Filename, rec.StorageKey)
	}
	if rec.SizeBytes == 0 {
		t.Error("record size should be set")
	}
	if rec.CompletedAt == nil {
		t.Error("record completion time should be set")
	}
}

func TestExecuteRecordsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.backups.fail = true
	job := env.createJob(t, "nightly", true, model.FrequencyDaily, "", nil)

	// Must not panic or propagate; the failure lands in the records.
	env.executor.Execute(context.Background(), job)

	got, err := env.jobs.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.LastRunStatus != model.BackupStatusFailed {
		t.Errorf("last run status = %q, want %q", got.LastRunStatus, model.BackupStatusFailed)
	}
	if got.LastRunError == "" {
		t.Error("last run error should be set")
	}

	records, err := env.history.ListByJob(job.ID, 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	if records[0].Status != model.BackupStatusFailed {
		t.Errorf("record status = %q, want %q", records[0].Status, model.BackupStatusFailed)
	}
	if records[0].ErrorMessage == "" {
		t.Error("record error message should be set")
	}
}

func TestTriggerUnknownJob(t *testing.T) {
	env := newTestEnv(t)

	err := env.executor.Trigger(context.Background(), "no-such-job")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("error = %v, want ErrJobNotFound", err)
	}
}

func TestTriggerRunsJob(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "nightly", true, model.FrequencyDaily, "", nil)

	if err := env.executor.Trigger(context.Background(), job.ID); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got := env.backups.createdCount(); got != 1 {
		t.Errorf("backups created = %d, want 1", got)
	}
}

func TestOverlappingRunsCoalesce(t *testing.T) {
	env := newTestEnv(t)
	env.backups.started = make(chan struct{}, 1)
	env.backups.block = make(chan struct{})
	job := env.createJob(t, "nightly", true, model.FrequencyDaily, "", nil)

	done := make(chan struct{})
	go func() {
		env.executor.Execute(context.Background(), job)
		close(done)
	}()

	// Wait until the first run is inside the backup call, then fire again.
	<-env.backups.started
	env.executor.Execute(context.Background(), job)

	close(env.backups.block)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for first run to finish")
	}

	if got := env.backups.createdCount(); got != 1 {
		t.Errorf("backups created = %d, want 1 (second fire coalesced)", got)
	}
	records, err := env.history.ListByJob(job.ID, 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("history records = %d, want 1", len(records))
	}
}

func TestConcurrentRunsOfDifferentJobs(t *testing.T) {
	env := newTestEnv(t)
	env.backups.started = make(chan struct{}, 1)
	env.backups.block = make(chan struct{})
	first := env.createJob(t, "first", true, model.FrequencyDaily, "", nil)
	second := env.createJob(t, "second", true, model.FrequencyDaily, "", nil)

	done := make(chan struct{})
	go func() {
		env.executor.Execute(context.Background(), first)
		close(done)
	}()
	<-env.backups.started

	// A different job is not blocked by the in-flight run.
	secondDone := make(chan struct{})
	go func() {
		env.executor.Execute(context.Background(), second)
		close(secondDone)
	}()
	<-env.backups.started

	close(env.backups.block)
	for _, ch := range []chan struct{}{done, secondDone} {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for runs to finish")
		}
	}

	if got := env.backups.createdCount(); got != 2 {
		t.Errorf("backups created = %d, want 2", got)
	}
}

func TestRunScheduledSkipsMissingJob(t *testing.T) {
	env := newTestEnv(t)

	env.executor.RunScheduled("no-such-job")

	if got := env.backups.createdCount(); got != 0 {
		t.Errorf("backups created = %d, want 0", got)
	}
}

func TestRunScheduledSkipsDisabledJob(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "paused", false, model.FrequencyDaily, "", nil)

	env.executor.RunScheduled(job.ID)

	if got := env.backups.createdCount(); got != 0 {
		t.Errorf("backups created = %d, want 0", got)
	}
}

func TestCleanupFailureKeepsRunCompleted(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "nightly", true, model.FrequencyDaily, "", intPtr(7))

	// An expired record whose artifact cannot be deleted.
	old := time.Now().UTC().AddDate(0, 0, -30)
	recID := insertHistory(t, env.db, job.ID, model.BackupStatusCompleted, "jobs/x/stale.db.enc", old)
	env.backups.deleteErr = errors.New("access denied")

	env.executor.Execute(context.Background(), job)

	got, err := env.jobs.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.LastRunStatus != model.BackupStatusCompleted {
		t.Errorf("last run status = %q, want %q (cleanup failure must not change it)", got.LastRunStatus, model.BackupStatusCompleted)
	}

	rec, err := env.history.GetByID(recID)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if rec == nil {
		t.Error("expired record should survive a failed artifact delete")
	}
}

func TestExecuteNotifiesRunEvents(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t, "nightly", true, model.FrequencyDaily, "", nil)

	var events []RunEvent
	env.executor.SetNotifier(func(ev RunEvent) { events = append(events, ev) })

	env.executor.Execute(context.Background(), job)

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Status != model.BackupStatusRunning {
		t.Errorf("first event status = %q, want %q", events[0].Status, model.BackupStatusRunning)
	}
	if events[1].Status != model.BackupStatusCompleted {
		t.Errorf("second event status = %q, want %q", events[1].Status, model.BackupStatusCompleted)
	}
	if events[0].JobID != job.ID || events[0].JobName != job.Name {
		t.Errorf("event identity = %q/%q, want %q/%q", events[0].JobID, events[0].JobName, job.ID, job.Name)
	}
}
