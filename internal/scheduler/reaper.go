package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rowandev/caretab/internal/metrics"
	"github.com/rowandev/caretab/internal/model"
	"github.com/rowandev/caretab/internal/store"
)

// Reaper deletes backup artifacts that have aged past a job's retention
// window. Retention is opt-in: jobs without RetentionDays are never
// reaped.
type Reaper struct {
	history *store.HistoryStore
	backups BackupService
	sink    metrics.Sink
	logger  *slog.Logger
}

func NewReaper(history *store.HistoryStore, backups BackupService, sink metrics.Sink, logger *slog.Logger) *Reaper {
	return &Reaper{history: history, backups: backups, sink: sink, logger: logger}
}

// Cleanup removes artifacts of terminal-status runs that started before
// the retention cutoff. A history row is purged only once its artifact
// delete succeeds, so a failed delete is retried on the next pass.
// Individual failures are logged and skipped; they never abort the batch.
func (r *Reaper) Cleanup(ctx context.Context, job *model.BackupJob) error {
	if job.RetentionDays == nil {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -*job.RetentionDays)
	records, err := r.history.FindOlderThan(job.ID, cutoff, model.TerminalStatuses)
	if err != nil {
		return fmt.Errorf("find expired backups: %w", err)
	}

	var reaped int
	for _, rec := range records {
		// Failed runs leave no artifact behind; the row alone is purged.
		if rec.StorageKey != "" {
			if err := r.backups.DeleteArtifact(ctx, rec.StorageKey); err != nil {
				r.logger.Warn("delete expired artifact",
					"job", job.ID, "key", rec.StorageKey, "error", err)
				continue
			}
		}
		if err := r.history.Delete(rec.ID); err != nil {
			r.logger.Warn("purge expired history record",
				"job", job.ID, "record", rec.ID, "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.sink.ArtifactsReaped(reaped)
		r.logger.Info("retention cleanup", "job", job.ID, "reaped", reaped,
			"retention_days", *job.RetentionDays)
	}
	return nil
}
