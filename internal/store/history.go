package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rowandev/caretab/internal/model"
)

// HistoryStore persists backup run records. A record is created in the
// running state before any backup work starts and moved to a terminal
// state (completed or failed) when the run resolves.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const historyColumns = `id, job_id, filename, storage_key, size_bytes, status, error_message, started_at, completed_at`

// Start inserts a running record for a new run of the job.
func (s *HistoryStore) Start(jobID string) (*model.Backup, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO backup_history (job_id, status, started_at) VALUES (?, ?, ?)`,
		jobID, model.BackupStatusRunning, now,
	)
	if err != nil {
		return nil, fmt.Errorf("start backup record: %w", err)
	}
	id, _ := res.LastInsertId()
	return &model.Backup{
		ID:        id,
		JobID:     jobID,
		Status:    model.BackupStatusRunning,
		StartedAt: now,
	}, nil
}

// Complete marks the record completed and stores the produced artifact's
// name, storage key, and size.
func (s *HistoryStore) Complete(id int64, filename, storageKey string, sizeBytes int64) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE backup_history SET status = ?, filename = ?, storage_key = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		model.BackupStatusCompleted, filename, storageKey, sizeBytes, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete backup record %d: %w", id, err)
	}
	return nil
}

// Fail marks the record failed with the error message from the run.
func (s *HistoryStore) Fail(id int64, errMsg string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE backup_history SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		model.BackupStatusFailed, errMsg, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail backup record %d: %w", id, err)
	}
	return nil
}

// GetByID returns the record, or nil if it does not exist.
func (s *HistoryStore) GetByID(id int64) (*model.Backup, error) {
	row := s.db.QueryRow(`SELECT `+historyColumns+` FROM backup_history WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup record %d: %w", id, err)
	}
	return b, nil
}

// ListByJob returns the most recent records for a job, newest first.
func (s *HistoryStore) ListByJob(jobID string, limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT `+historyColumns+` FROM backup_history WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backup history: %w", err)
	}
	defer rows.Close()
	return collectBackups(rows)
}

// FindOlderThan returns records for a job that started before cutoff and
// are in one of the given statuses. The retention reaper uses this with
// the terminal statuses only, so in-flight runs are never reaped.
func (s *HistoryStore) FindOlderThan(jobID string, cutoff time.Time, statuses []model.BackupStatus) ([]model.Backup, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := []any{jobID, cutoff}
	for _, st := range statuses {
		args = append(args, st)
	}
	rows, err := s.db.Query(
		`SELECT `+historyColumns+` FROM backup_history
		 WHERE job_id = ? AND started_at < ? AND status IN (`+placeholders+`)
		 ORDER BY started_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find old backups: %w", err)
	}
	defer rows.Close()
	return collectBackups(rows)
}

// Delete removes a history record. Called by the reaper after the
// underlying artifact has been deleted.
func (s *HistoryStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM backup_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete backup record %d: %w", id, err)
	}
	return nil
}

func collectBackups(rows *sql.Rows) ([]model.Backup, error) {
	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup record: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func scanBackup(row rowScanner) (*model.Backup, error) {
	b := &model.Backup{}
	var errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&b.ID, &b.JobID, &b.Filename, &b.StorageKey, &b.SizeBytes,
		&b.Status, &errMsg, &b.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	b.ErrorMessage = errMsg.String
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return b, nil
}
