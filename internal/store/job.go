package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rowandev/caretab/internal/model"
)

type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `id, name, enabled, frequency, cron_expression, retention_days,
	 last_run_status, last_run_at, last_run_error, created_at, updated_at`

func (s *JobStore) Create(name string, enabled bool, freq model.Frequency, cronExpr string, retentionDays *int) (*model.BackupJob, error) {
	now := time.Now().UTC()
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO backup_jobs (id, name, enabled, frequency, cron_expression, retention_days, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, enabled, freq, cronExpr, retentionDays, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup job: %w", err)
	}
	return &model.BackupJob{
		ID:             id,
		Name:           name,
		Enabled:        enabled,
		Frequency:      freq,
		CronExpression: cronExpr,
		RetentionDays:  retentionDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// GetByID returns the job, or nil if no job with that id exists.
func (s *JobStore) GetByID(id string) (*model.BackupJob, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM backup_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup job %s: %w", id, err)
	}
	return job, nil
}

func (s *JobStore) List() ([]model.BackupJob, error) {
	return s.list(`SELECT ` + jobColumns + ` FROM backup_jobs ORDER BY created_at`)
}

// ListEnabled returns every job with enabled = true, the set the scheduler
// registers timers for at startup.
func (s *JobStore) ListEnabled() ([]model.BackupJob, error) {
	return s.list(`SELECT ` + jobColumns + ` FROM backup_jobs WHERE enabled = 1 ORDER BY created_at`)
}

func (s *JobStore) list(query string) ([]model.BackupJob, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list backup jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.BackupJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *JobStore) Update(job *model.BackupJob) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE backup_jobs SET name = ?, enabled = ?, frequency = ?, cron_expression = ?, retention_days = ?, updated_at = ?
		 WHERE id = ?`,
		job.Name, job.Enabled, job.Frequency, job.CronExpression, job.RetentionDays, now, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update backup job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	job.UpdatedAt = now
	return nil
}

func (s *JobStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM backup_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete backup job %s: %w", id, err)
	}
	return nil
}

// UpdateLastRun records the outcome of the most recent run on the job row.
// errMsg is stored only for failed runs.
func (s *JobStore) UpdateLastRun(id string, status model.BackupStatus, errMsg string) error {
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE backup_jobs SET last_run_status = ?, last_run_at = ?, last_run_error = ?, updated_at = ? WHERE id = ?`,
		status, now, errPtr, now, id,
	)
	if err != nil {
		return fmt.Errorf("update last run for job %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.BackupJob, error) {
	j := &model.BackupJob{}
	var retention sql.NullInt64
	var lastStatus, lastError sql.NullString
	var lastRunAt sql.NullTime
	err := row.Scan(&j.ID, &j.Name, &j.Enabled, &j.Frequency, &j.CronExpression,
		&retention, &lastStatus, &lastRunAt, &lastError, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if retention.Valid {
		days := int(retention.Int64)
		j.RetentionDays = &days
	}
	j.LastRunStatus = model.BackupStatus(lastStatus.String)
	j.LastRunError = lastError.String
	if lastRunAt.Valid {
		j.LastRunAt = &lastRunAt.Time
	}
	return j, nil
}
