package model

import "time"

// BackupStatus is the state of one backup run.
type BackupStatus string

const (
	// BackupStatusRunning is written before any backup work starts, so a
	// crash mid-run is observable afterward as a stuck running record.
	BackupStatusRunning   BackupStatus = "running"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// TerminalStatuses are the run states that will not change further.
var TerminalStatuses = []BackupStatus{BackupStatusCompleted, BackupStatusFailed}

// Backup is one run of a backup job: the history record plus the
// location of the produced artifact.
type Backup struct {
	ID           int64        `json:"id"`
	JobID        string       `json:"job_id"`
	Filename     string       `json:"filename"`
	StorageKey   string       `json:"storage_key"`
	SizeBytes    int64        `json:"size_bytes"`
	Status       BackupStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}
