package model

import "time"

// Frequency describes how often a backup job runs.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	// FrequencyCustom means the job carries its own cron expression.
	FrequencyCustom Frequency = "custom"
)

// ValidFrequency reports whether f is one of the known frequency values.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// BackupJob is a persisted definition of what to back up, how often,
// and how long to retain the results. RetentionDays nil means backups
// for this job are never auto-deleted.
type BackupJob struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Enabled        bool         `json:"enabled"`
	Frequency      Frequency    `json:"frequency"`
	CronExpression string       `json:"cron_expression,omitempty"`
	RetentionDays  *int         `json:"retention_days,omitempty"`
	LastRunStatus  BackupStatus `json:"last_run_status,omitempty"`
	LastRunAt      *time.Time   `json:"last_run_at,omitempty"`
	LastRunError   string       `json:"last_run_error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
