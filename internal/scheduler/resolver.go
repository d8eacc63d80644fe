package scheduler

import (
	"fmt"

	"github.com/rowandev/caretab/internal/model"
)

// Preset schedules run at a fixed off-peak hour, evaluated in UTC.
const (
	dailyExpr   = "0 2 * * *" // every day at 02:00
	weeklyExpr  = "0 2 * * 0" // Sundays at 02:00
	monthlyExpr = "0 2 1 * *" // day 1 of every month at 02:00
)

// ResolveCronExpression maps a job's frequency to its effective cron
// expression. Custom jobs supply their own; presets use the fixed
// off-peak expressions above.
func ResolveCronExpression(job *model.BackupJob) (string, error) {
	switch job.Frequency {
	case model.FrequencyDaily:
		return dailyExpr, nil
	case model.FrequencyWeekly:
		return weeklyExpr, nil
	case model.FrequencyMonthly:
		return monthlyExpr, nil
	case model.FrequencyCustom:
		if job.CronExpression == "" {
			return "", ErrMissingCronExpression
		}
		return job.CronExpression, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", job.Frequency)
	}
}

// DescribeSchedule returns a human-readable description of the job's
// effective schedule. Purely derived; no side effects.
func DescribeSchedule(job *model.BackupJob) string {
	switch job.Frequency {
	case model.FrequencyDaily:
		return "every day at 02:00 UTC"
	case model.FrequencyWeekly:
		return "every Sunday at 02:00 UTC"
	case model.FrequencyMonthly:
		return "on day 1 of every month at 02:00 UTC"
	case model.FrequencyCustom:
		if job.CronExpression == "" {
			return "custom schedule (no expression set)"
		}
		return fmt.Sprintf("cron %q (UTC)", job.CronExpression)
	default:
		return fmt.Sprintf("unknown frequency %q", job.Frequency)
	}
}
