package scheduler

import "errors"

var (
	// ErrInvalidCronExpression rejects a schedule registration; the
	// registry is left without a timer for the job.
	ErrInvalidCronExpression = errors.New("invalid cron expression")

	// ErrMissingCronExpression is returned for a custom-frequency job
	// that carries no cron expression.
	ErrMissingCronExpression = errors.New("custom frequency requires a cron expression")

	// ErrJobNotFound is returned by a manual trigger for an unknown job id.
	ErrJobNotFound = errors.New("backup job not found")
)
