package metrics

import "time"

// Sink records backup scheduler metrics. All methods are
// fire-and-forget: implementations must not block or return errors.
type Sink interface {
	// Run pipeline
	RunStarted()
	RunCompleted(duration time.Duration, sizeBytes int64)
	RunFailed()
	// RunSkipped counts fires coalesced because a run was still in flight.
	RunSkipped()

	// Retention reaper
	ArtifactsReaped(count int)
	CleanupFailed()

	// ScheduledJobs sets the current number of active timers.
	ScheduledJobs(count int)
}
