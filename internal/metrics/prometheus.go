package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink on the Prometheus client library.
// Registration failures are logged and the colliding collector keeps
// working unregistered; metrics must never take the scheduler down.
type PrometheusSink struct {
	runsStarted      prometheus.Counter
	runsCompleted    prometheus.Counter
	runsFailed       prometheus.Counter
	runsSkipped      prometheus.Counter
	runDuration      prometheus.Histogram
	artifactBytes    prometheus.Histogram
	artifactsReaped  prometheus.Counter
	cleanupFailures  prometheus.Counter
	scheduledJobs    prometheus.Gauge
}

func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretab_backup_runs_started_total",
			Help: "Backup runs started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretab_backup_runs_completed_total",
			Help: "Backup runs that completed successfully.",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretab_backup_runs_failed_total",
			Help: "Backup runs that failed.",
		}),
		runsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretab_backup_runs_skipped_total",
			Help: "Timer fires skipped because a run was still in flight.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "caretab_backup_run_duration_seconds",
			Help:    "Duration of successful backup runs.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		artifactBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "caretab_backup_artifact_bytes",
			Help:    "Size of produced backup artifacts.",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		}),
		artifactsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretab_backup_artifacts_reaped_total",
			Help: "Artifacts deleted by retention cleanup.",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caretab_backup_cleanup_failures_total",
			Help: "Retention cleanup passes that failed.",
		}),
		scheduledJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "caretab_backup_scheduled_jobs",
			Help: "Backup jobs with an active timer.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"caretab_backup_runs_started_total":     s.runsStarted,
		"caretab_backup_runs_completed_total":   s.runsCompleted,
		"caretab_backup_runs_failed_total":      s.runsFailed,
		"caretab_backup_runs_skipped_total":     s.runsSkipped,
		"caretab_backup_run_duration_seconds":   s.runDuration,
		"caretab_backup_artifact_bytes":         s.artifactBytes,
		"caretab_backup_artifacts_reaped_total": s.artifactsReaped,
		"caretab_backup_cleanup_failures_total": s.cleanupFailures,
		"caretab_backup_scheduled_jobs":         s.scheduledJobs,
	} {
		if err := reg.Register(c); err != nil {
			logger.Warn("register metric", "name", name, "error", err)
		}
	}

	return s
}

func (s *PrometheusSink) RunStarted() { s.runsStarted.Inc() }

func (s *PrometheusSink) RunCompleted(duration time.Duration, sizeBytes int64) {
	s.runsCompleted.Inc()
	s.runDuration.Observe(duration.Seconds())
	s.artifactBytes.Observe(float64(sizeBytes))
}

func (s *PrometheusSink) RunFailed()  { s.runsFailed.Inc() }
func (s *PrometheusSink) RunSkipped() { s.runsSkipped.Inc() }

func (s *PrometheusSink) ArtifactsReaped(count int) { s.artifactsReaped.Add(float64(count)) }
func (s *PrometheusSink) CleanupFailed()            { s.cleanupFailures.Inc() }

func (s *PrometheusSink) ScheduledJobs(count int) { s.scheduledJobs.Set(float64(count)) }
