package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rowandev/caretab/internal/backup"
	"github.com/rowandev/caretab/internal/handler"
	"github.com/rowandev/caretab/internal/metrics"
	"github.com/rowandev/caretab/internal/middleware"
	"github.com/rowandev/caretab/internal/scheduler"
	"github.com/rowandev/caretab/internal/store"
	ws "github.com/rowandev/caretab/internal/websocket"
)

// Server is the composition root for the HTTP layer and the single
// owning home of the backup scheduler instance.
type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	sched       *scheduler.Scheduler
	cronRuntime *scheduler.Runtime
	backupJobH  *handler.BackupJobHandler
	patientH    *handler.PatientHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	jobStore := store.NewJobStore(db)
	historyStore := store.NewHistoryStore(db)
	patientStore := store.NewPatientStore(db)

	sink := metrics.NewPrometheusSink(prometheus.DefaultRegisterer, logger.With("component", "metrics"))

	backupSvc := backup.NewService(backupCfg, db, logger.With("component", "backup"))

	schedLogger := logger.With("component", "scheduler")
	reaper := scheduler.NewReaper(historyStore, backupSvc, sink, schedLogger)
	executor := scheduler.NewExecutor(jobStore, historyStore, backupSvc, reaper, sink, schedLogger)
	executor.SetNotifier(func(ev scheduler.RunEvent) {
		extra := map[string]any{"job_name": ev.JobName}
		if ev.Error != "" {
			extra["error"] = ev.Error
		}
		hub.Broadcast(ws.NewMessage("backup_run", string(ev.Status), ev.JobID, extra))
	})

	cronRuntime := scheduler.NewRuntime()
	registry := scheduler.NewRegistry(cronRuntime, executor.RunScheduled, schedLogger)
	sched := scheduler.New(jobStore, registry, executor, cronRuntime, sink, schedLogger)

	return &Server{
		db:          db,
		hub:         hub,
		sched:       sched,
		cronRuntime: cronRuntime,
		backupJobH:  handler.NewBackupJobHandler(jobStore, historyStore, sched, hub, logger.With("component", "backup_job")),
		patientH:    handler.NewPatientHandler(patientStore, hub, logger.With("component", "patient")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Scheduler returns the process-wide scheduler for lifecycle control.
func (s *Server) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// StopCron halts timer dispatch and waits for in-flight runs to drain.
// Called once at process shutdown, after Scheduler().Shutdown().
func (s *Server) StopCron() {
	s.cronRuntime.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	// Backup job management
	mux.HandleFunc("GET /api/backup-jobs", s.backupJobH.List)
	mux.HandleFunc("POST /api/backup-jobs", s.backupJobH.Create)
	mux.HandleFunc("GET /api/backup-jobs/{id}", s.backupJobH.Get)
	mux.HandleFunc("PUT /api/backup-jobs/{id}", s.backupJobH.Update)
	mux.HandleFunc("DELETE /api/backup-jobs/{id}", s.backupJobH.Delete)
	mux.HandleFunc("POST /api/backup-jobs/{id}/run", s.rateLimited(s.backupJobH.Run))
	mux.HandleFunc("GET /api/backup-jobs/{id}/history", s.backupJobH.History)
	mux.HandleFunc("GET /api/backup-jobs/{id}/schedule", s.backupJobH.Describe)
	mux.HandleFunc("GET /api/backup-schedule", s.backupJobH.Schedule)
	mux.HandleFunc("POST /api/backup-schedule/validate", s.backupJobH.ValidateExpression)

	// Patient records
	mux.HandleFunc("GET /api/patients", s.patientH.List)
	mux.HandleFunc("POST /api/patients", s.patientH.Create)
	mux.HandleFunc("GET /api/patients/{id}", s.patientH.Get)
	mux.HandleFunc("PUT /api/patients/{id}", s.patientH.Update)
	mux.HandleFunc("DELETE /api/patients/{id}", s.patientH.Delete)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"scheduler": s.sched.Initialized(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// rateLimited guards the manual trigger endpoint; a stampede of manual
// runs would just coalesce, but there is no reason to let it start.
func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
