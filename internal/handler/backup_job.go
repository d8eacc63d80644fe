package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rowandev/caretab/internal/model"
	"github.com/rowandev/caretab/internal/scheduler"
	"github.com/rowandev/caretab/internal/store"
	"github.com/rowandev/caretab/internal/websocket"
)

type BackupJobHandler struct {
	jobStore     *store.JobStore
	historyStore *store.HistoryStore
	sched        *scheduler.Scheduler
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewBackupJobHandler(js *store.JobStore, hs *store.HistoryStore, sched *scheduler.Scheduler, hub *websocket.Hub, logger *slog.Logger) *BackupJobHandler {
	return &BackupJobHandler{jobStore: js, historyStore: hs, sched: sched, hub: hub, logger: logger}
}

func (h *BackupJobHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type jobRequest struct {
	Name           string          `json:"name"`
	Enabled        *bool           `json:"enabled"`
	Frequency      model.Frequency `json:"frequency"`
	CronExpression string          `json:"cron_expression"`
	RetentionDays  *int            `json:"retention_days"`
}

func (h *BackupJobHandler) validate(req *jobRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	req.CronExpression = strings.TrimSpace(req.CronExpression)
	if req.Name == "" {
		return "name is required"
	}
	if !model.ValidFrequency(req.Frequency) {
		return "frequency must be daily, weekly, monthly, or custom"
	}
	if req.Frequency == model.FrequencyCustom {
		if req.CronExpression == "" {
			return "cron_expression is required for custom frequency"
		}
		if !h.sched.ValidateCronExpression(req.CronExpression) {
			return "invalid cron expression"
		}
	}
	if req.RetentionDays != nil && *req.RetentionDays < 0 {
		return "retention_days must be non-negative"
	}
	return ""
}

func (h *BackupJobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	job, err := h.jobStore.Create(req.Name, enabled, req.Frequency, req.CronExpression, req.RetentionDays)
	if err != nil {
		h.logger.Error("create backup job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create backup job")
		return
	}

	if err := h.sched.ScheduleJob(job); err != nil {
		// Persisted but not scheduled; surface the problem to the operator.
		h.logger.Error("schedule new job", "job", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "job created but scheduling failed: "+err.Error())
		return
	}

	h.broadcast(websocket.NewMessage("backup_job", "created", job.ID, nil))
	writeJSON(w, http.StatusCreated, job)
}

func (h *BackupJobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backup jobs")
		return
	}
	if jobs == nil {
		jobs = []model.BackupJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *BackupJobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *BackupJobHandler) Update(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	job.Name = req.Name
	if req.Enabled != nil {
		job.Enabled = *req.Enabled
	}
	job.Frequency = req.Frequency
	job.CronExpression = req.CronExpression
	job.RetentionDays = req.RetentionDays

	if err := h.jobStore.Update(job); err != nil {
		h.logger.Error("update backup job", "job", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update backup job")
		return
	}

	// Reschedule replaces the old timer; a disabled job just loses it.
	if err := h.sched.RescheduleJob(job); err != nil {
		h.logger.Error("reschedule job", "job", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "job updated but rescheduling failed: "+err.Error())
		return
	}

	h.broadcast(websocket.NewMessage("backup_job", "updated", job.ID, nil))
	writeJSON(w, http.StatusOK, job)
}

func (h *BackupJobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	h.sched.UnscheduleJob(job.ID)
	if err := h.jobStore.Delete(job.ID); err != nil {
		h.logger.Error("delete backup job", "job", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete backup job")
		return
	}

	h.broadcast(websocket.NewMessage("backup_job", "deleted", job.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Run triggers a backup outside the job's schedule. The run proceeds in
// the background; its outcome lands in history and on the job row.
func (h *BackupJobHandler) Run(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	go func() {
		if err := h.sched.TriggerBackup(context.Background(), job.ID); err != nil {
			h.logger.Error("manual backup trigger", "job", job.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (h *BackupJobHandler) History(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := h.historyStore.ListByJob(job.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backup history")
		return
	}
	if records == nil {
		records = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Schedule returns the set of active timers with next fire times.
func (h *BackupJobHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	scheduled := h.sched.ListScheduled()
	if scheduled == nil {
		scheduled = []scheduler.ScheduledJob{}
	}
	writeJSON(w, http.StatusOK, scheduled)
}

// Describe returns the human-readable schedule of one job.
func (h *BackupJobHandler) Describe(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": h.sched.DescribeSchedule(job)})
}

// ValidateExpression checks a cron expression without registering anything.
func (h *BackupJobHandler) ValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": h.sched.ValidateCronExpression(req.Expression)})
}

func (h *BackupJobHandler) loadJob(w http.ResponseWriter, r *http.Request) (*model.BackupJob, bool) {
	id := r.PathValue("id")
	job, err := h.jobStore.GetByID(id)
	if err != nil {
		h.logger.Error("load backup job", "job", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backup job")
		return nil, false
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "backup job not found")
		return nil, false
	}
	return job, true
}
