package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/rowandev/caretab/internal/model"
	"github.com/rowandev/caretab/internal/store"
	"github.com/rowandev/caretab/internal/websocket"
)

type PatientHandler struct {
	patientStore *store.PatientStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewPatientHandler(ps *store.PatientStore, hub *websocket.Hub, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{patientStore: ps, hub: hub, logger: logger}
}

func (h *PatientHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type patientRequest struct {
	MRN         string `json:"mrn"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Notes       string `json:"notes"`
}

func (r *patientRequest) validate() string {
	r.MRN = strings.TrimSpace(r.MRN)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.MRN == "" {
		return "mrn is required"
	}
	if r.FirstName == "" || r.LastName == "" {
		return "first_name and last_name are required"
	}
	return ""
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	patient, err := h.patientStore.Create(req.MRN, req.FirstName, req.LastName, req.DateOfBirth, req.Notes)
	if err != nil {
		h.logger.Error("create patient", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create patient")
		return
	}

	h.broadcast(websocket.NewMessage("patient", "created", strconv.FormatInt(patient.ID, 10), nil))
	writeJSON(w, http.StatusCreated, patient)
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list patients")
		return
	}
	if patients == nil {
		patients = []model.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}

	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	patient.MRN = req.MRN
	patient.FirstName = req.FirstName
	patient.LastName = req.LastName
	patient.DateOfBirth = req.DateOfBirth
	patient.Notes = req.Notes

	if err := h.patientStore.Update(patient); err != nil {
		h.logger.Error("update patient", "patient", patient.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update patient")
		return
	}

	h.broadcast(websocket.NewMessage("patient", "updated", strconv.FormatInt(patient.ID, 10), nil))
	writeJSON(w, http.StatusOK, patient)
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}

	if err := h.patientStore.Delete(patient.ID); err != nil {
		h.logger.Error("delete patient", "patient", patient.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete patient")
		return
	}

	h.broadcast(websocket.NewMessage("patient", "deleted", strconv.FormatInt(patient.ID, 10), nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PatientHandler) loadPatient(w http.ResponseWriter, r *http.Request) (*model.Patient, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return nil, false
	}
	patient, err := h.patientStore.GetByID(id)
	if err != nil {
		h.logger.Error("load patient", "patient", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return nil, false
	}
	if patient == nil {
		writeError(w, http.StatusNotFound, "patient not found")
		return nil, false
	}
	return patient, true
}
