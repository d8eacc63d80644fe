package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"testing"

	"github.com/rowandev/caretab/internal/database"
	"github.com/rowandev/caretab/internal/model"
	"github.com/rowandev/caretab/internal/store"
)

func setupPatientAPI(t *testing.T) *http.ServeMux {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewPatientHandler(store.NewPatientStore(db), nil, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/patients", h.List)
	mux.HandleFunc("POST /api/patients", h.Create)
	mux.HandleFunc("GET /api/patients/{id}", h.Get)
	mux.HandleFunc("PUT /api/patients/{id}", h.Update)
	mux.HandleFunc("DELETE /api/patients/{id}", h.Delete)
	return mux
}

func TestCreateAndGetPatient(t *testing.T) {
	mux := setupPatientAPI(t)

	rec := doJSON(t, mux, "POST", "/api/patients", map[string]string{
		"mrn":        "MRN-1001",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created model.Patient
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode patient: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected patient id in response")
	}

	rec = doJSON(t, mux, "GET", "/api/patients/"+strconv.FormatInt(created.ID, 10), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	var got model.Patient
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode patient: %v", err)
	}
	if got.MRN != "MRN-1001" {
		t.Errorf("mrn = %q, want %q", got.MRN, "MRN-1001")
	}
}

func TestCreatePatientValidation(t *testing.T) {
	mux := setupPatientAPI(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing mrn", map[string]string{"first_name": "Ada", "last_name": "Lovelace"}},
		{"missing name", map[string]string{"mrn": "MRN-1"}},
	}
	for _, tt := range tests {
		rec := doJSON(t, mux, "POST", "/api/patients", tt.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestGetPatientNotFound(t *testing.T) {
	mux := setupPatientAPI(t)

	rec := doJSON(t, mux, "GET", "/api/patients/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = doJSON(t, mux, "GET", "/api/patients/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeletePatient(t *testing.T) {
	mux := setupPatientAPI(t)

	rec := doJSON(t, mux, "POST", "/api/patients", map[string]string{
		"mrn": "MRN-1", "first_name": "Ada", "last_name": "Lovelace",
	})
	var created model.Patient
	json.NewDecoder(rec.Body).Decode(&created)

	path := "/api/patients/" + strconv.FormatInt(created.ID, 10)
	if rec = doJSON(t, mux, "DELETE", path, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	if rec = doJSON(t, mux, "GET", path, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
