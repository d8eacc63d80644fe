package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/rowandev/caretab/internal/model"
)

func setupPatientTestDB(t *testing.T) *PatientStore {
	t.Helper()
	return NewPatientStore(openTestDB(t))
}

func TestPatientCreate(t *testing.T) {
	ps := setupPatientTestDB(t)

	p, err := ps.Create("MRN-1001", "Ada", "Lovelace", "1815-12-10", "first visit")
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected non-zero id")
	}

	got, err := ps.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if got == nil {
		t.Fatal("expected patient to exist")
	}
	if got.MRN != "MRN-1001" {
		t.Errorf("mrn = %q, want %q", got.MRN, "MRN-1001")
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Errorf("name = %q %q, want Ada Lovelace", got.FirstName, got.LastName)
	}
	if got.DateOfBirth != "1815-12-10" {
		t.Errorf("date_of_birth = %q, want %q", got.DateOfBirth, "1815-12-10")
	}
}

func TestPatientCreateDuplicateMRN(t *testing.T) {
	ps := setupPatientTestDB(t)

	if _, err := ps.Create("MRN-1001", "Ada", "Lovelace", "", ""); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	if _, err := ps.Create("MRN-1001", "Grace", "Hopper", "", ""); err == nil {
		t.Fatal("expected unique constraint error for duplicate mrn")
	}
}

func TestPatientGetByIDMissing(t *testing.T) {
	ps := setupPatientTestDB(t)

	got, err := ps.GetByID(9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing patient")
	}
}

func TestPatientListOrdering(t *testing.T) {
	ps := setupPatientTestDB(t)

	ps.Create("MRN-2", "Grace", "Hopper", "", "")
	ps.Create("MRN-1", "Ada", "Lovelace", "", "")
	ps.Create("MRN-3", "Alan", "Hopper", "", "")

	patients, err := ps.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(patients) != 3 {
		t.Fatalf("patients = %d, want 3", len(patients))
	}
	// Ordered by last name, then first name.
	if patients[0].FirstName != "Alan" || patients[1].FirstName != "Grace" || patients[2].FirstName != "Ada" {
		t.Errorf("order = %s, %s, %s; want Alan, Grace, Ada",
			patients[0].FirstName, patients[1].FirstName, patients[2].FirstName)
	}
}

func TestPatientUpdate(t *testing.T) {
	ps := setupPatientTestDB(t)

	p, _ := ps.Create("MRN-1001", "Ada", "Lovelace", "", "")

	p.Notes = "allergic to penicillin"
	p.DateOfBirth = "1815-12-10"
	if err := ps.Update(p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := ps.GetByID(p.ID)
	if got.Notes != "allergic to penicillin" {
		t.Errorf("notes = %q, want updated value", got.Notes)
	}
	if got.DateOfBirth != "1815-12-10" {
		t.Errorf("date_of_birth = %q, want %q", got.DateOfBirth, "1815-12-10")
	}
}

func TestPatientUpdateMissing(t *testing.T) {
	ps := setupPatientTestDB(t)

	err := ps.Update(&model.Patient{ID: 9999, MRN: "MRN-X", FirstName: "No", LastName: "One"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestPatientDelete(t *testing.T) {
	ps := setupPatientTestDB(t)

	p, _ := ps.Create("MRN-1001", "Ada", "Lovelace", "", "")
	if err := ps.Delete(p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, _ := ps.GetByID(p.ID)
	if got != nil {
		t.Error("expected patient to be gone")
	}
}
