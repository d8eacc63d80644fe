package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rowandev/caretab/internal/model"
)

type PatientStore struct {
	db *sql.DB
}

func NewPatientStore(db *sql.DB) *PatientStore {
	return &PatientStore{db: db}
}

const patientColumns = `id, mrn, first_name, last_name, date_of_birth, notes, created_at, updated_at`

func (s *PatientStore) Create(mrn, firstName, lastName, dateOfBirth, notes string) (*model.Patient, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO patients (mrn, first_name, last_name, date_of_birth, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mrn, firstName, lastName, dateOfBirth, notes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	id, _ := res.LastInsertId()
	return &model.Patient{
		ID:          id,
		MRN:         mrn,
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dateOfBirth,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *PatientStore) GetByID(id int64) (*model.Patient, error) {
	p := &model.Patient{}
	err := s.db.QueryRow(`SELECT `+patientColumns+` FROM patients WHERE id = ?`, id).
		Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %d: %w", id, err)
	}
	return p, nil
}

func (s *PatientStore) List() ([]model.Patient, error) {
	rows, err := s.db.Query(`SELECT ` + patientColumns + ` FROM patients ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (s *PatientStore) Update(p *model.Patient) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE patients SET mrn = ?, first_name = ?, last_name = ?, date_of_birth = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.Notes, now, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	p.UpdatedAt = now
	return nil
}

func (s *PatientStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	return nil
}
