package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pulseecho/backend/internal/apperrors"
)

// RegisterPatient inserts a new patient record.
func (s *Store) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO patients (patient_id, name, age, gender, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	err := withRetry(ctx, "failed to register patient", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			p.PatientID, p.Name, p.Age, p.Gender, p.Phone, p.CreatedAt)
		return err
	})
	return err
}

// PatientExists reports whether a patient ID is registered.
func (s *Store) PatientExists(ctx context.Context, patientID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`, patientID).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindStorage, "failed to check patient", err)
	}
	return exists, nil
}

// GetPatient retrieves one patient by ID.
func (s *Store) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	p := &Patient{}
	err := s.db.QueryRowContext(ctx, `
		SELECT patient_id, name, age, gender, phone, created_at
		FROM patients WHERE patient_id = $1`, patientID).Scan(
		&p.PatientID, &p.Name, &p.Age, &p.Gender, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("patient %s not found", patientID))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to get patient", err)
	}
	return p, nil
}
