package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pulseecho/backend/internal/apperrors"
)

const screeningColumns = `id, dedup_key, patient_id, patient_name, patient_age, doctor_id, symptoms,
	recording_object, prediction, confidence, risk_tier, ml_source, alert_sent, created_at`

// SaveScreening inserts a screening record and returns its ID. The
// insert is idempotent on the record's deduplication key: retrying with
// the same key returns the ID of the already-persisted record instead
// of creating a duplicate. Transient failures are retried with backoff.
func (s *Store) SaveScreening(ctx context.Context, rec *ScreeningRecord) (string, error) {
	if rec.DedupKey == "" {
		return "", apperrors.New(apperrors.KindStorage, "screening record has no dedup key")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO heart_screenings (` + screeningColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id
	`

	var id string
	err := withRetry(ctx, "failed to save screening record", func(ctx context.Context) error {
		err := s.db.QueryRowContext(ctx, query,
			rec.ID,
			rec.DedupKey,
			rec.PatientID,
			rec.PatientName,
			rec.PatientAge,
			rec.DoctorID,
			rec.Symptoms,
			rec.RecordingObject,
			rec.Prediction,
			rec.Confidence,
			rec.RiskTier,
			rec.MLSource,
			rec.AlertSent,
			rec.CreatedAt,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict on dedup_key: the record already exists.
			return s.db.QueryRowContext(ctx,
				`SELECT id FROM heart_screenings WHERE dedup_key = $1`, rec.DedupKey).Scan(&id)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetScreening retrieves one screening record by ID.
func (s *Store) GetScreening(ctx context.Context, id string) (*ScreeningRecord, error) {
	query := `SELECT ` + screeningColumns + ` FROM heart_screenings WHERE id = $1`

	rec := &ScreeningRecord{}
	err := scanScreening(s.db.QueryRowContext(ctx, query, id), rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("screening %s not found", id))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to get screening record", err)
	}
	return rec, nil
}

// ListScreenings returns a patient's screening history, newest first.
// An empty patientID lists all screenings.
func (s *Store) ListScreenings(ctx context.Context, patientID string) ([]*ScreeningRecord, error) {
	baseQuery := `SELECT ` + screeningColumns + ` FROM heart_screenings`

	var rows *sql.Rows
	var err error
	if patientID != "" {
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	} else {
		rows, err = s.db.QueryContext(ctx, baseQuery+` ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to list screening records", err)
	}
	defer rows.Close()

	records := []*ScreeningRecord{}
	for rows.Next() {
		rec := &ScreeningRecord{}
		if err := scanScreening(rows, rec); err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "failed to scan screening row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "error iterating screening rows", err)
	}
	return records, nil
}

// SetAlertSent flips the alert-sent flag, the only mutable field of a
// persisted screening record.
func (s *Store) SetAlertSent(ctx context.Context, id string, sent bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE heart_screenings SET alert_sent = $1 WHERE id = $2`, sent, id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "failed to update alert flag", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "failed to update alert flag", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("screening %s not found", id))
	}
	return nil
}

// Stats aggregates system-wide screening counts.
func (s *Store) Stats(ctx context.Context) (*SystemStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE prediction = 'normal'),
			COUNT(*) FILTER (WHERE prediction <> 'normal'),
			COUNT(*) FILTER (WHERE risk_tier = 'high'),
			COUNT(*) FILTER (WHERE alert_sent)
		FROM heart_screenings
	`
	stats := &SystemStats{LastUpdated: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalScreenings,
		&stats.NormalCount,
		&stats.AbnormalCount,
		&stats.HighRiskCount,
		&stats.AlertsSent,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to compute system stats", err)
	}
	return stats, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScreening(row rowScanner, rec *ScreeningRecord) error {
	return row.Scan(
		&rec.ID,
		&rec.DedupKey,
		&rec.PatientID,
		&rec.PatientName,
		&rec.PatientAge,
		&rec.DoctorID,
		&rec.Symptoms,
		&rec.RecordingObject,
		&rec.Prediction,
		&rec.Confidence,
		&rec.RiskTier,
		&rec.MLSource,
		&rec.AlertSent,
		&rec.CreatedAt,
	)
}
