package datastore

import (
	"database/sql"
	"time"
)

// ScreeningRecord maps to the heart_screenings table. A record is
// created once per successful classification and never changes after
// insert, except for the alert-sent flag.
type ScreeningRecord struct {
	ID              string         `json:"id"`
	DedupKey        string         `json:"dedup_key"`
	PatientID       string         `json:"patient_id"`
	PatientName     sql.NullString `json:"patient_name,omitempty"`
	PatientAge      sql.NullInt64  `json:"patient_age,omitempty"`
	DoctorID        sql.NullString `json:"doctor_id,omitempty"`
	Symptoms        sql.NullString `json:"symptoms,omitempty"`
	RecordingObject string         `json:"recording_object"`
	Prediction      string         `json:"prediction"`
	Confidence      float64        `json:"confidence"`
	RiskTier        string         `json:"risk_tier"`
	MLSource        string         `json:"ml_source"`
	AlertSent       bool           `json:"alert_sent"`
	CreatedAt       time.Time      `json:"created_at"`
}

// SystemStats aggregates screening counts for the stats endpoint.
type SystemStats struct {
	TotalScreenings int64     `json:"total_screenings"`
	NormalCount     int64     `json:"normal_count"`
	AbnormalCount   int64     `json:"abnormal_count"`
	HighRiskCount   int64     `json:"high_risk_count"`
	AlertsSent      int64     `json:"alerts_sent"`
	LastUpdated     time.Time `json:"last_updated"`
}
