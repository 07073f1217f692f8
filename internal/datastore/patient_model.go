package datastore

import (
	"database/sql"
	"time"
)

// Patient maps to the patients table.
type Patient struct {
	PatientID string         `json:"patient_id"`
	Name      string         `json:"name"`
	Age       sql.NullInt64  `json:"age,omitempty"`
	Gender    sql.NullString `json:"gender,omitempty"`
	Phone     sql.NullString `json:"phone,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
