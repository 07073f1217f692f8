package datastore

import (
	"database/sql"
	"time"
)

// Alert delivery statuses. Sent and failed are terminal; a failed event
// may be re-dispatched out of band, which rewrites the status.
const (
	AlertStatusSent   = "sent"
	AlertStatusFailed = "failed"
)

// AlertEvent maps to the alert_events table. The UNIQUE constraint on
// screening_id enforces at most one alert per screening record.
type AlertEvent struct {
	ID                string         `json:"id"`
	ScreeningID       string         `json:"screening_id"`
	Contact           string         `json:"contact"`
	Message           string         `json:"message"`
	Status            string         `json:"status"`
	ProviderMessageID sql.NullString `json:"provider_message_id,omitempty"`
	ErrorDetail       sql.NullString `json:"error_detail,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
