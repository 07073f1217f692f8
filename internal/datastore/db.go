// Package datastore persists screening records, alert events, and
// patients in Postgres using database/sql and raw queries.
package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"

	"pulseecho/backend/internal/apperrors"
)

// Store wraps the shared connection pool. The pool is safe for
// concurrent use across requests.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewStore builds a Store over an open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS heart_screenings (
			id               TEXT PRIMARY KEY,
			dedup_key        TEXT NOT NULL UNIQUE,
			patient_id       TEXT NOT NULL,
			patient_name     TEXT,
			patient_age      INTEGER,
			doctor_id        TEXT,
			symptoms         TEXT,
			recording_object TEXT NOT NULL,
			prediction       TEXT NOT NULL,
			confidence       DOUBLE PRECISION NOT NULL,
			risk_tier        TEXT NOT NULL,
			ml_source        TEXT NOT NULL,
			alert_sent       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_heart_screenings_patient
			ON heart_screenings (patient_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS alert_events (
			id                  TEXT PRIMARY KEY,
			screening_id        TEXT NOT NULL UNIQUE REFERENCES heart_screenings(id),
			contact             TEXT NOT NULL,
			message             TEXT NOT NULL,
			status              TEXT NOT NULL,
			provider_message_id TEXT,
			error_detail        TEXT,
			created_at          TIMESTAMPTZ NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS patients (
			patient_id TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			age        INTEGER,
			gender     TEXT,
			phone      TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// retryable reports whether a database error is worth retrying.
// Integrity violations and other client-side errors are permanent;
// connectivity problems are transient.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08": // connection exceptions
			return true
		case "53": // insufficient resources
			return true
		case "57": // operator intervention (e.g. admin shutdown)
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return false
}

// withRetry runs op with Fibonacci backoff, skipping retries for
// permanent failures. Errors are wrapped as storage errors.
func withRetry(ctx context.Context, what string, op func(ctx context.Context) error) error {
	b := retry.NewFibonacci(200 * time.Millisecond)
	err := retry.Do(ctx, retry.WithMaxRetries(3, b), func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, what, err)
	}
	return nil
}
