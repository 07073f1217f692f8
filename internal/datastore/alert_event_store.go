package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pulseecho/backend/internal/apperrors"
)

const alertColumns = `id, screening_id, contact, message, status, provider_message_id, error_detail, created_at, updated_at`

// CreateAlertEvent records the outcome of one alert dispatch. A second
// insert for the same screening updates the existing event instead,
// preserving the one-alert-per-screening invariant.
func (s *Store) CreateAlertEvent(ctx context.Context, ev *AlertEvent) error {
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	query := `
		INSERT INTO alert_events (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (screening_id) DO UPDATE SET
			status = EXCLUDED.status,
			provider_message_id = EXCLUDED.provider_message_id,
			error_detail = EXCLUDED.error_detail,
			updated_at = EXCLUDED.updated_at
	`
	err := withRetry(ctx, "failed to record alert event", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			ev.ID,
			ev.ScreeningID,
			ev.Contact,
			ev.Message,
			ev.Status,
			ev.ProviderMessageID,
			ev.ErrorDetail,
			ev.CreatedAt,
			ev.UpdatedAt,
		)
		return err
	})
	return err
}

// GetAlertEvent retrieves one alert event by ID.
func (s *Store) GetAlertEvent(ctx context.Context, id string) (*AlertEvent, error) {
	query := `SELECT ` + alertColumns + ` FROM alert_events WHERE id = $1`

	ev := &AlertEvent{}
	err := scanAlertEvent(s.db.QueryRowContext(ctx, query, id), ev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("alert event %s not found", id))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to get alert event", err)
	}
	return ev, nil
}

// ListAlertEvents lists alert events, optionally filtered by status.
func (s *Store) ListAlertEvents(ctx context.Context, status string) ([]*AlertEvent, error) {
	baseQuery := `SELECT ` + alertColumns + ` FROM alert_events`

	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status = $1 ORDER BY created_at DESC`, status)
	} else {
		rows, err = s.db.QueryContext(ctx, baseQuery+` ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to list alert events", err)
	}
	defer rows.Close()

	events := []*AlertEvent{}
	for rows.Next() {
		ev := &AlertEvent{}
		if err := scanAlertEvent(rows, ev); err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "failed to scan alert event row", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "error iterating alert event rows", err)
	}
	return events, nil
}

// UpdateAlertEventStatus rewrites the delivery outcome of an alert
// event after an out-of-band retry.
func (s *Store) UpdateAlertEventStatus(ctx context.Context, id, status string, providerMessageID, errorDetail sql.NullString) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alert_events
		SET status = $1, provider_message_id = $2, error_detail = $3, updated_at = $4
		WHERE id = $5`,
		status, providerMessageID, errorDetail, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "failed to update alert event", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "failed to update alert event", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("alert event %s not found", id))
	}
	return nil
}

func scanAlertEvent(row rowScanner, ev *AlertEvent) error {
	return row.Scan(
		&ev.ID,
		&ev.ScreeningID,
		&ev.Contact,
		&ev.Message,
		&ev.Status,
		&ev.ProviderMessageID,
		&ev.ErrorDetail,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
}
