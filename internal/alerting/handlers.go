package alerting

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/datastore"
)

// Store is the persistence surface for out-of-band alert maintenance.
type Store interface {
	ListAlertEvents(ctx context.Context, status string) ([]*datastore.AlertEvent, error)
	GetAlertEvent(ctx context.Context, id string) (*datastore.AlertEvent, error)
	UpdateAlertEventStatus(ctx context.Context, id, status string, providerMessageID, errorDetail sql.NullString) error
	SetAlertSent(ctx context.Context, screeningID string, sent bool) error
}

// Handlers serves the /admin alert routes: inspecting alert events and
// retrying failed deliveries out of band.
type Handlers struct {
	store  Store
	sender Sender
}

// NewHandlers builds the alert maintenance handler set.
func NewHandlers(store Store, sender Sender) *Handlers {
	return &Handlers{store: store, sender: sender}
}

// ListHandler handles GET /admin/alerts?status=failed.
func (h *Handlers) ListHandler(c *gin.Context) {
	events, err := h.store.ListAlertEvents(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	if events == nil {
		events = []*datastore.AlertEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": events, "count": len(events)})
}

// RetryHandler handles POST /admin/alerts/:id/retry, re-sending a
// failed alert with its original contact and message.
func (h *Handlers) RetryHandler(c *gin.Context) {
	ev, err := h.store.GetAlertEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if ev.Status == datastore.AlertStatusSent {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "conflict",
			"message": "alert was already delivered",
		})
		return
	}

	delivery, sendErr := h.sender.Send(c.Request.Context(), ev.Contact, ev.Message)
	if sendErr != nil {
		_ = h.store.UpdateAlertEventStatus(c.Request.Context(), ev.ID, datastore.AlertStatusFailed,
			sql.NullString{}, sql.NullString{String: sendErr.Error(), Valid: true})
		respondError(c, apperrors.Wrap(apperrors.KindAlert, "retry failed", sendErr))
		return
	}

	if err := h.store.UpdateAlertEventStatus(c.Request.Context(), ev.ID, datastore.AlertStatusSent,
		sql.NullString{String: delivery.MessageID, Valid: true}, sql.NullString{}); err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.SetAlertSent(c.Request.Context(), ev.ScreeningID, true); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alert_id":            ev.ID,
		"status":              datastore.AlertStatusSent,
		"provider_message_id": delivery.MessageID,
	})
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error":   string(apperrors.KindOf(err)),
		"message": apperrors.MessageOf(err),
	})
}
