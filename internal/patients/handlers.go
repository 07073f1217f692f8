// Package patients exposes patient registration and lookup over HTTP.
package patients

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/datastore"
)

// Store is the patient persistence surface.
type Store interface {
	RegisterPatient(ctx context.Context, p *datastore.Patient) error
	PatientExists(ctx context.Context, patientID string) (bool, error)
	GetPatient(ctx context.Context, patientID string) (*datastore.Patient, error)
}

// Handlers serves the /patients routes.
type Handlers struct {
	store Store
}

// NewHandlers builds the patient handler set.
func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRequest is the payload of POST /patients/register. Either
// name or full_name is accepted.
type RegisterRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	Age       *int64 `json:"age"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
}

// RegisterHandler handles POST /patients/register.
func (h *Handlers) RegisterHandler(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindValidation, "invalid request payload", err))
		return
	}

	name := req.FullName
	if name == "" {
		name = req.Name
	}
	if name == "" {
		respondError(c, apperrors.New(apperrors.KindValidation, "missing required field: name or full_name"))
		return
	}

	p := &datastore.Patient{
		PatientID: req.PatientID,
		Name:      name,
	}
	if req.Age != nil {
		p.Age = sql.NullInt64{Int64: *req.Age, Valid: true}
	}
	if req.Gender != "" {
		p.Gender = sql.NullString{String: req.Gender, Valid: true}
	}
	if req.Phone != "" {
		p.Phone = sql.NullString{String: req.Phone, Valid: true}
	}

	if err := h.store.RegisterPatient(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"patient_id": p.PatientID,
		"name":       p.Name,
		"message":    "Patient registered successfully",
	})
}

// CheckRequest is the payload of POST /patients/check.
type CheckRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
}

// CheckHandler handles POST /patients/check.
func (h *Handlers) CheckHandler(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.KindValidation, "patient_id required"))
		return
	}

	exists, err := h.store.PatientExists(c.Request.Context(), req.PatientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": req.PatientID, "exists": exists})
}

// GetHandler handles GET /patients/:patient_id.
func (h *Handlers) GetHandler(c *gin.Context) {
	patient, err := h.store.GetPatient(c.Request.Context(), c.Param("patient_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error":   string(apperrors.KindOf(err)),
		"message": apperrors.MessageOf(err),
	})
}
