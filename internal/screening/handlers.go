package screening

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/coreengine/risk"
	"pulseecho/backend/internal/datastore"
)

// RecordingFetcher streams stored recordings for the audio endpoint.
type RecordingFetcher interface {
	GetRecording(ctx context.Context, objectName string) (io.ReadCloser, string, error)
}

// Handlers exposes the screening pipeline over HTTP.
type Handlers struct {
	svc        *Service
	store      Store
	recordings RecordingFetcher
}

// NewHandlers builds the screening handler set.
func NewHandlers(svc *Service, store Store, recordings RecordingFetcher) *Handlers {
	return &Handlers{svc: svc, store: store, recordings: recordings}
}

// AnalyzeResponse is the JSON body returned by POST /analyze.
type AnalyzeResponse struct {
	ScreeningID    string  `json:"screening_id"`
	Prediction     string  `json:"prediction"`
	Confidence     float64 `json:"confidence"`
	RiskLevel      string  `json:"risk_level"`
	Recommendation string  `json:"recommendation"`
	MLSource       string  `json:"ml_source"`
	AudioFile      string  `json:"audio_file"`
	Duplicate      bool    `json:"duplicate,omitempty"`
	SMSSent        bool    `json:"sms_sent"`
	AlertStatus    string  `json:"alert_status"`
	AlertError     string  `json:"alert_error,omitempty"`
}

// AnalyzeHandler handles POST /analyze: a multipart form with the
// recording under "audio" plus patient fields and an optional
// dedup_key.
func (h *Handlers) AnalyzeHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		if err == http.ErrMissingFile {
			respondError(c, apperrors.New(apperrors.KindValidation, "audio file is required"))
		} else {
			respondError(c, apperrors.Wrap(apperrors.KindValidation, "failed to read audio file", err))
		}
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInternal, "failed to open uploaded file", err))
		return
	}
	defer file.Close()

	req := &Request{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
		PatientID:   c.PostForm("patient_id"),
		PatientName: c.PostForm("patient_name"),
		DoctorID:    c.PostForm("doctor_id"),
		Symptoms:    c.PostForm("symptoms"),
		Phone:       c.PostForm("phone"),
		DedupKey:    c.PostForm("dedup_key"),
	}
	if ageStr := c.PostForm("age"); ageStr != "" {
		age, err := strconv.ParseInt(ageStr, 10, 64)
		if err != nil {
			respondError(c, apperrors.New(apperrors.KindValidation, "age must be an integer"))
			return
		}
		req.Age = &age
	}

	outcome, err := h.svc.Process(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	rec := outcome.Record
	c.JSON(http.StatusOK, AnalyzeResponse{
		ScreeningID:    rec.ID,
		Prediction:     rec.Prediction,
		Confidence:     rec.Confidence,
		RiskLevel:      rec.RiskTier,
		Recommendation: outcome.Recommendation,
		MLSource:       rec.MLSource,
		AudioFile:      rec.RecordingObject,
		Duplicate:      outcome.Duplicate,
		SMSSent:        outcome.AlertOutcome == AlertOutcomeSent,
		AlertStatus:    outcome.AlertOutcome,
		AlertError:     outcome.AlertError,
	})
}

// MockAnalyzeRequest is the JSON payload of POST /mock-analyze.
type MockAnalyzeRequest struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// MockAnalyzeHandler handles POST /mock-analyze: classification and
// risk tiering without upload or persistence, as a client-side test
// aid.
func (h *Handlers) MockAnalyzeHandler(c *gin.Context) {
	var req MockAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindValidation, "invalid request payload", err))
		return
	}
	if req.Label == "" {
		req.Label = risk.LabelNormal
		req.Confidence = 0.9
	}

	tier := risk.ForResult(req.Label, req.Confidence, h.svc.threshold)
	c.JSON(http.StatusOK, gin.H{
		"prediction":     req.Label,
		"confidence":     req.Confidence,
		"risk_level":     string(tier),
		"recommendation": risk.Recommendation(tier),
		"ml_source":      "mock",
	})
}

// HistoryHandler handles GET /history/:patient_id.
func (h *Handlers) HistoryHandler(c *gin.Context) {
	patientID := c.Param("patient_id")

	records, err := h.store.ListScreenings(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []*datastore.ScreeningRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"history":    records,
		"count":      len(records),
	})
}

// StatsHandler handles GET /stats.
func (h *Handlers) StatsHandler(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// HealthHandler handles GET /health.
func (h *Handlers) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"ml_integration":  h.svc.Classifier().Status(),
		"allowed_formats": h.svc.Validator().AllowedFormats(),
		"message":         "PulseEcho backend is running",
	})
}

// AudioHandler handles GET /audio/:object, streaming a stored
// recording.
func (h *Handlers) AudioHandler(c *gin.Context) {
	objectName := c.Param("object")

	body, contentType, err := h.recordings.GetRecording(c.Request.Context(), objectName)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindNotFound, "recording not found", err))
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "audio/wav"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Printf("Failed to stream recording %s: %v", objectName, err)
	}
}

// respondError maps an error to its HTTP status, reporting both the
// machine-readable kind and the human-readable message.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{
		"error":   string(apperrors.KindOf(err)),
		"message": apperrors.MessageOf(err),
	})
}
