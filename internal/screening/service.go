// Package screening orchestrates the request pipeline: validation,
// classification, persistence, and alerting.
package screening

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"pulseecho/backend/internal/alerting"
	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/coreengine/classification"
	"pulseecho/backend/internal/coreengine/risk"
	"pulseecho/backend/internal/datastore"
	"pulseecho/backend/internal/metrics"
	"pulseecho/backend/internal/upload"
)

// Stage is a step of the per-request state machine.
type Stage string

const (
	StageReceived        Stage = "Received"
	StageValidated       Stage = "Validated"
	StageClassified      Stage = "Classified"
	StagePersisted       Stage = "Persisted"
	StageAlertDispatched Stage = "AlertDispatched"
	StageAlertSkipped    Stage = "AlertSkipped"
	StageCompleted       Stage = "Completed"
	StageFailed          Stage = "Failed"
)

// Alert outcome values reported in responses.
const (
	AlertOutcomeSent    = "sent"
	AlertOutcomeFailed  = "failed"
	AlertOutcomeSkipped = "skipped"
)

// Store is the persistence surface the orchestrator needs. It is
// satisfied by *datastore.Store and by in-memory fakes in tests.
type Store interface {
	SaveScreening(ctx context.Context, rec *datastore.ScreeningRecord) (string, error)
	GetScreening(ctx context.Context, id string) (*datastore.ScreeningRecord, error)
	ListScreenings(ctx context.Context, patientID string) ([]*datastore.ScreeningRecord, error)
	SetAlertSent(ctx context.Context, id string, sent bool) error
	Stats(ctx context.Context) (*datastore.SystemStats, error)
	CreateAlertEvent(ctx context.Context, ev *datastore.AlertEvent) error
	GetPatient(ctx context.Context, patientID string) (*datastore.Patient, error)
}

// RecordingStore is the object-storage surface for raw recordings.
type RecordingStore interface {
	UploadRecording(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error)
	DeleteRecording(ctx context.Context, objectName string) error
}

// Request is one screening submission.
type Request struct {
	Filename    string
	ContentType string
	Body        io.Reader

	PatientID   string
	PatientName string
	Age         *int64
	DoctorID    string
	Symptoms    string
	Phone       string

	// DedupKey makes retries of this submission idempotent. When the
	// client supplies none, a fresh key is generated and the request is
	// persisted exactly once but cannot be deduplicated across retries.
	DedupKey string
}

// Outcome is the terminal result of one request.
type Outcome struct {
	Stage  Stage
	Record *datastore.ScreeningRecord
	Result *classification.Result
	// Duplicate is set when the dedup key matched an earlier submission
	// and the existing record was returned.
	Duplicate bool
	// AlertOutcome is sent, failed, or skipped.
	AlertOutcome string
	// AlertError carries the alert failure message on degraded success.
	AlertError string
	// Recommendation is the guidance text for the record's risk tier.
	Recommendation string
}

// Service sequences the pipeline. Each inbound request is handled
// independently; the only shared state is the store's connection pool.
type Service struct {
	validator  *upload.Validator
	classifier classification.Classifier
	store      Store
	recordings RecordingStore
	dispatcher *alerting.Dispatcher
	metrics    *metrics.Metrics
	threshold  float64
}

// NewService wires the pipeline components together.
func NewService(
	validator *upload.Validator,
	classifier classification.Classifier,
	store Store,
	recordings RecordingStore,
	dispatcher *alerting.Dispatcher,
	m *metrics.Metrics,
	alertThreshold float64,
) *Service {
	return &Service{
		validator:  validator,
		classifier: classifier,
		store:      store,
		recordings: recordings,
		dispatcher: dispatcher,
		metrics:    m,
		threshold:  alertThreshold,
	}
}

// Classifier exposes the active classifier for the health endpoint.
func (s *Service) Classifier() classification.Classifier { return s.classifier }

// Validator exposes the upload validator for the health endpoint.
func (s *Service) Validator() *upload.Validator { return s.validator }

// Process runs one request through the state machine:
//
//	Received -> Validated -> Classified -> Persisted ->
//	(AlertDispatched | AlertSkipped) -> Completed
//
// with Failed reachable from every step. Validation and inference
// errors abort before anything is persisted. Storage errors abort after
// classification; the same dedup key makes the retry safe. Alert errors
// do not abort: the record stays persisted and the outcome reports a
// degraded success.
func (s *Service) Process(ctx context.Context, req *Request) (*Outcome, error) {
	outcome := &Outcome{Stage: StageReceived, AlertOutcome: AlertOutcomeSkipped}

	// Received -> Validated
	up, err := s.validator.Validate(req.Filename, req.ContentType, req.Body)
	if err != nil {
		return s.fail(outcome, err)
	}
	outcome.Stage = StageValidated

	// Validated -> Classified
	started := time.Now()
	result, err := s.classifier.Classify(ctx, up)
	if err != nil {
		return s.fail(outcome, err)
	}
	s.metrics.ObserveInferenceLatency(time.Since(started).Seconds())
	outcome.Stage = StageClassified
	outcome.Result = result

	tier := risk.ForResult(result.Label, result.Confidence, s.threshold)
	outcome.Recommendation = risk.Recommendation(tier)

	// Classified -> Persisted. The recording goes to object storage
	// first so the record can reference it.
	objectName, err := s.recordings.UploadRecording(ctx, up.Filename, readerOf(up), up.Size, up.ContentType)
	if err != nil {
		return s.fail(outcome, apperrors.Wrap(apperrors.KindStorage, "failed to store recording", err))
	}

	rec := s.buildRecord(req, up, result, tier, objectName)
	savedID, err := s.store.SaveScreening(ctx, rec)
	if err != nil {
		s.discardRecording(ctx, objectName)
		return s.fail(outcome, err)
	}
	outcome.Stage = StagePersisted

	if savedID != rec.ID {
		// Dedup key matched an earlier submission: the persisted record
		// references the original upload, so the fresh object is
		// redundant. Its alert was already handled.
		s.discardRecording(ctx, objectName)
		existing, err := s.store.GetScreening(ctx, savedID)
		if err != nil {
			return s.fail(outcome, err)
		}
		outcome.Record = existing
		outcome.Duplicate = true
		if existing.AlertSent {
			outcome.AlertOutcome = AlertOutcomeSent
		}
		outcome.Stage = StageCompleted
		s.metrics.ScreeningCompleted(existing.RiskTier)
		return outcome, nil
	}
	outcome.Record = rec

	// Persisted -> AlertDispatched | AlertSkipped
	if tier == risk.TierHigh {
		s.dispatchAlert(ctx, rec, req.Phone, outcome)
	} else {
		outcome.Stage = StageAlertSkipped
	}

	outcome.Stage = StageCompleted
	s.metrics.ScreeningCompleted(rec.RiskTier)
	return outcome, nil
}

// dispatchAlert sends the SMS and records the AlertEvent. A failure
// here never rolls back the persisted record; it degrades the outcome.
func (s *Service) dispatchAlert(ctx context.Context, rec *datastore.ScreeningRecord, phone string, outcome *Outcome) {
	contact := s.dispatcher.Contact(s.resolvePhone(ctx, rec.PatientID, phone))

	message, delivery, err := s.dispatcher.Dispatch(ctx, rec, contact)
	ev := &datastore.AlertEvent{
		ID:          uuid.New().String(),
		ScreeningID: rec.ID,
		Contact:     contact,
		Message:     message,
	}

	if err != nil {
		log.Printf("Alert dispatch failed for screening %s: %v", rec.ID, err)
		ev.Status = datastore.AlertStatusFailed
		ev.ErrorDetail = sql.NullString{String: apperrors.MessageOf(err), Valid: true}
		outcome.AlertOutcome = AlertOutcomeFailed
		outcome.AlertError = apperrors.MessageOf(err)
		s.metrics.AlertDispatched(datastore.AlertStatusFailed)
	} else {
		ev.Status = datastore.AlertStatusSent
		ev.ProviderMessageID = sql.NullString{String: delivery.MessageID, Valid: true}
		outcome.AlertOutcome = AlertOutcomeSent
		outcome.Stage = StageAlertDispatched
		s.metrics.AlertDispatched(datastore.AlertStatusSent)
	}

	if storeErr := s.store.CreateAlertEvent(ctx, ev); storeErr != nil {
		log.Printf("CRITICAL: failed to record alert event for screening %s: %v", rec.ID, storeErr)
	}
	if err == nil {
		rec.AlertSent = true
		if flagErr := s.store.SetAlertSent(ctx, rec.ID, true); flagErr != nil {
			log.Printf("CRITICAL: failed to flag screening %s as alerted: %v", rec.ID, flagErr)
		}
	}
}

// resolvePhone prefers the phone supplied with the request, then the
// registered patient record.
func (s *Service) resolvePhone(ctx context.Context, patientID, phone string) string {
	if phone != "" || patientID == "" {
		return phone
	}
	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil || !patient.Phone.Valid {
		return ""
	}
	return patient.Phone.String
}

func (s *Service) buildRecord(req *Request, up *upload.Upload, result *classification.Result, tier risk.Tier, objectName string) *datastore.ScreeningRecord {
	dedupKey := req.DedupKey
	if dedupKey == "" {
		dedupKey = uuid.New().String()
	}
	rec := &datastore.ScreeningRecord{
		ID:              uuid.New().String(),
		DedupKey:        dedupKey,
		PatientID:       req.PatientID,
		RecordingObject: objectName,
		Prediction:      result.Label,
		Confidence:      result.Confidence,
		RiskTier:        string(tier),
		MLSource:        result.Source,
		CreatedAt:       time.Now().UTC(),
	}
	if req.PatientName != "" {
		rec.PatientName = sql.NullString{String: req.PatientName, Valid: true}
	}
	if req.Age != nil {
		rec.PatientAge = sql.NullInt64{Int64: *req.Age, Valid: true}
	}
	if req.DoctorID != "" {
		rec.DoctorID = sql.NullString{String: req.DoctorID, Valid: true}
	}
	if req.Symptoms != "" {
		rec.Symptoms = sql.NullString{String: req.Symptoms, Valid: true}
	}
	return rec
}

func (s *Service) fail(outcome *Outcome, err error) (*Outcome, error) {
	outcome.Stage = StageFailed
	s.metrics.ScreeningFailed(string(apperrors.KindOf(err)))
	return outcome, err
}

// discardRecording removes an uploaded object no persisted record
// references. Best effort: a leftover object is logged, not fatal.
func (s *Service) discardRecording(ctx context.Context, objectName string) {
	if err := s.recordings.DeleteRecording(ctx, objectName); err != nil {
		log.Printf("WARNING: failed to delete unreferenced recording %s: %v", objectName, err)
	}
}

// readerOf re-reads the validated payload for the object-store upload.
func readerOf(up *upload.Upload) io.Reader {
	return bytes.NewReader(up.Data)
}
