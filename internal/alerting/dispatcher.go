package alerting

import (
	"context"
	"fmt"
	"strings"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/coreengine/risk"
	"pulseecho/backend/internal/datastore"
)

// Dispatcher formats and sends high-risk screening alerts. It never
// touches the screening record itself; recording the outcome is the
// orchestrator's job.
type Dispatcher struct {
	sender      Sender
	clinicPhone string
}

// NewDispatcher builds a Dispatcher. clinicPhone is the fallback
// contact when the patient has no phone number on file.
func NewDispatcher(sender Sender, clinicPhone string) *Dispatcher {
	return &Dispatcher{sender: sender, clinicPhone: clinicPhone}
}

// Contact resolves the alert destination for a patient phone number,
// falling back to the clinic contact. Empty means no alert can be sent.
func (d *Dispatcher) Contact(patientPhone string) string {
	if patientPhone != "" {
		return patientPhone
	}
	return d.clinicPhone
}

// Dispatch sends the SMS alert for a high-risk screening record and
// returns the message body and delivery. Failures carry the alert error
// kind; the caller records them as a failed AlertEvent without rolling
// anything back.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *datastore.ScreeningRecord, contact string) (string, *Delivery, error) {
	message := FormatAlertMessage(rec)
	if contact == "" {
		return message, nil, apperrors.New(apperrors.KindAlert, "no alert contact configured")
	}

	delivery, err := d.sender.Send(ctx, contact, message)
	if err != nil {
		return message, nil, apperrors.Wrap(apperrors.KindAlert, "failed to send SMS alert", err)
	}
	return message, delivery, nil
}

// FormatAlertMessage renders the SMS body for a high-risk screening.
func FormatAlertMessage(rec *datastore.ScreeningRecord) string {
	var b strings.Builder
	b.WriteString("PULSEECHO HEART ALERT\n\n")
	b.WriteString("High-risk heart sound detected!\n\n")
	if rec.PatientName.Valid && rec.PatientName.String != "" {
		fmt.Fprintf(&b, "Patient: %s\n", rec.PatientName.String)
	}
	fmt.Fprintf(&b, "ID: %s\n", rec.PatientID)
	fmt.Fprintf(&b, "Finding: %s\n", rec.Prediction)
	fmt.Fprintf(&b, "Risk Level: %s\n", strings.ToUpper(rec.RiskTier))
	fmt.Fprintf(&b, "Confidence: %.0f%%\n\n", rec.Confidence*100)
	b.WriteString(risk.Recommendation(risk.Tier(rec.RiskTier)))
	b.WriteString("\n\nThis is an automated alert from the PulseEcho system.")
	return b.String()
}
