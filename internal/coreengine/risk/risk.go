// Package risk derives a risk tier from a classification result. The
// tier is a pure function of the result and the configured alert
// threshold; it decides whether an SMS alert is dispatched.
package risk

// Tier is the derived risk category.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// LabelNormal is the classification label that always maps to TierLow.
const LabelNormal = "normal"

// ForResult maps a classification label and confidence to a Tier.
// A normal classification is low risk regardless of confidence. Any
// other label is high risk once confidence reaches threshold, and
// medium risk below it.
func ForResult(label string, confidence, threshold float64) Tier {
	if label == LabelNormal {
		return TierLow
	}
	if confidence >= threshold {
		return TierHigh
	}
	return TierMedium
}

// Recommendation returns the guidance text attached to screening
// responses for the given tier.
func Recommendation(t Tier) string {
	switch t {
	case TierHigh:
		return "Urgent consultation with cardiologist recommended. Avoid strenuous activity and seek immediate medical attention if symptoms worsen."
	case TierMedium:
		return "Schedule a follow-up with healthcare provider. Monitor for symptoms like chest pain, shortness of breath, or fatigue."
	default:
		return "Regular check-up advised. Maintain healthy lifestyle with balanced diet and regular exercise."
	}
}
