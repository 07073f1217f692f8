package classification

import (
	"context"
	"errors"
	"math"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/coreengine/audiofeatures"
	"pulseecho/backend/internal/upload"
)

// Decision thresholds for the feature heuristic. A healthy heart sound
// is dominated by low-frequency S1/S2 beats; murmur noise between beats
// raises both the zero-crossing rate and the high-frequency energy
// ratio.
const (
	localZCRThreshold     = 0.12
	localHFRatioThreshold = 0.25
	localMinConfidence    = 0.55
	localMaxConfidence    = 0.97
)

// LocalClassifier classifies recordings from extracted audio features,
// without any external ML service. Only PCM WAV input is supported;
// other allowed formats must go through the remote model.
type LocalClassifier struct{}

// NewLocalClassifier returns the feature-based classifier.
func NewLocalClassifier() *LocalClassifier {
	return &LocalClassifier{}
}

// Classify extracts features and applies the heuristic. Payloads the
// decoder cannot parse fail with an inference error.
func (l *LocalClassifier) Classify(_ context.Context, up *upload.Upload) (*Result, error) {
	feats, err := audiofeatures.Extract(up.Data)
	if err != nil {
		if errors.Is(err, audiofeatures.ErrNotWAV) {
			return nil, apperrors.Wrap(apperrors.KindInference,
				"local classifier requires PCM WAV input", err)
		}
		return nil, apperrors.Wrap(apperrors.KindInference, "failed to extract audio features", err)
	}

	// Score in [0,1]: how far the noisiness measures sit past their
	// thresholds.
	zcrScore := feats.ZeroCrossingRate / localZCRThreshold
	hfScore := feats.HighFreqRatio / localHFRatioThreshold
	score := (zcrScore + hfScore) / 2

	label := LabelNormal
	if score >= 1 {
		label = LabelAbnormal
	}

	// Confidence grows with distance from the decision boundary.
	confidence := localMinConfidence + (localMaxConfidence-localMinConfidence)*sigmoidDistance(score)

	return &Result{
		Label:      label,
		Confidence: round4(confidence),
		Source:     "local_features",
	}, nil
}

// Status describes the variant for the health endpoint.
func (l *LocalClassifier) Status() map[string]interface{} {
	return map[string]interface{}{
		"mode":         "local",
		"model_loaded": true,
		"classes":      []string{LabelNormal, LabelAbnormal},
	}
}

// sigmoidDistance maps |score-1| to (0,1), saturating for scores far
// from the boundary.
func sigmoidDistance(score float64) float64 {
	d := math.Abs(score - 1)
	return 2/(1+math.Exp(-3*d)) - 1
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
