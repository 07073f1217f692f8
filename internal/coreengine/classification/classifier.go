// Package classification wraps the heart-sound ML model behind a single
// Classify call. Three variants implement it: a remote ML API client, a
// local feature-based heuristic, and a deterministic mock for testing.
// The variant is selected once at startup from config; request handling
// never branches on the model mode.
package classification

import (
	"context"
	"fmt"
	"log"

	"pulseecho/backend/internal/config"
	"pulseecho/backend/internal/upload"
)

// Labels produced by the classifiers. Remote models may return others;
// anything that is not LabelNormal is treated as abnormal by the risk
// mapping.
const (
	LabelNormal         = "normal"
	LabelAbnormal       = "abnormal"
	LabelMurmurDetected = "murmur-detected"
)

// Result is one classification outcome.
type Result struct {
	// Label is the predicted class, e.g. normal or murmur-detected.
	Label string `json:"prediction"`
	// Confidence is the model's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Source names the producing variant: remote_ml_api, local_features, mock.
	Source string `json:"ml_source"`
}

// Classifier is the capability interface over the model variants.
type Classifier interface {
	// Classify analyzes a validated recording and returns the result.
	Classify(ctx context.Context, up *upload.Upload) (*Result, error)
	// Status describes the variant for the health endpoint.
	Status() map[string]interface{}
}

// ForConfig selects the Classifier for the configured model mode.
func ForConfig(cfg config.ModelConfig) (Classifier, error) {
	switch cfg.Mode {
	case config.ModelModeRemote:
		log.Printf("classification: using remote ML API at %s", cfg.APIURL)
		return NewRemoteClassifier(cfg.APIURL, cfg.APIKey), nil
	case config.ModelModeLocal:
		log.Println("classification: using local feature classifier")
		return NewLocalClassifier(), nil
	case config.ModelModeMock:
		log.Println("classification: using mock classifier")
		return NewMockClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown model mode: %q", cfg.Mode)
	}
}
