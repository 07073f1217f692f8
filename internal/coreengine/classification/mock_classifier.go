package classification

import (
	"context"
	"hash/fnv"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/upload"
)

// mockOutcomes are the deterministic results the default mock cycles
// through, keyed by a hash of the payload so the same recording always
// classifies the same way.
var mockOutcomes = []Result{
	{Label: LabelNormal, Confidence: 0.97, Source: "mock"},
	{Label: LabelMurmurDetected, Confidence: 0.91, Source: "mock"},
	{Label: LabelNormal, Confidence: 0.88, Source: "mock"},
	{Label: LabelAbnormal, Confidence: 0.79, Source: "mock"},
}

// MockClassifier is a deterministic stand-in for the real model, used
// for testing and demo deployments without ML infrastructure.
type MockClassifier struct {
	// fixed, when set, is returned for every payload.
	fixed *Result
	// err, when set, is returned instead of a result.
	err error
}

// NewMockClassifier returns a mock whose outcome is derived from a hash
// of the payload.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// NewFixedMockClassifier returns a mock pinned to one outcome.
func NewFixedMockClassifier(label string, confidence float64) *MockClassifier {
	return &MockClassifier{fixed: &Result{Label: label, Confidence: confidence, Source: "mock"}}
}

// NewFailingMockClassifier returns a mock that simulates an unreachable
// model.
func NewFailingMockClassifier(err error) *MockClassifier {
	return &MockClassifier{err: err}
}

// Classify returns the deterministic mock result for the payload.
func (m *MockClassifier) Classify(_ context.Context, up *upload.Upload) (*Result, error) {
	if m.err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "mock model unavailable", m.err)
	}
	if m.fixed != nil {
		r := *m.fixed
		return &r, nil
	}

	h := fnv.New32a()
	h.Write(up.Data)
	r := mockOutcomes[h.Sum32()%uint32(len(mockOutcomes))]
	return &r, nil
}

// Status describes the mock for the health endpoint.
func (m *MockClassifier) Status() map[string]interface{} {
	return map[string]interface{}{
		"mode":         "mock",
		"model_loaded": true,
	}
}
