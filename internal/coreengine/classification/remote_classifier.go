package classification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/upload"
)

// remoteTimeout bounds one inference call.
const remoteTimeout = 30 * time.Second

// RemoteClassifier calls an external ML inference API. The recording is
// posted as a multipart form with optional bearer auth; the API answers
// with {"prediction": ..., "confidence": ...}.
type RemoteClassifier struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewRemoteClassifier builds the remote variant for the given API.
func NewRemoteClassifier(apiURL, apiKey string) *RemoteClassifier {
	return &RemoteClassifier{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: remoteTimeout},
	}
}

type remoteResponse struct {
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

// Classify posts the recording to the ML API and parses the result.
// Unreachable service, non-200 status, and malformed output all fail
// with an inference error.
func (r *RemoteClassifier) Classify(ctx context.Context, up *upload.Upload) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", up.Filename)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "failed to build inference request", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "failed to build inference request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "failed to build inference request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, &body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "failed to build inference request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "ML API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.KindInference,
			fmt.Sprintf("ML API returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "failed to read ML API response", err)
	}

	var parsed remoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInference, "ML API returned malformed output", err)
	}
	if parsed.Prediction == "" || parsed.Confidence == nil {
		return nil, apperrors.New(apperrors.KindInference,
			"ML API response missing prediction or confidence")
	}
	if *parsed.Confidence < 0 || *parsed.Confidence > 1 {
		return nil, apperrors.New(apperrors.KindInference,
			fmt.Sprintf("ML API confidence %v out of range [0,1]", *parsed.Confidence))
	}

	return &Result{
		Label:      parsed.Prediction,
		Confidence: *parsed.Confidence,
		Source:     "remote_ml_api",
	}, nil
}

// Status describes the variant for the health endpoint.
func (r *RemoteClassifier) Status() map[string]interface{} {
	return map[string]interface{}{
		"mode":                    "remote",
		"external_api_configured": r.apiURL != "",
	}
}
