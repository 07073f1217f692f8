// Package upload validates incoming recording payloads before any
// processing happens. Validation has no side effects; a rejected
// request leaves no trace anywhere else in the system.
package upload

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/config"
)

// Upload is an accepted file handle: the validated payload plus the
// metadata later stages need.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Validator checks recording uploads against the configured format
// allow-list and size limit.
type Validator struct {
	maxBytes int64
	allowed  map[string]bool
}

// NewValidator builds a Validator from the upload configuration.
// Extensions are matched case-insensitively and without the dot.
func NewValidator(cfg config.UploadConfig) *Validator {
	allowed := make(map[string]bool, len(cfg.AllowedFormats))
	for _, ext := range cfg.AllowedFormats {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Validator{maxBytes: cfg.MaxBytes, allowed: allowed}
}

// MaxBytes returns the inclusive size limit.
func (v *Validator) MaxBytes() int64 { return v.maxBytes }

// AllowedFormats returns the accepted extensions, sorted, for messages
// and the health endpoint.
func (v *Validator) AllowedFormats() []string {
	formats := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// Validate reads and checks one payload. It fails with a validation
// error when the extension is not allowed, the payload is empty, or the
// payload exceeds the size limit. A payload at exactly the limit is
// accepted.
func (v *Validator) Validate(filename, contentType string, r io.Reader) (*Upload, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || !v.allowed[ext] {
		return nil, apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("file type %q not allowed, use one of: %s", ext, strings.Join(v.AllowedFormats(), ", ")))
	}

	// Read one byte past the limit so an oversized payload is detected
	// without buffering all of it.
	data, err := io.ReadAll(io.LimitReader(r, v.maxBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "empty payload")
	}
	if int64(len(data)) > v.maxBytes {
		return nil, apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("file exceeds size limit of %d bytes", v.maxBytes))
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Upload{
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
