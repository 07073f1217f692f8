// Package apperrors defines the error taxonomy shared by the screening
// pipeline components. Every error surfaced to an API caller carries a
// machine-readable kind and a human-readable message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies which pipeline component an error originated from and
// how the caller should treat it.
type Kind string

const (
	// KindValidation is client-caused and must not be retried.
	KindValidation Kind = "validation"
	// KindInference may be transient; the caller may retry the whole request.
	KindInference Kind = "inference"
	// KindStorage may be retried with the same deduplication key.
	KindStorage Kind = "storage"
	// KindAlert is non-fatal to the request; the response reports it as a
	// degraded success.
	KindAlert Kind = "alert"
	// KindNotFound is returned for lookups of unknown records.
	KindNotFound Kind = "not_found"
	// KindInternal covers everything else.
	KindInternal Kind = "internal"
)

// Error is the concrete error type carried across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, unwrapping as needed.
// Errors that are not an *Error report KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to the HTTP status used by the API layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInference, KindAlert:
		return http.StatusBadGateway
	case KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the human-readable message of err, falling back to
// err.Error() for foreign errors.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
