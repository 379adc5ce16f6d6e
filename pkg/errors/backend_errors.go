// Package errors provides remote backend error classification and handling utilities.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// BackendErrorType represents the type of remote backend error.
type BackendErrorType int

const (
	// ErrorTypeUnknown represents an unclassified backend error.
	ErrorTypeUnknown BackendErrorType = iota
	// ErrorTypeTimeout represents a request that exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeConnection represents a network-level connection failure.
	ErrorTypeConnection
	// ErrorTypeUnauthorized represents a 401/403 response (expired or invalid token).
	ErrorTypeUnauthorized
	// ErrorTypeNotFound represents a 404 response.
	ErrorTypeNotFound
	// ErrorTypeRateLimited represents a 429 response.
	ErrorTypeRateLimited
	// ErrorTypeServer represents a 5xx response.
	ErrorTypeServer
	// ErrorTypeMalformedPayload represents a response body that failed to
	// parse into the expected shape (e.g. a non-array notification list).
	ErrorTypeMalformedPayload
)

// BackendError wraps a remote backend error with classification information.
type BackendError struct {
	Type        BackendErrorType
	OriginalErr error
	StatusCode  int // HTTP status code when the response was received
	Message     string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.StatusCode, e.OriginalErr)
	}
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *BackendError) Unwrap() error {
	return e.OriginalErr
}

// Transient reports whether the error is recoverable by retrying on a later
// poll tick. Unauthorized and not-found responses are not transient.
func (e *BackendError) Transient() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection, ErrorTypeServer, ErrorTypeRateLimited, ErrorTypeMalformedPayload:
		return true
	}
	return false
}

// NewStatusError classifies a non-2xx HTTP response.
func NewStatusError(statusCode int, message string) *BackendError {
	t := ErrorTypeUnknown
	switch {
	case statusCode == 401 || statusCode == 403:
		t = ErrorTypeUnauthorized
	case statusCode == 404:
		t = ErrorTypeNotFound
	case statusCode == 429:
		t = ErrorTypeRateLimited
	case statusCode >= 500:
		t = ErrorTypeServer
	}
	return &BackendError{
		Type:       t,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewMalformedError classifies an unparseable response body.
func NewMalformedError(err error, message string) *BackendError {
	return &BackendError{
		Type:        ErrorTypeMalformedPayload,
		OriginalErr: err,
		Message:     message,
	}
}

// ClassifyTransportError classifies a transport-level failure (no HTTP
// response was received).
//
// It handles context deadlines and net errors:
//   - context.DeadlineExceeded / net timeout -> ErrorTypeTimeout
//   - other net.Error / connection refused    -> ErrorTypeConnection
//   - anything else                           -> ErrorTypeUnknown
func ClassifyTransportError(err error, message string) *BackendError {
	t := ErrorTypeUnknown

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		t = ErrorTypeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		t = ErrorTypeTimeout
	case errors.As(err, &netErr):
		t = ErrorTypeConnection
	}

	return &BackendError{
		Type:        t,
		OriginalErr: err,
		Message:     message,
	}
}

// IsUnauthorized reports whether err is a backend unauthorized error.
func IsUnauthorized(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Type == ErrorTypeUnauthorized
}

// IsTransient reports whether err is a transient backend error.
func IsTransient(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Transient()
}
