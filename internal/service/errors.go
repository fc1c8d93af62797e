package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// ErrorKind is the closed set of normalized provider failure kinds. Every
// vendor or transport failure is mapped onto one of these before it leaves an
// adapter.
type ErrorKind string

const (
	ErrInsufficientBalance ErrorKind = "insufficient_balance"
	ErrAuthFailed          ErrorKind = "auth_failed"
	ErrServiceUnavailable  ErrorKind = "service_unavailable"
	ErrTimeout             ErrorKind = "timeout"
	ErrInvalidRequest      ErrorKind = "invalid_request"
	ErrUnknown             ErrorKind = "unknown"
)

// AssessmentError is a normalized provider failure. Raw carries the vendor
// payload verbatim for the alert log.
type AssessmentError struct {
	Kind    ErrorKind
	Message string
	Raw     string
}

func (e *AssessmentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewAssessmentError(kind ErrorKind, message, raw string) *AssessmentError {
	return &AssessmentError{Kind: kind, Message: message, Raw: raw}
}

// KindOf extracts the normalized kind from any error; unmapped errors are
// reported as unknown rather than crashing the caller.
func KindOf(err error) ErrorKind {
	var ae *AssessmentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrUnknown
}

// AsAssessmentError normalizes an arbitrary error into an AssessmentError.
func AsAssessmentError(err error) *AssessmentError {
	var ae *AssessmentError
	if errors.As(err, &ae) {
		return ae
	}
	return NewAssessmentError(ErrUnknown, err.Error(), "")
}

// KindFromHTTPStatus maps transport-level status codes shared by all vendors.
func KindFromHTTPStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthFailed
	case status == http.StatusTooManyRequests:
		return ErrServiceUnavailable
	case status == http.StatusBadRequest ||
		status == http.StatusNotFound ||
		status == http.StatusRequestEntityTooLarge ||
		status == http.StatusUnsupportedMediaType:
		return ErrInvalidRequest
	case status >= 500:
		return ErrServiceUnavailable
	default:
		return ErrUnknown
	}
}

// transportError converts a client-side request failure. Timeouts get their
// own kind so the orchestrator can report them precisely.
func transportError(vendor string, err error) *AssessmentError {
	if isTimeout(err) {
		return NewAssessmentError(ErrTimeout, fmt.Sprintf("%s request timed out: %v", vendor, err), "")
	}
	return NewAssessmentError(ErrServiceUnavailable, fmt.Sprintf("%s request failed: %v", vendor, err), "")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
