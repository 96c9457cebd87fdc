package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a session failure with a machine-readable code.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the machine-readable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrInvalidCredentials is fatal: the portal rejected the login.
	ErrInvalidCredentials = &Error{"credential_invalid", "credential invalid/expired"}
	// ErrPortalUnavailable covers login timeouts and portal downtime.
	ErrPortalUnavailable = &Error{"portal_unavailable", "tribunal portal unavailable"}
	// ErrUnexpectedPage signals the login page no longer matches the configured selectors.
	ErrUnexpectedPage = &Error{"portal_changed", "unexpected portal page structure"}
	// ErrSessionExpired means the portal rejected the session mid-run.
	ErrSessionExpired = &Error{"session_expired", "tribunal session expired"}
	// ErrCircuitOpen means the tribunal breaker is refusing requests.
	ErrCircuitOpen = &Error{"circuit_open", "tribunal circuit breaker open"}
)

// HTTPError is a non-2xx portal response.
type HTTPError struct {
	Status   int
	Endpoint string
	Body     []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("portal %s returned %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
}

// StatusCode exposes the HTTP status for retry classification.
func (e *HTTPError) StatusCode() int { return e.Status }

// IsFatal reports whether err must fail a run without retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUnexpectedPage) ||
		errors.Is(err, ErrSessionExpired)
}

// MapHTTPStatus maps session errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrSessionExpired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPortalUnavailable), errors.Is(err, ErrUnexpectedPage):
		return http.StatusBadGateway
	case errors.Is(err, ErrCircuitOpen):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
