package storage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates the storage key contains a path traversal segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrTooLarge indicates a document exceeded the configured size limit.
	ErrTooLarge = errors.New("document exceeds max size")
)

// ServiceError carries the HTTP status returned by the blob service so the
// retry classifier can treat 5xx responses as transient.
type ServiceError struct {
	Op     string
	Key    string
	Status int
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s blob %s: status %d: %v", e.Op, e.Key, e.Status, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// StatusCode returns the blob service HTTP status.
func (e *ServiceError) StatusCode() int { return e.Status }

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func wrapServiceError(op, key string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return &ServiceError{Op: op, Key: key, Status: respErr.StatusCode, Err: err}
	}
	return fmt.Errorf("%s blob %s: %w", op, key, err)
}
