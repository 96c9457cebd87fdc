package rawlogs

import (
	"errors"
	"net/http"
)

// Domain errors for raw log operations.
var (
	ErrNotFound  = errors.New("raw log not found")
	ErrDuplicate = errors.New("raw log already exists for capture log")
	ErrImmutable = errors.New("raw log already completed")
)

// MapHTTPStatus maps raw log domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrImmutable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
