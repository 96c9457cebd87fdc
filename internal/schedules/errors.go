package schedules

import (
	"errors"
	"net/http"
)

// Domain errors for schedule operations.
var (
	ErrNotFound  = errors.New("schedule not found")
	ErrDuplicate = errors.New("schedule already exists")
	ErrInactive  = errors.New("schedule is inactive")
	ErrInvalidID = errors.New("invalid schedule id")
)

// MapHTTPStatus maps schedule domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInactive):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
