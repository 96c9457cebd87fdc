package scheduler

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/tribunal/internal/schedules"
)

// ErrInFlight means the schedule already has a run in progress.
var ErrInFlight = errors.New("schedule already running")

// MapHTTPStatus maps trigger errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, schedules.ErrNotFound), errors.Is(err, schedules.ErrInactive),
		errors.Is(err, schedules.ErrInvalidID):
		return schedules.MapHTTPStatus(err)
	}
	return http.StatusInternalServerError
}
