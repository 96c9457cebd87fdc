package capturelogs

import (
	"errors"
	"net/http"
)

// Domain errors for capture log operations.
var (
	ErrNotFound          = errors.New("capture log not found")
	ErrDuplicate         = errors.New("capture log already exists")
	ErrInvalidTransition = errors.New("invalid capture log transition")
	ErrInvalidID         = errors.New("invalid capture log id")
)

// MapHTTPStatus maps capture log domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
