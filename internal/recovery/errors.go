package recovery

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// ErrNoPayload reports a raw log that cannot be replayed.
var ErrNoPayload = errors.New("raw log has no payload")

// MapHTTPStatus maps recovery errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, rawlogs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoPayload):
		return http.StatusConflict
	case errors.Is(err, captures.ErrShapeMismatch),
		errors.Is(err, tribunals.ErrUnknownCaptureType):
		return http.StatusUnprocessableEntity
	}
	return rawlogs.MapHTTPStatus(err)
}
