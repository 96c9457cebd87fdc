package tribunals

import (
	"errors"
	"net/http"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialInactive = errors.New("credential inactive")
	ErrPortalNotFound     = errors.New("tribunal config not found")
	ErrUnknownCaptureType = errors.New("unknown capture type")
)

// MapHTTPStatus maps tribunal reference errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrCredentialNotFound), errors.Is(err, ErrPortalNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCredentialInactive):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownCaptureType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
