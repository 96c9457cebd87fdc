package captures

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest = errors.New("invalid capture request")
	ErrShapeMismatch  = errors.New("unexpected payload shape")
)

// ShapeError reports a tribunal response that does not match the expected
// structure. Raw holds the offending bytes for offline diagnosis.
type ShapeError struct {
	Where  string
	Reason string
	Raw    []byte
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrShapeMismatch, e.Where, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// Code returns the machine-readable error code.
func (e *ShapeError) Code() string { return "payload_shape_mismatch" }

func shapeError(where, reason string, raw []byte) *ShapeError {
	return &ShapeError{Where: where, Reason: reason, Raw: raw}
}

// MapHTTPStatus maps capture errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
