// Package handlers provides JSON response helpers shared by HTTP handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Coder is implemented by errors that carry a machine-readable code.
type Coder interface {
	Code() string
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RespondJSON writes data as JSON with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes an ErrorResponse. The code comes from the
// first error in the chain implementing Coder, falling back to the status text.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	code := ErrorCode(err, status)

	if status >= http.StatusInternalServerError {
		logger.Error("handler error", "status", status, "code", code, "error", err)
	} else {
		logger.Warn("handler error", "status", status, "code", code, "error", err)
	}

	RespondJSON(w, status, ErrorResponse{Code: code, Error: err.Error()})
}

// ErrorCode resolves the machine-readable code for err.
func ErrorCode(err error, status int) string {
	var c Coder
	if errors.As(err, &c) {
		if code := c.Code(); code != "" {
			return code
		}
	}
	return StatusCode(status)
}

// StatusCode converts an HTTP status into a snake_case code, e.g. 404 -> "not_found".
func StatusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	text = strings.ToLower(text)
	text = strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)
	return text
}
