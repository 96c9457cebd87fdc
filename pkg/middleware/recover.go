package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/tribunal/pkg/handlers"
)

var errInternal = errors.New("internal server error")

// Recover returns middleware that converts a handler panic into a 500
// response. http.ErrAbortHandler is re-raised.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("handler panic", "method", r.Method, "uri", r.URL.RequestURI(), "panic", v)
				handlers.RespondError(w, logger, http.StatusInternalServerError, errInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
