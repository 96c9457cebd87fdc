package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// CodeCarrier is implemented by database errors that expose a SQLSTATE code.
type CodeCarrier interface {
	SQLState() string
}

var transientSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"53300": true, // too_many_connections
	"57P03": true, // cannot_connect_now
}

var transientMessages = []string{
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"deadlock",
	"database is locked",
	"lock timeout",
	"could not obtain lock",
	"too many connections",
	"too many clients",
}

// IsRetryable is the default predicate. It matches timeouts, refused or reset
// connections, DNS failures, database lock and connection-pressure errors,
// and errors carrying an HTTP status in [500,599].
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code >= 500 && code <= 599
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var cc CodeCarrier
	if errors.As(err, &cc) && transientSQLStates[cc.SQLState()] {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}

	return false
}

// HTTPStatus returns a predicate that retries only errors carrying one of the
// given HTTP status codes.
func HTTPStatus(codes ...int) Predicate {
	return func(err error) bool {
		var sc StatusCoder
		if !errors.As(err, &sc) {
			return false
		}
		for _, c := range codes {
			if sc.StatusCode() == c {
				return true
			}
		}
		return false
	}
}

// Any combines predicates; an error is retryable if any predicate accepts it.
func Any(preds ...Predicate) Predicate {
	return func(err error) bool {
		for _, p := range preds {
			if p(err) {
				return true
			}
		}
		return false
	}
}
