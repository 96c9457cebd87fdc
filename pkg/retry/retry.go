// Package retry executes operations with exponential backoff, jitter, and
// pluggable retryable-error classification.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const maxJitter = 0.3

// Predicate reports whether an error should trigger another attempt.
type Predicate func(error) bool

// Hook observes a failed attempt before the executor waits and retries.
type Hook func(attempt int, err error, delay time.Duration)

// SleepFunc waits for d or until ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs operations under a retry policy. An Executor holds no
// per-call state and is safe for concurrent use.
type Executor struct {
	maxAttempts int
	base        time.Duration
	maxDelay    time.Duration
	retryable   Predicate
	onRetry     Hook
	sleep       SleepFunc
	jitter      func() float64
}

// Option customizes an Executor.
type Option func(*Executor)

// WithPredicate replaces the default retryable-error classification.
func WithPredicate(p Predicate) Option {
	return func(e *Executor) {
		if p != nil {
			e.retryable = p
		}
	}
}

// WithHook registers a hook called before each retry. Hooks accumulate and
// run in registration order.
func WithHook(h Hook) Option {
	return func(e *Executor) {
		if h == nil {
			return
		}
		if prev := e.onRetry; prev != nil {
			e.onRetry = func(attempt int, err error, delay time.Duration) {
				prev(attempt, err, delay)
				h(attempt, err, delay)
			}
			return
		}
		e.onRetry = h
	}
}

// WithSleep replaces the context-aware timer used between attempts.
func WithSleep(s SleepFunc) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithJitter replaces the jitter source. The function returns a fraction in [0,1)
// that is scaled to the 0-30% jitter band.
func WithJitter(j func() float64) Option {
	return func(e *Executor) {
		if j != nil {
			e.jitter = j
		}
	}
}

// New creates an Executor from cfg. Zero config fields fall back to defaults.
func New(cfg Config, opts ...Option) *Executor {
	cfg.loadDefaults()

	e := &Executor{
		maxAttempts: cfg.MaxAttempts,
		base:        cfg.BaseDelayDuration(),
		maxDelay:    cfg.MaxDelayDuration(),
		retryable:   IsRetryable,
		sleep:       sleepCtx,
		jitter:      rand.Float64,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// With returns a copy of the executor with additional options applied.
func (e *Executor) With(opts ...Option) *Executor {
	clone := *e
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// MaxAttempts returns the configured attempt ceiling.
func (e *Executor) MaxAttempts() int {
	return e.maxAttempts
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt
// ceiling is reached. Exhaustion returns an *ExhaustedError wrapping the last error.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !e.retryable(err) {
			return zero, err
		}

		if attempt == e.maxAttempts {
			break
		}

		delay := e.Delay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		if err := e.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry wait cancelled: %w", err)
		}
	}

	return zero, &ExhaustedError{Attempts: e.maxAttempts, Err: lastErr}
}

// Delay returns the wait before the attempt following the given one:
// base * 2^(attempt-1) plus 0-30% jitter, capped at the max delay.
func (e *Executor) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := e.maxDelay
	if attempt <= 32 {
		if shifted := e.base << (attempt - 1); shifted > 0 && shifted < e.maxDelay {
			d = shifted
		}
	}

	d += time.Duration(float64(d) * maxJitter * e.jitter())
	return min(d, e.maxDelay)
}

// ExhaustedError reports that every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
