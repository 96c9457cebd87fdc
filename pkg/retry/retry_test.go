package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/tribunal/pkg/retry"
)

type statusError struct{ code int }

func (e statusError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusError) StatusCode() int { return e.code }

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newExecutor(rec *recordedSleep, opts ...retry.Option) *retry.Executor {
	cfg := retry.Config{MaxAttempts: 3, BaseDelay: "100ms", MaxDelay: "5000ms"}
	base := []retry.Option{
		retry.WithPredicate(retry.HTTPStatus(503)),
		retry.WithSleep(rec.sleep),
		retry.WithJitter(func() float64 { return 0 }),
	}
	return retry.New(cfg, append(base, opts...)...)
}

func TestFailTwiceThenSucceed(t *testing.T) {
	rec := &recordedSleep{}
	exec := newExecutor(rec)

	calls := 0
	err := exec.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return statusError{503}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestAlwaysFailingExhausts(t *testing.T) {
	rec := &recordedSleep{}
	exec := newExecutor(rec)

	calls := 0
	err := exec.Do(context.Background(), func(context.Context) error {
		calls++
		return statusError{503}
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !retry.IsExhausted(err) {
		t.Fatalf("error = %v, want exhausted", err)
	}

	var se statusError
	if !errors.As(err, &se) || se.code != 503 {
		t.Errorf("last error not preserved: %v", err)
	}
}

func TestNonRetryablePropagatesImmediately(t *testing.T) {
	rec := &recordedSleep{}
	exec := newExecutor(rec)

	calls := 0
	err := exec.Do(context.Background(), func(context.Context) error {
		calls++
		return statusError{400}
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if retry.IsExhausted(err) {
		t.Error("non-retryable error should not be reported as exhausted")
	}
	if len(rec.delays) != 0 {
		t.Errorf("delays = %v, want none", rec.delays)
	}
}

func TestHookObservesRetries(t *testing.T) {
	rec := &recordedSleep{}

	var attempts []int
	exec := newExecutor(rec, retry.WithHook(func(attempt int, err error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}))

	_ = exec.Do(context.Background(), func(context.Context) error {
		return statusError{503}
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("hook attempts = %v, want [1 2]", attempts)
	}
}

func TestDoValue(t *testing.T) {
	rec := &recordedSleep{}
	exec := newExecutor(rec)

	calls := 0
	got, err := retry.DoValue(context.Background(), exec, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", statusError{503}
		}
		return "page", nil
	})

	if err != nil {
		t.Fatalf("DoValue() error = %v", err)
	}
	if got != "page" {
		t.Errorf("DoValue() = %q, want page", got)
	}
}

func TestDelay(t *testing.T) {
	cfg := retry.Config{MaxAttempts: 10, BaseDelay: "100ms", MaxDelay: "5000ms"}

	t.Run("no jitter doubles", func(t *testing.T) {
		exec := retry.New(cfg, retry.WithJitter(func() float64 { return 0 }))
		tests := []struct {
			attempt int
			want    time.Duration
		}{
			{1, 100 * time.Millisecond},
			{2, 200 * time.Millisecond},
			{3, 400 * time.Millisecond},
			{6, 3200 * time.Millisecond},
			{7, 5000 * time.Millisecond},
			{60, 5000 * time.Millisecond},
		}
		for _, tt := range tests {
			if got := exec.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		}
	})

	t.Run("jitter bounded to thirty percent", func(t *testing.T) {
		exec := retry.New(cfg, retry.WithJitter(func() float64 { return 0.999 }))
		got := exec.Delay(1)
		if got < 100*time.Millisecond || got > 130*time.Millisecond {
			t.Errorf("Delay(1) = %v, want within [100ms,130ms]", got)
		}
	})

	t.Run("jitter capped at max delay", func(t *testing.T) {
		exec := retry.New(cfg, retry.WithJitter(func() float64 { return 0.999 }))
		if got := exec.Delay(6); got != 5000*time.Millisecond {
			t.Errorf("Delay(6) = %v, want 5s", got)
		}
	})
}

func TestContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := retry.New(
		retry.Config{MaxAttempts: 3, BaseDelay: "1h", MaxDelay: "2h"},
		retry.WithPredicate(func(error) bool { return true }),
	)

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- exec.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("boom")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("validation failed"), false},
		{"http 500", statusError{500}, true},
		{"http 599", statusError{599}, true},
		{"http 404", statusError{404}, false},
		{"wrapped 502", fmt.Errorf("fetch page: %w", statusError{502}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"dns", &net.DNSError{Err: "no such host", Name: "pje.trt3.jus.br"}, true},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"deadlock code", &pgconn.PgError{Code: "40P01"}, true},
		{"too many connections code", &pgconn.PgError{Code: "53300"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"lock message", errors.New("database is locked"), true},
		{"too many connections message", errors.New("FATAL: sorry, too many clients already"), true},
		{"timeout message", errors.New("i/o timeout"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg retry.Config
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.MaxAttempts != 3 {
			t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
		}
		if cfg.BaseDelayDuration() != 500*time.Millisecond {
			t.Errorf("BaseDelay = %v, want 500ms", cfg.BaseDelayDuration())
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_RETRY_MAX_ATTEMPTS", "5")
		cfg := retry.Config{}
		if err := cfg.Finalize(&retry.Env{MaxAttempts: "TEST_RETRY_MAX_ATTEMPTS"}); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.MaxAttempts != 5 {
			t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
		}
	})

	t.Run("base above max rejected", func(t *testing.T) {
		cfg := retry.Config{BaseDelay: "10s", MaxDelay: "1s"}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestHooksAccumulate(t *testing.T) {
	rec := &recordedSleep{}

	var order []string
	exec := newExecutor(rec, retry.WithHook(func(int, error, time.Duration) {
		order = append(order, "base")
	})).With(retry.WithHook(func(int, error, time.Duration) {
		order = append(order, "scoped")
	}))

	_ = exec.Do(context.Background(), func(context.Context) error {
		return statusError{503}
	})

	want := []string{"base", "scoped", "base", "scoped"}
	if len(order) != len(want) {
		t.Fatalf("hook calls = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("hook calls = %v, want %v", order, want)
			break
		}
	}
}
