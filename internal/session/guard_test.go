package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/metrics"
	"github.com/JaimeStill/tribunal/internal/session"
)

type scriptedSession struct {
	err   error
	calls int
}

func (s *scriptedSession) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{}`), nil
}

func (s *scriptedSession) Download(ctx context.Context, endpoint string, params url.Values) (*session.Download, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &session.Download{Data: []byte("x")}, nil
}

func (s *scriptedSession) Close() error { return nil }

func guardConfig() config.GuardConfig {
	return config.GuardConfig{
		RatePerSecond: 1000,
		Burst:         100,
		FailureRatio:  0.5,
		MinRequests:   3,
		HalfOpenMax:   1,
		Interval:      "1m",
		OpenTimeout:   "1m",
	}
}

func TestGuardOpensOnTransientFailures(t *testing.T) {
	guards := session.NewGuards(guardConfig(), metrics.New(), discard)
	inner := &scriptedSession{err: &session.HTTPError{Status: 503, Endpoint: "hearings"}}
	sess := guards.Wrap("TRT3", inner)

	for range 3 {
		if _, err := sess.Fetch(context.Background(), "hearings", nil); err == nil {
			t.Fatal("expected failure")
		}
	}

	if got := guards.State("TRT3"); got != "open" {
		t.Fatalf("state = %q, want open", got)
	}

	_, err := sess.Fetch(context.Background(), "hearings", nil)
	if !errors.Is(err, session.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestGuardIgnoresClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", &session.HTTPError{Status: 404, Endpoint: "x"}},
		{"session expired", session.ErrSessionExpired},
		{"cancelled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guards := session.NewGuards(guardConfig(), nil, discard)
			sess := guards.Wrap("TRT1", &scriptedSession{err: tt.err})

			for range 5 {
				_, _ = sess.Download(context.Background(), "doc", nil)
			}

			if got := guards.State("TRT1"); got != "closed" {
				t.Errorf("state = %q, want closed", got)
			}
		})
	}
}

func TestGuardsAreScopedPerTribunal(t *testing.T) {
	guards := session.NewGuards(guardConfig(), nil, discard)
	failing := guards.Wrap("TRT2", &scriptedSession{err: &session.HTTPError{Status: 502}})
	healthy := guards.Wrap("TRT15", &scriptedSession{})

	for range 3 {
		_, _ = failing.Fetch(context.Background(), "x", nil)
	}

	if _, err := healthy.Fetch(context.Background(), "x", nil); err != nil {
		t.Fatalf("healthy tribunal fetch: %v", err)
	}
	if got := guards.State("TRT15"); got != "closed" {
		t.Errorf("TRT15 state = %q, want closed", got)
	}
	if got := guards.State("unknown"); got != "closed" {
		t.Errorf("unknown state = %q, want closed", got)
	}
}
