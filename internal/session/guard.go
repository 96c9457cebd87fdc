package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/metrics"
	"github.com/JaimeStill/tribunal/pkg/retry"
)

// Guards keeps one rate limiter and circuit breaker per tribunal code,
// shared by every session opened against that tribunal.
type Guards struct {
	cfg     config.GuardConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	guards map[string]*guard
}

type guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
}

// NewGuards creates an empty guard registry.
func NewGuards(cfg config.GuardConfig, m *metrics.Metrics, logger *slog.Logger) *Guards {
	return &Guards{
		cfg:     cfg,
		metrics: m,
		logger:  logger.With("system", "guard"),
		guards:  make(map[string]*guard),
	}
}

// Wrap returns sess with every fetch and download passing the tribunal's
// limiter and breaker.
func (g *Guards) Wrap(tribunal string, sess Session) Session {
	return &guardedSession{Session: sess, tribunal: tribunal, guard: g.get(tribunal), metrics: g.metrics}
}

// State returns the breaker state of a tribunal, or "closed" if none exists yet.
func (g *Guards) State(tribunal string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gd, ok := g.guards[tribunal]; ok {
		return gd.breaker.State().String()
	}
	return gobreaker.StateClosed.String()
}

func (g *Guards) get(tribunal string) *guard {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gd, ok := g.guards[tribunal]; ok {
		return gd
	}

	minRequests := g.cfg.MinRequests
	ratio := g.cfg.FailureRatio

	gd := &guard{
		limiter: rate.NewLimiter(rate.Limit(g.cfg.RatePerSecond), g.cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        tribunal,
			MaxRequests: g.cfg.HalfOpenMax,
			Interval:    g.cfg.IntervalDuration(),
			Timeout:     g.cfg.OpenTimeoutDuration(),
			ReadyToTrip: func(c gobreaker.Counts) bool {
				if c.Requests < minRequests {
					return false
				}
				return float64(c.TotalFailures)/float64(c.Requests) >= ratio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.logger.Warn("breaker state change", "tribunal", name, "from", from.String(), "to", to.String())
				g.metrics.BreakerTransition(name, from.String(), to.String())
			},
			IsSuccessful: countsAsHealthy,
		}),
	}
	g.guards[tribunal] = gd
	return gd
}

// countsAsHealthy keeps client-side outcomes (cancellation, 4xx, auth) from
// tripping the breaker; only transient portal failures count against it.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return !retry.IsRetryable(err)
}

type guardedSession struct {
	Session
	tribunal string
	guard    *guard
	metrics  *metrics.Metrics
}

func (s *guardedSession) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	v, err := s.do(ctx, func() (any, error) {
		return s.Session.Fetch(ctx, endpoint, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (s *guardedSession) Download(ctx context.Context, endpoint string, params url.Values) (*Download, error) {
	v, err := s.do(ctx, func() (any, error) {
		return s.Session.Download(ctx, endpoint, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Download), nil
}

func (s *guardedSession) do(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := s.guard.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", s.tribunal, err)
	}

	v, err := s.guard.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.metrics.GuardRejected(s.tribunal)
		return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, s.tribunal, err)
	}
	return v, err
}
