// Package scheduler runs due capture schedules on a periodic tick and on
// demand. Both paths share one execution routine, one worker bound, and
// the credential serialization of the session provider.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/metrics"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/lifecycle"
	"github.com/JaimeStill/tribunal/pkg/retry"
)

// dueBatch caps how many schedules a single tick claims.
const dueBatch = 100

// Deps are the collaborators a Scheduler drives.
type Deps struct {
	Schedules schedules.System
	Logs      capturelogs.System
	RawLogs   rawlogs.System
	Tribunals tribunals.System
	Sessions  *session.Provider
	Registry  *captures.Registry
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
	// Sleep replaces the wait between login attempts.
	Sleep retry.SleepFunc
}

// Scheduler selects due schedules and runs their captures.
type Scheduler struct {
	cfg    config.SchedulerConfig
	deps   Deps
	logger *slog.Logger
	login  *retry.Executor
	sem    *semaphore.Weighted

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	base     context.Context
	manual   sync.WaitGroup
}

// New creates a Scheduler. cfg is expected to be finalized.
func New(cfg config.SchedulerConfig, deps Deps) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	logger := deps.Logger.With("system", "scheduler")

	backoff := cfg.LoginBackoffDuration()
	login := retry.New(
		retry.Config{
			MaxAttempts: cfg.LoginAttempts,
			BaseDelay:   backoff.String(),
			MaxDelay:    (backoff * 8).String(),
		},
		retry.WithPredicate(retryLogin),
		retry.WithSleep(deps.Sleep),
		retry.WithHook(func(attempt int, err error, delay time.Duration) {
			deps.Metrics.Retry("login")
			logger.Warn("login failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}),
	)

	return &Scheduler{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		login:    login,
		sem:      semaphore.NewWeighted(int64(max(cfg.Workers, 1))),
		inflight: make(map[uuid.UUID]struct{}),
		base:     context.Background(),
	}
}

// Handler returns the HTTP handler for manual triggers.
func (s *Scheduler) Handler() *Handler {
	return NewHandler(s, s.logger)
}

// Report summarizes one tick.
type Report struct {
	Due       int `json:"due"`
	Skipped   int `json:"skipped"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Tick runs every schedule due at now and waits for all of them. Each run
// advances its schedule to now + interval whatever the outcome. Schedules
// still running from an earlier tick or trigger are skipped untouched.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (Report, error) {
	due, err := s.deps.Schedules.Due(ctx, now, dueBatch)
	if err != nil {
		return Report{}, fmt.Errorf("select due schedules: %w", err)
	}

	report := Report{Due: len(due)}
	if len(due) == 0 {
		return report, nil
	}

	results := make([]*outcome, len(due))
	var g errgroup.Group

	for i, sc := range due {
		if !s.claim(sc.ID) {
			report.Skipped++
			s.deps.Metrics.ScheduleSkipped("in_flight")
			s.logger.Info("schedule still running, skipped", "schedule_id", sc.ID)
			continue
		}

		g.Go(func() error {
			defer s.release(sc.ID)

			out := s.execute(ctx, sc, job{trigger: capturelogs.TriggerAuto})
			results[i] = out

			next := now.Add(sc.Interval())
			if err := s.deps.Schedules.Advance(ctx, sc.ID, next, out.startedAt, string(out.status)); err != nil {
				s.logger.Error("advance schedule failed", "schedule_id", sc.ID, "error", err)
			}
			return nil
		})
	}

	g.Wait()

	for _, out := range results {
		switch {
		case out == nil:
		case out.status == capturelogs.StatusCompleted:
			report.Completed++
		default:
			report.Failed++
		}
	}

	s.logger.Info(
		"tick finished",
		"due", report.Due,
		"skipped", report.Skipped,
		"completed", report.Completed,
		"failed", report.Failed,
	)
	return report, nil
}

// TriggerResult acknowledges a manual trigger.
type TriggerResult struct {
	CaptureLogID uuid.UUID          `json:"capture_log_id"`
	Status       capturelogs.Status `json:"status"`
}

// Trigger starts a schedule immediately and returns once its capture log
// exists. The run continues in the background and records only
// last_run_at and last_status; next_run_at is left alone.
func (s *Scheduler) Trigger(ctx context.Context, scheduleID uuid.UUID, actor uuid.UUID) (*TriggerResult, error) {
	sc, err := s.deps.Schedules.Find(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !sc.Active {
		return nil, fmt.Errorf("%w: %s", schedules.ErrInactive, sc.ID)
	}

	if !s.claim(sc.ID) {
		s.deps.Metrics.ScheduleSkipped("in_flight")
		return nil, fmt.Errorf("%w: %s", ErrInFlight, sc.ID)
	}

	log, err := s.deps.Logs.Create(ctx, createCommand(sc, capturelogs.TriggerManual, actor))
	if err != nil {
		s.release(sc.ID)
		return nil, fmt.Errorf("create capture log: %w", err)
	}

	s.mu.Lock()
	base := s.base
	s.mu.Unlock()

	s.manual.Go(func() {
		defer s.release(sc.ID)

		out := s.execute(base, *sc, job{trigger: capturelogs.TriggerManual, actor: actor, log: log})
		if err := s.deps.Schedules.RecordRun(base, sc.ID, out.startedAt, string(out.status)); err != nil {
			s.logger.Error("record manual run failed", "schedule_id", sc.ID, "error", err)
		}
	})

	return &TriggerResult{CaptureLogID: log.ID, Status: capturelogs.StatusInProgress}, nil
}

// Wait blocks until every manual run started so far has finished.
func (s *Scheduler) Wait() {
	s.manual.Wait()
}

// Start registers the cron driver with the lifecycle coordinator. Manual
// runs use the coordinator context from here on.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	s.mu.Lock()
	s.base = lc.Context()
	s.mu.Unlock()

	if !s.cfg.IsEnabled() {
		s.logger.Info("periodic scheduler disabled")
		return nil
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	spec := "@every " + s.cfg.TickIntervalDuration().String()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Tick(lc.Context(), s.deps.Now()); err != nil {
			s.logger.Error("tick failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule tick %q: %w", spec, err)
	}

	lc.OnStartup(func() {
		c.Start()
		s.logger.Info("scheduler started", "tick", spec, "workers", s.cfg.Workers)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-c.Stop().Done()
		s.manual.Wait()
		s.logger.Info("scheduler stopped")
	})

	return nil
}

func (s *Scheduler) claim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func createCommand(sc *schedules.Schedule, trigger capturelogs.Trigger, actor uuid.UUID) capturelogs.CreateCommand {
	id := sc.ID
	return capturelogs.CreateCommand{
		ScheduleID:   &id,
		CredentialID: sc.CredentialID,
		CaptureType:  sc.CaptureType,
		TribunalCode: sc.TribunalCode,
		Degree:       sc.Degree,
		LawyerID:     sc.LawyerID,
		Trigger:      trigger,
		RequestedBy:  actor,
	}
}
