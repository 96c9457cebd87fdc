package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/handlers"
	"github.com/JaimeStill/tribunal/pkg/retry"
)

// job describes how a run was started. A manual trigger creates its
// capture log up front and passes it in.
type job struct {
	trigger capturelogs.Trigger
	actor   uuid.UUID
	log     *capturelogs.CaptureLog
}

type outcome struct {
	logID     uuid.UUID
	status    capturelogs.Status
	startedAt time.Time
	err       error
}

// execute runs one capture attempt end to end. It never returns an error;
// every failure is recorded on the capture log and raw log instead.
func (s *Scheduler) execute(ctx context.Context, sc schedules.Schedule, j job) *outcome {
	out := &outcome{status: capturelogs.StatusFailed, startedAt: s.deps.Now()}
	logger := s.logger.With(
		"schedule_id", sc.ID,
		"capture_type", sc.CaptureType,
		"tribunal", sc.TribunalCode,
		"trigger", j.trigger,
	)

	log := j.log
	if log == nil {
		created, err := s.deps.Logs.Create(ctx, createCommand(&sc, j.trigger, j.actor))
		if err != nil {
			logger.Error("create capture log failed", "error", err)
			out.err = err
			return out
		}
		log = created
	}
	out.logID = log.ID
	logger = logger.With("capture_log_id", log.ID)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.failPending(ctx, log.ID, fmt.Errorf("wait for worker: %w", err), logger)
		out.err = err
		return out
	}
	defer s.sem.Release(1)

	s.deps.Metrics.RunStarted()
	defer s.deps.Metrics.RunDone()

	runCtx := ctx
	if timeout := s.cfg.RunTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out.startedAt = s.deps.Now()

	req, cred, portal, err := s.prepare(runCtx, sc)
	if err != nil {
		s.failPending(ctx, log.ID, err, logger)
		out.err = err
		return out
	}

	if err := s.deps.Logs.Start(ctx, log.ID); err != nil {
		logger.Error("start capture log failed", "error", err)
		out.err = err
		return out
	}

	jr := newJournal(logger, s.deps.Now)
	raw := s.openRawLog(ctx, log.ID, req, jr)

	result, err := s.capture(runCtx, req, cred, portal, jr)

	out.err = err
	out.status = capturelogs.StatusCompleted
	if err != nil {
		out.status = capturelogs.StatusFailed
	}

	s.finish(ctx, log.ID, raw, result, err, jr)

	persisted := 0
	if result != nil {
		persisted = result.Totals.Persisted
	}
	s.deps.Metrics.CaptureFinished(
		string(sc.CaptureType),
		sc.TribunalCode,
		string(j.trigger),
		string(out.status),
		persisted,
		s.deps.Now().Sub(out.startedAt),
	)

	return out
}

// prepare builds the capture request and resolves the credential and
// portal. Failures here leave the run pending-then-failed.
func (s *Scheduler) prepare(ctx context.Context, sc schedules.Schedule) (captures.Request, *tribunals.Credential, *tribunals.Portal, error) {
	req := captures.Request{
		Type:         sc.CaptureType,
		TribunalCode: sc.TribunalCode,
		Degree:       sc.Degree,
		LawyerID:     sc.LawyerID,
	}

	if len(sc.Params) > 0 {
		if err := json.Unmarshal(sc.Params, &req.Params); err != nil {
			return req, nil, nil, fmt.Errorf("%w: schedule params: %v", captures.ErrInvalidRequest, err)
		}
	}

	var (
		cred *tribunals.Credential
		err  error
	)
	if sc.CredentialID != nil {
		cred, err = s.deps.Tribunals.Credential(ctx, *sc.CredentialID)
	} else {
		cred, err = s.deps.Tribunals.ResolveCredential(ctx, sc.LawyerID, sc.TribunalCode, sc.Degree)
	}
	if err != nil {
		return req, nil, nil, fmt.Errorf("resolve credential: %w", err)
	}
	req.CredentialID = cred.ID

	portal, err := s.deps.Tribunals.Portal(ctx, sc.TribunalCode, sc.Degree)
	if err != nil {
		return req, nil, nil, fmt.Errorf("resolve portal: %w", err)
	}

	return req, cred, portal, nil
}

// capture logs in, retrying an unavailable portal with the credential
// released between attempts, and runs the executor.
func (s *Scheduler) capture(
	ctx context.Context,
	req captures.Request,
	cred *tribunals.Credential,
	portal *tribunals.Portal,
	jr *journal,
) (*captures.Result, error) {
	executor, err := s.deps.Registry.Get(req.Type)
	if err != nil {
		jr.Error("no executor for capture type", "error", err)
		return nil, err
	}

	lease, err := retry.DoValue(ctx, s.login, func(ctx context.Context) (*session.Lease, error) {
		return s.deps.Sessions.Acquire(ctx, *cred, *portal)
	})
	if err != nil {
		jr.Error("login failed", "error", err)
		return nil, err
	}
	defer lease.Release()

	jr.Info("session acquired", "credential_id", cred.ID)

	result, err := executor.Capture(ctx, lease, req)
	if err != nil {
		jr.Error("capture failed", "error", err)
		return result, err
	}

	jr.Info(
		"capture completed",
		"expected", result.Totals.Expected,
		"captured", result.Totals.Captured,
		"persisted", result.Totals.Persisted,
		"item_errors", len(result.ItemErrors),
	)
	return result, nil
}

func (s *Scheduler) openRawLog(ctx context.Context, logID uuid.UUID, req captures.Request, jr *journal) string {
	request, err := json.Marshal(req)
	if err != nil {
		jr.Warn("encode request failed", "error", err)
	}

	doc, err := s.deps.RawLogs.Create(ctx, rawlogs.CreateCommand{
		CaptureLogID: logID,
		CaptureType:  req.Type,
		TribunalCode: req.TribunalCode,
		Degree:       req.Degree,
		LawyerID:     req.LawyerID,
		CredentialID: req.CredentialID,
		Request:      request,
	})
	if err != nil {
		jr.Warn("raw log unavailable, payload will not be stored", "error", err)
		return ""
	}
	return doc.ID
}

// finish closes the raw log before the capture log so a completed capture
// log always has its payload stored.
func (s *Scheduler) finish(ctx context.Context, logID uuid.UUID, rawID string, result *captures.Result, runErr error, jr *journal) {
	var summary json.RawMessage
	out := rawlogs.Outcome{Result: result}
	if result != nil {
		out.Payload = result.Payload
		var err error
		if summary, err = json.Marshal(result); err != nil {
			jr.Warn("encode result summary failed", "error", err)
		}
	}

	if runErr != nil {
		out.Error = &rawlogs.ErrorDetail{Code: errorCode(runErr), Message: runErr.Error()}
	}
	out.Logs = jr.Entries()

	if rawID != "" {
		closeRaw := s.deps.RawLogs.Complete
		if runErr != nil {
			closeRaw = s.deps.RawLogs.Fail
		}
		if err := closeRaw(ctx, rawID, out); err != nil {
			jr.logger.Error("close raw log failed", "raw_log_id", rawID, "error", err)
		}
	}

	var err error
	if runErr != nil {
		err = s.deps.Logs.Fail(ctx, logID, runErr.Error(), summary)
	} else {
		err = s.deps.Logs.Complete(ctx, logID, summary)
	}
	if err != nil {
		jr.logger.Error("close capture log failed", "error", err)
	}
}

func (s *Scheduler) failPending(ctx context.Context, logID uuid.UUID, cause error, logger *slog.Logger) {
	logger.Error("capture could not start", "error", cause)
	if err := s.deps.Logs.Fail(ctx, logID, cause.Error(), nil); err != nil {
		logger.Error("fail capture log failed", "error", err)
	}
}

// retryLogin admits only portal unavailability; every other login error,
// invalid credentials included, fails the run at once.
func retryLogin(err error) bool {
	return errors.Is(err, session.ErrPortalUnavailable)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case retry.IsExhausted(err):
		return "retry_exhausted"
	}
	var c handlers.Coder
	if errors.As(err, &c) && c.Code() != "" {
		return c.Code()
	}
	return "capture_failed"
}
