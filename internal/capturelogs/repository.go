package capturelogs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/pkg/pagination"
	"github.com/JaimeStill/tribunal/pkg/query"
	"github.com/JaimeStill/tribunal/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a capture log repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "capturelogs"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[CaptureLog], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "TribunalCode", "ErrorMessage")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count capture logs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	logs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCaptureLog)
	if err != nil {
		return nil, fmt.Errorf("query capture logs: %w", err)
	}

	result := pagination.NewPageResult(logs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*CaptureLog, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	l, err := repository.QueryOne(ctx, r.db, q, args, scanCaptureLog)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &l, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*CaptureLog, error) {
	q := `
		INSERT INTO capture_logs(id, schedule_id, credential_id, capture_type, tribunal_code, degree, lawyer_id, trigger, requested_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, schedule_id, credential_id, capture_type, tribunal_code, degree, lawyer_id, trigger, requested_by, status, error_message, result, created_at, started_at, finished_at`

	args := []any{
		uuid.New(),
		cmd.ScheduleID,
		cmd.CredentialID,
		cmd.CaptureType,
		cmd.TribunalCode,
		cmd.Degree,
		cmd.LawyerID,
		cmd.Trigger,
		cmd.Actor(),
		StatusPending,
	}

	l, err := repository.QueryOne(ctx, r.db, q, args, scanCaptureLog)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"capture log created",
		"id", l.ID,
		"capture_type", l.CaptureType,
		"tribunal", l.TribunalCode,
		"trigger", l.Trigger,
	)
	return &l, nil
}

func (r *repo) Start(ctx context.Context, id uuid.UUID) error {
	q := `
		UPDATE capture_logs
		SET status = $2, started_at = NOW()
		WHERE id = $1 AND status = $3`

	err := repository.ExecExpectOne(ctx, r.db, q, id, StatusInProgress, StatusPending)
	return r.transitionError(ctx, id, StatusInProgress, err)
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	q := `
		UPDATE capture_logs
		SET status = $2, result = $3, finished_at = NOW()
		WHERE id = $1 AND status = $4`

	err := repository.ExecExpectOne(ctx, r.db, q, id, StatusCompleted, nullJSON(result), StatusInProgress)
	return r.transitionError(ctx, id, StatusCompleted, err)
}

func (r *repo) Fail(ctx context.Context, id uuid.UUID, message string, result json.RawMessage) error {
	q := `
		UPDATE capture_logs
		SET status = $2, error_message = $3, result = COALESCE($4, result), finished_at = NOW()
		WHERE id = $1 AND status IN ($5, $6)`

	err := repository.ExecExpectOne(
		ctx, r.db, q,
		id, StatusFailed, message, nullJSON(result), StatusPending, StatusInProgress,
	)
	return r.transitionError(ctx, id, StatusFailed, err)
}

// transitionError distinguishes a missing row from a guard that did not match.
func (r *repo) transitionError(ctx context.Context, id uuid.UUID, to Status, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transition capture log %s to %s: %w", id, to, err)
	}

	current, findErr := r.Find(ctx, id)
	if findErr != nil {
		return findErr
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
