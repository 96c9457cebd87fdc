package schedules

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

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

// New creates a schedule repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "schedules"),
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
) (*pagination.PageResult[Schedule], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "TribunalCode")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count schedules: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSchedule)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Due(ctx context.Context, now time.Time, limit int) ([]Schedule, error) {
	active := true
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("Active", &active).
		WhereAtMost("NextRunAt", &now).
		BuildPage(1, limit)

	items, err := repository.QueryMany(ctx, r.db, q, args, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}
	return items, nil
}

func (r *repo) Advance(ctx context.Context, id uuid.UUID, next, ranAt time.Time, status string) error {
	q := `
		UPDATE schedules
		SET next_run_at = $2, last_run_at = $3, last_status = $4, updated_at = NOW()
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, r.db, q, id, next, ranAt, status); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Debug("schedule advanced", "id", id, "next_run_at", next, "status", status)
	return nil
}

func (r *repo) RecordRun(ctx context.Context, id uuid.UUID, ranAt time.Time, status string) error {
	q := `
		UPDATE schedules
		SET last_run_at = $2, last_status = $3, updated_at = NOW()
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, r.db, q, id, ranAt, status); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}
