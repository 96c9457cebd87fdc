package schedules

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// System defines the schedule contract. Only automatic ticks call Advance;
// manual triggers call RecordRun, which never moves next_run_at.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Schedule], error)

	Find(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// Due returns active schedules with next_run_at <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Schedule, error)

	// Advance records a tick's outcome and moves next_run_at.
	Advance(ctx context.Context, id uuid.UUID, next time.Time, ranAt time.Time, status string) error

	// RecordRun records a manual run's outcome.
	RecordRun(ctx context.Context, id uuid.UUID, ranAt time.Time, status string) error
}
