package capturelogs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// System defines the capture log contract. Transition methods fail with
// ErrInvalidTransition when the row is not in a state that allows the move.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[CaptureLog], error)

	Find(ctx context.Context, id uuid.UUID) (*CaptureLog, error)
	Create(ctx context.Context, cmd CreateCommand) (*CaptureLog, error)
	Start(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, message string, result json.RawMessage) error
}
