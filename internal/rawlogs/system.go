package rawlogs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// System defines the raw log contract. Complete and Fail refuse to touch a
// completed document; AttachReprocessing is the only write allowed after.
type System interface {
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Complete(ctx context.Context, id string, out Outcome) error
	Fail(ctx context.Context, id string, out Outcome) error
	AttachReprocessing(ctx context.Context, id string, r Reprocessing) error

	Find(ctx context.Context, id string) (*Document, error)
	FindByCaptureLog(ctx context.Context, captureLogID uuid.UUID) (*Document, error)

	// List returns documents without their raw payload.
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	// Summarize groups matching documents by tribunal and capture type.
	Summarize(ctx context.Context, filters Filters) ([]Summary, error)
}

// Summary totals the processed results of a group of raw logs.
type Summary struct {
	TribunalCode      string                `bson:"tribunalCode" json:"tribunal_code"`
	CaptureType       tribunals.CaptureType `bson:"captureType" json:"capture_type"`
	Runs              int                   `bson:"runs" json:"runs"`
	Failed            int                   `bson:"failed" json:"failed"`
	WithPayload       int                   `bson:"withPayload" json:"with_payload"`
	Expected          int                   `bson:"expected" json:"expected"`
	Captured          int                   `bson:"captured" json:"captured"`
	Persisted         int                   `bson:"persisted" json:"persisted"`
	DocumentsExpected int                   `bson:"documentsExpected" json:"documents_expected"`
	DocumentsCaptured int                   `bson:"documentsCaptured" json:"documents_captured"`
	DocumentsFailed   int                   `bson:"documentsFailed" json:"documents_failed"`
}
