package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/metrics"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// System reads raw logs back for diagnosis and replay.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters rawlogs.Filters) (*pagination.PageResult[rawlogs.Document], error)
	Report(ctx context.Context, id string, opts ReportOptions) (*Report, error)
	Analyze(ctx context.Context, id string) (*Analysis, error)
	Aggregate(ctx context.Context, filters rawlogs.Filters) ([]TribunalSummary, error)

	// Reprocess replays normalization over the stored payload and appends
	// the outcome to the raw log. A failed replay is recorded on the
	// returned entry rather than returned as an error. Replays upsert, so
	// repeating one is safe.
	Reprocess(ctx context.Context, id string, actor uuid.UUID) (*rawlogs.Reprocessing, error)
}

// ReportOptions selects the optional parts of a Report.
type ReportOptions struct {
	AnalyzeGaps    bool
	IncludePayload bool
}

// Report is a raw log with its derived analysis.
type Report struct {
	Log              *rawlogs.Document `json:"log"`
	PayloadAvailable bool              `json:"payload_available"`
	Analysis         *Analysis         `json:"analysis,omitempty"`
	Payload          json.RawMessage   `json:"payload,omitempty"`
}

// Deps are the collaborators of the recovery system.
type Deps struct {
	RawLogs    rawlogs.System
	Registry   *captures.Registry
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Pagination pagination.Config
	Now        func() time.Time
}

type service struct {
	raw        rawlogs.System
	registry   *captures.Registry
	metrics    *metrics.Metrics
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates the recovery System.
func New(d Deps) System {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		raw:        d.RawLogs,
		registry:   d.Registry,
		metrics:    d.Metrics,
		logger:     d.Logger.With("system", "recovery"),
		pagination: d.Pagination,
		now:        now,
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

func (s *service) List(ctx context.Context, page pagination.PageRequest, filters rawlogs.Filters) (*pagination.PageResult[rawlogs.Document], error) {
	return s.raw.List(ctx, page, filters)
}

func (s *service) Report(ctx context.Context, id string, opts ReportOptions) (*Report, error) {
	doc, err := s.raw.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &Report{Log: doc, PayloadAvailable: doc.PayloadAvailable()}

	if opts.AnalyzeGaps {
		a := s.analyze(doc)
		r.Analysis = &a
	}

	if opts.IncludePayload {
		r.Payload = doc.Payload()
	}

	return r, nil
}

func (s *service) Analyze(ctx context.Context, id string) (*Analysis, error) {
	doc, err := s.raw.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	a := s.analyze(doc)
	return &a, nil
}

func (s *service) analyze(doc *rawlogs.Document) Analysis {
	a := analyze(doc)
	for _, g := range a.Gaps {
		s.metrics.Gap(string(doc.CaptureType), g.Kind)
	}
	return a
}

func (s *service) Aggregate(ctx context.Context, filters rawlogs.Filters) ([]TribunalSummary, error) {
	groups, err := s.raw.Summarize(ctx, filters)
	if err != nil {
		return nil, err
	}

	out := make([]TribunalSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, summarize(g))
	}
	return out, nil
}

func (s *service) Reprocess(ctx context.Context, id string, actor uuid.UUID) (*rawlogs.Reprocessing, error) {
	doc, err := s.raw.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.PayloadAvailable() {
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, id)
	}

	payload, err := captures.Decode(doc.CaptureType, doc.Payload())
	if err != nil {
		return nil, err
	}
	req, err := doc.CaptureRequest()
	if err != nil {
		return nil, err
	}
	executor, err := s.registry.Get(doc.CaptureType)
	if err != nil {
		return nil, err
	}

	if actor == uuid.Nil {
		actor = capturelogs.SystemActor
	}

	rp := rawlogs.Reprocessing{
		ID:          uuid.NewString(),
		At:          s.now().UTC(),
		RequestedBy: actor.String(),
	}

	logger := s.logger.With("raw_log_id", id, "capture_type", doc.CaptureType)
	logger.Info("reprocessing raw payload")

	result, replayErr := executor.Replay(ctx, req, payload)
	rp.Result = result
	if replayErr != nil {
		rp.Error = replayErr.Error()
		logger.Warn("reprocessing failed", "error", replayErr)
	}

	if err := s.raw.AttachReprocessing(ctx, id, rp); err != nil {
		return nil, err
	}

	if replayErr == nil {
		logger.Info("reprocessing completed", "persisted", result.Totals.Persisted)
	}
	return &rp, nil
}
