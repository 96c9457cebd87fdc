package captures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

const (
	hearingsEndpoint      = "hearings"
	defaultHearingsStatus = "scheduled"
)

type hearings struct {
	base
}

// NewHearings creates the executor for scheduled hearings in a date window.
func NewHearings(d Deps) Executor {
	return &hearings{base: newBase(tribunals.Hearings, d)}
}

func (e *hearings) Capture(ctx context.Context, sess session.Session, req Request) (*Result, error) {
	from, to, err := req.Params.HearingWindow(e.now())
	if err != nil {
		return nil, err
	}

	status := req.Params.HearingStatus
	if status == "" {
		status = defaultHearingsStatus
	}

	params := url.Values{
		"from":   {from},
		"to":     {to},
		"status": {status},
	}

	res := &Result{}
	start := req.Cursor.Normalize()

	e.logger.Info("capturing hearings", "tribunal", req.TribunalCode, "degree", req.Degree, "from", from, "to", to)

	pages, err := collectPages(ctx, &e.base, res, e.pager(sess, hearingsEndpoint, params, start), e.items(req))
	payload := &HearingsPayload{From: from, To: to, StartPage: start.Page, PageSize: start.PageSize, Pages: pages}

	return e.finish(ctx, res, payload, len(pages) == 0 && err != nil, err)
}

func (e *hearings) Replay(ctx context.Context, req Request, payload Payload) (*Result, error) {
	p, ok := payload.(*HearingsPayload)
	if !ok {
		return nil, fmt.Errorf("%w: hearings replay got %T", ErrShapeMismatch, payload)
	}

	res := &Result{}
	err := replayPages(ctx, &e.base, res, p.Pages, e.items(req))
	return e.finish(ctx, res, p, false, err)
}

func (e *hearings) items(req Request) itemHandler[Hearing] {
	return itemHandler[Hearing]{
		normalize: func(raw json.RawMessage) (Hearing, error) { return NormalizeHearing(raw, req) },
		key:       func(rec Hearing) string { return rec.ExternalID },
		upsert:    e.store.UpsertHearing,
	}
}
