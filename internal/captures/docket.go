package captures

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

const docketEndpoint = "docket"

type docket struct {
	base
}

// NewDocket creates the executor for an attorney's process docket.
func NewDocket(d Deps) Executor {
	return &docket{base: newBase(tribunals.Docket, d)}
}

func (e *docket) Capture(ctx context.Context, sess session.Session, req Request) (*Result, error) {
	res := &Result{}
	start := req.Cursor.Normalize()

	pages, err := collectPages(ctx, &e.base, res, e.pager(sess, docketEndpoint, nil, start), e.items(req))
	payload := &DocketPayload{StartPage: start.Page, PageSize: start.PageSize, Pages: pages}

	return e.finish(ctx, res, payload, len(pages) == 0 && err != nil, err)
}

func (e *docket) Replay(ctx context.Context, req Request, payload Payload) (*Result, error) {
	p, ok := payload.(*DocketPayload)
	if !ok {
		return nil, fmt.Errorf("%w: docket replay got %T", ErrShapeMismatch, payload)
	}

	res := &Result{}
	err := replayPages(ctx, &e.base, res, p.Pages, e.items(req))
	return e.finish(ctx, res, p, false, err)
}

func (e *docket) items(req Request) itemHandler[DocketEntry] {
	return itemHandler[DocketEntry]{
		normalize: func(raw json.RawMessage) (DocketEntry, error) { return NormalizeDocketEntry(raw, req) },
		key:       func(rec DocketEntry) string { return rec.ExternalID },
		upsert:    e.store.UpsertDocketEntry,
	}
}
