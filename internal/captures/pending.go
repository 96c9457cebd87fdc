package captures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

const pendingEndpoint = "pending"

type pending struct {
	base
}

// NewPending creates the executor for filings awaiting a response. Each
// deadline filter is paged separately; documents are downloaded on request.
func NewPending(d Deps) Executor {
	return &pending{base: newBase(tribunals.Pending, d)}
}

func (e *pending) Capture(ctx context.Context, sess session.Session, req Request) (*Result, error) {
	res := &Result{}
	payload := &PendingPayload{DownloadDocuments: req.Params.DownloadDocuments}

	var runErr error
	for _, filter := range req.Params.ResolveDeadlineFilters() {
		params := url.Values{"deadline": {string(filter)}}
		pager := e.pager(sess, pendingEndpoint, params, Cursor{PageSize: req.Cursor.PageSize})

		pages, err := collectPages(ctx, &e.base, res, pager, e.items(req, filter, sess))
		if len(pages) > 0 {
			payload.Groups = append(payload.Groups, PendingGroup{Filter: filter, Pages: pages})
		}
		if err != nil {
			runErr = fmt.Errorf("filter %s: %w", filter, err)
			break
		}
	}

	if payload.Groups == nil {
		payload.Groups = []PendingGroup{}
	}
	return e.finish(ctx, res, payload, len(payload.Groups) == 0 && runErr != nil, runErr)
}

func (e *pending) Replay(ctx context.Context, req Request, payload Payload) (*Result, error) {
	p, ok := payload.(*PendingPayload)
	if !ok {
		return nil, fmt.Errorf("%w: pending replay got %T", ErrShapeMismatch, payload)
	}

	res := &Result{}
	for _, g := range p.Groups {
		if err := replayPages(ctx, &e.base, res, g.Pages, e.items(req, g.Filter, nil)); err != nil {
			return e.finish(ctx, res, p, false, err)
		}
	}
	return e.finish(ctx, res, p, false, nil)
}

// items builds the handler for one filter. A nil session skips downloads.
func (e *pending) items(req Request, filter DeadlineFilter, sess session.Session) itemHandler[PendingFiling] {
	h := itemHandler[PendingFiling]{
		normalize: func(raw json.RawMessage) (PendingFiling, error) { return NormalizePendingFiling(raw, req, filter) },
		key:       func(rec PendingFiling) string { return rec.ExternalID },
		upsert:    e.store.UpsertPendingFiling,
	}

	if sess == nil || !req.Params.DownloadDocuments {
		return h
	}

	h.prepare = func(ctx context.Context, rec *PendingFiling, res *Result) {
		if rec.DocumentID <= 0 {
			return
		}
		doc := strconv.FormatInt(rec.DocumentID, 10)
		endpoint := "processes/" + rec.ProcessExternalID + "/documents/" + doc
		key := documentKey(tribunals.Pending, req, rec.ProcessExternalID, doc)

		s, ok := e.storeDocument(ctx, sess, res, rec.ExternalID, endpoint, key)
		if !ok {
			rec.DocumentStatus = ptr(DocumentFailed)
			return
		}
		rec.DocumentKey = &s.key
		rec.DocumentStatus = ptr(DocumentCaptured)
	}
	return h
}
