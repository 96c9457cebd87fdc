package captures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/retry"
)

type timeline struct {
	base
}

// NewTimeline creates the executor for one process timeline. Every document
// entry is downloaded to object storage; download failures are item errors.
func NewTimeline(d Deps) Executor {
	return &timeline{base: newBase(tribunals.Timeline, d)}
}

func (e *timeline) Capture(ctx context.Context, sess session.Session, req Request) (*Result, error) {
	process := req.Params.ProcessID
	if process == "" {
		return nil, fmt.Errorf("%w: timeline requires process_id", ErrInvalidRequest)
	}

	endpoint := "processes/" + url.PathEscape(process) + "/timeline"
	raw, err := retry.DoValue(ctx, e.retrying("fetch_timeline"), func(ctx context.Context) (json.RawMessage, error) {
		return sess.Fetch(ctx, endpoint, nil)
	})

	res := &Result{}
	if err != nil {
		return e.finish(ctx, res, nil, true, fmt.Errorf("fetch timeline %s: %w", process, err))
	}

	payload := &TimelinePayload{ProcessID: process, Items: raw}
	items, err := payload.entries()
	if err != nil {
		return e.finish(ctx, res, payload, false, err)
	}

	consumeItems(ctx, &e.base, res, items, e.items(req, process, sess))
	return e.finish(ctx, res, payload, false, nil)
}

func (e *timeline) Replay(ctx context.Context, req Request, payload Payload) (*Result, error) {
	p, ok := payload.(*TimelinePayload)
	if !ok {
		return nil, fmt.Errorf("%w: timeline replay got %T", ErrShapeMismatch, payload)
	}

	items, err := p.entries()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	consumeItems(ctx, &e.base, res, items, e.items(req, p.ProcessID, nil))
	return e.finish(ctx, res, p, false, nil)
}

// items builds the handler for one process. A nil session skips downloads.
func (e *timeline) items(req Request, process string, sess session.Session) itemHandler[TimelineItem] {
	h := itemHandler[TimelineItem]{
		normalize: func(raw json.RawMessage) (TimelineItem, error) { return NormalizeTimelineItem(raw, req, process) },
		key:       func(rec TimelineItem) string { return rec.ExternalID },
		upsert:    e.store.UpsertTimelineItem,
	}

	if sess == nil {
		return h
	}

	h.prepare = func(ctx context.Context, rec *TimelineItem, res *Result) {
		if !rec.IsDocument {
			return
		}
		endpoint := "processes/" + url.PathEscape(process) + "/documents/" + rec.ExternalID
		key := documentKey(tribunals.Timeline, req, process, rec.ExternalID)

		s, ok := e.storeDocument(ctx, sess, res, rec.ExternalID, endpoint, key)
		if !ok {
			rec.DownloadStatus = ptr(DocumentFailed)
			return
		}
		rec.DocumentKey = &s.key
		rec.ContentType = &s.contentType
		rec.SizeBytes = &s.size
		rec.PageCount = s.pages
		rec.DownloadStatus = ptr(DocumentCaptured)
	}
	return h
}
