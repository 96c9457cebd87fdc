package captures

import (
	"context"
	"encoding/json"
)

// itemHandler turns verbatim items of one domain into stored records.
type itemHandler[T any] struct {
	normalize func(raw json.RawMessage) (T, error)
	key       func(rec T) string
	// prepare runs between normalization and persistence, e.g. to attach a
	// downloaded document.
	prepare func(ctx context.Context, rec *T, res *Result)
	upsert  func(ctx context.Context, rec T) error
}

func consumeItems[T any](ctx context.Context, b *base, res *Result, items []json.RawMessage, h itemHandler[T]) {
	for _, raw := range items {
		res.Totals.Captured++

		rec, err := h.normalize(raw)
		if err != nil {
			b.normalizeFailed(res, err)
			continue
		}
		if h.prepare != nil {
			h.prepare(ctx, &rec, res)
		}

		b.persist(ctx, res, h.key(rec), func(ctx context.Context) error {
			return h.upsert(ctx, rec)
		})
	}
}

// collectPages drains pager, persisting each page as it arrives, and
// returns the verbatim pages fetched before any error.
func collectPages[T any](ctx context.Context, b *base, res *Result, pager *Pager, h itemHandler[T]) ([]json.RawMessage, error) {
	pages := []json.RawMessage{}
	for page, err := range pager.Pages(ctx) {
		if err != nil {
			return pages, err
		}
		pages = append(pages, page.Raw)
		consumeItems(ctx, b, res, page.Items, h)
	}
	return pages, nil
}

// replayPages runs stored pages through h.
func replayPages[T any](ctx context.Context, b *base, res *Result, pages []json.RawMessage, h itemHandler[T]) error {
	for _, raw := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := DecodePage(raw)
		if err != nil {
			return err
		}
		consumeItems(ctx, b, res, page.Items, h)
	}
	return nil
}

// finish encodes the payload onto res, fills declared counts from it, and
// evicts caches when anything was written. A payload with no fetched data
// stays nil.
func (b *base) finish(ctx context.Context, res *Result, payload Payload, empty bool, runErr error) (*Result, error) {
	if !empty {
		raw, err := Encode(payload)
		if err != nil {
			return res, err
		}
		res.Payload = raw

		if exp, err := payload.Expect(); err == nil {
			res.Pages = exp.Pages
			res.Totals.Expected = exp.Items
			res.Documents.Expected = exp.Documents
		} else if runErr == nil {
			runErr = err
		}
	}

	b.invalidate(ctx, res)

	if runErr != nil {
		b.logger.Error("capture failed",
			"captured", res.Totals.Captured,
			"persisted", res.Totals.Persisted,
			"error", runErr)
		return res, runErr
	}

	b.logger.Info("capture finished",
		"expected", res.Totals.Expected,
		"captured", res.Totals.Captured,
		"persisted", res.Totals.Persisted,
		"documents", res.Documents.Captured,
		"item_errors", len(res.ItemErrors))
	return res, nil
}
