package captures

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/JaimeStill/tribunal/pkg/retry"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// Cursor is the position of the next page to fetch.
type Cursor struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize fills defaults and clamps the page size.
func (c Cursor) Normalize() Cursor {
	if c.Page < 1 {
		c.Page = 1
	}
	if c.PageSize < 1 {
		c.PageSize = defaultPageSize
	}
	c.PageSize = min(c.PageSize, maxPageSize)
	return c
}

// Page is one decoded portal page. Raw is the verbatim response.
type Page struct {
	Number    int               `json:"page"`
	PageSize  int               `json:"page_size"`
	PageCount int               `json:"page_count"`
	Total     int               `json:"total"`
	Items     []json.RawMessage `json:"items"`
	Raw       json.RawMessage   `json:"-"`
}

// DecodePage parses a paged portal response. A missing items list is a
// shape mismatch.
func DecodePage(raw json.RawMessage) (Page, error) {
	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return Page{}, shapeError("page", err.Error(), raw)
	}
	if p.Items == nil {
		return Page{}, shapeError("page", "missing items", raw)
	}
	p.Raw = raw
	return p, nil
}

// FetchPage retrieves the page at cursor.
type FetchPage func(ctx context.Context, cursor Cursor) (json.RawMessage, error)

// Pager lazily walks a paged endpoint. Each fetch runs under the retry
// executor. A Pager stopped early resumes from Cursor on the next call to
// Pages.
type Pager struct {
	fetch FetchPage
	retry *retry.Executor
	next  Cursor
	done  bool
}

// NewPager creates a pager starting at start.
func NewPager(fetch FetchPage, r *retry.Executor, start Cursor) *Pager {
	return &Pager{fetch: fetch, retry: r, next: start.Normalize()}
}

// Cursor returns the position of the next unfetched page.
func (p *Pager) Cursor() Cursor { return p.next }

// Done reports whether the last page has been produced.
func (p *Pager) Done() bool { return p.done }

// Pages yields pages in tribunal order. A fetch or decode error is yielded
// once and ends the sequence without advancing the cursor.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for !p.done {
			cursor := p.next

			raw, err := retry.DoValue(ctx, p.retry, func(ctx context.Context) (json.RawMessage, error) {
				return p.fetch(ctx, cursor)
			})
			if err != nil {
				yield(Page{}, fmt.Errorf("fetch page %d: %w", cursor.Page, err))
				return
			}

			page, err := DecodePage(raw)
			if err != nil {
				yield(Page{}, err)
				return
			}
			if page.Number == 0 {
				page.Number = cursor.Page
			}

			p.next.Page++
			p.done = last(page, cursor)

			if !yield(page, nil) {
				return
			}
		}
	}
}

func last(page Page, cursor Cursor) bool {
	switch {
	case len(page.Items) == 0:
		return true
	case page.PageCount > 0:
		return cursor.Page >= page.PageCount
	default:
		return len(page.Items) < cursor.PageSize
	}
}
