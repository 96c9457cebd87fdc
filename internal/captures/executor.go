package captures

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/tribunal/internal/metrics"
	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/cache"
	"github.com/JaimeStill/tribunal/pkg/formatting"
	"github.com/JaimeStill/tribunal/pkg/retry"
	"github.com/JaimeStill/tribunal/pkg/storage"
)

// Deps are the collaborators shared by every executor.
type Deps struct {
	Store   Store
	Storage storage.System
	Cache   cache.System
	Retry   *retry.Executor
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

type base struct {
	kind    tribunals.CaptureType
	store   Store
	storage storage.System
	cache   cache.System
	retry   *retry.Executor
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func newBase(kind tribunals.CaptureType, d Deps) base {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	r := d.Retry
	if r == nil {
		r = retry.New(retry.Config{})
	}
	return base{
		kind:    kind,
		store:   d.Store,
		storage: d.Storage,
		cache:   d.Cache,
		retry:   r,
		metrics: d.Metrics,
		logger:  d.Logger.With("capture", string(kind)),
		now:     now,
	}
}

func (b *base) Type() tribunals.CaptureType { return b.kind }

// retrying returns the shared executor with a hook that logs and counts
// retries of op.
func (b *base) retrying(op string) *retry.Executor {
	return b.retry.With(retry.WithHook(func(attempt int, err error, delay time.Duration) {
		b.metrics.Retry(op)
		b.logger.Warn("retrying", "operation", op, "attempt", attempt, "delay", delay, "error", err)
	}))
}

// pager builds a Pager over a paged endpoint with fixed query parameters.
func (b *base) pager(sess session.Session, endpoint string, params url.Values, start Cursor) *Pager {
	fetch := func(ctx context.Context, c Cursor) (json.RawMessage, error) {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(c.Page))
		q.Set("page_size", strconv.Itoa(c.PageSize))
		return sess.Fetch(ctx, endpoint, q)
	}
	return NewPager(fetch, b.retrying("fetch_page"), start)
}

// persist upserts one record under retry, recording a persist error on failure.
func (b *base) persist(ctx context.Context, res *Result, externalID string, upsert func(context.Context) error) {
	err := b.retrying("upsert").Do(ctx, upsert)
	if err != nil {
		res.addError(KindPersist, externalID, err)
		b.metrics.ItemError(string(b.kind), KindPersist)
		b.logger.Warn("record persist failed", "external_id", externalID, "error", err)
		return
	}
	res.Totals.Persisted++
}

func (b *base) normalizeFailed(res *Result, err error) {
	res.addError(KindNormalize, "", err)
	b.metrics.ItemError(string(b.kind), KindNormalize)
	b.logger.Warn("record normalization failed", "error", err)
}

// stored describes a document written to object storage.
type stored struct {
	key         string
	contentType string
	size        int64
	pages       *int
}

// storeDocument downloads endpoint and writes it under keyBase. Failures are
// recorded as item errors and counted on the result.
func (b *base) storeDocument(ctx context.Context, sess session.Session, res *Result, externalID, endpoint, keyBase string) (*stored, bool) {
	doc, err := retry.DoValue(ctx, b.retrying("download"), func(ctx context.Context) (*session.Download, error) {
		return sess.Download(ctx, endpoint, nil)
	})
	if err != nil {
		res.Documents.Failed++
		res.addError(KindDownload, externalID, err)
		b.metrics.ItemError(string(b.kind), KindDownload)
		return nil, false
	}

	contentType := contentTypeOf(doc)
	key := keyBase + "." + extension(contentType, doc.Filename)

	size, err := retry.DoValue(ctx, b.retrying("upload"), func(ctx context.Context) (int64, error) {
		return b.storage.Put(ctx, key, doc.Data, contentType)
	})
	if err != nil {
		res.Documents.Failed++
		res.addError(KindUpload, externalID, err)
		b.metrics.ItemError(string(b.kind), KindUpload)
		return nil, false
	}

	res.Documents.Captured++
	b.logger.Debug("document stored", "key", key, "size", formatting.FormatBytes(size, 1))
	return &stored{
		key:         key,
		contentType: contentType,
		size:        size,
		pages:       b.pageCount(doc.Data, contentType),
	}, true
}

func (b *base) pageCount(data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		b.logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}
	return &count
}

// invalidate evicts the domain's cached list views. Failures are logged only.
func (b *base) invalidate(ctx context.Context, res *Result) {
	if res.Totals.Persisted == 0 {
		return
	}

	domain := string(b.kind)
	n, err := b.cache.Invalidate(ctx, domain, "*")
	if err != nil {
		b.metrics.CacheInvalidated(domain, "error")
		b.logger.Warn("cache invalidation failed", "domain", domain, "error", err)
		return
	}
	b.metrics.CacheInvalidated(domain, "ok")
	b.logger.Debug("cache invalidated", "domain", domain, "keys", n)
}

// documentKey builds the storage key, without extension, of a captured document.
func documentKey(kind tribunals.CaptureType, req Request, process, item string) string {
	return storage.Key(string(kind), req.TribunalCode, string(req.Degree), process, item)
}

func contentTypeOf(doc *session.Download) string {
	ct := strings.TrimSpace(doc.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		if media, _, err := mime.ParseMediaType(ct); err == nil {
			return media
		}
		return ct
	}
	media, _, _ := mime.ParseMediaType(http.DetectContentType(doc.Data))
	return media
}

func extension(contentType, filename string) string {
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	switch contentType {
	case "application/pdf":
		return "pdf"
	case "text/html":
		return "html"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}

func ptr[T any](v T) *T { return &v }
