// Package rawlogstest provides an in-memory rawlogs.System with the same
// immutability rules as the document store implementation.
package rawlogstest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// Memory stores documents in a map. Payloads are copied verbatim as in
// the real store.
type Memory struct {
	Now func() time.Time

	mu   sync.Mutex
	docs map[string]*rawlogs.Document
}

var _ rawlogs.System = (*Memory)(nil)

// New returns an empty store.
func New() *Memory {
	return &Memory{
		Now:  time.Now,
		docs: make(map[string]*rawlogs.Document),
	}
}

// Put stores doc as-is, replacing any document with the same id.
func (m *Memory) Put(doc rawlogs.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = &doc
}

// All returns every document ordered by creation time.
func (m *Memory) All() []rawlogs.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]rawlogs.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, clone(d))
	}
	slices.SortFunc(out, func(a, b rawlogs.Document) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (m *Memory) Create(_ context.Context, cmd rawlogs.CreateCommand) (*rawlogs.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.docs {
		if d.CaptureLogID == cmd.CaptureLogID.String() {
			return nil, rawlogs.ErrDuplicate
		}
	}

	now := m.Now()
	doc := &rawlogs.Document{
		ID:           uuid.NewString(),
		CaptureLogID: cmd.CaptureLogID.String(),
		CaptureType:  cmd.CaptureType,
		Status:       rawlogs.StatusInProgress,
		TribunalCode: cmd.TribunalCode,
		Degree:       cmd.Degree,
		LawyerID:     cmd.LawyerID.String(),
		CredentialID: cmd.CredentialID.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Request:      rawlogs.Verbatim(cmd.Request),
		Logs:         []rawlogs.LogEntry{},
		Reprocessing: []rawlogs.Reprocessing{},
	}
	m.docs[doc.ID] = doc

	c := clone(doc)
	return &c, nil
}

func (m *Memory) Complete(_ context.Context, id string, out rawlogs.Outcome) error {
	return m.close(id, rawlogs.StatusCompleted, out)
}

func (m *Memory) Fail(_ context.Context, id string, out rawlogs.Outcome) error {
	return m.close(id, rawlogs.StatusFailed, out)
}

func (m *Memory) close(id string, status rawlogs.Status, out rawlogs.Outcome) error {
	payload := rawlogs.Verbatim(out.Payload)

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return rawlogs.ErrNotFound
	}
	if d.Status == rawlogs.StatusCompleted {
		return fmt.Errorf("%w: %s", rawlogs.ErrImmutable, id)
	}

	d.Status = status
	d.UpdatedAt = m.Now()
	if payload != nil {
		d.RawPayload = payload
	}
	if out.Result != nil {
		r := *out.Result
		d.ResultProcessed = &r
	}
	if out.Error != nil {
		e := *out.Error
		d.ErrorDetail = &e
	}
	d.Logs = append(d.Logs, out.Logs...)
	return nil
}

func (m *Memory) AttachReprocessing(_ context.Context, id string, r rawlogs.Reprocessing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return rawlogs.ErrNotFound
	}
	d.Reprocessing = append(d.Reprocessing, r)
	d.UpdatedAt = m.Now()
	return nil
}

func (m *Memory) Find(_ context.Context, id string) (*rawlogs.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return nil, rawlogs.ErrNotFound
	}
	c := clone(d)
	return &c, nil
}

func (m *Memory) FindByCaptureLog(_ context.Context, captureLogID uuid.UUID) (*rawlogs.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.docs {
		if d.CaptureLogID == captureLogID.String() {
			c := clone(d)
			return &c, nil
		}
	}
	return nil, rawlogs.ErrNotFound
}

func (m *Memory) List(
	_ context.Context,
	page pagination.PageRequest,
	filters rawlogs.Filters,
) (*pagination.PageResult[rawlogs.Document], error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = 20
	}

	all := m.All()
	slices.Reverse(all)

	matched := make([]rawlogs.Document, 0, len(all))
	for _, d := range all {
		if filters.Matches(&d) {
			d.RawPayload = nil
			matched = append(matched, d)
		}
	}

	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))

	result := pagination.NewPageResult(matched[start:end], len(matched), page.Page, page.PageSize)
	return &result, nil
}

func (m *Memory) Summarize(_ context.Context, filters rawlogs.Filters) ([]rawlogs.Summary, error) {
	type key struct {
		tribunal string
		typ      string
	}
	groups := map[key]*rawlogs.Summary{}

	for _, d := range m.All() {
		if !filters.Matches(&d) {
			continue
		}
		k := key{d.TribunalCode, string(d.CaptureType)}
		s, ok := groups[k]
		if !ok {
			s = &rawlogs.Summary{TribunalCode: d.TribunalCode, CaptureType: d.CaptureType}
			groups[k] = s
		}
		s.Runs++
		if d.Status == rawlogs.StatusFailed {
			s.Failed++
		}
		if d.PayloadAvailable() {
			s.WithPayload++
		}
		if r := d.ResultProcessed; r != nil {
			s.Expected += r.Totals.Expected
			s.Captured += r.Totals.Captured
			s.Persisted += r.Totals.Persisted
			s.DocumentsExpected += r.Documents.Expected
			s.DocumentsCaptured += r.Documents.Captured
			s.DocumentsFailed += r.Documents.Failed
		}
	}

	out := make([]rawlogs.Summary, 0, len(groups))
	for _, s := range groups {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b rawlogs.Summary) int {
		return cmp.Or(
			cmp.Compare(a.TribunalCode, b.TribunalCode),
			cmp.Compare(a.CaptureType, b.CaptureType),
		)
	})
	return out, nil
}

func clone(d *rawlogs.Document) rawlogs.Document {
	c := *d
	c.Logs = slices.Clone(d.Logs)
	c.Reprocessing = slices.Clone(d.Reprocessing)
	return c
}
