// Package capturelogstest provides an in-memory capturelogs.System that
// enforces the same transition rules as the SQL guards.
package capturelogstest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// Memory is a concurrency-safe capturelogs.System backed by a map.
type Memory struct {
	// Now stamps timestamps; defaults to time.Now.
	Now func() time.Time

	mu   sync.Mutex
	logs map[uuid.UUID]*capturelogs.CaptureLog
}

var _ capturelogs.System = (*Memory)(nil)

// New returns an empty store.
func New() *Memory {
	return &Memory{
		Now:  time.Now,
		logs: make(map[uuid.UUID]*capturelogs.CaptureLog),
	}
}

func (m *Memory) Handler() *capturelogs.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return capturelogs.NewHandler(m, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *Memory) List(
	_ context.Context,
	page pagination.PageRequest,
	filters capturelogs.Filters,
) (*pagination.PageResult[capturelogs.CaptureLog], error) {
	if page.PageSize < 1 {
		page.PageSize = 20
	}
	if page.Page < 1 {
		page.Page = 1
	}

	all := m.All()
	matched := make([]capturelogs.CaptureLog, 0, len(all))
	for _, l := range all {
		if filters.Matches(&l) {
			matched = append(matched, l)
		}
	}

	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))

	result := pagination.NewPageResult(matched[start:end], len(matched), page.Page, page.PageSize)
	return &result, nil
}

func (m *Memory) Find(_ context.Context, id uuid.UUID) (*capturelogs.CaptureLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.logs[id]
	if !ok {
		return nil, capturelogs.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (m *Memory) Create(_ context.Context, cmd capturelogs.CreateCommand) (*capturelogs.CaptureLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := &capturelogs.CaptureLog{
		ID:           uuid.New(),
		ScheduleID:   cmd.ScheduleID,
		CredentialID: cmd.CredentialID,
		CaptureType:  cmd.CaptureType,
		TribunalCode: cmd.TribunalCode,
		Degree:       cmd.Degree,
		LawyerID:     cmd.LawyerID,
		Trigger:      cmd.Trigger,
		RequestedBy:  cmd.Actor(),
		Status:       capturelogs.StatusPending,
		CreatedAt:    m.Now(),
	}
	m.logs[l.ID] = l

	c := *l
	return &c, nil
}

func (m *Memory) Start(_ context.Context, id uuid.UUID) error {
	return m.transition(id, capturelogs.StatusInProgress, func(l *capturelogs.CaptureLog, now time.Time) {
		l.StartedAt = &now
	})
}

func (m *Memory) Complete(_ context.Context, id uuid.UUID, result json.RawMessage) error {
	return m.transition(id, capturelogs.StatusCompleted, func(l *capturelogs.CaptureLog, now time.Time) {
		l.Result = result
		l.FinishedAt = &now
	})
}

func (m *Memory) Fail(_ context.Context, id uuid.UUID, message string, result json.RawMessage) error {
	return m.transition(id, capturelogs.StatusFailed, func(l *capturelogs.CaptureLog, now time.Time) {
		l.ErrorMessage = &message
		if len(result) > 0 {
			l.Result = result
		}
		l.FinishedAt = &now
	})
}

// All returns every log ordered by creation time.
func (m *Memory) All() []capturelogs.CaptureLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]capturelogs.CaptureLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, *l)
	}
	slices.SortFunc(out, func(a, b capturelogs.CaptureLog) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (m *Memory) transition(id uuid.UUID, to capturelogs.Status, apply func(*capturelogs.CaptureLog, time.Time)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.logs[id]
	if !ok {
		return capturelogs.ErrNotFound
	}
	if !l.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", capturelogs.ErrInvalidTransition, l.Status, to)
	}

	l.Status = to
	apply(l, m.Now())
	return nil
}
