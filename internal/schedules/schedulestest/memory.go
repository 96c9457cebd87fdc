// Package schedulestest provides an in-memory schedules.System.
package schedulestest

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

// Memory stores schedules in a map and counts mutations.
type Memory struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*schedules.Schedule
	advances  map[uuid.UUID]int
}

var _ schedules.System = (*Memory)(nil)

// New returns a store seeded with the given schedules. Zero ids are assigned.
func New(seed ...schedules.Schedule) *Memory {
	m := &Memory{
		schedules: make(map[uuid.UUID]*schedules.Schedule),
		advances:  make(map[uuid.UUID]int),
	}
	for _, s := range seed {
		m.Put(s)
	}
	return m
}

// Put stores s and returns its id.
func (m *Memory) Put(s schedules.Schedule) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.schedules[s.ID] = &s
	return s.ID
}

// Get returns a copy of the stored schedule.
func (m *Memory) Get(id uuid.UUID) schedules.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

// Advances reports how many times Advance moved the schedule.
func (m *Memory) Advances(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advances[id]
}

func (m *Memory) Handler() *schedules.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return schedules.NewHandler(m, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *Memory) List(
	_ context.Context,
	page pagination.PageRequest,
	filters schedules.Filters,
) (*pagination.PageResult[schedules.Schedule], error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PageSize < 1 {
		page.PageSize = 20
	}

	var matched []schedules.Schedule
	for _, s := range m.sorted() {
		if filters.TribunalCode != nil && s.TribunalCode != *filters.TribunalCode {
			continue
		}
		if filters.Active != nil && s.Active != *filters.Active {
			continue
		}
		matched = append(matched, s)
	}

	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))

	result := pagination.NewPageResult(matched[start:end], len(matched), page.Page, page.PageSize)
	return &result, nil
}

func (m *Memory) Find(_ context.Context, id uuid.UUID) (*schedules.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, schedules.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *Memory) Due(_ context.Context, now time.Time, limit int) ([]schedules.Schedule, error) {
	var due []schedules.Schedule
	for _, s := range m.sorted() {
		if s.Due(now) {
			due = append(due, s)
		}
	}
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *Memory) Advance(_ context.Context, id uuid.UUID, next, ranAt time.Time, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return schedules.ErrNotFound
	}
	s.NextRunAt = next
	s.LastRunAt = &ranAt
	s.LastStatus = &status
	m.advances[id]++
	return nil
}

func (m *Memory) RecordRun(_ context.Context, id uuid.UUID, ranAt time.Time, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return schedules.ErrNotFound
	}
	s.LastRunAt = &ranAt
	s.LastStatus = &status
	return nil
}

func (m *Memory) sorted() []schedules.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]schedules.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b schedules.Schedule) int {
		return a.NextRunAt.Compare(b.NextRunAt)
	})
	return out
}
