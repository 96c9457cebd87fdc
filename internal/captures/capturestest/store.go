// Package capturestest provides an in-memory captures.Store.
package capturestest

import (
	"context"
	"strings"
	"sync"

	"github.com/JaimeStill/tribunal/internal/captures"
)

// Store keeps records in maps keyed like the relational conflict keys.
type Store struct {
	// FailKeys makes upserts of the given external ids fail.
	FailKeys map[string]error

	mu       sync.Mutex
	docket   map[string]captures.DocketEntry
	hearings map[string]captures.Hearing
	pending  map[string]captures.PendingFiling
	timeline map[string]captures.TimelineItem
	writes   int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		FailKeys: make(map[string]error),
		docket:   make(map[string]captures.DocketEntry),
		hearings: make(map[string]captures.Hearing),
		pending:  make(map[string]captures.PendingFiling),
		timeline: make(map[string]captures.TimelineItem),
	}
}

func (s *Store) UpsertDocketEntry(ctx context.Context, e captures.DocketEntry) error {
	return s.upsert(e.ExternalID, func() {
		s.docket[key(e.TribunalCode, string(e.Degree), e.ExternalID)] = e
	})
}

func (s *Store) UpsertHearing(ctx context.Context, h captures.Hearing) error {
	return s.upsert(h.ExternalID, func() {
		s.hearings[key(h.TribunalCode, string(h.Degree), h.ExternalID)] = h
	})
}

func (s *Store) UpsertPendingFiling(ctx context.Context, p captures.PendingFiling) error {
	return s.upsert(p.ExternalID, func() {
		k := key(p.TribunalCode, string(p.Degree), p.ExternalID)
		if prev, ok := s.pending[k]; ok {
			if p.DocumentKey == nil {
				p.DocumentKey = prev.DocumentKey
			}
			if p.DocumentStatus == nil {
				p.DocumentStatus = prev.DocumentStatus
			}
		}
		s.pending[k] = p
	})
}

func (s *Store) UpsertTimelineItem(ctx context.Context, t captures.TimelineItem) error {
	return s.upsert(t.ExternalID, func() {
		k := key(t.TribunalCode, string(t.Degree), t.ProcessID, t.ExternalID)
		if prev, ok := s.timeline[k]; ok && t.DocumentKey == nil {
			t.DocumentKey = prev.DocumentKey
			t.ContentType = prev.ContentType
			t.SizeBytes = prev.SizeBytes
			t.PageCount = prev.PageCount
			t.DownloadStatus = prev.DownloadStatus
		}
		s.timeline[k] = t
	})
}

func (s *Store) upsert(externalID string, write func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailKeys[externalID]; ok {
		return err
	}
	write()
	s.writes++
	return nil
}

// Docket returns the stored docket entries.
func (s *Store) Docket() []captures.DocketEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.docket)
}

// Hearings returns the stored hearings.
func (s *Store) Hearings() []captures.Hearing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.hearings)
}

// Pending returns the stored pending filings.
func (s *Store) Pending() []captures.PendingFiling {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.pending)
}

// Timeline returns the stored timeline items.
func (s *Store) Timeline() []captures.TimelineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.timeline)
}

// Writes counts successful upserts, including updates of existing rows.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

func values[T any](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
