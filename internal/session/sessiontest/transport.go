// Package sessiontest provides a scripted session.Transport for tests.
package sessiontest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// FetchFunc answers a fetch for one endpoint.
type FetchFunc func(params url.Values) (json.RawMessage, error)

// DownloadFunc answers a document download.
type DownloadFunc func(endpoint string, params url.Values) (*session.Download, error)

// Transport serves scripted responses and records how it was used.
type Transport struct {
	// Hold delays every fetch, widening the window in which overlapping
	// sessions would be observed.
	Hold time.Duration
	// DownloadFunc answers every Download. Nil downloads fail.
	DownloadFunc DownloadFunc

	mu        sync.Mutex
	loginErrs []error
	routes    map[string]FetchFunc
	logins    map[uuid.UUID]int
	active    map[uuid.UUID]int
	maxActive map[uuid.UUID]int
	fetches   map[string]int
}

// New creates an empty transport. Unrouted fetches return 404.
func New() *Transport {
	return &Transport{
		routes:    make(map[string]FetchFunc),
		logins:    make(map[uuid.UUID]int),
		active:    make(map[uuid.UUID]int),
		maxActive: make(map[uuid.UUID]int),
		fetches:   make(map[string]int),
	}
}

// Handle routes fetches of endpoint to fn.
func (t *Transport) Handle(endpoint string, fn FetchFunc) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[strings.TrimPrefix(endpoint, "/")] = fn
	return t
}

// Pages serves pages[n-1] for the "page" query parameter n.
func (t *Transport) Pages(endpoint string, pages ...json.RawMessage) *Transport {
	return t.Handle(endpoint, func(params url.Values) (json.RawMessage, error) {
		n, err := strconv.Atoi(params.Get("page"))
		if err != nil || n < 1 {
			n = 1
		}
		if n > len(pages) {
			return json.RawMessage(`{"page":` + strconv.Itoa(n) + `,"items":[]}`), nil
		}
		return pages[n-1], nil
	})
}

// FailLogins queues errors returned by successive logins. Once drained,
// logins succeed.
func (t *Transport) FailLogins(errs ...error) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loginErrs = append(t.loginErrs, errs...)
	return t
}

func (t *Transport) Login(ctx context.Context, cred tribunals.Credential, portal tribunals.Portal) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logins[cred.ID]++
	if len(t.loginErrs) > 0 {
		err := t.loginErrs[0]
		t.loginErrs = t.loginErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	t.active[cred.ID]++
	if t.active[cred.ID] > t.maxActive[cred.ID] {
		t.maxActive[cred.ID] = t.active[cred.ID]
	}

	return &fakeSession{t: t, cred: cred.ID}, nil
}

// Logins returns how many logins were attempted for a credential.
func (t *Transport) Logins(id uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logins[id]
}

// Active returns the sessions currently open for a credential.
func (t *Transport) Active(id uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[id]
}

// MaxActive returns the highest number of simultaneously open sessions
// observed for a credential.
func (t *Transport) MaxActive(id uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxActive[id]
}

// Fetches returns how many times endpoint was fetched.
func (t *Transport) Fetches(endpoint string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetches[strings.TrimPrefix(endpoint, "/")]
}

type fakeSession struct {
	t      *Transport
	cred   uuid.UUID
	closed bool
}

func (s *fakeSession) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if s.t.Hold > 0 {
		select {
		case <-time.After(s.t.Hold):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	endpoint = strings.TrimPrefix(endpoint, "/")

	s.t.mu.Lock()
	s.t.fetches[endpoint]++
	fn, ok := s.t.routes[endpoint]
	s.t.mu.Unlock()

	if !ok {
		return nil, &session.HTTPError{Status: 404, Endpoint: endpoint}
	}
	return fn(params)
}

func (s *fakeSession) Download(ctx context.Context, endpoint string, params url.Values) (*session.Download, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.t.DownloadFunc == nil {
		return nil, fmt.Errorf("no download handler for %s", endpoint)
	}
	return s.t.DownloadFunc(endpoint, params)
}

func (s *fakeSession) Close() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.t.active[s.cred]--
	}
	return nil
}
