// Package tribunalstest provides an in-memory tribunals.System.
package tribunalstest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Memory holds credentials and portals added by the test.
type Memory struct {
	mu          sync.Mutex
	credentials map[uuid.UUID]tribunals.Credential
	portals     map[string]tribunals.Portal
}

var _ tribunals.System = (*Memory)(nil)

// New returns an empty reference store.
func New() *Memory {
	return &Memory{
		credentials: make(map[uuid.UUID]tribunals.Credential),
		portals:     make(map[string]tribunals.Portal),
	}
}

// AddCredential stores c, assigning an id when zero.
func (m *Memory) AddCredential(c tribunals.Credential) tribunals.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.credentials[c.ID] = c
	return c
}

// AddPortal stores p.
func (m *Memory) AddPortal(p tribunals.Portal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portals[portalKey(p.Code, p.Degree)] = p
}

func (m *Memory) Credential(_ context.Context, id uuid.UUID) (*tribunals.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credentials[id]
	if !ok {
		return nil, tribunals.ErrCredentialNotFound
	}
	if !c.Active {
		return nil, tribunals.ErrCredentialInactive
	}
	return &c, nil
}

func (m *Memory) ResolveCredential(_ context.Context, lawyerID uuid.UUID, tribunal string, degree tribunals.Degree) (*tribunals.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.credentials {
		if c.Active && c.LawyerID == lawyerID && c.TribunalCode == tribunal && c.Degree == degree {
			return &c, nil
		}
	}
	return nil, tribunals.ErrCredentialNotFound
}

func (m *Memory) Portal(_ context.Context, code string, degree tribunals.Degree) (*tribunals.Portal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.portals[portalKey(code, degree)]
	if !ok {
		return nil, tribunals.ErrPortalNotFound
	}
	return &p, nil
}

func portalKey(code string, degree tribunals.Degree) string {
	return code + "/" + string(degree)
}
