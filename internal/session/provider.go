package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Provider serializes access to credentials. At most one Lease per
// credential id is live at any moment.
type Provider struct {
	transport Transport
	guards    *Guards
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
}

// NewProvider creates a Provider over transport. A nil guards disables
// per-tribunal rate limiting and circuit breaking.
func NewProvider(transport Transport, guards *Guards, logger *slog.Logger) *Provider {
	return &Provider{
		transport: transport,
		guards:    guards,
		logger:    logger.With("system", "session"),
		locks:     make(map[uuid.UUID]chan struct{}),
	}
}

// Lease is an exclusively owned session. Release must be called exactly once
// the run is done; extra calls are no-ops.
type Lease struct {
	Session
	Credential tribunals.Credential
	once       sync.Once
	release    func()
}

// Release closes the session and frees the credential.
func (l *Lease) Release() {
	l.once.Do(l.release)
}

// Acquire waits until cred is free, then logs in. The credential stays locked
// until the returned lease is released. A failed login frees the credential
// before returning, so callers may back off without holding it.
func (p *Provider) Acquire(ctx context.Context, cred tribunals.Credential, portal tribunals.Portal) (*Lease, error) {
	lock := p.lock(cred.ID)

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for credential %s: %w", cred.ID, ctx.Err())
	}

	unlock := func() { <-lock }

	p.logger.Debug("credential locked", "credential_id", cred.ID, "tribunal", cred.TribunalCode)

	sess, err := p.transport.Login(ctx, cred, portal)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("login %s/%s: %w", cred.TribunalCode, cred.Degree, err)
	}

	if p.guards != nil {
		sess = p.guards.Wrap(portal.Code, sess)
	}

	lease := &Lease{Session: sess, Credential: cred}
	lease.release = func() {
		if err := sess.Close(); err != nil {
			p.logger.Warn("session close failed", "credential_id", cred.ID, "error", err)
		}
		unlock()
		p.logger.Debug("credential released", "credential_id", cred.ID)
	}

	return lease, nil
}

func (p *Provider) lock(id uuid.UUID) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		p.locks[id] = ch
	}
	return ch
}
