// Package session authenticates credentials against tribunal portals and
// hands out sessions that are exclusively owned by one capture run at a time.
package session

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Transport performs the portal login flow for one credential.
type Transport interface {
	Login(ctx context.Context, cred tribunals.Credential, portal tribunals.Portal) (Session, error)
}

// Session replays an authenticated portal state.
type Session interface {
	// Fetch issues a GET to endpoint (relative to the portal API URL) and
	// returns the verbatim JSON body.
	Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
	// Download retrieves a binary document.
	Download(ctx context.Context, endpoint string, params url.Values) (*Download, error)
	// Close ends the session and releases transport resources.
	Close() error
}

// Download is a binary document fetched through a session.
type Download struct {
	Data        []byte
	ContentType string
	Filename    string
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, cred tribunals.Credential, portal tribunals.Portal) (Session, error)

func (f TransportFunc) Login(ctx context.Context, cred tribunals.Credential, portal tribunals.Portal) (Session, error) {
	return f(ctx, cred, portal)
}
