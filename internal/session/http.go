package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

type httpSession struct {
	client    *http.Client
	base      *url.URL
	userAgent string
}

// NewHTTPSession replays cookies captured at login against apiURL. Each
// request is bounded by timeout.
func NewHTTPSession(apiURL string, cookies []*http.Cookie, timeout time.Duration, userAgent string) (Session, error) {
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(base, cookies)

	return &httpSession{
		client:    &http.Client{Jar: jar, Timeout: timeout},
		base:      base,
		userAgent: userAgent,
	}, nil
}

func (s *httpSession) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	body, _, err := s.get(ctx, endpoint, params, "application/json")
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		// portals answer an expired session with the HTML login page
		if bytes.HasPrefix(trimmed, []byte("<")) {
			return nil, fmt.Errorf("%s: %w", endpoint, ErrSessionExpired)
		}
		return nil, fmt.Errorf("%s: invalid json response", endpoint)
	}

	return json.RawMessage(trimmed), nil
}

func (s *httpSession) Download(ctx context.Context, endpoint string, params url.Values) (*Download, error) {
	body, header, err := s.get(ctx, endpoint, params, "*/*")
	if err != nil {
		return nil, err
	}

	return &Download{
		Data:        body,
		ContentType: header.Get("Content-Type"),
		Filename:    filename(header.Get("Content-Disposition"), endpoint),
	}, nil
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *httpSession) get(ctx context.Context, endpoint string, params url.Values, accept string) ([]byte, http.Header, error) {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}

	target := s.base.ResolveReference(ref)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", accept)
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, nil, fmt.Errorf("%s: %w", endpoint, ErrSessionExpired)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, &HTTPError{Status: resp.StatusCode, Endpoint: endpoint, Body: body}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", endpoint, err)
	}

	return body, resp.Header, nil
}

func filename(disposition, endpoint string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	return path.Base(endpoint)
}
