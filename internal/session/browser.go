package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/lifecycle"
)

// BrowserTransport logs in through a headless browser and hands the
// resulting cookies to an HTTP session. One browser process is shared;
// every login runs in its own incognito context.
type BrowserTransport struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	launch  *launcher.Launcher
}

// NewBrowserTransport creates a transport. The browser is started on first login.
func NewBrowserTransport(cfg config.BrowserConfig, logger *slog.Logger) *BrowserTransport {
	return &BrowserTransport{
		cfg:    cfg,
		logger: logger.With("system", "browser"),
	}
}

// Start registers browser teardown with the lifecycle coordinator.
func (t *BrowserTransport) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		t.close()
	})
	return nil
}

func (t *BrowserTransport) Login(ctx context.Context, cred tribunals.Credential, portal tribunals.Portal) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.LoginTimeoutDuration())
	defer cancel()

	b, err := t.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPortalUnavailable, err)
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("%w: open context: %v", ErrPortalUnavailable, err)
	}
	defer incognito.Close()

	page, err := stealth.Page(incognito)
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %v", ErrPortalUnavailable, err)
	}
	page = page.Context(ctx)

	if t.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: t.cfg.UserAgent}); err != nil {
			t.logger.Warn("set user agent failed", "error", err)
		}
	}

	start := time.Now()
	if err := t.submit(page, cred, portal); err != nil {
		return nil, err
	}

	cookies, err := page.Cookies([]string{portal.APIURL, portal.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("%w: read cookies: %v", ErrPortalUnavailable, err)
	}

	t.logger.Info("portal login succeeded",
		"tribunal", portal.Code,
		"degree", portal.Degree,
		"credential_id", cred.ID,
		"cookies", len(cookies),
		"elapsed", time.Since(start))

	return NewHTTPSession(portal.APIURL, convertCookies(cookies), t.cfg.RequestTimeoutDuration(), t.cfg.UserAgent)
}

func (t *BrowserTransport) submit(page *rod.Page, cred tribunals.Credential, portal tribunals.Portal) error {
	sel := t.cfg.Selectors

	if err := page.Navigate(portal.LoginURL); err != nil {
		return fmt.Errorf("%w: navigate %s: %v", ErrPortalUnavailable, portal.LoginURL, classify(err))
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: load %s: %v", ErrPortalUnavailable, portal.LoginURL, classify(err))
	}

	user, err := lookup(page, sel.Username)
	if err != nil {
		return err
	}
	pass, err := lookup(page, sel.Password)
	if err != nil {
		return err
	}
	submit, err := lookup(page, sel.Submit)
	if err != nil {
		return err
	}

	if err := user.Input(cred.Username); err != nil {
		return fmt.Errorf("%w: input username: %v", ErrUnexpectedPage, err)
	}
	if err := pass.Input(cred.LoginSecret); err != nil {
		return fmt.Errorf("%w: input password: %v", ErrUnexpectedPage, err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: submit: %v", ErrUnexpectedPage, err)
	}

	return t.await(page)
}

// await blocks until the page shows either the logged-in marker or the
// error marker.
func (t *BrowserTransport) await(page *rod.Page) error {
	sel := t.cfg.Selectors

	if sel.LoggedIn == "" {
		if err := page.WaitLoad(); err != nil {
			return fmt.Errorf("%w: post-login load: %v", ErrPortalUnavailable, classify(err))
		}
		if sel.Error != "" {
			if has, el, _ := page.Has(sel.Error); has {
				return rejected(el)
			}
		}
		return nil
	}

	var failed *rod.Element
	race := page.Race().Element(sel.LoggedIn)
	if sel.Error != "" {
		race = race.Element(sel.Error).Handle(func(el *rod.Element) error {
			failed = el
			return nil
		})
	}

	if _, err := race.Do(); err != nil {
		return fmt.Errorf("%w: await login: %v", ErrPortalUnavailable, classify(err))
	}
	if failed != nil {
		return rejected(failed)
	}
	return nil
}

func (t *BrowserTransport) connect(ctx context.Context) (*rod.Browser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browser != nil {
		return t.browser, nil
	}

	controlURL := t.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(t.cfg.IsHeadless()).
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		t.launch = l
		t.logger.Info("launched local browser", "headless", t.cfg.IsHeadless())
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	t.browser = b
	return b, nil
}

func (t *BrowserTransport) close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browser != nil {
		if err := t.browser.Close(); err != nil {
			t.logger.Warn("browser close failed", "error", err)
		}
		t.browser = nil
	}
	if t.launch != nil {
		t.launch.Kill()
		t.launch = nil
	}
	t.logger.Info("browser closed")
}

func lookup(page *rod.Page, selector string) (*rod.Element, error) {
	has, el, err := page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", ErrPortalUnavailable, selector, classify(err))
	}
	if !has {
		return nil, fmt.Errorf("%w: selector %q not found", ErrUnexpectedPage, selector)
	}
	return el, nil
}

func rejected(el *rod.Element) error {
	msg, _ := el.Text()
	if msg = strings.TrimSpace(msg); msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
	}
	return ErrInvalidCredentials
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out: %w", err)
	}
	return err
}

func convertCookies(in []*proto.NetworkCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = c.Expires.Time()
		}
		out = append(out, hc)
	}
	return out
}
