package testutil

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"finitefield.org/tenant-admin/internal/admin/httpserver"
	"finitefield.org/tenant-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tenant-admin/internal/admin/login"
	"finitefield.org/tenant-admin/internal/admin/session"
)

// SessionHashKey signs test session cookies.
var SessionHashKey = []byte("test-hash-key-0123456789abcdef01")

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the Authentication Service client.
func WithAuthenticator(auth login.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBearerAuthenticator enables bearer-token access for API callers.
func WithBearerAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BearerAuthenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithRedirectDelay sets the post-login redirect delay.
func WithRedirectDelay(d time.Duration) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.RedirectDelay = d
	}
}

// WithLoginRate enables per-client login throttling.
func WithLoginRate(limit rate.Limit, burst int) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.LoginRate = limit
		cfg.LoginBurst = burst
	}
}

// WithMetrics wires a login recorder.
func WithMetrics(rec httpserver.Recorder) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Metrics = rec
	}
}

// NewServer constructs an httptest server running the admin HTTP stack with sensible defaults.
// The default authenticator rejects every login with 401.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		HashKey:    SessionHashKey,
		CookiePath: "/",
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		Environment:    "Test",
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		RedirectDelay:  login.DefaultRedirectDelay,
		Sessions:       sessions,
		Authenticator: login.AuthenticatorFunc(func(_ context.Context, _ login.Credentials) (*login.Session, error) {
			return nil, &login.ResponseError{Status: http.StatusUnauthorized}
		}),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv := httpserver.New(cfg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client with a cookie jar that does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// WithGatherer exposes /metrics from gatherer.
func WithGatherer(gatherer prometheus.Gatherer) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Gatherer = gatherer
	}
}
