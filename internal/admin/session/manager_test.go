package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/tenant-admin/internal/admin/login"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:       "test_session",
		HashKey:          []byte("12345678901234567890123456789012"),
		BlockKey:         []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout:      10 * time.Minute,
		Lifetime:         2 * time.Hour,
		RememberLifetime: 48 * time.Hour,
		Now:              clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return mgr, clock
}

func roundTrip(t *testing.T, mgr *Manager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie to be set")
	}
	return cookie
}

func TestManager_BeginPersistsStaff(t *testing.T) {
	mgr, clock := newTestManager(t)

	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess.SignedIn() {
		t.Fatalf("fresh session must be anonymous")
	}
	anonymousID := sess.ID()

	err = sess.Begin(&login.Session{
		Token:        "tok-1",
		RefreshToken: "ref-1",
		Remember:     true,
		User:         login.User{ID: "staff-1", Email: "owner@shop.example", TenantID: "tenant-9", Roles: []string{"owner"}},
	})
	if err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if sess.ID() == anonymousID {
		t.Fatalf("expected session id rotation on sign-in")
	}

	cookie := roundTrip(t, mgr, sess)
	if cookie.MaxAge <= 0 {
		t.Fatalf("remember-me cookie should be persistent, got MaxAge %d", cookie.MaxAge)
	}

	clock.current = clock.current.Add(5 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	loaded, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load existing error: %v", err)
	}
	staff := loaded.Staff()
	if staff == nil || staff.TenantID != "tenant-9" || staff.Email != "owner@shop.example" {
		t.Fatalf("unexpected staff %#v", staff)
	}
	if loaded.AccessToken() != "tok-1" || loaded.RefreshToken() != "ref-1" {
		t.Fatalf("expected tokens to persist")
	}
	if !loaded.RememberMe() {
		t.Fatalf("expected remember-me flag")
	}
}

func TestManager_SessionCookieWithoutRemember(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	if err := sess.Begin(&login.Session{Token: "tok", User: login.User{Email: "a@b.c"}}); err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	cookie := roundTrip(t, mgr, sess)
	if cookie.MaxAge != 0 || !cookie.Expires.IsZero() {
		t.Fatalf("expected browser-session cookie, got MaxAge=%d Expires=%v", cookie.MaxAge, cookie.Expires)
	}
	if sess.Staff().ID != "a@b.c" {
		t.Fatalf("expected email fallback for staff id")
	}
}

func TestManager_BeginRequiresToken(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.New().Begin(&login.Session{}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()
	cookie := roundTrip(t, mgr, sess)

	clock.current = clock.current.Add(20 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	if _, err := mgr.Load(req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManager_RememberSkipsIdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()
	_ = sess.Begin(&login.Session{Token: "tok", Remember: true, User: login.User{ID: "s"}})
	cookie := roundTrip(t, mgr, sess)

	clock.current = clock.current.Add(3 * time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	if _, err := mgr.Load(req); err != nil {
		t.Fatalf("expected remembered session to survive idle period, got %v", err)
	}

	clock.current = clock.current.Add(48 * time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	if _, err := mgr.Load(req); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected absolute expiry, got %v", err)
	}
}

func TestManager_Destroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	_ = sess.Begin(&login.Session{Token: "tok", User: login.User{ID: "s"}})
	sess.Destroy()
	if sess.SignedIn() {
		t.Fatalf("destroyed session must not be signed in")
	}
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected session cookie cleared")
	}
}

func TestNewManager_RejectsShortKeys(t *testing.T) {
	if _, err := NewManager(Config{HashKey: []byte("short")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewManager(Config{HashKey: make([]byte, 32), BlockKey: []byte("odd")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for block key, got %v", err)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
