package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"finitefield.org/tenant-admin/internal/admin/login"
)

const (
	defaultCookieName       = "tenant_admin_session"
	defaultCookiePath       = "/"
	defaultLifetime         = 12 * time.Hour
	defaultRememberLifetime = 30 * 24 * time.Hour
	defaultIdleTimeout      = 30 * time.Minute
)

// ErrExpired indicates the stored session is no longer valid due to idle or absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Staff is the signed-in staff member of a tenant.
type Staff struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	TenantID string   `json:"tenantId,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Data is the persisted cookie payload.
type Data struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActive     time.Time `json:"lastActive"`
	ExpiresAt      time.Time `json:"expiresAt,omitempty"`
	RememberMe     bool      `json:"rememberMe"`
	Staff          *Staff    `json:"staff,omitempty"`
	AccessToken    string    `json:"accessToken,omitempty"`
	RefreshToken   string    `json:"refreshToken,omitempty"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitempty"`
}

// Session holds the mutable state for one request. Only Begin and Destroy
// change who is signed in.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
	cfg       *Config
	now       func() time.Time
}

// Config controls cookie encoding and lifecycle limits for the session manager.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout      time.Duration
	Lifetime         time.Duration
	RememberLifetime time.Duration
	Now              func() time.Time
}

// Manager decodes and persists sessions via signed, optionally encrypted cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) < 32 {
		return nil, fmt.Errorf("%w: hash key must be at least 32 bytes", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RememberLifetime <= 0 {
		cfg.RememberLifetime = defaultRememberLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.RememberLifetime.Seconds()))

	return &Manager{cfg: cfg, codec: codec, now: nowFn}, nil
}

// Load retrieves the session from the request or starts an anonymous one.
// A decodable but expired session yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.New(), nil
	}
	if stored.ID == "" {
		return m.New(), nil
	}

	sess := &Session{data: stored, cfg: &m.cfg, now: m.now}
	if m.isExpired(sess, m.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// Save writes the session back to the response. Destroyed sessions clear the cookie.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		http.SetCookie(w, m.expiredCookie())
		return nil
	}

	sess.touch(m.now())
	data := sess.data

	encoded, err := m.codec.Encode(m.cfg.CookieName, data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
	// Without remember-me the cookie lives for the browser session only.
	if data.RememberMe && !data.ExpiresAt.IsZero() {
		expiry := data.ExpiresAt.UTC()
		cookie.Expires = expiry
		if remaining := expiry.Sub(m.now()); remaining > 0 {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		} else {
			cookie.MaxAge = -1
		}
	}

	http.SetCookie(w, cookie)
	return nil
}

// Destroy invalidates the session cookie immediately.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.expiredCookie())
}

// New returns a pristine anonymous session.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	data := Data{
		ID:         mustGenerateToken(32),
		CreatedAt:  now,
		LastActive: now,
	}
	data.ExpiresAt = m.cfg.computeExpiry(now, false)
	return &Session{data: data, dirty: true, cfg: &m.cfg, now: m.now}
}

func (m *Manager) isExpired(sess *Session, now time.Time) bool {
	now = now.UTC()
	if !sess.data.ExpiresAt.IsZero() && now.After(sess.data.ExpiresAt.UTC()) {
		return true
	}
	// Remember-me sessions are only bound by their absolute expiry.
	if sess.data.RememberMe {
		return false
	}
	last := sess.data.LastActive
	if last.IsZero() {
		last = sess.data.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > m.cfg.IdleTimeout
}

func (m *Manager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}

// ID returns the session identifier. It changes on Begin.
func (s *Session) ID() string { return s.data.ID }

// CreatedAt returns when the current identifier was issued.
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// ExpiresAt returns the absolute expiry timestamp for the session.
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// RememberMe reports whether the session outlives the browser.
func (s *Session) RememberMe() bool { return s.data.RememberMe }

// Staff returns a copy of the signed-in staff member, or nil.
func (s *Session) Staff() *Staff {
	if s.data.Staff == nil {
		return nil
	}
	copied := *s.data.Staff
	copied.Roles = append([]string(nil), s.data.Staff.Roles...)
	return &copied
}

// SignedIn reports whether a staff member is attached.
func (s *Session) SignedIn() bool {
	return !s.destroyed && s.data.Staff != nil && s.data.Staff.ID != ""
}

// AccessToken returns the Authentication Service token for backend calls.
func (s *Session) AccessToken() string { return s.data.AccessToken }

// RefreshToken returns the refresh token, if one was issued.
func (s *Session) RefreshToken() string { return s.data.RefreshToken }

// Begin attaches a successful login to the session. The identifier is
// rotated so a pre-login session id cannot be reused.
func (s *Session) Begin(sess *login.Session) error {
	if sess == nil || sess.Token == "" {
		return errors.New("session: login session without token")
	}
	id, err := generateToken(32)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	s.data = Data{
		ID:             id,
		CreatedAt:      now,
		LastActive:     now,
		RememberMe:     sess.Remember,
		AccessToken:    sess.Token,
		RefreshToken:   sess.RefreshToken,
		TokenExpiresAt: sess.ExpiresAt,
		Staff: &Staff{
			ID:       sess.User.ID,
			Email:    sess.User.Email,
			TenantID: sess.User.TenantID,
			Roles:    append([]string(nil), sess.User.Roles...),
		},
	}
	if s.data.Staff.ID == "" {
		s.data.Staff.ID = sess.User.Email
	}
	s.data.ExpiresAt = s.cfg.computeExpiry(now, sess.Remember)
	s.destroyed = false
	s.dirty = true
	return nil
}

// Destroy marks the session for deletion at the end of the request.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Destroyed exposes the destroy marker.
func (s *Session) Destroyed() bool { return s.destroyed }

// Dirty indicates whether the session changed during this request.
func (s *Session) Dirty() bool { return s.dirty }

func (s *Session) touch(now time.Time) {
	now = now.UTC()
	if now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}

func (cfg *Config) computeExpiry(from time.Time, remember bool) time.Time {
	lifetime := cfg.Lifetime
	if remember {
		lifetime = cfg.RememberLifetime
	}
	if lifetime <= 0 {
		return time.Time{}
	}
	return from.UTC().Add(lifetime)
}

func mustGenerateToken(length int) string {
	token, err := generateToken(length)
	if err != nil {
		panic(err)
	}
	return token
}

func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
