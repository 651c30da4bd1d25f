package config

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultAddress          = ":8080"
	defaultBasePath         = "/admin"
	defaultEnvironment      = "Development"
	defaultShutdownTimeout  = 10 * time.Second
	defaultRedirectDelay    = time.Second
	defaultLoginPerMinute   = 10
	defaultLoginBurst       = 5
	defaultIdleTimeout      = 30 * time.Minute
	defaultLifetime         = 12 * time.Hour
	defaultRememberLifetime = 30 * 24 * time.Hour
	defaultCSRFCookieName   = "admin_csrf"
	defaultCSRFHeaderName   = "X-CSRF-Token"
)

// Config groups runtime configuration of the admin console by concern.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Session  SessionConfig
	CSRF     CSRFConfig
	Login    LoginConfig
	Firebase FirebaseConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string
	BasePath        string
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// AuthConfig points at the external Authentication Service.
type AuthConfig struct {
	BaseURL string
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	HashKey          []byte
	BlockKey         []byte
	CookieSecure     bool
	IdleTimeout      time.Duration
	Lifetime         time.Duration
	RememberLifetime time.Duration
}

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	CookieName string
	HeaderName string
}

// LoginConfig tunes the login endpoint.
type LoginConfig struct {
	RedirectDelay time.Duration
	PerMinute     int
	Burst         int
}

// FirebaseConfig enables bearer-token verification for API callers.
type FirebaseConfig struct {
	ProjectID string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map that takes precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles configuration from defaults, the .env file, the process
// environment and explicit overrides, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string
	decodeKey := func(key string) []byte {
		raw := stringWithDefault(lookup, key, "")
		decoded, err := decodeSecret(raw)
		if err != nil {
			invalid = append(invalid, key)
			return nil
		}
		return decoded
	}

	cfg := Config{
		Server: ServerConfig{
			Address:         stringWithDefault(lookup, "ADMIN_HTTP_ADDR", defaultAddress),
			BasePath:        stringWithDefault(lookup, "ADMIN_BASE_PATH", defaultBasePath),
			Environment:     stringWithDefault(lookup, "ADMIN_ENVIRONMENT", defaultEnvironment),
			LogLevel:        stringWithDefault(lookup, "LOG_LEVEL", "info"),
			ShutdownTimeout: durationWithDefault(lookup, "ADMIN_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Auth: AuthConfig{
			BaseURL: stringWithDefault(lookup, "ADMIN_AUTH_API_URL", ""),
		},
		Session: SessionConfig{
			HashKey:          decodeKey("ADMIN_SESSION_HASH_KEY"),
			BlockKey:         decodeKey("ADMIN_SESSION_BLOCK_KEY"),
			CookieSecure:     boolWithDefault(lookup, "ADMIN_SESSION_COOKIE_SECURE", true),
			IdleTimeout:      durationWithDefault(lookup, "ADMIN_SESSION_IDLE_TIMEOUT", defaultIdleTimeout),
			Lifetime:         durationWithDefault(lookup, "ADMIN_SESSION_LIFETIME", defaultLifetime),
			RememberLifetime: durationWithDefault(lookup, "ADMIN_SESSION_REMEMBER_LIFETIME", defaultRememberLifetime),
		},
		CSRF: CSRFConfig{
			CookieName: stringWithDefault(lookup, "ADMIN_CSRF_COOKIE_NAME", defaultCSRFCookieName),
			HeaderName: stringWithDefault(lookup, "ADMIN_CSRF_HEADER_NAME", defaultCSRFHeaderName),
		},
		Login: LoginConfig{
			RedirectDelay: durationWithDefault(lookup, "ADMIN_LOGIN_REDIRECT_DELAY", defaultRedirectDelay),
			PerMinute:     intWithDefault(lookup, "ADMIN_LOGIN_RATE_PER_MIN", defaultLoginPerMinute),
			Burst:         intWithDefault(lookup, "ADMIN_LOGIN_RATE_BURST", defaultLoginBurst),
		},
		Firebase: FirebaseConfig{
			ProjectID: stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
		},
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Address) == "" {
		fields = append(fields, "Server.Address")
	}
	if u, err := url.Parse(cfg.Auth.BaseURL); cfg.Auth.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		fields = append(fields, "Auth.BaseURL")
	}
	if len(cfg.Session.HashKey) < 32 {
		fields = append(fields, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		fields = append(fields, "Session.BlockKey")
	}
	if cfg.Login.RedirectDelay < 0 {
		fields = append(fields, "Login.RedirectDelay")
	}
	if cfg.Login.PerMinute <= 0 {
		fields = append(fields, "Login.PerMinute")
	}
	if cfg.Login.Burst <= 0 {
		fields = append(fields, "Login.Burst")
	}

	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

// decodeSecret accepts "base64:<data>" or a raw string.
func decodeSecret(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if encoded, ok := strings.CutPrefix(raw, "base64:"); ok {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("config: decode secret: %w", err)
		}
		return decoded, nil
	}
	return []byte(raw), nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
