// Package credstore keeps the terminal client's session token on disk.
package credstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"finitefield.org/tenant-admin/internal/admin/login"
)

const (
	dirName  = "tenant-admin"
	fileName = "session.yaml"
	fileMode = 0o600
	dirMode  = 0o700
)

// ErrNotFound is returned by Load when no session has been saved.
var ErrNotFound = errors.New("credstore: no saved session")

// Record is the persisted form of a signed-in session.
type Record struct {
	APIURL       string    `yaml:"api_url"`
	Token        string    `yaml:"token"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at,omitempty"`
	Remember     bool      `yaml:"remember"`
	SavedAt      time.Time `yaml:"saved_at"`
	User         User      `yaml:"user"`
}

// User mirrors login.User with YAML tags.
type User struct {
	ID       string   `yaml:"id,omitempty"`
	Email    string   `yaml:"email"`
	TenantID string   `yaml:"tenant_id,omitempty"`
	Roles    []string `yaml:"roles,omitempty"`
}

// Expired reports whether the token has a known expiry before now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store reads and writes one session file. It satisfies login.SessionStore.
type Store struct {
	path   string
	apiURL string
	now    func() time.Time
}

// DefaultPath returns the session file location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("credstore: resolve config dir: %w", err)
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// New returns a Store writing to path. apiURL is recorded alongside the
// token so a later command can tell which service issued it.
func New(path, apiURL string) *Store {
	return &Store{path: path, apiURL: apiURL, now: time.Now}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Begin persists sess. It is called by login.Flow once authentication succeeds.
func (s *Store) Begin(_ context.Context, sess *login.Session) error {
	if sess == nil || sess.Token == "" {
		return errors.New("credstore: session has no token")
	}
	return s.Save(Record{
		APIURL:       s.apiURL,
		Token:        sess.Token,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		Remember:     sess.Remember,
		SavedAt:      s.now().UTC(),
		User: User{
			ID:       sess.User.ID,
			Email:    sess.User.Email,
			TenantID: sess.User.TenantID,
			Roles:    append([]string(nil), sess.User.Roles...),
		},
	})
}

// Save writes rec atomically with owner-only permissions.
func (s *Store) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("credstore: create dir: %w", err)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("credstore: encode: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("credstore: write %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, fileMode); err != nil {
		return fmt.Errorf("credstore: chmod %s: %w", s.path, err)
	}
	return nil
}

// Load reads the saved record.
func (s *Store) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("credstore: read %s: %w", s.path, err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("credstore: decode %s: %w", s.path, err)
	}
	if rec.Token == "" {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Clear removes the saved session. Clearing an absent file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("credstore: remove %s: %w", s.path, err)
	}
	return nil
}
