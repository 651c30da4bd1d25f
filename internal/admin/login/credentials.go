// Package login implements the admin session login flow: local credential
// validation, submission to the Authentication Service, classification of
// failures into a closed taxonomy and the delayed post-login redirect.
package login

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted before submission.
const MinPasswordLength = 6

// Credentials are the values collected by the login form. They are never persisted.
type Credentials struct {
	Email    string
	Password string
	Remember bool
}

// String redacts the password so credentials can be printed safely.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Email:%q Remember:%t}", c.Email, c.Remember)
}

// Normalised returns a copy with surrounding whitespace trimmed from the email.
func (c Credentials) Normalised() Credentials {
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// Validate checks credentials locally. It returns nil when they may be submitted.
//
// The email check only requires an "@"; it is intentionally not RFC 5322.
func Validate(c Credentials) *Failure {
	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		return NewFailure(MissingEmail, nil)
	case !strings.Contains(email, "@"):
		return NewFailure(InvalidEmailFormat, nil)
	case c.Password == "":
		return NewFailure(MissingPassword, nil)
	case utf8.RuneCountInString(c.Password) < MinPasswordLength:
		return NewFailure(PasswordTooShort, nil)
	}
	return nil
}

// User describes the staff member the Authentication Service signed in.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Session is the success value of an attempt. Token is opaque to this package.
type Session struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	Remember     bool
	User         User
}

// EmailDomain returns the part after "@". Log fields carry the domain, never the address.
func EmailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
