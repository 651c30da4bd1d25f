package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/tenant-admin/internal/admin/observability"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// User represents the authenticated staff member for the current request.
type User struct {
	ID       string
	Email    string
	TenantID string
	Roles    []string
	Token    string
}

// Authenticator resolves a bearer token presented by a non-browser caller into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

var (
	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")
)

// AuthError contains reason codes for failed authentication attempts.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	// ReasonMissingToken indicates a request without a session or credentials.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid indicates a malformed or invalid token.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired indicates an expired token or session.
	ReasonTokenExpired = "token_expired"
)

// Auth admits requests whose session has a signed-in staff member. When
// bearer is non-nil, callers may instead present an Authorization bearer
// token. Browsers without a session are sent to loginPath with the current
// location in the next parameter.
func Auth(bearer Authenticator, loginPath string) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			if sess, ok := SessionFromContext(r.Context()); ok && sess.SignedIn() {
				staff := sess.Staff()
				user := &User{
					ID:       staff.ID,
					Email:    staff.Email,
					TenantID: staff.TenantID,
					Roles:    staff.Roles,
					Token:    sess.AccessToken(),
				}
				next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
				return
			}

			if token := parseBearerToken(r.Header.Get("Authorization")); token != "" && bearer != nil {
				user, err := bearer.Authenticate(r, token)
				if err != nil || user == nil {
					reason := ReasonTokenInvalid
					var authErr *AuthError
					if errors.As(err, &authErr) && authErr.Reason != "" {
						reason = authErr.Reason
					}
					if err == nil {
						err = ErrUnauthorized
					}
					logger.Warn("bearer authentication failed", zap.String("reason", reason), zap.Error(err))
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
				return
			}

			reason := ReasonMissingToken
			if SessionExpired(r.Context()) {
				reason = ReasonTokenExpired
			}
			logger.Info("unauthenticated request", zap.String("reason", reason))
			handleUnauthorized(w, r, loginPath, reason)
		})
	}
}

// ContextWithUser attaches user to ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	redirectURL := loginRedirectURL(r, loginPath, reason)

	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", redirectURL)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// loginRedirectURL builds the login location, remembering where the user was
// heading so the login flow can return there.
func loginRedirectURL(r *http.Request, loginPath, reason string) string {
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath
	}
	q := u.Query()
	if reason == ReasonTokenExpired {
		q.Set("reason", "expired")
	}
	if r.Method == http.MethodGet {
		origin := r.URL.RequestURI()
		if info := HTMXInfoFromContext(r.Context()); info.IsHTMX && info.CurrentURL != "" {
			if current, err := url.Parse(info.CurrentURL); err == nil {
				origin = current.RequestURI()
			}
		}
		if origin != "" && origin != "/" {
			q.Set("next", origin)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
