package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	loginEndpoint   = "/auth/login"
	maxResponseBody = 1 << 16
)

// ErrMissingToken is returned when a 2xx login response carries no access token.
var ErrMissingToken = errors.New("login: auth service returned no access token")

// Authenticator submits credentials to the Authentication Service.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, creds Credentials) (*Session, error)

// Login calls f.
func (f AuthenticatorFunc) Login(ctx context.Context, creds Credentials) (*Session, error) {
	return f(ctx, creds)
}

// HTTPClient matches the subset of http.Client used by HTTPAuthenticator.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPAuthenticator implements Authenticator against the REST login endpoint.
type HTTPAuthenticator struct {
	base   *url.URL
	client HTTPClient
	now    func() time.Time
}

// NewHTTPAuthenticator constructs an Authenticator for the service at baseURL.
func NewHTTPAuthenticator(baseURL string, client HTTPClient) (*HTTPAuthenticator, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("login: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("login: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("login: base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthenticator{
		base:   parsed,
		client: client,
		now:    time.Now,
	}, nil
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	User         User   `json:"user"`
}

// Login posts the credentials and decodes the issued session.
func (a *HTTPAuthenticator) Login(ctx context.Context, creds Credentials) (*Session, error) {
	body := loginRequest{
		Email:      strings.TrimSpace(creds.Email),
		Password:   creds.Password,
		RememberMe: creds.Remember,
	}
	req, err := a.newJSONRequest(ctx, http.MethodPost, loginEndpoint, body)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp)
	}

	var payload loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("login: decode login response: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return nil, ErrMissingToken
	}

	sess := &Session{
		Token:        payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		Remember:     creds.Remember,
		User:         payload.User,
	}
	if sess.User.Email == "" {
		sess.User.Email = body.Email
	}
	if payload.ExpiresIn > 0 {
		sess.ExpiresAt = a.now().Add(time.Duration(payload.ExpiresIn) * time.Second).UTC()
	}
	return sess, nil
}

func (a *HTTPAuthenticator) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("login: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.resolve(endpoint), &buf)
	if err != nil {
		return nil, fmt.Errorf("login: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (a *HTTPAuthenticator) resolve(endpoint string) string {
	ref := &url.URL{Path: strings.TrimPrefix(endpoint, "/")}
	return a.base.ResolveReference(ref).String()
}

func errorFromResponse(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return &ResponseError{
		Status:  resp.StatusCode,
		Body:    ParseErrorBody(raw),
		ReadErr: err,
	}
}
