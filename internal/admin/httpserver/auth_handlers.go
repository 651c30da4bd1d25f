package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "finitefield.org/tenant-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tenant-admin/internal/admin/login"
	"finitefield.org/tenant-admin/internal/admin/observability"
	"finitefield.org/tenant-admin/internal/admin/rbac"
	"finitefield.org/tenant-admin/internal/admin/templates/auth"
)

const (
	messageLoggedOut = "You have been signed out."
	messageExpired   = "Your session has expired. Please sign in again."

	// outcomeHeader carries the attempt label on htmx responses, which are
	// always 200 so htmx swaps the returned panel.
	outcomeHeader = "X-Login-Outcome"
)

var (
	errThrottled     = errors.New("login: client exceeded local rate limit")
	errConsoleDenied = errors.New("login: role has no console access")
)

// Recorder receives login metrics. *metrics.Collector satisfies it.
type Recorder interface {
	login.Recorder
	RecordThrottled()
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, time.Duration) {}
func (nopRecorder) RecordThrottled()                    {}

type authHandlers struct {
	authenticator login.Authenticator
	basePath      string
	loginPath     string
	redirectDelay time.Duration
	guard         *login.KeyedGuard
	limiter       *loginLimiter
	recorder      Recorder
	now           func() time.Time
}

func newAuthHandlers(authenticator login.Authenticator, basePath, loginPath string) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	basePath = login.NormalizeBase(basePath)
	if strings.TrimSpace(loginPath) == "" {
		loginPath = resolveLoginPath(basePath, "")
	}
	return &authHandlers{
		authenticator: authenticator,
		basePath:      basePath,
		loginPath:     loginPath,
		redirectDelay: login.DefaultRedirectDelay,
		guard:         login.NewKeyedGuard(),
		recorder:      nopRecorder{},
		now:           time.Now,
	}
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.isAuthenticated(r) && !forceLogin(r) {
		target := login.ResolveTarget(h.basePath, h.loginPath, r.URL.Query().Get("next"))
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	data := h.buildLoginPageData(r, nil)
	h.renderLoginPage(w, r, data, http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		state := &loginFormState{Error: login.UnknownError.DefaultMessage()}
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusBadRequest)
		return
	}

	creds := login.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Remember: parseCheckbox(r.PostFormValue("remember")),
	}.Normalised()
	state := &loginFormState{
		Email:    creds.Email,
		Remember: creds.Remember,
		Next:     r.PostFormValue("next"),
	}

	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		logger.Error("login submitted without session middleware")
		state.Error = login.UnknownError.DefaultMessage()
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusInternalServerError)
		return
	}

	start := h.now()

	// Local validation needs no network and is never throttled.
	if failure := login.Validate(creds); failure != nil {
		h.finish(r, creds, login.Outcome{Failure: failure}, start)
		h.renderFailure(w, r, state, failure)
		return
	}

	release, acquired := h.guard.TryAcquire(sess.ID())
	if !acquired {
		logger.Info("duplicate login submission ignored")
		if custommw.IsHTMXRequest(r.Context()) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusConflict)
		return
	}
	defer release()

	if !h.limiter.allow(clientKey(r)) {
		h.recorder.RecordThrottled()
		failure := login.NewFailure(login.RateLimited, errThrottled)
		h.finish(r, creds, login.Outcome{Failure: failure}, start)
		w.Header().Set("Retry-After", h.limiter.retryAfter())
		h.renderFailure(w, r, state, failure)
		return
	}

	outcome := login.Attempt(r.Context(), h.authenticator, creds)
	if outcome.Succeeded() && !rbac.CanSignIn(outcome.Session.User.Roles) {
		outcome = login.Outcome{Failure: login.NewFailure(login.AccountDisabled, errConsoleDenied)}
	}
	if outcome.Succeeded() {
		if err := sess.Begin(outcome.Session); err != nil {
			outcome = login.Outcome{Failure: login.NewFailure(login.UnknownError, err)}
		}
	}
	h.finish(r, creds, outcome, start)

	switch {
	case outcome.Err != nil:
		// The client went away; nobody is left to render for.
		return
	case outcome.Failure != nil:
		h.renderFailure(w, r, state, outcome.Failure)
		return
	}

	target := login.ResolveTarget(h.basePath, h.loginPath, state.Next)
	data := auth.LoginConfirmationData{
		Message:     login.ConfirmationMessage,
		Target:      target,
		Delay:       h.redirectDelay,
		Environment: custommw.EnvironmentFromContext(r.Context()),
	}
	var component templ.Component = auth.LoginConfirmation(data)
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set(outcomeHeader, outcome.Label())
		component = auth.LoginConfirmationPanel(data)
	}
	templ.Handler(component).ServeHTTP(w, r)
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}

	redirect := h.loginURLWithParams(map[string]string{
		"status": "logged_out",
	})

	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", redirect)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *authHandlers) finish(r *http.Request, creds login.Credentials, outcome login.Outcome, start time.Time) {
	elapsed := h.now().Sub(start)
	h.recorder.RecordAttempt(outcome.Label(), elapsed)

	logger := observability.FromContext(r.Context())
	fields := []zap.Field{
		zap.String("email_domain", login.EmailDomain(creds.Email)),
		zap.String("outcome", outcome.Label()),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case outcome.Succeeded():
		logger.Info("login succeeded", append(fields, zap.String("tenant_id", outcome.Session.User.TenantID))...)
	case outcome.Failure != nil && outcome.Failure.Kind.Local():
		logger.Debug("login rejected locally", fields...)
	case outcome.Failure != nil:
		logger.Warn("login failed", append(fields, zap.Error(outcome.Failure.Err))...)
	default:
		logger.Info("login abandoned", fields...)
	}
}

func (h *authHandlers) renderFailure(w http.ResponseWriter, r *http.Request, state *loginFormState, failure *login.Failure) {
	state.Error = failure.Message
	status := statusForKind(failure.Kind)
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set(outcomeHeader, failure.Kind.String())
		status = http.StatusOK
	}
	h.renderLoginPage(w, r, h.buildLoginPageData(r, state), status)
}

// statusForKind maps a failure onto the HTTP status of the re-rendered form.
func statusForKind(kind login.Kind) int {
	switch kind {
	case login.MissingEmail, login.MissingPassword:
		return http.StatusBadRequest
	case login.InvalidEmailFormat, login.PasswordTooShort, login.ServerValidation:
		return http.StatusUnprocessableEntity
	case login.RateLimited:
		return http.StatusTooManyRequests
	case login.AccountDisabled:
		return http.StatusForbidden
	case login.InvalidCredentials:
		return http.StatusUnauthorized
	case login.NetworkUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type loginFormState struct {
	Email    string
	Remember bool
	Next     string
	Error    string
	Message  string
}

func (h *authHandlers) buildLoginPageData(r *http.Request, state *loginFormState) auth.LoginPageData {
	q := url.Values{}
	if r.URL != nil {
		q = r.URL.Query()
	}

	next := ""
	if state != nil && state.Next != "" {
		next = login.SanitizeNext(h.basePath, h.loginPath, state.Next)
	} else {
		next = login.SanitizeNext(h.basePath, h.loginPath, q.Get("next"))
	}

	message := ""
	if state != nil && strings.TrimSpace(state.Message) != "" {
		message = state.Message
	} else if state == nil {
		message = messageForQuery(q)
	}

	data := auth.LoginPageData{
		Next:        next,
		Message:     message,
		LoginPath:   h.loginPath,
		BasePath:    h.basePath,
		CSRFToken:   custommw.CSRFTokenFromContext(r.Context()),
		Environment: custommw.EnvironmentFromContext(r.Context()),
	}
	if state != nil {
		data.Email = state.Email
		data.Remember = state.Remember
		data.Error = state.Error
	} else {
		data.Email = strings.TrimSpace(q.Get("email"))
		if sess, ok := custommw.SessionFromContext(r.Context()); ok {
			data.Remember = sess.RememberMe()
		}
	}
	return data
}

func (h *authHandlers) renderLoginPage(w http.ResponseWriter, r *http.Request, data auth.LoginPageData, status int) {
	var component templ.Component = auth.LoginPage(data)
	if custommw.IsHTMXRequest(r.Context()) {
		component = auth.LoginPanel(data)
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := component.Render(r.Context(), w); err != nil {
		observability.FromContext(r.Context()).Error("render login page", zap.Error(err))
	}
}

func (h *authHandlers) isAuthenticated(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	return ok && sess.SignedIn()
}

func messageForQuery(q url.Values) string {
	if q == nil {
		return ""
	}
	if q.Get("status") == "logged_out" {
		return messageLoggedOut
	}
	if q.Get("reason") == "expired" {
		return messageExpired
	}
	return ""
}

func (h *authHandlers) loginURLWithParams(params map[string]string) string {
	parsed, err := url.Parse(h.loginPath)
	if err != nil {
		return h.loginPath
	}
	q := parsed.Query()
	for key, val := range params {
		if strings.TrimSpace(val) == "" {
			continue
		}
		q.Set(key, val)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

func forceLogin(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("force"))) {
	case "1", "true", "yes", "force":
		return true
	default:
		return false
	}
}
