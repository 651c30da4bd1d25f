package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/tenant-admin/internal/admin/observability"
	appsession "finitefield.org/tenant-admin/internal/admin/session"
)

type sessionContextKey string

const (
	requestSessionKey sessionContextKey = "admin.session"
	sessionExpiredKey sessionContextKey = "admin.session.expired"
)

// SessionStore abstracts the session manager for middleware integration.
type SessionStore interface {
	Load(*http.Request) (*appsession.Session, error)
	New() *appsession.Session
	Save(http.ResponseWriter, *appsession.Session) error
	Destroy(http.ResponseWriter)
}

// Session attaches the decoded session to the request context and writes
// it back to the cookie before the response header is sent.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())
			ctx := r.Context()

			sess, err := store.Load(r)
			switch {
			case errors.Is(err, appsession.ErrExpired):
				logger.Info("session expired; resetting")
				store.Destroy(w)
				sess = store.New()
				ctx = context.WithValue(ctx, sessionExpiredKey, true)
			case err != nil || sess == nil:
				if err != nil {
					logger.Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}

			sw := &sessionWriter{ResponseWriter: w, save: func() {
				if err := store.Save(w, sess); err != nil {
					logger.Error("session save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(ctx, requestSessionKey, sess)))
			sw.flushSession()
		})
	}
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*appsession.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*appsession.Session)
	return sess, ok && sess != nil
}

// SessionExpired reports whether the request arrived with an expired session cookie.
func SessionExpired(ctx context.Context) bool {
	expired, _ := ctx.Value(sessionExpiredKey).(bool)
	return expired
}

// sessionWriter persists the session exactly once, just before the first
// byte of the response, so handlers may change the session up to that point.
type sessionWriter struct {
	http.ResponseWriter
	save func()
	once sync.Once
}

func (sw *sessionWriter) flushSession() {
	sw.once.Do(sw.save)
}

func (sw *sessionWriter) WriteHeader(status int) {
	sw.flushSession()
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.flushSession()
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
