package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerLevels(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("debug")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("nonsense")
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestFromContextDefaultsToNop(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly.
	require.NotNil(t, FromContext(nil))

	logger := zap.NewExample()
	require.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	router := chi.NewRouter()
	router.Use(RequestLogger(zap.New(core)))
	router.Get("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusUnauthorized)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, 1, logs.FilterMessage("inside handler").Len())
	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	require.Equal(t, zapcore.WarnLevel, completed[0].Level)
	require.EqualValues(t, http.StatusUnauthorized, completed[0].ContextMap()["status"])
	require.Equal(t, "/admin/login", completed[0].ContextMap()["route"])
}
