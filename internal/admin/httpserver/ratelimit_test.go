package httpserver

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLoginLimiterPerClient(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	limiter := newLoginLimiter(rate.Every(time.Minute), 2, func() time.Time { return now })

	require.True(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.2"), "other clients keep their own budget")

	now = now.Add(61 * time.Second)
	require.True(t, limiter.allow("10.0.0.1"))
	require.Equal(t, "60", limiter.retryAfter())
}

func TestLoginLimiterPrunesIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	limiter := newLoginLimiter(rate.Every(time.Second), 1, func() time.Time { return now })
	limiter.allow("a")
	limiter.allow("b")
	require.Equal(t, 2, limiter.size())

	now = now.Add(2 * limiterIdleTTL)
	limiter.allow("c")
	require.Equal(t, 1, limiter.size())
}

func TestLoginLimiterUnlimited(t *testing.T) {
	t.Parallel()

	var nilLimiter *loginLimiter
	require.True(t, nilLimiter.allow("x"))

	limiter := newLoginLimiter(rate.Inf, 0, nil)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.allow("x"))
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/admin/login", nil)
	req.RemoteAddr = "203.0.113.7:5123"
	require.Equal(t, "203.0.113.7", clientKey(req))
	req.RemoteAddr = "203.0.113.8"
	require.Equal(t, "203.0.113.8", clientKey(req))
}
