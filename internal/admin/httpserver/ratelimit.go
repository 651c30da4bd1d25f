package httpserver

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// loginLimiter throttles login submissions per client address. Entries idle
// for longer than limiterIdleTTL are pruned on access.
type loginLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastPrune time.Time
}

func newLoginLimiter(limit rate.Limit, burst int, now func() time.Time) *loginLimiter {
	if now == nil {
		now = time.Now
	}
	if burst <= 0 {
		burst = 1
	}
	return &loginLimiter{
		limit:   limit,
		burst:   burst,
		now:     now,
		clients: make(map[string]*clientLimiter),
	}
}

// allow reports whether key may submit now. A nil limiter or an infinite
// limit never throttles.
func (l *loginLimiter) allow(key string) bool {
	if l == nil || l.limit == rate.Inf {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > limiterIdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastAccess) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastPrune = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastAccess = now
	return c.limiter.AllowN(now, 1)
}

// retryAfter is the estimated wait in whole seconds for one token.
func (l *loginLimiter) retryAfter() string {
	seconds := 1
	if l != nil && l.limit > 0 && l.limit != rate.Inf {
		seconds = int(math.Ceil(1.0/float64(l.limit) - 1e-9))
		if seconds < 1 {
			seconds = 1
		}
	}
	return strconv.Itoa(seconds)
}

func (l *loginLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// clientKey returns the caller's address without port. chi's RealIP has
// already rewritten RemoteAddr from forwarding headers.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
