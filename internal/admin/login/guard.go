package login

import "sync"

// KeyedGuard allows one in-flight submission per key.
type KeyedGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewKeyedGuard returns an empty guard.
func NewKeyedGuard() *KeyedGuard {
	return &KeyedGuard{active: make(map[string]struct{})}
}

// TryAcquire claims key. It returns a release func and true, or nil and
// false when a submission for key is already in flight.
func (g *KeyedGuard) TryAcquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}

// InFlight reports whether key currently holds the guard.
func (g *KeyedGuard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}
