package login

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var validCreds = Credentials{Email: "owner@shop.example", Password: "secret123"}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Replace(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type countingAuth struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (*Session, error)
}

func (a *countingAuth) Login(ctx context.Context, _ Credentials) (*Session, error) {
	a.calls.Add(1)
	return a.fn(ctx)
}

type memoryStore struct {
	mu       sync.Mutex
	sessions []*Session
	err      error
}

func (s *memoryStore) Begin(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

type recorderStub struct {
	mu     sync.Mutex
	labels []string
}

func (r *recorderStub) RecordAttempt(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, outcome)
}

func TestFlowSuccessNavigatesOnceAfterDelay(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	nav := &recordingNavigator{}
	store := &memoryStore{}
	recorder := &recorderStub{}
	auth := &countingAuth{fn: func(context.Context) (*Session, error) {
		return &Session{Token: "tok", User: User{ID: "staff-1"}}, nil
	}}

	flow := NewFlow(auth, nav,
		WithClock(clock),
		WithTarget("/admin/models"),
		WithSessionStore(store),
		WithRecorder(recorder),
	)

	outcome, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())
	require.Equal(t, Succeeded, flow.State())
	require.Equal(t, ConfirmationMessage, flow.Message())
	require.Len(t, store.sessions, 1)
	require.Empty(t, nav.Targets(), "navigation must wait for the delay")

	clock.Advance(DefaultRedirectDelay - time.Millisecond)
	require.Empty(t, nav.Targets())

	clock.Advance(time.Millisecond)
	require.Equal(t, []string{"/admin/models"}, nav.Targets())

	clock.Advance(10 * time.Second)
	flow.Close()
	require.Equal(t, []string{"/admin/models"}, nav.Targets())

	_, err = flow.Submit(context.Background(), validCreds)
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, []string{OutcomeSuccess}, recorder.labels)
}

func TestFlowRejectsSubmitAfterSuccess(t *testing.T) {
	clock := newFakeClock()
	auth := &countingAuth{fn: func(context.Context) (*Session, error) { return &Session{Token: "tok"}, nil }}
	flow := NewFlow(auth, &recordingNavigator{}, WithClock(clock))

	_, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	_, err = flow.Submit(context.Background(), validCreds)
	require.ErrorIs(t, err, ErrCompleted)
	require.EqualValues(t, 1, auth.calls.Load())
}

func TestFlowLocalFailureSkipsNetwork(t *testing.T) {
	auth := &countingAuth{fn: func(context.Context) (*Session, error) { return &Session{Token: "tok"}, nil }}
	flow := NewFlow(auth, &recordingNavigator{}, WithClock(newFakeClock()))

	outcome, err := flow.Submit(context.Background(), Credentials{Email: "", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, MissingEmail, outcome.Failure.Kind)
	require.Equal(t, Failed, flow.State())
	require.Equal(t, MissingEmail.DefaultMessage(), flow.Message())
	require.False(t, flow.InFlight())
	require.Zero(t, auth.calls.Load())
}

func TestFlowFailedThenRetry(t *testing.T) {
	clock := newFakeClock()
	nav := &recordingNavigator{}
	var fail atomic.Bool
	fail.Store(true)
	auth := &countingAuth{fn: func(context.Context) (*Session, error) {
		if fail.Load() {
			return nil, &ResponseError{Status: http.StatusUnauthorized}
		}
		return &Session{Token: "tok"}, nil
	}}
	flow := NewFlow(auth, nav, WithClock(clock), WithRedirectDelay(0))

	outcome, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	require.Equal(t, InvalidCredentials, outcome.Failure.Kind)
	require.Equal(t, Failed, flow.State())
	require.Equal(t, "Invalid email or password. Please try again.", flow.Message())

	fail.Store(false)
	outcome, err = flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())
	clock.Advance(0)
	require.Equal(t, []string{"/"}, nav.Targets())
}

func TestFlowIgnoresSecondSubmitWhileInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	auth := &countingAuth{fn: func(context.Context) (*Session, error) {
		close(entered)
		<-release
		return nil, &ResponseError{Status: http.StatusTooManyRequests}
	}}
	flow := NewFlow(auth, &recordingNavigator{}, WithClock(newFakeClock()))

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := flow.Submit(context.Background(), validCreds)
		done <- outcome
	}()
	<-entered

	require.True(t, flow.InFlight())
	require.Equal(t, Submitting, flow.State())
	_, err := flow.Submit(context.Background(), validCreds)
	require.ErrorIs(t, err, ErrInFlight)

	close(release)
	outcome := <-done
	require.Equal(t, RateLimited, outcome.Failure.Kind)
	require.EqualValues(t, 1, auth.calls.Load())
	require.False(t, flow.InFlight())
}

func TestFlowInputChangedClearsMessageKeepsRequest(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	var attempt atomic.Int32
	auth := &countingAuth{fn: func(context.Context) (*Session, error) {
		entered <- struct{}{}
		if attempt.Add(1) == 1 {
			return nil, &ResponseError{Status: http.StatusForbidden}
		}
		<-release
		return nil, &TransportError{Err: errors.New("dial tcp: refused")}
	}}
	flow := NewFlow(auth, &recordingNavigator{}, WithClock(newFakeClock()))

	_, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	<-entered
	require.Equal(t, AccountDisabled.DefaultMessage(), flow.Message())

	flow.InputChanged()
	require.Empty(t, flow.Message())
	require.Equal(t, Failed, flow.State())

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := flow.Submit(context.Background(), validCreds)
		done <- outcome
	}()
	<-entered
	flow.InputChanged()
	require.True(t, flow.InFlight(), "editing must not cancel the request")

	close(release)
	outcome := <-done
	require.Equal(t, NetworkUnreachable, outcome.Failure.Kind)
	require.Equal(t, NetworkUnreachable.DefaultMessage(), flow.Message())
}

func TestFlowCloseSuppressesPendingRedirect(t *testing.T) {
	clock := newFakeClock()
	nav := &recordingNavigator{}
	auth := &countingAuth{fn: func(context.Context) (*Session, error) { return &Session{Token: "tok"}, nil }}
	flow := NewFlow(auth, nav, WithClock(clock))

	_, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)

	flow.Close()
	flow.Close()
	clock.Advance(time.Minute)
	require.Empty(t, nav.Targets())
}

func TestFlowCloseCancelsInFlightRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	entered := make(chan struct{})
	auth := &countingAuth{fn: func(ctx context.Context) (*Session, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	nav := &recordingNavigator{}
	flow := NewFlow(auth, nav, WithClock(newFakeClock()))

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := flow.Submit(context.Background(), validCreds)
		done <- result{outcome, err}
	}()
	<-entered
	flow.Close()

	res := <-done
	require.ErrorIs(t, res.err, ErrClosed)
	require.ErrorIs(t, res.outcome.Err, ErrAbandoned)
	require.Equal(t, Idle, flow.State())
	require.Empty(t, nav.Targets())
}

func TestFlowClosedBeforeReplyNeverStoresSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memoryStore{}
	nav := &recordingNavigator{}
	clock := newFakeClock()
	var flow *Flow
	auth := &countingAuth{fn: func(context.Context) (*Session, error) {
		// The user quits while the reply is already on its way.
		flow.Close()
		return &Session{Token: "tok"}, nil
	}}
	flow = NewFlow(auth, nav, WithClock(clock), WithSessionStore(store))

	outcome, err := flow.Submit(context.Background(), validCreds)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, outcome.Err, ErrAbandoned)
	require.False(t, outcome.Succeeded())
	require.Empty(t, store.sessions)
	require.Equal(t, Idle, flow.State())

	clock.Advance(time.Minute)
	require.Empty(t, nav.Targets())
}

func TestFlowStoreFailureIsUnknownError(t *testing.T) {
	nav := &recordingNavigator{}
	clock := newFakeClock()
	auth := &countingAuth{fn: func(context.Context) (*Session, error) { return &Session{Token: "tok"}, nil }}
	flow := NewFlow(auth, nav, WithClock(clock), WithSessionStore(&memoryStore{err: errors.New("disk full")}))

	outcome, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)
	require.Equal(t, UnknownError, outcome.Failure.Kind)
	require.Equal(t, Failed, flow.State())
	clock.Advance(time.Minute)
	require.Empty(t, nav.Targets())
}

func TestFlowRealTimerNavigates(t *testing.T) {
	defer goleak.VerifyNone(t)

	navigated := make(chan string, 1)
	auth := &countingAuth{fn: func(context.Context) (*Session, error) { return &Session{Token: "tok"}, nil }}
	flow := NewFlow(auth, NavigatorFunc(func(target string) { navigated <- target }),
		WithRedirectDelay(10*time.Millisecond),
		WithTarget("/admin"),
	)

	_, err := flow.Submit(context.Background(), validCreds)
	require.NoError(t, err)

	select {
	case target := <-navigated:
		require.Equal(t, "/admin", target)
	case <-time.After(2 * time.Second):
		t.Fatal("redirect did not fire")
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "submitting", Submitting.String())
	require.Equal(t, "state(42)", State(42).String())
}
