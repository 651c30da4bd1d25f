package login

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRedirectDelay is how long the confirmation stays visible before navigation.
const DefaultRedirectDelay = time.Second

// ConfirmationMessage is displayed as soon as a login succeeds.
const ConfirmationMessage = "Login successful. Redirecting…"

var (
	// ErrInFlight is returned by Submit while another submission is pending.
	ErrInFlight = errors.New("login: submission already in flight")
	// ErrClosed is returned by Submit once the flow has been torn down.
	ErrClosed = errors.New("login: flow closed")
	// ErrCompleted is returned by Submit after a successful login.
	ErrCompleted = errors.New("login: already signed in")
)

// State is the position of a Flow in the login state machine.
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Navigator moves the user to target, replacing the current history entry.
type Navigator interface {
	Replace(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

// Replace calls f.
func (f NavigatorFunc) Replace(target string) { f(target) }

// SessionStore takes ownership of a session once a login succeeds.
type SessionStore interface {
	Begin(ctx context.Context, sess *Session) error
}

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules the redirect and measures attempts.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// FlowOption customises a Flow.
type FlowOption func(*Flow)

// WithRedirectDelay overrides DefaultRedirectDelay. Negative values are treated as zero.
func WithRedirectDelay(d time.Duration) FlowOption {
	return func(f *Flow) {
		if d < 0 {
			d = 0
		}
		f.delay = d
	}
}

// WithTarget sets the redirect target used after success.
func WithTarget(target string) FlowOption {
	return func(f *Flow) {
		if target != "" {
			f.target = target
		}
	}
}

// WithClock injects the clock used for the redirect timer.
func WithClock(c Clock) FlowOption {
	return func(f *Flow) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithSessionStore hands successful sessions to store before confirming.
func WithSessionStore(store SessionStore) FlowOption {
	return func(f *Flow) { f.store = store }
}

// WithLogger sets the logger. Credentials are never logged.
func WithLogger(logger *zap.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRecorder registers a metrics recorder for finished attempts.
func WithRecorder(r Recorder) FlowOption {
	return func(f *Flow) {
		if r != nil {
			f.recorder = r
		}
	}
}

// Flow holds the state of one login form instance.
//
// At most one submission is in flight at a time. Close tears the flow down:
// a pending redirect is suppressed and an in-flight request is cancelled.
type Flow struct {
	auth     Authenticator
	nav      Navigator
	store    SessionStore
	clock    Clock
	logger   *zap.Logger
	recorder Recorder
	target   string
	delay    time.Duration

	mu        sync.Mutex
	state     State
	message   string
	inFlight  bool
	cancel    context.CancelFunc
	timer     Timer
	navigated bool
	closed    bool
}

// NewFlow builds a Flow that submits through auth and navigates through nav.
func NewFlow(auth Authenticator, nav Navigator, opts ...FlowOption) *Flow {
	if auth == nil {
		panic("login: authenticator is required")
	}
	if nav == nil {
		panic("login: navigator is required")
	}
	f := &Flow{
		auth:     auth,
		nav:      nav,
		clock:    systemClock{},
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		target:   "/",
		delay:    DefaultRedirectDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit runs one attempt. It blocks until the Authentication Service
// answers, the transport fails, ctx ends or the flow is closed.
func (f *Flow) Submit(ctx context.Context, creds Credentials) (Outcome, error) {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return Outcome{}, ErrClosed
	case f.inFlight:
		f.mu.Unlock()
		return Outcome{}, ErrInFlight
	case f.state == Succeeded:
		f.mu.Unlock()
		return Outcome{}, ErrCompleted
	}

	start := f.clock.Now()
	f.inFlight = true
	f.state = Validating
	f.message = ""

	creds = creds.Normalised()
	if failure := Validate(creds); failure != nil {
		f.state = Failed
		f.message = failure.Message
		f.inFlight = false
		f.mu.Unlock()
		outcome := Outcome{Failure: failure}
		f.finish(creds, outcome, start)
		return outcome, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.state = Submitting
	f.mu.Unlock()

	outcome := submit(ctx, f.auth, creds)
	defer cancel()

	f.mu.Lock()
	f.inFlight = false
	f.cancel = nil
	if f.closed {
		f.state = Idle
		f.mu.Unlock()
		return Outcome{Err: ErrAbandoned}, ErrClosed
	}
	// The store is handed the session under f.mu so Close either precedes
	// it, abandoning the attempt, or waits for it to finish.
	if outcome.Succeeded() && f.store != nil {
		if err := f.store.Begin(ctx, outcome.Session); err != nil {
			outcome = Outcome{Failure: NewFailure(UnknownError, fmt.Errorf("login: store session: %w", err))}
		}
	}
	switch {
	case outcome.Err != nil:
		f.state = Idle
	case outcome.Succeeded():
		f.state = Succeeded
		f.message = ConfirmationMessage
		f.timer = f.clock.AfterFunc(f.delay, f.navigate)
	default:
		f.state = Failed
		f.message = outcome.Failure.Message
	}
	f.mu.Unlock()

	f.finish(creds, outcome, start)
	return outcome, nil
}

// InputChanged clears a displayed message. It does not affect an in-flight request.
func (f *Flow) InputChanged() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Succeeded {
		return
	}
	f.message = ""
}

// Close tears the flow down. It is safe to call more than once.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.cancel != nil {
		f.cancel()
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message returns the message currently displayed, if any.
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// InFlight reports whether a submission is pending; the submit control is disabled meanwhile.
func (f *Flow) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Target returns the redirect target.
func (f *Flow) Target() string {
	return f.target
}

// Delay returns the redirect delay.
func (f *Flow) Delay() time.Duration {
	return f.delay
}

func (f *Flow) navigate() {
	f.mu.Lock()
	if f.closed || f.navigated {
		f.mu.Unlock()
		return
	}
	f.navigated = true
	f.timer = nil
	f.mu.Unlock()

	f.logger.Debug("login redirect", zap.String("target", f.target))
	f.nav.Replace(f.target)
}

func (f *Flow) finish(creds Credentials, outcome Outcome, start time.Time) {
	elapsed := f.clock.Now().Sub(start)
	f.recorder.RecordAttempt(outcome.Label(), elapsed)

	fields := []zap.Field{
		zap.String("email_domain", EmailDomain(creds.Email)),
		zap.String("outcome", outcome.Label()),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case outcome.Succeeded():
		f.logger.Info("login succeeded", append(fields,
			zap.String("tenant_id", outcome.Session.User.TenantID),
			zap.String("target", f.target),
		)...)
	case outcome.Failure != nil && outcome.Failure.Kind.Local():
		f.logger.Debug("login rejected locally", fields...)
	case outcome.Failure != nil:
		f.logger.Warn("login failed", append(fields, zap.Error(outcome.Failure.Err))...)
	default:
		f.logger.Info("login abandoned", fields...)
	}
}
