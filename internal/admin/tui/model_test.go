package tui

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"finitefield.org/tenant-admin/internal/admin/login"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	calls    atomic.Int32
	navigate chan string
	flow     *login.Flow
}

func newHarness(t *testing.T, fn func(context.Context, login.Credentials) (*login.Session, error)) *harness {
	t.Helper()
	h := &harness{navigate: make(chan string, 1)}
	auth := login.AuthenticatorFunc(func(ctx context.Context, creds login.Credentials) (*login.Session, error) {
		h.calls.Add(1)
		return fn(ctx, creds)
	})
	h.flow = login.NewFlow(auth,
		login.NavigatorFunc(func(target string) { h.navigate <- target }),
		login.WithRedirectDelay(0),
		login.WithTarget("/admin"),
	)
	t.Cleanup(h.flow.Close)
	return h
}

func rejectAll(context.Context, login.Credentials) (*login.Session, error) {
	return nil, &login.ResponseError{Status: http.StatusUnauthorized}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func key(t *testing.T, m Model, kt tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: kt})
}

// drain runs cmd, expanding batches, and feeds every non-tick message back into m.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case spinner.TickMsg, nil:
	default:
		m, _ = update(t, m, msg)
	}
	return m
}

func fillCredentials(t *testing.T, m Model, email, password string) Model {
	t.Helper()
	m = typeText(t, m, email)
	m, _ = key(t, m, tea.KeyTab)
	return typeText(t, m, password)
}

func TestLocalValidationNeverReachesAuthService(t *testing.T) {
	h := newHarness(t, rejectAll)
	m := New(context.Background(), h.flow)

	m, cmd := key(t, m, tea.KeyEnter)
	require.True(t, m.Submitting())
	m = drain(t, m, cmd)

	require.False(t, m.Submitting())
	require.Equal(t, "Email is required.", m.Message())
	require.Zero(t, h.calls.Load())
	require.Contains(t, m.View(), "Email is required.")
}

func TestFailureMessageClearsOnEdit(t *testing.T) {
	h := newHarness(t, rejectAll)
	m := fillCredentials(t, New(context.Background(), h.flow), "ops@example.com", "secret1")

	m, cmd := key(t, m, tea.KeyEnter)
	m = drain(t, m, cmd)
	require.Equal(t, "Invalid email or password. Please try again.", m.Message())
	require.EqualValues(t, 1, h.calls.Load())
	require.Equal(t, login.Failed, h.flow.State())

	m = typeText(t, m, "!")
	require.Empty(t, m.Message())
	require.Empty(t, h.flow.Message())
}

func TestSecondSubmitWhileInFlightIsIgnored(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, _ login.Credentials) (*login.Session, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return nil, &login.ResponseError{Status: http.StatusForbidden}
	})
	m := fillCredentials(t, New(context.Background(), h.flow), "ops@example.com", "secret1")

	m, first := key(t, m, tea.KeyEnter)
	require.NotNil(t, first)

	m, second := key(t, m, tea.KeyEnter)
	require.Nil(t, second)
	require.Contains(t, m.View(), signingInHint)

	close(release)
	m = drain(t, m, first)
	require.Equal(t, "Your account is disabled or does not have admin privileges.", m.Message())
	require.EqualValues(t, 1, h.calls.Load())
}

func TestSuccessNavigatesAndQuits(t *testing.T) {
	h := newHarness(t, func(_ context.Context, creds login.Credentials) (*login.Session, error) {
		return &login.Session{Token: "tok", User: login.User{ID: "u1", Email: creds.Email}}, nil
	})
	m := fillCredentials(t, New(context.Background(), h.flow), "ops@example.com", "secret1")

	m, cmd := key(t, m, tea.KeyEnter)
	m = drain(t, m, cmd)
	require.Equal(t, login.ConfirmationMessage, m.Message())

	var target string
	select {
	case target = <-h.navigate:
	case <-time.After(2 * time.Second):
		t.Fatal("flow never navigated")
	}
	require.Equal(t, "/admin", target)

	// Further input is ignored once signed in.
	m, cmd = key(t, m, tea.KeyEnter)
	require.Nil(t, cmd)
	require.EqualValues(t, 1, h.calls.Load())

	m, cmd = update(t, m, NavigateMsg{Target: target})
	require.Equal(t, "/admin", m.Target())
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEscapeClosesFlow(t *testing.T) {
	h := newHarness(t, rejectAll)
	m := New(context.Background(), h.flow)

	m, cmd := key(t, m, tea.KeyEsc)
	require.True(t, m.Aborted())
	require.IsType(t, tea.QuitMsg{}, cmd())

	_, err := h.flow.Submit(context.Background(), login.Credentials{Email: "a@b.c", Password: "secret1"})
	require.ErrorIs(t, err, login.ErrClosed)
}

func TestViewMasksPasswordAndTogglesRemember(t *testing.T) {
	h := newHarness(t, rejectAll)
	m := New(context.Background(), h.flow, WithEmail("ops@example.com"))

	// A pre-filled email moves focus to the password.
	m = typeText(t, m, "secret1")
	view := m.View()
	require.NotContains(t, view, "secret1")
	require.Contains(t, view, strings.Repeat("•", len("secret1")))
	require.Contains(t, view, "[ ]")

	m, _ = key(t, m, tea.KeyTab)
	m = typeText(t, m, "x")
	require.Contains(t, m.View(), "[x]")

	m, _ = key(t, m, tea.KeyShiftTab)
	m, _ = key(t, m, tea.KeyShiftTab)
	m = typeText(t, m, ".jp")
	require.Contains(t, m.View(), "ops@example.com.jp")
}
