// Package tui renders the admin login form in a terminal. It drives a
// login.Flow the same way the browser form does: one submission at a time,
// messages cleared on edit and a delayed hand-off once signed in.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"finitefield.org/tenant-admin/internal/admin/login"
)

const signingInHint = "Signing in…"

type field int

const (
	fieldEmail field = iota
	fieldPassword
	fieldRemember
	fieldCount
)

// NavigateMsg tells the model the flow has redirected to Target.
type NavigateMsg struct {
	Target string
}

// Navigator returns a login.Navigator that delivers NavigateMsg through send,
// typically (*tea.Program).Send.
func Navigator(send func(tea.Msg)) login.Navigator {
	return login.NavigatorFunc(func(target string) {
		send(NavigateMsg{Target: target})
	})
}

type outcomeMsg struct {
	outcome login.Outcome
	err     error
}

// Model is the bubbletea model of the login screen.
type Model struct {
	flow   *login.Flow
	ctx    context.Context
	styles Styles

	email    textinput.Model
	password textinput.Model
	remember bool
	focus    field
	spinner  spinner.Model

	submitting bool
	message    string
	failed     bool
	hint       string

	target  string
	aborted bool
	width   int
}

// Option customises a Model.
type Option func(*Model)

// WithEmail pre-fills the email field.
func WithEmail(email string) Option {
	return func(m *Model) { m.email.SetValue(email) }
}

// WithRemember sets the initial remember-me choice.
func WithRemember(remember bool) Option {
	return func(m *Model) { m.remember = remember }
}

// WithStyles overrides DefaultStyles.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// New builds the login screen for flow. ctx bounds every submission.
func New(ctx context.Context, flow *login.Flow, opts ...Option) Model {
	if flow == nil {
		panic("tui: login flow is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	email := textinput.New()
	email.Placeholder = "you@store.example"
	email.CharLimit = 254
	email.Prompt = ""

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Prompt = ""

	m := Model{
		flow:     flow,
		ctx:      ctx,
		styles:   DefaultStyles(),
		email:    email,
		password: password,
	}
	for _, opt := range opts {
		opt(&m)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = m.styles.Spinner
	m.spinner = sp

	if m.email.Value() != "" {
		m.focus = fieldPassword
	}
	m.applyFocus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 16 {
			m.email.Width = msg.Width - 14
			m.password.Width = msg.Width - 14
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case outcomeMsg:
		m.submitting = false
		m.hint = ""
		if errors.Is(msg.err, login.ErrClosed) {
			return m, nil
		}
		m.message = m.flow.Message()
		m.failed = msg.outcome.Failure != nil
		if msg.outcome.Succeeded() {
			m.email.Blur()
			m.password.Blur()
		}
		return m, nil

	case NavigateMsg:
		m.target = msg.Target
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.flow.Close()
		m.aborted = true
		return m, tea.Quit
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % fieldCount
		return m, m.applyFocus()
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		return m, m.applyFocus()
	case tea.KeyEnter:
		return m.submit()
	}

	if m.flow.State() == login.Succeeded {
		return m, nil
	}

	if m.focus == fieldRemember {
		if msg.String() == " " || msg.String() == "space" || msg.String() == "x" {
			m.remember = !m.remember
		}
		return m, nil
	}

	var cmd tea.Cmd
	before := m.email.Value() + "\x00" + m.password.Value()
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	}
	if m.email.Value()+"\x00"+m.password.Value() != before {
		m.flow.InputChanged()
		m.message = m.flow.Message()
		if m.message == "" {
			m.failed = false
		}
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.submitting {
		m.hint = signingInHint
		return m, nil
	}
	if m.flow.State() == login.Succeeded {
		return m, nil
	}

	creds := login.Credentials{
		Email:    m.email.Value(),
		Password: m.password.Value(),
		Remember: m.remember,
	}
	m.submitting = true
	m.message = ""
	m.failed = false

	flow, ctx := m.flow, m.ctx
	run := func() tea.Msg {
		outcome, err := flow.Submit(ctx, creds)
		return outcomeMsg{outcome: outcome, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m *Model) applyFocus() tea.Cmd {
	m.email.Blur()
	m.password.Blur()
	switch m.focus {
	case fieldEmail:
		return m.email.Focus()
	case fieldPassword:
		return m.password.Focus()
	}
	return nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Tenant Admin sign in"))
	b.WriteString("\n")

	b.WriteString(m.label("Email", fieldEmail))
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.label("Password", fieldPassword))
	b.WriteString(m.password.View())
	b.WriteString("\n")

	box := "[ ]"
	if m.remember {
		box = "[x]"
	}
	b.WriteString(m.label("Remember", fieldRemember))
	b.WriteString(box)
	b.WriteString("\n\n")

	switch {
	case m.submitting:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(signingInHint)
	case m.message != "" && m.failed:
		b.WriteString(m.styles.Error.Render(m.message))
	case m.message != "":
		b.WriteString(m.styles.Success.Render(m.message))
	}
	b.WriteString("\n")

	help := "enter sign in • tab next field • esc quit"
	if m.hint != "" {
		help = m.hint
	}
	b.WriteString(m.styles.Hint.Render(help))
	b.WriteString("\n")
	return b.String()
}

func (m Model) label(text string, f field) string {
	if m.focus == f {
		return m.styles.Focused.Render(text)
	}
	return m.styles.Label.Render(text)
}

// Target is where the flow navigated, or "" if it never did.
func (m Model) Target() string { return m.target }

// Aborted reports whether the user quit before signing in.
func (m Model) Aborted() bool { return m.aborted }

// Submitting reports whether a submission is pending.
func (m Model) Submitting() bool { return m.submitting }

// Message returns the status or error text currently shown.
func (m Model) Message() string { return m.message }
