// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/session"
)

// =============================================================================
// LOGIN MODEL
// =============================================================================

type loginMode int

const (
	modeLogin loginMode = iota
	modeRegister
)

// Field order in login mode: username, password.
// In register mode: username, email, password, confirm.
const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldConfirm
)

// LoginModel is the Bubble Tea model for the sign-in screen. It handles
// both login and registration against the backend.
type LoginModel struct {
	ctx  *Ctx
	mode loginMode

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model

	busy bool
	err  error

	width  int
	height int
}

// loginResultMsg carries the outcome of an authentication attempt.
type loginResultMsg struct {
	user *api.User
	err  error
}

// registerResultMsg carries the outcome of a registration attempt. On
// success the view switches back to login mode with the username kept.
type registerResultMsg struct {
	username string
	err      error
}

// NewLogin builds the login view.
func NewLogin(ctx *Ctx) *LoginModel {
	m := &LoginModel{ctx: ctx}
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = ctx.Theme.Spinner
	m.buildInputs()
	return m
}

func (m *LoginModel) buildInputs() {
	names := []string{"username", "email", "password", "confirm password"}
	m.inputs = make([]textinput.Model, len(names))
	for i, name := range names {
		in := textinput.New()
		in.Placeholder = name
		in.Prompt = "> "
		in.PromptStyle = m.ctx.Theme.InputPrompt
		in.PlaceholderStyle = m.ctx.Theme.InputPlaceholder
		in.CharLimit = 128
		if i == fieldPassword || i == fieldConfirm {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '*'
		}
		m.inputs[i] = in
	}
	m.focus = fieldUsername
	m.inputs[fieldUsername].Focus()
}

// activeFields returns the field indices visible in the current mode.
func (m *LoginModel) activeFields() []int {
	if m.mode == modeRegister {
		return []int{fieldUsername, fieldEmail, fieldPassword, fieldConfirm}
	}
	return []int{fieldUsername, fieldPassword}
}

func (m *LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.setFieldValue(fieldPassword, "")
			return m, nil
		}
		return m, func() tea.Msg { return LoggedInMsg{User: msg.user} }

	case registerResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		// Account created. Drop back to login with the username filled in.
		m.mode = modeLogin
		m.err = nil
		m.setFieldValue(fieldUsername, msg.username)
		m.setFieldValue(fieldPassword, "")
		m.setFieldValue(fieldConfirm, "")
		m.setFocus(fieldPassword)
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.cycleFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.cycleFocus(-1)
			return m, nil
		case "ctrl+r":
			m.toggleMode()
			return m, nil
		case "enter":
			fields := m.activeFields()
			if m.focus != fields[len(fields)-1] {
				m.cycleFocus(1)
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *LoginModel) toggleMode() {
	if m.mode == modeLogin {
		m.mode = modeRegister
	} else {
		m.mode = modeLogin
	}
	m.err = nil
	m.setFieldValue(fieldPassword, "")
	m.setFieldValue(fieldConfirm, "")
	m.setFocus(fieldUsername)
}

func (m *LoginModel) setFieldValue(field int, v string) {
	m.inputs[field].SetValue(v)
}

func (m *LoginModel) setFocus(field int) {
	m.inputs[m.focus].Blur()
	m.focus = field
	m.inputs[m.focus].Focus()
}

func (m *LoginModel) cycleFocus(dir int) {
	fields := m.activeFields()
	cur := 0
	for i, f := range fields {
		if f == m.focus {
			cur = i
			break
		}
	}
	next := (cur + dir + len(fields)) % len(fields)
	m.setFocus(fields[next])
}

func (m *LoginModel) submit() (tea.Model, tea.Cmd) {
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	password := m.inputs[fieldPassword].Value()

	if m.mode == modeRegister {
		email := strings.TrimSpace(m.inputs[fieldEmail].Value())
		confirm := m.inputs[fieldConfirm].Value()
		switch {
		case username == "" || email == "" || password == "":
			m.err = fmt.Errorf("all fields are required")
			return m, nil
		case password != confirm:
			m.err = fmt.Errorf("passwords do not match")
			m.setFieldValue(fieldConfirm, "")
			return m, nil
		}
		m.busy = true
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.registerCmd(username, email, password))
	}

	if username == "" || password == "" {
		m.err = fmt.Errorf("username and password are required")
		return m, nil
	}
	m.busy = true
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.loginCmd(username, password))
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *LoginModel) loginCmd(username, password string) tea.Cmd {
	client := m.ctx.Client
	store := m.ctx.Store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		tok, err := client.Login(ctx, username, password)
		if err != nil {
			return loginResultMsg{err: err}
		}
		if err := store.SetToken(tok.AccessToken); err != nil {
			return loginResultMsg{err: err}
		}
		user, err := client.CurrentUser(ctx)
		if err != nil {
			// The token worked but the profile fetch did not; proceed as
			// a regular user rather than bouncing a valid login.
			user = &api.User{Username: username}
			if err := store.SetIdentity(tok.AccessToken, username, "", session.RoleUser); err != nil {
				return loginResultMsg{err: err}
			}
			return loginResultMsg{user: user}
		}
		role := session.RoleUser
		if user.IsAdmin {
			role = session.RoleAdmin
		}
		if err := store.SetIdentity(tok.AccessToken, user.Username, strconv.Itoa(user.ID), role); err != nil {
			return loginResultMsg{err: err}
		}
		return loginResultMsg{user: user}
	}
}

func (m *LoginModel) registerCmd(username, email, password string) tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if _, err := client.Register(ctx, username, email, password); err != nil {
			return registerResultMsg{err: err}
		}
		return registerResultMsg{username: username}
	}
}

// =============================================================================
// VIEW
// =============================================================================

func (m *LoginModel) View() string {
	t := m.ctx.Theme

	title := "Sign in to shopchat"
	hint := "enter submit · tab next field · ctrl+r create account"
	if m.mode == modeRegister {
		title = "Create an account"
		hint = "enter submit · tab next field · ctrl+r back to sign in"
	}

	var b strings.Builder
	b.WriteString(t.Title.Render(title))
	b.WriteString("\n\n")

	labels := map[int]string{
		fieldUsername: "Username",
		fieldEmail:    "Email",
		fieldPassword: "Password",
		fieldConfirm:  "Confirm",
	}
	for _, f := range m.activeFields() {
		label := t.FormLabel
		if f == m.focus {
			label = t.FormFocusLabel
		}
		b.WriteString(label.Render(labels[f]))
		b.WriteString("\n")
		b.WriteString(m.inputs[f].View())
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(t.Thinking.Render(" contacting server..."))
	} else if m.err != nil {
		b.WriteString("\n")
		b.WriteString(t.ErrorText.Render(loginErrorText(m.err)))
	}

	b.WriteString("\n\n")
	b.WriteString(t.FormHint.Render(hint))

	box := t.FormBox.Render(b.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// loginErrorText rewrites backend errors into something a person at the
// keyboard can act on.
func loginErrorText(err error) string {
	if errors.Is(err, api.ErrBadCredentials) {
		return "incorrect username or password"
	}
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.Status == 409 {
		return "that username is already taken"
	}
	return err.Error()
}
