// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopchat/shopchat-tui/internal/config"
)

// =============================================================================
// SETTINGS MODEL
// =============================================================================

// settings items, in display order.
const (
	itemPassword = iota
	itemMarkdown
	itemHistory
	itemTimestamps
	itemMouse
	itemTheme
	itemClearAll
	itemLogout
	itemCount
)

// SettingsModel is the Bubble Tea model for the settings screen:
// preference toggles, password change, wipe-everything, and logout.
// Toggles are persisted to the config file as they change.
type SettingsModel struct {
	ctx *Ctx

	cursor int

	// Password change sub-form.
	changingPassword bool
	passwordInputs   [2]textinput.Model // new, confirm
	passwordFocus    int

	confirmClear bool
	busy         bool
	status       string
	err          error

	width  int
	height int
}

type passwordChangedMsg struct {
	err error
}

type allClearedMsg struct {
	err error
}

// NewSettings builds the settings view.
func NewSettings(ctx *Ctx) *SettingsModel {
	m := &SettingsModel{ctx: ctx}
	for i, name := range []string{"new password", "confirm password"} {
		in := textinput.New()
		in.Placeholder = name
		in.Prompt = "> "
		in.PromptStyle = ctx.Theme.InputPrompt
		in.PlaceholderStyle = ctx.Theme.InputPlaceholder
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '*'
		in.CharLimit = 128
		m.passwordInputs[i] = in
	}
	return m
}

func (m *SettingsModel) Init() tea.Cmd {
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case passwordChangedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.changingPassword = false
		m.passwordInputs[0].SetValue("")
		m.passwordInputs[1].SetValue("")
		m.status = "password changed"
		return m, nil

	case allClearedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ctx.Store.SetCurrentChatID(0)
		m.status = "all conversations deleted"
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.changingPassword {
			return m.handlePasswordKey(msg)
		}
		return m.handleListKey(msg)
	}
	return m, nil
}

func (m *SettingsModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmClear {
		m.confirmClear = false
		if s := msg.String(); s == "y" || s == "Y" {
			m.busy = true
			return m, m.clearAllCmd()
		}
		m.status = "cancelled"
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < itemCount-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.activate()
	}
	return m, nil
}

func (m *SettingsModel) activate() (tea.Model, tea.Cmd) {
	m.status = ""
	m.err = nil
	cfg := m.ctx.Config

	switch m.cursor {
	case itemPassword:
		m.changingPassword = true
		m.passwordFocus = 0
		m.passwordInputs[0].Focus()
		return m, textinput.Blink

	case itemMarkdown:
		cfg.Chat.RenderMarkdown = !cfg.Chat.RenderMarkdown
		m.saveConfig()

	case itemHistory:
		cfg.History.Enabled = !cfg.History.Enabled
		m.saveConfig()
		if cfg.History.Enabled {
			m.status = "local history enabled; takes effect on restart"
		}

	case itemTimestamps:
		cfg.UI.ShowTimestamps = !cfg.UI.ShowTimestamps
		m.saveConfig()

	case itemMouse:
		cfg.UI.MouseEnabled = !cfg.UI.MouseEnabled
		m.saveConfig()
		m.status = "mouse setting takes effect on restart"

	case itemTheme:
		cfg.UI.Theme = nextTheme(cfg.UI.Theme)
		m.saveConfig()
		m.status = "theme takes effect on restart"

	case itemClearAll:
		m.confirmClear = true

	case itemLogout:
		m.ctx.Store.Clear()
		return m, func() tea.Msg { return LoggedOutMsg{} }
	}
	return m, nil
}

func nextTheme(cur string) string {
	switch cur {
	case "dark":
		return "light"
	case "light":
		return "auto"
	default:
		return "dark"
	}
}

func (m *SettingsModel) saveConfig() {
	if err := config.Save(m.ctx.Config); err != nil {
		m.err = fmt.Errorf("save config: %w", err)
	}
}

func (m *SettingsModel) handlePasswordKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.changingPassword = false
		m.passwordInputs[0].SetValue("")
		m.passwordInputs[1].SetValue("")
		return m, nil

	case "tab", "shift+tab", "up", "down":
		m.passwordInputs[m.passwordFocus].Blur()
		m.passwordFocus = 1 - m.passwordFocus
		m.passwordInputs[m.passwordFocus].Focus()
		return m, nil

	case "enter":
		if m.passwordFocus == 0 {
			m.passwordInputs[0].Blur()
			m.passwordFocus = 1
			m.passwordInputs[1].Focus()
			return m, nil
		}
		newPw := m.passwordInputs[0].Value()
		confirm := m.passwordInputs[1].Value()
		switch {
		case newPw == "":
			m.err = fmt.Errorf("password must not be empty")
		case newPw != confirm:
			m.err = fmt.Errorf("passwords do not match")
			m.passwordInputs[1].SetValue("")
		default:
			m.err = nil
			m.busy = true
			return m, m.changePasswordCmd(newPw)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.passwordInputs[m.passwordFocus], cmd = m.passwordInputs[m.passwordFocus].Update(msg)
	return m, cmd
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *SettingsModel) changePasswordCmd(newPassword string) tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return passwordChangedMsg{err: client.ChangePassword(ctx, newPassword)}
	}
}

func (m *SettingsModel) clearAllCmd() tea.Cmd {
	client := m.ctx.Client
	hist := m.ctx.History
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.ClearConversations(ctx); err != nil {
			return allClearedMsg{err: err}
		}
		if hist != nil {
			_ = hist.Clear(ctx)
		}
		return allClearedMsg{}
	}
}

// =============================================================================
// VIEW
// =============================================================================

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (m *SettingsModel) View() string {
	t := m.ctx.Theme
	cfg := m.ctx.Config

	if m.changingPassword {
		var b strings.Builder
		b.WriteString(t.Title.Render("Change Password"))
		b.WriteString("\n\n")
		for i := range m.passwordInputs {
			label := t.FormLabel
			if i == m.passwordFocus {
				label = t.FormFocusLabel
			}
			name := "New"
			if i == 1 {
				name = "Confirm"
			}
			b.WriteString(label.Render(name))
			b.WriteString("\n")
			b.WriteString(m.passwordInputs[i].View())
			b.WriteString("\n")
		}
		if m.busy {
			b.WriteString("\n")
			b.WriteString(t.Thinking.Render("updating..."))
		} else if m.err != nil {
			b.WriteString("\n")
			b.WriteString(t.ErrorText.Render(m.err.Error()))
		}
		b.WriteString("\n\n")
		b.WriteString(t.FormHint.Render("enter submit · esc cancel"))
		box := t.FormBox.Render(b.String())
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
		return box
	}

	items := []string{
		"Change password...",
		fmt.Sprintf("Render markdown    [%s]", onOff(cfg.Chat.RenderMarkdown)),
		fmt.Sprintf("Local history      [%s]", onOff(cfg.History.Enabled)),
		fmt.Sprintf("Show timestamps    [%s]", onOff(cfg.UI.ShowTimestamps)),
		fmt.Sprintf("Mouse support      [%s]", onOff(cfg.UI.MouseEnabled)),
		fmt.Sprintf("Theme              [%s]", cfg.UI.Theme),
		"Delete all conversations...",
		"Log out",
	}

	var b strings.Builder
	b.WriteString(t.Title.Render("Settings"))
	b.WriteString("\n\n")
	for i, item := range items {
		style := t.ListItem
		if i == m.cursor {
			style = t.ListItemSelected
		}
		b.WriteString(style.Render(item))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.confirmClear:
		b.WriteString(t.WarningMsg.Render("delete ALL conversations? press y to confirm"))
	case m.busy:
		b.WriteString(t.Thinking.Render("working..."))
	case m.err != nil:
		b.WriteString(t.ErrorText.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(t.SuccessMsg.Render(m.status))
	default:
		b.WriteString(t.FormHint.Render("enter toggle · up/down navigate"))
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}
