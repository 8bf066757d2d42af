// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui wires the views, guard, and status bar into the root
// Bubble Tea program.
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/commands"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/guard"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/storage"
	"github.com/shopchat/shopchat-tui/internal/ui/components"
	"github.com/shopchat/shopchat-tui/internal/ui/styles"
	"github.com/shopchat/shopchat-tui/internal/ui/views"
)

// =============================================================================
// APP MODEL
// =============================================================================

// App is the root model. It owns the view models, runs the guard before
// every protected view, and renders the status bar.
type App struct {
	ctx   *views.Ctx
	guard *guard.Guard

	active views.Name
	denied bool // guard denied the active view; render in place

	login    *views.LoginModel
	chat     *views.ChatModel
	search   *views.SearchModel
	admin    *views.AdminModel
	settings *views.SettingsModel

	statusBar *components.StatusBar
	status    string

	// pendingSearch is a query carried across a navigation into the
	// search view, set by the chat /search command.
	pendingSearch string

	width  int
	height int
}

// guardResultMsg is the outcome of a guard check for a navigation.
type guardResultMsg struct {
	target views.Name
	result guard.Result
}

// ConfigReloadedMsg is sent by the config watcher when the config file
// changed on disk. The app adopts the new values on the UI goroutine.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// NewApp builds the root model and all views.
func NewApp(client *api.Client, store session.Store, history *storage.HistoryStore, cfg *config.Config) *App {
	theme := styles.NewTheme(cfg.UI.Theme)
	ctx := &views.Ctx{
		Client:  client,
		Store:   store,
		History: history,
		Config:  cfg,
		Theme:   theme,
	}
	a := &App{
		ctx:       ctx,
		guard:     guard.New(client, store),
		statusBar: components.NewStatusBar(theme),
		active:    views.ViewLogin,
	}
	a.login = views.NewLogin(ctx)
	a.chat = views.NewChat(ctx)
	a.search = views.NewSearch(ctx)
	a.admin = views.NewAdmin(ctx)
	a.settings = views.NewSettings(ctx)
	return a
}

// Init checks the stored session and lands on chat or login.
func (a *App) Init() tea.Cmd {
	if a.ctx.Store.Get().HasToken() {
		return tea.Batch(a.login.Init(), a.checkCmd(views.ViewChat))
	}
	return a.login.Init()
}

// checkCmd runs the guard for a target view off the UI goroutine.
func (a *App) checkCmd(target views.Name) tea.Cmd {
	g := a.guard
	opts := guard.Options{
		LoginView:      target == views.ViewLogin,
		AllowAnonymous: target == views.ViewSearch,
		RequireAdmin:   target == views.ViewAdmin,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return guardResultMsg{target: target, result: g.Check(ctx, opts)}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleResize(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "f2":
			return a, a.checkCmd(views.ViewChat)
		case "f3":
			return a, a.checkCmd(views.ViewSearch)
		case "f4":
			return a, a.checkCmd(views.ViewAdmin)
		case "f5":
			return a, a.checkCmd(views.ViewSettings)
		}

	case guardResultMsg:
		return a.handleGuardResult(msg)

	case views.NavigateMsg:
		return a, a.checkCmd(msg.To)

	case views.LoggedInMsg:
		a.status = "signed in as " + msg.User.Username
		// Admins land on the dashboard, everyone else on chat.
		if msg.User.IsAdmin {
			return a, a.checkCmd(views.ViewAdmin)
		}
		return a, a.checkCmd(views.ViewChat)

	case views.LoggedOutMsg:
		a.toLogin("logged out")
		return a, nil

	case views.StatusMsg:
		a.status = msg.Text
		return a, nil

	case ConfigReloadedMsg:
		*a.ctx.Config = *msg.Config
		a.status = "config reloaded"
		return a, nil

	case commands.ProductSearchMsg:
		a.pendingSearch = msg.Query
		return a, a.checkCmd(views.ViewSearch)

	case commands.LogoutMsg:
		a.ctx.Store.Clear()
		a.toLogin("logged out")
		return a, nil
	}

	return a.updateActive(msg)
}

func (a *App) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width = msg.Width
	a.height = msg.Height
	a.ctx.Theme.SetSize(msg.Width, msg.Height)
	a.statusBar.SetWidth(msg.Width)

	// One line is reserved for the status bar.
	inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 1}
	var cmds []tea.Cmd
	for _, v := range []tea.Model{a.login, a.chat, a.search, a.admin, a.settings} {
		_, cmd := v.Update(inner)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleGuardResult(msg guardResultMsg) (tea.Model, tea.Cmd) {
	res := msg.result
	switch res.State {
	case guard.StateAnonymousAllowed:
		a.active = msg.target
		a.denied = false
		cmds := []tea.Cmd{a.activeModel().Init()}
		if msg.target == views.ViewSearch && a.pendingSearch != "" {
			q := a.pendingSearch
			a.pendingSearch = ""
			cmds = append(cmds, a.search.SetQuery(q))
		}
		return a, tea.Batch(cmds...)

	case guard.StateRedirecting:
		if res.Redirect == guard.TargetHome {
			return a, a.checkCmd(views.ViewChat)
		}
		a.toLogin("please sign in")
		return a, nil

	case guard.StateLoggedOut:
		a.toLogin("session expired, please sign in again")
		return a, nil

	case guard.StateDenied:
		a.active = msg.target
		a.denied = true
		return a, nil

	case guard.StateVerified:
		a.active = msg.target
		a.denied = false
		cmds := []tea.Cmd{a.activeModel().Init()}
		if msg.target == views.ViewSearch && a.pendingSearch != "" {
			q := a.pendingSearch
			a.pendingSearch = ""
			cmds = append(cmds, a.search.SetQuery(q))
		}
		return a, tea.Batch(cmds...)
	}
	return a, nil
}

// toLogin resets to a fresh login form.
func (a *App) toLogin(status string) {
	a.login = views.NewLogin(a.ctx)
	a.active = views.ViewLogin
	a.denied = false
	a.status = status
	if a.width > 0 {
		a.login.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height - 1})
	}
}

func (a *App) activeModel() tea.Model {
	switch a.active {
	case views.ViewChat:
		return a.chat
	case views.ViewSearch:
		return a.search
	case views.ViewAdmin:
		return a.admin
	case views.ViewSettings:
		return a.settings
	default:
		return a.login
	}
}

// updateActive forwards a message to the active view only.
func (a *App) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := a.activeModel().Update(msg)
	switch v := updated.(type) {
	case *views.LoginModel:
		a.login = v
	case *views.ChatModel:
		a.chat = v
	case *views.SearchModel:
		a.search = v
	case *views.AdminModel:
		a.admin = v
	case *views.SettingsModel:
		a.settings = v
	}
	return a, cmd
}

// =============================================================================
// VIEW
// =============================================================================

func (a *App) shortcuts() []components.Shortcut {
	if a.active == views.ViewLogin {
		return []components.Shortcut{{Key: "ctrl+c", Desc: "quit"}}
	}
	sc := []components.Shortcut{
		{Key: "F2", Desc: "chat"},
		{Key: "F3", Desc: "search"},
	}
	if a.ctx.Store.Get().Role.IsAdmin() {
		sc = append(sc, components.Shortcut{Key: "F4", Desc: "admin"})
	}
	sc = append(sc, components.Shortcut{Key: "F5", Desc: "settings"})
	return sc
}

func (a *App) View() string {
	var body string
	if a.denied {
		box := a.ctx.Theme.DeniedBox.Render("Access denied\n\nThis area requires an administrator account.")
		body = lipgloss.Place(a.width, maxInt(a.height-1, 1), lipgloss.Center, lipgloss.Center, box)
	} else {
		body = a.activeModel().View()
	}
	bar := a.statusBar.Render(a.ctx.Store.Get(), a.status, a.shortcuts())

	if a.height > 1 {
		body = lipgloss.NewStyle().Height(a.height - 1).MaxHeight(a.height - 1).Render(body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, bar)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
