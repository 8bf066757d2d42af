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
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopchat/shopchat-tui/internal/api"
)

// =============================================================================
// ADMIN MODEL
// =============================================================================

// AdminModel is the Bubble Tea model for the admin dashboard: platform
// stats, the user list, and the platform list. The guard only routes
// admins here, but the backend still has the final say; a 403 renders a
// denied box in place.
type AdminModel struct {
	ctx *Ctx

	users     table.Model
	userList  []api.User
	stats     *api.AdminStats
	platforms []api.Platform

	spinner spinner.Model
	loading int // outstanding loads
	denied  bool
	err     error

	// pendingDelete is the user selected for deletion, nil when no
	// confirmation is in flight.
	pendingDelete *api.User

	width  int
	height int
}

type adminStatsMsg struct {
	stats *api.AdminStats
	err   error
}

type adminUsersMsg struct {
	users []api.User
	err   error
}

type adminPlatformsMsg struct {
	platforms []api.Platform
	err       error
}

type userDeletedMsg struct {
	id  int
	err error
}

// NewAdmin builds the admin view.
func NewAdmin(ctx *Ctx) *AdminModel {
	m := &AdminModel{ctx: ctx}
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = ctx.Theme.Spinner
	m.users = m.buildTable(nil)
	return m
}

func (m *AdminModel) buildTable(rows []table.Row) table.Model {
	nameWidth := m.width - 40
	if nameWidth < 16 {
		nameWidth = 16
	}
	cols := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Username", Width: nameWidth},
		{Title: "Email", Width: 24},
		{Title: "Role", Width: 6},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(8),
		table.WithFocused(true),
	)
	s := table.DefaultStyles()
	s.Header = m.ctx.Theme.TableHeader
	s.Selected = m.ctx.Theme.ListItemSelected
	t.SetStyles(s)
	return t
}

// Init fires the three loads in parallel.
func (m *AdminModel) Init() tea.Cmd {
	m.loading = 3
	m.denied = false
	m.err = nil
	return tea.Batch(m.spinner.Tick, m.loadStats(), m.loadUsers(), m.loadPlatforms())
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.users = m.buildTable(m.userRows())
		return m, nil

	case spinner.TickMsg:
		if m.loading == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case adminStatsMsg:
		m.loading--
		if m.recordError(msg.err) {
			return m, nil
		}
		m.stats = msg.stats
		return m, nil

	case adminUsersMsg:
		m.loading--
		if m.recordError(msg.err) {
			return m, nil
		}
		m.userList = msg.users
		m.users = m.buildTable(m.userRows())
		return m, nil

	case adminPlatformsMsg:
		m.loading--
		if m.recordError(msg.err) {
			return m, nil
		}
		m.platforms = msg.platforms
		return m, nil

	case userDeletedMsg:
		m.loading--
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		kept := m.userList[:0]
		for _, u := range m.userList {
			if u.ID != msg.id {
				kept = append(kept, u)
			}
		}
		m.userList = kept
		m.users = m.buildTable(m.userRows())
		if m.stats != nil {
			m.stats.TotalUsers--
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *AdminModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.denied {
		return m, nil
	}
	if m.pendingDelete != nil {
		switch msg.String() {
		case "y", "Y":
			u := m.pendingDelete
			m.pendingDelete = nil
			m.loading++
			return m, tea.Batch(m.spinner.Tick, m.deleteUser(u.ID))
		default:
			m.pendingDelete = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "r":
		return m, m.Init()
	case "d":
		idx := m.users.Cursor()
		if idx >= 0 && idx < len(m.userList) {
			u := m.userList[idx]
			if u.IsAdmin {
				m.err = fmt.Errorf("admin accounts cannot be deleted")
				return m, nil
			}
			if strconv.Itoa(u.ID) == m.ctx.Store.Get().UserID {
				m.err = fmt.Errorf("refusing to delete the logged-in account")
				return m, nil
			}
			m.pendingDelete = &u
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.users, cmd = m.users.Update(msg)
	return m, cmd
}

// recordError notes a load failure, flagging 403 as a denial so the
// view renders the denied box instead of a generic error.
func (m *AdminModel) recordError(err error) bool {
	if err == nil {
		return false
	}
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.Status == 403 {
		m.denied = true
		return true
	}
	m.err = err
	return true
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *AdminModel) loadStats() tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		stats, err := client.Stats(ctx)
		return adminStatsMsg{stats: stats, err: err}
	}
}

func (m *AdminModel) loadUsers() tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		users, err := client.AdminUsers(ctx)
		return adminUsersMsg{users: users, err: err}
	}
}

func (m *AdminModel) loadPlatforms() tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		platforms, err := client.ListPlatforms(ctx)
		return adminPlatformsMsg{platforms: platforms, err: err}
	}
}

func (m *AdminModel) deleteUser(id int) tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := client.DeleteUser(ctx, id)
		return userDeletedMsg{id: id, err: err}
	}
}

func (m *AdminModel) userRows() []table.Row {
	rows := make([]table.Row, 0, len(m.userList))
	for _, u := range m.userList {
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		rows = append(rows, table.Row{strconv.Itoa(u.ID), u.Username, u.Email, role})
	}
	return rows
}

// =============================================================================
// VIEW
// =============================================================================

func (m *AdminModel) View() string {
	t := m.ctx.Theme

	if m.denied {
		box := t.DeniedBox.Render("Access denied\n\nThis area requires an administrator account.")
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
		return box
	}

	var b strings.Builder
	b.WriteString(t.Title.Render("Admin Dashboard"))
	b.WriteString("\n\n")

	if m.loading > 0 {
		b.WriteString(m.spinner.View())
		b.WriteString(t.Thinking.Render(" loading..."))
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(t.ErrorText.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.stats != nil {
		b.WriteString(t.ListMeta.Render(fmt.Sprintf(
			"users %d · conversations %d · messages %d · platforms %d",
			m.stats.TotalUsers, m.stats.TotalConversations,
			m.stats.TotalMessages, m.stats.TotalPlatforms)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.users.View())
	b.WriteString("\n")

	if m.pendingDelete != nil {
		b.WriteString(t.WarningMsg.Render(fmt.Sprintf(
			"delete user %s (#%d)? press y to confirm", m.pendingDelete.Username, m.pendingDelete.ID)))
	} else {
		b.WriteString(t.FormHint.Render("d delete user · r refresh"))
	}
	b.WriteString("\n")

	if len(m.platforms) > 0 {
		b.WriteString("\n")
		b.WriteString(t.TableHeader.Render("Platforms"))
		b.WriteString("\n")
		for _, p := range m.platforms {
			status := t.SuccessMsg.Render(p.Status)
			if p.Status != "active" {
				status = t.WarningMsg.Render(p.Status)
			}
			b.WriteString(fmt.Sprintf("  %-20s %s  %s\n", p.Name, status, t.ListMeta.Render(p.URL)))
		}
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}
