// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI pieces shared by the TUI views.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/ui/styles"
)

// Shortcut is a key hint shown in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders the bottom status line: identity on the left,
// shortcuts on the right.
type StatusBar struct {
	theme *styles.Theme
	width int
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, width: theme.Width}
}

// SetWidth updates the render width.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// Render draws the status bar for the given session state.
func (s *StatusBar) Render(data session.Data, status string, shortcuts []Shortcut) string {
	var left strings.Builder

	if data.HasIdentity() {
		style := s.theme.StatusUser
		label := data.Username
		if data.Role.IsAdmin() {
			style = s.theme.StatusAdmin
			label += " (admin)"
		}
		left.WriteString(style.Render(label))
	} else {
		left.WriteString(s.theme.ListMeta.Render("anonymous"))
	}
	if status != "" {
		left.WriteString("  ")
		left.WriteString(s.theme.ListMeta.Render(status))
	}

	var right strings.Builder
	for i, sc := range shortcuts {
		if i > 0 {
			right.WriteString("  ")
		}
		right.WriteString(s.theme.ShortcutKey.Render(sc.Key))
		right.WriteString(" ")
		right.WriteString(s.theme.ShortcutDesc.Render(sc.Desc))
	}

	leftStr := left.String()
	rightStr := right.String()
	pad := s.width - lipgloss.Width(leftStr) - lipgloss.Width(rightStr) - 2
	if pad < 1 {
		pad = 1
	}

	line := leftStr + strings.Repeat(" ", pad) + rightStr
	return s.theme.StatusBar.Width(s.width).Render(line)
}

// TruncateLine shortens a single line to the given display width.
func TruncateLine(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}
