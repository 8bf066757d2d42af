// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package views contains the Bubble Tea models for each screen of the
// shopchat TUI: login, chat, search, admin and settings.
package views

import (
	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/storage"
	"github.com/shopchat/shopchat-tui/internal/ui/styles"
)

// Name identifies a view.
type Name string

const (
	ViewLogin    Name = "login"
	ViewChat     Name = "chat"
	ViewSearch   Name = "search"
	ViewAdmin    Name = "admin"
	ViewSettings Name = "settings"
)

// Ctx carries the shared dependencies every view needs.
type Ctx struct {
	Client  *api.Client
	Store   session.Store
	History *storage.HistoryStore // nil when the local cache is disabled
	Config  *config.Config
	Theme   *styles.Theme
}

// =============================================================================
// CROSS-VIEW MESSAGES
// =============================================================================

// NavigateMsg asks the app to switch to another view.
type NavigateMsg struct {
	To Name
}

// LoggedInMsg reports a successful login.
type LoggedInMsg struct {
	User *api.User
}

// LoggedOutMsg reports that the session ended, either explicitly or
// because the backend rejected the token.
type LoggedOutMsg struct {
	// Expired is true when the session ended without the user asking.
	Expired bool
}

// StatusMsg updates the transient status text in the status bar.
type StatusMsg struct {
	Text string
}
