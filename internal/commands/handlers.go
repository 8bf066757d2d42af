// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// COMMAND MESSAGES
// =============================================================================

// ShowHelpMsg asks the chat view to display command help.
type ShowHelpMsg struct {
	Commands []*Command
}

// NewConversationMsg starts a fresh conversation. Title may be empty,
// in which case the first message names it.
type NewConversationMsg struct {
	Title string
}

// OpenConversationMsg switches to an existing conversation.
type OpenConversationMsg struct {
	ID int
}

// ListConversationsMsg asks the view to show the conversation list.
type ListConversationsMsg struct{}

// DeleteConversationMsg deletes a conversation. ID 0 means the current one.
type DeleteConversationMsg struct {
	ID int
}

// ClearHistoryMsg deletes all conversations after confirmation.
type ClearHistoryMsg struct{}

// ExportConversationMsg exports the current conversation to a file.
type ExportConversationMsg struct {
	Format string
}

// ProductSearchMsg switches to the product search view with a query.
type ProductSearchMsg struct {
	Query string
}

// LogoutMsg clears the session and returns to the login view.
type LogoutMsg struct{}

// CommandErrorMsg reports a command usage error to the view.
type CommandErrorMsg struct {
	Err error
}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg { return CommandErrorMsg{Err: err} }
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			return msgCmd(ShowHelpMsg{Commands: r.Visible()})
		},
	})

	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Usage:       "/new [title]",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			return msgCmd(NewConversationMsg{Title: strings.Join(args, " ")})
		},
	})

	r.Register(&Command{
		Name:        "/open",
		Aliases:     []string{"/o"},
		Description: "Open a conversation by id",
		Usage:       "/open <id>",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			if len(args) != 1 {
				return errCmd(fmt.Errorf("usage: /open <id>"))
			}
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return errCmd(fmt.Errorf("invalid conversation id %q", args[0]))
			}
			return msgCmd(OpenConversationMsg{ID: id})
		},
	})

	r.Register(&Command{
		Name:        "/list",
		Aliases:     []string{"/ls"},
		Description: "List conversations",
		Usage:       "/list",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			return msgCmd(ListConversationsMsg{})
		},
	})

	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/del", "/rm"},
		Description: "Delete a conversation (current one when no id given)",
		Usage:       "/delete [id]",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			if len(args) == 0 {
				if ctx.CurrentChatID == 0 {
					return errCmd(fmt.Errorf("no conversation open; use /delete <id>"))
				}
				return msgCmd(DeleteConversationMsg{ID: ctx.CurrentChatID})
			}
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return errCmd(fmt.Errorf("invalid conversation id %q", args[0]))
			}
			return msgCmd(DeleteConversationMsg{ID: id})
		},
	})

	r.Register(&Command{
		Name:        "/clear",
		Description: "Delete all conversations",
		Usage:       "/clear",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			return msgCmd(ClearHistoryMsg{})
		},
	})

	r.Register(&Command{
		Name:        "/export",
		Aliases:     []string{"/ex"},
		Description: "Export the current conversation (markdown or json)",
		Usage:       "/export [markdown|json]",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			if ctx.CurrentChatID == 0 {
				return errCmd(fmt.Errorf("no conversation open"))
			}
			format := "markdown"
			if len(args) > 0 {
				format = strings.ToLower(args[0])
			}
			switch format {
			case "markdown", "md", "json":
			default:
				return errCmd(fmt.Errorf("unsupported export format %q", format))
			}
			return msgCmd(ExportConversationMsg{Format: format})
		},
	})

	r.Register(&Command{
		Name:        "/search",
		Aliases:     []string{"/s"},
		Description: "Search products",
		Usage:       "/search <query>",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errCmd(fmt.Errorf("usage: /search <query>"))
			}
			return msgCmd(ProductSearchMsg{Query: query})
		},
	})

	r.Register(&Command{
		Name:        "/logout",
		Description: "Log out and return to the login screen",
		Usage:       "/logout",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			return msgCmd(LogoutMsg{})
		},
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Quit",
		Usage:       "/quit",
		Handler: func(ctx *Context, args []string) tea.Cmd {
			return tea.Quit
		},
	})
}
