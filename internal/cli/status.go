// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - connection and session status command.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/session"
)

// StatusData is the machine-readable shape of the status command.
type StatusData struct {
	ServerURL     string `json:"server_url"`
	ServerOnline  bool   `json:"server_online"`
	LoggedIn      bool   `json:"logged_in"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
	CurrentChatID int    `json:"current_chat_id,omitempty"`
	HistoryOn     bool   `json:"history_enabled"`
	Conversations int    `json:"cached_conversations"`
	Messages      int    `json:"cached_messages"`
	ConfigPath    string `json:"config_path"`
}

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	cfg := config.Global()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	data := store.Get()

	status := StatusData{
		ServerURL:     cfg.Server.BaseURL,
		LoggedIn:      data.HasToken(),
		Username:      data.Username,
		Role:          data.Role.String(),
		CurrentChatID: data.CurrentChatID,
		HistoryOn:     cfg.History.Enabled,
	}
	if args.Server != "" {
		status.ServerURL = args.Server
	}
	if path, err := config.ConfigPathTOML(); err == nil {
		status.ConfigPath = path
	}

	// A short anonymous probe tells us whether the backend is reachable
	// at all. It runs without the stored token so a 401 answer cannot
	// clear the session.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	probe := api.NewClient(status.ServerURL, session.NewMemStore())
	var raw string
	probeErr := probe.Do(ctx, "GET", "/", nil, &raw)
	status.ServerOnline = probeErr == nil || !isConnectionError(probeErr)

	if cfg.History.Enabled {
		if hs, err := openHistory(cfg); err == nil {
			status.Conversations, status.Messages, _ = hs.Stats(context.Background())
			hs.Close()
		}
	}

	if args.JSON {
		return NewJSONResponse("status", status).Print()
	}

	fmt.Printf("%s\n", TitleStyle.Render("shopchat status"))

	online := "offline"
	if status.ServerOnline {
		online = "online"
	}
	fmt.Printf("%s%s %s\n", LabelStyle.Render("Server"), ValueStyle.Render(status.ServerURL), RenderStatus(online))

	if status.LoggedIn {
		fmt.Printf("%s%s (%s)\n", LabelStyle.Render("Session"), ValueStyle.Render(status.Username), status.Role)
	} else {
		fmt.Printf("%s%s\n", LabelStyle.Render("Session"), DimStyle.Render("not logged in"))
	}
	if status.CurrentChatID != 0 {
		fmt.Printf("%s#%d\n", LabelStyle.Render("Conversation"), status.CurrentChatID)
	}

	if status.HistoryOn {
		fmt.Printf("%s%d conversations, %d messages\n", LabelStyle.Render("Local cache"), status.Conversations, status.Messages)
	} else {
		fmt.Printf("%s%s\n", LabelStyle.Render("Local cache"), DimStyle.Render("disabled"))
	}
	fmt.Printf("%s%s\n", LabelStyle.Render("Config"), DimStyle.Render(status.ConfigPath))
	return nil
}

// isConnectionError reports whether the probe failed to reach the server
// at all, as opposed to the server answering with an HTTP error.
func isConnectionError(err error) bool {
	return GetExitCode(err) == ExitNetworkError
}
