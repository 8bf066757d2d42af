// shopchat - a terminal client for the shopchat assistant backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/cli"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/storage"
	"github.com/shopchat/shopchat-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	if cmd == cli.CmdTUI {
		os.Exit(runTUI(args))
	}
	os.Exit(cli.Run(cmd, args))
}

// runTUI wires the stores and client and hands control to Bubble Tea.
func runTUI(args cli.Args) int {
	if !cli.IsTTY() {
		fmt.Fprintln(os.Stderr, "shopchat: the TUI needs a terminal; see 'shopchat help' for scriptable commands")
		return cli.ExitUsageError
	}

	cfg := config.Global()

	sessionPath, err := cfg.SessionPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shopchat: %v\n", err)
		return cli.ExitConfigError
	}
	store, err := session.NewFileStore(sessionPath, session.FileStoreOptions{SealToken: cfg.Session.SealToken})
	if err != nil {
		fmt.Fprintf(os.Stderr, "shopchat: %v\n", err)
		return cli.ExitConfigError
	}

	baseURL := cfg.Server.BaseURL
	if args.Server != "" {
		baseURL = args.Server
	}
	client := api.NewClient(baseURL, store).
		WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst).
		WithVerbose(args.Verbose)

	// The local history cache is optional; the TUI runs without it.
	var history *storage.HistoryStore
	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			if hs, err := storage.NewHistoryStore(path); err == nil {
				history = hs
				defer hs.Close()
			} else {
				fmt.Fprintf(os.Stderr, "shopchat: history cache unavailable: %v\n", err)
			}
		}
	}

	app := ui.NewApp(client, store, history, cfg)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(app, opts...)

	// Config edits from another terminal flow into the running TUI.
	if watcher, err := config.NewWatcher(func(next *config.Config) {
		p.Send(ui.ConfigReloadedMsg{Config: next})
	}); err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "shopchat: %v\n", err)
		return cli.ExitGeneralError
	}
	return cli.ExitSuccess
}
