// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - shared wiring for CLI command handlers.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/storage"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// newClient builds the API client and session store from global config,
// applying the --server override when given.
func newClient(args Args) (*api.Client, session.Store, error) {
	cfg := config.Global()

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	baseURL := cfg.Server.BaseURL
	if args.Server != "" {
		baseURL = strings.TrimRight(args.Server, "/")
	}

	client := api.NewClient(baseURL, store).
		WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst).
		WithVerbose(args.Verbose)
	return client, store, nil
}

func openStore(cfg *config.Config) (session.Store, error) {
	path, err := cfg.SessionPath()
	if err != nil {
		return nil, fmt.Errorf("resolving session path: %w", err)
	}
	store, err := session.NewFileStore(path, session.FileStoreOptions{SealToken: cfg.Session.SealToken})
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, nil
}

// openHistory opens the local SQLite history cache.
func openHistory(cfg *config.Config) (*storage.HistoryStore, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("resolving history path: %w", err)
	}
	return storage.NewHistoryStore(path)
}

// requireLogin returns an error when no session token is stored.
func requireLogin(store session.Store) error {
	if !store.Get().HasToken() {
		return fmt.Errorf("not logged in, run: shopchat login")
	}
	return nil
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// FormatPrice renders a price in the configured currency.
func FormatPrice(price float64, currency string) string {
	return util.FormatPrice(price, currency)
}

// renderMarkdown renders assistant output as terminal markdown when
// stdout is a TTY, falling back to plain text otherwise.
func renderMarkdown(content string) string {
	if !IsStdoutTTY() || !config.Global().Chat.RenderMarkdown {
		return content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()),
	)
	if err != nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// printProducts renders product search results as an aligned list.
func printProducts(products []api.Product, currency string) {
	if len(products) == 0 {
		fmt.Println(DimStyle.Render("No products found."))
		return
	}

	for i, p := range products {
		price := FormatPrice(p.Price, currency)
		if p.BestDeal {
			price = HighlightStyle.Render(price + "  (best deal)")
		} else {
			price = ValueStyle.Render(price)
		}
		fmt.Printf("%2d. %s\n", i+1, ValueStyle.Render(p.Name))
		fmt.Printf("    %s\n", price)
		if p.URL != "" {
			fmt.Printf("    %s\n", DimStyle.Render(p.URL))
		}
	}
}
