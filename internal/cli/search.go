// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search.go - product search command handler.
package cli

import (
	"context"
	"fmt"

	"github.com/shopchat/shopchat-tui/internal/config"
)

// HandleSearch handles the "search" command.
func HandleSearch(args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("query", `shopchat search "điện thoại iPhone"`)
	}

	// Search works without a login; the bearer header rides along when a
	// token is stored.
	client, _, err := newClient(args)
	if err != nil {
		return err
	}

	products, err := client.Search(context.Background(), args.Query)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("search", products).Print()
	}

	currency := config.Global().Search.Currency
	if !args.Quiet {
		fmt.Printf("%s\n\n", TitleStyle.Render(fmt.Sprintf("Results for %q", args.Query)))
	}
	printProducts(products, currency)
	return nil
}
