// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// admin.go - admin command handlers. The backend enforces authorization;
// these commands surface its 403s as auth errors.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// HandleAdmin handles the "admin" command and its subcommands.
func HandleAdmin(args Args) error {
	client, store, err := newClient(args)
	if err != nil {
		return err
	}
	if err := requireLogin(store); err != nil {
		return err
	}

	ctx := context.Background()

	switch args.Subcommand {
	case "", "users":
		return adminUsers(ctx, client, args)
	case "delete-user":
		return adminDeleteUser(ctx, client, args)
	case "stats":
		return adminStats(ctx, client, args)
	case "platforms":
		return adminPlatforms(ctx, client, args)
	case "add-platform":
		return adminAddPlatform(ctx, client, args)
	default:
		return fmt.Errorf("unknown admin subcommand %q (try: users, delete-user, stats, platforms, add-platform)", args.Subcommand)
	}
}

func adminUsers(ctx context.Context, client *api.Client, args Args) error {
	users, err := client.AdminUsers(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("admin users", users).Print()
	}
	if len(users) == 0 {
		fmt.Println(DimStyle.Render("No users."))
		return nil
	}
	for _, u := range users {
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		fmt.Printf("#%-5d %s %s %s\n", u.ID,
			ValueStyle.Render(util.PadRight(u.Username, 24)),
			DimStyle.Render(util.PadRight(u.Email, 30)),
			roleStyle(role).Render(role))
	}
	return nil
}

func adminDeleteUser(ctx context.Context, client *api.Client, args Args) error {
	if len(args.Raw) == 0 {
		return ErrMissingArgument("user id", "shopchat admin delete-user <id>")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args.Raw[0], "#"))
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid user id %q", args.Raw[0])
	}

	if err := client.DeleteUser(ctx, id); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("admin delete-user", map[string]int{"deleted": id}).Print()
	}
	fmt.Printf("%s Deleted user #%d\n", SuccessStyle.Render("[OK]"), id)
	return nil
}

func adminStats(ctx context.Context, client *api.Client, args Args) error {
	stats, err := client.Stats(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("admin stats", stats).Print()
	}
	fmt.Printf("%s\n", TitleStyle.Render("System statistics"))
	fmt.Printf("%s%d\n", LabelStyle.Render("Users"), stats.TotalUsers)
	fmt.Printf("%s%d\n", LabelStyle.Render("Conversations"), stats.TotalConversations)
	fmt.Printf("%s%d\n", LabelStyle.Render("Messages"), stats.TotalMessages)
	fmt.Printf("%s%d\n", LabelStyle.Render("Platforms"), stats.TotalPlatforms)
	return nil
}

func adminPlatforms(ctx context.Context, client *api.Client, args Args) error {
	platforms, err := client.ListPlatforms(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("admin platforms", platforms).Print()
	}
	if len(platforms) == 0 {
		fmt.Println(DimStyle.Render("No platforms registered."))
		return nil
	}
	for _, p := range platforms {
		fmt.Printf("#%-5d %s %s %s\n", p.ID,
			ValueStyle.Render(util.PadRight(p.Name, 20)),
			DimStyle.Render(util.PadRight(p.URL, 36)),
			RenderStatus(p.Status))
	}
	return nil
}

func adminAddPlatform(ctx context.Context, client *api.Client, args Args) error {
	if len(args.Raw) < 2 {
		return ErrMissingArgument("platform", "shopchat admin add-platform <name> <url>")
	}
	name, siteURL := args.Raw[0], args.Raw[1]

	platform, err := client.CreatePlatform(ctx, name, siteURL, "active")
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("admin add-platform", platform).Print()
	}
	fmt.Printf("%s Registered platform %s (#%d)\n",
		SuccessStyle.Render("[OK]"), ValueStyle.Render(platform.Name), platform.ID)
	return nil
}

func roleStyle(role string) interface{ Render(...string) string } {
	if role == "admin" {
		return HighlightStyle
	}
	return DimStyle
}
