// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - local conversation history commands.
//
// These commands read the SQLite cache only; they work offline and never
// talk to the backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/export"
	"github.com/shopchat/shopchat-tui/internal/storage"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// HandleHistory handles the "history" command and its subcommands.
func HandleHistory(args Args) error {
	cfg := config.Global()
	if !cfg.History.Enabled {
		return fmt.Errorf("local history is disabled; enable it with: shopchat config set history.enabled true")
	}

	hs, err := openHistory(cfg)
	if err != nil {
		return NewCommandError("history", "open", "opening local cache", err)
	}
	defer hs.Close()

	ctx := context.Background()

	switch args.Subcommand {
	case "", "list", "ls":
		return historyList(ctx, hs, args)
	case "show":
		return historyShow(ctx, hs, args)
	case "search":
		return historySearch(ctx, hs, args)
	case "export":
		return historyExport(ctx, hs, args)
	case "stats":
		return historyStats(ctx, hs, args)
	case "clear":
		return historyClear(ctx, hs, args)
	default:
		return fmt.Errorf("unknown history subcommand %q (try: list, show, search, export, stats, clear)", args.Subcommand)
	}
}

func historyList(ctx context.Context, hs *storage.HistoryStore, args Args) error {
	convs, err := hs.List(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history list", convs).Print()
	}
	if len(convs) == 0 {
		fmt.Println(DimStyle.Render("No cached conversations. They are cached as you chat."))
		return nil
	}
	for _, c := range convs {
		title := util.TruncateRunes(c.Title, 50)
		fmt.Printf("#%-5d %s %s\n", c.ID, ValueStyle.Render(util.PadRight(title, 52)), DimStyle.Render(c.UpdatedAt))
	}
	return nil
}

func historyShow(ctx context.Context, hs *storage.HistoryStore, args Args) error {
	id, err := parseConversationID(args.Query)
	if err != nil {
		return err
	}

	conv, err := hs.Conversation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotCached) {
			return ErrNotFound("cached conversation", strconv.Itoa(id))
		}
		return err
	}
	msgs, err := hs.Messages(ctx, id)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history show", map[string]interface{}{
			"conversation": conv,
			"messages":     msgs,
		}).Print()
	}

	fmt.Printf("%s\n\n", TitleStyle.Render(conv.Title))
	for _, m := range msgs {
		if m.Role == "user" {
			fmt.Printf("%s %s\n\n", PromptStyle.Render("you:"), m.Content)
		} else {
			fmt.Printf("%s\n\n", renderMarkdown(m.Content))
		}
	}
	return nil
}

func historySearch(ctx context.Context, hs *storage.HistoryStore, args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("query", `shopchat history search "iphone"`)
	}

	hits, err := hs.SearchMessages(ctx, args.Query, 0)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history search", hits).Print()
	}
	if len(hits) == 0 {
		fmt.Println(DimStyle.Render("No matches."))
		return nil
	}
	for _, h := range hits {
		fmt.Printf("#%-5d %s\n", h.ConversationID, ValueStyle.Render(h.Title))
		fmt.Printf("       %s\n", DimStyle.Render(strings.ReplaceAll(h.Snippet, "\n", " ")))
	}
	return nil
}

func historyExport(ctx context.Context, hs *storage.HistoryStore, args Args) error {
	id, err := parseConversationID(args.Query)
	if err != nil {
		return err
	}

	conv, err := hs.Conversation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotCached) {
			return ErrNotFound("cached conversation", strconv.Itoa(id))
		}
		return err
	}
	msgs, err := hs.Messages(ctx, id)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	if dir := args.Options["output"]; dir != "" {
		opts.OutputDir = dir
	}
	format := args.Options["format"]
	if format == "" {
		format = "markdown"
	}
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(conv, msgs, exporter, opts)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history export", map[string]string{"path": path}).Print()
	}
	fmt.Printf("%s Exported to %s\n", SuccessStyle.Render("[OK]"), ValueStyle.Render(path))
	return nil
}

func historyStats(ctx context.Context, hs *storage.HistoryStore, args Args) error {
	convs, msgs, err := hs.Stats(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history stats", map[string]int{
			"conversations": convs,
			"messages":      msgs,
		}).Print()
	}
	fmt.Printf("%s%d\n", LabelStyle.Render("Conversations"), convs)
	fmt.Printf("%s%d\n", LabelStyle.Render("Messages"), msgs)
	fmt.Printf("%s%s\n", LabelStyle.Render("Cache"), DimStyle.Render(hs.Path()))
	return nil
}

func historyClear(ctx context.Context, hs *storage.HistoryStore, args Args) error {
	if err := hs.Clear(ctx); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("history clear", map[string]bool{"cleared": true}).Print()
	}
	fmt.Printf("%s Local history cleared\n", SuccessStyle.Render("[OK]"))
	return nil
}

func parseConversationID(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
	if s == "" {
		return 0, ErrMissingArgument("id", "shopchat history show <id>")
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id %q", s)
	}
	return id, nil
}
