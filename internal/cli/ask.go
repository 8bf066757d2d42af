// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot question command handler.
package cli

import (
	"context"
	"fmt"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// HandleAsk handles the "ask" command: starts a conversation named after
// the question, sends it, and prints the assistant's reply.
func HandleAsk(args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("question", `shopchat ask "laptop nào tốt cho sinh viên?"`)
	}

	client, store, err := newClient(args)
	if err != nil {
		return err
	}
	if err := requireLogin(store); err != nil {
		return err
	}

	cfg := config.Global()
	ctx := context.Background()

	title := util.TitleFromMessage(args.Query, cfg.Chat.TitleMaxRunes)
	conv, err := client.CreateConversation(ctx, title)
	if err != nil {
		return err
	}

	reply, err := client.SendChat(ctx, conv.ID, args.Query)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("ask", reply).Print()
	}

	fmt.Print(renderMarkdown(reply.Response))
	if !args.Quiet {
		fmt.Printf("\n%s\n", DimStyle.Render(
			fmt.Sprintf("Continue this conversation: shopchat chat  then  /open %d", conv.ID)))
	}

	cacheReply(ctx, cfg, conv, args.Query, reply)
	return nil
}

// cacheReply records an exchange in the local history cache. Cache
// failures are non-fatal: the answer was already delivered.
func cacheReply(ctx context.Context, cfg *config.Config, conv *api.Conversation, question string, reply *api.ChatReply) {
	if !cfg.History.Enabled {
		return
	}
	hs, err := openHistory(cfg)
	if err != nil {
		return
	}
	defer hs.Close()

	hs.SyncConversations(ctx, []api.Conversation{*conv})
	hs.AppendMessages(ctx, conv.ID, []api.Message{
		{Role: "user", Content: question},
		{Role: "assistant", Content: reply.Response},
	})
}
