// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the shopchat CLI.
//
// Handles "shopchat chat", a REPL for talking to the shopping assistant.
//
// Interactive commands (during chat):
//   /help, /h           Show available commands
//   /new [title]        Start a new conversation
//   /open <id>          Open a conversation
//   /list               List conversations
//   /delete [id]        Delete a conversation
//   /clear              Delete all conversations
//   /export [md|json]   Export the current conversation
//   /search <query>     Search products
//   /logout             Log out
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/export"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/storage"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.loadHistory()
	return cli
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt, with arrow-key
// history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatREPL holds the state for an interactive chat session.
type ChatREPL struct {
	Client  *api.Client
	Store   session.Store
	History *storage.HistoryStore // nil when the local cache is disabled
	Config  *config.Config
	Quiet   bool

	// Conversation is the open conversation, nil before the first message.
	Conversation *api.Conversation

	StartTime time.Time
	Sent      int

	InputCLI *ChatCLI
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command with full interactive support.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	client, store, err := newClient(args)
	if err != nil {
		return err
	}
	if err := requireLogin(store); err != nil {
		return err
	}

	cfg := config.Global()
	repl := &ChatREPL{
		Client:    client,
		Store:     store,
		Config:    cfg,
		Quiet:     args.Quiet,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
	defer repl.InputCLI.Close()

	if cfg.History.Enabled {
		if hs, err := openHistory(cfg); err == nil {
			repl.History = hs
			defer hs.Close()
		}
	}

	ctx := context.Background()

	// Reopen the conversation from the last session when one is recorded.
	if id := store.Get().CurrentChatID; id != 0 {
		repl.reopenConversation(ctx, id)
	}

	if !repl.Quiet {
		printWelcome(repl)
	}

	for {
		input, err := repl.InputCLI.ReadInput(PromptStyle.Render("shopchat> "))
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) or EOF (Ctrl+D)
			fmt.Println()
			printExitSummary(repl)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := repl.handleSlashCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(repl)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(repl)
			return nil
		}

		if err := repl.sendMessage(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// reopenConversation restores the recorded conversation, dropping the
// stale id when the server no longer has it.
func (r *ChatREPL) reopenConversation(ctx context.Context, id int) {
	convs, err := r.Client.ListConversations(ctx)
	if err != nil {
		return
	}
	for i := range convs {
		if convs[i].ID == id {
			r.Conversation = &convs[i]
			return
		}
	}
	r.Store.SetCurrentChatID(0)
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// sendMessage delivers a chat message, creating the conversation on first
// use. The conversation takes its title from the first message.
func (r *ChatREPL) sendMessage(ctx context.Context, input string) error {
	created := false
	prevID := r.Store.Get().CurrentChatID

	if r.Conversation == nil {
		title := util.TitleFromMessage(input, r.Config.Chat.TitleMaxRunes)
		conv, err := r.Client.CreateConversation(ctx, title)
		if err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		r.Conversation = conv
		r.Store.SetCurrentChatID(conv.ID)
		created = true
	}

	reply, err := r.Client.SendChat(ctx, r.Conversation.ID, input)
	if err != nil {
		if created {
			// The first message never arrived: forget the empty conversation
			// so the next message starts fresh.
			r.Conversation = nil
			r.Store.SetCurrentChatID(prevID)
		}
		return err
	}
	r.Sent++

	fmt.Println()
	fmt.Print(renderMarkdown(reply.Response))
	fmt.Println()

	if r.History != nil {
		r.History.SyncConversations(ctx, []api.Conversation{*r.Conversation})
		r.History.AppendMessages(ctx, r.Conversation.ID, []api.Message{
			{Role: "user", Content: input},
			{Role: "assistant", Content: reply.Response},
		})
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes a / command. Returns false to exit the REPL.
func (r *ChatREPL) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help", "/h", "/?":
		printChatHelp()
		return true, nil

	case "/new", "/n":
		r.Conversation = nil
		r.Store.SetCurrentChatID(0)
		if len(args) > 0 {
			title := strings.Join(args, " ")
			conv, err := r.Client.CreateConversation(ctx, title)
			if err != nil {
				return true, err
			}
			r.Conversation = conv
			r.Store.SetCurrentChatID(conv.ID)
			fmt.Printf("%s Started %q (#%d)\n", SuccessStyle.Render("[OK]"), conv.Title, conv.ID)
		} else {
			fmt.Println(DimStyle.Render("New conversation. It will be named after your first message."))
		}
		return true, nil

	case "/open", "/o":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: /open <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return true, fmt.Errorf("invalid conversation id %q", args[0])
		}
		return true, r.openConversation(ctx, id)

	case "/list", "/ls":
		return true, r.listConversations(ctx)

	case "/delete", "/del", "/rm":
		return true, r.deleteConversation(ctx, args)

	case "/clear":
		return true, r.clearConversations(ctx)

	case "/export", "/ex":
		return true, r.exportConversation(ctx, args)

	case "/search", "/s":
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return true, fmt.Errorf("usage: /search <query>")
		}
		products, err := r.Client.Search(ctx, query)
		if err != nil {
			return true, err
		}
		fmt.Println()
		printProducts(products, r.Config.Search.Currency)
		fmt.Println()
		return true, nil

	case "/logout":
		r.Store.Clear()
		fmt.Printf("%s Logged out\n", SuccessStyle.Render("[OK]"))
		return false, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %q (try /help)", cmd)
	}
}

func (r *ChatREPL) openConversation(ctx context.Context, id int) error {
	convs, err := r.Client.ListConversations(ctx)
	if err != nil {
		return err
	}
	for i := range convs {
		if convs[i].ID == id {
			r.Conversation = &convs[i]
			r.Store.SetCurrentChatID(id)
			fmt.Printf("%s Opened %q (#%d)\n", SuccessStyle.Render("[OK]"), convs[i].Title, id)
			return r.replayMessages(ctx, id)
		}
	}
	return ErrNotFound("conversation", strconv.Itoa(id))
}

// replayMessages prints the existing transcript when opening a conversation.
func (r *ChatREPL) replayMessages(ctx context.Context, id int) error {
	msgs, err := r.Client.ListMessages(ctx, id)
	if err != nil {
		return err
	}
	if r.History != nil {
		r.History.SyncMessages(ctx, id, msgs)
	}
	fmt.Println()
	for _, m := range msgs {
		if m.Role == "user" {
			fmt.Printf("%s %s\n", PromptStyle.Render("you:"), m.Content)
		} else {
			fmt.Print(renderMarkdown(m.Content))
		}
		fmt.Println()
	}
	return nil
}

func (r *ChatREPL) listConversations(ctx context.Context) error {
	convs, err := r.Client.ListConversations(ctx)
	if err != nil {
		return err
	}
	if r.History != nil {
		r.History.SyncConversations(ctx, convs)
	}
	if len(convs) == 0 {
		fmt.Println(DimStyle.Render("No conversations yet."))
		return nil
	}
	current := 0
	if r.Conversation != nil {
		current = r.Conversation.ID
	}
	for _, c := range convs {
		marker := "  "
		if c.ID == current {
			marker = SuccessStyle.Render("* ")
		}
		title := util.TruncateRunes(c.Title, 50)
		fmt.Printf("%s#%-5d %s %s\n", marker, c.ID, ValueStyle.Render(title), DimStyle.Render(c.UpdatedAt))
	}
	return nil
}

func (r *ChatREPL) deleteConversation(ctx context.Context, args []string) error {
	id := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid conversation id %q", args[0])
		}
		id = n
	} else if r.Conversation != nil {
		id = r.Conversation.ID
	}
	if id == 0 {
		return fmt.Errorf("no conversation open; use /delete <id>")
	}

	if err := r.Client.DeleteConversation(ctx, id); err != nil {
		return err
	}
	if r.History != nil {
		r.History.Delete(ctx, id)
	}
	if r.Conversation != nil && r.Conversation.ID == id {
		r.Conversation = nil
		r.Store.SetCurrentChatID(0)
	}
	fmt.Printf("%s Deleted conversation #%d\n", SuccessStyle.Render("[OK]"), id)
	return nil
}

func (r *ChatREPL) clearConversations(ctx context.Context) error {
	confirm, err := r.InputCLI.ReadInput(WarningStyle.Render("Delete ALL conversations? (yes/no) "))
	if err != nil || !strings.EqualFold(strings.TrimSpace(confirm), "yes") {
		fmt.Println(DimStyle.Render("Cancelled."))
		return nil
	}

	if err := r.Client.ClearConversations(ctx); err != nil {
		return err
	}
	if r.History != nil {
		r.History.Clear(ctx)
	}
	r.Conversation = nil
	r.Store.SetCurrentChatID(0)
	fmt.Printf("%s All conversations deleted\n", SuccessStyle.Render("[OK]"))
	return nil
}

func (r *ChatREPL) exportConversation(ctx context.Context, args []string) error {
	if r.Conversation == nil {
		return fmt.Errorf("no conversation open")
	}

	format := "markdown"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	msgs, err := r.Client.ListMessages(ctx, r.Conversation.ID)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(r.Conversation, msgs, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("%s Exported to %s\n", SuccessStyle.Render("[OK]"), ValueStyle.Render(path))
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(r *ChatREPL) {
	username := r.Store.Get().Username
	fmt.Println(TitleStyle.Render("shopchat"))
	if username != "" {
		fmt.Printf("%s\n", DimStyle.Render("Logged in as "+username))
	}
	if r.Conversation != nil {
		fmt.Printf("%s\n", DimStyle.Render(fmt.Sprintf("Continuing %q (#%d)", r.Conversation.Title, r.Conversation.ID)))
	}
	fmt.Printf("%s\n\n", DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
}

func printChatHelp() {
	help := [][2]string{
		{"/help, /h", "Show this help"},
		{"/new [title]", "Start a new conversation"},
		{"/open <id>", "Open a conversation"},
		{"/list", "List conversations"},
		{"/delete [id]", "Delete a conversation (default: current)"},
		{"/clear", "Delete all conversations"},
		{"/export [md|json]", "Export the current conversation"},
		{"/search <query>", "Search products"},
		{"/logout", "Log out and exit"},
		{"/quit, /q", "Exit chat"},
	}
	fmt.Println()
	for _, h := range help {
		fmt.Printf("  %s %s\n", PromptStyle.Render(util.PadRight(h[0], 20)), DimStyle.Render(h[1]))
	}
	fmt.Println()
}

func printExitSummary(r *ChatREPL) {
	if r.Quiet || r.Sent == 0 {
		return
	}
	elapsed := time.Since(r.StartTime).Round(time.Second)
	fmt.Printf("%s\n", DimStyle.Render(fmt.Sprintf("%d messages in %s", r.Sent, elapsed)))
}
