// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/commands"
	"github.com/shopchat/shopchat-tui/internal/export"
	"github.com/shopchat/shopchat-tui/internal/ui/components"
	"github.com/shopchat/shopchat-tui/internal/util"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// entryKind classifies a transcript line for rendering.
type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entrySystem
	entryError
)

type chatEntry struct {
	kind entryKind
	text string
}

// ChatModel is the Bubble Tea model for the chat screen.
type ChatModel struct {
	ctx *Ctx

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	registry *commands.Registry
	parser   *commands.Parser
	markdown *components.MarkdownRenderer

	conversation *api.Conversation
	entries      []chatEntry

	busy         bool
	pendingClear bool
	ready        bool

	width  int
	height int
}

// =============================================================================
// CHAT MESSAGES
// =============================================================================

// chatReplyMsg is the outcome of sending a message, including whether a
// conversation was created for it on the fly.
type chatReplyMsg struct {
	conv    *api.Conversation
	created bool
	prevID  int
	reply   *api.ChatReply
	err     error
}

// conversationOpenedMsg carries a reopened conversation and its transcript.
type conversationOpenedMsg struct {
	conv *api.Conversation
	msgs []api.Message
	err  error
}

type conversationsListedMsg struct {
	convs []api.Conversation
	err   error
}

type conversationDeletedMsg struct {
	id  int
	err error
}

type conversationsClearedMsg struct {
	err error
}

type conversationExportedMsg struct {
	path string
	err  error
}

// NewChat builds the chat view.
func NewChat(ctx *Ctx) *ChatModel {
	m := &ChatModel{ctx: ctx}

	m.registry = commands.NewRegistry()
	m.parser = commands.NewParser(m.registry)
	m.markdown = components.NewMarkdownRenderer(ctx.Theme.IsDark, ctx.Theme.Width-4)

	m.input = textinput.New()
	m.input.Placeholder = "ask about products, or type / for commands"
	m.input.Prompt = "> "
	m.input.PromptStyle = ctx.Theme.InputPrompt
	m.input.PlaceholderStyle = ctx.Theme.InputPlaceholder
	m.input.CharLimit = 2000
	m.input.Focus()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = ctx.Theme.Spinner

	m.viewport = viewport.New(80, 20)

	m.systemf("Welcome to shopchat. Type /help for commands.")
	return m
}

// Init reopens the conversation recorded in the session file, if any.
func (m *ChatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if id := m.ctx.Store.Get().CurrentChatID; id > 0 {
		cmds = append(cmds, m.openCmd(id))
	}
	return tea.Batch(cmds...)
}

// ConversationID returns the open conversation id, 0 when none.
func (m *ChatModel) ConversationID() int {
	if m.conversation == nil {
		return 0
	}
	return m.conversation.ID
}

// =============================================================================
// UPDATE
// =============================================================================

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chatReplyMsg:
		return m.handleReply(msg)

	case conversationOpenedMsg:
		m.busy = false
		if msg.err != nil {
			m.errorf("open failed: %v", msg.err)
			return m, nil
		}
		m.conversation = msg.conv
		m.entries = nil
		for _, mm := range msg.msgs {
			kind := entryAssistant
			if mm.Role == "user" {
				kind = entryUser
			}
			m.entries = append(m.entries, chatEntry{kind: kind, text: mm.Content})
		}
		m.systemf("Opened #%d %s", msg.conv.ID, msg.conv.Title)
		m.ctx.Store.SetCurrentChatID(msg.conv.ID)
		m.refreshViewport(true)
		return m, nil

	case conversationsListedMsg:
		m.busy = false
		if msg.err != nil {
			m.errorf("list failed: %v", msg.err)
			return m, nil
		}
		m.showConversationList(msg.convs)
		return m, nil

	case conversationDeletedMsg:
		m.busy = false
		if msg.err != nil {
			m.errorf("delete failed: %v", msg.err)
			return m, nil
		}
		if m.conversation != nil && m.conversation.ID == msg.id {
			m.conversation = nil
			m.ctx.Store.SetCurrentChatID(0)
		}
		m.systemf("Deleted conversation #%d", msg.id)
		m.refreshViewport(true)
		return m, nil

	case conversationsClearedMsg:
		m.busy = false
		if msg.err != nil {
			m.errorf("clear failed: %v", msg.err)
			return m, nil
		}
		m.conversation = nil
		m.entries = nil
		m.ctx.Store.SetCurrentChatID(0)
		m.systemf("All conversations deleted.")
		m.refreshViewport(true)
		return m, nil

	case conversationExportedMsg:
		m.busy = false
		if msg.err != nil {
			m.errorf("export failed: %v", msg.err)
			return m, nil
		}
		m.systemf("Exported to %s", msg.path)
		m.refreshViewport(true)
		return m, nil

	// Slash command outcomes emitted by the registry handlers.
	case commands.ShowHelpMsg:
		m.showHelp(msg.Commands)
		return m, nil

	case commands.NewConversationMsg:
		return m.handleNew(msg.Title)

	case commands.OpenConversationMsg:
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.openCmd(msg.ID))

	case commands.ListConversationsMsg:
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.listCmd())

	case commands.DeleteConversationMsg:
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.deleteCmd(msg.ID))

	case commands.ClearHistoryMsg:
		m.pendingClear = true
		m.systemf("This deletes ALL conversations. Type yes to confirm.")
		m.refreshViewport(true)
		return m, nil

	case commands.ExportConversationMsg:
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.exportCmd(msg.Format))

	case commands.CommandErrorMsg:
		m.errorf("%v", msg.Err)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.busy {
			return m, nil
		}
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if line == "" {
			return m, nil
		}
		return m.handleLine(line)

	case "tab":
		m.completeCommand()
		return m, nil

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleLine routes one submitted input line: clear confirmation first,
// then slash commands, then plain chat messages.
func (m *ChatModel) handleLine(line string) (tea.Model, tea.Cmd) {
	if m.pendingClear {
		m.pendingClear = false
		if strings.EqualFold(line, "yes") {
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.clearCmd())
		}
		m.systemf("Cancelled.")
		m.refreshViewport(true)
		return m, nil
	}

	res := m.parser.Parse(line)
	if !res.IsCommand {
		return m.sendMessage(line)
	}
	if res.Error != nil {
		m.errorf("%v", res.Error)
		return m, nil
	}
	cmdCtx := &commands.Context{CurrentChatID: m.ConversationID()}
	return m, res.Command.Handler(cmdCtx, res.Args)
}

// completeCommand expands a partial slash command when exactly one
// registered command matches.
func (m *ChatModel) completeCommand() {
	v := m.input.Value()
	if !strings.HasPrefix(v, "/") || strings.Contains(v, " ") {
		return
	}
	matches := m.registry.Complete(v)
	if len(matches) == 1 {
		m.input.SetValue(matches[0] + " ")
		m.input.CursorEnd()
	} else if len(matches) > 1 {
		m.systemf("%s", strings.Join(matches, "  "))
		m.refreshViewport(true)
	}
}

func (m *ChatModel) handleNew(title string) (tea.Model, tea.Cmd) {
	// Without a title the conversation is created lazily, named after
	// the first message.
	if title == "" {
		m.conversation = nil
		m.entries = nil
		m.ctx.Store.SetCurrentChatID(0)
		m.systemf("New conversation. The first message names it.")
		m.refreshViewport(true)
		return m, nil
	}
	m.busy = true
	return m, tea.Batch(m.spinner.Tick, m.createCmd(title))
}

func (m *ChatModel) handleReply(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		// A conversation created just for this message is abandoned so
		// the next attempt starts clean.
		if msg.created {
			m.conversation = nil
			m.ctx.Store.SetCurrentChatID(msg.prevID)
		}
		m.errorf("send failed: %v", msg.err)
		return m, nil
	}
	if msg.created {
		m.conversation = msg.conv
		m.ctx.Store.SetCurrentChatID(msg.conv.ID)
		m.systemf("Started #%d %s", msg.conv.ID, msg.conv.Title)
	}
	m.entries = append(m.entries, chatEntry{kind: entryAssistant, text: msg.reply.Response})
	m.refreshViewport(true)
	return m, nil
}

// =============================================================================
// COMMANDS (server round trips)
// =============================================================================

func (m *ChatModel) sendMessage(text string) (tea.Model, tea.Cmd) {
	m.entries = append(m.entries, chatEntry{kind: entryUser, text: text})
	m.refreshViewport(true)
	m.busy = true

	conv := m.conversation
	prevID := m.ctx.Store.Get().CurrentChatID
	client := m.ctx.Client
	hist := m.ctx.History
	titleMax := m.ctx.Config.Chat.TitleMaxRunes

	send := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		created := false
		if conv == nil {
			title := util.TitleFromMessage(text, titleMax)
			c, err := client.CreateConversation(ctx, title)
			if err != nil {
				return chatReplyMsg{err: err, prevID: prevID}
			}
			conv = c
			created = true
		}
		reply, err := client.SendChat(ctx, conv.ID, text)
		if err != nil {
			return chatReplyMsg{conv: conv, created: created, prevID: prevID, err: err}
		}
		if hist != nil {
			// Local cache sync is best effort.
			_ = hist.SyncConversations(ctx, []api.Conversation{*conv})
			_ = hist.AppendMessages(ctx, conv.ID, []api.Message{
				{Role: "user", Content: text},
				{Role: "assistant", Content: reply.Response},
			})
		}
		return chatReplyMsg{conv: conv, created: created, prevID: prevID, reply: reply}
	}
	return m, tea.Batch(m.spinner.Tick, send)
}

func (m *ChatModel) createCmd(title string) tea.Cmd {
	client := m.ctx.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		conv, err := client.CreateConversation(ctx, title)
		if err != nil {
			return conversationOpenedMsg{err: err}
		}
		return conversationOpenedMsg{conv: conv}
	}
}

func (m *ChatModel) openCmd(id int) tea.Cmd {
	client := m.ctx.Client
	hist := m.ctx.History
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		convs, err := client.ListConversations(ctx)
		if err != nil {
			return conversationOpenedMsg{err: err}
		}
		var conv *api.Conversation
		for i := range convs {
			if convs[i].ID == id {
				conv = &convs[i]
				break
			}
		}
		if conv == nil {
			return conversationOpenedMsg{err: fmt.Errorf("conversation #%d not found", id)}
		}
		msgs, err := client.ListMessages(ctx, id)
		if err != nil {
			return conversationOpenedMsg{err: err}
		}
		if hist != nil {
			_ = hist.SyncConversations(ctx, convs)
			_ = hist.SyncMessages(ctx, id, msgs)
		}
		return conversationOpenedMsg{conv: conv, msgs: msgs}
	}
}

func (m *ChatModel) listCmd() tea.Cmd {
	client := m.ctx.Client
	hist := m.ctx.History
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		convs, err := client.ListConversations(ctx)
		if err != nil {
			return conversationsListedMsg{err: err}
		}
		if hist != nil {
			_ = hist.SyncConversations(ctx, convs)
		}
		return conversationsListedMsg{convs: convs}
	}
}

func (m *ChatModel) deleteCmd(id int) tea.Cmd {
	client := m.ctx.Client
	hist := m.ctx.History
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := client.DeleteConversation(ctx, id); err != nil {
			return conversationDeletedMsg{id: id, err: err}
		}
		if hist != nil {
			_ = hist.Delete(ctx, id)
		}
		return conversationDeletedMsg{id: id}
	}
}

func (m *ChatModel) clearCmd() tea.Cmd {
	client := m.ctx.Client
	hist := m.ctx.History
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.ClearConversations(ctx); err != nil {
			return conversationsClearedMsg{err: err}
		}
		if hist != nil {
			_ = hist.Clear(ctx)
		}
		return conversationsClearedMsg{}
	}
}

func (m *ChatModel) exportCmd(format string) tea.Cmd {
	client := m.ctx.Client
	conv := m.conversation
	return func() tea.Msg {
		if conv == nil {
			return conversationExportedMsg{err: fmt.Errorf("no conversation open")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		msgs, err := client.ListMessages(ctx, conv.ID)
		if err != nil {
			return conversationExportedMsg{err: err}
		}
		opts := export.DefaultOptions()
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return conversationExportedMsg{err: err}
		}
		path, err := export.ExportToFile(conv, msgs, exporter, opts)
		if err != nil {
			return conversationExportedMsg{err: err}
		}
		return conversationExportedMsg{path: path}
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *ChatModel) systemf(format string, args ...interface{}) {
	m.entries = append(m.entries, chatEntry{kind: entrySystem, text: fmt.Sprintf(format, args...)})
}

func (m *ChatModel) errorf(format string, args ...interface{}) {
	m.entries = append(m.entries, chatEntry{kind: entryError, text: fmt.Sprintf(format, args...)})
	m.refreshViewport(true)
}

func (m *ChatModel) showHelp(cmds []*commands.Command) {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range cmds {
		b.WriteString(fmt.Sprintf("  %s  %s\n", util.PadRight(c.Usage, 24), c.Description))
	}
	m.systemf("%s", strings.TrimRight(b.String(), "\n"))
	m.refreshViewport(true)
}

func (m *ChatModel) showConversationList(convs []api.Conversation) {
	if len(convs) == 0 {
		m.systemf("No conversations yet.")
		m.refreshViewport(true)
		return
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].ID > convs[j].ID })
	var b strings.Builder
	b.WriteString("Conversations:\n")
	cur := m.ConversationID()
	for _, c := range convs {
		marker := " "
		if c.ID == cur {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf(" %s #%-4d %s\n", marker, c.ID, c.Title))
	}
	m.systemf("%s", strings.TrimRight(b.String(), "\n"))
	m.refreshViewport(true)
}

// renderEntry formats a single transcript entry for the viewport.
func (m *ChatModel) renderEntry(e chatEntry) string {
	t := m.ctx.Theme
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}
	switch e.kind {
	case entryUser:
		return t.UserBubble.Width(width).Render("you: " + e.text)
	case entryAssistant:
		body := e.text
		if m.ctx.Config.Chat.RenderMarkdown {
			body = strings.TrimRight(m.markdown.Render(body), "\n")
		} else {
			body = components.RenderFencedCode(body, width)
		}
		return t.AssistantBubble.Width(width).Render(body)
	case entryError:
		return t.ErrorText.Render(e.text)
	default:
		return t.ListMeta.Render(e.text)
	}
}

func (m *ChatModel) refreshViewport(toBottom bool) {
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		parts = append(parts, m.renderEntry(e))
	}
	m.viewport.SetContent(strings.Join(parts, "\n"))
	if toBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

func (m *ChatModel) resize(width, height int) {
	m.width = width
	m.height = height
	// Header line, input box with border, and a spare line.
	vpHeight := height - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 8
	m.markdown.SetWidth(width - 6)
	m.ready = true
	m.refreshViewport(true)
}

func (m *ChatModel) View() string {
	t := m.ctx.Theme

	header := t.Title.Render("Chat")
	if m.conversation != nil {
		title := util.TruncateWidth(m.conversation.Title, 40)
		header += t.ListMeta.Render(fmt.Sprintf("  #%d %s", m.conversation.ID, title))
	}

	inputLine := m.input.View()
	if m.busy {
		inputLine = m.spinner.View() + t.Thinking.Render(" thinking...")
	}
	inputBox := t.InputContainer.Width(maxInt(m.width-2, 20)).Render(inputLine)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), inputBox)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
