// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/ui/styles"
)

func testCtx(t *testing.T) *Ctx {
	t.Helper()
	return &Ctx{
		Store:  session.NewMemStore(),
		Config: config.Default(),
		Theme:  styles.NewTheme("dark"),
	}
}

// =============================================================================
// LOGIN
// =============================================================================

func TestLoginErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad credentials", api.ErrBadCredentials, "incorrect username or password"},
		{"conflict", &api.RequestError{Status: 409, Body: "taken"}, "that username is already taken"},
		{"other", errors.New("dial tcp: refused"), "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loginErrorText(tt.err); got != tt.want {
				t.Errorf("loginErrorText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginActiveFields(t *testing.T) {
	m := NewLogin(testCtx(t))

	if got := len(m.activeFields()); got != 2 {
		t.Errorf("login mode fields = %d, want 2", got)
	}
	m.toggleMode()
	if got := len(m.activeFields()); got != 4 {
		t.Errorf("register mode fields = %d, want 4", got)
	}
	if m.focus != fieldUsername {
		t.Errorf("focus after mode toggle = %d, want username", m.focus)
	}
}

func TestLoginCycleFocusSkipsHiddenFields(t *testing.T) {
	m := NewLogin(testCtx(t))

	m.cycleFocus(1)
	if m.focus != fieldPassword {
		t.Errorf("focus = %d, want password (email hidden in login mode)", m.focus)
	}
	m.cycleFocus(1)
	if m.focus != fieldUsername {
		t.Errorf("focus = %d, want wrap to username", m.focus)
	}
}

// =============================================================================
// CHAT
// =============================================================================

func TestChatNewWithoutTitleResetsConversation(t *testing.T) {
	ctx := testCtx(t)
	ctx.Store.SetCurrentChatID(7)
	m := NewChat(ctx)
	m.conversation = &api.Conversation{ID: 7, Title: "old"}

	m.handleNew("")

	if m.conversation != nil {
		t.Error("conversation not reset")
	}
	if got := ctx.Store.Get().CurrentChatID; got != 0 {
		t.Errorf("CurrentChatID = %d, want 0", got)
	}
}

func TestChatReplyRollbackOnFailedFirstSend(t *testing.T) {
	ctx := testCtx(t)
	ctx.Store.SetCurrentChatID(3)
	m := NewChat(ctx)
	m.conversation = &api.Conversation{ID: 41, Title: "doomed"}

	m.handleReply(chatReplyMsg{
		conv:    m.conversation,
		created: true,
		prevID:  3,
		err:     errors.New("server error"),
	})

	if m.conversation != nil {
		t.Error("conversation kept after failed first send")
	}
	if got := ctx.Store.Get().CurrentChatID; got != 3 {
		t.Errorf("CurrentChatID = %d, want rollback to 3", got)
	}
}

func TestChatReplyAdoptsCreatedConversation(t *testing.T) {
	ctx := testCtx(t)
	m := NewChat(ctx)

	conv := &api.Conversation{ID: 12, Title: "iphone 15 prices"}
	m.handleReply(chatReplyMsg{
		conv:    conv,
		created: true,
		reply:   &api.ChatReply{Response: "here you go", ConversationID: 12},
	})

	if m.conversation == nil || m.conversation.ID != 12 {
		t.Fatalf("conversation = %+v, want #12", m.conversation)
	}
	if got := ctx.Store.Get().CurrentChatID; got != 12 {
		t.Errorf("CurrentChatID = %d, want 12", got)
	}
	last := m.entries[len(m.entries)-1]
	if last.kind != entryAssistant || last.text != "here you go" {
		t.Errorf("last entry = %+v, want assistant reply", last)
	}
}

func TestChatClearRequiresYes(t *testing.T) {
	m := NewChat(testCtx(t))
	m.pendingClear = true

	_, cmd := m.handleLine("y")
	if cmd != nil {
		t.Error("short answer must cancel, not clear")
	}
	if m.pendingClear {
		t.Error("pendingClear not consumed")
	}

	m.pendingClear = true
	_, cmd = m.handleLine("yes")
	if cmd == nil {
		t.Error("typed yes must run the clear command")
	}
}

func TestChatSlashCommandRouting(t *testing.T) {
	m := NewChat(testCtx(t))

	_, cmd := m.handleLine("/badcmd")
	if cmd != nil {
		t.Error("unknown command should not produce a command")
	}
	last := m.entries[len(m.entries)-1]
	if last.kind != entryError || !strings.Contains(last.text, "unknown command") {
		t.Errorf("entry = %+v, want unknown-command error", last)
	}
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAdminRecordError(t *testing.T) {
	m := NewAdmin(testCtx(t))

	if m.recordError(nil) {
		t.Error("nil error reported as failure")
	}
	if !m.recordError(&api.RequestError{Status: 403, Body: "forbidden"}) {
		t.Error("403 not reported")
	}
	if !m.denied {
		t.Error("403 must flag denial")
	}

	m = NewAdmin(testCtx(t))
	if !m.recordError(errors.New("boom")) {
		t.Error("error not reported")
	}
	if m.denied {
		t.Error("generic error must not flag denial")
	}
	if m.err == nil {
		t.Error("generic error not recorded")
	}
}

func TestAdminDeniedView(t *testing.T) {
	m := NewAdmin(testCtx(t))
	m.denied = true
	if !strings.Contains(m.View(), "Access denied") {
		t.Error("denied view missing access-denied box")
	}
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearchRows(t *testing.T) {
	ctx := testCtx(t)
	m := NewSearch(ctx)
	m.products = []api.Product{
		{Name: "iPhone 15 128GB", Price: 25990000, BestDeal: true},
		{Name: "iPhone 15 256GB", Price: 29990000},
	}

	rows := m.rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][2] != "25.990.000 ₫" {
		t.Errorf("price = %q, want VND grouping", rows[0][2])
	}
	if rows[0][3] != "BEST" || rows[1][3] != "" {
		t.Errorf("deal column = %q/%q, want BEST on first only", rows[0][3], rows[1][3])
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestNextTheme(t *testing.T) {
	tests := []struct{ in, want string }{
		{"dark", "light"},
		{"light", "auto"},
		{"auto", "dark"},
		{"", "dark"},
	}
	for _, tt := range tests {
		if got := nextTheme(tt.in); got != tt.want {
			t.Errorf("nextTheme(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOnOff(t *testing.T) {
	if onOff(true) != "on" || onOff(false) != "off" {
		t.Error("onOff labels wrong")
	}
}
