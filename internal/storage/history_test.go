// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopchat/shopchat-tui/internal/api"
)

func newTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	hs, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	t.Cleanup(func() { hs.Close() })
	return hs
}

func TestSyncAndListConversations(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	convs := []api.Conversation{
		{ID: 1, Title: "first", UpdatedAt: "2025-06-01T10:00:00Z"},
		{ID: 2, Title: "second", UpdatedAt: "2025-06-02T10:00:00Z"},
	}
	if err := hs.SyncConversations(ctx, convs); err != nil {
		t.Fatalf("SyncConversations() error = %v", err)
	}

	got, err := hs.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d conversations, want 2", len(got))
	}
	// Most recently updated first.
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("order = [%d %d], want [2 1]", got[0].ID, got[1].ID)
	}
}

func TestSyncDropsServerDeletedConversations(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{
		{ID: 1, Title: "keep"},
		{ID: 2, Title: "gone"},
	})

	// Second sync no longer includes conversation 2.
	if err := hs.SyncConversations(ctx, []api.Conversation{{ID: 1, Title: "keep"}}); err != nil {
		t.Fatalf("SyncConversations() error = %v", err)
	}

	if _, err := hs.Conversation(ctx, 2); !errors.Is(err, ErrNotCached) {
		t.Errorf("Conversation(2) error = %v, want ErrNotCached", err)
	}
	if _, err := hs.Conversation(ctx, 1); err != nil {
		t.Errorf("Conversation(1) error = %v", err)
	}
}

func TestSyncConversationUpdatesTitle(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 1, Title: "old"}})
	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 1, Title: "new"}})

	c, err := hs.Conversation(ctx, 1)
	if err != nil {
		t.Fatalf("Conversation() error = %v", err)
	}
	if c.Title != "new" {
		t.Errorf("Title = %q, want new", c.Title)
	}
}

func TestSyncAndReadMessages(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 42, Title: "chat"}})

	msgs := []api.Message{
		{Role: "user", Content: "find me a laptop"},
		{Role: "assistant", Content: "here are three options"},
	}
	if err := hs.SyncMessages(ctx, 42, msgs); err != nil {
		t.Fatalf("SyncMessages() error = %v", err)
	}

	got, err := hs.Messages(ctx, 42)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 || got[0].Role != "user" || got[1].Content != "here are three options" {
		t.Errorf("messages = %+v", got)
	}
}

func TestAppendMessagesKeepsOrder(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 1, Title: "chat"}})
	_ = hs.SyncMessages(ctx, 1, []api.Message{{Role: "user", Content: "one"}})

	if err := hs.AppendMessages(ctx, 1, []api.Message{
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}); err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}

	got, _ := hs.Messages(ctx, 1)
	if len(got) != 3 || got[2].Content != "three" {
		t.Errorf("messages = %+v", got)
	}
}

func TestSearchMessages(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{
		{ID: 1, Title: "phones"},
		{ID: 2, Title: "laptops"},
	})
	_ = hs.SyncMessages(ctx, 1, []api.Message{{Role: "user", Content: "cheapest iPhone deal"}})
	_ = hs.SyncMessages(ctx, 2, []api.Message{{Role: "user", Content: "gaming laptop under budget"}})

	hits, err := hs.SearchMessages(ctx, "laptop", 10)
	if err != nil {
		t.Fatalf("SearchMessages() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ConversationID != 2 || hits[0].Title != "laptops" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestDeleteCascadesToMessages(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 1, Title: "chat"}})
	_ = hs.SyncMessages(ctx, 1, []api.Message{{Role: "user", Content: "hi"}})

	if err := hs.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	msgs, err := hs.Messages(ctx, 1)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages survived conversation delete: %+v", msgs)
	}
}

func TestClearAndStats(t *testing.T) {
	hs := newTestHistory(t)
	ctx := context.Background()

	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
	_ = hs.SyncMessages(ctx, 1, []api.Message{{Role: "user", Content: "x"}})

	convCount, msgCount, err := hs.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if convCount != 2 || msgCount != 1 {
		t.Errorf("Stats() = %d, %d, want 2, 1", convCount, msgCount)
	}

	if err := hs.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	convCount, msgCount, _ = hs.Stats(ctx)
	if convCount != 0 || msgCount != 0 {
		t.Errorf("Stats() after Clear = %d, %d", convCount, msgCount)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	hs, err := NewHistoryStore(path)
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	_ = hs.SyncConversations(ctx, []api.Conversation{{ID: 7, Title: "persisted"}})
	hs.Close()

	reopened, err := NewHistoryStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	c, err := reopened.Conversation(ctx, 7)
	if err != nil {
		t.Fatalf("Conversation() error = %v", err)
	}
	if c.Title != "persisted" {
		t.Errorf("Title = %q", c.Title)
	}
}
