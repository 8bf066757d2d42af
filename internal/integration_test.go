// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal provides integration tests for the complete shopchat
// client: login, guarded view loads, chat round trips, product search,
// and the local history cache, against a fake backend.
package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/guard"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/storage"
)

// fakeBackend is a minimal stand-in for the shopchat HTTP API.
type fakeBackend struct {
	token   string
	isAdmin bool
	convs   []api.Conversation
	msgs    map[int][]api.Message
	nextID  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token:  "test-token-123",
		msgs:   map[int][]api.Message{},
		nextID: 1,
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") != "alice" || r.PostFormValue("password") != "s3cret" {
			http.Error(w, `{"detail":"Incorrect username or password"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": b.token, "token_type": "bearer",
		})
	})

	auth := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+b.token
	}

	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, `{"detail":"Not authenticated"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(api.User{ID: 1, Username: "alice", Email: "alice@example.com", IsAdmin: b.isAdmin})
	})

	mux.HandleFunc("GET /conversations/", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "{}", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(b.convs)
	})

	mux.HandleFunc("POST /conversations/", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "{}", http.StatusUnauthorized)
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		conv := api.Conversation{ID: b.nextID, Title: body.Title}
		b.nextID++
		b.convs = append(b.convs, conv)
		json.NewEncoder(w).Encode(conv)
	})

	mux.HandleFunc("POST /conversations/{id}/chat", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "{}", http.StatusUnauthorized)
			return
		}
		var body struct {
			Message string `json:"message"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		id := b.convs[len(b.convs)-1].ID
		b.msgs[id] = append(b.msgs[id],
			api.Message{Role: "user", Content: body.Message},
			api.Message{Role: "assistant", Content: "echo: " + body.Message},
		)
		json.NewEncoder(w).Encode(api.ChatReply{Response: "echo: " + body.Message, ConversationID: id})
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "{}", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("q") == "" {
			http.Error(w, `{"detail":"missing query"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode([]api.Product{
			{Name: "iPhone 15", Price: 25990000, URL: "https://shop.example/p/1", BestDeal: true},
			{Name: "iPhone 15 Pro", Price: 33990000, URL: "https://shop.example/p/2"},
		})
	})

	mux.HandleFunc("GET /admin/stats", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "{}", http.StatusUnauthorized)
			return
		}
		if !b.isAdmin {
			http.Error(w, `{"detail":"Admin access required"}`, http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(api.AdminStats{TotalUsers: 2, TotalConversations: len(b.convs)})
	})

	return mux
}

func newTestClient(t *testing.T, backend *fakeBackend) (*api.Client, session.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "session.json")
	store, err := session.NewFileStore(path, session.FileStoreOptions{SealToken: true})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return api.NewClient(srv.URL, store), store, srv
}

// =============================================================================
// END TO END
// =============================================================================

func TestLoginChatSearchFlow(t *testing.T) {
	backend := newFakeBackend()
	client, store, _ := newTestClient(t, backend)
	ctx := context.Background()

	// Login and persist identity, the way the login view does.
	tok, err := client.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.NoError(t, store.SetToken(tok.AccessToken))

	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SetIdentity(tok.AccessToken, user.Username, "1", session.RoleUser))

	// First chat message creates the conversation lazily.
	conv, err := client.CreateConversation(ctx, "xin chào")
	require.NoError(t, err)
	store.SetCurrentChatID(conv.ID)

	reply, err := client.SendChat(ctx, conv.ID, "xin chào, tìm điện thoại")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(reply.Response, "echo:"), "reply = %q", reply.Response)

	products, err := client.Search(ctx, "iphone 15")
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.True(t, products[0].BestDeal, "best deal not flagged")

	data := store.Get()
	require.True(t, data.HasToken())
	require.Equal(t, conv.ID, data.CurrentChatID)
}

func TestWrongPasswordRejected(t *testing.T) {
	backend := newFakeBackend()
	client, _, _ := newTestClient(t, backend)

	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err, "login must fail with a wrong password")
}

func TestGuardDeniesNonAdmin(t *testing.T) {
	backend := newFakeBackend()
	client, store, _ := newTestClient(t, backend)
	ctx := context.Background()

	tok, err := client.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	// Stale cache claims admin; the guard must trust the backend instead.
	store.SetIdentity(tok.AccessToken, "alice", "1", session.RoleAdmin)

	g := guard.New(client, store)
	res := g.Check(ctx, guard.Options{RequireAdmin: true})
	require.Equal(t, guard.StateDenied, res.State)
	require.Equal(t, session.RoleUser, store.Get().Role, "cached role not refreshed")
}

func TestExpiredTokenClearsSession(t *testing.T) {
	backend := newFakeBackend()
	client, store, _ := newTestClient(t, backend)
	ctx := context.Background()

	store.SetIdentity("stale-token", "alice", "1", session.RoleUser)

	g := guard.New(client, store)
	res := g.Check(ctx, guard.Options{})
	require.Equal(t, guard.StateLoggedOut, res.State)
	require.False(t, store.Get().HasToken(), "session not cleared after rejected token")
}

// =============================================================================
// HISTORY CACHE
// =============================================================================

func TestHistoryCacheMirrorsChat(t *testing.T) {
	backend := newFakeBackend()
	client, store, _ := newTestClient(t, backend)
	ctx := context.Background()

	tok, err := client.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	store.SetToken(tok.AccessToken)

	hs, err := storage.NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer hs.Close()

	conv, err := client.CreateConversation(ctx, "giá iphone")
	require.NoError(t, err)
	reply, err := client.SendChat(ctx, conv.ID, "giá iphone 15?")
	require.NoError(t, err)

	require.NoError(t, hs.SyncConversations(ctx, []api.Conversation{*conv}))
	require.NoError(t, hs.AppendMessages(ctx, conv.ID, []api.Message{
		{Role: "user", Content: "giá iphone 15?"},
		{Role: "assistant", Content: reply.Response},
	}))

	hits, err := hs.SearchMessages(ctx, "iphone", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits, "cached messages not searchable")
	require.Equal(t, conv.ID, hits[0].ConversationID)
}
