// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/shopchat/shopchat-tui/internal/api"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotCached indicates the conversation is not in the local cache.
	ErrNotCached = errors.New("conversation not cached locally")
	// ErrDatabaseError wraps unexpected SQLite failures.
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore is the local mirror of the user's conversations. The backend
// stays authoritative; this cache exists so history, search, and export
// work offline and stay fast.
type HistoryStore struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// SearchHit is one full-text search result.
type SearchHit struct {
	ConversationID int
	Title          string
	Role           string
	Snippet        string
}

// NewHistoryStore opens (or creates) the history database at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// Single writer; WAL keeps readers unblocked during sync.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	hs := &HistoryStore{db: db, path: path}
	if err := hs.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return hs, nil
}

func (h *HistoryStore) initSchema() error {
	if _, err := h.db.Exec(Schema); err != nil {
		return fmt.Errorf("%w: failed to create schema: %v", ErrDatabaseError, err)
	}
	_, err := h.db.Exec(
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(SchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to set schema version: %v", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryStore) Path() string {
	return h.path
}

// =============================================================================
// SYNC
// =============================================================================

// SyncConversations upserts the fetched conversation headers and drops
// local conversations the backend no longer returns.
func (h *HistoryStore) SyncConversations(ctx context.Context, convs []api.Conversation) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	for _, c := range convs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, title, updated_at, synced_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   title = excluded.title,
			   updated_at = excluded.updated_at,
			   synced_at = excluded.synced_at`,
			c.ID, c.Title, c.UpdatedAt, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	// Anything not re-synced this round was deleted server-side.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE synced_at < ?`, now); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return tx.Commit()
}

// SyncMessages replaces the cached messages of one conversation.
func (h *HistoryStore) SyncMessages(ctx context.Context, convID int, msgs []api.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, convID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for i, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			convID, i, m.Role, m.Content)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	return tx.Commit()
}

// AppendMessages appends newly exchanged messages without refetching the
// whole conversation.
func (h *HistoryStore) AppendMessages(ctx context.Context, convID int, msgs []api.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq)+1, 0) FROM messages WHERE conversation_id = ?`, convID).Scan(&next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for i, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			convID, next+i, m.Role, m.Content)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

// List returns cached conversation headers, most recently synced first.
func (h *HistoryStore) List(ctx context.Context) ([]api.Conversation, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, title, COALESCE(updated_at, '') FROM conversations
		 ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var convs []api.Conversation
	for rows.Next() {
		var c api.Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Conversation returns one cached header.
func (h *HistoryStore) Conversation(ctx context.Context, id int) (*api.Conversation, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var c api.Conversation
	err := h.db.QueryRowContext(ctx,
		`SELECT id, title, COALESCE(updated_at, '') FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return &c, nil
}

// Messages returns the cached messages of one conversation in order.
func (h *HistoryStore) Messages(ctx context.Context, convID int) ([]api.Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY seq`, convID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var msgs []api.Message
	for rows.Next() {
		var m api.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SearchMessages runs a full-text query over cached message content.
func (h *HistoryStore) SearchMessages(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT m.conversation_id, c.title, m.role,
		        snippet(messages_fts, 0, '', '', '…', 12)
		 FROM messages_fts
		 JOIN messages m ON m.id = messages_fts.rowid
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE messages_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.ConversationID, &hit.Title, &hit.Role, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Stats returns cached conversation and message counts.
func (h *HistoryStore) Stats(ctx context.Context) (conversations, messages int, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&conversations); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err = h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&messages); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return conversations, messages, nil
}

// =============================================================================
// DELETES
// =============================================================================

// Delete removes one conversation and its messages from the cache.
func (h *HistoryStore) Delete(ctx context.Context, convID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, convID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Clear empties the entire cache.
func (h *HistoryStore) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}
