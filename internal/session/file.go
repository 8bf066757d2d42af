// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopchat/shopchat-tui/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists the session as JSON at a fixed path. Every mutation
// rewrites the whole file atomically, so readers never observe a session
// with, say, a cleared token but a surviving chat ID.
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer *sealer // nil when sealing is disabled
	data   Data
}

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	// SealToken encrypts the token at rest using a key file stored
	// alongside the session file.
	SealToken bool
}

// NewFileStore opens (or initializes) the session file at path.
func NewFileStore(path string, opts FileStoreOptions) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	fs := &FileStore{path: path}

	if opts.SealToken {
		s, err := newSealer(keyPathFor(path))
		if err != nil {
			return nil, err
		}
		fs.sealer = s
	}

	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// keyPathFor returns the key file path for a given session file.
func keyPathFor(sessionPath string) string {
	return sessionPath + ".key"
}

// load reads the session file into memory. A missing file is an empty
// session; a corrupt file is treated the same so a damaged session never
// wedges the client.
func (f *FileStore) load() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.data = Data{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		f.data = Data{}
		return nil
	}

	if f.sealer != nil && d.Token != "" {
		token, err := f.sealer.unseal(d.Token)
		if err != nil {
			// Unreadable token, drop it. The user logs in again.
			d = Data{}
		} else {
			d.Token = token
		}
	} else if isSealed(d.Token) {
		// Sealed token but sealing disabled: unusable.
		d = Data{}
	}

	d.Role = ParseRole(string(d.Role))
	f.data = d
	return nil
}

// persist writes the in-memory session to disk atomically with 0600
// permissions.
func (f *FileStore) persist() error {
	out := f.data
	if f.sealer != nil && out.Token != "" {
		sealed, err := f.sealer.seal(out.Token)
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		out.Token = sealed
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Get returns a snapshot of the current session.
func (f *FileStore) Get() Data {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// SetToken stores the access token, leaving identity fields untouched.
func (f *FileStore) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Token = token
	return f.persist()
}

// SetIdentity stores the token together with the cached identity.
func (f *FileStore) SetIdentity(token, username, userID string, role Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Token = token
	f.data.Username = username
	f.data.UserID = userID
	f.data.Role = role
	return f.persist()
}

// SetCurrentChatID records the open conversation (0 clears it).
func (f *FileStore) SetCurrentChatID(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.CurrentChatID = id
	return f.persist()
}

// Clear removes the entire session as a unit.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = Data{}
	return f.persist()
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemStore is an in-memory Store for tests and one-shot commands that must
// not touch the on-disk session.
type MemStore struct {
	mu   sync.Mutex
	data Data
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Get returns a snapshot of the current session.
func (m *MemStore) Get() Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// SetToken stores the access token.
func (m *MemStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Token = token
	return nil
}

// SetIdentity stores the token together with the cached identity.
func (m *MemStore) SetIdentity(token, username, userID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Token = token
	m.data.Username = username
	m.data.UserID = userID
	m.data.Role = role
	return nil
}

// SetCurrentChatID records the open conversation.
func (m *MemStore) SetCurrentChatID(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.CurrentChatID = id
	return nil
}

// Clear removes the entire session.
func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = Data{}
	return nil
}
