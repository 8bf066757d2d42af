// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, seal bool) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := NewFileStore(path, FileStoreOptions{SealToken: seal})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return fs
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"ADMIN", RoleAdmin},
		{" admin ", RoleAdmin},
		{"user", RoleUser},
		{"", RoleNone},
		{"superuser", RoleUser},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileStoreEmptyOnFirstOpen(t *testing.T) {
	fs := newTestStore(t, false)
	d := fs.Get()
	if d.HasToken() || d.HasIdentity() || d.CurrentChatID != 0 {
		t.Errorf("fresh store not empty: %+v", d)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	fs, err := NewFileStore(path, FileStoreOptions{})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := fs.SetIdentity("tok123", "alice", "u-1", RoleAdmin); err != nil {
		t.Fatalf("SetIdentity() error = %v", err)
	}
	if err := fs.SetCurrentChatID(42); err != nil {
		t.Fatalf("SetCurrentChatID() error = %v", err)
	}

	reopened, err := NewFileStore(path, FileStoreOptions{})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	d := reopened.Get()
	if d.Token != "tok123" || d.Username != "alice" || d.UserID != "u-1" {
		t.Errorf("reopened session = %+v", d)
	}
	if d.Role != RoleAdmin {
		t.Errorf("Role = %v, want admin", d.Role)
	}
	if d.CurrentChatID != 42 {
		t.Errorf("CurrentChatID = %d, want 42", d.CurrentChatID)
	}
}

func TestFileStoreClearRemovesEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := NewFileStore(path, FileStoreOptions{})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_ = fs.SetIdentity("tok", "bob", "u-2", RoleUser)
	_ = fs.SetCurrentChatID(1)

	if err := fs.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	d := fs.Get()
	if d != (Data{}) {
		t.Errorf("session after Clear() = %+v, want empty", d)
	}

	// The cleared state survives a reopen too.
	reopened, err := NewFileStore(path, FileStoreOptions{})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if d := reopened.Get(); d != (Data{}) {
		t.Errorf("reopened session after Clear() = %+v, want empty", d)
	}
}

func TestFileStoreSetTokenKeepsIdentity(t *testing.T) {
	fs := newTestStore(t, false)
	_ = fs.SetIdentity("old", "carol", "u-3", RoleUser)

	if err := fs.SetToken("new"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	d := fs.Get()
	if d.Token != "new" {
		t.Errorf("Token = %q, want new", d.Token)
	}
	if d.Username != "carol" || d.Role != RoleUser {
		t.Errorf("identity lost after SetToken: %+v", d)
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := NewFileStore(path, FileStoreOptions{})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	_ = fs.SetToken("tok")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session perm = %o, want 0600", perm)
	}
}

func TestFileStoreCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	fs, err := NewFileStore(path, FileStoreOptions{})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if d := fs.Get(); d != (Data{}) {
		t.Errorf("corrupt session loaded as %+v, want empty", d)
	}
}

func TestSealedTokenNotPlaintextOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := NewFileStore(path, FileStoreOptions{SealToken: true})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := fs.SetIdentity("secret-token-xyz", "dave", "u-4", RoleUser); err != nil {
		t.Fatalf("SetIdentity() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(raw), "secret-token-xyz") {
		t.Error("plaintext token found on disk")
	}

	var onDisk Data
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !isSealed(onDisk.Token) {
		t.Errorf("stored token %q lacks sealed prefix", onDisk.Token)
	}

	// Reopening with the key file recovers the token.
	reopened, err := NewFileStore(path, FileStoreOptions{SealToken: true})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if got := reopened.Get().Token; got != "secret-token-xyz" {
		t.Errorf("unsealed token = %q", got)
	}
}

func TestSealerRoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "session.json.key")
	s, err := newSealer(keyPath)
	if err != nil {
		t.Fatalf("newSealer() error = %v", err)
	}

	sealed, err := s.seal("bearer-abc")
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	if !isSealed(sealed) {
		t.Errorf("sealed value %q lacks prefix", sealed)
	}

	got, err := s.unseal(sealed)
	if err != nil {
		t.Fatalf("unseal() error = %v", err)
	}
	if got != "bearer-abc" {
		t.Errorf("unseal() = %q, want bearer-abc", got)
	}

	// Tampered ciphertext fails authentication.
	tampered := sealed[:len(sealed)-2] + "AA"
	if _, err := s.unseal(tampered); err == nil {
		t.Error("unseal() of tampered value succeeded")
	}

	// Plaintext values pass through for pre-sealing sessions.
	if got, err := s.unseal("plain"); err != nil || got != "plain" {
		t.Errorf("unseal(plain) = %q, %v", got, err)
	}
}

func TestMemStore(t *testing.T) {
	m := NewMemStore()
	_ = m.SetIdentity("t", "eve", "u-5", RoleAdmin)
	_ = m.SetCurrentChatID(2)

	d := m.Get()
	if d.Username != "eve" || !d.Role.IsAdmin() || d.CurrentChatID != 2 {
		t.Errorf("MemStore data = %+v", d)
	}

	_ = m.Clear()
	if d := m.Get(); d != (Data{}) {
		t.Errorf("MemStore after Clear() = %+v", d)
	}
}

// Run with: go test -race ./internal/session/
func TestFileStoreConcurrentAccess(t *testing.T) {
	fs := newTestStore(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = fs.SetToken("tok")
		}()
		go func() {
			defer wg.Done()
			_ = fs.Get()
		}()
	}
	wg.Wait()
}
