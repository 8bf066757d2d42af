// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL != "http://localhost:8010" {
		t.Errorf("Server.BaseURL = %q, want http://localhost:8010", cfg.Server.BaseURL)
	}
	if cfg.Chat.TitleMaxRunes != 30 {
		t.Errorf("Chat.TitleMaxRunes = %d, want 30", cfg.Chat.TitleMaxRunes)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad base url scheme", func(c *Config) { c.Server.BaseURL = "ftp://example.com" }, true},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitRPS = -1 }, true},
		{"zero title runes", func(c *Config) { c.Chat.TitleMaxRunes = 0 }, true},
		{"page size too large", func(c *Config) { c.Search.PageSize = 500 }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, true},
		{"https ok", func(c *Config) { c.Server.BaseURL = "https://shop.example.com" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaultsNormalizes(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "http://localhost:8010/"
	cfg.UI.Theme = "Dark"
	cfg.Search.Currency = "vnd"
	cfg.SetDefaults()

	if cfg.Server.BaseURL != "http://localhost:8010" {
		t.Errorf("BaseURL = %q, trailing slash not stripped", cfg.Server.BaseURL)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", cfg.UI.Theme)
	}
	if cfg.Search.Currency != "VND" {
		t.Errorf("Currency = %q, want VND", cfg.Search.Currency)
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOPCHAT_CONFIG_DIR", dir)

	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0.0"

[server]
base_url = "http://127.0.0.1:9000"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.UI.Theme)
	}
	// Unset fields pick up defaults.
	if cfg.Search.PageSize != 10 {
		t.Errorf("PageSize = %d, want default 10", cfg.Search.PageSize)
	}
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOPCHAT_CONFIG_DIR", dir)

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`version = "1.0.0"`), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 0600", perm)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SHOPCHAT_SERVER_URL", "http://10.0.0.5:8010")
	t.Setenv("SHOPCHAT_THEME", "light")
	t.Setenv("SHOPCHAT_NO_HISTORY", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://10.0.0.5:8010" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.UI.Theme)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("server.base_url")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "http://localhost:8010" {
		t.Errorf("Get(server.base_url) = %v", val)
	}

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q after Set", cfg.UI.Theme)
	}

	// String values convert to the field type.
	if err := cfg.Set("search.page_size", "25"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Search.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.Search.PageSize)
	}

	if err := cfg.Set("history.enabled", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true after Set false")
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("Get(no.such.key) expected error")
	}
	if err := cfg.Set("server.no_such", "x"); err == nil {
		t.Error("Set(server.no_such) expected error")
	}
}

func TestGetAllKeysResolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOPCHAT_CONFIG_DIR", dir)

	cfg := Default()
	cfg.Server.BaseURL = "http://192.168.1.20:8010"
	cfg.Search.PageSize = 20

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL {
		t.Errorf("BaseURL = %q, want %q", loaded.Server.BaseURL, cfg.Server.BaseURL)
	}
	if loaded.Search.PageSize != 20 {
		t.Errorf("PageSize = %d, want 20", loaded.Search.PageSize)
	}
}

// TestConfig_ConcurrentAccess verifies Global(), SetGlobal(), and
// ReloadGlobal() can be called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOPCHAT_CONFIG_DIR", dir)
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()

		go func() {
			defer wg.Done()
			if cfg := Global(); cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}
