// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/ui/styles"
)

func TestStatusBarIdentity(t *testing.T) {
	theme := styles.NewTheme("dark")
	bar := NewStatusBar(theme)
	bar.SetWidth(100)

	out := bar.Render(session.Data{
		Token:    "tok",
		Username: "alice",
		Role:     session.RoleUser,
	}, "", nil)
	if !strings.Contains(out, "alice") {
		t.Errorf("status bar missing username: %q", out)
	}

	out = bar.Render(session.Data{
		Token:    "tok",
		Username: "root",
		Role:     session.RoleAdmin,
	}, "", nil)
	if !strings.Contains(out, "(admin)") {
		t.Errorf("status bar missing admin marker: %q", out)
	}

	out = bar.Render(session.Data{}, "", nil)
	if !strings.Contains(out, "anonymous") {
		t.Errorf("status bar missing anonymous marker: %q", out)
	}
}

func TestStatusBarShortcuts(t *testing.T) {
	theme := styles.NewTheme("dark")
	bar := NewStatusBar(theme)
	bar.SetWidth(120)

	out := bar.Render(session.Data{}, "", []Shortcut{
		{Key: "ctrl+c", Desc: "quit"},
		{Key: "tab", Desc: "switch view"},
	})
	for _, want := range []string{"ctrl+c", "quit", "tab", "switch view"} {
		if !strings.Contains(out, want) {
			t.Errorf("status bar missing %q", want)
		}
	}
}

func TestRenderFencedCode(t *testing.T) {
	in := "before\n```go\nfmt.Println(\"hi\")\n```\nafter"
	out := RenderFencedCode(in, 80)
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Error("surrounding text lost")
	}
	if strings.Contains(out, "```") {
		t.Error("fence markers should be consumed")
	}
	if !strings.Contains(out, "go") {
		t.Error("language badge missing")
	}
}

func TestRenderFencedCodeUnclosed(t *testing.T) {
	in := "text\n```python\nprint(1)"
	out := RenderFencedCode(in, 80)
	if !strings.Contains(out, "print") {
		t.Error("unclosed block content lost")
	}
}

func TestHighlightFallsBackOnUnknownLanguage(t *testing.T) {
	code := "??? definitely not code ???"
	out := Highlight(code, "nonexistent-language")
	if out == "" {
		t.Error("highlight returned empty output")
	}
}

func TestMarkdownRendererFallback(t *testing.T) {
	r := NewMarkdownRenderer(true, 60)
	out := r.Render("# Title\n\nsome **bold** text")
	if out == "" {
		t.Error("render returned empty output")
	}

	r.SetWidth(40)
	out2 := r.Render("plain")
	if out2 == "" {
		t.Error("render after SetWidth returned empty output")
	}
}

func TestTruncateLine(t *testing.T) {
	if got := TruncateLine("điện thoại thông minh giá rẻ", 10); len(got) == 0 {
		t.Error("truncate returned empty")
	}
	if got := TruncateLine("short", 40); got != "short" {
		t.Errorf("short string changed: %q", got)
	}
}
