// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/shopchat/shopchat-tui/internal/api"
)

func sampleConversation() (*api.Conversation, []api.Message) {
	conv := &api.Conversation{ID: 42, Title: "Tìm điện thoại giá rẻ", UpdatedAt: "2025-06-01T10:00:00Z"}
	msgs := []api.Message{
		{Role: "user", Content: "Tìm iPhone 15 giá tốt nhất"},
		{Role: "assistant", Content: "Đây là các lựa chọn tốt nhất..."},
	}
	return conv, msgs
}

func TestMarkdownExport(t *testing.T) {
	conv, msgs := sampleConversation()
	out, err := NewMarkdownExporter(nil).Export(conv, msgs)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	s := string(out)
	for _, want := range []string{"# Tìm điện thoại giá rẻ", "## You", "## Assistant", "generator: shopchat-tui"} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExportRejectsEmpty(t *testing.T) {
	conv, _ := sampleConversation()
	if _, err := NewMarkdownExporter(nil).Export(conv, nil); err == nil {
		t.Error("Export() with no messages expected error")
	}
	if _, err := NewMarkdownExporter(nil).Export(nil, nil); err == nil {
		t.Error("Export() with nil conversation expected error")
	}
}

func TestYAMLTitleInjectionBlocked(t *testing.T) {
	conv := &api.Conversation{ID: 1, Title: "x\ninjected: true"}
	msgs := []api.Message{{Role: "user", Content: "hi"}}

	out, err := NewMarkdownExporter(nil).Export(conv, msgs)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(string(out), "\ninjected:") {
		t.Error("newline in title leaked into YAML frontmatter")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	conv, msgs := sampleConversation()
	out, err := NewJSONExporter(nil).Export(conv, msgs)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc struct {
		Title    string        `json:"title"`
		Messages []api.Message `json:"messages"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if doc.Title != conv.Title || len(doc.Messages) != 2 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestExportToFile(t *testing.T) {
	conv, msgs := sampleConversation()
	opts := &Options{OutputDir: t.TempDir(), IncludeMetadata: true}

	path, err := ExportToFile(conv, msgs, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile() error = %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("path = %q, want .md suffix", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestForFormat(t *testing.T) {
	if _, err := ForFormat("markdown", nil); err != nil {
		t.Errorf("ForFormat(markdown) error = %v", err)
	}
	if _, err := ForFormat("json", nil); err != nil {
		t.Errorf("ForFormat(json) error = %v", err)
	}
	if _, err := ForFormat("pdf", nil); err == nil {
		t.Error("ForFormat(pdf) expected error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{"", "untitled"},
		{"../../etc/passwd", "etcpasswd"},
		{"Tìm kiếm", "Tm_kim"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
