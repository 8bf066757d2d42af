// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies as terminal markdown.
// Renderer construction is expensive, so instances are cached per width.
type MarkdownRenderer struct {
	mu       sync.Mutex
	dark     bool
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for the given theme and width.
func NewMarkdownRenderer(dark bool, width int) *MarkdownRenderer {
	return &MarkdownRenderer{dark: dark, width: width}
}

// SetWidth updates the wrap width, invalidating the cached renderer.
func (m *MarkdownRenderer) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width != m.width {
		m.width = width
		m.renderer = nil
	}
}

// Render converts markdown to styled terminal output. On any failure the
// raw text comes back unchanged so a bad reply still displays.
func (m *MarkdownRenderer) Render(content string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer == nil {
		style := "light"
		if m.dark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(m.width),
		)
		if err != nil {
			return content
		}
		m.renderer = r
	}

	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
