// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopchat/shopchat-tui/internal/api"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON format.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// jsonDocument is the exported JSON shape.
type jsonDocument struct {
	Title      string        `json:"title"`
	UpdatedAt  string        `json:"updated_at,omitempty"`
	ExportedAt string        `json:"exported_at"`
	Generator  string        `json:"generator"`
	Messages   []api.Message `json:"messages"`
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv *api.Conversation, msgs []api.Message) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	doc := jsonDocument{
		Title:      conv.Title,
		UpdatedAt:  conv.UpdatedAt,
		ExportedAt: time.Now().Format(time.RFC3339),
		Generator:  "shopchat-tui",
		Messages:   msgs,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string { return ".json" }

// MimeType returns the JSON MIME type.
func (e *JSONExporter) MimeType() string { return "application/json" }
