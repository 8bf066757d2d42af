// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
)

// =============================================================================
// INPUT PARSING
// =============================================================================

// ParseResult holds the outcome of parsing a line of chat input.
type ParseResult struct {
	// IsCommand is true when the input starts with "/"
	IsCommand bool

	// Command is the matched command, nil when unknown
	Command *Command

	// CommandName is the name as typed (e.g., "/help")
	CommandName string

	// Args are the parsed arguments after the command name
	Args []string

	// RawArgs is everything after the command name, untrimmed of quotes
	RawArgs string

	// RawInput is the original input line
	RawInput string

	// Error is set when the input looked like a command but failed to parse
	Error error
}

// Parser parses chat input lines against a registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser backed by the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse examines an input line. Lines not starting with "/" are plain
// chat messages and come back with IsCommand false.
func (p *Parser) Parse(input string) ParseResult {
	result := ParseResult{RawInput: input}

	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return result
	}
	result.IsCommand = true

	parts := splitCommandLine(trimmed)
	if len(parts) == 0 {
		result.Error = fmt.Errorf("empty command")
		return result
	}

	result.CommandName = strings.ToLower(parts[0])
	result.Args = parts[1:]
	if idx := strings.IndexAny(trimmed, " \t"); idx >= 0 {
		result.RawArgs = strings.TrimSpace(trimmed[idx:])
	}

	cmd := p.registry.Get(result.CommandName)
	if cmd == nil {
		result.Error = fmt.Errorf("unknown command %q (try /help)", result.CommandName)
		return result
	}
	result.Command = cmd
	return result
}

// splitCommandLine splits a line into fields, honoring double and single
// quotes so titles with spaces survive (/new "weekend shopping").
func splitCommandLine(line string) []string {
	var fields []string
	var current strings.Builder
	var quote rune

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ' ' || r == '\t':
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}
