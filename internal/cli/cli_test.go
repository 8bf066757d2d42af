// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopchat/shopchat-tui/internal/api"
)

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{nil, CmdTUI},
		{[]string{"tui"}, CmdTUI},
		{[]string{"login"}, CmdLogin},
		{[]string{"logout"}, CmdLogout},
		{[]string{"whoami"}, CmdWhoami},
		{[]string{"me"}, CmdWhoami},
		{[]string{"register"}, CmdRegister},
		{[]string{"passwd"}, CmdPasswd},
		{[]string{"chat"}, CmdChat},
		{[]string{"status"}, CmdStatus},
		{[]string{"s"}, CmdStatus},
		{[]string{"history", "list"}, CmdHistory},
		{[]string{"admin", "users"}, CmdAdmin},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"-h"}, CmdHelp},
	}
	for _, tt := range tests {
		got, _ := ParseArgs(tt.args)
		if got != tt.want {
			t.Errorf("ParseArgs(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestParseArgsGlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"--json", "--server", "http://example.com:9000", "status"})
	if cmd != CmdStatus {
		t.Fatalf("cmd = %v", cmd)
	}
	if !args.JSON {
		t.Error("JSON flag not parsed")
	}
	if args.Server != "http://example.com:9000" {
		t.Errorf("Server = %q", args.Server)
	}

	_, args = ParseArgs([]string{"--server=http://x:1", "-q", "logout"})
	if args.Server != "http://x:1" || !args.Quiet {
		t.Errorf("args = %+v", args)
	}
}

func TestParseArgsAskQuery(t *testing.T) {
	cmd, args := ParseArgs([]string{"ask", "laptop", "nào", "tốt?"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Query != "laptop nào tốt?" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgsBareQuestionBecomesAsk(t *testing.T) {
	cmd, args := ParseArgs([]string{"what", "phone", "should", "I", "buy"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what phone should I buy" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgsLoginUsername(t *testing.T) {
	_, args := ParseArgs([]string{"login", "alice"})
	if args.Username != "alice" {
		t.Errorf("Username = %q", args.Username)
	}
}

func TestParseHistoryArgs(t *testing.T) {
	_, args := ParseArgs([]string{"history", "export", "42", "--format", "json", "--output", "/tmp/out"})
	if args.Subcommand != "export" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
	if args.Query != "42" {
		t.Errorf("Query = %q", args.Query)
	}
	if args.Options["format"] != "json" || args.Options["output"] != "/tmp/out" {
		t.Errorf("Options = %v", args.Options)
	}

	_, args = ParseArgs([]string{"history", "search", "tai", "nghe"})
	if args.Subcommand != "search" || args.Query != "tai nghe" {
		t.Errorf("search args = %+v", args)
	}
}

func TestParseConfigArgs(t *testing.T) {
	_, args := ParseArgs([]string{"config", "set", "server.base_url", "http://localhost:9999"})
	if args.Subcommand != "set" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
	if args.ConfigKey != "server.base_url" {
		t.Errorf("ConfigKey = %q", args.ConfigKey)
	}
	if args.ConfigVal != "http://localhost:9999" {
		t.Errorf("ConfigVal = %q", args.ConfigVal)
	}
}

func TestParseAdminArgs(t *testing.T) {
	_, args := ParseArgs([]string{"admin", "delete-user", "7"})
	if args.Subcommand != "delete-user" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
	if len(args.Raw) != 1 || args.Raw[0] != "7" {
		t.Errorf("Raw = %v", args.Raw)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price    float64
		currency string
		want     string
	}{
		{25990000, "VND", "25.990.000 ₫"},
		{1000, "VND", "1.000 ₫"},
		{0, "VND", "0 ₫"},
		{19.99, "USD", "19,99 USD"},
	}
	for _, tt := range tests {
		got := FormatPrice(tt.price, tt.currency)
		if got != tt.want {
			t.Errorf("FormatPrice(%v, %q) = %q, want %q", tt.price, tt.currency, got, tt.want)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"unauthorized", api.ErrUnauthorized, ExitAuthError},
		{"bad credentials", api.ErrBadCredentials, ExitAuthError},
		{"validation", &ValidationError{Field: "id", Reason: "missing"}, ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "log in"}, ExitUsageError},
		{"not found", &NotFoundError{Resource: "conversation", ID: "9"}, ExitNotFoundError},
		{"forbidden", &api.RequestError{Status: 403, Body: "forbidden"}, ExitAuthError},
		{"server 404", &api.RequestError{Status: 404, Body: "no"}, ExitNotFoundError},
		{"server 500", &api.RequestError{Status: 500, Body: "boom"}, ExitGeneralError},
		{"dial failure", errors.New(`dial tcp 127.0.0.1:8010: connection refused`), ExitNetworkError},
		{"generic", errors.New("something broke"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("%s: GetExitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	wrapped := WrapText("the quick brown fox jumps over the lazy dog", 20)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 20 {
			t.Errorf("line too long: %q", line)
		}
	}

	// Existing newlines survive.
	in := "line one\nline two"
	if got := WrapText(in, 80); got != in {
		t.Errorf("WrapText changed short input: %q", got)
	}
}

func TestParseConversationID(t *testing.T) {
	if id, err := parseConversationID("#42"); err != nil || id != 42 {
		t.Errorf("parseConversationID(#42) = %d, %v", id, err)
	}
	if _, err := parseConversationID("abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := parseConversationID(""); err == nil {
		t.Error("expected error for empty id")
	}
}
