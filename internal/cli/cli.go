// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for shopchat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdRegister
	CmdPasswd
	CmdAsk
	CmdChat
	CmdSearch
	CmdHistory
	CmdAdmin
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Server  string // Override server base URL

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Username   string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --format, --output)
	Options map[string]string
}

const usageText = `shopchat - conversational shopping assistant for the terminal

Shopchat talks to a shopping backend that can answer product questions,
compare prices across platforms, and keep your conversation history.

Usage:
  shopchat                       Start TUI (default)
  shopchat login [username]      Log in and store the session
  shopchat logout                Log out and clear the session
  shopchat whoami                Show the logged-in user
  shopchat register              Create a new account
  shopchat passwd                Change your password
  shopchat ask "question"        Ask a single question
  shopchat chat                  Interactive chat
  shopchat search <query>        Search products
  shopchat history [subcommand]  Local conversation history
  shopchat admin [subcommand]    Admin operations (admin accounts only)
  shopchat config [show|get|set] Configuration
  shopchat status, s             Show connection and session status
  shopchat version               Show version
  shopchat help                  Show this help

Chat Commands (during interactive chat):
  /help, /h            Show available commands
  /new [title]         Start a new conversation
  /open <id>           Open a conversation
  /list                List conversations
  /delete [id]         Delete a conversation
  /clear               Delete all conversations
  /export [md|json]    Export the current conversation
  /search <query>      Search products
  /logout              Log out
  /quit, /q            Exit chat

History Commands:
  shopchat history list              List cached conversations
  shopchat history show <id>         Show a cached conversation
  shopchat history search <query>    Full-text search across messages
  shopchat history export <id>       Export a conversation
    --format markdown|json           Export format (default: markdown)
    --output DIR                     Output directory (default: current)
  shopchat history clear             Drop the local cache

Admin Commands:
  shopchat admin users               List all users
  shopchat admin delete-user <id>    Delete a user
  shopchat admin stats               Show system statistics
  shopchat admin platforms           List crawled platforms
  shopchat admin add-platform <name> <url>  Register a platform

Config Commands:
  shopchat config show               Show full configuration
  shopchat config get <key>          Get a value (e.g., server.base_url)
  shopchat config set <key> <value>  Set a value
  shopchat config list               List all configuration keys
  shopchat config path               Show the config file path

Global Flags:
  --server URL         Override the backend URL for this invocation
  --json               Output in JSON format
  -q, --quiet          Minimal output
  -v, --verbose        Verbose output

Environment:
  SHOPCHAT_SERVER_URL  Backend URL override
  SHOPCHAT_CONFIG_DIR  Config directory (default: ~/.shopchat)
  NO_COLOR             Disable colored output

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("shopchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given argument list. Split out from Parse for tests.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "login":
		if len(remaining) > 0 {
			parsedArgs.Username = remaining[0]
		}
		return CmdLogin, parsedArgs

	case "logout":
		return CmdLogout, parsedArgs

	case "whoami", "me":
		return CmdWhoami, parsedArgs

	case "register", "signup":
		return CmdRegister, parsedArgs

	case "passwd", "password":
		return CmdPasswd, parsedArgs

	case "ask":
		parsedArgs.Query = joinPositional(remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "search":
		parsedArgs.Query = joinPositional(remaining)
		return CmdSearch, parsedArgs

	case "history", "hist":
		parseHistoryArgs(&parsedArgs, remaining)
		return CmdHistory, parsedArgs

	case "admin":
		parseAdminArgs(&parsedArgs, remaining)
		return CmdAdmin, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown word: treat the whole line as an ask query. This makes
		// `shopchat what phone should I buy` do the obvious thing.
		parsedArgs.Query = joinPositional(append([]string{cmd}, remaining...))
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--server":
			if i+1 < len(args) {
				i++
				parsedArgs.Server = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--server=") {
				parsedArgs.Server = strings.TrimPrefix(arg, "--server=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// joinPositional joins non-flag args into a single query string, capturing
// any trailing named options into Args handling elsewhere.
func joinPositional(args []string) string {
	var words []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			words = append(words, arg)
		}
	}
	return strings.Join(words, " ")
}

// parseHistoryArgs parses history command arguments.
func parseHistoryArgs(args *Args, remaining []string) {
	var positional []string
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch {
		case arg == "--format" && i+1 < len(remaining):
			args.Options["format"] = remaining[i+1]
			i++
		case strings.HasPrefix(arg, "--format="):
			args.Options["format"] = strings.TrimPrefix(arg, "--format=")
		case arg == "--output" && i+1 < len(remaining):
			args.Options["output"] = remaining[i+1]
			i++
		case strings.HasPrefix(arg, "--output="):
			args.Options["output"] = strings.TrimPrefix(arg, "--output=")
		case !strings.HasPrefix(arg, "-"):
			positional = append(positional, arg)
		}
	}
	if len(positional) > 0 {
		args.Subcommand = strings.ToLower(positional[0])
		args.Query = strings.Join(positional[1:], " ")
	}
}

// parseAdminArgs parses admin command arguments.
func parseAdminArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
		args.Raw = remaining[1:]
	}
}

// parseConfigArgs parses config command arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run dispatches a parsed command. It returns the process exit code.
func Run(cmd Command, args Args) int {
	var err error

	switch cmd {
	case CmdLogin:
		err = HandleLogin(args)
	case CmdLogout:
		err = HandleLogout(args)
	case CmdWhoami:
		err = HandleWhoami(args)
	case CmdRegister:
		err = HandleRegister(args)
	case CmdPasswd:
		err = HandlePasswd(args)
	case CmdAsk:
		err = HandleAsk(args)
	case CmdChat:
		err = HandleChat(args)
	case CmdSearch:
		err = HandleSearch(args)
	case CmdHistory:
		err = HandleHistory(args)
	case CmdAdmin:
		err = HandleAdmin(args)
	case CmdConfig:
		err = HandleConfig(args)
	case CmdStatus:
		err = HandleStatus(args)
	case CmdVersion:
		HandleVersion(args)
		return ExitSuccess
	case CmdHelp:
		PrintUsage()
		return ExitSuccess
	default:
		return ExitSuccess
	}

	if err != nil {
		DisplayError(err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		resp := NewJSONResponse("version", map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
		})
		resp.Print()
		return
	}
	PrintVersion()
}
