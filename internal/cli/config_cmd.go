// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - config command handlers (show, get, set, list, path).
package cli

import (
	"fmt"
	"sort"

	"github.com/shopchat/shopchat-tui/internal/config"
)

// HandleConfig handles the "config" command and its subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "list", "keys":
		return configList(args)
	case "path":
		return configPath(args)
	default:
		return fmt.Errorf("unknown config subcommand %q (try: show, get, set, list, path)", args.Subcommand)
	}
}

func configShow(args Args) error {
	cfg := config.Global()

	if args.JSON {
		return NewJSONResponse("config show", cfg).Print()
	}

	keys := config.GetAllKeys()
	sort.Strings(keys)
	fmt.Printf("%s\n", TitleStyle.Render("Configuration"))
	for _, key := range keys {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %s = %s\n", ValueStyle.Render(key), DimStyle.Render(fmt.Sprintf("%v", value)))
	}
	return nil
}

func configGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "shopchat config get server.base_url")
	}

	value, err := config.Global().Get(args.ConfigKey)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config get", map[string]interface{}{args.ConfigKey: value}).Print()
	}
	fmt.Printf("%v\n", value)
	return nil
}

func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key and value", "shopchat config set chat.render_markdown false")
	}

	cfg := config.Global()
	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{args.ConfigKey: args.ConfigVal}).Print()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)
	return nil
}

func configList(args Args) error {
	keys := config.GetAllKeys()
	sort.Strings(keys)

	if args.JSON {
		return NewJSONResponse("config list", keys).Print()
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func configPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config path", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}
