// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth.go - login, logout, whoami, register and passwd commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/session"
)

// promptLine reads a single line from stdin with a visible prompt.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// HandleLogin handles the "login" command.
func HandleLogin(args Args) error {
	if err := RequiresTTY("log in"); err != nil {
		return err
	}

	client, store, err := newClient(args)
	if err != nil {
		return err
	}

	username := args.Username
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}
	if username == "" {
		return ErrMissingArgument("username", "shopchat login <username>")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	ctx := context.Background()
	tok, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	store.SetToken(tok.AccessToken)

	// Fetch the profile so the stored identity carries the right role.
	// A failed profile fetch still leaves the user logged in, as a
	// regular user.
	user, err := client.CurrentUser(ctx)
	if err != nil {
		user = &api.User{Username: username}
		store.SetIdentity(tok.AccessToken, username, "", session.RoleUser)
		if args.JSON {
			return NewJSONResponse("login", user).Print()
		}
		if !args.Quiet {
			fmt.Printf("%s Logged in as %s\n", SuccessStyle.Render("[OK]"), ValueStyle.Render(username))
		}
		return nil
	}
	role := session.RoleUser
	if user.IsAdmin {
		role = session.RoleAdmin
	}
	store.SetIdentity(tok.AccessToken, user.Username, strconv.Itoa(user.ID), role)

	if args.JSON {
		return NewJSONResponse("login", user).Print()
	}
	if !args.Quiet {
		fmt.Printf("%s Logged in as %s\n", SuccessStyle.Render("[OK]"), ValueStyle.Render(user.Username))
	}
	return nil
}

// HandleLogout handles the "logout" command.
func HandleLogout(args Args) error {
	_, store, err := newClient(args)
	if err != nil {
		return err
	}

	wasLoggedIn := store.Get().HasToken()
	store.Clear()

	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"was_logged_in": wasLoggedIn}).Print()
	}
	if !args.Quiet {
		if wasLoggedIn {
			fmt.Printf("%s Logged out\n", SuccessStyle.Render("[OK]"))
		} else {
			fmt.Println(DimStyle.Render("Not logged in."))
		}
	}
	return nil
}

// HandleWhoami handles the "whoami" command.
func HandleWhoami(args Args) error {
	client, store, err := newClient(args)
	if err != nil {
		return err
	}
	if err := requireLogin(store); err != nil {
		return err
	}

	user, err := client.CurrentUser(context.Background())
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("whoami", user).Print()
	}

	fmt.Printf("%s%s\n", LabelStyle.Render("Username"), ValueStyle.Render(user.Username))
	if user.Email != "" {
		fmt.Printf("%s%s\n", LabelStyle.Render("Email"), ValueStyle.Render(user.Email))
	}
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Printf("%s%s\n", LabelStyle.Render("Role"), ValueStyle.Render(role))
	return nil
}

// HandleRegister handles the "register" command.
func HandleRegister(args Args) error {
	if err := RequiresTTY("register"); err != nil {
		return err
	}

	client, _, err := newClient(args)
	if err != nil {
		return err
	}

	username, err := promptLine("Username: ")
	if err != nil {
		return err
	}
	if username == "" {
		return ErrMissingArgument("username", "a non-empty username")
	}
	email, err := promptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	user, err := client.Register(context.Background(), username, email, password)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("register", user).Print()
	}
	fmt.Printf("%s Account created for %s. Run: shopchat login\n",
		SuccessStyle.Render("[OK]"), ValueStyle.Render(user.Username))
	return nil
}

// HandlePasswd handles the "passwd" command.
func HandlePasswd(args Args) error {
	if err := RequiresTTY("change password"); err != nil {
		return err
	}

	client, store, err := newClient(args)
	if err != nil {
		return err
	}
	if err := requireLogin(store); err != nil {
		return err
	}

	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	confirm, err := promptPassword("Confirm new password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if err := client.ChangePassword(context.Background(), password); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("passwd", map[string]bool{"changed": true}).Print()
	}
	fmt.Printf("%s Password changed\n", SuccessStyle.Render("[OK]"))
	return nil
}
