// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges credentials for a bearer token via POST /token.
// The endpoint is form-encoded, not JSON. A 400 or 401 means the
// credentials were rejected, not that the session expired, so both map to
// ErrBadCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok TokenResponse
	err := c.DoForm(ctx, http.MethodPost, "/token", form, &tok)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusBadRequest {
			return nil, ErrBadCredentials
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("login response missing access token")
	}
	return &tok, nil
}

// Register creates a new user account via POST /users/.
func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	var u User
	if err := c.Do(ctx, http.MethodPost, "/users/", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CurrentUser fetches the authenticated user's profile via GET /users/me.
// This is the authoritative identity check: guards call it instead of
// trusting the cached role.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.Do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword updates the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, newPassword string) error {
	body := map[string]string{"new_password": newPassword}
	return c.Do(ctx, http.MethodPut, "/users/me/password", body, nil)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations returns the user's conversations.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.Do(ctx, http.MethodGet, "/conversations/", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// CreateConversation creates a conversation with the given title.
func (c *Client) CreateConversation(ctx context.Context, title string) (*Conversation, error) {
	body := map[string]string{"title": title}
	var conv Conversation
	if err := c.Do(ctx, http.MethodPost, "/conversations/", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation deletes a single conversation.
func (c *Client) DeleteConversation(ctx context.Context, id int) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/conversations/%d", id), nil, nil)
}

// ClearConversations deletes all of the user's conversations.
func (c *Client) ClearConversations(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/conversations/", nil, nil)
}

// ListMessages returns the messages of one conversation.
func (c *Client) ListMessages(ctx context.Context, id int) ([]Message, error) {
	var msgs []Message
	path := fmt.Sprintf("/conversations/%d/messages", id)
	if err := c.Do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendChat sends a user message to a conversation and returns the
// assistant's reply.
func (c *Client) SendChat(ctx context.Context, id int, message string) (*ChatReply, error) {
	body := map[string]string{"message": message}
	var reply ChatReply
	path := fmt.Sprintf("/conversations/%d/chat", id)
	if err := c.Do(ctx, http.MethodPost, path, body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// =============================================================================
// SEARCH & PLATFORMS
// =============================================================================

// Search queries the backend product search. The query is NFC-normalized
// before encoding: Vietnamese product names arrive from terminals in mixed
// composed and decomposed forms, and the backend matches composed.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	query = norm.NFC.String(strings.TrimSpace(query))
	if query == "" {
		return nil, errors.New("empty search query")
	}

	var products []Product
	path := "/search?q=" + url.QueryEscape(query)
	if err := c.Do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListPlatforms returns the configured e-commerce platforms.
func (c *Client) ListPlatforms(ctx context.Context) ([]Platform, error) {
	var platforms []Platform
	if err := c.Do(ctx, http.MethodGet, "/platforms/", nil, &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

// CreatePlatform registers a new platform (admin operation).
func (c *Client) CreatePlatform(ctx context.Context, name, siteURL, status string) (*Platform, error) {
	body := map[string]string{
		"name":   name,
		"url":    siteURL,
		"status": status,
	}
	var p Platform
	if err := c.Do(ctx, http.MethodPost, "/platforms/", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// AdminUsers lists all user accounts (admin only).
func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.Do(ctx, http.MethodGet, "/admin/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user account (admin only). The backend refuses to
// delete admin accounts.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/admin/users/%d", id), nil, nil)
}

// Stats returns the admin dashboard counters (admin only).
func (c *Client) Stats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	if err := c.Do(ctx, http.MethodGet, "/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
