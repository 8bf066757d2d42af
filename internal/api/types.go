// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// =============================================================================
// WIRE TYPES
// =============================================================================

// TokenResponse is the body of a successful POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is a backend user record.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Conversation is a chat conversation header.
type Conversation struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatReply is the assistant's answer to a chat message.
type ChatReply struct {
	Response       string `json:"response"`
	ConversationID int    `json:"conversation_id"`
	MessageID      int    `json:"message_id"`
}

// Product is a single product search result.
type Product struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	URL      string  `json:"url"`
	BestDeal bool    `json:"bestDeal"`
}

// Platform is an e-commerce platform the backend searches.
type Platform struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	LogoURL string `json:"logo_url"`
}

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalUsers         int `json:"total_users"`
	TotalConversations int `json:"total_conversations"`
	TotalMessages      int `json:"total_messages"`
	TotalPlatforms     int `json:"total_platforms"`
}
