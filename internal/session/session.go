// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session stores the authenticated user's session: access token,
// identity, and the currently open conversation. The session survives
// restarts via a JSON file under ~/.shopchat/ and is cleared as a unit on
// logout or when the backend rejects the token.
package session

import (
	"errors"
	"strings"
)

// =============================================================================
// ROLES
// =============================================================================

// Role is the user's role as reported by the backend.
type Role string

const (
	// RoleNone means no authenticated user.
	RoleNone Role = ""
	// RoleUser is a regular customer account.
	RoleUser Role = "user"
	// RoleAdmin is an administrator account.
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a role string from storage or the wire.
// Unknown values degrade to RoleUser rather than erroring: a stale file
// must never grant admin by accident.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "user":
		return RoleUser
	default:
		if s == "" {
			return RoleNone
		}
		return RoleUser
	}
}

// IsAdmin reports whether the role grants access to the admin view.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// =============================================================================
// SESSION DATA
// =============================================================================

// Data is a point-in-time snapshot of the session. Fields may be
// individually absent: a token can exist without an identity (login
// succeeded but the profile fetch failed) and CurrentChatID is only set
// while a conversation is open.
type Data struct {
	Token         string `json:"token,omitempty"`
	Username      string `json:"username,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Role          Role   `json:"role,omitempty"`
	CurrentChatID int    `json:"current_chat_id,omitempty"`
}

// HasToken reports whether an access token is present.
func (d Data) HasToken() bool { return d.Token != "" }

// HasIdentity reports whether the cached identity fields are populated.
func (d Data) HasIdentity() bool { return d.Username != "" && d.Role != RoleNone }

// =============================================================================
// STORE INTERFACE
// =============================================================================

// ErrNoSession indicates no session data is stored.
var ErrNoSession = errors.New("no session")

// Store is the session persistence interface. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns a snapshot of the current session.
	Get() Data

	// SetToken stores the access token, leaving identity fields untouched.
	SetToken(token string) error

	// SetIdentity stores the cached identity alongside the token.
	SetIdentity(token, username, userID string, role Role) error

	// SetCurrentChatID records the open conversation (0 clears it).
	SetCurrentChatID(id int) error

	// Clear removes the entire session as a unit: token, identity, and
	// current conversation together. A partial clear must be impossible.
	Clear() error
}
