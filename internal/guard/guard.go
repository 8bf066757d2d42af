// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard gates protected views behind a fresh identity check.
//
// The cached role in the session is a display hint only. Before any
// protected view renders, the guard re-verifies the user against the
// backend and refreshes the cache; access decisions are always made on the
// backend's answer, never the cache.
package guard

import (
	"context"
	"strconv"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/session"
)

// =============================================================================
// STATES
// =============================================================================

// State is the outcome of one guard check.
type State int

const (
	// StateUnchecked means Check has not run.
	StateUnchecked State = iota
	// StateAnonymousAllowed means no token and the view permits anonymity
	// (the login form).
	StateAnonymousAllowed
	// StateRedirecting means the caller must navigate elsewhere before
	// rendering anything.
	StateRedirecting
	// StateVerified means the backend confirmed the identity and the view
	// may render.
	StateVerified
	// StateDenied means the identity is valid but lacks the required role.
	// The caller renders an access-denied view in place, no redirect.
	StateDenied
	// StateLoggedOut means the token was rejected and the session has been
	// cleared; the caller navigates to login.
	StateLoggedOut
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateAnonymousAllowed:
		return "anonymous"
	case StateRedirecting:
		return "redirecting"
	case StateVerified:
		return "verified"
	case StateDenied:
		return "denied"
	case StateLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Target names where a redirecting or logged-out result should navigate.
type Target int

const (
	// TargetNone means stay on the current view.
	TargetNone Target = iota
	// TargetLogin navigates to the login view.
	TargetLogin
	// TargetHome navigates to the home (chat) view.
	TargetHome
)

// Result is the decision for one view load.
type Result struct {
	State    State
	Redirect Target
	// User is the freshly verified profile, set only for StateVerified
	// and StateDenied.
	User *api.User
	// Err carries the backend failure that forced a logout, for display
	// on the login view. nil unless State is StateLoggedOut.
	Err error
}

// Options describes the view being guarded.
type Options struct {
	// LoginView marks the login form, which anonymous users may see and
	// authenticated users may not.
	LoginView bool
	// AllowAnonymous lets the view render without a token (product
	// search). With a token present the identity is still verified.
	AllowAnonymous bool
	// RequireAdmin additionally demands the admin role.
	RequireAdmin bool
}

// =============================================================================
// GUARD
// =============================================================================

// Guard verifies sessions for view loads.
type Guard struct {
	client *api.Client
	store  session.Store
}

// New creates a guard over the given client and session store.
func New(client *api.Client, store session.Store) *Guard {
	return &Guard{client: client, store: store}
}

// Check runs the gate for one view load.
//
// Decision order:
//  1. No token: anonymous views proceed, everything else redirects to
//     login. No backend call is made.
//  2. Token on the login view: redirect home. A logged-in user never sees
//     the login form.
//  3. Otherwise verify via GET /users/me. Success refreshes the cached
//     identity (the fresh is_admin overrides whatever role was cached)
//     and yields Verified, or Denied when admin is required but absent.
//     Any failure clears the session and yields LoggedOut.
func (g *Guard) Check(ctx context.Context, opts Options) Result {
	data := g.store.Get()

	if !data.HasToken() {
		if opts.LoginView || opts.AllowAnonymous {
			return Result{State: StateAnonymousAllowed}
		}
		return Result{State: StateRedirecting, Redirect: TargetLogin}
	}

	if opts.LoginView {
		return Result{State: StateRedirecting, Redirect: TargetHome}
	}

	user, err := g.client.CurrentUser(ctx)
	if err != nil {
		// CurrentUser already cleared the session on 401; clear again
		// unconditionally so a network failure also logs out rather
		// than rendering on stale identity.
		_ = g.store.Clear()
		return Result{State: StateLoggedOut, Redirect: TargetLogin, Err: err}
	}

	role := session.RoleUser
	if user.IsAdmin {
		role = session.RoleAdmin
	}
	if err := g.store.SetIdentity(data.Token, user.Username, strconv.Itoa(user.ID), role); err != nil {
		_ = g.store.Clear()
		return Result{State: StateLoggedOut, Redirect: TargetLogin, Err: err}
	}

	if opts.RequireAdmin && !role.IsAdmin() {
		return Result{State: StateDenied, User: user}
	}

	return Result{State: StateVerified, User: user}
}
