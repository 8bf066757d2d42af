// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"testing"

	"github.com/shopchat/shopchat-tui/internal/api"
	"github.com/shopchat/shopchat-tui/internal/commands"
	"github.com/shopchat/shopchat-tui/internal/config"
	"github.com/shopchat/shopchat-tui/internal/guard"
	"github.com/shopchat/shopchat-tui/internal/session"
	"github.com/shopchat/shopchat-tui/internal/ui/views"
)

func testApp() (*App, session.Store) {
	store := session.NewMemStore()
	client := api.NewClient("http://localhost:8010", store)
	cfg := config.Default()
	app := NewApp(client, store, nil, cfg)
	return app, store
}

func TestAppStartsOnLogin(t *testing.T) {
	app, _ := testApp()
	if app.active != views.ViewLogin {
		t.Errorf("initial view = %s, want login", app.active)
	}
	if app.Init() == nil {
		t.Error("Init() returned no command")
	}
}

func TestGuardVerifiedActivatesTarget(t *testing.T) {
	app, _ := testApp()

	model, _ := app.Update(guardResultMsg{
		target: views.ViewSettings,
		result: guard.Result{State: guard.StateVerified, User: &api.User{Username: "alice"}},
	})

	a := model.(*App)
	if a.active != views.ViewSettings {
		t.Errorf("active = %s, want settings", a.active)
	}
	if a.denied {
		t.Error("denied flag set on verified result")
	}
}

func TestGuardDeniedRendersInPlace(t *testing.T) {
	app, _ := testApp()
	app.width, app.height = 80, 24

	model, _ := app.Update(guardResultMsg{
		target: views.ViewAdmin,
		result: guard.Result{State: guard.StateDenied, User: &api.User{Username: "bob"}},
	})

	a := model.(*App)
	if a.active != views.ViewAdmin {
		t.Errorf("active = %s, want admin (denied renders in place)", a.active)
	}
	if !a.denied {
		t.Error("denied flag not set")
	}
	if !strings.Contains(a.View(), "Access denied") {
		t.Error("denied view missing access-denied box")
	}
}

func TestGuardLoggedOutReturnsToLogin(t *testing.T) {
	app, _ := testApp()
	app.active = views.ViewChat

	model, _ := app.Update(guardResultMsg{
		target: views.ViewChat,
		result: guard.Result{State: guard.StateLoggedOut, Redirect: guard.TargetLogin},
	})

	a := model.(*App)
	if a.active != views.ViewLogin {
		t.Errorf("active = %s, want login after forced logout", a.active)
	}
	if !strings.Contains(a.status, "session expired") {
		t.Errorf("status = %q, want session-expired notice", a.status)
	}
}

func TestLogoutCommandClearsSession(t *testing.T) {
	app, store := testApp()
	store.SetIdentity("tok", "carol", "9", session.RoleUser)
	app.active = views.ViewChat

	model, _ := app.Update(commands.LogoutMsg{})

	a := model.(*App)
	if a.active != views.ViewLogin {
		t.Errorf("active = %s, want login", a.active)
	}
	if store.Get().HasToken() {
		t.Error("session not cleared on logout")
	}
}

func TestProductSearchCarriesQuery(t *testing.T) {
	app, _ := testApp()

	model, cmd := app.Update(commands.ProductSearchMsg{Query: "điện thoại"})
	a := model.(*App)
	if a.pendingSearch != "điện thoại" {
		t.Errorf("pendingSearch = %q", a.pendingSearch)
	}
	if cmd == nil {
		t.Error("no guard check issued for search navigation")
	}
}

func TestShortcutsHideAdminForRegularUsers(t *testing.T) {
	app, store := testApp()
	app.active = views.ViewChat

	store.SetIdentity("tok", "dave", "3", session.RoleUser)
	for _, sc := range app.shortcuts() {
		if sc.Desc == "admin" {
			t.Error("admin shortcut shown to a regular user")
		}
	}

	store.SetIdentity("tok", "eve", "4", session.RoleAdmin)
	found := false
	for _, sc := range app.shortcuts() {
		if sc.Desc == "admin" {
			found = true
		}
	}
	if !found {
		t.Error("admin shortcut missing for an admin")
	}
}

func TestConfigReloadAdoptsNewValues(t *testing.T) {
	app, _ := testApp()

	next := config.Default()
	next.Chat.RenderMarkdown = false

	model, _ := app.Update(ConfigReloadedMsg{Config: next})
	a := model.(*App)
	if a.ctx.Config.Chat.RenderMarkdown {
		t.Error("reloaded config value not adopted")
	}
}
