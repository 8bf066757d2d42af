// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeHonorsPreference(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("theme 'dark' should be dark")
	}

	light := NewTheme("light")
	if light.IsDark {
		t.Error("theme 'light' should be light")
	}
}

func TestNewThemeDefaults(t *testing.T) {
	th := NewTheme("auto")
	if th.Width != 80 || th.Height != 24 {
		t.Errorf("default size = %dx%d", th.Width, th.Height)
	}

	th.SetSize(120, 40)
	if th.Width != 120 || th.Height != 40 {
		t.Errorf("SetSize not applied: %dx%d", th.Width, th.Height)
	}
}

func TestStatusIndicatorsAreASCII(t *testing.T) {
	for _, s := range []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
		StatusIndicators.Active,
	} {
		for _, r := range s {
			if r > 127 {
				t.Errorf("indicator %q contains non-ASCII rune %q", s, r)
			}
		}
	}
}
