package ui

import (
	"strings"
	"testing"
)

func TestThemeByName(t *testing.T) {
	if ThemeByName("light").IsDark {
		t.Error("light theme should not be dark")
	}
	if !ThemeByName("dark").IsDark {
		t.Error("dark theme should be dark")
	}
	// Unknown names fall back to detection, which must not panic.
	_ = ThemeByName("auto")
	_ = ThemeByName("bogus")
}

func TestDetectThemeDarkModeEnv(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("CLICKLIT_DARK_MODE", "1")
	if !DetectTheme().IsDark {
		t.Error("expected dark theme from CLICKLIT_DARK_MODE")
	}

	t.Setenv("CLICKLIT_DARK_MODE", "")
	if DetectTheme().IsDark {
		t.Error("expected light theme by default")
	}
}

func TestDetectThemeColorFgBg(t *testing.T) {
	t.Setenv("CLICKLIT_DARK_MODE", "")
	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Error("expected dark theme for background index 0")
	}

	t.Setenv("COLORFGBG", "0;15")
	if DetectTheme().IsDark {
		t.Error("expected light theme for background index 15")
	}
}

func TestCTRBar(t *testing.T) {
	s := NewStyles(LightTheme())

	if got := s.CTRBar(nil, false, 24); !strings.Contains(got, "-") {
		t.Errorf("expected placeholder for missing CTR, got %q", got)
	}

	low := 0.005
	bar := s.CTRBar(&low, false, 24)
	if !strings.Contains(bar, "█") {
		t.Errorf("expected at least one filled cell, got %q", bar)
	}

	high := 10.0
	capped := s.CTRBar(&high, true, 24)
	if n := strings.Count(capped, "█"); n > 24 {
		t.Errorf("expected bar capped at width, got %d cells", n)
	}
}

func TestRenderDivider(t *testing.T) {
	s := NewStyles(LightTheme())
	if got := s.RenderDivider(10); strings.Count(got, "─") != 10 {
		t.Errorf("expected 10 divider cells, got %q", got)
	}
	if got := s.RenderDivider(0); strings.Count(got, "─") != 1 {
		t.Errorf("expected minimum width 1, got %q", got)
	}
}
