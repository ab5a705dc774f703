// Package ui provides the visual styling for the ClickLit interactive
// wizard, using the ClickLit brand palette with light/dark mode support.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette based on the ClickLit brand.
var (
	// Light mode colors (default)
	LightBackground = lipgloss.Color("#FFFFFF")
	LightForeground = lipgloss.Color("#191F33") // Ink
	LightPrimary    = lipgloss.Color("#191F33")
	LightAccent     = lipgloss.Color("#99EA48") // Lime
	LightSecondary  = lipgloss.Color("#ECEDF0")
	LightMuted      = lipgloss.Color("#6A6A6A")
	LightBorder     = lipgloss.Color("#ECEDF0")
	LightCard       = lipgloss.Color("#FAFAFA")

	// Dark mode colors
	DarkBackground = lipgloss.Color("#12151f")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#99EA48") // Lime (flipped)
	DarkAccent     = lipgloss.Color("#191F33")
	DarkSecondary  = lipgloss.Color("#1e2435")
	DarkMuted      = lipgloss.Color("#8a8f9e")
	DarkBorder     = lipgloss.Color("#2a3148")
	DarkCard       = lipgloss.Color("#1a2030")

	// Semantic colors (same in both modes)
	Destructive = lipgloss.Color("#EA5F38") // Reset orange
	Success     = lipgloss.Color("#99EA48")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
	AIPink      = lipgloss.Color("#F072F6") // Candidate C chart color
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeByName resolves a configured theme name; "auto" detects.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	}
	return DetectTheme()
}

// DetectTheme auto-detects based on terminal hints or returns light mode.
func DetectTheme() Theme {
	// COLORFGBG is usually "foreground;background"; low background
	// indexes mean a dark terminal.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}

	if os.Getenv("CLICKLIT_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Tab     lipgloss.Style
	TabOn   lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Interactive
	Option         lipgloss.Style
	OptionSelected lipgloss.Style
	Cursor         lipgloss.Style
	Reset          lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Card       lipgloss.Style
	Badge      lipgloss.Style
	BadgeAI    lipgloss.Style
	ChartBar   lipgloss.Style
	ChartBarAI lipgloss.Style
	Spinner    lipgloss.Style
	Divider    lipgloss.Style
	Disabled   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		App: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		Tab: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		TabOn: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Option: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(0, 1),

		OptionSelected: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Background(theme.Accent).
			Padding(0, 1).
			Bold(true),

		Cursor: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Reset: lipgloss.NewStyle().
			Foreground(Destructive),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Card: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#191F33")).
			Padding(0, 1).
			Bold(true),

		BadgeAI: lipgloss.NewStyle().
			Background(AIPink).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true),

		ChartBar: lipgloss.NewStyle().
			Foreground(theme.Accent),

		ChartBarAI: lipgloss.NewStyle().
			Foreground(AIPink),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Disabled: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Strikethrough(false).
			Faint(true),
	}
}

// DefaultStyles returns styles with the auto-detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// Logo returns the ClickLit wordmark.
func Logo(s Styles) string {
	logo := `
  ___ _ _    _   _    _ _
 / __| (_)__| |_| |  (_) |_
| (__| | / _| / / |__| |  _|
 \___|_|_\__|_\_\____|_|\__|
`
	return s.Title.Foreground(s.Theme.Primary).Render(logo)
}

// RenderDivider returns a horizontal divider.
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}

// CTRBar renders a proportional bar for a predicted CTR value.
func (s Styles) CTRBar(ctr *float64, ai bool, width int) string {
	style := s.ChartBar
	if ai {
		style = s.ChartBarAI
	}
	if ctr == nil {
		return s.Muted.Render("-")
	}
	filled := int(*ctr * float64(width) * 5)
	if filled > width {
		filled = width
	}
	if filled < 1 {
		filled = 1
	}
	return style.Render(strings.Repeat("█", filled))
}
