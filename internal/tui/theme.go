package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The form must stay readable on light and dark backgrounds, so colors are
// adaptive and faint styling is only used on dark terminals.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted     = ac("240", "243")
	colorSurfaceFg = ac("235", "252")
	colorControlBg = ac("252", "235")
	colorInputBg   = ac("254", "234")
	colorAccent    = ac("27", "62")
	colorAccentFg  = ac("255", "235")
	colorError     = ac("160", "203")
	colorSuccess   = ac("28", "114")
	colorBorder    = ac("250", "243")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleHeading() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleLabel(focused bool) lipgloss.Style {
	st := lipgloss.NewStyle().Width(12).Foreground(colorMuted)
	if focused {
		st = st.Foreground(colorAccent).Bold(true)
	}
	return st
}

func styleButton(focused bool) lipgloss.Style {
	st := lipgloss.NewStyle().Padding(0, 1).MarginRight(1).Background(colorControlBg).Foreground(colorSurfaceFg)
	if focused {
		st = st.Background(colorAccent).Foreground(colorAccentFg).Bold(true)
	}
	return st
}

func styleBox(focused bool) lipgloss.Style {
	st := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	if focused {
		st = st.BorderForeground(colorAccent)
	}
	return st
}

func styleStatus(status string) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(colorSurfaceFg)
	switch {
	case strings.HasPrefix(status, "Error"):
		return st.Foreground(colorError)
	case strings.Contains(status, "successfully"):
		return st.Foreground(colorSuccess)
	}
	return st
}

// applyColorProfilePreference sets the Lip Gloss color profile. termenv's env
// profile honors CLICOLOR, which can switch colors off inside a TUI, so only
// NO_COLOR is honored here.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(os.Getenv("TERM"))
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// darkBackgroundPreference resolves SPCRUD_TUI_THEME=light|dark|auto, then the
// COLORFGBG "fg;bg" hint. ok is false when neither decides.
func darkBackgroundPreference() (dark bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SPCRUD_TUI_THEME"))) {
	case "light":
		return false, true
	case "dark":
		return true, true
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			// xterm palette: 0-6 dark, 7-15 light.
			return bg < 7, true
		}
	}
	return false, false
}

func applyThemePreference() {
	if dark, ok := darkBackgroundPreference(); ok {
		lipgloss.SetHasDarkBackground(dark)
	}
}
