package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitLines clamps every line of s to width columns (ANSI-aware) and, when
// height > 0, to at most height lines. Overlong lines end in an ellipsis.
func fitLines(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, ln := range lines {
		// Bound StringWidth on pathological lines.
		if len(ln) > 8192 {
			ln = xansi.Cut(ln, 0, width)
		}
		if xansi.StringWidth(ln) > width {
			if width == 1 {
				ln = xansi.Cut(ln, 0, 1)
			} else {
				ln = xansi.Cut(ln, 0, width-1) + "…"
			}
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}
