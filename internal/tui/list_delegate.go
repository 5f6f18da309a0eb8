package tui

import (
	"fmt"
	"io"
	"strings"

	"spcrud-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// dropdownItem is one dropdown entry: the item id is the key, the title the text.
type dropdownItem model.ListItem

func (d dropdownItem) FilterValue() string { return d.Title }
func (d dropdownItem) Label() string       { return fmt.Sprintf("%d  %s", d.ID, d.Title) }

// dropdownDelegate renders one line per entry, marking the chosen item with a
// bullet and the cursor row with the selection style.
type dropdownDelegate struct {
	chosenID int
	focused  bool
	normal   lipgloss.Style
	cursor   lipgloss.Style
}

func newDropdownDelegate(chosenID int, focused bool) dropdownDelegate {
	return dropdownDelegate{
		chosenID: chosenID,
		focused:  focused,
		normal:   lipgloss.NewStyle().Foreground(colorSurfaceFg),
		cursor:   lipgloss.NewStyle().Background(colorInputBg).Foreground(colorAccent).Bold(true),
	}
}

func (d dropdownDelegate) Height() int                             { return 1 }
func (d dropdownDelegate) Spacing() int                            { return 0 }
func (d dropdownDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d dropdownDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	width := m.Width()
	if width < 4 {
		return
	}
	it, ok := item.(dropdownItem)
	if !ok {
		return
	}
	mark := "  "
	if d.chosenID != 0 && d.chosenID == it.ID {
		mark = "• "
	}
	line := mark + it.Label()
	if lw := xansi.StringWidth(line); lw > width {
		line = xansi.Cut(line, 0, width-1) + "…"
	} else if lw < width {
		line += strings.Repeat(" ", width-lw)
	}
	style := d.normal
	if index == m.Index() && d.focused {
		style = d.cursor
	}
	fmt.Fprint(w, style.Render(line))
}

func newDropdown() list.Model {
	l := list.New(nil, newDropdownDelegate(0, false), 40, dropdownRows)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	// The form, not the list, decides when to quit.
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.SetStatusBarItemName("item", "items")
	l.KeyMap.CursorUp.SetKeys(append(l.KeyMap.CursorUp.Keys(), "ctrl+p")...)
	l.KeyMap.CursorDown.SetKeys(append(l.KeyMap.CursorDown.Keys(), "ctrl+n")...)
	return l
}
