package tui

import (
	"strings"

	"spcrud-cli/internal/webpart"

	"github.com/charmbracelet/lipgloss"
)

func (m formModel) View() string {
	if m.showHelp {
		return fitLines(m.helpView(), m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(styleHeading().Render("List items"))
	if m.site != "" {
		b.WriteString("  " + styleMuted().Render(m.site))
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Render("Your list title: ") + m.state.ListTitle + "\n\n")

	b.WriteString(styleLabel(m.focus == focusListTitle).Render("List title") + m.listInput.View() + "\n")
	b.WriteString(styleLabel(m.focus == focusItemTitle).Render("Item title") + m.itemInput.View() + "\n\n")

	b.WriteString(styleLabel(m.focus == focusDropdown).Render("Items") + "\n")
	b.WriteString(styleBox(m.focus == focusDropdown).Render(m.dropdownView()) + "\n\n")

	b.WriteString(m.buttonsView() + "\n\n")

	status := "Status is: " + styleStatus(m.state.Status).Render(m.state.Status)
	if m.inFlight > 0 {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status + "\n")
	b.WriteString(styleMuted().Render("tab next · enter activate · ? help · ctrl+c quit"))

	return fitLines(b.String(), m.width, m.height)
}

func (m formModel) dropdownView() string {
	if len(m.state.Items) == 0 {
		return styleMuted().Render("(no items loaded, press Get all items)")
	}
	dd := m.dropdown
	dd.SetDelegate(newDropdownDelegate(m.state.SelectedItemID, m.focus == focusDropdown))
	return dd.View()
}

func (m formModel) buttonsView() string {
	parts := make([]string, 0, len(webpart.Ops))
	for i, op := range webpart.Ops {
		parts = append(parts, styleButton(m.focus == focusFirstButton+focus(i)).Render(op.Label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m formModel) helpView() string {
	w := m.width
	if w <= 0 {
		w = 80
	}
	return RenderMarkdown(helpMarkdown(), w-2) + "\n\n" + styleMuted().Render("esc / ? to close")
}
