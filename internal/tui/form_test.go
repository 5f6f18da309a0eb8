package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"spcrud-cli/internal/emulator"
	"spcrud-cli/internal/splist"
	"spcrud-cli/internal/store"
	"spcrud-cli/internal/webpart"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
)

func newTestForm(t *testing.T, titles ...string) formModel {
	t.Helper()
	lists := store.NewMemory()
	if err := emulator.Seed(context.Background(), lists, "Tasks", titles...); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv, err := emulator.New(lists, emulator.Config{})
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	c, err := splist.New(ts.URL, splist.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("splist.New: %v", err)
	}
	m := newFormModel(context.Background(), webpart.NewController(c), ts.URL, "Tasks", nil)
	nm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return nm.(formModel)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m formModel, keys ...string) (formModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var nm tea.Model
		nm, cmd = m.Update(keyMsg(k))
		m = nm.(formModel)
	}
	return m, cmd
}

// settle runs the commands of a started operation and feeds its result back.
func settle(t *testing.T, m formModel, cmd tea.Cmd) formModel {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			pending = append(pending, msg...)
		case opDoneMsg:
			nm, _ := m.Update(msg)
			m = nm.(formModel)
		}
	}
	return m
}

func TestForm_TabCyclesFocusAcrossFieldsAndButtons(t *testing.T) {
	m := newTestForm(t)
	if m.focus != focusListTitle || !m.listInput.Focused() {
		t.Fatalf("expected list title focused initially")
	}
	m, _ = press(m, "tab")
	if m.focus != focusItemTitle || !m.itemInput.Focused() || m.listInput.Focused() {
		t.Fatalf("expected item title focused after tab")
	}
	m, _ = press(m, "tab", "tab")
	if op, ok := m.focus.button(); !ok || op != webpart.OpCreate {
		t.Fatalf("expected Create button focused, got %v", m.focus)
	}
	for i := 0; i < len(webpart.Ops); i++ {
		m, _ = press(m, "tab")
	}
	if m.focus != focusListTitle {
		t.Fatalf("expected focus to wrap to list title, got %v", m.focus)
	}
	m, _ = press(m, "shift+tab")
	if op, ok := m.focus.button(); !ok || op != webpart.OpGetAll {
		t.Fatalf("expected shift+tab to wrap to Get all items, got %v", m.focus)
	}
}

func TestForm_ViewShowsStatusAndButtons(t *testing.T) {
	m := newTestForm(t)
	v := xansi.Strip(m.View())
	for _, want := range []string{"Status is: Ready", "Create", "Read", "Update", "Delete", "Get all items", "List title"} {
		if !strings.Contains(v, want) {
			t.Fatalf("view missing %q:\n%s", want, v)
		}
	}
}

func TestForm_GetAllLoadsDropdown(t *testing.T) {
	m := newTestForm(t, "a", "b")
	m, _ = press(m, "tab", "tab")
	m, cmd := press(m, "g")
	if m.inFlight != 1 || m.state.Status != "Loading all items..." {
		t.Fatalf("pending: inFlight=%d status=%q", m.inFlight, m.state.Status)
	}
	if !strings.Contains(xansi.Strip(m.View()), "Loading all items...") {
		t.Fatalf("pending status not rendered")
	}
	m = settle(t, m, cmd)
	if m.inFlight != 0 || m.state.Status != "All items were read successfully" {
		t.Fatalf("done: inFlight=%d status=%q", m.inFlight, m.state.Status)
	}
	if len(m.dropdown.Items()) != 2 {
		t.Fatalf("dropdown has %d entries", len(m.dropdown.Items()))
	}
	if !strings.Contains(xansi.Strip(m.View()), "2  b") {
		t.Fatalf("dropdown entry not rendered:\n%s", m.View())
	}
}

func TestForm_CreateUsesAndClearsItemTitle(t *testing.T) {
	m := newTestForm(t)
	m, _ = press(m, "tab", "Buy milk")
	if m.state.ItemTitle != "Buy milk" {
		t.Fatalf("item title = %q", m.state.ItemTitle)
	}
	m, _ = press(m, "tab", "tab") // dropdown, Create
	m, cmd := press(m, "enter")
	if m.itemInput.Value() != "" {
		t.Fatalf("item title input not cleared: %q", m.itemInput.Value())
	}
	m = settle(t, m, cmd)
	if want := `Item with title: "Buy milk" and id: "1" successfully created`; m.state.Status != want {
		t.Fatalf("status = %q", m.state.Status)
	}
}

func TestForm_DropdownEnterSelectsItem(t *testing.T) {
	m := newTestForm(t, "a", "b")
	m, _ = press(m, "tab", "tab")
	m, cmd := press(m, "g")
	m = settle(t, m, cmd)

	m, _ = press(m, "down", "enter")
	if m.state.SelectedItemID != 2 || m.state.Status != "Chose item with Id: 2, Title: b" {
		t.Fatalf("selected=%d status=%q", m.state.SelectedItemID, m.state.Status)
	}

	m, cmd = press(m, "r")
	m = settle(t, m, cmd)
	if m.state.Status != "Item Id: 2, Title: b" {
		t.Fatalf("read status = %q", m.state.Status)
	}

	m, cmd = press(m, "d")
	m = settle(t, m, cmd)
	if m.state.Status != "Item with Id: 2 successfully deleted" || m.state.SelectedItemID != 0 {
		t.Fatalf("delete: status=%q selected=%d", m.state.Status, m.state.SelectedItemID)
	}
	if len(m.dropdown.Items()) != 1 {
		t.Fatalf("dropdown has %d entries after delete", len(m.dropdown.Items()))
	}
}

func TestForm_HelpOverlayOnlyOutsideTextFields(t *testing.T) {
	m := newTestForm(t)
	m, _ = press(m, "?")
	if m.showHelp {
		t.Fatalf("? in a text field must be typed, not open help")
	}
	if !strings.Contains(m.listInput.Value(), "?") {
		t.Fatalf("expected ? typed into list title, got %q", m.listInput.Value())
	}

	m, _ = press(m, "tab", "tab", "?")
	if !m.showHelp {
		t.Fatalf("expected help overlay")
	}
	if !strings.Contains(xansi.Strip(m.View()), "Terminal form keys") {
		t.Fatalf("help overlay does not render the keys topic:\n%s", m.View())
	}
	m, _ = press(m, "esc")
	if m.showHelp {
		t.Fatalf("esc should close help")
	}
}

func TestForm_CtrlCQuits(t *testing.T) {
	m := newTestForm(t)
	_, cmd := press(m, "ctrl+c")
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestForm_LoadOnStart(t *testing.T) {
	m := newTestForm(t, "a")
	m.loadOnStart = true

	batch, ok := m.Init()().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected Init to batch the startup commands")
	}
	var start tea.Msg
	for _, c := range batch {
		if msg, ok := c().(startOpMsg); ok {
			start = msg
		}
	}
	if start == nil {
		t.Fatalf("Init did not queue a get-all")
	}
	nm, cmd := m.Update(start)
	m = settle(t, nm.(formModel), cmd)
	if len(m.state.Items) != 1 {
		t.Fatalf("expected items loaded on start, got %+v", m.state.Items)
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("abcdef\nxy\nlast", 4, 2)
	if got != "abc…\nxy" {
		t.Fatalf("fitLines = %q", got)
	}
}
