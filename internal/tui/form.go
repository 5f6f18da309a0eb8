package tui

import (
	"context"

	"spcrud-cli/internal/docs"
	"spcrud-cli/internal/model"
	"spcrud-cli/internal/webpart"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const dropdownRows = 6

// focus order: list title, item title, dropdown, then one stop per button.
type focus int

const (
	focusListTitle focus = iota
	focusItemTitle
	focusDropdown
	focusFirstButton
)

var focusCount = int(focusFirstButton) + len(webpart.Ops)

func (f focus) button() (webpart.Op, bool) {
	i := int(f - focusFirstButton)
	if i < 0 || i >= len(webpart.Ops) {
		return 0, false
	}
	return webpart.Ops[i], true
}

// opDoneMsg carries a finished operation back into the update loop.
type opDoneMsg struct {
	res webpart.Result
}

// startOpMsg presses a button without moving focus.
type startOpMsg struct {
	op webpart.Op
}

type formModel struct {
	ctx  context.Context
	ctl  *webpart.Controller
	log  *zap.Logger
	site string

	state webpart.State

	listInput textinput.Model
	itemInput textinput.Model
	dropdown  list.Model
	spinner   spinner.Model

	focus       focus
	inFlight    int
	showHelp    bool
	loadOnStart bool

	width  int
	height int
}

func newFormModel(ctx context.Context, ctl *webpart.Controller, site, listTitle string, log *zap.Logger) formModel {
	if log == nil {
		log = zap.NewNop()
	}
	li := textinput.New()
	li.Placeholder = "List title"
	li.Prompt = ""
	li.CharLimit = 255
	li.SetValue(listTitle)
	li.CursorEnd()

	ii := textinput.New()
	ii.Placeholder = "Title for create / update"
	ii.Prompt = ""
	ii.CharLimit = 255

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := formModel{
		ctx:       ctx,
		ctl:       ctl,
		log:       log,
		site:      site,
		state:     webpart.NewState(listTitle),
		listInput: li,
		itemInput: ii,
		dropdown:  newDropdown(),
		spinner:   sp,
	}
	m.applyFocus()
	return m
}

func (m formModel) Init() tea.Cmd {
	if m.loadOnStart && m.state.ListTitle != "" {
		return tea.Batch(textinput.Blink, func() tea.Msg { return startOpMsg{op: webpart.OpGetAll} })
	}
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := msg.Width - 16
		if w < 20 {
			w = 20
		}
		m.listInput.Width = w
		m.itemInput.Width = w
		m.dropdown.SetSize(w, dropdownRows)
		return m, nil

	case spinner.TickMsg:
		if m.inFlight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startOpMsg:
		return m.start(msg.op)

	case opDoneMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		m.log.Debug("operation finished", zap.Stringer("op", msg.res.Op), zap.String("status", msg.res.Status))
		m.state.Apply(msg.res)
		m.syncDropdown()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m formModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		switch key {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	typing := m.focus == focusListTitle || m.focus == focusItemTitle
	switch key {
	case "tab", "down":
		if key == "down" && m.focus == focusDropdown {
			break
		}
		m.focus = focus((int(m.focus) + 1) % focusCount)
		m.applyFocus()
		return m, nil
	case "shift+tab", "up":
		if key == "up" && m.focus == focusDropdown {
			break
		}
		m.focus = focus((int(m.focus) - 1 + focusCount) % focusCount)
		m.applyFocus()
		return m, nil
	case "left", "right":
		if _, ok := m.focus.button(); ok {
			step := 1
			if key == "left" {
				step = -1
			}
			next := int(m.focus) + step
			if next >= int(focusFirstButton) && next < focusCount {
				m.focus = focus(next)
			}
			return m, nil
		}
	case "enter":
		if op, ok := m.focus.button(); ok {
			return m.start(op)
		}
		if m.focus == focusDropdown {
			if it, ok := m.dropdown.SelectedItem().(dropdownItem); ok {
				m.state.SelectItem(model.ListItem(it))
			}
			return m, nil
		}
		// enter in a text field moves on, like tab.
		m.focus++
		m.applyFocus()
		return m, nil
	}

	if !typing {
		switch key {
		case "?":
			m.showHelp = true
			return m, nil
		case "q", "esc":
			return m, tea.Quit
		case "c":
			return m.start(webpart.OpCreate)
		case "r":
			return m.start(webpart.OpRead)
		case "u":
			return m.start(webpart.OpUpdate)
		case "d":
			return m.start(webpart.OpDelete)
		case "g":
			return m.start(webpart.OpGetAll)
		}
	}
	return m.updateFocused(msg)
}

func (m formModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusListTitle:
		m.listInput, cmd = m.listInput.Update(msg)
		m.state.SetListTitle(m.listInput.Value())
	case focusItemTitle:
		m.itemInput, cmd = m.itemInput.Update(msg)
		m.state.SetItemTitle(m.itemInput.Value())
	case focusDropdown:
		m.dropdown, cmd = m.dropdown.Update(msg)
	}
	return m, cmd
}

// start begins op: the pending status shows at once, the request runs in a
// command and its result comes back as opDoneMsg.
func (m formModel) start(op webpart.Op) (tea.Model, tea.Cmd) {
	req := m.state.Begin(op, m.ctl.TargetMode())
	m.itemInput.SetValue(m.state.ItemTitle)
	m.log.Debug("operation started", zap.Stringer("op", op), zap.String("list", req.ListTitle), zap.Int("selected", req.SelectedID))

	ctx, ctl := m.ctx, m.ctl
	run := func() tea.Msg {
		return opDoneMsg{res: ctl.Do(ctx, op, req)}
	}
	m.inFlight++
	if m.inFlight == 1 {
		return m, tea.Batch(run, m.spinner.Tick)
	}
	return m, run
}

func (m *formModel) applyFocus() {
	m.listInput.Blur()
	m.itemInput.Blur()
	switch m.focus {
	case focusListTitle:
		m.listInput.Focus()
	case focusItemTitle:
		m.itemInput.Focus()
	}
}

func (m *formModel) syncDropdown() {
	items := make([]list.Item, 0, len(m.state.Items))
	cursor := -1
	for i, it := range m.state.Items {
		items = append(items, dropdownItem(it))
		if it.ID == m.state.SelectedItemID {
			cursor = i
		}
	}
	m.dropdown.SetItems(items)
	if cursor >= 0 {
		m.dropdown.Select(cursor)
	}
}

func helpMarkdown() string {
	body, ok := docs.Get("keys")
	if !ok {
		return "tab: next field, enter: activate, ?: help, ctrl+c: quit"
	}
	return body
}
