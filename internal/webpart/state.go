// Package webpart is the list-items form: the state it shows (list title, item
// title, dropdown, selection, status line) and the controller that runs the five
// form operations against the list-items API. Shells (TUI, browser) own a State,
// call Begin when a button is pressed, run Controller.Do off the UI loop and fold
// the Result back with Apply.
package webpart

import (
	"fmt"
	"strings"

	"spcrud-cli/internal/model"
)

type Op int

const (
	OpCreate Op = iota
	OpRead
	OpUpdate
	OpDelete
	OpGetAll
)

// Ops is the button order of the form.
var Ops = []Op{OpCreate, OpRead, OpUpdate, OpDelete, OpGetAll}

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpGetAll:
		return "get-all"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Label is the button caption.
func (o Op) Label() string {
	switch o {
	case OpCreate:
		return "Create"
	case OpRead:
		return "Read"
	case OpUpdate:
		return "Update"
	case OpDelete:
		return "Delete"
	case OpGetAll:
		return "Get all items"
	default:
		return o.String()
	}
}

func ParseOp(s string) (Op, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, o := range Ops {
		if s == o.String() {
			return o, nil
		}
	}
	if s == "getall" || s == "get-all-items" {
		return OpGetAll, nil
	}
	return 0, fmt.Errorf("unknown operation %q (expected create|read|update|delete|get-all)", s)
}

// errorPrefix renders the status prefix used when op fails.
func (o Op) errorPrefix() string {
	if o == OpGetAll {
		return "Error to read all items: "
	}
	return "Error to " + o.String() + " an item: "
}

const StatusReady = "Ready"

type State struct {
	ListTitle      string
	ItemTitle      string
	SelectedItemID int // 0 = nothing chosen
	Items          []model.ListItem
	Status         string
}

func NewState(listTitle string) State {
	return State{ListTitle: strings.TrimSpace(listTitle), Status: StatusReady}
}

func (s *State) SetListTitle(title string) { s.ListTitle = title }
func (s *State) SetItemTitle(title string) { s.ItemTitle = title }
func (s *State) SetStatus(status string)   { s.Status = status }

func (s *State) SelectItem(it model.ListItem) {
	s.SelectedItemID = it.ID
	s.Status = fmt.Sprintf("Chose item with Id: %d, Title: %s", it.ID, it.Title)
}

// SelectByID selects the dropdown entry with id. It reports false, leaving the
// state untouched, when the dropdown has no such entry.
func (s *State) SelectByID(id int) bool {
	for _, it := range s.Items {
		if it.ID == id {
			s.SelectItem(it)
			return true
		}
	}
	return false
}

// Selected returns the dropdown entry currently chosen.
func (s State) Selected() (model.ListItem, bool) {
	if s.SelectedItemID == 0 {
		return model.ListItem{}, false
	}
	for _, it := range s.Items {
		if it.ID == s.SelectedItemID {
			return it, true
		}
	}
	return model.ListItem{}, false
}

// LoadItems replaces the dropdown entries.
func (s *State) LoadItems(items []model.ListItem) {
	s.Items = append([]model.ListItem(nil), items...)
}

// Request is the part of the form an operation reads, captured when it starts.
type Request struct {
	ListTitle  string
	ItemTitle  string
	SelectedID int
}

// Begin captures the request for op, writes its pending status and clears the
// item title when op consumes it.
func (s *State) Begin(op Op, mode model.TargetMode) Request {
	req := Request{
		ListTitle:  strings.TrimSpace(s.ListTitle),
		ItemTitle:  s.ItemTitle,
		SelectedID: s.SelectedItemID,
	}
	switch op {
	case OpCreate:
		s.Status = "Creating an item..."
	case OpRead, OpUpdate, OpDelete:
		if mode == model.TargetLatest {
			s.Status = "Loading latest item..."
		} else {
			s.Status = "Loading chosen item..."
		}
	case OpGetAll:
		s.Status = "Loading all items..."
	}
	if (op == OpCreate || op == OpUpdate) && req.ListTitle != "" {
		s.ItemTitle = ""
	}
	return req
}

// Result is the outcome of one operation.
type Result struct {
	Op     Op
	Status string
	Err    error

	// ItemsLoaded means Items replaces the dropdown (possibly with nothing).
	ItemsLoaded bool
	Items       []model.ListItem

	ResetSelection bool

	// Item is the item an operation read, created or wrote, if any.
	Item *model.ListItem
}

func (s *State) Apply(r Result) {
	s.Status = r.Status
	if r.ItemsLoaded {
		s.LoadItems(r.Items)
	}
	if r.ResetSelection {
		s.SelectedItemID = 0
	}
}
