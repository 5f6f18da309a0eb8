package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memList struct {
	title  string
	nextID int
	items  map[int]Record
}

// Memory is an in-process Lists implementation, used by tests and by `serve`
// when no --db file is given.
type Memory struct {
	mu    sync.Mutex
	lists map[string]*memList
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{lists: map[string]*memList{}, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) list(title string) (*memList, error) {
	l, ok := m.lists[strings.ToLower(strings.TrimSpace(title))]
	if !ok {
		return nil, ErrListNotFound
	}
	return l, nil
}

func (m *Memory) CreateList(_ context.Context, title string) error {
	title, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(title)
	if _, ok := m.lists[key]; ok {
		return ErrListExists
	}
	m.lists[key] = &memList{title: title, nextID: 1, items: map[int]Record{}}
	return nil
}

func (m *Memory) ListTitles(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.lists))
	for _, l := range m.lists {
		out = append(out, l.title)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Items(_ context.Context, list string, q Query) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.list(list)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(l.items))
	for _, r := range l.items {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return applyQuery(out, q), nil
}

func (m *Memory) Item(_ context.Context, list string, id int) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.list(list)
	if err != nil {
		return Record{}, err
	}
	r, ok := l.items[id]
	if !ok {
		return Record{}, ErrItemNotFound
	}
	return r, nil
}

func (m *Memory) AddItem(_ context.Context, list, title string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.list(list)
	if err != nil {
		return Record{}, err
	}
	now := m.now()
	r := Record{ID: l.nextID, Title: title, Version: 1, CreatedAt: now, ModifiedAt: now}
	l.nextID++
	l.items[r.ID] = r
	return r, nil
}

func (m *Memory) UpdateItem(_ context.Context, list string, id int, title, ifMatch string) (Record, error) {
	if _, _, err := versionCond(ifMatch); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.list(list)
	if err != nil {
		return Record{}, err
	}
	r, ok := l.items[id]
	if !ok {
		return Record{}, ErrItemNotFound
	}
	if err := checkIfMatch(r, ifMatch); err != nil {
		return Record{}, err
	}
	r.Title = title
	r.Version++
	r.ModifiedAt = m.now()
	l.items[id] = r
	return r, nil
}

func (m *Memory) DeleteItem(_ context.Context, list string, id int, ifMatch string) error {
	if _, _, err := versionCond(ifMatch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.list(list)
	if err != nil {
		return err
	}
	r, ok := l.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if err := checkIfMatch(r, ifMatch); err != nil {
		return err
	}
	delete(l.items, id)
	return nil
}

func (m *Memory) Close() error { return nil }
