package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func eachBackend(t *testing.T, fn func(t *testing.T, s Lists)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "lists.sqlite"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func TestLists_CreateList_RejectsDuplicateCaseInsensitive(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Lists) {
		ctx := context.Background()
		if err := s.CreateList(ctx, "Tasks"); err != nil {
			t.Fatalf("CreateList: %v", err)
		}
		if err := s.CreateList(ctx, "tasks"); !errors.Is(err, ErrListExists) {
			t.Fatalf("expected ErrListExists, got %v", err)
		}
		titles, err := s.ListTitles(ctx)
		if err != nil {
			t.Fatalf("ListTitles: %v", err)
		}
		if len(titles) != 1 || titles[0] != "Tasks" {
			t.Fatalf("unexpected titles: %v", titles)
		}
	})
}

func TestLists_AddItem_AssignsIncreasingIDsNeverReused(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Lists) {
		ctx := context.Background()
		_ = s.CreateList(ctx, "Tasks")

		a, err := s.AddItem(ctx, "Tasks", "a")
		if err != nil {
			t.Fatalf("AddItem a: %v", err)
		}
		b, _ := s.AddItem(ctx, "TASKS", "b")
		if a.ID != 1 || b.ID != 2 {
			t.Fatalf("expected ids 1,2; got %d,%d", a.ID, b.ID)
		}
		if err := s.DeleteItem(ctx, "Tasks", b.ID, "*"); err != nil {
			t.Fatalf("DeleteItem: %v", err)
		}
		c, _ := s.AddItem(ctx, "Tasks", "c")
		if c.ID != 3 {
			t.Fatalf("expected deleted id to stay retired; got %d", c.ID)
		}
	})
}

func TestLists_Items_OrderAndTop(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Lists) {
		ctx := context.Background()
		_ = s.CreateList(ctx, "Tasks")
		for _, title := range []string{"a", "b", "c"} {
			if _, err := s.AddItem(ctx, "Tasks", title); err != nil {
				t.Fatalf("AddItem: %v", err)
			}
		}
		all, err := s.Items(ctx, "Tasks", Query{})
		if err != nil {
			t.Fatalf("Items: %v", err)
		}
		if len(all) != 3 || all[0].Title != "a" || all[2].Title != "c" {
			t.Fatalf("unexpected ascending items: %+v", all)
		}
		latest, err := s.Items(ctx, "Tasks", Query{Desc: true, Top: 1, HasTop: true})
		if err != nil {
			t.Fatalf("Items latest: %v", err)
		}
		if len(latest) != 1 || latest[0].ID != 3 {
			t.Fatalf("unexpected latest: %+v", latest)
		}
		none, err := s.Items(ctx, "Tasks", Query{Top: 0, HasTop: true})
		if err != nil {
			t.Fatalf("Items top 0: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("expected no items for top 0; got %+v", none)
		}
		if _, err := s.Items(ctx, "Missing", Query{}); !errors.Is(err, ErrListNotFound) {
			t.Fatalf("expected ErrListNotFound, got %v", err)
		}
	})
}

func TestLists_UpdateItem_ChecksETag(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Lists) {
		ctx := context.Background()
		_ = s.CreateList(ctx, "Tasks")
		r, _ := s.AddItem(ctx, "Tasks", "a")
		if r.ETag() != `"1"` {
			t.Fatalf("expected initial etag \"1\", got %s", r.ETag())
		}

		r2, err := s.UpdateItem(ctx, "Tasks", r.ID, "b", r.ETag())
		if err != nil {
			t.Fatalf("UpdateItem with fresh etag: %v", err)
		}
		if r2.Version != 2 || r2.Title != "b" {
			t.Fatalf("unexpected updated record: %+v", r2)
		}

		if _, err := s.UpdateItem(ctx, "Tasks", r.ID, "c", r.ETag()); !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("expected ErrPreconditionFailed for stale etag, got %v", err)
		}
		if _, err := s.UpdateItem(ctx, "Tasks", r.ID, "c", ""); !errors.Is(err, ErrIfMatchRequired) {
			t.Fatalf("expected ErrIfMatchRequired, got %v", err)
		}
		if _, err := s.UpdateItem(ctx, "Tasks", r.ID, "c", "*"); err != nil {
			t.Fatalf("UpdateItem wildcard: %v", err)
		}
		if _, err := s.UpdateItem(ctx, "Tasks", 99, "c", "*"); !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestLists_DeleteItem_StaleETagKeepsItem(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Lists) {
		ctx := context.Background()
		_ = s.CreateList(ctx, "Tasks")
		r, _ := s.AddItem(ctx, "Tasks", "a")
		stale := r.ETag()
		if _, err := s.UpdateItem(ctx, "Tasks", r.ID, "b", "*"); err != nil {
			t.Fatalf("UpdateItem: %v", err)
		}

		if err := s.DeleteItem(ctx, "Tasks", r.ID, stale); !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("expected ErrPreconditionFailed, got %v", err)
		}
		if _, err := s.Item(ctx, "Tasks", r.ID); err != nil {
			t.Fatalf("expected item to survive a stale delete: %v", err)
		}

		cur, _ := s.Item(ctx, "Tasks", r.ID)
		if err := s.DeleteItem(ctx, "Tasks", r.ID, cur.ETag()); err != nil {
			t.Fatalf("DeleteItem fresh etag: %v", err)
		}
		if _, err := s.Item(ctx, "Tasks", r.ID); !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound after delete, got %v", err)
		}
	})
}

func TestLists_MissingIfMatchIsCheckedFirst(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Lists) {
		ctx := context.Background()
		_ = s.CreateList(ctx, "Tasks")

		if _, err := s.UpdateItem(ctx, "Tasks", 99, "x", ""); !errors.Is(err, ErrIfMatchRequired) {
			t.Fatalf("update missing item: expected ErrIfMatchRequired, got %v", err)
		}
		if err := s.DeleteItem(ctx, "Tasks", 99, " "); !errors.Is(err, ErrIfMatchRequired) {
			t.Fatalf("delete missing item: expected ErrIfMatchRequired, got %v", err)
		}
		if err := s.DeleteItem(ctx, "Missing", 1, ""); !errors.Is(err, ErrIfMatchRequired) {
			t.Fatalf("delete in missing list: expected ErrIfMatchRequired, got %v", err)
		}
		if err := s.DeleteItem(ctx, "Tasks", 99, "*"); !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("delete missing item with wildcard: expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestOpenSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "lists.sqlite")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = s.CreateList(ctx, "Tasks")
	_, _ = s.AddItem(ctx, "Tasks", "a")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	items, err := s2.Items(ctx, "Tasks", Query{})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || items[0].Title != "a" {
		t.Fatalf("unexpected items after reopen: %+v", items)
	}
	b, _ := s2.AddItem(ctx, "Tasks", "b")
	if b.ID != 2 {
		t.Fatalf("expected id counter to persist, got %d", b.ID)
	}
}
