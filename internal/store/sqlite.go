package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a file-backed Lists implementation.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the emulator database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if inMemory {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateLists(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrateLists(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE COLLATE NOCASE,
			next_item_id INTEGER NOT NULL DEFAULT 1,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			list_id INTEGER NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			title TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			modified_at_unixms INTEGER NOT NULL,
			PRIMARY KEY(list_id, id)
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func listID(ctx context.Context, q queryer, title string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM lists WHERE title = ?`, strings.TrimSpace(title)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrListNotFound
	}
	return id, err
}

func (s *SQLite) CreateList(ctx context.Context, title string) error {
	title, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	if _, err := listID(ctx, s.db, title); err == nil {
		return ErrListExists
	} else if !errors.Is(err, ErrListNotFound) {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO lists(title, created_at_unixms) VALUES(?, ?)`, title, time.Now().UTC().UnixMilli())
	return err
}

func (s *SQLite) ListTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM lists ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const recordColumns = `id, title, version, created_at_unixms, modified_at_unixms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var r Record
	var created, modified int64
	if err := sc.Scan(&r.ID, &r.Title, &r.Version, &created, &modified); err != nil {
		return Record{}, err
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.ModifiedAt = time.UnixMilli(modified).UTC()
	return r, nil
}

func (s *SQLite) Items(ctx context.Context, list string, q Query) ([]Record, error) {
	lid, err := listID(ctx, s.db, list)
	if err != nil {
		return nil, err
	}
	stmt := `SELECT ` + recordColumns + ` FROM items WHERE list_id = ? ORDER BY id`
	if q.Desc {
		stmt += ` DESC`
	}
	args := []any{lid}
	if q.HasTop {
		stmt += ` LIMIT ?`
		args = append(args, q.Top)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Item(ctx context.Context, list string, id int) (Record, error) {
	lid, err := listID(ctx, s.db, list)
	if err != nil {
		return Record{}, err
	}
	r, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM items WHERE list_id = ? AND id = ?`, lid, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrItemNotFound
	}
	return r, err
}

func (s *SQLite) AddItem(ctx context.Context, list, title string) (Record, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	lid, err := listID(ctx, tx, list)
	if err != nil {
		return Record{}, err
	}
	var id int
	if err := tx.QueryRowContext(ctx, `UPDATE lists SET next_item_id = next_item_id + 1 WHERE id = ? RETURNING next_item_id - 1`, lid).Scan(&id); err != nil {
		return Record{}, err
	}
	now := time.Now().UTC()
	ms := now.UnixMilli()
	if _, err := tx.ExecContext(ctx, `INSERT INTO items(list_id, id, title, version, created_at_unixms, modified_at_unixms) VALUES(?, ?, ?, 1, ?, ?)`,
		lid, id, title, ms, ms); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	t := time.UnixMilli(ms).UTC()
	return Record{ID: id, Title: title, Version: 1, CreatedAt: t, ModifiedAt: t}, nil
}

func (s *SQLite) UpdateItem(ctx context.Context, list string, id int, title, ifMatch string) (Record, error) {
	wildcard, version, err := versionCond(ifMatch)
	if err != nil {
		return Record{}, err
	}
	lid, err := listID(ctx, s.db, list)
	if err != nil {
		return Record{}, err
	}
	r, err := scanRecord(s.db.QueryRowContext(ctx, `UPDATE items
		SET title = ?, version = version + 1, modified_at_unixms = ?
		WHERE list_id = ? AND id = ? AND (? OR version = ?)
		RETURNING `+recordColumns,
		title, time.Now().UTC().UnixMilli(), lid, id, wildcard, version))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, s.missOrMismatch(ctx, lid, id)
	}
	return r, err
}

func (s *SQLite) DeleteItem(ctx context.Context, list string, id int, ifMatch string) error {
	wildcard, version, err := versionCond(ifMatch)
	if err != nil {
		return err
	}
	lid, err := listID(ctx, s.db, list)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE list_id = ? AND id = ? AND (? OR version = ?)`, lid, id, wildcard, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missOrMismatch(ctx, lid, id)
	}
	return nil
}

func (s *SQLite) missOrMismatch(ctx context.Context, lid int64, id int) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM items WHERE list_id = ? AND id = ?`, lid, id).Scan(&n); err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return ErrPreconditionFailed
}
