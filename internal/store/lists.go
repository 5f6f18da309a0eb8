package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrListNotFound       = errors.New("list does not exist")
	ErrListExists         = errors.New("list already exists")
	ErrItemNotFound       = errors.New("item does not exist")
	ErrPreconditionFailed = errors.New("etag does not match the current version")
	ErrIfMatchRequired    = errors.New("if-match header is required")
)

// Record is one stored list item. Version starts at 1 and increments on every update.
type Record struct {
	ID         int
	Title      string
	Version    int
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// ETag renders the record version the way the host does: a quoted integer.
func (r Record) ETag() string {
	return `"` + strconv.Itoa(r.Version) + `"`
}

// Query orders and limits Items. The zero value returns every item in id order.
type Query struct {
	Desc   bool // order by id descending
	Top    int  // row limit, used only when HasTop is set; 0 returns no rows
	HasTop bool
}

// Lists is the backing store of the list-items emulator. List titles are matched
// case-insensitively. Item ids are per list, start at 1 and are never reused.
type Lists interface {
	CreateList(ctx context.Context, title string) error
	ListTitles(ctx context.Context) ([]string, error)
	Items(ctx context.Context, list string, q Query) ([]Record, error)
	Item(ctx context.Context, list string, id int) (Record, error)
	AddItem(ctx context.Context, list, title string) (Record, error)
	// UpdateItem and DeleteItem accept ifMatch "*" or the record's current ETag.
	// A blank ifMatch fails with ErrIfMatchRequired before the list or item is
	// looked up.
	UpdateItem(ctx context.Context, list string, id int, title, ifMatch string) (Record, error)
	DeleteItem(ctx context.Context, list string, id int, ifMatch string) error
	Close() error
}

func checkIfMatch(r Record, ifMatch string) error {
	wildcard, version, err := versionCond(ifMatch)
	if err != nil {
		return err
	}
	if wildcard || version == r.Version {
		return nil
	}
	return ErrPreconditionFailed
}

// versionCond turns an IF-MATCH value into (wildcard, version). Unparseable tags
// yield version -1, which never matches.
func versionCond(ifMatch string) (bool, int, error) {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" {
		return false, 0, ErrIfMatchRequired
	}
	if ifMatch == "*" {
		return true, 0, nil
	}
	tag := strings.Trim(strings.TrimPrefix(ifMatch, "W/"), `"`)
	v, err := strconv.Atoi(tag)
	if err != nil {
		return false, -1, nil
	}
	return false, v, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("list title is empty")
	}
	return title, nil
}

func applyQuery(recs []Record, q Query) []Record {
	if q.Desc {
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
	}
	if q.HasTop && len(recs) > q.Top {
		recs = recs[:q.Top]
	}
	return recs
}
