package emulator

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spcrud-cli/internal/store"
)

var knownFields = map[string]bool{"Id": true, "ID": true, "Title": true, "Created": true, "Modified": true}

type queryOptions struct {
	fields []string // nil = all
	query  store.Query
}

// parseQueryOptions understands the subset of OData system query options the
// client sends: $select, $orderby on Id and $top.
func parseQueryOptions(v url.Values) (queryOptions, error) {
	var o queryOptions
	if sel := strings.TrimSpace(v.Get("$select")); sel != "" {
		for _, f := range strings.Split(sel, ",") {
			f = strings.TrimSpace(f)
			if !knownFields[f] {
				return o, fmt.Errorf("The field or property '%s' does not exist.", f)
			}
			o.fields = append(o.fields, f)
		}
	}
	if ob := strings.Fields(v.Get("$orderby")); len(ob) > 0 {
		if len(ob) > 2 || (ob[0] != "Id" && ob[0] != "ID") {
			return o, fmt.Errorf("Unsupported $orderby %q.", v.Get("$orderby"))
		}
		if len(ob) == 2 {
			switch strings.ToLower(ob[1]) {
			case "desc":
				o.query.Desc = true
			case "asc":
			default:
				return o, fmt.Errorf("Unsupported $orderby direction %q.", ob[1])
			}
		}
	}
	if top := strings.TrimSpace(v.Get("$top")); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n < 0 {
			return o, fmt.Errorf("Invalid $top %q.", top)
		}
		o.query.Top, o.query.HasTop = n, true
	}
	return o, nil
}

func project(r store.Record, fields []string) map[string]any {
	all := map[string]any{
		"Id":       r.ID,
		"ID":       r.ID,
		"Title":    r.Title,
		"Created":  r.CreatedAt.Format(time.RFC3339),
		"Modified": r.ModifiedAt.Format(time.RFC3339),
	}
	if fields == nil {
		return all
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = all[f]
	}
	return out
}
