// Package format renders CLI payloads as json, edn or plain text.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var Formats = []string{"json", "edn", "text"}

func Valid(format string) bool {
	switch format {
	case "", "json", "edn", "text":
		return true
	}
	return false
}

// Write writes v in format ("" means json).
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	case "text":
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format: %s (expected %s)", format, strings.Join(Formats, "|"))
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// generic turns v into the json.Unmarshal shapes (map[string]any, []any,
// float64, string, bool, nil) so every renderer honors json tags.
func generic(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return nil, err
	}
	return x, nil
}
