package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteText writes a line-oriented rendering for shell pipelines. A {"data": x}
// envelope is unwrapped. Objects carrying Id and Title print as "<id>\t<title>";
// other objects print as sorted "key: value" lines.
func WriteText(w io.Writer, v any) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	if m, ok := x.(map[string]any); ok && len(m) == 1 {
		if d, ok := m["data"]; ok {
			x = d
		}
	}
	var sb strings.Builder
	switch t := x.(type) {
	case []any:
		for _, el := range t {
			sb.WriteString(textLine(el))
			sb.WriteByte('\n')
		}
	case map[string]any:
		if line, ok := itemLine(t); ok {
			sb.WriteString(line + "\n")
			break
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s: %s\n", k, textLine(t[k]))
		}
	default:
		sb.WriteString(textLine(t) + "\n")
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

func itemLine(m map[string]any) (string, bool) {
	id, okID := m["Id"]
	title, okTitle := m["Title"]
	if !okID || !okTitle {
		return "", false
	}
	return textLine(id) + "\t" + textLine(title), true
}

func textLine(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		if line, ok := itemLine(t); ok {
			return line
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}
