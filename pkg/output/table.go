package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// TableFormatter renders an object as a two-column key/value table.
type TableFormatter struct {
	headers []string
}

// NewTableFormatter creates a table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{headers: []string{"Field", "Value"}}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Format writes one row per top-level key, sorted. Nested values are shown
// as compact JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return fmt.Errorf("cannot format nil data as table")
	}

	m, err := toMap(data)
	if err != nil {
		return err
	}

	rows := pterm.TableData{f.headers}
	for _, k := range sortedKeys(m) {
		rows = append(rows, []string{k, cell(m[k])})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, err = fmt.Fprintln(w, out)
	return err
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	default:
		return fmt.Sprint(v)
	}
}
