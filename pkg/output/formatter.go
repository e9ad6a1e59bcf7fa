// Package output renders command results as JSON, YAML or a key/value table.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Formatter writes data to w in one output format.
type Formatter interface {
	// Name returns the format name used on the command line.
	Name() string

	// Format writes data to w.
	Format(w io.Writer, data any) error
}

// Names lists the supported formats.
func Names() []string {
	return []string{"json", "table", "yaml"}
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	switch name {
	case "json":
		return NewJSONFormatter(), nil
	case "yaml":
		return NewYAMLFormatter(), nil
	case "table":
		return NewTableFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: %v)", name, Names())
	}
}

// Write formats data with the named formatter.
func Write(w io.Writer, name string, data any) error {
	f, err := New(name)
	if err != nil {
		return err
	}
	return f.Format(w, data)
}

// toMap normalizes data to a map through its JSON form, so struct tags
// decide the keys.
func toMap(data any) (map[string]any, error) {
	if m, ok := data.(map[string]any); ok {
		return m, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("data is not an object: %w", err)
	}
	return m, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
