package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Format writes data as YAML. Structs are converted through their JSON form
// first so the keys match the JSON output.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		_, err := io.WriteString(w, "null\n")
		return err
	}

	m, err := toMap(data)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	enc.SetIndent(2)

	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
