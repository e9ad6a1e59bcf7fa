package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	State      string `json:"state"`
	Authorized bool   `json:"authorized"`
	Expires    string `json:"expires,omitempty"`
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"json", false},
		{"yaml", false},
		{"table", false},
		{"xml", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && f.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.name)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", view{State: "authorized", Authorized: true}))
	assert.Equal(t, "{\n  \"state\": \"authorized\",\n  \"authorized\": true\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, NewJSONFormatter().SetIndent("\t").Format(&buf, map[string]any{"a": 1}))
	assert.Equal(t, "{\n\t\"a\": 1\n}\n", buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "yaml", view{State: "unauthorized"}))
	assert.Equal(t, "authorized: false\nstate: unauthorized\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, "yaml", nil))
	assert.Equal(t, "null\n", buf.String())

	assert.Error(t, Write(&buf, "yaml", []string{"not", "an", "object"}))
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	contact := map[string]any{
		"given_name":      "Ada",
		"id":              float64(42),
		"email_addresses": []any{map[string]any{"email": "ada@example.com"}},
		"company":         nil,
	}
	require.NoError(t, Write(&buf, "table", contact))

	out := buf.String()
	for _, want := range []string{"Field", "Value", "given_name", "Ada", "42", `[{"email":"ada@example.com"}]`} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "company"), strings.Index(out, "given_name"), "rows are sorted")

	assert.Error(t, Write(&buf, "table", nil))
}
