package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseTOMLWithRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
max_limit = 32

[[types]]
name = "function"
selector = ".function.name"
priority = 3
suggestions = ["print", "len"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := ParseTOMLWithRecovery(path)
	if err != nil {
		t.Fatalf("ParseTOMLWithRecovery() error = %v", err)
	}

	server, ok := ExtractSection(data, "server")
	if !ok {
		t.Fatalf("server section missing")
	}
	if v, ok := ExtractInt64(server, "max_limit"); !ok || v != 32 {
		t.Errorf("max_limit = %d (%v), want 32", v, ok)
	}

	types, ok := ExtractTables(data, "types")
	if !ok || len(types) != 1 {
		t.Fatalf("ExtractTables(types) = %v, %v", types, ok)
	}
	if name, _ := ExtractString(types[0], "name"); name != "function" {
		t.Errorf("name = %q, want function", name)
	}
	if got, _ := ExtractStrings(types[0], "suggestions"); !reflect.DeepEqual(got, []string{"print", "len"}) {
		t.Errorf("suggestions = %v", got)
	}
}

func TestParseYAMLWithRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  max_limit: 16\nmatching:\n  strict: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := ParseYAMLWithRecovery(path)
	if err != nil {
		t.Fatalf("ParseYAMLWithRecovery() error = %v", err)
	}
	server, _ := ExtractSection(data, "server")
	if v, ok := ExtractInt64(server, "max_limit"); !ok || v != 16 {
		t.Errorf("max_limit = %d (%v), want 16", v, ok)
	}
	matching, _ := ExtractSection(data, "matching")
	if v, ok := ExtractBool(matching, "strict"); !ok || !v {
		t.Errorf("strict = %v (%v), want true", v, ok)
	}
}
