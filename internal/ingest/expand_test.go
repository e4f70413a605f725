package ingest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "sub/c.md", "sub/skip.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.md")
	c := filepath.Join(dir, "sub", "c.md")
	glob := filepath.Join(dir, "**", "*.md")

	tests := []struct {
		name     string
		patterns []string
		excludes []string
		want     []string
	}{
		{"glob", []string{glob}, nil, []string{a, b, c}},
		{"exclude by base name", []string{glob}, []string{"b.md"}, []string{a, c}},
		{"dedupe keeps first", []string{b, glob}, nil, []string{b, a, c}},
		{"urls pass through", []string{"https://example.com/x.md", a}, nil, []string{"https://example.com/x.md", a}},
		{"no matches", []string{filepath.Join(dir, "*.pdf")}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.patterns, tt.excludes)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Expand([]string{filepath.Join(dir, "nope.md")}, nil); err == nil {
		t.Error("Expand() of missing literal path should fail")
	}
	if _, err := Expand([]string{dir}, nil); err == nil {
		t.Error("Expand() of a directory should fail")
	}
}
