package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func listFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range []string{"a.go", "b.txt", "sub/c.go", ".hidden/d.go", ".dotfile"} {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestListFilesFlat(t *testing.T) {
	dir := listFixture(t)
	tool := NewListFilesTool(0)

	result, err := tool.Execute(context.Background(), map[string]string{"path": dir})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !result.Success() {
		t.Fatalf("list not successful: %v", result.Error)
	}

	for _, want := range []string{"a.go", "b.txt", "sub/"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("output missing %q:\n%s", want, result.Output)
		}
	}
	if strings.Contains(result.Output, ".dotfile") || strings.Contains(result.Output, ".hidden") {
		t.Errorf("hidden entries leaked:\n%s", result.Output)
	}
	if strings.Contains(result.Output, "c.go") {
		t.Errorf("flat listing descended into subdirectory:\n%s", result.Output)
	}
}

func TestListFilesRecursive(t *testing.T) {
	dir := listFixture(t)
	tool := NewListFilesTool(0)

	result, err := tool.Execute(context.Background(), map[string]string{
		"path":      dir,
		"recursive": "true",
	})
	if err != nil || !result.Success() {
		t.Fatalf("list failed: %v / %v", err, result.Error)
	}

	if !strings.Contains(result.Output, filepath.Join("sub", "c.go")) {
		t.Errorf("recursive listing missing nested file:\n%s", result.Output)
	}
	if strings.Contains(result.Output, ".hidden") {
		t.Errorf("hidden directory not skipped:\n%s", result.Output)
	}
}

func TestListFilesNotADirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tool := NewListFilesTool(0)
	result, err := tool.Execute(context.Background(), map[string]string{"path": path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success() {
		t.Error("expected failure for non-directory path")
	}
}
