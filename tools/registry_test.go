package tools

import (
	"context"
	"strings"
	"testing"
)

// fakeTool is a minimal Tool for registry and executor tests.
type fakeTool struct {
	BaseTool
	name string
	// failures counts down: while > 0, Execute returns a retryable failure.
	failures int
	calls    int
}

func (f *fakeTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        f.name,
		Description: "fake tool for tests",
		Parameters: []ToolParameter{
			{Name: "input", Description: "test input", Required: true},
		},
	}
}

func (f *fakeTool) Execute(_ context.Context, params map[string]string) (ToolResult, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return FailureResultf("connection refused"), nil
	}
	return SuccessResult("ok: " + params["input"]), nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&fakeTool{name: "demo"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if !registry.Has("demo") {
		t.Error("Has(demo) = false")
	}
	if _, ok := registry.Get("demo"); !ok {
		t.Error("Get(demo) not found")
	}
	if _, ok := registry.Get("other"); ok {
		t.Error("Get(other) unexpectedly found")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&fakeTool{name: "demo"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := registry.Register(&fakeTool{name: "demo"}); err == nil {
		t.Error("expected error registering duplicate tool")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(&fakeTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	names := registry.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("names[%d] = %q, want %q", i, names[i], n)
		}
	}
}

func TestRegistryDescriptionShowsTagUsage(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&fakeTool{name: "demo"}); err != nil {
		t.Fatal(err)
	}

	desc := registry.Description()
	for _, want := range []string{"## demo", "<demo>", "</demo>", "<input>", "(required)"} {
		if !strings.Contains(desc, want) {
			t.Errorf("description missing %q:\n%s", want, desc)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	registry, err := WithDefaults(t.TempDir())
	if err != nil {
		t.Fatalf("WithDefaults failed: %v", err)
	}

	for _, name := range []string{
		"execute_command", "read_file", "write_to_file",
		"replace_in_file", "search_files", "list_files",
	} {
		if !registry.Has(name) {
			t.Errorf("default registry missing %q", name)
		}
	}
}
