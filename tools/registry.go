// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Tool lifecycle management hidden
// - Registration and discovery mechanisms abstracted

package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry manages available tools with dynamic registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		metadata = append(metadata, tool.Metadata())
	}
	sort.Slice(metadata, func(i, j int) bool { return metadata[i].Name < metadata[j].Name })
	return metadata
}

// Description returns a formatted description of all tools for the system prompt.
// Each tool is documented with the tagged format the model must emit:
// an opening tag named after the tool, one nested tag per parameter, and
// a matching closing tag.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var b strings.Builder
		fmt.Fprintf(&b, "## %s\n", meta.Name)
		fmt.Fprintf(&b, "Description: %s\n", meta.Description)
		b.WriteString("Parameters:\n")
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			fmt.Fprintf(&b, "- %s: (%s) %s\n", p.Name, required, p.Description)
		}
		b.WriteString("Usage:\n")
		fmt.Fprintf(&b, "<%s>\n", meta.Name)
		for _, p := range meta.Parameters {
			fmt.Fprintf(&b, "<%s>%s here</%s>\n", p.Name, p.Name, p.Name)
		}
		fmt.Fprintf(&b, "</%s>", meta.Name)
		descriptions = append(descriptions, b.String())
	}

	return strings.Join(descriptions, "\n\n")
}

// Default timeout and file size constants for tools.
const (
	DefaultToolTimeout = 30          // seconds
	DefaultMaxFileSize = 1024 * 1024 // 1MB
)

// WithDefaults creates a registry with the standard tool set.
// Returns error if any tool registration fails.
func WithDefaults(workDir string) (*Registry, error) {
	registry := NewRegistry()

	tools := []Tool{
		NewExecuteCommandTool(DefaultToolTimeout).WithWorkDir(workDir),
		NewReadFileTool(DefaultMaxFileSize),
		NewWriteToFileTool(DefaultMaxFileSize),
		NewReplaceInFileTool(DefaultMaxFileSize),
		NewSearchFilesTool(DefaultToolTimeout),
		NewListFilesTool(0),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register default tools: %w", err)
		}
	}

	return registry, nil
}
