// List Files tool for directory discovery.
//
// Returns entry names without reading content; directories carry a
// trailing slash. Discovery and content loading stay separate steps.

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultListMaxResults is the default maximum entries per listing.
	DefaultListMaxResults = 200
	// AbsoluteListMaxResults is the hard limit to prevent excessive memory.
	AbsoluteListMaxResults = 1000
)

// ListFilesTool lists files and directories at a path.
type ListFilesTool struct {
	BaseTool
	maxResults int
}

// NewListFilesTool creates a new list tool.
// If maxResults <= 0, AbsoluteListMaxResults is used.
func NewListFilesTool(maxResults int) *ListFilesTool {
	if maxResults <= 0 {
		maxResults = AbsoluteListMaxResults
	}
	return &ListFilesTool{maxResults: maxResults}
}

// Metadata returns tool metadata.
func (t *ListFilesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "list_files",
		Description: "List files and directories at a path. Directories end with '/'. Hidden entries (starting with .) are skipped. Use for discovery, then read_file to load content.",
		Parameters: []ToolParameter{
			{Name: "path", Description: "Directory to list (default: current directory)", Required: false},
			{Name: "recursive", Description: "Set to 'true' to list recursively", Required: false},
		},
	}
}

// Execute runs the listing.
// Errors are returned via ToolResult to allow user-friendly messages.
func (t *ListFilesTool) Execute(ctx context.Context, params map[string]string) (ToolResult, error) {
	basePath := strings.TrimSpace(params["path"])
	if basePath == "" {
		basePath = "."
	}
	recursive := boolParam(params, "recursive")

	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return FailureResultf("invalid path: %v", err), nil
	}

	info, err := os.Stat(absBase)
	if err != nil {
		return FailureResultf("path not found: %s", basePath), nil
	}
	if !info.IsDir() {
		return FailureResultf("path is not a directory: %s", basePath), nil
	}

	var entries []string
	if recursive {
		entries, err = t.listRecursive(ctx, absBase)
	} else {
		entries, err = t.listFlat(absBase)
	}
	if err != nil {
		return FailureResultf("%v", err), nil
	}

	return t.formatResult(basePath, entries), nil
}

// listFlat lists the immediate children of absBase.
func (t *ListFilesTool) listFlat(absBase string) ([]string, error) {
	dirEntries, err := os.ReadDir(absBase)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var entries []string
	for _, entry := range dirEntries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		entries = append(entries, name)
		if len(entries) >= t.maxResults {
			break
		}
	}

	sort.Strings(entries)
	return entries, nil
}

// listRecursive walks the tree below absBase, skipping hidden directories.
func (t *ListFilesTool) listRecursive(ctx context.Context, absBase string) ([]string, error) {
	var entries []string

	err := filepath.WalkDir(absBase, func(path string, entry os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}

		if path == absBase {
			return nil
		}

		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absBase, path)
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			relPath += "/"
		}

		entries = append(entries, relPath)
		if len(entries) >= t.maxResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return entries, err
	}

	sort.Strings(entries)
	return entries, nil
}

// formatResult formats the entries into a ToolResult.
func (t *ListFilesTool) formatResult(basePath string, entries []string) ToolResult {
	if len(entries) == 0 {
		return SuccessResult(fmt.Sprintf("No entries found in %s", basePath))
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Found %d entries in %s:\n", len(entries), basePath)
	for _, e := range entries {
		fmt.Fprintln(&result, e)
	}

	if len(entries) >= t.maxResults {
		fmt.Fprintf(&result, "\n(limited to %d results)", t.maxResults)
	}

	return SuccessResult(result.String())
}
