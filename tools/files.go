// File Tools - read, write, and targeted replace operations.
//
// Information Hiding:
// - File I/O implementation details hidden
// - Path validation and security checks hidden
// - SEARCH/REPLACE block parsing internalized

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFileTool reads file contents.
type ReadFileTool struct {
	BaseTool
	allowedPaths []string
	maxSizeBytes int64
}

// NewReadFileTool creates a new read file tool.
func NewReadFileTool(maxSizeBytes int64) *ReadFileTool {
	return &ReadFileTool{
		maxSizeBytes: maxSizeBytes,
	}
}

// WithAllowedPaths sets the allowed path prefixes.
func (t *ReadFileTool) WithAllowedPaths(paths []string) *ReadFileTool {
	t.allowedPaths = paths
	return t
}

// Metadata returns the tool metadata.
func (t *ReadFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "read_file",
		Description: "Read the contents of a file from the filesystem",
		Parameters: []ToolParameter{
			{Name: "path", Description: "Path to the file to read", Required: true},
		},
	}
}

// Validate validates the parameters.
func (t *ReadFileTool) Validate(params map[string]string) error {
	return requireParams(params, "path")
}

// Execute reads the file.
func (t *ReadFileTool) Execute(ctx context.Context, params map[string]string) (ToolResult, error) {
	path := strings.TrimSpace(params["path"])
	if path == "" {
		return FailureResultf("missing required parameter 'path'"), nil
	}

	if !pathAllowed(path, t.allowedPaths) {
		return FailureResultf("access to path '%s' is not allowed", path), nil
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FailureResultf("file does not exist: %s", path), nil
	}
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read file metadata: %w", err)), nil
	}

	if info.Size() > t.maxSizeBytes {
		return FailureResultf("file too large: %d bytes (max: %d bytes)", info.Size(), t.maxSizeBytes), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read file: %w", err)), nil
	}

	return SuccessResult(string(content)), nil
}

// WriteToFileTool writes complete content to a file, creating it if needed.
type WriteToFileTool struct {
	BaseTool
	allowedPaths []string
	maxSizeBytes int64
}

// NewWriteToFileTool creates a new write file tool.
func NewWriteToFileTool(maxSizeBytes int64) *WriteToFileTool {
	return &WriteToFileTool{
		maxSizeBytes: maxSizeBytes,
	}
}

// WithAllowedPaths sets the allowed path prefixes.
func (t *WriteToFileTool) WithAllowedPaths(paths []string) *WriteToFileTool {
	t.allowedPaths = paths
	return t
}

// Metadata returns the tool metadata.
func (t *WriteToFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "write_to_file",
		Description: "Write complete content to a file, overwriting it if it exists and creating it otherwise",
		Parameters: []ToolParameter{
			{Name: "path", Description: "Path to the file to write", Required: true},
			{Name: "content", Description: "The complete content to write to the file", Required: true},
		},
	}
}

// Validate validates the parameters.
// Content may legitimately be empty (truncating a file), so only path is required.
func (t *WriteToFileTool) Validate(params map[string]string) error {
	return requireParams(params, "path")
}

// Execute writes to the file.
func (t *WriteToFileTool) Execute(ctx context.Context, params map[string]string) (ToolResult, error) {
	path := strings.TrimSpace(params["path"])
	if path == "" {
		return FailureResultf("missing required parameter 'path'"), nil
	}
	content := params["content"]

	if int64(len(content)) > t.maxSizeBytes {
		return FailureResultf("content too large: %d bytes (max: %d bytes)", len(content), t.maxSizeBytes), nil
	}

	if !pathAllowedForWrite(path, t.allowedPaths) {
		return FailureResultf("access to path '%s' is not allowed", path), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return FailureResult(fmt.Errorf("failed to create directory: %w", err)), nil
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return FailureResult(fmt.Errorf("failed to write file: %w", err)), nil
	}

	return SuccessResult(fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path)), nil
}

// SEARCH/REPLACE block markers for the replace_in_file diff format.
const (
	searchMarker  = "<<<<<<< SEARCH"
	divideMarker  = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

// diffBlock is one parsed SEARCH/REPLACE pair.
type diffBlock struct {
	search  string
	replace string
}

// ReplaceInFileTool applies SEARCH/REPLACE blocks to an existing file.
type ReplaceInFileTool struct {
	BaseTool
	allowedPaths []string
	maxSizeBytes int64
}

// NewReplaceInFileTool creates a new replace tool.
func NewReplaceInFileTool(maxSizeBytes int64) *ReplaceInFileTool {
	return &ReplaceInFileTool{
		maxSizeBytes: maxSizeBytes,
	}
}

// WithAllowedPaths sets the allowed path prefixes.
func (t *ReplaceInFileTool) WithAllowedPaths(paths []string) *ReplaceInFileTool {
	t.allowedPaths = paths
	return t
}

// Metadata returns the tool metadata.
func (t *ReplaceInFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "replace_in_file",
		Description: "Edit a file by applying one or more SEARCH/REPLACE blocks. Each block starts with '" +
			searchMarker + "', separates search from replacement with '" + divideMarker +
			"', and ends with '" + replaceMarker + "'. Search text must match the file exactly.",
		Parameters: []ToolParameter{
			{Name: "path", Description: "Path to the file to edit", Required: true},
			{Name: "diff", Description: "One or more SEARCH/REPLACE blocks", Required: true},
		},
	}
}

// Validate validates the parameters.
func (t *ReplaceInFileTool) Validate(params map[string]string) error {
	if err := requireParams(params, "path", "diff"); err != nil {
		return err
	}
	if _, err := parseDiffBlocks(params["diff"]); err != nil {
		return err
	}
	return nil
}

// Execute applies the diff blocks in order. Each search text replaces its
// first occurrence; a search text not found in the file fails the whole edit
// without writing anything.
func (t *ReplaceInFileTool) Execute(ctx context.Context, params map[string]string) (ToolResult, error) {
	path := strings.TrimSpace(params["path"])
	diff := params["diff"]
	if path == "" {
		return FailureResultf("missing required parameter 'path'"), nil
	}
	if strings.TrimSpace(diff) == "" {
		return FailureResultf("missing required parameter 'diff'"), nil
	}

	if !pathAllowedForWrite(path, t.allowedPaths) {
		return FailureResultf("access to path '%s' is not allowed", path), nil
	}

	blocks, err := parseDiffBlocks(diff)
	if err != nil {
		return FailureResult(err), nil
	}
	if len(blocks) == 0 {
		return FailureResultf("diff contains no SEARCH/REPLACE blocks"), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return FailureResultf("file does not exist: %s", path), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read file: %w", err)), nil
	}
	if int64(len(raw)) > t.maxSizeBytes {
		return FailureResultf("file too large: %d bytes (max: %d bytes)", len(raw), t.maxSizeBytes), nil
	}

	content := string(raw)
	for i, block := range blocks {
		// An empty search on an empty file means "set initial content".
		if block.search == "" && content == "" {
			content = block.replace
			continue
		}
		if !strings.Contains(content, block.search) {
			return FailureResultf("search text of block %d not found in %s", i+1, path), nil
		}
		content = strings.Replace(content, block.search, block.replace, 1)
	}

	if int64(len(content)) > t.maxSizeBytes {
		return FailureResultf("updated content too large: %d bytes (max: %d bytes)", len(content), t.maxSizeBytes), nil
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return FailureResult(fmt.Errorf("failed to write file: %w", err)), nil
	}

	return SuccessResult(fmt.Sprintf("Applied %d replacement(s) to %s", len(blocks), path)), nil
}

// parseDiffBlocks splits a diff string into SEARCH/REPLACE pairs.
// Lines outside of blocks are ignored so the model may include prose around them.
func parseDiffBlocks(diff string) ([]diffBlock, error) {
	var blocks []diffBlock
	lines := strings.Split(diff, "\n")

	const (
		stateOutside = iota
		stateSearch
		stateReplace
	)
	state := stateOutside
	var search, replace []string

	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		switch state {
		case stateOutside:
			if strings.TrimSpace(trimmed) == searchMarker {
				state = stateSearch
				search = search[:0]
				replace = replace[:0]
			}
		case stateSearch:
			if strings.TrimSpace(trimmed) == divideMarker {
				state = stateReplace
			} else {
				search = append(search, trimmed)
			}
		case stateReplace:
			if strings.TrimSpace(trimmed) == replaceMarker {
				blocks = append(blocks, diffBlock{
					search:  strings.Join(search, "\n"),
					replace: strings.Join(replace, "\n"),
				})
				state = stateOutside
			} else {
				replace = append(replace, trimmed)
			}
		}
	}

	if state != stateOutside {
		return nil, fmt.Errorf("malformed diff: unterminated SEARCH/REPLACE block")
	}
	return blocks, nil
}
