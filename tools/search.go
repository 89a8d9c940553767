// Search Tool - regex search across files via ripgrep.
//
// Information Hiding:
// - Ripgrep command construction hidden
// - Output parsing abstracted
// - Error handling internalized

package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// SearchFilesTool provides regex search over a directory tree via ripgrep.
type SearchFilesTool struct {
	BaseTool
	timeoutSecs       uint64
	defaultMaxResults int
	contextLines      int
}

// NewSearchFilesTool creates a new search tool with the given timeout.
func NewSearchFilesTool(timeoutSecs uint64) *SearchFilesTool {
	return &SearchFilesTool{
		timeoutSecs:       timeoutSecs,
		defaultMaxResults: 200,
		contextLines:      1,
	}
}

// WithMaxResults sets the maximum matching lines per search.
func (t *SearchFilesTool) WithMaxResults(max int) *SearchFilesTool {
	t.defaultMaxResults = max
	return t
}

// WithContextLines sets how many lines of context surround each match.
func (t *SearchFilesTool) WithContextLines(n int) *SearchFilesTool {
	t.contextLines = n
	return t
}

// Metadata returns the tool metadata.
func (t *SearchFilesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "search_files",
		Description: "Perform a regex search across files in a directory, returning matches with surrounding context",
		Parameters: []ToolParameter{
			{Name: "regex", Description: "The regular expression to search for (Rust regex syntax)", Required: true},
			{Name: "path", Description: "Directory to search in (default: current directory)", Required: false},
			{Name: "file_pattern", Description: "Glob pattern to filter files (e.g. '*.go')", Required: false},
		},
	}
}

// Validate validates the parameters.
func (t *SearchFilesTool) Validate(params map[string]string) error {
	return requireParams(params, "regex")
}

// Execute runs the ripgrep search.
func (t *SearchFilesTool) Execute(ctx context.Context, params map[string]string) (ToolResult, error) {
	pattern := params["regex"]
	if strings.TrimSpace(pattern) == "" {
		return FailureResultf("missing required parameter 'regex'"), nil
	}

	rgArgs := []string{"--no-messages", "--color=never", "--line-number"}

	if t.contextLines > 0 {
		rgArgs = append(rgArgs, "-C", fmt.Sprintf("%d", t.contextLines))
	}
	if t.defaultMaxResults > 0 {
		rgArgs = append(rgArgs, "--max-count", fmt.Sprintf("%d", t.defaultMaxResults))
	}

	if glob := strings.TrimSpace(params["file_pattern"]); glob != "" {
		rgArgs = append(rgArgs, "-g", glob)
	}

	searchPath := strings.TrimSpace(params["path"])
	if searchPath == "" {
		searchPath = "."
	}

	rgArgs = append(rgArgs, "--", pattern, searchPath)

	timeout := time.Duration(t.timeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "rg", rgArgs...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return FailureResultf("rg timed out after %d seconds", t.timeoutSecs), nil
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			// rg returns exit code 1 when no matches are found
			if exitErr.ExitCode() == 1 {
				return SuccessResult("No matches found."), nil
			}
			return FailureResultf("rg failed with exit code %d\noutput: %s", exitErr.ExitCode(), string(output)), nil
		}
		return FailureResult(fmt.Errorf("failed to execute rg: %w", err)), nil
	}

	return SuccessResult(string(output)), nil
}
