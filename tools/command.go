// Command Execution Tool.
//
// Information Hiding:
// - Shell execution details hidden
// - Command validation hidden
// - Output parsing abstracted

package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExecuteCommandTool runs a shell command via sh -c.
type ExecuteCommandTool struct {
	BaseTool
	timeoutSecs     uint64
	workDir         string
	allowedCommands []string
}

// NewExecuteCommandTool creates a new command tool with the given timeout.
func NewExecuteCommandTool(timeoutSecs uint64) *ExecuteCommandTool {
	return &ExecuteCommandTool{
		timeoutSecs: timeoutSecs,
	}
}

// WithWorkDir sets the working directory for command execution.
func (t *ExecuteCommandTool) WithWorkDir(dir string) *ExecuteCommandTool {
	t.workDir = dir
	return t
}

// WithAllowedCommands sets the allowlist for base commands.
func (t *ExecuteCommandTool) WithAllowedCommands(commands []string) *ExecuteCommandTool {
	t.allowedCommands = commands
	return t
}

// Metadata returns the tool metadata.
func (t *ExecuteCommandTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "execute_command",
		Description: "Execute a CLI command on the system and return its combined output",
		Parameters: []ToolParameter{
			{Name: "command", Description: "The CLI command to execute", Required: true},
		},
	}
}

// Validate validates the tool parameters.
func (t *ExecuteCommandTool) Validate(params map[string]string) error {
	return requireParams(params, "command")
}

// Execute runs the command.
func (t *ExecuteCommandTool) Execute(ctx context.Context, params map[string]string) (ToolResult, error) {
	command := strings.TrimSpace(params["command"])
	if command == "" {
		return FailureResultf("missing required parameter 'command'"), nil
	}

	if !t.isCommandAllowed(command) {
		return FailureResultf("command '%s' is not in the allowed list", command), nil
	}

	timeout := time.Duration(t.timeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if t.workDir != "" {
		cmd.Dir = t.workDir
	}
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return FailureResultf("command timed out after %d seconds", t.timeoutSecs), nil
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return FailureResultf("command failed with exit code %d\noutput: %s",
				exitErr.ExitCode(), string(output)), nil
		}
		return FailureResult(fmt.Errorf("failed to execute command: %w", err)), nil
	}

	return SuccessResult(string(output)), nil
}

// isCommandAllowed checks the first word of the command against the allowlist.
func (t *ExecuteCommandTool) isCommandAllowed(command string) bool {
	if len(t.allowedCommands) == 0 {
		return true
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}

	for _, allowed := range t.allowedCommands {
		if allowed == fields[0] {
			return true
		}
	}
	return false
}
