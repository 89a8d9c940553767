// Pre-built agent configurations for CLI commands.
//
// Information Hiding:
// - Agent creation details hidden
// - Tool configuration hidden

package cli

import (
	"github.com/PrimeOccasion/cline/agent"
	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/llm"
	"github.com/PrimeOccasion/cline/tools"
)

// AgentType represents available agent types.
type AgentType string

const (
	AgentCoder   AgentType = "coder"
	AgentReader  AgentType = "reader"
	AgentShell   AgentType = "shell"
	AgentGeneral AgentType = "general"
)

const (
	defaultMaxFileSize = 1024 * 1024 // 1MB
	defaultTimeout     = 30          // seconds
)

// CreateAgent creates an agent by name with the given provider. workDir is
// the directory file and shell tools operate in; empty means the current
// directory.
func CreateAgent(name, systemPrompt, workDir string, provider llm.Provider, toolConfig tools.ToolConfig, contextCfg contextmgr.Config, maxTurns int) (*agent.Agent, error) {
	var builder *agent.Builder

	switch AgentType(name) {
	case AgentCoder:
		prompt := systemPrompt
		if prompt == "" {
			prompt = "You are a skilled software engineer. You read, write, and edit files, " +
				"run commands, and search code to accomplish the user's task."
		}
		builder = agent.NewBuilder("coder").
			SystemPrompt(prompt).
			Tools(coderTools(workDir))

	case AgentReader:
		prompt := systemPrompt
		if prompt == "" {
			prompt = "You are a code analyst. You inspect files and search code to answer " +
				"questions, but you never modify anything."
		}
		builder = agent.NewBuilder("reader").
			SystemPrompt(prompt).
			Tool(tools.NewReadFileTool(defaultMaxFileSize)).
			Tool(tools.NewSearchFilesTool(defaultTimeout)).
			Tool(tools.NewListFilesTool(0))

	case AgentShell:
		prompt := systemPrompt
		if prompt == "" {
			prompt = "You are a shell command specialist. Execute commands safely and report results."
		}
		builder = agent.NewBuilder("shell").
			SystemPrompt(prompt).
			Tool(tools.NewExecuteCommandTool(defaultTimeout).WithWorkDir(workDir))

	case AgentGeneral:
		prompt := systemPrompt
		if prompt == "" {
			prompt = "You are a helpful assistant. Answer questions clearly and concisely."
		}
		builder = agent.NewBuilder("general").
			SystemPrompt(prompt)

	default:
		// Unknown names get the full coder tool set with a custom prompt.
		prompt := systemPrompt
		if prompt == "" {
			prompt = "You are a helpful assistant."
		}
		builder = agent.NewBuilder(name).
			SystemPrompt(prompt).
			Tools(coderTools(workDir))
	}

	config := builder.Context(contextCfg).MaxTurns(maxTurns).Build()
	a := agent.New(config, provider).WithToolConfig(toolConfig)

	return a, nil
}

// coderTools is the full default tool set.
func coderTools(workDir string) []tools.Tool {
	return []tools.Tool{
		tools.NewExecuteCommandTool(defaultTimeout).WithWorkDir(workDir),
		tools.NewReadFileTool(defaultMaxFileSize),
		tools.NewWriteToFileTool(defaultMaxFileSize),
		tools.NewReplaceInFileTool(defaultMaxFileSize),
		tools.NewSearchFilesTool(defaultTimeout),
		tools.NewListFilesTool(0),
	}
}

// AgentInfo describes an agent preset.
type AgentInfo struct {
	Name        string
	Description string
}

// ListAvailableAgents returns the names and descriptions of available agents.
func ListAvailableAgents() []AgentInfo {
	return []AgentInfo{
		{Name: "coder", Description: "Full tool set - read, write, edit, search, run commands"},
		{Name: "reader", Description: "Read-only - inspect files and search code"},
		{Name: "shell", Description: "Shell commands only"},
		{Name: "general", Description: "No tools - plain Q&A"},
	}
}
