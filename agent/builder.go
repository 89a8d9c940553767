// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"

	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	name         string
	systemPrompt string
	tools        []tools.Tool
	maxTurns     int
	context      contextmgr.Config
	hasContext   bool
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:  name,
		tools: []tools.Tool{},
	}
}

// SystemPrompt sets the agent's role description.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// Tool adds a tool to the agent.
func (b *Builder) Tool(tool tools.Tool) *Builder {
	b.tools = append(b.tools, tool)
	return b
}

// Tools adds multiple tools at once.
func (b *Builder) Tools(toolList []tools.Tool) *Builder {
	b.tools = append(b.tools, toolList...)
	return b
}

// MaxTurns bounds model round-trips per task.
func (b *Builder) MaxTurns(n int) *Builder {
	b.maxTurns = n
	return b
}

// Context sets the conversation compaction configuration.
func (b *Builder) Context(cfg contextmgr.Config) *Builder {
	b.context = cfg
	b.hasContext = true
	return b
}

// Build creates the agent configuration.
func (b *Builder) Build() Config {
	systemPrompt := b.systemPrompt
	if systemPrompt == "" {
		systemPrompt = fmt.Sprintf(
			"You are %s, a skilled software engineer working on the user's machine.",
			b.name,
		)
	}

	contextCfg := b.context
	if !b.hasContext {
		contextCfg = contextmgr.DefaultConfig()
	}

	maxTurns := b.maxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return Config{
		Name:         b.name,
		SystemPrompt: systemPrompt,
		Tools:        b.tools,
		MaxTurns:     maxTurns,
		Context:      contextCfg,
	}
}

// Name returns the builder's agent name.
func (b *Builder) Name() string {
	return b.name
}

// ToolCount returns the number of tools registered.
func (b *Builder) ToolCount() int {
	return len(b.tools)
}
