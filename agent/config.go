// Agent configuration types.
//
// Information Hiding:
// - Configuration validation logic hidden
// - Default values hidden

package agent

import (
	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/tools"
)

// Config holds agent configuration.
// Following Dave's naming advice: use agent.Config, not agent.AgentConfig.
type Config struct {
	// Name is a unique identifier for the agent.
	Name string

	// SystemPrompt describes the agent's role. Tool documentation and
	// protocol instructions are appended automatically.
	SystemPrompt string

	// Tools available to this agent.
	Tools []tools.Tool

	// MaxTurns bounds model round-trips per task. Zero means the default.
	MaxTurns int

	// Context tunes conversation compaction.
	Context contextmgr.Config
}

// DefaultMaxTurns is the turn bound applied when Config.MaxTurns is zero.
const DefaultMaxTurns = 25

// DefaultConfig returns a basic agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "agent",
		SystemPrompt: "You are a skilled software engineer working on the user's machine.",
		Tools:        []tools.Tool{},
		MaxTurns:     DefaultMaxTurns,
		Context:      contextmgr.DefaultConfig(),
	}
}

// HasTools returns true if the agent has tools configured.
func (c *Config) HasTools() bool {
	return len(c.Tools) > 0
}

func (c Config) maxTurns() int {
	if c.MaxTurns <= 0 {
		return DefaultMaxTurns
	}
	return c.MaxTurns
}
