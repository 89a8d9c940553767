// Package contextmgr manages conversation context: estimating resource cost,
// deciding when compaction is needed, and rewriting history under budget.
//
// Information Hiding:
// - Cost heuristics and threshold logic hidden
// - Summarization prompt construction hidden
// - Compaction algorithms selectable without API changes
package contextmgr

// Algorithm selects the compaction algorithm.
type Algorithm int

const (
	// AlgorithmDecision asks the model which messages to keep and folds the
	// rest into one consolidated memory artifact.
	AlgorithmDecision Algorithm = iota
	// AlgorithmRange summarizes a contiguous range of older messages sized by
	// strategy aggressiveness.
	AlgorithmRange
)

// Config holds context-management tuning. The zero value is not usable
// directly; withDefaults fills in standard values.
type Config struct {
	// MaxContextTokens is the conversation budget. Zero or negative budgets
	// are treated as "always needs compaction".
	MaxContextTokens int

	// BaseThreshold is the utilization ratio that triggers the first
	// compaction. Default 0.7.
	BaseThreshold float64

	// EmergencyThreshold is the utilization ratio past which compaction is
	// triggered regardless of growth. Default 0.9.
	EmergencyThreshold float64

	// GrowthThreshold is the minimum utilization growth since the last
	// compaction before compacting again. Default 0.1.
	GrowthThreshold float64

	// HardCeiling is an absolute cost backstop independent of the configured
	// budget. Default 400000.
	HardCeiling int

	// Algorithm selects range-based or decision-based compaction.
	Algorithm Algorithm

	// NonDestructive appends the summary without removing any messages.
	NonDestructive bool

	// FallbackKeepRecent is how many recent messages survive when the
	// decision payload is malformed. Default 10.
	FallbackKeepRecent int

	// LongMessageThreshold is the character count past which a message is
	// individually summarized before entering the consolidation prompt.
	// Default 4000.
	LongMessageThreshold int
}

// DefaultConfig returns the standard context-management configuration.
func DefaultConfig() Config {
	return Config{
		MaxContextTokens:     120000,
		BaseThreshold:        0.7,
		EmergencyThreshold:   0.9,
		GrowthThreshold:      0.1,
		HardCeiling:          400000,
		Algorithm:            AlgorithmDecision,
		FallbackKeepRecent:   10,
		LongMessageThreshold: 4000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseThreshold <= 0 {
		c.BaseThreshold = def.BaseThreshold
	}
	if c.EmergencyThreshold <= 0 {
		c.EmergencyThreshold = def.EmergencyThreshold
	}
	if c.GrowthThreshold <= 0 {
		c.GrowthThreshold = def.GrowthThreshold
	}
	if c.HardCeiling <= 0 {
		c.HardCeiling = def.HardCeiling
	}
	if c.FallbackKeepRecent <= 0 {
		c.FallbackKeepRecent = def.FallbackKeepRecent
	}
	if c.LongMessageThreshold <= 0 {
		c.LongMessageThreshold = def.LongMessageThreshold
	}
	return c
}
