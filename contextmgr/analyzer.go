package contextmgr

import (
	"github.com/PrimeOccasion/cline/model"
)

// Strategy is the compaction intensity, totally ordered by aggressiveness.
type Strategy int

const (
	StrategyLight Strategy = iota
	StrategyStandard
	StrategyAggressive
	StrategyEmergency
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyLight:
		return "light"
	case StrategyStandard:
		return "standard"
	case StrategyAggressive:
		return "aggressive"
	case StrategyEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Analysis is the analyzer's verdict for one history snapshot.
type Analysis struct {
	TotalCost       int
	Utilization     float64
	NeedsCompaction bool
	Strategy        Strategy
}

// Analyzer aggregates cost estimates and decides whether compaction is
// required.
type Analyzer struct {
	cfg       Config
	estimator Estimator
}

// NewAnalyzer creates an analyzer with the given configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

// Analyze inspects the history against the configured budget.
// lastCompactionCost is the total cost recorded when compaction was last
// invoked for this conversation; pass zero or a negative value if it never
// was. The two-tier rule prevents thrashing on tiny increments while keeping
// an escape hatch under rapid growth.
func (a *Analyzer) Analyze(history []model.ConversationMessage, lastCompactionCost int) Analysis {
	total := a.estimator.History(history)

	budget := a.cfg.MaxContextTokens
	if budget <= 0 {
		// A missing or nonsensical budget must not divide by zero.
		return Analysis{
			TotalCost:       total,
			Utilization:     1,
			NeedsCompaction: true,
			Strategy:        StrategyEmergency,
		}
	}

	util := float64(total) / float64(budget)

	needs := false
	switch {
	case total >= a.cfg.HardCeiling:
		// Absolute backstop against pathologically small budgets.
		needs = true
	case lastCompactionCost <= 0:
		needs = util >= a.cfg.BaseThreshold
	default:
		growth := float64(total-lastCompactionCost) / float64(budget)
		needs = (growth > a.cfg.GrowthThreshold && util >= a.cfg.BaseThreshold) ||
			util >= a.cfg.EmergencyThreshold
	}

	return Analysis{
		TotalCost:       total,
		Utilization:     util,
		NeedsCompaction: needs,
		Strategy:        a.strategyFor(util),
	}
}

// strategyFor is a pure function of the utilization ratio relative to the
// configured thresholds.
func (a *Analyzer) strategyFor(util float64) Strategy {
	base := a.cfg.BaseThreshold
	emergency := a.cfg.EmergencyThreshold
	mid := base + (emergency-base)/2

	switch {
	case util >= emergency:
		return StrategyEmergency
	case util >= mid:
		return StrategyAggressive
	case util >= base:
		return StrategyStandard
	default:
		return StrategyLight
	}
}
