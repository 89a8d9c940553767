package contextmgr

import (
	"context"
	"fmt"
	"strings"

	jsonutil "github.com/PrimeOccasion/cline/internal/json"
	"github.com/PrimeOccasion/cline/model"
)

// TextGenerator is the only external capability the compactor uses: generate
// text from a prompt. Callers that stream concatenate the fragments before
// returning.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the TextGenerator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// JSONGenerator is optionally implemented by generators whose backend can
// constrain output to a JSON object. The decision call prefers it when
// available; prose-wrapped JSON from plain Generate is handled either way.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// DeletedRange is a half-open index interval [Start, End) of messages already
// folded into a previous summary. Ranges are monotonically non-decreasing
// across successive compactions of the same conversation.
type DeletedRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MemoryDecision is the structured payload of the external decision call:
// which message indices to keep verbatim, plus free-text guidance for the
// summarizer. Indices not listed are summarized.
type MemoryDecision struct {
	KeepIndices         []int  `json:"keep_indices"`
	SummaryInstructions string `json:"summary_instructions"`
}

// Request carries one compaction invocation. History is an immutable
// snapshot; index sets and ranges refer to this snapshot, never to a history
// that may be appended to concurrently.
type Request struct {
	History     []model.ConversationMessage
	Analysis    Analysis
	PrevDeleted *DeletedRange
}

// Result is the compaction outcome.
type Result struct {
	History          []model.ConversationMessage
	Deleted          *DeletedRange
	DidCompact       bool
	MessagesReplaced int
}

const summaryPrefix = "[Conversation summary]\n"

// SummaryText returns the summary body if msg is a compaction summary
// produced by this package.
func SummaryText(msg model.ConversationMessage) (string, bool) {
	plain := msg.PlainText()
	if !strings.HasPrefix(plain, summaryPrefix) {
		return "", false
	}
	return strings.TrimPrefix(plain, summaryPrefix), true
}

// placeholderSummary stands in when the summarization call fails; the turn
// proceeds on degraded history instead of aborting.
const placeholderSummary = "Summary unavailable: the summarization request failed. " +
	"Earlier messages were compacted without a summary; rely on the remaining recent messages."

const summarizePrompt = `Summarize the following conversation slice for future continuation. Preserve:
- the task goal and constraints
- key decisions and outcomes
- files, paths, and commands involved
- current state and pending work
Be dense and factual. Plain text only.

%s

Conversation slice:
%s`

const decisionPrompt = `You are managing the context window of a coding assistant. Below is the
conversation history with message indices. Choose which messages must be kept
verbatim (the task definition, recent exchanges, anything still load-bearing)
and give instructions for summarizing the rest.

Respond with JSON only:
{"keep_indices": [0, ...], "summary_instructions": "..."}

History:
%s`

const messageDigestPrompt = `Condense this single conversation message to its essential facts in a few
sentences. Plain text only.

%s`

// Compactor rewrites conversation history according to an analyzer decision.
// It never fails the turn: summarizer errors degrade to a placeholder
// summary, and malformed decision payloads fall back to keeping the most
// recent messages. The only returned error is context cancellation, in which
// case the input history is returned unchanged (no partial splice).
type Compactor struct {
	cfg       Config
	generator TextGenerator
	estimator Estimator
}

// NewCompactor creates a compactor using the given text-generation
// capability.
func NewCompactor(cfg Config, generator TextGenerator) *Compactor {
	return &Compactor{cfg: cfg.withDefaults(), generator: generator}
}

// Compact rewrites history per the request. When the analysis says no
// compaction is needed, the input history is returned unchanged with
// DidCompact false.
func (c *Compactor) Compact(ctx context.Context, req Request) (Result, error) {
	noop := Result{History: req.History, Deleted: req.PrevDeleted}

	if !req.Analysis.NeedsCompaction || len(req.History) < 3 {
		return noop, nil
	}

	switch c.cfg.Algorithm {
	case AlgorithmRange:
		return c.compactRange(ctx, req)
	default:
		return c.compactDecision(ctx, req)
	}
}

// compactRange summarizes a contiguous range of older messages, always
// starting after the task-defining first message.
func (c *Compactor) compactRange(ctx context.Context, req Request) (Result, error) {
	history := req.History
	noop := Result{History: history, Deleted: req.PrevDeleted}

	start, end := nextRange(len(history), req.PrevDeleted, req.Analysis.Strategy)
	if end <= start {
		return noop, nil
	}

	summary, err := c.summarizeSlice(ctx, history[start:end], "")
	if err != nil {
		return noop, err
	}
	summaryMsg := model.TextMessage(model.RoleAssistant, summaryPrefix+summary)

	if c.cfg.NonDestructive {
		// Nothing is removed, so snapshot indices stay valid: the returned
		// range simply extends the previous one.
		newHistory := make([]model.ConversationMessage, 0, len(history)+1)
		newHistory = append(newHistory, history...)
		newHistory = append(newHistory, summaryMsg)
		return Result{
			History:          newHistory,
			Deleted:          &DeletedRange{Start: 1, End: end},
			DidCompact:       true,
			MessagesReplaced: 0,
		}, nil
	}

	// Destructive splice: task message, then the summary, then everything
	// outside the summarized range in original order.
	newHistory := make([]model.ConversationMessage, 0, len(history)-(end-start)+1)
	newHistory = append(newHistory, history[0], summaryMsg)
	newHistory = append(newHistory, history[1:start]...)
	newHistory = append(newHistory, history[end:]...)

	return Result{
		History: newHistory,
		// In the rewritten history the already-compacted region is the
		// summary message itself; the next range starts past it.
		Deleted:          &DeletedRange{Start: 1, End: 2},
		DidCompact:       true,
		MessagesReplaced: end - start,
	}, nil
}

// rangeFraction is the share of history summarized per strategy.
func rangeFraction(s Strategy) float64 {
	switch s {
	case StrategyLight:
		return 0.4
	case StrategyStandard:
		return 0.6
	case StrategyAggressive:
		return 0.8
	default:
		return 0.9
	}
}

// nextRange computes the [start, end) slice to summarize, clamped to skip the
// previously compacted region and to keep the task message and the latest
// exchange intact. Starting at the previous range's end is what widens the
// search forward when clamping would otherwise produce an empty range.
func nextRange(n int, prev *DeletedRange, strategy Strategy) (int, int) {
	start := 1
	if prev != nil && prev.End > start {
		start = prev.End
	}

	const keepRecent = 2
	limit := n - keepRecent
	if limit <= start {
		return 0, 0
	}

	count := int(rangeFraction(strategy) * float64(n-1))
	if count < 1 {
		count = 1
	}
	end := start + count
	if end > limit {
		end = limit
	}
	return start, end
}

// compactDecision asks the model which messages to keep, summarizes the rest
// into one consolidated memory artifact, and splices.
func (c *Compactor) compactDecision(ctx context.Context, req Request) (Result, error) {
	history := req.History
	noop := Result{History: history, Deleted: req.PrevDeleted}

	decision, ok := c.requestDecision(ctx, history)
	if ctx.Err() != nil {
		return noop, ctx.Err()
	}
	if !ok {
		decision = c.fallbackDecision(len(history))
	}

	keep := normalizeKeepSet(decision.KeepIndices, len(history))
	var summarize []int
	for i := range history {
		if !keep[i] {
			summarize = append(summarize, i)
		}
	}
	if len(summarize) == 0 {
		return noop, nil
	}

	memory, err := c.buildMemory(ctx, history, summarize, decision.SummaryInstructions)
	if err != nil {
		return noop, err
	}
	memoryMsg := model.TextMessage(model.RoleAssistant, summaryPrefix+memory)

	newHistory := make([]model.ConversationMessage, 0, len(history)-len(summarize)+1)
	newHistory = append(newHistory, memoryMsg)
	for i, msg := range history {
		if keep[i] {
			newHistory = append(newHistory, msg)
		}
	}

	return Result{
		History: newHistory,
		// The memory artifact heads the rewritten history.
		Deleted:          &DeletedRange{Start: 0, End: 1},
		DidCompact:       true,
		MessagesReplaced: len(summarize),
	}, nil
}

// requestDecision performs the external structured decision call. Returns
// ok=false when the payload cannot be parsed or is incomplete.
func (c *Compactor) requestDecision(ctx context.Context, history []model.ConversationMessage) (MemoryDecision, bool) {
	prompt := fmt.Sprintf(decisionPrompt, indexedDigest(history, c.cfg.LongMessageThreshold))

	var response string
	var err error
	if jg, ok := c.generator.(JSONGenerator); ok {
		response, err = jg.GenerateJSON(ctx, prompt)
	} else {
		response, err = c.generator.Generate(ctx, prompt)
	}
	if err != nil {
		return MemoryDecision{}, false
	}

	decision, err := jsonutil.ExtractJSONFromResponse[MemoryDecision](response)
	if err != nil {
		return MemoryDecision{}, false
	}
	if len(decision.KeepIndices) == 0 || strings.TrimSpace(decision.SummaryInstructions) == "" {
		return MemoryDecision{}, false
	}
	return decision, true
}

// fallbackDecision keeps the task message plus the most recent N messages,
// deterministically, when the decision payload is malformed.
func (c *Compactor) fallbackDecision(n int) MemoryDecision {
	keep := []int{0}
	start := n - c.cfg.FallbackKeepRecent
	if start < 1 {
		start = 1
	}
	for i := start; i < n; i++ {
		keep = append(keep, i)
	}
	return MemoryDecision{
		KeepIndices:         keep,
		SummaryInstructions: "Summarize the task progress so far.",
	}
}

// normalizeKeepSet dedupes and clamps indices against the snapshot, always
// forcing the task-defining first message in.
func normalizeKeepSet(indices []int, n int) map[int]bool {
	keep := make(map[int]bool, len(indices)+1)
	keep[0] = true
	for _, idx := range indices {
		if idx >= 0 && idx < n {
			keep[idx] = true
		}
	}
	return keep
}

// buildMemory produces the consolidated memory artifact for the summarize
// set. Messages longer than the configured threshold are condensed
// individually first so the consolidation prompt stays bounded.
func (c *Compactor) buildMemory(ctx context.Context, history []model.ConversationMessage, summarize []int, instructions string) (string, error) {
	var b strings.Builder
	for _, idx := range summarize {
		msg := history[idx]
		text := msg.PlainText()
		if len(text) > c.cfg.LongMessageThreshold {
			condensed, err := c.generator.Generate(ctx, fmt.Sprintf(messageDigestPrompt, text))
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if err != nil {
				condensed = text[:c.cfg.LongMessageThreshold]
			}
			text = condensed
		}
		fmt.Fprintf(&b, "[%d] %s: %s\n", idx, msg.Role, text)
	}

	guidance := ""
	if strings.TrimSpace(instructions) != "" {
		guidance = "Guidance: " + instructions
	}

	summary, err := c.generator.Generate(ctx, fmt.Sprintf(summarizePrompt, guidance, b.String()))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil || strings.TrimSpace(summary) == "" {
		return placeholderSummary, nil
	}
	return summary, nil
}

// summarizeSlice summarizes a contiguous history slice for the range
// algorithm.
func (c *Compactor) summarizeSlice(ctx context.Context, slice []model.ConversationMessage, instructions string) (string, error) {
	var b strings.Builder
	for _, msg := range slice {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.PlainText())
	}

	summary, err := c.generator.Generate(ctx, fmt.Sprintf(summarizePrompt, instructions, b.String()))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil || strings.TrimSpace(summary) == "" {
		return placeholderSummary, nil
	}
	return summary, nil
}

// indexedDigest renders history with indices for the decision prompt,
// truncating long messages.
func indexedDigest(history []model.ConversationMessage, limit int) string {
	var b strings.Builder
	for i, msg := range history {
		text := msg.PlainText()
		if len(text) > limit {
			text = text[:limit] + "..."
		}
		fmt.Fprintf(&b, "[%d] %s: %s\n", i, msg.Role, text)
	}
	return b.String()
}
