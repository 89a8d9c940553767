package contextmgr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/PrimeOccasion/cline/model"
)

// scriptedGenerator routes prompts to canned responses: decision prompts get
// the decision payload, everything else gets the summary text.
type scriptedGenerator struct {
	decision string
	summary  string
	err      error
	calls    int
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if strings.Contains(prompt, "keep_indices") {
		return g.decision, nil
	}
	return g.summary, nil
}

func makeHistory(n int) []model.ConversationMessage {
	history := make([]model.ConversationMessage, 0, n)
	history = append(history, model.TextMessage(model.RoleUser, "Task: port the parser to the new protocol"))
	for i := 1; i < n; i++ {
		role := model.RoleAssistant
		if i%2 == 0 {
			role = model.RoleUser
		}
		history = append(history, model.TextMessage(role, fmt.Sprintf("exchange %d", i)))
	}
	return history
}

func needyAnalysis(strategy Strategy) Analysis {
	return Analysis{TotalCost: 1000, Utilization: 0.8, NeedsCompaction: true, Strategy: strategy}
}

func TestCompactNoopWhenNotNeeded(t *testing.T) {
	gen := &scriptedGenerator{summary: "irrelevant"}
	compactor := NewCompactor(DefaultConfig(), gen)
	history := makeHistory(10)

	result, err := compactor.Compact(context.Background(), Request{
		History:  history,
		Analysis: Analysis{NeedsCompaction: false},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DidCompact {
		t.Error("expected DidCompact=false")
	}
	if len(result.History) != len(history) {
		t.Fatalf("history length changed: %d vs %d", len(result.History), len(history))
	}
	for i := range history {
		if result.History[i].PlainText() != history[i].PlainText() {
			t.Errorf("message %d changed", i)
		}
	}
	if gen.calls != 0 {
		t.Errorf("no-op compaction should not call the generator, made %d calls", gen.calls)
	}
}

func TestRangeCompactionSplices(t *testing.T) {
	gen := &scriptedGenerator{summary: "progress so far"}
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmRange
	compactor := NewCompactor(cfg, gen)
	history := makeHistory(10)

	result, err := compactor.Compact(context.Background(), Request{
		History:  history,
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DidCompact {
		t.Fatal("expected compaction")
	}

	// Task message survives in place.
	if result.History[0].PlainText() != history[0].PlainText() {
		t.Error("task-defining first message must be preserved")
	}
	// Summary sits immediately after it.
	if !strings.Contains(result.History[1].PlainText(), "progress so far") {
		t.Errorf("expected summary at index 1, got %q", result.History[1].PlainText())
	}
	if result.History[1].Role != model.RoleAssistant {
		t.Error("summary should be an assistant message")
	}
	// Standard strategy folds 60% of 9 -> 5 messages [1,6).
	if result.MessagesReplaced != 5 {
		t.Errorf("expected 5 messages replaced, got %d", result.MessagesReplaced)
	}
	if len(result.History) != 10-5+1 {
		t.Errorf("expected %d messages, got %d", 10-5+1, len(result.History))
	}
	// Remaining messages keep their relative order.
	if result.History[2].PlainText() != "exchange 6" {
		t.Errorf("expected 'exchange 6' after the summary, got %q", result.History[2].PlainText())
	}
	if result.Deleted == nil || result.Deleted.End < result.Deleted.Start {
		t.Errorf("expected a valid deleted range, got %+v", result.Deleted)
	}
}

func TestRangeFractionsByStrategy(t *testing.T) {
	history := makeHistory(21) // 20 non-task messages

	cases := []struct {
		strategy Strategy
		want     int
	}{
		{StrategyLight, 8},       // 40% of 20
		{StrategyStandard, 12},   // 60% of 20
		{StrategyAggressive, 16}, // 80% of 20
		{StrategyEmergency, 18},  // 90% of 20
	}
	for _, tc := range cases {
		start, end := nextRange(len(history), nil, tc.strategy)
		if start != 1 {
			t.Errorf("%v: expected start 1, got %d", tc.strategy, start)
		}
		if got := end - start; got != tc.want {
			t.Errorf("%v: expected %d messages, got %d", tc.strategy, tc.want, got)
		}
	}
}

func TestRangeSkipsPreviouslyCompacted(t *testing.T) {
	// A previous compaction covered [1, 8); the next range starts at 8.
	start, end := nextRange(20, &DeletedRange{Start: 1, End: 8}, StrategyLight)
	if start != 8 {
		t.Errorf("expected start 8, got %d", start)
	}
	if end <= start {
		t.Errorf("expected non-empty range, got [%d, %d)", start, end)
	}

	// Everything up to the keep-recent tail already compacted: nothing left.
	start, end = nextRange(10, &DeletedRange{Start: 1, End: 8}, StrategyLight)
	if end > start {
		t.Errorf("expected empty range, got [%d, %d)", start, end)
	}
}

func TestRangeMonotonicDeletedRange(t *testing.T) {
	gen := &scriptedGenerator{summary: "summary"}
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmRange
	cfg.NonDestructive = true
	compactor := NewCompactor(cfg, gen)
	history := makeHistory(30)

	var prev *DeletedRange
	for pass := 0; pass < 3; pass++ {
		result, err := compactor.Compact(context.Background(), Request{
			History:     history,
			Analysis:    needyAnalysis(StrategyLight),
			PrevDeleted: prev,
		})
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if !result.DidCompact {
			break
		}
		if prev != nil && result.Deleted.End < prev.End {
			t.Errorf("pass %d: deleted range went backwards: %+v after %+v", pass, result.Deleted, prev)
		}
		prev = result.Deleted
		history = result.History
	}
}

func TestNonDestructiveKeepsAllMessages(t *testing.T) {
	gen := &scriptedGenerator{summary: "appended summary"}
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmRange
	cfg.NonDestructive = true
	compactor := NewCompactor(cfg, gen)
	history := makeHistory(10)

	result, err := compactor.Compact(context.Background(), Request{
		History:  history,
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DidCompact {
		t.Fatal("expected compaction")
	}
	if len(result.History) != len(history)+1 {
		t.Fatalf("expected %d messages, got %d", len(history)+1, len(result.History))
	}
	if result.MessagesReplaced != 0 {
		t.Errorf("non-destructive mode should replace nothing, got %d", result.MessagesReplaced)
	}
	for i := range history {
		if result.History[i].PlainText() != history[i].PlainText() {
			t.Errorf("original message %d changed", i)
		}
	}
	if !strings.Contains(result.History[len(result.History)-1].PlainText(), "appended summary") {
		t.Error("expected summary appended at the end")
	}
}

func TestDecisionCompactionKeepsSelected(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"keep_indices": [0, 8, 9], "summary_instructions": "keep file paths"}`,
		summary:  "consolidated memory",
	}
	compactor := NewCompactor(DefaultConfig(), gen)
	history := makeHistory(10)

	result, err := compactor.Compact(context.Background(), Request{
		History:  history,
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DidCompact {
		t.Fatal("expected compaction")
	}
	if result.MessagesReplaced != 7 {
		t.Errorf("expected 7 messages summarized, got %d", result.MessagesReplaced)
	}
	if len(result.History) != 4 {
		t.Fatalf("expected memory + 3 kept, got %d", len(result.History))
	}
	if !strings.Contains(result.History[0].PlainText(), "consolidated memory") {
		t.Error("expected the memory artifact first")
	}
	// Kept messages retain original relative order.
	if !strings.Contains(result.History[1].PlainText(), "Task:") {
		t.Error("task message should be kept")
	}
	if result.History[2].PlainText() != "exchange 8" || result.History[3].PlainText() != "exchange 9" {
		t.Errorf("kept messages out of order: %q, %q",
			result.History[2].PlainText(), result.History[3].PlainText())
	}
}

// jsonGenerator also implements JSONGenerator and tracks which path the
// decision call used.
type jsonGenerator struct {
	scriptedGenerator
	jsonCalls int
}

func (g *jsonGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	g.jsonCalls++
	return g.scriptedGenerator.Generate(ctx, prompt)
}

func TestDecisionPrefersJSONGenerator(t *testing.T) {
	gen := &jsonGenerator{scriptedGenerator: scriptedGenerator{
		decision: `{"keep_indices": [0, 8, 9], "summary_instructions": "keep file paths"}`,
		summary:  "memory",
	}}
	compactor := NewCompactor(DefaultConfig(), gen)

	result, err := compactor.Compact(context.Background(), Request{
		History:  makeHistory(10),
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DidCompact {
		t.Fatal("expected compaction")
	}
	if gen.jsonCalls != 1 {
		t.Errorf("expected 1 JSON-constrained decision call, got %d", gen.jsonCalls)
	}
}

func TestDecisionAlwaysKeepsTaskMessage(t *testing.T) {
	// The model forgot index 0; the compactor must keep it anyway.
	gen := &scriptedGenerator{
		decision: `{"keep_indices": [8, 9], "summary_instructions": "whatever"}`,
		summary:  "memory",
	}
	compactor := NewCompactor(DefaultConfig(), gen)

	result, err := compactor.Compact(context.Background(), Request{
		History:  makeHistory(10),
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, msg := range result.History {
		if strings.Contains(msg.PlainText(), "Task:") {
			found = true
		}
	}
	if !found {
		t.Error("task-defining first message was dropped")
	}
}

func TestMalformedDecisionFallsBack(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `I think we should keep the important ones.`,
		summary:  "fallback memory",
	}
	cfg := DefaultConfig()
	cfg.FallbackKeepRecent = 3
	compactor := NewCompactor(cfg, gen)
	history := makeHistory(12)

	result, err := compactor.Compact(context.Background(), Request{
		History:  history,
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("malformed decision must not fail the turn: %v", err)
	}
	if !result.DidCompact {
		t.Fatal("expected fallback compaction")
	}
	// Memory + task message + 3 most recent.
	if len(result.History) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(result.History))
	}
	if result.History[4].PlainText() != "exchange 11" {
		t.Errorf("expected most recent message kept, got %q", result.History[4].PlainText())
	}
}

func TestSummarizerFailureYieldsPlaceholder(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("upstream 500")}
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmRange
	compactor := NewCompactor(cfg, gen)

	result, err := compactor.Compact(context.Background(), Request{
		History:  makeHistory(10),
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err != nil {
		t.Fatalf("summarizer failure must not fail the turn: %v", err)
	}
	if !result.DidCompact {
		t.Fatal("expected compaction with placeholder summary")
	}
	if !strings.Contains(result.History[1].PlainText(), "Summary unavailable") {
		t.Errorf("expected placeholder summary, got %q", result.History[1].PlainText())
	}
}

func TestCancellationLeavesHistoryUntouched(t *testing.T) {
	gen := &scriptedGenerator{summary: "should not be spliced"}
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmRange
	compactor := NewCompactor(cfg, gen)
	history := makeHistory(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := compactor.Compact(ctx, Request{
		History:  history,
		Analysis: needyAnalysis(StrategyStandard),
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if result.DidCompact {
		t.Error("cancelled compaction must not apply a partial splice")
	}
	if len(result.History) != len(history) {
		t.Errorf("history changed on cancellation: %d vs %d", len(result.History), len(history))
	}
}
