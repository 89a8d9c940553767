package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/PrimeOccasion/cline/assistant"
	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/llm"
	"github.com/PrimeOccasion/cline/model"
	"github.com/PrimeOccasion/cline/storage"
	"github.com/PrimeOccasion/cline/tools"
)

// scriptedProvider replays canned replies in order, recording the message
// lists it was called with.
type scriptedProvider struct {
	replies []string
	call    int
	seen    [][]llm.ChatMessage
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	p.seen = append(p.seen, messages)
	if p.call >= len(p.replies) {
		return llm.LLMResponse{}, fmt.Errorf("script exhausted after %d calls", p.call)
	}
	reply := p.replies[p.call]
	p.call++
	return llm.LLMResponse{
		Content: reply,
		Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *scriptedProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	return p.Chat(ctx, messages)
}

func (p *scriptedProvider) StreamChat(ctx context.Context, messages []llm.ChatMessage, chunks chan<- string) (*llm.TokenUsage, error) {
	resp, err := p.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	chunks <- resp.Content
	return resp.Usage, nil
}

// echoTool records the params it was invoked with and echoes one back.
type echoTool struct {
	tools.BaseTool
	calls []map[string]string
}

func newEchoTool() *echoTool {
	return &echoTool{}
}

func (t *echoTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        "echo",
		Description: "Echoes the input value.",
		Parameters: []tools.ToolParameter{
			{Name: "value", Description: "Value to echo.", Required: true},
		},
	}
}

func (t *echoTool) Execute(ctx context.Context, params map[string]string) (tools.ToolResult, error) {
	t.calls = append(t.calls, params)
	return tools.SuccessResult("echoed: " + params["value"]), nil
}

func completionReply(result string) string {
	return fmt.Sprintf("Done.\n<attempt_completion>\n<result>%s</result>\n</attempt_completion>", result)
}

func TestExecuteCompletesImmediately(t *testing.T) {
	provider := &scriptedProvider{replies: []string{completionReply("all set")}}
	agent := New(DefaultConfig(), provider)

	resp := agent.Execute(context.Background(), "do nothing")
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got type %v: %s", resp.Type, resp.ResultText())
	}
	if resp.Result != "all set" {
		t.Errorf("expected result 'all set', got %q", resp.Result)
	}
	if resp.Metadata.LLMCalls != 1 {
		t.Errorf("expected 1 LLM call, got %d", resp.Metadata.LLMCalls)
	}
}

func TestExecuteRunsToolThenCompletes(t *testing.T) {
	tool := newEchoTool()
	provider := &scriptedProvider{replies: []string{
		"Let me try the tool.\n<echo>\n<value>ping</value>\n</echo>",
		completionReply("echo worked"),
	}}

	cfg := DefaultConfig()
	cfg.Tools = []tools.Tool{tool}
	agent := New(cfg, provider)

	resp := agent.Execute(context.Background(), "test the echo tool")
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got type %v: %s", resp.Type, resp.ResultText())
	}

	if len(tool.calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(tool.calls))
	}
	if tool.calls[0]["value"] != "ping" {
		t.Errorf("expected param value 'ping', got %q", tool.calls[0]["value"])
	}

	// The second model call must see the tool result.
	second := provider.seen[1]
	last := second[len(second)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "echoed: ping") {
		t.Errorf("expected tool result in final message, got role %q content %q", last.Role, last.Content)
	}

	if len(resp.Metadata.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call record, got %d", len(resp.Metadata.ToolCalls))
	}
	if call := resp.Metadata.ToolCalls[0]; call.Name != "echo" || !call.Success {
		t.Errorf("unexpected tool call record: %+v", call)
	}
}

func TestExecutePausesOnFollowupQuestion(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"<ask_followup_question>\n<question>Which file?</question>\n</ask_followup_question>",
	}}
	agent := New(DefaultConfig(), provider)

	resp := agent.Execute(context.Background(), "edit the file")
	if !resp.NeedsInput() {
		t.Fatalf("expected awaiting-input response, got type %v", resp.Type)
	}
	if resp.Question != "Which file?" {
		t.Errorf("expected question 'Which file?', got %q", resp.Question)
	}
}

func TestExecuteResumesFromStoredHistory(t *testing.T) {
	store := storage.NewInMemoryStorage()
	provider := &scriptedProvider{replies: []string{
		"<ask_followup_question>\n<question>Which file?</question>\n</ask_followup_question>",
	}}
	agent := New(DefaultConfig(), provider).WithStorage(store, "sess-1")

	resp := agent.Execute(context.Background(), "edit the file")
	if !resp.NeedsInput() {
		t.Fatalf("expected awaiting-input response, got type %v", resp.Type)
	}

	// A fresh agent on the same session sees the question and the answer.
	provider2 := &scriptedProvider{replies: []string{completionReply("edited main.go")}}
	agent2 := New(DefaultConfig(), provider2).WithStorage(store, "sess-1")

	resp2 := agent2.Execute(context.Background(), "main.go")
	if !resp2.IsSuccess() {
		t.Fatalf("expected success, got type %v: %s", resp2.Type, resp2.ResultText())
	}

	sent := provider2.seen[0]
	var joined strings.Builder
	for _, msg := range sent {
		joined.WriteString(msg.Content)
		joined.WriteString("\n")
	}
	if !strings.Contains(joined.String(), "Which file?") {
		t.Error("expected resumed conversation to include the earlier question")
	}
	if !strings.Contains(joined.String(), "main.go") {
		t.Error("expected resumed conversation to include the answer")
	}
}

func TestNoopCompactionRecordedOnce(t *testing.T) {
	store := storage.NewInMemoryStorage()
	seed := []model.ConversationMessage{
		model.TextMessage(model.RoleUser, "Task: refactor the parser"),
		model.TextMessage(model.RoleAssistant, "Looking at the lexer first."),
		model.TextMessage(model.RoleUser, "Start with the state machine."),
		model.TextMessage(model.RoleAssistant, "The state machine has three states."),
	}
	if err := store.Save(context.Background(), "sess-noop", seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// The decision keeps every message, so compaction is a no-op. The cost
	// must still be recorded: the growth rule then holds off the analyzer,
	// and later turns on near-unchanged history spend no decision calls.
	provider := &scriptedProvider{replies: []string{
		`{"keep_indices": [0, 1, 2, 3, 4], "summary_instructions": "keep everything"}`,
		"Reviewing the notes before finishing.",
		completionReply("done"),
	}}

	cfg := DefaultConfig()
	cfg.Context = contextmgr.Config{
		MaxContextTokens:   100,
		BaseThreshold:      0.01,
		EmergencyThreshold: 1000,
		GrowthThreshold:    1000,
	}
	agent := New(cfg, provider).WithStorage(store, "sess-noop")

	resp := agent.Execute(context.Background(), "wrap up")
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got type %v: %s", resp.Type, resp.ResultText())
	}

	decisionCalls := 0
	for _, messages := range provider.seen {
		for _, msg := range messages {
			if strings.Contains(msg.Content, "keep_indices") {
				decisionCalls++
			}
		}
	}
	if decisionCalls != 1 {
		t.Errorf("expected 1 decision call after a no-op compaction, got %d", decisionCalls)
	}
	if provider.call != 3 {
		t.Errorf("expected 3 model calls total, got %d", provider.call)
	}
}

func TestExecuteNudgesOnTextOnlyReply(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"I think the task is probably done.",
		completionReply("done"),
	}}
	agent := New(DefaultConfig(), provider)

	resp := agent.Execute(context.Background(), "finish up")
	if !resp.IsSuccess() {
		t.Fatalf("expected success after nudge, got type %v", resp.Type)
	}
	if resp.Metadata.LLMCalls != 2 {
		t.Errorf("expected 2 LLM calls, got %d", resp.Metadata.LLMCalls)
	}

	second := provider.seen[1]
	last := second[len(second)-1]
	if last.Role != "user" {
		t.Errorf("expected nudge as user message, got role %q", last.Role)
	}
}

func TestExecuteRetriesTruncatedToolCall(t *testing.T) {
	tool := newEchoTool()
	provider := &scriptedProvider{replies: []string{
		"<echo>\n<value>pi", // stream cut mid-call
		"<echo>\n<value>ping</value>\n</echo>",
		completionReply("done"),
	}}

	cfg := DefaultConfig()
	cfg.Tools = []tools.Tool{tool}
	agent := New(cfg, provider)

	resp := agent.Execute(context.Background(), "echo something")
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got type %v: %s", resp.Type, resp.ResultText())
	}
	if len(tool.calls) != 1 {
		t.Errorf("expected exactly 1 executed tool call, got %d", len(tool.calls))
	}
}

func TestExecuteReportsUnknownTool(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"<read_file>\n<path>main.go</path>\n</read_file>",
		completionReply("gave up"),
	}}
	// No tools registered, but read_file is still protocol vocabulary for
	// any registry that includes it; here it is not, so the tag is inert
	// and the reply counts as text only.
	agent := New(DefaultConfig(), provider)

	resp := agent.Execute(context.Background(), "read it")
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got type %v", resp.Type)
	}
}

func TestExecuteStopsAtMaxTurns(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"thinking...", "still thinking...", "more thinking...",
	}}
	cfg := DefaultConfig()
	cfg.MaxTurns = 3
	agent := New(cfg, provider)

	resp := agent.Execute(context.Background(), "stall forever")
	if resp.Type != ResponseMaxTurns {
		t.Fatalf("expected max-turns response, got type %v", resp.Type)
	}
	if resp.Metadata.LLMCalls != 3 {
		t.Errorf("expected 3 LLM calls, got %d", resp.Metadata.LLMCalls)
	}
}

func TestExecuteFailsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{replies: []string{completionReply("never reached")}}
	agent := New(DefaultConfig(), provider)

	resp := agent.Execute(ctx, "anything")
	if resp.Type != ResponseFailure {
		t.Fatalf("expected failure, got type %v", resp.Type)
	}
	if !strings.Contains(resp.Error, "cancelled") {
		t.Errorf("expected cancellation error, got %q", resp.Error)
	}
}

func TestExecuteToolFailureBecomesObservation(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"<echo>\n<value>ping</value>\n</echo>",
		completionReply("recovered"),
	}}

	cfg := DefaultConfig()
	cfg.Tools = []tools.Tool{&failingTool{}}
	agent := New(cfg, provider).WithToolConfig(tools.ToolConfig{TimeoutSecs: 5, MaxRetries: 1})

	resp := agent.Execute(context.Background(), "try it")
	if !resp.IsSuccess() {
		t.Fatalf("expected recovery, got type %v: %s", resp.Type, resp.ResultText())
	}

	second := provider.seen[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "Error:") {
		t.Errorf("expected error observation, got %q", last.Content)
	}
}

type failingTool struct {
	tools.BaseTool
}

func (t *failingTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        "echo",
		Description: "Always fails.",
		Parameters: []tools.ToolParameter{
			{Name: "value", Description: "Ignored.", Required: true},
		},
	}
}

func (t *failingTool) Execute(ctx context.Context, params map[string]string) (tools.ToolResult, error) {
	return tools.FailureResult(fmt.Errorf("disk on fire")), nil
}

func TestSystemPromptListsTools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools = []tools.Tool{newEchoTool()}
	agent := New(cfg, &scriptedProvider{})

	prompt := agent.systemPrompt()
	for _, want := range []string{"## echo", "## attempt_completion", "## ask_followup_question", "TOOL USE"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected system prompt to contain %q", want)
		}
	}
}

func TestRenderInvocationRoundTrips(t *testing.T) {
	part := model.ContentPart{
		Kind:      model.PartToolInvocation,
		ToolName:  "echo",
		Arguments: map[string]string{"value": "hi"},
	}
	rendered := renderInvocation(part)

	vocab := assistant.NewVocabulary([]string{"echo"}, []string{"value"}, nil)
	blocks := assistant.Parse(rendered, vocab)
	if len(blocks) != 1 || blocks[0].Kind != assistant.BlockToolUse {
		t.Fatalf("expected one tool-use block, got %+v", blocks)
	}
	if blocks[0].Params["value"] != "hi" {
		t.Errorf("expected value 'hi', got %q", blocks[0].Params["value"])
	}
}

func TestBuilderDefaults(t *testing.T) {
	cfg := NewBuilder("coder").Build()
	if cfg.Name != "coder" {
		t.Errorf("expected name 'coder', got %q", cfg.Name)
	}
	if cfg.MaxTurns != DefaultMaxTurns {
		t.Errorf("expected default max turns, got %d", cfg.MaxTurns)
	}
	if !strings.Contains(cfg.SystemPrompt, "coder") {
		t.Errorf("expected default prompt to mention the name, got %q", cfg.SystemPrompt)
	}
}
