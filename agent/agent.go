// Tool-use loop implementation.
//
// This is THE canonical implementation of the agent loop.
// All task execution goes through this module.
//
// Information Hiding:
// - Loop internals hidden
// - LLM communication hidden
// - Tool execution coordination hidden
// - Context compaction scheduling hidden

package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/PrimeOccasion/cline/assistant"
	"github.com/PrimeOccasion/cline/contextmgr"
	"github.com/PrimeOccasion/cline/llm"
	"github.com/PrimeOccasion/cline/model"
	"github.com/PrimeOccasion/cline/storage"
	"github.com/PrimeOccasion/cline/tools"
)

// Agent executes tasks through the tagged tool-use protocol.
// Following Dave's naming advice: just agent.Agent, not agent.ToolAgent.
type Agent struct {
	config       Config
	llmClient    *llm.Client
	toolRegistry *tools.Registry
	toolExecutor *tools.Executor
	analyzer     *contextmgr.Analyzer
	compactor    *contextmgr.Compactor
	vocab        assistant.Vocabulary
	storage      storage.ConversationStorage
	sessionID    string
	verbose      bool

	// Compaction state carried across turns and runs of one session.
	prevDeleted        *contextmgr.DeletedRange
	lastCompactionCost int
}

// New creates a new agent with the given configuration and provider.
func New(config Config, provider llm.Provider) *Agent {
	registry := tools.NewRegistry()
	for _, tool := range config.Tools {
		_ = registry.Register(tool) // Ignore duplicate errors - caller's responsibility
	}

	client := llm.NewClient(provider)

	return &Agent{
		config:       config,
		llmClient:    client,
		toolRegistry: registry,
		toolExecutor: tools.NewDefaultExecutor(),
		analyzer:     contextmgr.NewAnalyzer(config.Context),
		compactor:    contextmgr.NewCompactor(config.Context, client),
		vocab:        buildVocabulary(registry),
		verbose:      false,
	}
}

// WithToolConfig overrides the tool execution configuration.
func (a *Agent) WithToolConfig(config tools.ToolConfig) *Agent {
	a.toolExecutor = tools.NewExecutor(config)
	return a
}

// WithStorage enables conversation persistence.
func (a *Agent) WithStorage(store storage.ConversationStorage, sessionID string) *Agent {
	a.storage = store
	a.sessionID = sessionID
	return a
}

// Verbose enables verbose output (streams model tokens as they arrive).
func (a *Agent) Verbose(enabled bool) *Agent {
	a.verbose = enabled
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Execute runs the loop for one user input. The input is the task when the
// session is fresh, or the answer when a previous run paused on a followup
// question; either way it is appended to the session's history.
func (a *Agent) Execute(ctx context.Context, input string) Response {
	startTime := time.Now()
	var steps []model.Step
	var toolCalls []model.ToolCall
	var totalUsage llm.TokenUsage
	var llmCalls, compactions int

	metadata := func() Metadata {
		name := a.config.Name
		return Metadata{
			ExecutionTimeMs: uint64(time.Since(startTime).Milliseconds()),
			AgentName:       &name,
			ToolCalls:       toolCalls,
			TokenUsage:      &totalUsage,
			LLMCalls:        llmCalls,
			Compactions:     compactions,
		}
	}

	history, err := a.loadHistory(ctx)
	if err != nil {
		return NewFailureResponse(fmt.Sprintf("failed to load session: %v", err), steps, metadata())
	}

	history = append(history, model.TextMessage(model.RoleUser, input))
	maxTurns := a.config.maxTurns()

	for turn := 0; turn < maxTurns; turn++ {
		// Check context cancellation at top of loop
		if ctx.Err() != nil {
			return NewFailureResponse(
				fmt.Sprintf("execution cancelled: %v", ctx.Err()),
				steps, metadata(),
			)
		}

		history, compactions = a.maybeCompact(ctx, history, compactions)

		blocks, usage, err := a.think(ctx, history)
		if err != nil {
			a.persist(ctx, history)
			return NewFailureResponse(fmt.Sprintf("model call failed: %v", err), steps, metadata())
		}

		llmCalls++
		if usage != nil {
			totalUsage.PromptTokens += usage.PromptTokens
			totalUsage.CompletionTokens += usage.CompletionTokens
			totalUsage.TotalTokens += usage.TotalTokens
		}

		history = append(history, assistantMessage(blocks))
		a.persist(ctx, history)

		text, toolUse := splitBlocks(blocks)

		if toolUse == nil {
			// The model must either use a tool or finish explicitly.
			steps = append(steps, model.Step{Turn: turn, Text: text})
			history = append(history, model.TextMessage(model.RoleUser, noToolNudge))
			continue
		}

		if toolUse.Partial {
			// The closing tag never arrived: the response was truncated
			// mid-call. Ask for a clean retry rather than executing a
			// half-parsed invocation.
			steps = append(steps, model.Step{Turn: turn, Text: text})
			history = append(history, model.TextMessage(model.RoleUser, truncatedToolNudge))
			continue
		}

		switch toolUse.Name {
		case assistant.ToolAttemptCompletion:
			result := toolUse.Params[assistant.ParamResult]
			if result == "" {
				result = text
			}
			a.persist(ctx, history)
			steps = append(steps, model.Step{Turn: turn, Text: text, Observation: &result})
			return NewSuccessResponse(result, steps, metadata())

		case assistant.ToolAskFollowupQuestion:
			question := toolUse.Params[assistant.ParamQuestion]
			a.persist(ctx, history)
			steps = append(steps, model.Step{Turn: turn, Text: text, Observation: &question})
			return NewAwaitingInputResponse(question, steps, metadata())

		default:
			observation, call := a.dispatch(ctx, toolUse)
			if call != nil {
				toolCalls = append(toolCalls, *call)
			}

			history = append(history, model.ToolResultMessage(toolUse.Name, observation))
			a.persist(ctx, history)

			toolName := toolUse.Name
			steps = append(steps, model.Step{
				Turn:        turn,
				Text:        text,
				Tool:        &toolName,
				Observation: &observation,
			})
		}
	}

	a.persist(ctx, history)
	return NewMaxTurnsResponse(steps, metadata())
}

// think asks the model for its next move and parses the reply into blocks.
// Uses streaming when verbose mode is enabled to show tokens in real-time.
// Returns the blocks and token usage (usage may be nil for streaming).
func (a *Agent) think(ctx context.Context, history []model.ConversationMessage) ([]assistant.ContentBlock, *llm.TokenUsage, error) {
	messages := a.renderHistory(history)

	if a.verbose {
		return a.thinkWithStreaming(ctx, messages)
	}

	response, usage, err := a.llmClient.ChatWithUsage(ctx, messages)
	if err != nil {
		return nil, nil, err
	}
	return assistant.Parse(response, a.vocab), usage, nil
}

// streamResult holds the result of a streaming call.
type streamResult struct {
	usage *llm.TokenUsage
	err   error
}

// thinkWithStreaming runs the tag parser incrementally over the token
// stream while echoing chunks to stdout (verbose mode).
func (a *Agent) thinkWithStreaming(ctx context.Context, messages []llm.ChatMessage) ([]assistant.ContentBlock, *llm.TokenUsage, error) {
	chunks := make(chan string, 100)

	resultCh := make(chan streamResult, 1)
	go func() {
		defer close(chunks)
		usage, err := a.llmClient.StreamChat(ctx, messages, chunks)
		resultCh <- streamResult{usage: usage, err: err}
	}()

	parser := assistant.NewStreamParser(a.vocab)
	printedHeader := false

	for chunk := range chunks {
		if !printedHeader {
			fmt.Printf("\n[%s] ", a.config.Name)
			printedHeader = true
		}
		fmt.Print(chunk)
		os.Stdout.Sync() // Flush to show tokens immediately
		parser.Append(chunk)
	}

	if printedHeader {
		fmt.Print("\n\n")
	}

	result := <-resultCh
	if result.err != nil {
		return nil, nil, result.err
	}

	return parser.Blocks(), result.usage, nil
}

// dispatch runs one tool invocation and returns the observation text fed
// back to the model. Failures become observations, not loop aborts: the
// model sees the error and decides what to do next.
func (a *Agent) dispatch(ctx context.Context, block *assistant.ContentBlock) (string, *model.ToolCall) {
	tool, exists := a.toolRegistry.Get(block.Name)
	if !exists {
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s",
			block.Name, strings.Join(a.toolRegistry.Names(), ", ")), nil
	}

	startTime := time.Now()
	inputSize := len(model.SerializedArguments(block.Params))

	result, err := a.toolExecutor.Execute(ctx, tool, block.Params)

	call := &model.ToolCall{
		Name:       block.Name,
		InputSize:  inputSize,
		OutputSize: len(result.Output),
		DurationMs: uint64(time.Since(startTime).Milliseconds()),
		Success:    err == nil && result.Success(),
	}

	if err != nil {
		return fmt.Sprintf("Error: %v", err), call
	}
	if !result.Success() {
		return fmt.Sprintf("Error: %v", result.Error), call
	}
	return result.Output, call
}

// maybeCompact runs the analyzer and, when it demands it, compacts the
// history and records the event. Compaction failure degrades to the
// uncompacted history; the turn proceeds either way.
func (a *Agent) maybeCompact(ctx context.Context, history []model.ConversationMessage, compactions int) ([]model.ConversationMessage, int) {
	analysis := a.analyzer.Analyze(history, a.lastCompactionCost)
	if !analysis.NeedsCompaction {
		return history, compactions
	}

	result, err := a.compactor.Compact(ctx, contextmgr.Request{
		History:     history,
		Analysis:    analysis,
		PrevDeleted: a.prevDeleted,
	})
	if err != nil {
		return history, compactions
	}
	if !result.DidCompact {
		// Nothing could be removed at this size. Record the cost anyway so
		// the analyzer's growth rule applies and we don't re-attempt on the
		// unchanged history every turn.
		a.lastCompactionCost = analysis.TotalCost
		return history, compactions
	}

	a.prevDeleted = result.Deleted
	costAfter := contextmgr.Estimator{}.History(result.History)
	a.lastCompactionCost = costAfter

	if a.storage != nil && a.sessionID != "" {
		var deleted contextmgr.DeletedRange
		if result.Deleted != nil {
			deleted = *result.Deleted
		}
		record := storage.NewCompactionRecord(
			a.sessionID,
			analysis.Strategy.String(),
			deleted,
			latestSummary(result.History),
			analysis.TotalCost,
			costAfter,
		)
		_ = a.storage.RecordCompaction(ctx, record) // Best-effort bookkeeping
	}

	return result.History, compactions + 1
}

// loadHistory restores the session's conversation and compaction state.
func (a *Agent) loadHistory(ctx context.Context) ([]model.ConversationMessage, error) {
	if a.storage == nil || a.sessionID == "" {
		return nil, nil
	}

	history, err := a.storage.Load(ctx, a.sessionID)
	if err != nil {
		return nil, err
	}

	last, err := a.storage.LastCompaction(ctx, a.sessionID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		a.lastCompactionCost = last.CostAfter
		deleted := last.Deleted
		a.prevDeleted = &deleted
	}

	return history, nil
}

// persist saves the session history. Best-effort: a storage hiccup should
// not kill a running task.
func (a *Agent) persist(ctx context.Context, history []model.ConversationMessage) {
	if a.storage == nil || a.sessionID == "" {
		return
	}
	_ = a.storage.Save(ctx, a.sessionID, history)
}

// renderHistory converts conversation history to provider chat messages,
// prefixed with the system prompt.
func (a *Agent) renderHistory(history []model.ConversationMessage) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(a.systemPrompt()))
	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{
			Role:    msg.Role.String(),
			Content: renderMessage(msg),
		})
	}
	return messages
}

// renderMessage flattens a conversation message to prompt text. Tool
// invocations are re-rendered in tag form so the model sees its own past
// output in the protocol it is asked to produce.
func renderMessage(msg model.ConversationMessage) string {
	var b strings.Builder
	for i, part := range msg.Content {
		if i > 0 {
			b.WriteString("\n")
		}
		switch part.Kind {
		case model.PartText:
			b.WriteString(part.Text)
		case model.PartToolInvocation:
			b.WriteString(renderInvocation(part))
		case model.PartToolResult:
			fmt.Fprintf(&b, "[%s] Result:\n%s", part.Reference, part.Payload)
		}
	}
	return b.String()
}

func renderInvocation(part model.ContentPart) string {
	names := make([]string, 0, len(part.Arguments))
	for name := range part.Arguments {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(assistant.OpeningTag(part.ToolName))
	b.WriteString("\n")
	for _, name := range names {
		b.WriteString(assistant.OpeningTag(name))
		b.WriteString(part.Arguments[name])
		b.WriteString(assistant.ClosingTag(name))
		b.WriteString("\n")
	}
	b.WriteString(assistant.ClosingTag(part.ToolName))
	return b.String()
}

// assistantMessage converts parsed blocks into a history entry.
func assistantMessage(blocks []assistant.ContentBlock) model.ConversationMessage {
	parts := make([]model.ContentPart, 0, len(blocks))
	for _, block := range blocks {
		switch block.Kind {
		case assistant.BlockText:
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			parts = append(parts, model.ContentPart{Kind: model.PartText, Text: block.Text})
		case assistant.BlockToolUse:
			parts = append(parts, model.ContentPart{
				Kind:      model.PartToolInvocation,
				ToolName:  block.Name,
				Arguments: block.Params,
			})
		}
	}
	return model.ConversationMessage{Role: model.RoleAssistant, Content: parts}
}

// splitBlocks returns the concatenated text and the first tool-use block.
// Blocks after the first tool use are dropped: one tool per turn.
func splitBlocks(blocks []assistant.ContentBlock) (string, *assistant.ContentBlock) {
	var text []string
	for i, block := range blocks {
		switch block.Kind {
		case assistant.BlockText:
			text = append(text, strings.TrimSpace(block.Text))
		case assistant.BlockToolUse:
			return strings.TrimSpace(strings.Join(text, "\n")), &blocks[i]
		}
	}
	return strings.TrimSpace(strings.Join(text, "\n")), nil
}

// latestSummary returns the body of the newest compaction summary in the
// history, or empty if none survived.
func latestSummary(history []model.ConversationMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if summary, ok := contextmgr.SummaryText(history[i]); ok {
			return summary
		}
	}
	return ""
}

// buildVocabulary derives the parser vocabulary from the registered tools
// plus the two interaction tools the loop handles itself.
func buildVocabulary(registry *tools.Registry) assistant.Vocabulary {
	toolNames := append(registry.Names(),
		assistant.ToolAskFollowupQuestion,
		assistant.ToolAttemptCompletion,
	)

	seen := map[string]bool{}
	var paramNames []string
	addParam := func(name string) {
		if !seen[name] {
			seen[name] = true
			paramNames = append(paramNames, name)
		}
	}
	for _, meta := range registry.List() {
		for _, p := range meta.Parameters {
			addParam(p.Name)
		}
	}
	addParam(assistant.ParamQuestion)
	addParam(assistant.ParamResult)

	// File content and diffs may legitimately contain tag-like text; their
	// parameters terminate on the enclosing tool tag instead.
	rawPayload := map[string]string{
		assistant.ToolWriteToFile:   assistant.ParamContent,
		assistant.ToolReplaceInFile: assistant.ParamDiff,
	}

	return assistant.NewVocabulary(toolNames, paramNames, rawPayload)
}
