// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Agent and storage setup hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/PrimeOccasion/cline/agent"
	"github.com/PrimeOccasion/cline/config"
	"github.com/PrimeOccasion/cline/llm"
	"github.com/PrimeOccasion/cline/storage"
	"github.com/PrimeOccasion/cline/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider    string
	MaxTurns    int
	ToolRetries uint32
	WorkDir     string
	Verbose     bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		MaxTurns:    25,
		ToolRetries: 3,
		Verbose:     false,
	}
}

// defaultDBPath is the unified database path for all storage.
const defaultDBPath = ".cline/cline.db"

// RunTask executes a single task with an agent, answering followup
// questions interactively from stdin.
func RunTask(ctx context.Context, task, agentName, systemPrompt, sessionID, dbPath string, opts Options) error {
	a, _, cleanup, err := buildAgent(agentName, systemPrompt, sessionID, dbPath, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Running task with %s agent...\n\n", agentName)

	scanner := bufio.NewScanner(os.Stdin)
	input := task

	for {
		response := a.Execute(ctx, input)

		switch response.Type {
		case agent.ResponseSuccess:
			if opts.Verbose {
				printAgentSteps(response.Steps)
			}
			fmt.Printf("%s\n", response.Result)
			printTokenStats(response.Metadata, opts.Verbose)
			return nil

		case agent.ResponseAwaitingInput:
			fmt.Printf("\n%s\n> ", response.Question)
			if !scanner.Scan() {
				return scanner.Err()
			}
			input = strings.TrimSpace(scanner.Text())
			if input == "" {
				input = "(no answer; proceed with your best judgment)"
			}

		case agent.ResponseFailure:
			if opts.Verbose {
				printAgentSteps(response.Steps)
			}
			return fmt.Errorf("task failed: %s", response.Error)

		case agent.ResponseMaxTurns:
			if opts.Verbose {
				printAgentSteps(response.Steps)
			}
			fmt.Printf("Stopped: %s\n", response.PartialResult)
			printTokenStats(response.Metadata, opts.Verbose)
			return nil
		}
	}
}

// Chat starts an interactive session. Followup questions flow naturally:
// the next line of input answers them.
func Chat(ctx context.Context, agentName, systemPrompt, sessionID, dbPath string, opts Options) error {
	a, store, cleanup, err := buildAgent(agentName, systemPrompt, sessionID, dbPath, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if sessionID != "" {
		history, err := store.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(history) > 0 {
			fmt.Printf("Resuming session '%s' (%d messages)\n\n", sessionID, len(history))
		}
	}

	fmt.Printf("Chat with %s agent. Type 'exit' to quit.\n\n", agentName)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		response := a.Execute(ctx, input)

		switch response.Type {
		case agent.ResponseSuccess:
			fmt.Printf("\n%s\n\n", response.Result)
		case agent.ResponseAwaitingInput:
			fmt.Printf("\n%s\n\n", response.Question)
		case agent.ResponseFailure:
			fmt.Fprintf(os.Stderr, "\nError: %s\n\n", response.Error)
		case agent.ResponseMaxTurns:
			fmt.Printf("\nStopped: %s\n\n", response.PartialResult)
		}
	}

	return scanner.Err()
}

// Sessions prints stored sessions with their compaction history.
func Sessions(ctx context.Context, dbPath string) error {
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}

	for _, id := range sessions {
		history, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  (%d messages)\n", id, len(history))

		records, err := store.Compactions(ctx, id)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Printf("    compacted [%s]: %d -> %d tokens\n",
				rec.Strategy, rec.CostBefore, rec.CostAfter)
		}
	}

	return nil
}

// ListTools prints the standard tool set.
func ListTools(verbose bool) {
	registry, err := tools.WithDefaults("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Println("Available tools:")
	fmt.Println()

	for _, meta := range registry.List() {
		fmt.Printf("  %s\n", meta.Name)
		fmt.Printf("    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Printf("      %s%s - %s\n", param.Name, req, param.Description)
			}
		}
		fmt.Println()
	}
}

// Helper functions

// buildAgent wires provider, storage, and configuration into a ready agent.
// The returned cleanup closes the database and must always be called.
func buildAgent(agentName, systemPrompt, sessionID, dbPath string, opts Options) (*agent.Agent, *storage.SqliteStorage, func(), error) {
	provider, err := createProvider(opts.Provider)
	if err != nil {
		return nil, nil, nil, err
	}

	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, nil, nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = settings.Agent.WorkDir
	}

	toolConfig := tools.ToolConfig{
		TimeoutSecs: uint64(settings.Agent.ToolTimeoutSecs),
		MaxRetries:  opts.ToolRetries,
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = settings.Agent.MaxTurns
	}

	a, err := CreateAgent(agentName, systemPrompt, workDir, provider, toolConfig, settings.Context.ContextManagerConfig(), maxTurns)
	if err != nil {
		return nil, nil, nil, err
	}

	if opts.Verbose {
		a = a.Verbose(true)
	}

	if dbPath == "" {
		dbPath = settings.Storage.Path
	}
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	session := sessionID
	if session == "" {
		session = uuid.NewString()
	}
	a = a.WithStorage(store, session)

	return a, store, func() { _ = store.Close() }, nil
}

// createProvider builds an LLM provider from the --provider flag and
// environment configuration.
func createProvider(providerName string) (llm.Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("--provider is required for this command")
	}

	providerType, err := llm.ParseProviderType(providerName)
	if err != nil {
		return nil, err
	}

	settings, err := config.New(providerName)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(providerName)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

const maxObservationLen = 400

func printAgentSteps(steps []agent.Step) {
	fmt.Println("--- Steps ---")
	for _, step := range steps {
		fmt.Printf("[%d] %s\n", step.Turn, step.Text)
		if step.Tool != nil {
			fmt.Printf("    Tool: %s\n", *step.Tool)
		}
		if step.Observation != nil {
			obs := truncateString(*step.Observation, maxObservationLen)
			fmt.Printf("    Observation: %s\n", obs)
		}
		fmt.Println()
	}
	fmt.Println("-------------")
	fmt.Println()
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// printTokenStats prints token usage statistics.
func printTokenStats(meta agent.Metadata, verbose bool) {
	if !verbose || meta.TokenUsage == nil {
		return
	}
	fmt.Printf("\nToken Usage:\n")
	fmt.Printf("  LLM calls: %d\n", meta.LLMCalls)
	fmt.Printf("  Prompt tokens: %d\n", meta.TokenUsage.PromptTokens)
	fmt.Printf("  Completion tokens: %d\n", meta.TokenUsage.CompletionTokens)
	fmt.Printf("  Total tokens: %d\n", meta.TokenUsage.TotalTokens)
	if meta.Compactions > 0 {
		fmt.Printf("  Context compactions: %d\n", meta.Compactions)
	}
}
