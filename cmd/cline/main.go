// Package main provides the cline CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/PrimeOccasion/cline/cli"
)

var (
	// Global flags
	provider    string
	maxTurns    int
	toolRetries uint32
	workDir     string
	verbose     bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "cline",
		Short: "Autonomous coding agent with managed context",
		Long: `A CLI coding agent that plans with an LLM, requests tools through a
tagged text protocol, and keeps long conversations under the model's
context budget via automatic compaction.

Tools cover file reading and editing, regex search, directory listing,
and shell commands. Sessions persist to SQLite and can be resumed.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (anthropic, openai, deepseek, gemini)")
	rootCmd.PersistentFlags().IntVarP(&maxTurns, "max-turns", "m", 0, "Maximum model round-trips per task (0 = configured default)")
	rootCmd.PersistentFlags().Uint32Var(&toolRetries, "tool-retries", 3, "Maximum retries for tool execution")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", "", "Working directory for tools (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:    provider,
		MaxTurns:    maxTurns,
		ToolRetries: toolRetries,
		WorkDir:     workDir,
		Verbose:     verbose,
	}
}

func runCmd() *cobra.Command {
	var agentName string
	var systemPrompt string
	var sessionID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a single task",
		Long: `Execute a task end to end. The agent loops through model calls and
tool executions until it signals completion. If it asks a followup
question, the answer is read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunTask(context.Background(), args[0], agentName, systemPrompt, sessionID, dbPath, options())
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "coder", "Agent preset (coder, reader, shell, general)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "Override the agent's system prompt")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence (default: random)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path for storage")

	return cmd
}

func chatCmd() *cobra.Command {
	var agentName string
	var systemPrompt string
	var sessionID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Each input runs the agent loop; pass
--session to resume a stored conversation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), agentName, systemPrompt, sessionID, dbPath, options())
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "coder", "Agent preset (coder, reader, shell, general)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "Override the agent's system prompt")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path for storage")

	return cmd
}

func sessionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions and their compaction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = ".cline/cline.db"
			}
			return cli.Sessions(context.Background(), dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Database path for storage")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListTools(verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}
