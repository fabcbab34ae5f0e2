package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prompt-trainer",
	Short: "Prompt engineering trainer with REST API and MCP server",
	Long: `prompt-trainer scores prompts written for practice challenges. A model answers
the prompt and the answer is rated on semantic accuracy, task compliance, style
match and prompt efficiency, with feedback on what to improve.

It serves a REST API for trainees (accounts, leaderboards, progress), exposes
the same evaluations as MCP tools, and can deploy self-hosted response and
embedding models via KServe InferenceService CRDs.

When run without subcommands, it starts the servers (equivalent to 'prompt-trainer serve').`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		format, _ := cmd.Flags().GetString("log-format")
		return setupLogging(os.Stderr, verbose, format)
	},
}

// serveCmd is stored so the root command can delegate to it by default.
var serveCmd *cobra.Command

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "prompt-trainer version %s\n" .Version}}`)

	// Default to the serve command when invoked without arguments.
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stderr, "No subcommand specified. Defaulting to 'serve'.")
		fmt.Fprintln(os.Stderr)
		if err := serveCmd.RunE(serveCmd, args); err != nil {
			slog.Error("serve failed", "error", err)
			os.Exit(1)
		}
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default logger. Logs go to w so that stdout
// stays free for command output and the MCP stdio transport.
func setupLogging(w io.Writer, verbose bool, format string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "", "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
	default:
		return fmt.Errorf("unsupported log format %q (supported: text, json)", format)
	}
	return nil
}

func init() {
	serveCmd = newServeCmd()
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newRunCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().String("challenges-dir", "", "External challenges directory (overrides challenges_dir)")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to kubeconfig file")
	rootCmd.PersistentFlags().StringP("namespace", "n", "prompt-trainer", "Kubernetes namespace for InferenceService resources")
}
