// Package main provides the CLI entry point for the distill summarization
// data pipeline.
//
// distill turns parallel-file seq2seq corpora (source/target lines, with
// optional per-word relevance scores and queries) into fixed-width encoded
// batches, and scores generated summaries with ROUGE and BLEU.
//
// # Basic Usage
//
// Encode a split into collated batches:
//
//	distill encode --config distill.yaml --split train --record
//
// Inspect one example end to end:
//
//	distill inspect --split val --index 42
//
// Score generated summaries against references:
//
//	distill score --predictions preds.txt --references refs.txt --record
//
// # Environment Variables
//
//   - DISTILL_CONFIG: Path to configuration file (default: distill.yaml)
//   - UPDATE_GOLDEN: Set to 1 to rewrite golden test files
//   - AWS_*: Standard AWS credential chain for the s3 artifact backend
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

// defaultConfigName is the config file looked up in the working directory
// when no --config flag or DISTILL_CONFIG variable is set.
const defaultConfigName = "distill.yaml"

func main() {
	// Structured JSON logs on stderr keep stdout machine-readable.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "distill",
		Short: "distill - Summarization data pipeline",
		Long: `distill prepares seq2seq summarization data and scores model output.

Dataset modes: standard (source/target), relevance (per-word scores),
query (query-focused summarization)
Metrics: ROUGE-1/2/L with bootstrap confidence intervals, BLEU

Documentation: https://github.com/haasonsaas/distill`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// SilenceUsage prevents printing usage on every error.
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildEncodeCmd(),
		buildInspectCmd(),
		buildStatsCmd(),
		buildBatchesCmd(),
		buildScoreCmd(),
		buildRunsCmd(),
		buildConfigCmd(),
	)

	return rootCmd
}

// resolveConfigPath applies the DISTILL_CONFIG environment variable and
// the default file name when no explicit path was given.
func resolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" && path != defaultConfigName {
		return path
	}
	if env := strings.TrimSpace(os.Getenv("DISTILL_CONFIG")); env != "" {
		return env
	}
	if strings.TrimSpace(path) == "" {
		return defaultConfigName
	}
	return path
}
