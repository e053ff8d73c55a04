package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Runs Commands
// =============================================================================

// buildRunsCmd creates the "runs" command group.
func buildRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Query and maintain the run registry",
		Long: `Query recorded pipeline runs.

Every encode, stats, or score invocation with --record lands a row in a
SQLite registry, keyed by run ID and linked to artifacts on local disk
or S3.`,
	}
	cmd.AddCommand(
		buildRunsListCmd(),
		buildRunsShowCmd(),
		buildRunsPruneCmd(),
	)
	return cmd
}

func buildRunsListCmd() *cobra.Command {
	var (
		configPath string
		kind       string
		split      string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, configPath, kind, split, limit)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by run kind (encode, stats, score)")
	cmd.Flags().StringVarP(&split, "split", "s", "", "Filter by dataset split")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func buildRunsShowCmd() *cobra.Command {
	var configPath string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one run and its stored artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, configPath, args[0], asJSON)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run as JSON")
	return cmd
}

func buildRunsPruneCmd() *cobra.Command {
	var (
		configPath string
		olderThan  string
		watch      bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs and artifacts past the retention window",
		Long: `Delete registry rows and local artifacts older than the retention window.

The window comes from --older-than or artifacts.retention in the config.
With --watch the command keeps running and prunes on every
artifacts.prune_interval tick until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsPrune(cmd, configPath, olderThan, watch)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVar(&olderThan, "older-than", "", "Retention window, e.g. 168h (defaults to artifacts.retention)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and prune on an interval")
	return cmd
}
