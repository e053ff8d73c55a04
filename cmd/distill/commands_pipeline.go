package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Pipeline Commands
// =============================================================================

func buildEncodeCmd() *cobra.Command {
	var configPath string
	var split string
	var outDir string
	var metricsAddr string
	var record bool
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a split into collated batches",
		Long: `Encode every example of a split, assemble sortish-ordered batches,
and write the encoded batches plus a run manifest to the artifact store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, configPath, split, outDir, metricsAddr, record)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&split, "split", "s", "", "Split to encode (default from config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write artifacts to this directory instead of the configured store")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while encoding")
	cmd.Flags().BoolVar(&record, "record", false, "Record the run in the registry with git metadata")
	return cmd
}

func buildInspectCmd() *cobra.Command {
	var configPath string
	var split string
	var index int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect one encoded example",
		Long:  `Load a single example by index and print its encoded form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, configPath, split, index, asJSON)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&split, "split", "s", "", "Split to read (default from config)")
	cmd.Flags().IntVarP(&index, "index", "i", 0, "Zero-based example index")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the example as JSON")
	return cmd
}

func buildStatsCmd() *cobra.Command {
	var configPath string
	var split string
	var record bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report length statistics for a split",
		Long:  `Summarize the split's source length index: count, min/max, mean, quantiles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, configPath, split, record)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&split, "split", "s", "", "Split to analyze (default from config)")
	cmd.Flags().BoolVar(&record, "record", false, "Record the statistics in the run registry")
	return cmd
}

func buildBatchesCmd() *cobra.Command {
	var configPath string
	var split string
	var batchSize int
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Preview the batch plan for a split",
		Long: `Collate the split in sortish order and report batch count, encoded
widths, and the padding removed by column trimming.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatches(cmd, configPath, split, batchSize)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&split, "split", "s", "", "Split to collate (default from config)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Batch size override (default from config)")
	return cmd
}
