package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Score Commands
// =============================================================================

func buildScoreCmd() *cobra.Command {
	var (
		configPath string
		preds      string
		refs       string
		noStemmer  bool
		asJSON     bool
		record     bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score predictions against references with ROUGE and BLEU",
		Long: `Score line-aligned prediction and reference files.

ROUGE F1 is bootstrap-aggregated so every metric carries a 95% confidence
band; BLEU-4 is corpus-level. Scores are on the 0-100 scale rounded to
four decimals.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, configPath, preds, refs, noStemmer, asJSON, record)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&preds, "predictions", "p", "", "File with one prediction per line")
	cmd.Flags().StringVarP(&refs, "references", "r", "", "File with one reference per line")
	cmd.Flags().BoolVar(&noStemmer, "no-stemmer", false, "Disable Porter stemming for ROUGE matching")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&record, "record", false, "Save a metrics artifact and a run registry row")
	if err := cmd.MarkFlagRequired("predictions"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("references"); err != nil {
		panic(err)
	}
	return cmd
}
