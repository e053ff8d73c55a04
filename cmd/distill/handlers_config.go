package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/distill/internal/config"
)

// =============================================================================
// Config Command Handlers
// =============================================================================

func runConfigSchema(cmd *cobra.Command, outPath string) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, append(schema, '\n'), 0o644); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", outPath)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return nil
}

func runConfigValidate(cmd *cobra.Command, configPath string) error {
	path := resolveConfigPath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s is valid.\n\n", path)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tVALUE")
	fmt.Fprintf(w, "data.dir\t%s\n", cfg.Data.Dir)
	fmt.Fprintf(w, "data.split\t%s\n", cfg.Data.Split)
	fmt.Fprintf(w, "data.mode\t%s\n", cfg.Data.Mode)
	fmt.Fprintf(w, "data.max_source_length\t%d\n", cfg.Data.MaxSourceLength)
	fmt.Fprintf(w, "data.max_target_length\t%d\n", cfg.Data.MaxTargetLength)
	fmt.Fprintf(w, "tokenizer.path\t%s\n", orDash(cfg.Tokenizer.Path))
	fmt.Fprintf(w, "batching.batch_size\t%d\n", cfg.Batching.BatchSize)
	fmt.Fprintf(w, "scoring.rouge_types\t%v\n", cfg.Scoring.RougeTypes)
	fmt.Fprintf(w, "artifacts.backend\t%s\n", cfg.Artifacts.Backend)
	fmt.Fprintf(w, "registry.path\t%s\n", cfg.Registry.Path)
	return w.Flush()
}
