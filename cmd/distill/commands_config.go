package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Config Commands
// =============================================================================

// buildConfigCmd creates the "config" command group.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate pipeline configuration",
	}
	cmd.AddCommand(
		buildConfigSchemaCmd(),
		buildConfigValidateCmd(),
	)
	return cmd
}

func buildConfigSchemaCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		Long: `Print the JSON schema generated from the configuration structs.

The same schema gates every load, so a file that passes editor validation
against it also passes distill.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSchema(cmd, outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the schema to a file instead of stdout")
	return cmd
}

func buildConfigValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigName, "Path to YAML configuration file")
	return cmd
}
