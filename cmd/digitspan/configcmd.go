package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/digitspan/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
	}
	cmd.AddCommand(newConfigSchemaCmd(), newConfigCheckCmd(opts))
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Example: `  digitspan config schema > digitspan.schema.json
  # then start config.yaml with:
  # yaml-language-server: $schema=./digitspan.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newConfigCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config file, with environment overrides applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			printStartupSummary(cmd.OutOrStdout(), cfg)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", opts.configPath)
			return err
		},
	}
}
