package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MrWong99/digitspan/internal/evalset"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	var (
		flags       normalizerFlags
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "eval CASES.yaml",
		Short: "Run a regression case file through the normalizer",
		Long: "Run every case in a YAML case file through the normalizer and print a report. " +
			"Exits non-zero when any case fails.",
		Example: "  digitspan eval testdata/cases.yaml --phonetic",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := evalset.Load(args[0])
			if err != nil {
				return err
			}
			n, _, err := flags.normalizer(cmd, opts)
			if err != nil {
				return err
			}

			report, err := evalset.Run(cmd.Context(), n.Parse, cases, concurrency)
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}
			if err := report.Render(cmd.OutOrStdout()); err != nil {
				return err
			}
			if !report.OK() {
				return errSilent
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.phonetic, "phonetic", false, "enable misspelling recovery")
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.GOMAXPROCS(0), "cases evaluated in parallel")
	return cmd
}
