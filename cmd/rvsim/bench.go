package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/benchmarks"
)

func newBenchCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in pipeline microbenchmarks",
		Long: `bench runs a fixed set of small programs that each stress one part of
the pipeline (forwarding, load-use stalls, redirects) and reports cycle
counts. Every result is checked against the functional emulator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}

			harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
				Machine: cfg,
				Output:  cmd.OutOrStdout(),
			})
			harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)
			results := harness.RunAll()

			switch format {
			case "text":
				harness.PrintResults(results)
			case "csv":
				harness.PrintCSV(results)
			case "json":
				if err := harness.PrintJSON(results); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown output format %q", format)
			}

			failed := 0
			for _, r := range results {
				if !r.Verified {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d benchmarks not verified", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text, csv, json)")

	return cmd
}
