package main

import (
	"fmt"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/rvsim/config"
)

type testResult struct {
	path   string
	passed bool
	detail string
}

func newTestCmd(opts *rootOptions) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "test <elf>...",
		Short: "Run compliance binaries in parallel",
		Long: `Test runs each binary on its own core and reports PASS when the program
halts with exit code 0.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd.ErrOrStderr())

			results := make([]testResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			for i, path := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					results[i] = runTest(path, cfg, logger)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := 0
			out := cmd.OutOrStdout()
			for _, r := range results {
				status := "PASS"
				if !r.passed {
					status = "FAIL"
					failed++
				}
				fmt.Fprintf(out, "%s %s (%s)\n", status, r.path, r.detail)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d tests failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of binaries simulated at once")

	return cmd
}

func runTest(path string, cfg *config.Config, logger logr.Logger) testResult {
	c, err := newCore(path, cfg, logger)
	if err != nil {
		return testResult{path: path, detail: err.Error()}
	}

	if _, err := c.Run(); err != nil {
		return testResult{path: path, detail: err.Error()}
	}

	stats := c.Stats()
	return testResult{
		path:   path,
		passed: c.ExitCode() == 0,
		detail: fmt.Sprintf("exit %d, %d cycles, %d instructions", c.ExitCode(), stats.Cycles, stats.Instructions),
	}
}
