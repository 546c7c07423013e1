package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <elf>",
		Short: "Run a program to completion",
		Long: `Run loads an ELF binary, simulates it until it halts and prints the exit
code and performance counters. rvsim exits with the program's exit code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			c, err := newCore(args[0], cfg, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			if _, err := c.Run(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			stats := c.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Program: %s\n", args[0])
			fmt.Fprintf(out, "Exit code: %d\n", c.ExitCode())
			fmt.Fprintf(out, "Cycles: %d\n", stats.Cycles)
			fmt.Fprintf(out, "Instructions: %d\n", stats.Instructions)
			fmt.Fprintf(out, "CPI: %.2f\n", stats.CPI())
			fmt.Fprintf(out, "Stalls: %d\n", stats.Stalls)
			fmt.Fprintf(out, "Flushes: %d\n", stats.Flushes)
			fmt.Fprintf(out, "Simulated time: %v at %.0f MHz\n",
				c.SimulatedTime(), float64(cfg.ClockFreq)/1e6)

			if code := c.ExitCode(); code != 0 {
				return &exitError{code: int(code)}
			}
			return nil
		},
	}
}
