package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/core"
)

const (
	// regLines is the number of lines the register table takes.
	regLines = 8
	// headerLines covers the title line and blank separators.
	headerLines = 4

	defaultRows = 8
)

func newDumpCmd(opts *rootOptions) *cobra.Command {
	var (
		cycles uint64
		rows   int
	)

	cmd := &cobra.Command{
		Use:   "dump <elf>",
		Short: "Print a snapshot after some cycles",
		Long: `Dump runs a program for the given number of cycles (or until it stops)
and prints the PC, the registers and the instruction words at the fetch PC.
The memory window fills the terminal unless --rows is given.`,
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

			for i := uint64(0); i < cycles && !c.Halted(); i++ {
				if err := c.Tick(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "stopped: %v\n", err)
					break
				}
			}

			if !cmd.Flags().Changed("rows") {
				rows = windowRows(cmd.OutOrStdout())
			}
			return writeSnapshot(cmd.OutOrStdout(), c.Snapshot(rows))
		},
	}

	cmd.Flags().Uint64Var(&cycles, "cycles", 0, "cycles to simulate before the snapshot")
	cmd.Flags().IntVar(&rows, "rows", defaultRows, "instruction words in the memory window")

	return cmd
}

// windowRows sizes the memory window to the terminal w writes to.
func windowRows(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultRows
	}

	_, height, err := term.GetSize(int(f.Fd()))
	if err != nil || height <= regLines+headerLines+1 {
		return defaultRows
	}
	return height - regLines - headerLines
}

func writeSnapshot(w io.Writer, s core.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "pc 0x%016x\tcycle %d\n\n", s.PC, s.Cycle)

	for i := 0; i < len(s.Regs); i += 4 {
		for j := i; j < i+4; j++ {
			fmt.Fprintf(tw, "%s\t%016x\t", insts.RegName(uint8(j)), s.Regs[j])
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintln(tw)

	decoder := insts.NewDecoder()
	for _, row := range s.Window {
		if !row.Valid {
			fmt.Fprintf(tw, "0x%016x\t--------\t(unmapped)\n", row.Addr)
			continue
		}
		fmt.Fprintf(tw, "0x%016x\t%08x\t%s\n", row.Addr, row.Word, decoder.Decode(row.Word).Op)
	}

	return tw.Flush()
}
