package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/core"
)

// exitError carries a simulated program's non-zero exit code out of a
// command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("program exited with code %d", e.code)
}

type rootOptions struct {
	configPath string
	verbosity  int
	policy     string
	maxCycles  uint64
	profile    profiler
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rvsim",
		Short: "Cycle-level RV64I pipeline simulator",
		Long: `rvsim executes RV64I ELF binaries on a five-stage pipeline model with
a registered memory read port, and reports the final architectural state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "machine config file (YAML or JSON)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "log verbosity, repeat for more")
	flags.StringVar(&opts.policy, "branch-policy", "", "override the branch policy (squash, delay-slot)")
	flags.Uint64Var(&opts.maxCycles, "max-cycles", 0, "override the cycle limit")
	flags.StringVar(&opts.profile.cpuPath, "cpuprofile", "", "write a CPU profile of the simulator to file")
	flags.StringVar(&opts.profile.memPath, "memprofile", "", "write a heap profile of the simulator to file")

	for _, sub := range []*cobra.Command{
		newRunCmd(opts),
		newTestCmd(opts),
		newDumpCmd(opts),
		newBenchCmd(opts),
	} {
		sub.RunE = opts.profile.wrap(sub.RunE)
		cmd.AddCommand(sub)
	}

	return cmd
}

// config returns the configuration with command-line overrides applied.
func (o *rootOptions) config() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}

	if o.policy != "" {
		cfg.BranchPolicy = o.policy
	}
	if o.maxCycles != 0 {
		cfg.MaxCycles = o.maxCycles
	}

	return cfg, cfg.Validate()
}

// logger writes to w. It is safe to share between cores running in
// parallel.
func (o *rootOptions) logger(w io.Writer) logr.Logger {
	if o.verbosity == 0 {
		return logr.Discard()
	}
	var mu sync.Mutex
	return funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: o.verbosity})
}

// newCore loads the ELF at path into a fresh core. The start PC comes from
// the config when set and from the ELF entry point otherwise; the tohost
// address likewise falls back to the ELF symbol.
func newCore(path string, cfg *config.Config, logger logr.Logger) (*core.Core, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	coreOpts := []core.Option{core.WithLogger(logger.WithValues("elf", path))}
	if cfg.Tohost == 0 && prog.HasTohost {
		coreOpts = append(coreOpts, core.WithTohost(prog.Tohost))
	}

	c, err := core.New(cfg, coreOpts...)
	if err != nil {
		return nil, err
	}

	if err := prog.LoadInto(c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.StartPC == 0 {
		c.SetStartPC(prog.EntryPoint)
	}

	return c, nil
}
