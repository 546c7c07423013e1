// Package core provides the cycle-level CPU model.
// It wraps the pipeline, memory block and register file behind a
// load-and-run interface.
package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/memory"
	"github.com/sarchlab/rvsim/timing/pipeline"
	"github.com/sarchlab/rvsim/timing/regfile"
)

// ErrCycleLimit is returned by Run when the program does not halt within
// the configured number of cycles.
var ErrCycleLimit = errors.New("cycle limit reached")

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Flushes is the number of taken control transfers.
	Flushes uint64
	// Squashed is the number of wrong-path instructions discarded.
	Squashed uint64
	// DataHazards is the number of cycles an operand was forwarded.
	DataHazards uint64
	// Drained is the number of instructions discarded behind a halt or
	// fault.
	Drained uint64
}

// CPI returns the cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger passed down to the pipeline.
func WithLogger(logger logr.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithMaxCycles overrides the configured cycle limit. Zero means no limit.
func WithMaxCycles(n uint64) Option {
	return func(c *Core) {
		c.maxCycles = n
	}
}

// WithBranchPolicy overrides the configured branch policy.
func WithBranchPolicy(p pipeline.BranchPolicy) Option {
	return func(c *Core) {
		c.policy = p
	}
}

// WithTohost overrides the configured tohost address.
func WithTohost(addr uint64) Option {
	return func(c *Core) {
		c.tohost = addr
	}
}

// Core is a single simulated hart.
type Core struct {
	cfg   *config.Config
	runID xid.ID

	memory  *emu.Memory
	block   *memory.Block
	regFile *regfile.RegFile
	pipe    *pipeline.Pipeline

	logger    logr.Logger
	maxCycles uint64
	policy    pipeline.BranchPolicy
	tohost    uint64
}

// New builds a core from cfg. A nil cfg selects config.Default().
func New(cfg *config.Config, opts ...Option) (*Core, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Core{
		cfg:       cfg.Clone(),
		runID:     xid.New(),
		logger:    logr.Discard(),
		maxCycles: cfg.MaxCycles,
		policy:    cfg.Policy(),
		tohost:    cfg.Tohost,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithValues("run", c.runID.String())

	c.memory = emu.NewMemory(c.cfg.MemoryOptions()...)
	c.block = memory.NewBlock(c.memory)
	c.regFile = regfile.New()

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithBranchPolicy(c.policy),
		pipeline.WithLogger(c.logger),
	}
	if c.tohost != 0 {
		pipeOpts = append(pipeOpts, pipeline.WithTohost(c.tohost))
	}
	c.pipe = pipeline.NewPipeline(c.regFile, c.block, pipeOpts...)

	startPC := c.cfg.StartPC
	if startPC == 0 {
		startPC = c.cfg.HighBase
	}
	c.pipe.SetPC(startPC)

	return c, nil
}

// RunID identifies this core in log output.
func (c *Core) RunID() xid.ID {
	return c.runID
}

// Config returns the configuration the core was built with.
func (c *Core) Config() *config.Config {
	return c.cfg
}

// Memory returns the backing store.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Pipeline returns the underlying pipeline.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipe
}

// Load copies image into memory at virtual address addr.
func (c *Core) Load(image []byte, addr uint64) error {
	if err := c.block.LoadImage(image, addr); err != nil {
		return fmt.Errorf("failed to load %d bytes at 0x%x: %w", len(image), addr, err)
	}
	return nil
}

// SetStartPC sets the address of the first instruction.
func (c *Core) SetStartPC(addr uint64) {
	c.pipe.SetPC(addr)
}

// Tick advances the core by one cycle.
func (c *Core) Tick() error {
	return c.pipe.Tick()
}

// Run ticks until the program halts, faults or hits the cycle limit. The
// register state is returned in every case.
func (c *Core) Run() (regfile.View, error) {
	c.logger.V(1).Info("run started", "policy", c.policy.String(), "maxCycles", c.maxCycles)

	for !c.pipe.Halted() {
		if c.maxCycles > 0 && c.pipe.Cycle() >= c.maxCycles {
			err := fmt.Errorf("%w: %d cycles", ErrCycleLimit, c.maxCycles)
			c.logger.V(1).Info("run stopped", "error", err.Error())
			return c.regFile.View(), err
		}
		if err := c.pipe.Tick(); err != nil {
			return c.regFile.View(), err
		}
	}

	stats := c.Stats()
	c.logger.V(1).Info("run finished",
		"exitCode", c.pipe.ExitCode(),
		"cycles", stats.Cycles, "instructions", stats.Instructions)

	return c.regFile.View(), nil
}

// Registers returns a copy of the register file.
func (c *Core) Registers() regfile.View {
	return c.regFile.View()
}

// Get returns a register by ABI or xN name.
func (c *Core) Get(name string) (uint64, error) {
	return c.regFile.Get(name)
}

// Halted returns true once the program halted or faulted.
func (c *Core) Halted() bool {
	return c.pipe.Halted()
}

// ExitCode returns the exit code of a halted program.
func (c *Core) ExitCode() int64 {
	return c.pipe.ExitCode()
}

// Err returns the fault that stopped the core, if any.
func (c *Core) Err() error {
	return c.pipe.Err()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.pipe.Stats()
	return Stats{
		Cycles:       s.Cycles,
		Instructions: s.Instructions,
		Stalls:       s.Stalls,
		Flushes:      s.Flushes,
		Squashed:     s.Squashed,
		DataHazards:  s.DataHazards,
		Drained:      s.Drained,
	}
}

// SimulatedTime converts the cycle count to time at the configured clock
// frequency.
func (c *Core) SimulatedTime() time.Duration {
	ns := float64(c.pipe.Cycle()) * float64(time.Second) / float64(c.cfg.ClockFreq)
	return time.Duration(math.Round(ns))
}
