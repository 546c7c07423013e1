// Package config holds the simulator configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one simulated machine.
type Config struct {
	// MemorySize is the physical memory capacity in bytes.
	MemorySize uint64 `json:"memory_size" yaml:"memory_size"`

	// KernelBase is the physical address the high window maps to. Addresses
	// below it are direct-mapped.
	KernelBase uint64 `json:"kernel_base" yaml:"kernel_base"`

	// HighBase is the first virtual address of the high window.
	HighBase uint64 `json:"high_base" yaml:"high_base"`

	// StartPC overrides the entry point when non-zero. A core built with
	// StartPC zero starts at HighBase until SetStartPC is called.
	StartPC uint64 `json:"start_pc" yaml:"start_pc"`

	// MaxCycles stops the run with an error when non-zero.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	// Tohost is the address whose store halts the program. Zero disables
	// it unless the binary defines a tohost symbol.
	Tohost uint64 `json:"tohost" yaml:"tohost"`

	// BranchPolicy is "squash" or "delay-slot".
	BranchPolicy string `json:"branch_policy" yaml:"branch_policy"`

	// ClockFreq is used to report simulated time.
	ClockFreq sim.Freq `json:"clock_freq" yaml:"clock_freq"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		MemorySize:   emu.DefaultMemorySize,
		KernelBase:   emu.DefaultKernelBase,
		HighBase:     emu.DefaultHighBase,
		MaxCycles:    10_000_000,
		BranchPolicy: pipeline.BranchSquash.String(),
		ClockFreq:    1 * sim.GHz,
	}
}

// Load reads a configuration file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return c, nil
}

// Save writes the configuration in the format chosen by the extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks that the configuration describes a usable machine.
func (c *Config) Validate() error {
	if c.MemorySize == 0 {
		return fmt.Errorf("%w: memory_size must be > 0", ErrInvalidConfig)
	}
	if c.KernelBase > c.MemorySize {
		return fmt.Errorf("%w: kernel_base 0x%x is past memory_size 0x%x",
			ErrInvalidConfig, c.KernelBase, c.MemorySize)
	}
	if c.HighBase < c.KernelBase {
		return fmt.Errorf("%w: high_base 0x%x is below kernel_base 0x%x",
			ErrInvalidConfig, c.HighBase, c.KernelBase)
	}
	if c.StartPC%4 != 0 {
		return fmt.Errorf("%w: start_pc 0x%x is not 4-byte aligned", ErrInvalidConfig, c.StartPC)
	}
	if _, err := pipeline.ParseBranchPolicy(c.BranchPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ClockFreq <= 0 {
		return fmt.Errorf("%w: clock_freq must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Policy returns the parsed branch policy. It falls back to BranchSquash
// for names Validate would reject.
func (c *Config) Policy() pipeline.BranchPolicy {
	p, _ := pipeline.ParseBranchPolicy(c.BranchPolicy)
	return p
}

// MemoryOptions returns the options that build the configured memory.
func (c *Config) MemoryOptions() []emu.MemoryOption {
	return []emu.MemoryOption{
		emu.WithMemorySize(c.MemorySize),
		emu.WithKernelBase(c.KernelBase),
		emu.WithHighBase(c.HighBase),
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
