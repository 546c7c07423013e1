// Package benchmarks provides a microbenchmark harness for the timing model.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/core"
)

// LoadAddr is where benchmark programs are placed and entered.
const LoadAddr uint64 = 0x8000_0000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of load-use stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// DataHazards is the number of cycles an operand was forwarded
	DataHazards uint64 `json:"data_hazards"`

	// PipelineFlushes is the number of taken control transfers
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// Squashed is the number of wrong-path instructions discarded
	Squashed uint64 `json:"squashed"`

	// ExitCode is the program's exit code
	ExitCode int64 `json:"exit_code"`

	// Verified is true when the exit code matches both the expected value
	// and the functional emulator
	Verified bool `json:"verified"`

	// Error is set when the run faulted
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the RV64 machine code, loaded and entered at LoadAddr
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine is the simulated machine; nil selects config.Default()
	Machine *config.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// AddBenchmarks adds benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks ...Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}
	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{Name: bench.Name, Description: bench.Description}

	c, err := core.New(h.config.Machine)
	if err == nil {
		err = c.Load(bench.Program, LoadAddr)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	c.SetStartPC(LoadAddr)

	start := time.Now()
	_, err = c.Run()
	result.WallTime = time.Since(start)

	stats := c.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.DataHazards = stats.DataHazards
	result.PipelineFlushes = stats.Flushes
	result.Squashed = stats.Squashed
	result.ExitCode = c.ExitCode()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ref, err := reference(bench, c.Config())
	if err != nil {
		result.Error = fmt.Sprintf("reference: %v", err)
		return result
	}
	result.Verified = result.ExitCode == bench.ExpectedExit && result.ExitCode == ref

	return result
}

// reference runs the benchmark on the functional emulator.
func reference(bench Benchmark, cfg *config.Config) (int64, error) {
	opts := []emu.EmulatorOption{
		emu.WithMemory(emu.NewMemory(cfg.MemoryOptions()...)),
		emu.WithMaxInstructions(cfg.MaxCycles),
	}
	if cfg.Tohost != 0 {
		opts = append(opts, emu.WithTohost(cfg.Tohost))
	}

	e := emu.NewEmulator(opts...)
	if err := e.LoadProgram(bench.Program, LoadAddr, LoadAddr); err != nil {
		return 0, err
	}
	return e.Run()
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "=== rvsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(w, "  Exit Code: %d (verified: %t)\n", r.ExitCode, r.Verified)
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(w, "  --- Timing ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Data Hazards:         %d\n", r.DataHazards)
		_, _ = fmt.Fprintf(w, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(w, "  Squashed:             %d\n", r.Squashed)
		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w,
		"name,cycles,instructions,cpi,stalls,data_hazards,flushes,squashed,exit_code,verified")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.DataHazards,
			r.PipelineFlushes,
			r.Squashed,
			r.ExitCode,
			r.Verified,
		)
	}
}

// BenchmarkReport is the JSON document written by PrintJSON.
type BenchmarkReport struct {
	BranchPolicy string            `json:"branch_policy"`
	Results      []BenchmarkResult `json:"results"`
}

// PrintJSON outputs benchmark results as an indented JSON report.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	machine := h.config.Machine
	if machine == nil {
		machine = config.Default()
	}

	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(BenchmarkReport{BranchPolicy: machine.BranchPolicy, Results: results})
}
