package pipeline

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/clock"
	"github.com/sarchlab/rvsim/timing/memory"
	"github.com/sarchlab/rvsim/timing/regfile"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Flushes is the number of control transfers that redirected fetch.
	Flushes uint64
	// Squashed is the number of wrong-path instructions discarded.
	Squashed uint64
	// DataHazards is the number of RAW data hazards resolved by forwarding.
	DataHazards uint64
	// Drained is the number of instructions discarded behind a halt or
	// fault.
	Drained uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithBranchPolicy sets how wrong-path instructions are handled.
func WithBranchPolicy(policy BranchPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithTohost makes a store of an odd value to addr halt the program with
// exit code value >> 1.
func WithTohost(addr uint64) PipelineOption {
	return func(p *Pipeline) {
		p.tohost = addr
		p.hasTohost = true
	}
}

// WithLogger sets the logger. Redirects, halts and faults are logged at
// V(1); every cycle is logged at V(2).
func WithLogger(logger logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithCSRFile sets the CSR file the pipeline executes against.
func WithCSRFile(file *emu.CSRFile) PipelineOption {
	return func(p *Pipeline) {
		p.csrFile = file
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
//
// Every stage computes its outputs from latch values committed at the
// previous edge, then a single clock domain commits all state at once.
type Pipeline struct {
	// Pipeline registers
	ifid  clock.Reg[IFIDRegister]
	idex  clock.Reg[IDEXRegister]
	exmem clock.Reg[EXMEMRegister]
	memwb clock.Reg[MEMWBRegister]

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit

	// Shared resources
	regFile *regfile.RegFile
	block   *memory.Block
	csrFile *emu.CSRFile
	csr     *CSRUnit

	domain *clock.Domain
	logger logr.Logger

	policy    BranchPolicy
	tohost    uint64
	hasTohost bool

	// Statistics
	stats Statistics

	// Execution state
	halted   bool
	exitCode int64
	err      error
}

// NewPipeline creates a new 5-stage pipeline.
func NewPipeline(regFile *regfile.RegFile, block *memory.Block, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:    regFile,
		block:      block,
		hazardUnit: NewHazardUnit(),
		domain:     clock.NewDomain(),
		logger:     logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.csrFile == nil {
		p.csrFile = emu.NewCSRFile()
	}
	p.csr = NewCSRUnit(p.csrFile)

	p.fetchStage = NewFetchStage(block)
	p.decodeStage = NewDecodeStage(regFile)
	p.executeStage = NewExecuteStage(p.csr, p.policy)
	p.memoryStage = NewMemoryStage(block)
	p.writebackStage = NewWritebackStage(regFile)
	if p.hasTohost {
		p.executeStage.SetTohost(p.tohost)
	}

	p.domain.Register(
		&p.ifid, &p.idex, &p.exmem, &p.memwb,
		p.fetchStage, p.executeStage, p.memoryStage,
		p.csr, block, regFile,
	)

	return p
}

// PC returns the next address fetch requests.
func (p *Pipeline) PC() uint64 {
	return p.fetchStage.PC()
}

// SetPC sets the address of the first instruction to fetch.
func (p *Pipeline) SetPC(pc uint64) {
	p.fetchStage.Reset(pc)
}

// IFID returns the committed IF/ID pipeline register.
func (p *Pipeline) IFID() IFIDRegister {
	return p.ifid.Get()
}

// IDEX returns the committed ID/EX pipeline register.
func (p *Pipeline) IDEX() IDEXRegister {
	return p.idex.Get()
}

// EXMEM returns the committed EX/MEM pipeline register.
func (p *Pipeline) EXMEM() EXMEMRegister {
	return p.exmem.Get()
}

// MEMWB returns the committed MEM/WB pipeline register.
func (p *Pipeline) MEMWB() MEMWBRegister {
	return p.memwb.Get()
}

// Policy returns the branch policy.
func (p *Pipeline) Policy() BranchPolicy {
	return p.policy
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has stopped.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code of the halted program.
func (p *Pipeline) ExitCode() int64 {
	return p.exitCode
}

// Err returns the fault that stopped the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// RunCycles executes the pipeline for up to the given number of cycles.
// It returns true if the pipeline is still running.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	return !p.halted, nil
}

// Tick executes one pipeline cycle. It returns the fault that stopped the
// pipeline, if one reached write-back. Ticking a halted pipeline does
// nothing.
func (p *Pipeline) Tick() error {
	if p.halted {
		return p.err
	}

	ifid := p.ifid.Get()
	idex := p.idex.Get()
	exmem := p.exmem.Get()
	memwb := p.memwb.Get()

	// Detect hazards before executing stages
	forwarding := p.hazardUnit.DetectForwarding(&idex, &exmem, &memwb)
	if forwarding.Any() {
		p.stats.DataHazards++
	}
	stall := p.hazardUnit.DetectLoadUseHazard(&idex, p.decodeStage.Peek(&ifid))

	// Stage 5: Writeback
	if p.writebackStage.Writeback(&memwb) {
		p.stats.Instructions++
	}

	// Stage 4: Memory
	p.memwb.Set(p.memoryStage.Access(&exmem))

	// Stage 3: Execute
	rs1 := p.hazardUnit.GetForwardedValue(forwarding.ForwardRs1, idex.Rs1Value, &exmem, &memwb)
	rs2 := p.hazardUnit.GetForwardedValue(forwarding.ForwardRs2, idex.Rs2Value, &exmem, &memwb)
	nextEXMEM, execResult := p.executeStage.Execute(&idex, rs1, rs2)
	p.exmem.Set(nextEXMEM)
	switch {
	case execResult.Squashed:
		p.stats.Squashed++
	case execResult.Drained:
		p.stats.Drained++
	}
	if execResult.Redirect.Valid {
		p.stats.Flushes++
		p.logger.V(1).Info("redirect",
			"pc", idex.PC, "target", execResult.Redirect.Target,
			"epoch", execResult.Redirect.Epoch)
	}

	// Stage 2: Decode
	if stall {
		p.stats.Stalls++
		p.idex.Set(IDEXRegister{})
	} else {
		p.idex.Set(p.decodeStage.Decode(&ifid, &memwb))
	}

	// Stage 1: Fetch
	p.fetchStage.Fetch(p.executeStage.Redirect(), stall, &p.ifid)

	p.domain.Tick()
	p.stats.Cycles++

	p.logger.V(2).Info("cycle",
		"cycle", p.stats.Cycles, "fetchPC", p.fetchStage.PC(),
		"stall", stall, "retired", p.stats.Instructions)

	if err := p.block.Err(); err != nil {
		p.stop(0, err)
		return err
	}

	return p.retire(&memwb)
}

// retire reports a halt or fault that reached write-back this cycle.
func (p *Pipeline) retire(memwb *MEMWBRegister) error {
	if !memwb.Valid {
		return nil
	}

	if memwb.Fault != nil {
		p.logger.V(1).Info("fault", "pc", memwb.PC, "error", memwb.Fault.Error())
		p.stop(0, memwb.Fault)
		return memwb.Fault
	}

	if memwb.Halt {
		p.logger.V(1).Info("halt", "pc", memwb.PC, "exitCode", memwb.ExitCode)
		p.stop(memwb.ExitCode, nil)
	}

	return nil
}

func (p *Pipeline) stop(exitCode int64, err error) {
	p.halted = true
	p.exitCode = exitCode
	p.err = err
}

// Cycle returns the number of clock edges so far.
func (p *Pipeline) Cycle() uint64 {
	return p.domain.Cycle()
}
