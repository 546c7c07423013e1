package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvsim/insts"
)

var (
	// ErrIllegalInstruction is returned when the emulator reaches an
	// encoding it cannot decode.
	ErrIllegalInstruction = errors.New("illegal instruction")

	// ErrInstructionLimit is returned when the instruction budget runs out.
	ErrInstructionLimit = errors.New("instruction limit reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program halted (ECALL, EBREAK or tohost).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes RV64I instructions functionally, one per step. It is
// the reference model the timing pipeline is compared against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	csr     *CSRFile
	decoder *insts.Decoder

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	tohost    uint64
	hasTohost bool

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory sets the memory the emulator executes from.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithTohost makes a store of an odd value to addr halt the program with
// exit code value >> 1.
func WithTohost(addr uint64) EmulatorOption {
	return func(e *Emulator) {
		e.tohost = addr
		e.hasTohost = true
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new RV64I emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		csr:     NewCSRFile(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory()
	}

	e.alu = NewALU()
	e.lsu = NewLoadStoreUnit(e.memory)
	e.branchUnit = NewBranchUnit()

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// CSR returns the emulator's CSR file.
func (e *Emulator) CSR() *CSRFile {
	return e.csr
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram copies image to addr and sets the PC to entry.
func (e *Emulator) LoadProgram(image []byte, addr, entry uint64) error {
	if err := e.memory.LoadImage(image, addr); err != nil {
		return err
	}
	e.regFile.PC = entry
	return nil
}

// Step executes a single instruction.
// Returns a StepResult indicating whether execution should continue.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrInstructionLimit}
	}

	pc := e.regFile.PC
	word, err := e.memory.Fetch(pc)
	if err != nil {
		return StepResult{Err: err}
	}

	inst := e.decoder.Decode(word)
	result := e.execute(inst, pc)
	if result.Err == nil {
		e.instructionCount++
	}
	return result
}

// Run executes instructions until the program halts or an error occurs.
func (e *Emulator) Run() (int64, error) {
	for {
		result := e.Step()
		if result.Err != nil {
			return -1, result.Err
		}
		if result.Exited {
			return result.ExitCode, nil
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction, pc uint64) StepResult {
	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)
	next := pc + 4

	switch {
	case inst.Op == insts.OpUnknown:
		return StepResult{
			Err: fmt.Errorf("%w 0x%08x at pc 0x%x", ErrIllegalInstruction, inst.Word, pc),
		}

	case inst.IsHalt():
		e.regFile.PC = next
		return StepResult{Exited: true, ExitCode: int64(rs1)}

	case inst.Op == insts.OpMRET:
		e.regFile.PC = e.csr.Read(CSRMepc)
		return StepResult{}

	case inst.IsCSR():
		old := e.csr.Read(inst.CSR)
		if v, ok := CSRUpdate(inst, old, CSRSource(inst, rs1)); ok {
			e.csr.Write(inst.CSR, v)
		}
		e.regFile.WriteReg(inst.Rd, old)

	case inst.IsLoad():
		v, err := e.lsu.Load(inst, EffectiveAddress(inst, rs1))
		if err != nil {
			return StepResult{Err: err}
		}
		e.regFile.WriteReg(inst.Rd, v)

	case inst.IsStore():
		addr := EffectiveAddress(inst, rs1)
		if err := e.lsu.Store(inst, addr, rs2); err != nil {
			return StepResult{Err: err}
		}
		if e.hasTohost && addr == e.tohost && rs2&1 == 1 {
			e.regFile.PC = next
			return StepResult{Exited: true, ExitCode: int64(rs2 >> 1)}
		}

	default:
		if taken, target := e.branchUnit.Resolve(inst, pc, rs1, rs2); taken {
			next = target
		}
		if inst.WritesRd() {
			e.regFile.WriteReg(inst.Rd, e.alu.Operate(inst, pc, rs1, rs2))
		}
	}

	e.regFile.PC = next
	return StepResult{}
}
