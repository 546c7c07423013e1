// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/rvsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint64

	// Epoch is the fetch epoch the instruction was fetched in.
	Epoch uint8

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// Err is set if the fetch faulted.
	Err error
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC    uint64
	Epoch uint8

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register values read in decode.
	Rs1Value uint64
	Rs2Value uint64

	// Fault is a fetch or decode fault raised if the instruction executes.
	Fault error
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALU result (address for load/store, result for everything else).
	ALUResult uint64

	// Value to store for store instructions.
	StoreValue uint64

	// Destination register number.
	Rd uint8

	// Control signals.
	MemRead  bool
	MemWrite bool
	RegWrite bool

	// Halt marks the instruction that stops the program.
	Halt     bool
	ExitCode int64

	// Fault is reported when the instruction reaches write-back.
	Fault error
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Value is the register result, loaded from memory for loads.
	Value uint64

	// Destination register number.
	Rd uint8

	// RegWrite is true if Value is written to Rd.
	RegWrite bool

	Halt     bool
	ExitCode int64
	Fault    error
}

// Redirect is the control-transfer side channel from Execute to Fetch.
// It is registered, so Fetch sees it the cycle after Execute resolves the
// transfer.
type Redirect struct {
	Valid  bool
	Target uint64
	Epoch  uint8
}
