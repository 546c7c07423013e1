// Package emu provides functional RV64I emulation.
//
// It holds the parts of execution that do not depend on timing: the
// translated physical memory, the ALU, branch resolution, load/store
// extension, the CSR file and a functional reference Emulator. The timing
// pipeline reuses the same units, so both models compute identical results.
package emu

import "github.com/sarchlab/rvsim/insts"

// ALU implements RV64I arithmetic and logic operations.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute applies op to two 64-bit operands. Register-immediate forms take
// the sign-extended immediate as b. Unknown operations return 0.
func (a *ALU) Compute(op insts.Op, x, y uint64) uint64 {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return x + y
	case insts.OpSUB:
		return x - y
	case insts.OpSLL, insts.OpSLLI:
		return x << (y & 63)
	case insts.OpSLT, insts.OpSLTI:
		return boolToUint(int64(x) < int64(y))
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToUint(x < y)
	case insts.OpXOR, insts.OpXORI:
		return x ^ y
	case insts.OpOR, insts.OpORI:
		return x | y
	case insts.OpAND, insts.OpANDI:
		return x & y
	case insts.OpSRL, insts.OpSRLI:
		return x >> (y & 63)
	case insts.OpSRA, insts.OpSRAI:
		return uint64(int64(x) >> (y & 63))

	case insts.OpADDW, insts.OpADDIW:
		return signExtend32(uint32(x) + uint32(y))
	case insts.OpSUBW:
		return signExtend32(uint32(x) - uint32(y))
	case insts.OpSLLW, insts.OpSLLIW:
		return signExtend32(uint32(x) << (y & 31))
	case insts.OpSRLW, insts.OpSRLIW:
		return signExtend32(uint32(x) >> (y & 31))
	case insts.OpSRAW, insts.OpSRAIW:
		return uint64(int64(int32(x) >> (y & 31)))
	}
	return 0
}

// Operate computes the register result of a non-memory instruction given
// its PC and source operand values.
func (a *ALU) Operate(inst *insts.Instruction, pc, rs1, rs2 uint64) uint64 {
	imm := uint64(inst.Imm)

	switch inst.Op {
	case insts.OpLUI:
		return imm
	case insts.OpAUIPC:
		return pc + imm
	case insts.OpJAL, insts.OpJALR:
		return pc + 4
	}

	switch inst.Format {
	case insts.FormatR:
		return a.Compute(inst.Op, rs1, rs2)
	case insts.FormatI:
		return a.Compute(inst.Op, rs1, imm)
	}
	return 0
}

func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
