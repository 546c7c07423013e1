package emu

import "github.com/sarchlab/rvsim/insts"

// BranchUnit resolves RV64I control transfers.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Condition evaluates a conditional branch comparison.
func (b *BranchUnit) Condition(op insts.Op, rs1, rs2 uint64) bool {
	switch op {
	case insts.OpBEQ:
		return rs1 == rs2
	case insts.OpBNE:
		return rs1 != rs2
	case insts.OpBLT:
		return int64(rs1) < int64(rs2)
	case insts.OpBGE:
		return int64(rs1) >= int64(rs2)
	case insts.OpBLTU:
		return rs1 < rs2
	case insts.OpBGEU:
		return rs1 >= rs2
	}
	return false
}

// Resolve reports whether inst at pc transfers control and to where.
// JALR clears bit 0 of the computed target.
func (b *BranchUnit) Resolve(inst *insts.Instruction, pc, rs1, rs2 uint64) (bool, uint64) {
	switch {
	case inst.Op == insts.OpJAL:
		return true, pc + uint64(inst.Imm)
	case inst.Op == insts.OpJALR:
		return true, (rs1 + uint64(inst.Imm)) &^ 1
	case inst.IsBranch():
		if b.Condition(inst.Op, rs1, rs2) {
			return true, pc + uint64(inst.Imm)
		}
	}
	return false, 0
}
