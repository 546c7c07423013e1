package emu

import "github.com/sarchlab/rvsim/insts"

// CSR numbers used by the machine-mode test environment.
const (
	CSRSatp     uint16 = 0x180
	CSRMstatus  uint16 = 0x300
	CSRMedeleg  uint16 = 0x302
	CSRMideleg  uint16 = 0x303
	CSRMie      uint16 = 0x304
	CSRMtvec    uint16 = 0x305
	CSRMscratch uint16 = 0x340
	CSRMepc     uint16 = 0x341
	CSRMcause   uint16 = 0x342
	CSRMhartid  uint16 = 0xF14
)

// NumCSRs is the size of the CSR address space.
const NumCSRs = 4096

// CSRFile is a scratch store for control and status registers. It keeps
// values only; no privilege or trap semantics are attached to them.
type CSRFile struct {
	regs [NumCSRs]uint64
}

// NewCSRFile creates a zeroed CSR file.
func NewCSRFile() *CSRFile {
	return &CSRFile{}
}

// Read returns the value of csr. mhartid always reads 0.
func (c *CSRFile) Read(csr uint16) uint64 {
	if csr == CSRMhartid {
		return 0
	}
	return c.regs[csr%NumCSRs]
}

// Write sets the value of csr. Writes to mhartid are ignored.
func (c *CSRFile) Write(csr uint16, value uint64) {
	if csr == CSRMhartid {
		return
	}
	c.regs[csr%NumCSRs] = value
}

// CSRSource returns the operand a CSR instruction applies: the rs1 value
// for register forms and the zero-extended immediate for immediate forms.
func CSRSource(inst *insts.Instruction, rs1 uint64) uint64 {
	switch inst.Op {
	case insts.OpCSRRWI, insts.OpCSRRSI, insts.OpCSRRCI:
		return uint64(inst.Imm)
	}
	return rs1
}

// CSRUpdate computes the new value of a CSR from its old value and the
// source operand. The second result is false when the instruction must
// not write the CSR (set/clear with x0 or a zero immediate).
func CSRUpdate(inst *insts.Instruction, old, src uint64) (uint64, bool) {
	noSource := inst.Rs1 == 0 && inst.Imm == 0

	switch inst.Op {
	case insts.OpCSRRW, insts.OpCSRRWI:
		return src, true
	case insts.OpCSRRS, insts.OpCSRRSI:
		return old | src, !noSource
	case insts.OpCSRRC, insts.OpCSRRCI:
		return old &^ src, !noSource
	}
	return old, false
}
