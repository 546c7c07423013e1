package insts

import "fmt"

// Op represents an RV64I operation.
type Op uint16

// RV64I operations.
const (
	OpUnknown Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU

	OpSB
	OpSH
	OpSW
	OpSD

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK
	OpMRET

	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	numOps
)

var opNames = [numOps]string{
	OpUnknown: "unknown",
	OpLUI:     "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLD: "ld", OpLBU: "lbu", OpLHU: "lhu", OpLWU: "lwu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSD: "sd",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori",
	OpANDI: "andi", OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpADDIW: "addiw", OpSLLIW: "slliw", OpSRLIW: "srliw", OpSRAIW: "sraiw",
	OpADDW: "addw", OpSUBW: "subw", OpSLLW: "sllw", OpSRLW: "srlw", OpSRAW: "sraw",
	OpFENCE: "fence", OpFENCEI: "fence.i", OpECALL: "ecall", OpEBREAK: "ebreak", OpMRET: "mret",
	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc",
	OpCSRRWI: "csrrwi", OpCSRRSI: "csrrsi", OpCSRRCI: "csrrci",
}

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint16(op))
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register-register
	FormatI              // Immediate (ALU, loads, JALR)
	FormatS              // Store
	FormatB              // Conditional branch
	FormatU              // Upper immediate
	FormatJ              // Jump
	FormatSystem         // FENCE, ECALL, EBREAK, MRET, CSR
)

// Major opcodes (bits [6:0]).
const (
	opcodeLoad     = 0b0000011
	opcodeMiscMem  = 0b0001111
	opcodeOpImm    = 0b0010011
	opcodeAUIPC    = 0b0010111
	opcodeOpImm32  = 0b0011011
	opcodeStore    = 0b0100011
	opcodeOp       = 0b0110011
	opcodeLUI      = 0b0110111
	opcodeOp32     = 0b0111011
	opcodeBranch   = 0b1100011
	opcodeJALR     = 0b1100111
	opcodeJAL      = 0b1101111
	opcodeSystem   = 0b1110011
	wordECALL      = 0x00000073
	wordEBREAK     = 0x00100073
	wordMRET       = 0x30200073
	funct7Alt      = 0b0100000
	funct6ShiftAlt = 0b010000
)

// Instruction represents a decoded RV64I instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format
	Word   uint32 // Raw instruction word

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	// Imm is the sign-extended immediate. For shifts it holds the shift
	// amount, for CSR immediate forms the zero-extended 5-bit zimm.
	Imm int64

	// CSR is the CSR number for Zicsr instructions.
	CSR uint16

	// Memory access fields for loads and stores.
	MemWidth uint8 // Access size in bytes: 1, 2, 4 or 8
	Unsigned bool  // Zero-extend the loaded value
}

// IsLoad reports whether the instruction reads data memory.
func (i *Instruction) IsLoad() bool {
	return i.Op >= OpLB && i.Op <= OpLWU
}

// IsStore reports whether the instruction writes data memory.
func (i *Instruction) IsStore() bool {
	return i.Op >= OpSB && i.Op <= OpSD
}

// IsBranch reports whether the instruction is a conditional branch.
func (i *Instruction) IsBranch() bool {
	return i.Op >= OpBEQ && i.Op <= OpBGEU
}

// IsJump reports whether the instruction is an unconditional jump.
func (i *Instruction) IsJump() bool {
	return i.Op == OpJAL || i.Op == OpJALR
}

// IsCSR reports whether the instruction is a Zicsr instruction.
func (i *Instruction) IsCSR() bool {
	return i.Op >= OpCSRRW && i.Op <= OpCSRRCI
}

// IsHalt reports whether the instruction stops the simulated program.
func (i *Instruction) IsHalt() bool {
	return i.Op == OpECALL || i.Op == OpEBREAK
}

// WritesRd reports whether the instruction produces a register result.
// Writes to x0 are reported as false.
func (i *Instruction) WritesRd() bool {
	if i.Rd == 0 {
		return false
	}
	switch {
	case i.Op == OpUnknown, i.IsBranch(), i.IsStore():
		return false
	case i.Op == OpFENCE, i.Op == OpFENCEI, i.Op == OpMRET, i.IsHalt():
		return false
	}
	return true
}

// UsesRs1 reports whether the instruction reads Rs1.
func (i *Instruction) UsesRs1() bool {
	switch i.Format {
	case FormatR, FormatI, FormatS, FormatB:
		return true
	case FormatSystem:
		return i.Op == OpCSRRW || i.Op == OpCSRRS || i.Op == OpCSRRC || i.IsHalt()
	}
	return false
}

// UsesRs2 reports whether the instruction reads Rs2.
func (i *Instruction) UsesRs2() bool {
	switch i.Format {
	case FormatR, FormatS, FormatB:
		return true
	}
	return false
}

// Decoder decodes RV64I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV64I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV64I instruction word.
// Unrecognized encodings decode to OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown, Word: word}

	if word&0b11 != 0b11 {
		// Compressed encodings are not part of RV64I.
		return inst
	}

	switch word & 0x7F {
	case opcodeLUI:
		d.decodeUpper(word, inst, OpLUI)
	case opcodeAUIPC:
		d.decodeUpper(word, inst, OpAUIPC)
	case opcodeJAL:
		d.decodeJAL(word, inst)
	case opcodeJALR:
		d.decodeJALR(word, inst)
	case opcodeBranch:
		d.decodeBranch(word, inst)
	case opcodeLoad:
		d.decodeLoad(word, inst)
	case opcodeStore:
		d.decodeStore(word, inst)
	case opcodeOpImm:
		d.decodeOpImm(word, inst)
	case opcodeOpImm32:
		d.decodeOpImm32(word, inst)
	case opcodeOp:
		d.decodeOp(word, inst)
	case opcodeOp32:
		d.decodeOp32(word, inst)
	case opcodeMiscMem:
		d.decodeMiscMem(word, inst)
	case opcodeSystem:
		d.decodeSystem(word, inst)
	}

	return inst
}

func rd(word uint32) uint8 { return uint8((word >> 7) & 0x1F) }

func funct3(word uint32) uint32 { return (word >> 12) & 0x7 }

func rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }

func rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }

func funct7(word uint32) uint32 { return word >> 25 }

// immI extracts the sign-extended 12-bit I-type immediate.
func immI(word uint32) int64 {
	return int64(int32(word) >> 20)
}

// immS extracts the sign-extended 12-bit S-type immediate.
// Format: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func immS(word uint32) int64 {
	hi := int32(word) >> 25 << 5
	lo := int32((word >> 7) & 0x1F)
	return int64(hi | lo)
}

// immB extracts the sign-extended 13-bit B-type offset.
// Format: imm[12|10:5] | rs2 | rs1 | funct3 | imm[4:1|11] | opcode
func immB(word uint32) int64 {
	imm := int32(word) >> 31 << 12
	imm |= int32((word>>7)&0x1) << 11
	imm |= int32((word>>25)&0x3F) << 5
	imm |= int32((word>>8)&0xF) << 1
	return int64(imm)
}

// immU extracts the sign-extended U-type immediate (already shifted by 12).
func immU(word uint32) int64 {
	return int64(int32(word & 0xFFFFF000))
}

// immJ extracts the sign-extended 21-bit J-type offset.
// Format: imm[20|10:1|11|19:12] | rd | opcode
func immJ(word uint32) int64 {
	imm := int32(word) >> 31 << 20
	imm |= int32((word>>12)&0xFF) << 12
	imm |= int32((word>>20)&0x1) << 11
	imm |= int32((word>>21)&0x3FF) << 1
	return int64(imm)
}

func (d *Decoder) decodeUpper(word uint32, inst *Instruction, op Op) {
	inst.Format = FormatU
	inst.Op = op
	inst.Rd = rd(word)
	inst.Imm = immU(word)
}

func (d *Decoder) decodeJAL(word uint32, inst *Instruction) {
	inst.Format = FormatJ
	inst.Op = OpJAL
	inst.Rd = rd(word)
	inst.Imm = immJ(word)
}

func (d *Decoder) decodeJALR(word uint32, inst *Instruction) {
	if funct3(word) != 0 {
		return
	}
	inst.Format = FormatI
	inst.Op = OpJALR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
}

var branchOps = [8]Op{
	0b000: OpBEQ,
	0b001: OpBNE,
	0b100: OpBLT,
	0b101: OpBGE,
	0b110: OpBLTU,
	0b111: OpBGEU,
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	op := branchOps[funct3(word)]
	if op == OpUnknown {
		return
	}
	inst.Format = FormatB
	inst.Op = op
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immB(word)
}

type memOp struct {
	op       Op
	width    uint8
	unsigned bool
}

var loadOps = [8]memOp{
	0b000: {OpLB, 1, false},
	0b001: {OpLH, 2, false},
	0b010: {OpLW, 4, false},
	0b011: {OpLD, 8, false},
	0b100: {OpLBU, 1, true},
	0b101: {OpLHU, 2, true},
	0b110: {OpLWU, 4, true},
}

var storeOps = [8]memOp{
	0b000: {OpSB, 1, false},
	0b001: {OpSH, 2, false},
	0b010: {OpSW, 4, false},
	0b011: {OpSD, 8, false},
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	m := loadOps[funct3(word)]
	if m.op == OpUnknown {
		return
	}
	inst.Format = FormatI
	inst.Op = m.op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
	inst.MemWidth = m.width
	inst.Unsigned = m.unsigned
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	m := storeOps[funct3(word)]
	if m.op == OpUnknown {
		return
	}
	inst.Format = FormatS
	inst.Op = m.op
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immS(word)
	inst.MemWidth = m.width
}

// decodeOpImm decodes OP-IMM instructions.
// Shifts take a 6-bit shamt in bits [25:20] and a funct6 in bits [31:26].
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	f3 := funct3(word)
	funct6 := word >> 26
	shamt := int64((word >> 20) & 0x3F)

	switch f3 {
	case 0b000:
		inst.Op = OpADDI
	case 0b010:
		inst.Op = OpSLTI
	case 0b011:
		inst.Op = OpSLTIU
	case 0b100:
		inst.Op = OpXORI
	case 0b110:
		inst.Op = OpORI
	case 0b111:
		inst.Op = OpANDI
	case 0b001:
		if funct6 != 0 {
			return
		}
		inst.Op = OpSLLI
	case 0b101:
		switch funct6 {
		case 0:
			inst.Op = OpSRLI
		case funct6ShiftAlt:
			inst.Op = OpSRAI
		default:
			return
		}
	}

	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	if f3 == 0b001 || f3 == 0b101 {
		inst.Imm = shamt
	} else {
		inst.Imm = immI(word)
	}
}

// decodeOpImm32 decodes OP-IMM-32 (ADDIW and the 5-bit W shifts).
func (d *Decoder) decodeOpImm32(word uint32, inst *Instruction) {
	f3 := funct3(word)
	f7 := funct7(word)

	switch {
	case f3 == 0b000:
		inst.Op = OpADDIW
		inst.Imm = immI(word)
	case f3 == 0b001 && f7 == 0:
		inst.Op = OpSLLIW
	case f3 == 0b101 && f7 == 0:
		inst.Op = OpSRLIW
	case f3 == 0b101 && f7 == funct7Alt:
		inst.Op = OpSRAIW
	default:
		return
	}

	if inst.Op != OpADDIW {
		inst.Imm = int64((word >> 20) & 0x1F)
	}
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
}

var regOps = map[uint32]Op{
	0b000:                OpADD,
	0b001:                OpSLL,
	0b010:                OpSLT,
	0b011:                OpSLTU,
	0b100:                OpXOR,
	0b101:                OpSRL,
	0b110:                OpOR,
	0b111:                OpAND,
	funct7Alt<<3 | 0b000: OpSUB,
	funct7Alt<<3 | 0b101: OpSRA,
}

var regOps32 = map[uint32]Op{
	0b000:                OpADDW,
	0b001:                OpSLLW,
	0b101:                OpSRLW,
	funct7Alt<<3 | 0b000: OpSUBW,
	funct7Alt<<3 | 0b101: OpSRAW,
}

func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	d.decodeRegister(word, inst, regOps)
}

func (d *Decoder) decodeOp32(word uint32, inst *Instruction) {
	d.decodeRegister(word, inst, regOps32)
}

// decodeRegister decodes R-type instructions keyed by funct7:funct3.
func (d *Decoder) decodeRegister(word uint32, inst *Instruction, table map[uint32]Op) {
	op, ok := table[funct7(word)<<3|funct3(word)]
	if !ok {
		return
	}
	inst.Format = FormatR
	inst.Op = op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
}

func (d *Decoder) decodeMiscMem(word uint32, inst *Instruction) {
	switch funct3(word) {
	case 0b000:
		inst.Op = OpFENCE
	case 0b001:
		inst.Op = OpFENCEI
	default:
		return
	}
	inst.Format = FormatSystem
}

var csrOps = [8]Op{
	0b001: OpCSRRW,
	0b010: OpCSRRS,
	0b011: OpCSRRC,
	0b101: OpCSRRWI,
	0b110: OpCSRRSI,
	0b111: OpCSRRCI,
}

func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	f3 := funct3(word)
	if f3 == 0 {
		switch word {
		case wordECALL:
			inst.Op = OpECALL
		case wordEBREAK:
			inst.Op = OpEBREAK
		case wordMRET:
			inst.Op = OpMRET
		default:
			return
		}
		inst.Format = FormatSystem
		if inst.IsHalt() {
			// a0 carries the exit status.
			inst.Rs1 = RegA0
		}
		return
	}

	op := csrOps[f3]
	if op == OpUnknown {
		return
	}
	inst.Format = FormatSystem
	inst.Op = op
	inst.Rd = rd(word)
	inst.CSR = uint16(word >> 20)
	if f3 >= 0b101 {
		inst.Imm = int64(rs1(word))
	} else {
		inst.Rs1 = rs1(word)
	}
}
