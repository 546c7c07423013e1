package insts

import "encoding/binary"

// Encoders for building small test programs. Immediates are truncated to
// the width of their field; callers are responsible for range.

func encodeR(opcode, f3, f7 uint32, rd, rs1, rs2 uint8) uint32 {
	return f7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | f3<<12 | uint32(rd)<<7 | opcode
}

func encodeI(opcode, f3 uint32, rd, rs1 uint8, imm int64) uint32 {
	return uint32(imm&0xFFF)<<20 | uint32(rs1)<<15 | f3<<12 | uint32(rd)<<7 | opcode
}

func encodeS(opcode, f3 uint32, rs1, rs2 uint8, imm int64) uint32 {
	u := uint32(imm & 0xFFF)
	return (u>>5)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | f3<<12 | (u&0x1F)<<7 | opcode
}

func encodeB(f3 uint32, rs1, rs2 uint8, off int64) uint32 {
	u := uint32(off & 0x1FFF)
	return (u>>12&1)<<31 | (u>>5&0x3F)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		f3<<12 | (u>>1&0xF)<<8 | (u>>11&1)<<7 | opcodeBranch
}

func encodeJ(rd uint8, off int64) uint32 {
	u := uint32(off & 0x1FFFFF)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 | (u>>12&0xFF)<<12 |
		uint32(rd)<<7 | opcodeJAL
}

// LUI encodes lui rd, imm where imm is the 20-bit upper immediate.
func LUI(rd uint8, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | uint32(rd)<<7 | opcodeLUI
}

// AUIPC encodes auipc rd, imm20.
func AUIPC(rd uint8, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | uint32(rd)<<7 | opcodeAUIPC
}

// JAL encodes jal rd, off.
func JAL(rd uint8, off int64) uint32 { return encodeJ(rd, off) }

// JALR encodes jalr rd, off(rs1).
func JALR(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeJALR, 0, rd, rs1, off) }

// BEQ encodes beq rs1, rs2, off.
func BEQ(rs1, rs2 uint8, off int64) uint32 { return encodeB(0b000, rs1, rs2, off) }

// BNE encodes bne rs1, rs2, off.
func BNE(rs1, rs2 uint8, off int64) uint32 { return encodeB(0b001, rs1, rs2, off) }

// BLT encodes blt rs1, rs2, off.
func BLT(rs1, rs2 uint8, off int64) uint32 { return encodeB(0b100, rs1, rs2, off) }

// BGE encodes bge rs1, rs2, off.
func BGE(rs1, rs2 uint8, off int64) uint32 { return encodeB(0b101, rs1, rs2, off) }

// BLTU encodes bltu rs1, rs2, off.
func BLTU(rs1, rs2 uint8, off int64) uint32 { return encodeB(0b110, rs1, rs2, off) }

// BGEU encodes bgeu rs1, rs2, off.
func BGEU(rs1, rs2 uint8, off int64) uint32 { return encodeB(0b111, rs1, rs2, off) }

// LB encodes lb rd, off(rs1).
func LB(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b000, rd, rs1, off) }

// LH encodes lh rd, off(rs1).
func LH(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b001, rd, rs1, off) }

// LW encodes lw rd, off(rs1).
func LW(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b010, rd, rs1, off) }

// LD encodes ld rd, off(rs1).
func LD(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b011, rd, rs1, off) }

// LBU encodes lbu rd, off(rs1).
func LBU(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b100, rd, rs1, off) }

// LHU encodes lhu rd, off(rs1).
func LHU(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b101, rd, rs1, off) }

// LWU encodes lwu rd, off(rs1).
func LWU(rd, rs1 uint8, off int64) uint32 { return encodeI(opcodeLoad, 0b110, rd, rs1, off) }

// SB encodes sb rs2, off(rs1).
func SB(rs2, rs1 uint8, off int64) uint32 { return encodeS(opcodeStore, 0b000, rs1, rs2, off) }

// SH encodes sh rs2, off(rs1).
func SH(rs2, rs1 uint8, off int64) uint32 { return encodeS(opcodeStore, 0b001, rs1, rs2, off) }

// SW encodes sw rs2, off(rs1).
func SW(rs2, rs1 uint8, off int64) uint32 { return encodeS(opcodeStore, 0b010, rs1, rs2, off) }

// SD encodes sd rs2, off(rs1).
func SD(rs2, rs1 uint8, off int64) uint32 { return encodeS(opcodeStore, 0b011, rs1, rs2, off) }

// ADDI encodes addi rd, rs1, imm.
func ADDI(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm, 0b000, rd, rs1, imm) }

// SLTI encodes slti rd, rs1, imm.
func SLTI(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm, 0b010, rd, rs1, imm) }

// SLTIU encodes sltiu rd, rs1, imm.
func SLTIU(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm, 0b011, rd, rs1, imm) }

// XORI encodes xori rd, rs1, imm.
func XORI(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm, 0b100, rd, rs1, imm) }

// ORI encodes ori rd, rs1, imm.
func ORI(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm, 0b110, rd, rs1, imm) }

// ANDI encodes andi rd, rs1, imm.
func ANDI(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm, 0b111, rd, rs1, imm) }

// SLLI encodes slli rd, rs1, shamt.
func SLLI(rd, rs1 uint8, shamt uint8) uint32 {
	return encodeI(opcodeOpImm, 0b001, rd, rs1, int64(shamt&0x3F))
}

// SRLI encodes srli rd, rs1, shamt.
func SRLI(rd, rs1 uint8, shamt uint8) uint32 {
	return encodeI(opcodeOpImm, 0b101, rd, rs1, int64(shamt&0x3F))
}

// SRAI encodes srai rd, rs1, shamt.
func SRAI(rd, rs1 uint8, shamt uint8) uint32 {
	return encodeI(opcodeOpImm, 0b101, rd, rs1, int64(funct6ShiftAlt<<6|uint32(shamt&0x3F)))
}

// ADDIW encodes addiw rd, rs1, imm.
func ADDIW(rd, rs1 uint8, imm int64) uint32 { return encodeI(opcodeOpImm32, 0b000, rd, rs1, imm) }

// SLLIW encodes slliw rd, rs1, shamt.
func SLLIW(rd, rs1 uint8, shamt uint8) uint32 {
	return encodeI(opcodeOpImm32, 0b001, rd, rs1, int64(shamt&0x1F))
}

// SRLIW encodes srliw rd, rs1, shamt.
func SRLIW(rd, rs1 uint8, shamt uint8) uint32 {
	return encodeI(opcodeOpImm32, 0b101, rd, rs1, int64(shamt&0x1F))
}

// SRAIW encodes sraiw rd, rs1, shamt.
func SRAIW(rd, rs1 uint8, shamt uint8) uint32 {
	return encodeI(opcodeOpImm32, 0b101, rd, rs1, int64(funct7Alt<<5|uint32(shamt&0x1F)))
}

// ADD encodes add rd, rs1, rs2.
func ADD(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b000, 0, rd, rs1, rs2) }

// SUB encodes sub rd, rs1, rs2.
func SUB(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b000, funct7Alt, rd, rs1, rs2) }

// SLL encodes sll rd, rs1, rs2.
func SLL(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b001, 0, rd, rs1, rs2) }

// SLT encodes slt rd, rs1, rs2.
func SLT(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b010, 0, rd, rs1, rs2) }

// SLTU encodes sltu rd, rs1, rs2.
func SLTU(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b011, 0, rd, rs1, rs2) }

// XOR encodes xor rd, rs1, rs2.
func XOR(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b100, 0, rd, rs1, rs2) }

// SRL encodes srl rd, rs1, rs2.
func SRL(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b101, 0, rd, rs1, rs2) }

// SRA encodes sra rd, rs1, rs2.
func SRA(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b101, funct7Alt, rd, rs1, rs2) }

// OR encodes or rd, rs1, rs2.
func OR(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b110, 0, rd, rs1, rs2) }

// AND encodes and rd, rs1, rs2.
func AND(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp, 0b111, 0, rd, rs1, rs2) }

// ADDW encodes addw rd, rs1, rs2.
func ADDW(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp32, 0b000, 0, rd, rs1, rs2) }

// SUBW encodes subw rd, rs1, rs2.
func SUBW(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp32, 0b000, funct7Alt, rd, rs1, rs2) }

// SLLW encodes sllw rd, rs1, rs2.
func SLLW(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp32, 0b001, 0, rd, rs1, rs2) }

// SRLW encodes srlw rd, rs1, rs2.
func SRLW(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp32, 0b101, 0, rd, rs1, rs2) }

// SRAW encodes sraw rd, rs1, rs2.
func SRAW(rd, rs1, rs2 uint8) uint32 { return encodeR(opcodeOp32, 0b101, funct7Alt, rd, rs1, rs2) }

// CSRRW encodes csrrw rd, csr, rs1.
func CSRRW(rd uint8, csr uint16, rs1 uint8) uint32 {
	return encodeI(opcodeSystem, 0b001, rd, rs1, int64(csr))
}

// CSRRS encodes csrrs rd, csr, rs1.
func CSRRS(rd uint8, csr uint16, rs1 uint8) uint32 {
	return encodeI(opcodeSystem, 0b010, rd, rs1, int64(csr))
}

// CSRRC encodes csrrc rd, csr, rs1.
func CSRRC(rd uint8, csr uint16, rs1 uint8) uint32 {
	return encodeI(opcodeSystem, 0b011, rd, rs1, int64(csr))
}

// CSRRWI encodes csrrwi rd, csr, zimm.
func CSRRWI(rd uint8, csr uint16, zimm uint8) uint32 {
	return encodeI(opcodeSystem, 0b101, rd, zimm&0x1F, int64(csr))
}

// CSRRSI encodes csrrsi rd, csr, zimm.
func CSRRSI(rd uint8, csr uint16, zimm uint8) uint32 {
	return encodeI(opcodeSystem, 0b110, rd, zimm&0x1F, int64(csr))
}

// CSRRCI encodes csrrci rd, csr, zimm.
func CSRRCI(rd uint8, csr uint16, zimm uint8) uint32 {
	return encodeI(opcodeSystem, 0b111, rd, zimm&0x1F, int64(csr))
}

// Fixed encodings.
const (
	NOP    uint32 = 0x00000013 // addi zero, zero, 0
	ECALL  uint32 = wordECALL
	EBREAK uint32 = wordEBREAK
	MRET   uint32 = wordMRET
	FENCE  uint32 = 0x0ff0000f
	FENCEI uint32 = 0x0000100f
)

// LI encodes the shortest lui/addiw sequence loading a sign-extended
// 32-bit value into rd.
func LI(rd uint8, v int32) []uint32 {
	if v >= -2048 && v < 2048 {
		return []uint32{ADDI(rd, RegZero, int64(v))}
	}
	lo := int64(v) << 52 >> 52
	hi := uint32((int64(v) - lo) >> 12)
	if lo == 0 {
		return []uint32{LUI(rd, hi)}
	}
	return []uint32{LUI(rd, hi), ADDIW(rd, rd, lo)}
}

// Program flattens instruction words and word slices into one sequence.
func Program(parts ...any) []uint32 {
	var out []uint32
	for _, p := range parts {
		switch v := p.(type) {
		case uint32:
			out = append(out, v)
		case []uint32:
			out = append(out, v...)
		default:
			panic("insts: Program accepts uint32 or []uint32")
		}
	}
	return out
}

// Assemble lays out instruction words as little-endian bytes.
func Assemble(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}
