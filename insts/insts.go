// Package insts provides RV64I instruction definitions and decoding.
//
// This package implements decoding of RISC-V machine code into structured
// instruction representations. It supports the RV64I base integer ISA:
//   - Upper immediates and jumps: LUI, AUIPC, JAL, JALR
//   - Conditional branches: BEQ, BNE, BLT, BGE, BLTU, BGEU
//   - Loads and stores of bytes, halfwords, words and doublewords
//   - Register-immediate and register-register ALU operations, including
//     the 32-bit W variants
//   - FENCE, FENCE.I, ECALL, EBREAK, MRET and the Zicsr CSR instructions
//     used by compliance-test preambles
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00c58533) // add a0, a1, a2
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
