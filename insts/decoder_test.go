package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Register-Immediate", func() {
		// addi a0, zero, 0 -> 0x00000513
		It("should decode addi a0, zero, 0", func() {
			inst := decoder.Decode(0x00000513)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int64(0)))
		})

		// addi a0, a0, -1 -> 0xfff50513
		It("should sign-extend a negative immediate", func() {
			inst := decoder.Decode(0xfff50513)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int64(-1)))
		})

		// li a7, 93 -> 0x05d00893
		It("should decode li a7, 93", func() {
			inst := decoder.Decode(0x05d00893)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(insts.RegA7))
			Expect(inst.Imm).To(Equal(int64(93)))
		})

		// slli a0, a0, 63 -> 0x03f51513
		It("should decode a 6-bit shift amount", func() {
			inst := decoder.Decode(0x03f51513)

			Expect(inst.Op).To(Equal(insts.OpSLLI))
			Expect(inst.Imm).To(Equal(int64(63)))
		})

		// srai a0, a0, 1 -> 0x40155513
		It("should decode srai", func() {
			inst := decoder.Decode(0x40155513)

			Expect(inst.Op).To(Equal(insts.OpSRAI))
			Expect(inst.Imm).To(Equal(int64(1)))
		})
	})

	Describe("Upper immediates and jumps", func() {
		// lui a0, 0x80000 -> 0x80000537
		It("should sign-extend the lui immediate to 64 bits", func() {
			inst := decoder.Decode(0x80000537)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Format).To(Equal(insts.FormatU))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(uint64(inst.Imm)).To(Equal(uint64(0xFFFFFFFF80000000)))
		})

		// auipc t0, 0 -> 0x00000297
		It("should decode auipc", func() {
			inst := decoder.Decode(0x00000297)

			Expect(inst.Op).To(Equal(insts.OpAUIPC))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(int64(0)))
		})

		// j 8 -> 0x0080006f
		It("should decode j 8", func() {
			inst := decoder.Decode(0x0080006f)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int64(8)))
			Expect(inst.WritesRd()).To(BeFalse())
		})

		// jal ra, -4 -> 0xffdff0ef
		It("should decode a backward jal", func() {
			inst := decoder.Decode(0xffdff0ef)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(insts.RegRA))
			Expect(inst.Imm).To(Equal(int64(-4)))
			Expect(inst.IsJump()).To(BeTrue())
			Expect(inst.WritesRd()).To(BeTrue())
		})

		// ret -> 0x00008067
		It("should decode ret", func() {
			inst := decoder.Decode(0x00008067)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rs1).To(Equal(insts.RegRA))
			Expect(inst.Imm).To(Equal(int64(0)))
		})
	})

	Describe("Branches", func() {
		// beq a0, a1, 16 -> 0x00b50863
		It("should decode beq a0, a1, 16", func() {
			inst := decoder.Decode(0x00b50863)

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(11)))
			Expect(inst.Imm).To(Equal(int64(16)))
			Expect(inst.IsBranch()).To(BeTrue())
			Expect(inst.WritesRd()).To(BeFalse())
		})

		// bnez a0, -8 -> 0xfe051ce3
		It("should decode a backward bne", func() {
			inst := decoder.Decode(0xfe051ce3)

			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int64(-8)))
		})
	})

	Describe("Loads and stores", func() {
		// lb a1, 3(a0) -> 0x00350583
		It("should decode lb as a signed byte load", func() {
			inst := decoder.Decode(0x00350583)

			Expect(inst.Op).To(Equal(insts.OpLB))
			Expect(inst.Rd).To(Equal(uint8(11)))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Imm).To(Equal(int64(3)))
			Expect(inst.MemWidth).To(Equal(uint8(1)))
			Expect(inst.Unsigned).To(BeFalse())
			Expect(inst.IsLoad()).To(BeTrue())
		})

		// lbu a1, 3(a0) -> 0x00354583
		It("should decode lbu as an unsigned byte load", func() {
			inst := decoder.Decode(0x00354583)

			Expect(inst.Op).To(Equal(insts.OpLBU))
			Expect(inst.MemWidth).To(Equal(uint8(1)))
			Expect(inst.Unsigned).To(BeTrue())
		})

		// ld t0, -8(sp) -> 0xff813283
		It("should decode ld with a negative offset", func() {
			inst := decoder.Decode(0xff813283)

			Expect(inst.Op).To(Equal(insts.OpLD))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(insts.RegSP))
			Expect(inst.Imm).To(Equal(int64(-8)))
			Expect(inst.MemWidth).To(Equal(uint8(8)))
		})

		// sd ra, 8(sp) -> 0x00113423
		It("should decode sd", func() {
			inst := decoder.Decode(0x00113423)

			Expect(inst.Op).To(Equal(insts.OpSD))
			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Rs1).To(Equal(insts.RegSP))
			Expect(inst.Rs2).To(Equal(insts.RegRA))
			Expect(inst.Imm).To(Equal(int64(8)))
			Expect(inst.MemWidth).To(Equal(uint8(8)))
			Expect(inst.IsStore()).To(BeTrue())
			Expect(inst.WritesRd()).To(BeFalse())
		})

		// sb a1, 0(a0) -> 0x00b50023
		It("should decode sb", func() {
			inst := decoder.Decode(0x00b50023)

			Expect(inst.Op).To(Equal(insts.OpSB))
			Expect(inst.Rs1).To(Equal(uint8(10)))
			Expect(inst.Rs2).To(Equal(uint8(11)))
			Expect(inst.MemWidth).To(Equal(uint8(1)))
		})
	})

	Describe("Register-Register", func() {
		DescribeTable("operations on a0, a1, a2",
			func(word uint32, op insts.Op) {
				inst := decoder.Decode(word)

				Expect(inst.Op).To(Equal(op))
				Expect(inst.Format).To(Equal(insts.FormatR))
				Expect(inst.Rd).To(Equal(uint8(10)))
				Expect(inst.Rs1).To(Equal(uint8(11)))
				Expect(inst.Rs2).To(Equal(uint8(12)))
				Expect(inst.UsesRs1()).To(BeTrue())
				Expect(inst.UsesRs2()).To(BeTrue())
			},
			Entry("add", uint32(0x00c58533), insts.OpADD),
			Entry("sub", uint32(0x40c58533), insts.OpSUB),
			Entry("sra", uint32(0x40c5d533), insts.OpSRA),
			Entry("subw", uint32(0x40c5853b), insts.OpSUBW),
		)
	})

	Describe("32-bit immediates", func() {
		// addiw a0, a0, 1 -> 0x0015051b
		It("should decode addiw", func() {
			inst := decoder.Decode(0x0015051b)

			Expect(inst.Op).To(Equal(insts.OpADDIW))
			Expect(inst.Imm).To(Equal(int64(1)))
		})

		// sraiw a0, a0, 31 -> 0x41f5551b
		It("should decode sraiw with a 5-bit shift amount", func() {
			inst := decoder.Decode(0x41f5551b)

			Expect(inst.Op).To(Equal(insts.OpSRAIW))
			Expect(inst.Imm).To(Equal(int64(31)))
		})
	})

	Describe("System", func() {
		// csrr a0, mhartid -> 0xf1402573
		It("should decode csrr", func() {
			inst := decoder.Decode(0xf1402573)

			Expect(inst.Op).To(Equal(insts.OpCSRRS))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.CSR).To(Equal(uint16(0xf14)))
			Expect(inst.IsCSR()).To(BeTrue())
		})

		// csrw mtvec, t0 -> 0x30529073
		It("should decode csrw", func() {
			inst := decoder.Decode(0x30529073)

			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rs1).To(Equal(uint8(5)))
			Expect(inst.CSR).To(Equal(uint16(0x305)))
			Expect(inst.UsesRs1()).To(BeTrue())
		})

		// csrwi mstatus, 0 -> 0x30005073
		It("should decode csrwi without reading rs1", func() {
			inst := decoder.Decode(0x30005073)

			Expect(inst.Op).To(Equal(insts.OpCSRRWI))
			Expect(inst.CSR).To(Equal(uint16(0x300)))
			Expect(inst.Imm).To(Equal(int64(0)))
			Expect(inst.UsesRs1()).To(BeFalse())
		})

		It("should decode ecall reading a0", func() {
			inst := decoder.Decode(0x00000073)

			Expect(inst.Op).To(Equal(insts.OpECALL))
			Expect(inst.IsHalt()).To(BeTrue())
			Expect(inst.Rs1).To(Equal(insts.RegA0))
			Expect(inst.UsesRs1()).To(BeTrue())
		})

		It("should decode ebreak", func() {
			inst := decoder.Decode(0x00100073)

			Expect(inst.Op).To(Equal(insts.OpEBREAK))
			Expect(inst.IsHalt()).To(BeTrue())
		})

		It("should decode mret", func() {
			inst := decoder.Decode(0x30200073)

			Expect(inst.Op).To(Equal(insts.OpMRET))
			Expect(inst.WritesRd()).To(BeFalse())
		})

		It("should decode fence and fence.i", func() {
			Expect(decoder.Decode(0x0ff0000f).Op).To(Equal(insts.OpFENCE))
			Expect(decoder.Decode(0x0000100f).Op).To(Equal(insts.OpFENCEI))
		})
	})

	Describe("Unknown encodings", func() {
		DescribeTable("should decode to OpUnknown",
			func(word uint32) {
				inst := decoder.Decode(word)

				Expect(inst.Op).To(Equal(insts.OpUnknown))
				Expect(inst.Word).To(Equal(word))
				Expect(inst.WritesRd()).To(BeFalse())
			},
			Entry("all zeros", uint32(0x00000000)),
			Entry("all ones", uint32(0xffffffff)),
			Entry("mul (M extension)", uint32(0x02c58533)),
			Entry("compressed c.nop", uint32(0x00000001)),
			Entry("wfi", uint32(0x10500073)),
		)
	})
})

var _ = Describe("Encoder", func() {
	It("should produce the canonical encodings", func() {
		Expect(insts.ADDI(insts.RegA0, insts.RegZero, 0)).To(Equal(uint32(0x00000513)))
		Expect(insts.ADDI(insts.RegA7, insts.RegZero, 93)).To(Equal(uint32(0x05d00893)))
		Expect(insts.LUI(insts.RegA0, 0x80000)).To(Equal(uint32(0x80000537)))
		Expect(insts.JAL(insts.RegRA, -4)).To(Equal(uint32(0xffdff0ef)))
		Expect(insts.JALR(insts.RegZero, insts.RegRA, 0)).To(Equal(uint32(0x00008067)))
		Expect(insts.BEQ(10, 11, 16)).To(Equal(uint32(0x00b50863)))
		Expect(insts.BNE(10, insts.RegZero, -8)).To(Equal(uint32(0xfe051ce3)))
		Expect(insts.LD(5, insts.RegSP, -8)).To(Equal(uint32(0xff813283)))
		Expect(insts.SD(insts.RegRA, insts.RegSP, 8)).To(Equal(uint32(0x00113423)))
		Expect(insts.SUB(10, 11, 12)).To(Equal(uint32(0x40c58533)))
		Expect(insts.SRAI(10, 10, 1)).To(Equal(uint32(0x40155513)))
		Expect(insts.SRAIW(10, 10, 31)).To(Equal(uint32(0x41f5551b)))
		Expect(insts.CSRRS(10, 0xf14, insts.RegZero)).To(Equal(uint32(0xf1402573)))
		Expect(insts.CSRRWI(insts.RegZero, 0x300, 0)).To(Equal(uint32(0x30005073)))
	})

	It("should use a single instruction for small constants", func() {
		Expect(insts.LI(insts.RegA0, 42)).To(HaveLen(1))
		Expect(insts.LI(insts.RegA0, 0x1000)).To(HaveLen(1))
		Expect(insts.LI(insts.RegA0, 0x12345678)).To(HaveLen(2))
	})

	It("should lay out words little-endian", func() {
		Expect(insts.Assemble(0x00000513, 0x00100073)).To(Equal(
			[]byte{0x13, 0x05, 0x00, 0x00, 0x73, 0x00, 0x10, 0x00}))
	})
})

var _ = Describe("Register names", func() {
	DescribeTable("RegIndex",
		func(name string, want uint8) {
			idx, ok := insts.RegIndex(name)
			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(want))
		},
		Entry("zero", "zero", uint8(0)),
		Entry("a0", "a0", uint8(10)),
		Entry("fp alias", "fp", uint8(8)),
		Entry("s0", "s0", uint8(8)),
		Entry("t6", "t6", uint8(31)),
		Entry("architectural name", "x17", uint8(17)),
		Entry("upper case", "A1", uint8(11)),
	)

	It("should reject unknown names", func() {
		for _, name := range []string{"x32", "x01", "q0", ""} {
			_, ok := insts.RegIndex(name)
			Expect(ok).To(BeFalse(), name)
		}
	})

	It("should name registers by index", func() {
		Expect(insts.RegName(2)).To(Equal("sp"))
		Expect(insts.RegName(40)).To(Equal("x40"))
	})
})
