package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	DescribeTable("Compute",
		func(op insts.Op, x, y, want uint64) {
			Expect(alu.Compute(op, x, y)).To(Equal(want))
		},
		Entry("add wraps", insts.OpADD, ^uint64(0), uint64(1), uint64(0)),
		Entry("addi negative", insts.OpADDI, uint64(5), uint64(0xFFFFFFFFFFFFFFFF), uint64(4)),
		Entry("sub wraps", insts.OpSUB, uint64(0), uint64(1), ^uint64(0)),
		Entry("sll uses 6 bits", insts.OpSLL, uint64(1), uint64(64+3), uint64(8)),
		Entry("slli 63", insts.OpSLLI, uint64(1), uint64(63), uint64(1)<<63),
		Entry("slt signed", insts.OpSLT, ^uint64(0), uint64(0), uint64(1)),
		Entry("sltu unsigned", insts.OpSLTU, ^uint64(0), uint64(0), uint64(0)),
		Entry("sltiu against -1", insts.OpSLTIU, uint64(5), ^uint64(0), uint64(1)),
		Entry("xor", insts.OpXOR, uint64(0xF0), uint64(0xFF), uint64(0x0F)),
		Entry("or", insts.OpOR, uint64(0xF0), uint64(0x0F), uint64(0xFF)),
		Entry("and", insts.OpAND, uint64(0xF0), uint64(0x3C), uint64(0x30)),
		Entry("srl logical", insts.OpSRL, uint64(1)<<63, uint64(63), uint64(1)),
		Entry("sra arithmetic", insts.OpSRA, uint64(1)<<63, uint64(63), ^uint64(0)),
		Entry("srai 1", insts.OpSRAI, uint64(0xFFFFFFFFFFFFFFF0), uint64(1), uint64(0xFFFFFFFFFFFFFFF8)),
		Entry("addw sign-extends", insts.OpADDW, uint64(0x7FFFFFFF), uint64(1), uint64(0xFFFFFFFF80000000)),
		Entry("addiw ignores upper bits", insts.OpADDIW, uint64(0x1_0000_0001), uint64(1), uint64(2)),
		Entry("subw", insts.OpSUBW, uint64(0), uint64(1), ^uint64(0)),
		Entry("sllw uses 5 bits", insts.OpSLLW, uint64(1), uint64(32+31), uint64(0xFFFFFFFF80000000)),
		Entry("srlw zero-fills 32 bits", insts.OpSRLW, uint64(0xFFFFFFFF80000000), uint64(31), uint64(1)),
		Entry("sraiw", insts.OpSRAIW, uint64(0x80000000), uint64(31), ^uint64(0)),
		Entry("unknown", insts.OpUnknown, uint64(1), uint64(2), uint64(0)),
	)

	Describe("Operate", func() {
		decoder := insts.NewDecoder()

		It("should compute upper immediates", func() {
			lui := decoder.Decode(insts.LUI(10, 0x12345))
			Expect(alu.Operate(lui, 0x8000_0000, 0, 0)).To(Equal(uint64(0x12345000)))

			auipc := decoder.Decode(insts.AUIPC(10, 1))
			Expect(alu.Operate(auipc, 0x8000_0000, 0, 0)).To(Equal(uint64(0x8000_1000)))
		})

		It("should return the link address for jumps", func() {
			jal := decoder.Decode(insts.JAL(1, 16))
			Expect(alu.Operate(jal, 0x8000_0010, 0, 0)).To(Equal(uint64(0x8000_0014)))
		})

		It("should select the immediate for I-type operations", func() {
			addi := decoder.Decode(insts.ADDI(10, 11, -3))
			Expect(alu.Operate(addi, 0, 10, 99)).To(Equal(uint64(7)))
		})

		It("should select rs2 for R-type operations", func() {
			sub := decoder.Decode(insts.SUB(10, 11, 12))
			Expect(alu.Operate(sub, 0, 10, 3)).To(Equal(uint64(7)))
		})
	})
})

var _ = Describe("BranchUnit", func() {
	var (
		bu      *emu.BranchUnit
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		bu = emu.NewBranchUnit()
		decoder = insts.NewDecoder()
	})

	DescribeTable("Condition",
		func(op insts.Op, x, y uint64, want bool) {
			Expect(bu.Condition(op, x, y)).To(Equal(want))
		},
		Entry("beq equal", insts.OpBEQ, uint64(3), uint64(3), true),
		Entry("bne equal", insts.OpBNE, uint64(3), uint64(3), false),
		Entry("blt signed", insts.OpBLT, ^uint64(0), uint64(1), true),
		Entry("bltu unsigned", insts.OpBLTU, ^uint64(0), uint64(1), false),
		Entry("bge equal", insts.OpBGE, uint64(1), uint64(1), true),
		Entry("bgeu unsigned", insts.OpBGEU, ^uint64(0), uint64(1), true),
	)

	It("should compute branch targets relative to the PC", func() {
		taken, target := bu.Resolve(decoder.Decode(insts.BNE(10, 0, -8)), 0x8000_0010, 1, 0)
		Expect(taken).To(BeTrue())
		Expect(target).To(Equal(uint64(0x8000_0008)))

		taken, _ = bu.Resolve(decoder.Decode(insts.BNE(10, 0, -8)), 0x8000_0010, 0, 0)
		Expect(taken).To(BeFalse())
	})

	It("should clear bit 0 of jalr targets", func() {
		taken, target := bu.Resolve(decoder.Decode(insts.JALR(0, 1, 3)), 0, 0x8000_0100, 0)
		Expect(taken).To(BeTrue())
		Expect(target).To(Equal(uint64(0x8000_0102)))
	})

	It("should not redirect for non-control instructions", func() {
		taken, _ := bu.Resolve(decoder.Decode(insts.ADDI(1, 1, 1)), 0, 0, 0)
		Expect(taken).To(BeFalse())
	})
})

var _ = Describe("Load/store helpers", func() {
	DescribeTable("Extend",
		func(raw uint64, width uint8, unsigned bool, want uint64) {
			Expect(emu.Extend(raw, width, unsigned)).To(Equal(want))
		},
		Entry("lb negative", uint64(0x80), uint8(1), false, uint64(0xFFFFFFFFFFFFFF80)),
		Entry("lbu", uint64(0x80), uint8(1), true, uint64(0x80)),
		Entry("lh negative", uint64(0xFFFE), uint8(2), false, ^uint64(1)),
		Entry("lhu", uint64(0xFFFE), uint8(2), true, uint64(0xFFFE)),
		Entry("lw negative", uint64(0x80000000), uint8(4), false, uint64(0xFFFFFFFF80000000)),
		Entry("lwu", uint64(0x80000000), uint8(4), true, uint64(0x80000000)),
		Entry("ld", ^uint64(0), uint8(8), false, ^uint64(0)),
	)

	It("should compute effective addresses with negative offsets", func() {
		inst := insts.NewDecoder().Decode(insts.LD(5, 2, -8))
		Expect(emu.EffectiveAddress(inst, 0x8000_0010)).To(Equal(uint64(0x8000_0008)))
	})
})

var _ = Describe("CSRFile", func() {
	var (
		csr     *emu.CSRFile
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		csr = emu.NewCSRFile()
		decoder = insts.NewDecoder()
	})

	It("should read mhartid as zero", func() {
		csr.Write(emu.CSRMhartid, 7)
		Expect(csr.Read(emu.CSRMhartid)).To(BeZero())
	})

	It("should hold written values", func() {
		csr.Write(emu.CSRMepc, 0x8000_0040)
		Expect(csr.Read(emu.CSRMepc)).To(Equal(uint64(0x8000_0040)))
	})

	It("should set and clear bits", func() {
		set := decoder.Decode(insts.CSRRS(0, emu.CSRMstatus, 5))
		v, ok := emu.CSRUpdate(set, 0b1000, 0b0011)
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0b1011)))

		clr := decoder.Decode(insts.CSRRCI(0, emu.CSRMstatus, 8))
		v, ok = emu.CSRUpdate(clr, 0b1011, emu.CSRSource(clr, 0))
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint64(0b0011)))
	})

	It("should not write on csrr", func() {
		read := decoder.Decode(insts.CSRRS(10, emu.CSRMhartid, 0))
		_, ok := emu.CSRUpdate(read, 5, 0)
		Expect(ok).To(BeFalse())
	})
})
