package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i).To(BeZero())
		Expect(i.Op).To(Equal(insts.OpUnknown))
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	It("should name every opcode", func() {
		Expect(insts.OpADDIW.String()).To(Equal("addiw"))
		Expect(insts.OpFENCEI.String()).To(Equal("fence.i"))
		Expect(insts.OpUnknown.String()).To(Equal("unknown"))
		Expect(insts.Op(9999).String()).To(Equal("op(9999)"))
	})
})
