package loader_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/loader/elftest"
)

type recordingTarget struct {
	loads map[uint64][]byte
	err   error
}

func (t *recordingTarget) Load(image []byte, addr uint64) error {
	if t.err != nil {
		return t.err
	}
	t.loads[addr] = image
	return nil
}

var _ = Describe("ELF Loader", func() {
	var (
		tempDir string
		code    []byte
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		code = insts.Assemble(insts.ADDI(insts.RegA0, 0, 42), insts.ECALL)
	})

	Describe("Load", func() {
		Context("with a valid RV64 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				Expect(elftest.Program(0x8000_0000, code).Write(elfPath)).To(Succeed())
			})

			It("should extract the entry point and segment", func() {
				prog, err := loader.Load(elfPath)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint64(0x8000_0000)))
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].VirtAddr).To(Equal(uint64(0x8000_0000)))
				Expect(prog.Segments[0].Data).To(Equal(code))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(prog.Segments[0].Flags & loader.SegmentFlagWrite).To(BeZero())
			})

			It("should report no tohost symbol", func() {
				prog, err := loader.Load(elfPath)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.HasTohost).To(BeFalse())
			})
		})

		It("should find the tohost symbol", func() {
			elfPath := filepath.Join(tempDir, "tohost.elf")
			f := elftest.Program(0x8000_0000, code)
			f.Symbols = map[string]uint64{"begin_signature": 0x8000_2000, "tohost": 0x8000_1000}
			Expect(f.Write(elfPath)).To(Succeed())

			prog, err := loader.Load(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.HasTohost).To(BeTrue())
			Expect(prog.Tohost).To(Equal(uint64(0x8000_1000)))
		})

		It("should parse from a reader", func() {
			f := elftest.Program(0x8000_0000, code)
			f.Entry = 0x8000_0004
			raw := f.Bytes()

			prog, err := loader.Parse(bytes.NewReader(raw))

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x8000_0004)))
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(MatchError(ContainSubstring("failed to open")))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(notElfPath, []byte("not an elf file"), 0644)).To(Succeed())

				_, err := loader.Load(notElfPath)
				Expect(err).To(MatchError(ContainSubstring("ELF")))
			})

			It("should return error for empty file", func() {
				emptyPath := filepath.Join(tempDir, "empty.elf")
				Expect(os.WriteFile(emptyPath, []byte{}, 0644)).To(Succeed())

				_, err := loader.Load(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		It("should reject other machines", func() {
			elfPath := filepath.Join(tempDir, "x86.elf")
			Expect(elftest.File{Machine: elf.EM_X86_64}.Write(elfPath)).To(Succeed())

			_, err := loader.Load(elfPath)

			Expect(err).To(MatchError(loader.ErrUnsupportedELF))
			Expect(err.Error()).To(ContainSubstring("not a RISC-V"))
		})

		It("should reject 32-bit ELF files", func() {
			elfPath := filepath.Join(tempDir, "elf32.elf")
			createMinimal32BitELF(elfPath)

			_, err := loader.Load(elfPath)

			Expect(err).To(MatchError(loader.ErrUnsupportedELF))
			Expect(err.Error()).To(ContainSubstring("not a 64-bit"))
		})
	})

	Describe("Multi-segment ELFs", func() {
		var prog *loader.Program

		BeforeEach(func() {
			elfPath := filepath.Join(tempDir, "multi.elf")
			Expect(elftest.File{
				Machine: elf.EM_RISCV,
				Entry:   0x8000_0000,
				Segments: []elftest.Segment{
					{Flags: elf.PF_R | elf.PF_X, Addr: 0x8000_0000, Data: code},
					{Type: elf.PT_NOTE, Flags: elf.PF_R, Data: []byte{1, 2, 3, 4}},
					{Flags: elf.PF_R | elf.PF_W, Addr: 0x8000_1000, Data: []byte{1, 2, 3, 4}, MemSize: 16},
				},
			}.Write(elfPath)).To(Succeed())

			var err error
			prog, err = loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep only PT_LOAD segments", func() {
			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[1].VirtAddr).To(Equal(uint64(0x8000_1000)))
			Expect(prog.Segments[1].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
			Expect(prog.Segments[1].MemSize).To(Equal(uint64(16)))
		})

		It("should zero-fill BSS", func() {
			b := prog.Segments[1].Bytes()

			Expect(b).To(HaveLen(16))
			Expect(b[:4]).To(Equal([]byte{1, 2, 3, 4}))
			Expect(b[4:]).To(Equal(make([]byte, 12)))
		})

		It("should build one flat image", func() {
			addr, image, err := prog.Image()

			Expect(err).NotTo(HaveOccurred())
			Expect(addr).To(Equal(uint64(0x8000_0000)))
			Expect(image).To(HaveLen(0x1010))
			Expect(image[:len(code)]).To(Equal(code))
			Expect(binary.LittleEndian.Uint32(image[0x1000:])).To(Equal(uint32(0x04030201)))
		})

		It("should load each segment into a target", func() {
			t := &recordingTarget{loads: map[uint64][]byte{}}

			Expect(prog.LoadInto(t)).To(Succeed())
			Expect(t.loads).To(HaveLen(2))
			Expect(t.loads[0x8000_0000]).To(Equal(code))
			Expect(t.loads[0x8000_1000]).To(HaveLen(16))
		})

		It("should wrap target errors", func() {
			boom := errors.New("boom")
			t := &recordingTarget{err: boom}

			Expect(prog.LoadInto(t)).To(MatchError(boom))
		})
	})

	Describe("Image", func() {
		It("should fail without segments", func() {
			_, _, err := (&loader.Program{}).Image()
			Expect(err).To(MatchError(loader.ErrNoSegments))
		})

		It("should refuse segments spread over a huge range", func() {
			prog := &loader.Program{Segments: []loader.Segment{
				{VirtAddr: 0x1000, Data: []byte{1}},
				{VirtAddr: 0x8000_0000, Data: []byte{1}},
			}}

			_, _, err := prog.Image()
			Expect(err).To(MatchError(ContainSubstring("segments span")))
		})
	})
})

// createMinimal32BitELF creates a minimal 32-bit ELF to test rejection.
func createMinimal32BitELF(path string) {
	elfHeader := make([]byte, 52)

	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = byte(elf.ELFCLASS32)
	elfHeader[5] = byte(elf.ELFDATA2LSB)
	elfHeader[6] = byte(elf.EV_CURRENT)
	binary.LittleEndian.PutUint16(elfHeader[16:18], uint16(elf.ET_EXEC))
	binary.LittleEndian.PutUint16(elfHeader[18:20], uint16(elf.EM_RISCV))
	binary.LittleEndian.PutUint32(elfHeader[20:24], uint32(elf.EV_CURRENT))

	Expect(os.WriteFile(path, elfHeader, 0644)).To(Succeed())
}
