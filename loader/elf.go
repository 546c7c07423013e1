// Package loader provides ELF binary loading for RV64 executables.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

// TohostSymbol is the symbol compliance tests store their result to.
const TohostSymbol = "tohost"

// maxImageSpan bounds the flat image Image builds.
const maxImageSpan = 64 << 20

var (
	// ErrUnsupportedELF is returned for ELF files that are not RV64.
	ErrUnsupportedELF = errors.New("unsupported ELF")

	// ErrNoSegments is returned by Image for programs with nothing to load.
	ErrNoSegments = errors.New("no loadable segments")
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Bytes returns the segment contents zero-filled to MemSize.
func (s Segment) Bytes() []byte {
	if s.MemSize <= uint64(len(s.Data)) {
		return s.Data
	}
	out := make([]byte, s.MemSize)
	copy(out, s.Data)
	return out
}

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
	// Tohost is the address of the tohost symbol when HasTohost is set.
	Tohost    uint64
	HasTohost bool
}

// Target accepts an image at a virtual address.
type Target interface {
	Load(image []byte, addr uint64) error
}

// Load parses an RV64 ELF binary.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parse(f)
}

// Parse reads an RV64 ELF binary from r.
func Parse(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	return parse(f)
}

func parse(f *elf.File) (*Program, error) {
	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("%w: not a 64-bit ELF file", ErrUnsupportedELF)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: not a RISC-V ELF file (machine type: %v)",
			ErrUnsupportedELF, f.Machine)
	}

	prog := &Program{EntryPoint: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		seg, err := readSegment(phdr)
		if err != nil {
			return nil, err
		}
		prog.Segments = append(prog.Segments, seg)
	}

	if err := prog.findTohost(f); err != nil {
		return nil, err
	}

	return prog, nil
}

func readSegment(phdr *elf.Prog) (Segment, error) {
	data := make([]byte, phdr.Filesz)
	if phdr.Filesz > 0 {
		n, err := phdr.ReadAt(data, 0)
		if err != nil && err != io.EOF {
			return Segment{}, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return Segment{}, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, n, phdr.Filesz)
		}
	}

	var flags SegmentFlags
	if phdr.Flags&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if phdr.Flags&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if phdr.Flags&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}

	return Segment{
		VirtAddr: phdr.Vaddr,
		Data:     data,
		MemSize:  phdr.Memsz,
		Flags:    flags,
	}, nil
}

func (p *Program) findTohost(f *elf.File) error {
	syms, err := f.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read symbols: %w", err)
	}

	for _, s := range syms {
		if s.Name == TohostSymbol {
			p.Tohost = s.Value
			p.HasTohost = true
			return nil
		}
	}
	return nil
}

// LoadInto copies every segment into t, zero-filling BSS.
func (p *Program) LoadInto(t Target) error {
	for _, seg := range p.Segments {
		if seg.MemSize == 0 && len(seg.Data) == 0 {
			continue
		}
		if err := t.Load(seg.Bytes(), seg.VirtAddr); err != nil {
			return fmt.Errorf("failed to load segment at 0x%x: %w", seg.VirtAddr, err)
		}
	}
	return nil
}

// Image lays the segments out as one flat image starting at the lowest
// segment address. Gaps and BSS are zero-filled.
func (p *Program) Image() (uint64, []byte, error) {
	if len(p.Segments) == 0 {
		return 0, nil, ErrNoSegments
	}

	lo, hi := p.Segments[0].VirtAddr, uint64(0)
	for _, seg := range p.Segments {
		lo = min(lo, seg.VirtAddr)
		hi = max(hi, seg.VirtAddr+max(seg.MemSize, uint64(len(seg.Data))))
	}
	if hi-lo > maxImageSpan {
		return 0, nil, fmt.Errorf("segments span 0x%x bytes, more than 0x%x", hi-lo, maxImageSpan)
	}

	image := make([]byte, hi-lo)
	for _, seg := range p.Segments {
		copy(image[seg.VirtAddr-lo:], seg.Data)
	}
	return lo, image, nil
}
