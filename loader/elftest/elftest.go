// Package elftest builds small little-endian ELF64 executables for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"sort"
)

const (
	ehdrSize = 64
	phdrSize = 56
	shdrSize = 64
	symSize  = 24
)

// Segment is one program header and its file contents.
type Segment struct {
	// Type defaults to PT_LOAD.
	Type  elf.ProgType
	Flags elf.ProgFlag
	Addr  uint64
	Data  []byte
	// MemSize defaults to len(Data).
	MemSize uint64
}

// File describes an executable. Symbols, when present, are emitted as
// absolute global objects in a .symtab section.
type File struct {
	Machine  elf.Machine
	Entry    uint64
	Segments []Segment
	Symbols  map[string]uint64
}

// Program returns a RISC-V executable with one read-execute segment at
// addr holding code, entered at addr.
func Program(addr uint64, code []byte) File {
	return File{
		Machine:  elf.EM_RISCV,
		Entry:    addr,
		Segments: []Segment{{Flags: elf.PF_R | elf.PF_X, Addr: addr, Data: code}},
	}
}

// Bytes encodes the file.
func (f File) Bytes() []byte {
	le := binary.LittleEndian
	dataOff := uint64(ehdrSize + phdrSize*len(f.Segments))

	var body, phdrs []byte
	for _, s := range f.Segments {
		typ := s.Type
		if typ == elf.PT_NULL {
			typ = elf.PT_LOAD
		}
		memSize := s.MemSize
		if memSize == 0 {
			memSize = uint64(len(s.Data))
		}

		ph := make([]byte, phdrSize)
		le.PutUint32(ph[0:], uint32(typ))
		le.PutUint32(ph[4:], uint32(s.Flags))
		le.PutUint64(ph[8:], dataOff+uint64(len(body)))
		le.PutUint64(ph[16:], s.Addr)
		le.PutUint64(ph[24:], s.Addr)
		le.PutUint64(ph[32:], uint64(len(s.Data)))
		le.PutUint64(ph[40:], memSize)
		le.PutUint64(ph[48:], 0x1000)
		phdrs = append(phdrs, ph...)
		body = append(body, s.Data...)
	}

	var (
		shdrs    []byte
		shoff    uint64
		shnum    uint16
		shstrndx uint16
	)
	if len(f.Symbols) > 0 {
		var tables []byte
		tables, shdrs = f.symbolTables(dataOff + uint64(len(body)))
		body = append(body, tables...)
		shoff = dataOff + uint64(len(body))
		shnum, shstrndx = 4, 3
	}

	hdr := make([]byte, ehdrSize)
	copy(hdr, []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})
	le.PutUint16(hdr[16:], uint16(elf.ET_EXEC))
	le.PutUint16(hdr[18:], uint16(f.Machine))
	le.PutUint32(hdr[20:], uint32(elf.EV_CURRENT))
	le.PutUint64(hdr[24:], f.Entry)
	le.PutUint64(hdr[32:], ehdrSize)
	le.PutUint64(hdr[40:], shoff)
	le.PutUint16(hdr[52:], ehdrSize)
	le.PutUint16(hdr[54:], phdrSize)
	le.PutUint16(hdr[56:], uint16(len(f.Segments)))
	le.PutUint16(hdr[58:], shdrSize)
	le.PutUint16(hdr[60:], shnum)
	le.PutUint16(hdr[62:], shstrndx)

	out := append(hdr, phdrs...)
	out = append(out, body...)
	return append(out, shdrs...)
}

// symbolTables lays out .strtab, .symtab and .shstrtab starting at file
// offset off and returns them with the four section headers describing
// them.
func (f File) symbolTables(off uint64) (tables, shdrs []byte) {
	le := binary.LittleEndian

	names := make([]string, 0, len(f.Symbols))
	for name := range f.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	strtab := []byte{0}
	symtab := make([]byte, symSize)
	for _, name := range names {
		sym := make([]byte, symSize)
		le.PutUint32(sym[0:], uint32(len(strtab)))
		sym[4] = elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT)
		le.PutUint16(sym[6:], uint16(elf.SHN_ABS))
		le.PutUint64(sym[8:], f.Symbols[name])
		le.PutUint64(sym[16:], 8)
		symtab = append(symtab, sym...)
		strtab = append(append(strtab, name...), 0)
	}
	shstrtab := []byte("\x00.strtab\x00.symtab\x00.shstrtab\x00")

	strOff := off
	symOff := strOff + uint64(len(strtab))
	shstrOff := symOff + uint64(len(symtab))

	section := func(name uint32, typ elf.SectionType, offset uint64, size int, link, info uint32, entsize uint64) []byte {
		sh := make([]byte, shdrSize)
		le.PutUint32(sh[0:], name)
		le.PutUint32(sh[4:], uint32(typ))
		le.PutUint64(sh[24:], offset)
		le.PutUint64(sh[32:], uint64(size))
		le.PutUint32(sh[40:], link)
		le.PutUint32(sh[44:], info)
		le.PutUint64(sh[48:], 1)
		le.PutUint64(sh[56:], entsize)
		return sh
	}

	tables = append(tables, strtab...)
	tables = append(tables, symtab...)
	tables = append(tables, shstrtab...)

	shdrs = make([]byte, shdrSize)
	shdrs = append(shdrs, section(1, elf.SHT_STRTAB, strOff, len(strtab), 0, 0, 0)...)
	shdrs = append(shdrs, section(9, elf.SHT_SYMTAB, symOff, len(symtab), 1, 1, symSize)...)
	shdrs = append(shdrs, section(17, elf.SHT_STRTAB, shstrOff, len(shstrtab), 0, 0, 0)...)
	return tables, shdrs
}

// Write encodes the file to path.
func (f File) Write(path string) error {
	return os.WriteFile(path, f.Bytes(), 0644)
}
