package emu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// Default memory layout.
const (
	DefaultMemorySize uint64 = 0x4_0000
	DefaultKernelBase uint64 = 0x2_0000
	DefaultHighBase   uint64 = 0x8000_0000
)

var (
	// ErrMemoryFault is returned for accesses that fall outside the
	// translated address space.
	ErrMemoryFault = errors.New("memory fault")

	// ErrImageTooLarge is returned when a program image does not fit in
	// physical memory.
	ErrImageTooLarge = errors.New("image too large")
)

// AccessKind identifies the requester of a memory access.
type AccessKind uint8

// Access kinds.
const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

func (k AccessKind) String() string {
	switch k {
	case AccessFetch:
		return "fetch"
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	}
	return fmt.Sprintf("access(%d)", uint8(k))
}

// MemoryFault describes an access to an unmapped or out-of-range address.
type MemoryFault struct {
	Addr  uint64
	Kind  AccessKind
	Width int
}

func (f *MemoryFault) Error() string {
	return fmt.Sprintf("memory fault: %s of %d bytes at 0x%x", f.Kind, f.Width, f.Addr)
}

// Unwrap lets errors.Is match ErrMemoryFault.
func (f *MemoryFault) Unwrap() error {
	return ErrMemoryFault
}

// Memory is a byte-addressable little-endian physical memory with a fixed
// virtual-to-physical translation:
//
//	addr >= HighBase:   phys = KernelBase + (addr - HighBase)
//	addr <  KernelBase: phys = addr
//
// Every other address faults.
type Memory struct {
	storage    *mem.Storage
	size       uint64
	kernelBase uint64
	highBase   uint64
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithMemorySize sets the physical capacity in bytes.
func WithMemorySize(size uint64) MemoryOption {
	return func(m *Memory) {
		m.size = size
	}
}

// WithKernelBase sets the physical address the high window maps to.
func WithKernelBase(base uint64) MemoryOption {
	return func(m *Memory) {
		m.kernelBase = base
	}
}

// WithHighBase sets the first virtual address of the high window.
func WithHighBase(base uint64) MemoryOption {
	return func(m *Memory) {
		m.highBase = base
	}
}

// NewMemory creates a zero-filled memory.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		size:       DefaultMemorySize,
		kernelBase: DefaultKernelBase,
		highBase:   DefaultHighBase,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.storage = mem.NewStorage(m.size)
	return m
}

// Size returns the physical capacity in bytes.
func (m *Memory) Size() uint64 {
	return m.size
}

// Translate maps a virtual access of width bytes to its physical address.
func (m *Memory) Translate(addr uint64, width int, kind AccessKind) (uint64, error) {
	fault := &MemoryFault{Addr: addr, Kind: kind, Width: width}
	w := uint64(width)
	if width <= 0 || w > m.size {
		return 0, fault
	}

	var phys uint64
	switch {
	case addr >= m.highBase:
		phys = m.kernelBase + (addr - m.highBase)
	case addr < m.kernelBase:
		if addr+w > m.kernelBase {
			return 0, fault
		}
		phys = addr
	default:
		return 0, fault
	}

	if phys < m.kernelBase && addr >= m.highBase {
		// Wrapped around the top of the address space.
		return 0, fault
	}
	if phys > m.size-w {
		return 0, fault
	}
	return phys, nil
}

// Read returns width bytes starting at addr.
func (m *Memory) Read(addr uint64, width int, kind AccessKind) ([]byte, error) {
	phys, err := m.Translate(addr, width, kind)
	if err != nil {
		return nil, err
	}
	data, err := m.storage.Read(phys, uint64(width))
	if err != nil {
		return nil, fmt.Errorf("failed to read 0x%x: %w", addr, err)
	}
	return data, nil
}

// ReadUint reads a little-endian value of 1, 2, 4 or 8 bytes, zero-extended.
func (m *Memory) ReadUint(addr uint64, width int, kind AccessKind) (uint64, error) {
	if !validWidth(width) {
		return 0, &MemoryFault{Addr: addr, Kind: kind, Width: width}
	}
	data, err := m.Read(addr, width, kind)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Fetch reads the 32-bit instruction word at addr.
func (m *Memory) Fetch(addr uint64) (uint32, error) {
	v, err := m.ReadUint(addr, 4, AccessFetch)
	return uint32(v), err
}

// WriteUint writes the low width bytes of v little-endian at addr.
// The write is all-or-nothing.
func (m *Memory) WriteUint(addr uint64, width int, v uint64) error {
	if !validWidth(width) {
		return &MemoryFault{Addr: addr, Kind: AccessStore, Width: width}
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return m.Write(addr, buf[:width])
}

// Write stores data starting at addr.
func (m *Memory) Write(addr uint64, data []byte) error {
	phys, err := m.Translate(addr, len(data), AccessStore)
	if err != nil {
		return err
	}
	if err := m.storage.Write(phys, data); err != nil {
		return fmt.Errorf("failed to write 0x%x: %w", addr, err)
	}
	return nil
}

// LoadImage copies a program image to virtual address addr.
func (m *Memory) LoadImage(image []byte, addr uint64) error {
	if uint64(len(image)) > m.size {
		return fmt.Errorf("%w: %d bytes exceeds capacity of %d bytes",
			ErrImageTooLarge, len(image), m.size)
	}
	if len(image) == 0 {
		return nil
	}
	if err := m.Write(addr, image); err != nil {
		return fmt.Errorf("failed to load image at 0x%x: %w", addr, err)
	}
	return nil
}

func validWidth(width int) bool {
	return width == 1 || width == 2 || width == 4 || width == 8
}
