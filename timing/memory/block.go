// Package memory provides the clocked Memory Block shared by the fetch and
// memory-access stages.
//
// The instruction side is a registered read port: an address set during
// cycle N is committed at the first edge, the word is read and committed to
// the output register at the second edge, and becomes visible in cycle
// N+2. Every output word carries the address it was read from.
//
// The data side reads committed memory combinationally and stages at most
// one store per cycle, applied atomically at the clock edge.
package memory

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/clock"
)

// Word is the registered output of the instruction read port.
type Word struct {
	Addr  uint64
	Data  uint32
	Valid bool

	// Err is set when the fetch faulted. The word is still Valid so the
	// fault travels with the instruction it belongs to.
	Err error
}

// WriteReq is a staged store.
type WriteReq struct {
	Addr    uint64
	Width   int
	Data    uint64
	Enabled bool
}

type readReq struct {
	Addr  uint64
	Valid bool
}

// Block wraps an emu.Memory with clocked ports.
type Block struct {
	mem *emu.Memory

	readAddr clock.Reg[readReq]
	output   clock.Reg[Word]
	write    clock.Reg[WriteReq]

	writeErr error
}

// NewBlock creates a Memory Block over m.
func NewBlock(m *emu.Memory) *Block {
	return &Block{mem: m}
}

// Memory returns the backing memory.
func (b *Block) Memory() *emu.Memory {
	return b.mem
}

// LoadImage copies a program image into memory. It bypasses the clocked
// ports and is meant to be used before simulation starts.
func (b *Block) LoadImage(image []byte, addr uint64) error {
	return b.mem.LoadImage(image, addr)
}

// Read issues an instruction read at addr.
func (b *Block) Read(addr uint64) {
	b.readAddr.Set(readReq{Addr: addr, Valid: true})
}

// Output returns the word committed to the read port's output register.
func (b *Block) Output() Word {
	return b.output.Get()
}

// HoldRead freezes the read port so the address and output registers keep
// their values across the next commit.
func (b *Block) HoldRead() {
	b.readAddr.Disable()
	b.output.Disable()
}

// ReleaseRead lets the read port commit again.
func (b *Block) ReleaseRead() {
	b.readAddr.Enable()
	b.output.Enable()
}

// Load reads width bytes of committed memory at addr, zero-extended.
func (b *Block) Load(addr uint64, width int) (uint64, error) {
	return b.mem.ReadUint(addr, width, emu.AccessLoad)
}

// Store stages a width-byte store of data at addr. The address is checked
// immediately so faults are reported in the cycle the store executes.
func (b *Block) Store(addr uint64, width int, data uint64) error {
	if _, err := b.mem.Translate(addr, width, emu.AccessStore); err != nil {
		return err
	}
	b.write.Set(WriteReq{Addr: addr, Width: width, Data: data, Enabled: true})
	return nil
}

// LastWrite returns the store applied at the most recent edge, if any.
func (b *Block) LastWrite() WriteReq {
	return b.write.Get()
}

// Err returns the first error raised while applying a store.
func (b *Block) Err() error {
	return b.writeErr
}

// Peek reads the instruction word at addr without touching the ports.
func (b *Block) Peek(addr uint64) (uint32, bool) {
	w, err := b.mem.Fetch(addr)
	return w, err == nil
}

// Tick is the clock edge. The output register samples memory at the
// committed read address before the staged store lands, so a store and a
// fetch in the same cycle see pre-edge memory.
func (b *Block) Tick() {
	if b.output.Enabled() {
		b.output.Set(b.sample(b.readAddr.Get()))
	}
	b.output.Tick()
	b.readAddr.Tick()

	b.write.Tick()
	if req := b.write.Get(); req.Enabled {
		if err := b.mem.WriteUint(req.Addr, req.Width, req.Data); err != nil && b.writeErr == nil {
			b.writeErr = err
		}
	}
	b.write.Set(WriteReq{})
}

func (b *Block) sample(req readReq) Word {
	if !req.Valid {
		return Word{}
	}
	data, err := b.mem.Fetch(req.Addr)
	if err != nil {
		return Word{Addr: req.Addr, Valid: true, Err: err}
	}
	return Word{Addr: req.Addr, Data: data, Valid: true}
}
