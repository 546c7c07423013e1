package core

import (
	"github.com/sarchlab/rvsim/timing/regfile"
)

// WindowWord is one instruction word of a snapshot's memory window.
type WindowWord struct {
	Addr uint64
	Word uint32
	// Valid is false for addresses outside mapped memory.
	Valid bool
}

// Snapshot is a copy of the state a debugger shows.
type Snapshot struct {
	PC     uint64
	Cycle  uint64
	Regs   regfile.View
	Window []WindowWord
}

// Snapshot copies the current state. The memory window holds rows words
// starting at the fetch PC.
func (c *Core) Snapshot(rows int) Snapshot {
	pc := c.pipe.PC()
	s := Snapshot{
		PC:    pc,
		Cycle: c.pipe.Cycle(),
		Regs:  c.regFile.View(),
	}

	for i := 0; i < rows; i++ {
		addr := pc + uint64(4*i)
		word, ok := c.block.Peek(addr)
		s.Window = append(s.Window, WindowWord{Addr: addr, Word: word, Valid: ok})
	}

	return s
}
