package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/clock"
)

type csrWrite struct {
	CSR   uint16
	Value uint64
	Valid bool
}

// CSRUnit puts an emu.CSRFile behind a single clocked write port. Reads see
// the value committed at the last edge.
type CSRUnit struct {
	file    *emu.CSRFile
	pending clock.Reg[csrWrite]
}

// NewCSRUnit creates a CSR unit over file.
func NewCSRUnit(file *emu.CSRFile) *CSRUnit {
	return &CSRUnit{file: file}
}

// Read returns the committed value of csr.
func (c *CSRUnit) Read(csr uint16) uint64 {
	return c.file.Read(csr)
}

// Write stages a write of value to csr.
func (c *CSRUnit) Write(csr uint16, value uint64) {
	c.pending.Set(csrWrite{CSR: csr, Value: value, Valid: true})
}

// File returns the underlying CSR file.
func (c *CSRUnit) File() *emu.CSRFile {
	return c.file
}

// Tick applies the staged write, if any.
func (c *CSRUnit) Tick() {
	c.pending.Tick()
	if w := c.pending.Get(); w.Valid {
		c.file.Write(w.CSR, w.Value)
	}
	c.pending.Set(csrWrite{})
}
