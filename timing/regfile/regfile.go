// Package regfile provides the clocked RV64I integer register file.
package regfile

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/clock"
)

// ErrUnknownRegister is returned when a register name cannot be resolved.
var ErrUnknownRegister = errors.New("unknown register")

// View is a copy of the committed register values, indexed by register
// number.
type View [insts.NumRegs]uint64

// Get returns a register value by ABI or architectural name.
func (v View) Get(name string) (uint64, error) {
	idx, ok := insts.RegIndex(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return v[idx], nil
}

// RegFile holds 32 clocked registers. Register x0 is hard-wired to zero.
type RegFile struct {
	regs [insts.NumRegs]clock.Reg[uint64]
}

// New creates a register file with every register zero.
func New() *RegFile {
	return &RegFile{}
}

// Read returns the committed value of register idx.
func (r *RegFile) Read(idx uint8) uint64 {
	if idx == 0 || int(idx) >= insts.NumRegs {
		return 0
	}
	return r.regs[idx].Get()
}

// Write stages value for register idx. Writes to x0 are dropped.
func (r *RegFile) Write(idx uint8, value uint64) {
	if idx == 0 || int(idx) >= insts.NumRegs {
		return
	}
	r.regs[idx].Set(value)
}

// Get returns the committed value of a register by name.
func (r *RegFile) Get(name string) (uint64, error) {
	return r.View().Get(name)
}

// View returns a copy of the committed register values.
func (r *RegFile) View() View {
	var v View
	for i := range r.regs {
		v[i] = r.Read(uint8(i))
	}
	return v
}

// Tick commits staged writes.
func (r *RegFile) Tick() {
	for i := range r.regs {
		r.regs[i].Tick()
	}
}
