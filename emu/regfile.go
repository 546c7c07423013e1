package emu

// RegFile represents the RV64I integer register file of the functional
// emulator. It contains 32 general-purpose registers (x0-x31) and the
// program counter.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is the zero register and always reads as 0.
	X [32]uint64

	// PC is the program counter.
	PC uint64
}

// ReadReg reads a register value. Register 0 and out-of-range indices
// return 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}
