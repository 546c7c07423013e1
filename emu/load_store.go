package emu

import "github.com/sarchlab/rvsim/insts"

// EffectiveAddress returns rs1 + imm for a load or store.
func EffectiveAddress(inst *insts.Instruction, rs1 uint64) uint64 {
	return rs1 + uint64(inst.Imm)
}

// Extend sign- or zero-extends the low width bytes of raw.
func Extend(raw uint64, width uint8, unsigned bool) uint64 {
	if width >= 8 {
		return raw
	}
	shift := 64 - 8*uint(width)
	if unsigned {
		return raw << shift >> shift
	}
	return uint64(int64(raw<<shift) >> shift)
}

// LoadStoreUnit implements RV64I load and store operations.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// Load reads the value a load instruction produces from addr.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction, addr uint64) (uint64, error) {
	raw, err := lsu.memory.ReadUint(addr, int(inst.MemWidth), AccessLoad)
	if err != nil {
		return 0, err
	}
	return Extend(raw, inst.MemWidth, inst.Unsigned), nil
}

// Store writes the low MemWidth bytes of value to addr.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction, addr, value uint64) error {
	return lsu.memory.WriteUint(addr, int(inst.MemWidth), value)
}
