package pipeline

import "github.com/sarchlab/rvsim/insts"

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use the value read in decode.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

func (f ForwardSource) String() string {
	switch f {
	case ForwardFromEXMEM:
		return "EX/MEM"
	case ForwardFromMEMWB:
		return "MEM/WB"
	}
	return "none"
}

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	ForwardRs1 ForwardSource
	ForwardRs2 ForwardSource
}

// Any reports whether either operand is forwarded.
func (r ForwardingResult) Any() bool {
	return r.ForwardRs1 != ForwardNone || r.ForwardRs2 != ForwardNone
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines if forwarding is needed for the ID/EX stage.
// It checks if the source registers match the destination register of
// instructions in later pipeline stages.
func (h *HazardUnit) DetectForwarding(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{}

	if !idex.Valid || idex.Inst == nil {
		return result
	}

	if idex.Inst.UsesRs1() {
		result.ForwardRs1 = h.detectForwardForReg(idex.Inst.Rs1, exmem, memwb)
	}
	if idex.Inst.UsesRs2() {
		result.ForwardRs2 = h.detectForwardForReg(idex.Inst.Rs2, exmem, memwb)
	}

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}

	// EX/MEM has precedence over MEM/WB (more recent value)
	if exmem.Valid && exmem.RegWrite && exmem.Rd == reg {
		return ForwardFromEXMEM
	}

	if memwb.Valid && memwb.RegWrite && memwb.Rd == reg {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// DetectLoadUseHazard detects load-use hazards where a load instruction in
// ID/EX is immediately followed by an instruction using the loaded value.
// This requires a one-cycle stall because the value isn't available until
// the MEM stage.
func (h *HazardUnit) DetectLoadUseHazard(idex *IDEXRegister, next *insts.Instruction) bool {
	if !idex.Valid || idex.Inst == nil || next == nil {
		return false
	}

	load := idex.Inst
	if !load.IsLoad() || !load.WritesRd() {
		return false
	}

	if next.UsesRs1() && next.Rs1 == load.Rd {
		return true
	}
	if next.UsesRs2() && next.Rs2 == load.Rd {
		return true
	}

	return false
}

// GetForwardedValue returns the value to use based on forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue uint64,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint64 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		return memwb.Value
	default:
		return originalValue
	}
}
