package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDecodeFault is returned when an instruction that cannot be decoded is
// architecturally executed.
var ErrDecodeFault = errors.New("decode fault")

// DecodeFault carries the offending word and its address.
type DecodeFault struct {
	PC   uint64
	Word uint32
}

func (f *DecodeFault) Error() string {
	return fmt.Sprintf("decode fault: unknown instruction 0x%08x at pc 0x%x", f.Word, f.PC)
}

// Unwrap lets errors.Is match ErrDecodeFault.
func (f *DecodeFault) Unwrap() error {
	return ErrDecodeFault
}

// BranchPolicy selects what happens to instructions fetched after a taken
// control transfer and before the redirect reaches Fetch.
type BranchPolicy int

const (
	// BranchSquash discards every wrong-path instruction.
	BranchSquash BranchPolicy = iota
	// BranchDelaySlot executes the instruction at branch PC + 4 and
	// discards the rest.
	BranchDelaySlot
)

func (p BranchPolicy) String() string {
	switch p {
	case BranchSquash:
		return "squash"
	case BranchDelaySlot:
		return "delay-slot"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseBranchPolicy converts a policy name to a BranchPolicy.
// The empty string selects BranchSquash.
func ParseBranchPolicy(s string) (BranchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "squash":
		return BranchSquash, nil
	case "delay-slot", "delayslot", "delay_slot":
		return BranchDelaySlot, nil
	}
	return BranchSquash, fmt.Errorf("unknown branch policy %q", s)
}
