package insts

import (
	"strconv"
	"strings"
)

// NumRegs is the number of integer registers.
const NumRegs = 32

// Frequently referenced register indices.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegA0   uint8 = 10
	RegA7   uint8 = 17
)

// ABINames lists the ABI name of each integer register by index.
var ABINames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var abiIndex = func() map[string]uint8 {
	m := make(map[string]uint8, NumRegs+1)
	for i, name := range ABINames {
		m[name] = uint8(i)
	}
	m["fp"] = 8
	return m
}()

// RegIndex returns the index of a register given its ABI name ("a0", "fp")
// or architectural name ("x10"). Names are case-insensitive.
func RegIndex(name string) (uint8, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if idx, ok := abiIndex[name]; ok {
		return idx, true
	}
	if rest, ok := strings.CutPrefix(name, "x"); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n >= 0 && n < NumRegs && strconv.Itoa(n) == rest {
			return uint8(n), true
		}
	}
	return 0, false
}

// RegName returns the ABI name of register idx.
func RegName(idx uint8) string {
	if int(idx) < NumRegs {
		return ABINames[idx]
	}
	return "x" + strconv.Itoa(int(idx))
}
