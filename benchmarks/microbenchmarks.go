package benchmarks

import "github.com/sarchlab/rvsim/insts"

const (
	zero = insts.RegZero
	ra   = insts.RegRA
	t0   = uint8(5)
	t1   = uint8(6)
	s0   = uint8(8)
	a0   = insts.RegA0
)

// dataOffset is where memory benchmarks keep their data, relative to the
// program's first instruction.
const dataOffset = 512

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		loopSimulation(),
	}
}

// 20 independent ADDs spread over five registers.
func arithmeticSequential() Benchmark {
	var words []uint32
	for i := 0; i < 20; i++ {
		rd := a0 + uint8(i%5)
		words = append(words, insts.ADDI(rd, rd, 1))
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDs - measures ALU throughput",
		Program:      insts.Assemble(append(words, insts.ECALL)...),
		ExpectedExit: 4,
	}
}

// 20 ADDs that each consume the previous result.
func dependencyChain() Benchmark {
	var words []uint32
	for i := 0; i < 20; i++ {
		words = append(words, insts.ADDI(a0, a0, 1))
	}

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDs - measures forwarding",
		Program:      insts.Assemble(append(words, insts.ECALL)...),
		ExpectedExit: 20,
	}
}

// Store/load pairs where each store consumes the value just loaded.
func memorySequential() Benchmark {
	words := []uint32{
		insts.AUIPC(s0, 0),
		insts.ADDI(a0, zero, 42),
	}
	for i := int64(0); i < 10; i++ {
		off := dataOffset + 8*i
		words = append(words, insts.SD(a0, s0, off), insts.LD(a0, s0, off))
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 store/load pairs - measures load-use stalls",
		Program:      insts.Assemble(append(words, insts.ECALL)...),
		ExpectedExit: 42,
	}
}

// Five calls to a leaf function that increments a0.
func functionCalls() Benchmark {
	const calls = 5
	const fn = calls + 1

	var words []uint32
	for i := 0; i < calls; i++ {
		words = append(words, insts.JAL(ra, int64(fn-i)*4))
	}
	words = append(words,
		insts.ECALL,
		insts.ADDI(a0, a0, 1),
		insts.JALR(zero, ra, 0),
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 jal/jalr call pairs - measures call overhead",
		Program:      insts.Assemble(words...),
		ExpectedExit: calls,
	}
}

// Five always-taken branches, each skipping one instruction.
func branchTaken() Benchmark {
	var words []uint32
	for i := 0; i < 5; i++ {
		words = append(words,
			insts.BEQ(zero, zero, 8),
			insts.ADDI(a0, a0, 7),
		)
	}
	words = append(words, insts.ADDI(a0, a0, 5), insts.ECALL)

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 taken branches - measures redirect penalty",
		Program:      insts.Assemble(words...),
		ExpectedExit: 5,
	}
}

// A short mix of ALU, shift and memory operations.
func mixedOperations() Benchmark {
	words := []uint32{
		insts.ADDI(a0, zero, 3),
		insts.SLLI(a0, a0, 4),
		insts.ADDI(t0, zero, 5),
		insts.SUB(a0, a0, t0),
		insts.AUIPC(s0, 0),
		insts.SD(a0, s0, dataOffset),
		insts.LD(t1, s0, dataOffset),
		insts.ADD(a0, a0, t1),
		insts.ANDI(a0, a0, 0x7f),
		insts.ECALL,
	}

	return Benchmark{
		Name:         "mixed_operations",
		Description:  "Mix of ALU, shift and memory ops - measures combined behavior",
		Program:      insts.Assemble(words...),
		ExpectedExit: 86,
	}
}

// Sums 10 down to 1 with a backward branch.
func loopSimulation() Benchmark {
	words := []uint32{
		insts.ADDI(t0, zero, 10),
		insts.ADDI(a0, zero, 0),
		insts.ADD(a0, a0, t0),
		insts.ADDI(t0, t0, -1),
		insts.BNE(t0, zero, -8),
		insts.ECALL,
	}

	return Benchmark{
		Name:         "loop_simulation",
		Description:  "10-iteration counted loop - measures backward branch cost",
		Program:      insts.Assemble(words...),
		ExpectedExit: 55,
	}
}
