package benchmarks_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/benchmarks"
	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Harness", func() {
	var (
		out     *bytes.Buffer
		harness *benchmarks.Harness
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		harness = benchmarks.NewHarness(benchmarks.HarnessConfig{Output: out})
	})

	It("should verify every microbenchmark", func() {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)
		results := harness.RunAll()

		Expect(results).To(HaveLen(len(benchmarks.GetMicrobenchmarks())))
		for _, r := range results {
			Expect(r.Error).To(BeEmpty(), r.Name)
			Expect(r.Verified).To(BeTrue(), r.Name)
			Expect(r.InstructionsRetired).To(BeNumerically(">", 0), r.Name)
			Expect(r.SimulatedCycles).To(BeNumerically(">", r.InstructionsRetired), r.Name)
		}
	})

	It("should report load-use stalls", func() {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)
		results := harness.RunAll()

		byName := map[string]benchmarks.BenchmarkResult{}
		for _, r := range results {
			byName[r.Name] = r
		}
		Expect(byName["memory_sequential"].StallCycles).To(BeNumerically(">", 0))
		Expect(byName["dependency_chain"].StallCycles).To(BeZero())
		Expect(byName["dependency_chain"].DataHazards).To(BeNumerically(">", 0))
		Expect(byName["branch_taken"].PipelineFlushes).To(Equal(uint64(5)))
		Expect(byName["branch_taken"].Squashed).To(Equal(uint64(10)))
		Expect(byName["dependency_chain"].Squashed).To(BeZero())
		Expect(byName["loop_simulation"].PipelineFlushes).To(Equal(uint64(9)))
	})

	It("should flag an unexpected exit code", func() {
		harness.AddBenchmarks(benchmarks.Benchmark{
			Name:         "wrong",
			Program:      insts.Assemble(insts.ADDI(insts.RegA0, 0, 1), insts.ECALL),
			ExpectedExit: 2,
		})

		results := harness.RunAll()

		Expect(results[0].ExitCode).To(Equal(int64(1)))
		Expect(results[0].Verified).To(BeFalse())
	})

	It("should record faults", func() {
		harness.AddBenchmarks(benchmarks.Benchmark{
			Name:    "fault",
			Program: insts.Assemble(0xffffffff),
		})

		results := harness.RunAll()

		Expect(results[0].Error).To(ContainSubstring("decode fault"))
		Expect(results[0].Verified).To(BeFalse())
	})

	It("should use the configured branch policy", func() {
		cfg := config.Default()
		cfg.BranchPolicy = "delay-slot"
		harness = benchmarks.NewHarness(benchmarks.HarnessConfig{Machine: cfg, Output: out})
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()...)

		results := harness.RunAll()

		for _, r := range results {
			if r.Name == "branch_taken" {
				Expect(r.ExitCode).To(Equal(int64(40)))
				Expect(r.Verified).To(BeFalse())
			}
		}
	})

	It("should print a text report", func() {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()[:1]...)
		harness.PrintResults(harness.RunAll())

		Expect(out.String()).To(ContainSubstring("Benchmark: arithmetic_sequential"))
		Expect(out.String()).To(ContainSubstring("verified: true"))
	})

	It("should print CSV", func() {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()[:2]...)
		harness.PrintCSV(harness.RunAll())

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(HavePrefix("name,cycles,instructions"))
		Expect(lines[2]).To(HavePrefix("dependency_chain,"))
		Expect(lines[2]).To(HaveSuffix(",20,true"))
	})

	It("should print a JSON report", func() {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks()[:1]...)
		Expect(harness.PrintJSON(harness.RunAll())).To(Succeed())

		var report benchmarks.BenchmarkReport
		Expect(json.Unmarshal(out.Bytes(), &report)).To(Succeed())
		Expect(report.BranchPolicy).To(Equal("squash"))
		Expect(report.Results).To(HaveLen(1))
		Expect(report.Results[0].ExitCode).To(Equal(int64(4)))
	})
})
