package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/clock"
	"github.com/sarchlab/rvsim/timing/memory"
	"github.com/sarchlab/rvsim/timing/regfile"
)

// FetchStage handles instruction fetch through the Memory Block read port.
//
// Because the read port takes two edges, the stage keeps two program
// counters: pc is the next address to request, expect is the address of the
// next instruction to hand to decode. An output word is accepted only when
// its address tag equals expect.
type FetchStage struct {
	block *memory.Block

	pc     clock.Reg[uint64]
	expect clock.Reg[uint64]
	epoch  clock.Reg[uint8]
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(block *memory.Block) *FetchStage {
	return &FetchStage{block: block}
}

// Reset makes pc the next instruction fetched.
func (s *FetchStage) Reset(pc uint64) {
	s.pc = *clock.NewReg(pc)
	s.expect = *clock.NewReg(pc)
}

// PC returns the next address the stage requests.
func (s *FetchStage) PC() uint64 {
	return s.pc.Get()
}

// Expected returns the address of the next instruction handed to decode.
func (s *FetchStage) Expected() uint64 {
	return s.expect.Get()
}

// Fetch computes the next IF/ID value.
func (s *FetchStage) Fetch(redirect Redirect, stall bool, ifid *clock.Reg[IFIDRegister]) {
	if redirect.Valid {
		s.release(ifid)
		ifid.Set(IFIDRegister{})
		s.block.Read(redirect.Target)
		s.pc.Set(redirect.Target + 4)
		s.expect.Set(redirect.Target)
		s.epoch.Set(redirect.Epoch)
		return
	}

	if stall {
		s.pc.Disable()
		s.expect.Disable()
		ifid.Disable()
		s.block.HoldRead()
		return
	}

	s.release(ifid)

	out := s.block.Output()
	expect := s.expect.Get()
	if out.Valid && out.Addr == expect {
		ifid.Set(IFIDRegister{
			Valid:           true,
			PC:              expect,
			Epoch:           s.epoch.Get(),
			InstructionWord: out.Data,
			Err:             out.Err,
		})
		s.expect.Set(expect + 4)
	} else {
		ifid.Set(IFIDRegister{})
	}

	pc := s.pc.Get()
	s.block.Read(pc)
	s.pc.Set(pc + 4)
}

func (s *FetchStage) release(ifid *clock.Reg[IFIDRegister]) {
	s.pc.Enable()
	s.expect.Enable()
	ifid.Enable()
	s.block.ReleaseRead()
}

// Tick commits the stage's registers.
func (s *FetchStage) Tick() {
	s.pc.Tick()
	s.expect.Tick()
	s.epoch.Tick()
}

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	regFile *regfile.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *regfile.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
	}
}

// Peek decodes the IF/ID instruction without reading registers.
func (s *DecodeStage) Peek(ifid *IFIDRegister) *insts.Instruction {
	if !ifid.Valid || ifid.Err != nil {
		return nil
	}
	return s.decoder.Decode(ifid.InstructionWord)
}

// Decode decodes the instruction and reads register values. Values being
// written back this cycle are taken from memwb.
func (s *DecodeStage) Decode(ifid *IFIDRegister, memwb *MEMWBRegister) IDEXRegister {
	if !ifid.Valid {
		return IDEXRegister{}
	}

	inst := s.decoder.Decode(ifid.InstructionWord)
	result := IDEXRegister{
		Valid: true,
		PC:    ifid.PC,
		Epoch: ifid.Epoch,
		Inst:  inst,
	}

	switch {
	case ifid.Err != nil:
		result.Fault = ifid.Err
		return result
	case inst.Op == insts.OpUnknown:
		result.Fault = &DecodeFault{PC: ifid.PC, Word: ifid.InstructionWord}
		return result
	}

	result.Rs1Value = s.readReg(inst.Rs1, memwb)
	result.Rs2Value = s.readReg(inst.Rs2, memwb)

	return result
}

func (s *DecodeStage) readReg(reg uint8, memwb *MEMWBRegister) uint64 {
	if reg != 0 && memwb.Valid && memwb.RegWrite && memwb.Rd == reg {
		return memwb.Value
	}
	return s.regFile.Read(reg)
}

type delaySlot struct {
	PC      uint64
	Epoch   uint8
	Pending bool
}

// ExecuteStage handles ALU operations, address calculation, control
// transfers and CSR access. It owns the execute epoch and the redirect
// register Fetch reads.
type ExecuteStage struct {
	alu        *emu.ALU
	branchUnit *emu.BranchUnit
	csr        *CSRUnit
	policy     BranchPolicy

	tohost    uint64
	hasTohost bool

	epoch    clock.Reg[uint8]
	redirect clock.Reg[Redirect]
	slot     clock.Reg[delaySlot]
	draining clock.Reg[bool]
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(csr *CSRUnit, policy BranchPolicy) *ExecuteStage {
	return &ExecuteStage{
		alu:        emu.NewALU(),
		branchUnit: emu.NewBranchUnit(),
		csr:        csr,
		policy:     policy,
	}
}

// SetTohost makes a store of an odd value to addr halt the program.
func (s *ExecuteStage) SetTohost(addr uint64) {
	s.tohost = addr
	s.hasTohost = true
}

// Redirect returns the redirect registered in the previous cycle.
func (s *ExecuteStage) Redirect() Redirect {
	return s.redirect.Get()
}

// ExecuteResult reports what happened to the instruction in ID/EX.
type ExecuteResult struct {
	// Squashed is true when a wrong-path instruction was discarded.
	Squashed bool

	// Drained is true when an instruction younger than a halt or fault
	// was discarded.
	Drained bool

	// Redirect is the control transfer resolved this cycle.
	Redirect Redirect
}

// Execute computes the next EX/MEM value. rs1 and rs2 are the operand
// values after forwarding.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1, rs2 uint64) (EXMEMRegister, ExecuteResult) {
	s.redirect.Set(Redirect{})

	var res ExecuteResult
	if !idex.Valid {
		return EXMEMRegister{}, res
	}

	if s.draining.Get() {
		res.Drained = true
		return EXMEMRegister{}, res
	}

	if s.squash(idex) {
		res.Squashed = true
		return EXMEMRegister{}, res
	}

	inst := idex.Inst
	out := EXMEMRegister{
		Valid: true,
		PC:    idex.PC,
		Inst:  inst,
	}

	if idex.Fault != nil {
		out.Fault = idex.Fault
		s.draining.Set(true)
		return out, res
	}

	out.Rd = inst.Rd
	out.RegWrite = inst.WritesRd()

	switch {
	case inst.IsHalt():
		out.Halt = true
		out.ExitCode = int64(rs1)
		s.draining.Set(true)

	case inst.Op == insts.OpMRET:
		res.Redirect = s.transfer(idex, s.csr.Read(emu.CSRMepc))

	case inst.IsCSR():
		old := s.csr.Read(inst.CSR)
		if v, ok := emu.CSRUpdate(inst, old, emu.CSRSource(inst, rs1)); ok {
			s.csr.Write(inst.CSR, v)
		}
		out.ALUResult = old

	case inst.IsLoad():
		out.ALUResult = emu.EffectiveAddress(inst, rs1)
		out.MemRead = true

	case inst.IsStore():
		out.ALUResult = emu.EffectiveAddress(inst, rs1)
		out.StoreValue = rs2
		out.MemWrite = true
		if s.hasTohost && out.ALUResult == s.tohost && rs2&1 == 1 {
			out.Halt = true
			out.ExitCode = int64(rs2 >> 1)
			s.draining.Set(true)
		}

	default:
		out.ALUResult = s.alu.Operate(inst, idex.PC, rs1, rs2)
		if taken, target := s.branchUnit.Resolve(inst, idex.PC, rs1, rs2); taken {
			res.Redirect = s.transfer(idex, target)
		}
	}

	return out, res
}

// squash reports whether the instruction in ID/EX is on the wrong path, and
// consumes the delay slot when it executes instead.
func (s *ExecuteStage) squash(idex *IDEXRegister) bool {
	slot := s.slot.Get()
	if idex.Epoch == s.epoch.Get() {
		if slot.Pending {
			s.slot.Set(delaySlot{})
		}
		return false
	}

	if slot.Pending {
		s.slot.Set(delaySlot{})
		if idex.PC == slot.PC && idex.Epoch == slot.Epoch {
			return false
		}
	}
	return true
}

// transfer registers a redirect to target and starts a new epoch.
func (s *ExecuteStage) transfer(idex *IDEXRegister, target uint64) Redirect {
	epoch := s.epoch.Get() + 1
	r := Redirect{Valid: true, Target: target, Epoch: epoch}

	s.epoch.Set(epoch)
	s.redirect.Set(r)
	if s.policy == BranchDelaySlot {
		s.slot.Set(delaySlot{PC: idex.PC + 4, Epoch: idex.Epoch, Pending: true})
	}
	return r
}

// Tick commits the stage's registers.
func (s *ExecuteStage) Tick() {
	s.epoch.Tick()
	s.redirect.Tick()
	s.slot.Tick()
	s.draining.Tick()
}

// MemoryStage handles memory reads and writes through the Memory Block
// data port.
type MemoryStage struct {
	block    *memory.Block
	draining clock.Reg[bool]
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(block *memory.Block) *MemoryStage {
	return &MemoryStage{block: block}
}

// Access performs the memory operation of the instruction in EX/MEM and
// computes the next MEM/WB value.
func (s *MemoryStage) Access(exmem *EXMEMRegister) MEMWBRegister {
	if !exmem.Valid || s.draining.Get() {
		return MEMWBRegister{}
	}

	out := MEMWBRegister{
		Valid:    true,
		PC:       exmem.PC,
		Inst:     exmem.Inst,
		Value:    exmem.ALUResult,
		Rd:       exmem.Rd,
		RegWrite: exmem.RegWrite,
		Halt:     exmem.Halt,
		ExitCode: exmem.ExitCode,
		Fault:    exmem.Fault,
	}
	if out.Fault != nil {
		out.RegWrite = false
		return out
	}

	var err error
	switch {
	case exmem.MemRead:
		var raw uint64
		raw, err = s.block.Load(exmem.ALUResult, int(exmem.Inst.MemWidth))
		if err == nil {
			out.Value = emu.Extend(raw, exmem.Inst.MemWidth, exmem.Inst.Unsigned)
		}
	case exmem.MemWrite:
		err = s.block.Store(exmem.ALUResult, int(exmem.Inst.MemWidth), exmem.StoreValue)
	}

	if err != nil {
		out.Fault = err
		out.RegWrite = false
		out.Halt = false
		s.draining.Set(true)
	}

	return out
}

// Tick commits the stage's registers.
func (s *MemoryStage) Tick() {
	s.draining.Tick()
}

// WritebackStage handles writing results back to the register file.
type WritebackStage struct {
	regFile *regfile.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *regfile.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback writes the result in MEM/WB to the register file. It returns
// true if an instruction retired.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) bool {
	if !memwb.Valid || memwb.Fault != nil {
		return false
	}

	if memwb.RegWrite {
		s.regFile.Write(memwb.Rd, memwb.Value)
	}

	return true
}
