// Copyright 2026 sysyc Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sim

import "fmt"

// MemoryStage implements the memory stage (spec.md §4.9): sized loads/stores
// through the ALU-computed address, sign-extended by load kind.
func MemoryStage(cpu *CPUState, s *EXMEMReg, mem *Memory) MEMWBReg {
	d := checkInst(s.Inst)
	var memData uint64

	switch d.name {
	case "lb":
		v, _ := mem.Read(s.ALUOut, 1)
		memData = sext(v, 8)
	case "lh":
		v, _ := mem.Read(s.ALUOut, 2)
		memData = sext(v, 16)
	case "lw":
		v, _ := mem.Read(s.ALUOut, 4)
		memData = sext(v, 32)
	case "lbu":
		memData, _ = mem.Read(s.ALUOut, 1)
	case "lhu":
		memData, _ = mem.Read(s.ALUOut, 2)
	case "lwu":
		memData, _ = mem.Read(s.ALUOut, 4)
	case "ld":
		memData, _ = mem.Read(s.ALUOut, 8)
	case "sb":
		_ = mem.Write(s.ALUOut, 1, s.Src2)
	case "sh":
		_ = mem.Write(s.ALUOut, 2, s.Src2)
	case "sw":
		_ = mem.Write(s.ALUOut, 4, s.Src2)
	case "sd":
		_ = mem.Write(s.ALUOut, 8, s.Src2)
	case "ebreak":
		cpu.HaltTrap(s.PC, cpu.Reg[10])
	}

	return MEMWBReg{
		PC: s.PC, Inst: s.Inst, RD: s.RD,
		ALUOut: s.ALUOut, MemData: memData,
		Load: s.Load, Store: s.Store,
	}
}

// Writeback implements the writeback stage (spec.md §4.9): branches,
// stores, and ebreak never write a register; loads write the memory
// result, sign- or zero-extended by load kind; everything else writes the
// ALU result. x0 is
// always forced back to zero.
func Writeback(cpu *CPUState, s *MEMWBReg) {
	d := checkInst(s.Inst)
	switch d.name {
	case "beq", "bne", "blt", "bge", "bltu", "bgeu":
	case "sb", "sh", "sw", "sd":
	case "lb", "lh", "lw", "ld", "lbu", "lhu", "lwu":
		cpu.Reg[s.RD] = s.MemData
	case "ebreak":
		cpu.HaltTrap(s.PC, cpu.Reg[10])
	default:
		cpu.Reg[s.RD] = s.ALUOut
	}
	cpu.Reg[0] = 0
	cpu.InstCount++
}

// Pipeline drives a CPUState and Memory through one cycle at a time
// (spec.md §3.4, §4.9). D/eReg/mReg/wReg are the four architected
// pipeline registers, each latched at the end of a cycle with the value
// that stage computed from its own committed predecessor.
type Pipeline struct {
	CPU *CPUState
	Mem *Memory

	D    IFIDReg
	eReg IDEXReg
	mReg EXMEMReg
	wReg MEMWBReg

	fStall, dStall bool

	BranchCount     int64
	DataHazardCount int64
}

// NewPipeline builds a pipeline over mem, with the CPU's PC parked at
// mem.Base.
func NewPipeline(mem *Memory) *Pipeline {
	cpu := NewCPUState(mem.Base)
	p := &Pipeline{CPU: cpu, Mem: mem}
	p.Init()
	return p
}

// Init resets every pipeline register to a bubble and starts the CPU
// running.
func (p *Pipeline) Init() {
	p.CPU.Reg[0] = 0
	p.CPU.Running = true
	p.CPU.CycleCount = 0
	p.CPU.InstCount = 0

	p.D = IFIDReg{Inst: nopInst}
	p.eReg = IDEXReg{Inst: nopInst}
	p.mReg = EXMEMReg{Inst: nopInst}
	p.wReg = MEMWBReg{Inst: nopInst}

	p.fStall = false
	p.dStall = false
}

// Step advances every stage by one cycle, in reverse pipeline order so
// each stage reads its predecessor's still-committed latch before that
// latch is overwritten (spec.md §4.9).
func (p *Pipeline) Step() {
	p.CPU.CycleCount++

	Writeback(p.CPU, &p.wReg)
	wNext := MemoryStage(p.CPU, &p.mReg, p.Mem)
	if d := checkInst(p.eReg.Inst); d != nil && d.name == "ebreak" {
		// ebreak halts the CPU in execute; the one older instruction still
		// between memory and writeback retires now, before the trap reads a0.
		Writeback(p.CPU, &wNext)
		wNext = MEMWBReg{Inst: nopInst}
	}
	mNext := Execute(p.CPU, &p.eReg)

	var eNext IDEXReg
	if p.CPU.Running {
		eNext = Decode(p.CPU, &p.D)
	}

	var dNext IFIDReg
	dNext.PC = p.CPU.PC
	if p.CPU.Running {
		inst, err := p.Mem.FetchInst(p.CPU.PC)
		if err != nil {
			p.CPU.Running = false
		}
		dNext.Inst = inst
	}
	p.CPU.PredPC = p.CPU.PC + 4

	oldE, oldM := p.eReg, p.mReg
	p.forward(&eNext, oldE, oldM, mNext, wNext)
	p.branchMispredict(&eNext, &dNext)

	p.mReg = mNext
	p.wReg = wNext
	p.eReg = eNext
	if !p.dStall {
		p.D = dNext
	}
	if !p.fStall {
		p.CPU.PC = p.CPU.PredPC
	}

	p.dStall = false
	p.fStall = false
}

// forward implements EX/MEM->ID/EX and MEM/WB->ID/EX operand forwarding,
// and the one-cycle load-use stall when the producer sitting in EX this
// cycle is itself a load (spec.md §4.9). oldE/oldM are last cycle's
// committed ID/EX and EX/MEM latches — the instructions finishing EX and
// MEM respectively this cycle — while mNext/wNext are those same
// instructions' freshly computed results.
func (p *Pipeline) forward(eNext *IDEXReg, oldE IDEXReg, oldM EXMEMReg, mNext EXMEMReg, wNext MEMWBReg) {
	aluA, aluB := eNext.RS1, eNext.RS2
	dstE, dstM := oldE.RD, oldM.RD

	if !oldE.Store {
		if oldE.Load {
			if (dstE == aluA || dstE == aluB) && dstE != 0 {
				*eNext = IDEXReg{Inst: nopInst}
				p.fStall = true
				p.dStall = true
				p.DataHazardCount++
				p.CPU.DataHazardCount++
				return
			}
		} else {
			if dstE == aluA && dstE != 0 {
				eNext.Src1 = mNext.ALUOut
			}
			if dstE == aluB && dstE != 0 {
				eNext.Src2 = mNext.ALUOut
			}
		}
	}

	if !oldM.Store {
		if oldM.Load {
			if dstM == aluA && dstM != 0 {
				eNext.Src1 = wNext.MemData
			}
			if dstM == aluB && dstM != 0 {
				eNext.Src2 = wNext.MemData
			}
		} else {
			if dstM == aluA && dstM != 0 {
				eNext.Src1 = wNext.ALUOut
			}
			if dstM == aluB && dstM != 0 {
				eNext.Src2 = wNext.ALUOut
			}
		}
	}
}

// branchMispredict flushes the two youngest in-flight instructions and
// redirects fetch when execute's resolved NextPC disagrees with the PC
// the fetch stage already ran with (spec.md §4.9): the instruction that
// is now in decode (p.D, still last cycle's committed latch at this
// point) was fetched from the wrong path.
func (p *Pipeline) branchMispredict(eNext *IDEXReg, dNext *IFIDReg) {
	if p.eReg.Jump && p.CPU.NextPC != p.D.PC {
		*eNext = IDEXReg{Inst: nopInst}
		*dNext = IFIDReg{Inst: nopInst}
		p.dStall = false
		p.fStall = false
		p.CPU.PredPC = p.CPU.NextPC

		p.BranchCount++
		p.CPU.BranchCount++
	}
}

// PrintState dumps the four pipeline latches and every nonzero register,
// used by the --trace CLI flag.
func (p *Pipeline) PrintState() {
	fmt.Printf("cycle %d  pc=0x%08x\n", p.CPU.CycleCount, p.CPU.PC)
	fmt.Printf("  IF/ID : pc=0x%08x inst=0x%08x\n", p.D.PC, p.D.Inst)
	fmt.Printf("  ID/EX : pc=0x%08x inst=0x%08x rd=%d rs1=%d rs2=%d\n",
		p.eReg.PC, p.eReg.Inst, p.eReg.RD, p.eReg.RS1, p.eReg.RS2)
	fmt.Printf("  EX/MEM: pc=0x%08x inst=0x%08x rd=%d alu=0x%016x\n",
		p.mReg.PC, p.mReg.Inst, p.mReg.RD, p.mReg.ALUOut)
	fmt.Printf("  MEM/WB: pc=0x%08x inst=0x%08x rd=%d alu=0x%016x\n",
		p.wReg.PC, p.wReg.Inst, p.wReg.RD, p.wReg.ALUOut)
	for i := 0; i < 32; i++ {
		if p.CPU.Reg[i] != 0 {
			fmt.Printf("  %s (x%d): 0x%016x\n", RegName(i), i, p.CPU.Reg[i])
		}
	}
}

// Run steps the pipeline until the CPU halts or maxCycles is reached (0
// means unbounded), returning the number of cycles executed.
func (p *Pipeline) Run(maxCycles int64, trace bool) int64 {
	var n int64
	for p.CPU.Running {
		if trace {
			p.PrintState()
		}
		p.Step()
		n++
		if maxCycles > 0 && n >= maxCycles {
			break
		}
	}
	return n
}
