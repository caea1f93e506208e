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

// Package sim implements a cycle-accurate five-stage (IF/ID/EX/MEM/WB)
// RV64I+M pipeline simulator (spec.md §3.4, §4.8, §4.9), executing the
// RV32I assembly emitted by internal/codegen once assembled to RV64
// machine code by an external assembler — this package only ever
// interprets already-encoded 32-bit instruction words.
package sim

import "fmt"

const (
	// DefaultMemBase is the guest physical address the loaded image starts
	// at, matching the bare-metal `_start`/`.bss` layout internal/codegen
	// emits.
	DefaultMemBase = 0x8000_0000
	// DefaultMemSize is the guest address space size in bytes.
	DefaultMemSize = 0x0800_0000
)

// CPUState holds the architectural register file and performance counters
// that survive across cycles — as opposed to the four pipeline registers,
// which are transient per-cycle latches (see Pipeline).
type CPUState struct {
	Reg     [32]uint64
	PC      uint64
	Running bool

	// NextPC is the sequentially- or branch-computed successor to the
	// instruction currently in execute, decided by Execute.
	NextPC uint64
	// PredPC is the fetch stage's naive PC+4 prediction, compared against
	// NextPC once the branch resolves in execute (see Pipeline.branchMispredict).
	PredPC uint64

	CycleCount      int64
	InstCount       int64
	BranchCount     int64
	DataHazardCount int64

	// ExitCode and Halted record the outcome of an ebreak trap (spec.md
	// §4.9): Halted true means Running was cleared by the trap; ExitCode
	// is whatever a0 held at the time.
	Halted   bool
	ExitCode uint64
}

// NewCPUState returns a CPU with PC parked at base, registers zeroed.
func NewCPUState(base uint64) *CPUState {
	return &CPUState{PC: base}
}

// regNames gives the RISC-V calling-convention ABI name for register i,
// used only for diagnostics (spec.md §4.9's halt-trap report, and an
// optional --trace dump).
var regNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of register i (e.g. "a0" for x10).
func RegName(i int) string { return regNames[i] }

// HaltTrap implements the ebreak halt convention (spec.md §4.9): a0 holds
// the exit code; zero is a clean exit, anything else a bad trap. Both
// print a short performance-counter summary.
func (c *CPUState) HaltTrap(pc, code uint64) {
	if c.Halted {
		return // the same ebreak rides through mem/writeback after already trapping in execute
	}
	if code != 0 {
		fmt.Println("HIT BAD TRAP!")
	} else {
		fmt.Println("HIT GOOD TRAP!")
	}
	fmt.Printf("Total instructions executed: %d\n", c.InstCount)
	fmt.Printf("Total cycles: %d\n\n", c.CycleCount)
	fmt.Printf("Total Data Hazard stalls: %d\n\n", c.DataHazardCount)
	fmt.Printf("Total Branch Mispredictions: %d\n", c.BranchCount)
	fmt.Printf("Program ended at pc 0x%08x, with exit code %d\n", pc, code)
	c.Running = false
	c.Halted = true
	c.ExitCode = code
}

// IFIDReg is the fetch/decode pipeline latch.
type IFIDReg struct {
	PC   uint64
	Inst uint32
}

// IDEXReg is the decode/execute pipeline latch.
type IDEXReg struct {
	PC   uint64
	Inst uint32

	RD, RS1, RS2 int32

	Src1, Src2, Imm uint64

	Jump, Load, Store bool
}

// EXMEMReg is the execute/memory pipeline latch.
type EXMEMReg struct {
	PC     uint64
	Inst   uint32
	RD     int32
	Src2   uint64
	ALUOut uint64

	Load, Store bool
}

// MEMWBReg is the memory/writeback pipeline latch.
type MEMWBReg struct {
	PC      uint64
	Inst    uint32
	RD      int32
	ALUOut  uint64
	MemData uint64

	Load, Store bool
}

// nopInst is the canonical RV32I NOP (addi x0, x0, 0), used to bubble a
// stalled or squashed pipeline stage.
const nopInst uint32 = 0x13
