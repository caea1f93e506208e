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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteAdd(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(0, 7, 6, 0, 5, encOpOp) // add x5, x6, x7
	s := &IDEXReg{Inst: inst, Src1: 3, Src2: 4}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(7), out.ALUOut)
}

func TestExecuteSubUnderflowWraps(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(0x20, 7, 6, 0, 5, encOpOp) // sub
	s := &IDEXReg{Inst: inst, Src1: 0, Src2: 1}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(0xffffffffffffffff), out.ALUOut)
}

func TestExecuteDivisionByZero(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(1, 7, 6, 4, 5, encOpOp) // div
	s := &IDEXReg{Inst: inst, Src1: 10, Src2: 0}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(0xffffffffffffffff), out.ALUOut)
}

func TestExecuteUnsignedDivisionByZero(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(1, 7, 6, 5, 5, encOpOp) // divu
	s := &IDEXReg{Inst: inst, Src1: 10, Src2: 0}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(0xffffffffffffffff), out.ALUOut)
}

func TestExecuteSignedOverflowDivReturnsDividend(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(1, 7, 6, 4, 5, encOpOp) // div
	s := &IDEXReg{Inst: inst, Src1: uint64(minInt64), Src2: uint64(int64(-1))}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(minInt64), out.ALUOut)
}

func TestExecuteRemainderByZeroReturnsDividend(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(1, 7, 6, 6, 5, encOpOp) // rem
	s := &IDEXReg{Inst: inst, Src1: 17, Src2: 0}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(17), out.ALUOut)
}

func TestExecuteMulhSigned(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(1, 7, 6, 1, 5, encOpOp) // mulh
	// (-1) * (-1) = 1, high word of the 128-bit product is 0.
	s := &IDEXReg{Inst: inst, Src1: uint64(int64(-1)), Src2: uint64(int64(-1))}
	out := Execute(cpu, s)
	assert.Equal(t, uint64(0), out.ALUOut)
}

func TestExecuteMulhuLargeOperands(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(1, 7, 6, 3, 5, encOpOp) // mulhu
	s := &IDEXReg{Inst: inst, Src1: 0xffffffffffffffff, Src2: 2}
	out := Execute(cpu, s)
	// 0xFFFFFFFFFFFFFFFF * 2 = 0x1FFFFFFFFFFFFFFFE, high 64 bits = 1.
	assert.Equal(t, uint64(1), out.ALUOut)
}

func TestExecuteBranchResolvesNextPC(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encB(16, 7, 6, 0, encOpBranch) // beq
	s := &IDEXReg{Inst: inst, PC: 100, Src1: 5, Src2: 5, Imm: 16}
	Execute(cpu, s)
	assert.Equal(t, uint64(116), cpu.NextPC)
}

func TestExecuteBranchNotTakenFallsThrough(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encB(16, 7, 6, 0, encOpBranch) // beq
	s := &IDEXReg{Inst: inst, PC: 100, Src1: 5, Src2: 6, Imm: 16}
	Execute(cpu, s)
	assert.Equal(t, uint64(104), cpu.NextPC)
}

func TestExecuteAddwSignExtends32BitResult(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(0, 7, 6, 0, 5, encOpOp) // funct7/funct3 don't matter for test, only name via opOp32 below
	_ = inst
	addw := checkInst(encR(0, 7, 6, 0, 5, 0x3B))
	require := addw != nil
	assert.True(t, require)
	s := &IDEXReg{Inst: encR(0, 7, 6, 0, 5, 0x3B), Src1: 0x7fffffff, Src2: 1}
	out := Execute(cpu, s)
	// 0x7fffffff + 1 overflows a 32-bit signed add to -0x80000000, sign-extended.
	assert.Equal(t, uint64(0xffffffff80000000), out.ALUOut)
}

func TestExecuteEbreakHalts(t *testing.T) {
	cpu := NewCPUState(0)
	cpu.Reg[10] = 0
	s := &IDEXReg{Inst: 0x00100073}
	Execute(cpu, s)
	assert.True(t, cpu.Halted)
	assert.False(t, cpu.Running)
}
