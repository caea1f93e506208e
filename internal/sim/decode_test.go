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
	"github.com/stretchr/testify/require"
)

const (
	encOpLoad   = 0x03
	encOpStore  = 0x23
	encOpImm    = 0x13
	encOpOp     = 0x33
	encOpBranch = 0x63
	encOpJal    = 0x6F
	encOpJalr   = 0x67
	encOpLui    = 0x37
	encOpAuipc  = 0x17
	encOpSystem = 0x73
)

func encR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encI(imm, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encS(imm, rs2, rs1, funct3, opcode uint32) uint32 {
	return ((imm>>5)&0x7f)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (imm&0x1f)<<7 | opcode
}

func encB(imm, rs2, rs1, funct3, opcode uint32) uint32 {
	bit12 := (imm >> 12) & 1
	bit11 := (imm >> 11) & 1
	bits10_5 := (imm >> 5) & 0x3f
	bits4_1 := (imm >> 1) & 0xf
	return bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | bits4_1<<8 | bit11<<7 | opcode
}

func encU(imm, rd, opcode uint32) uint32 {
	return (imm & 0xfffff000) | rd<<7 | opcode
}

func encJ(imm, rd, opcode uint32) uint32 {
	bit20 := (imm >> 20) & 1
	bits10_1 := (imm >> 1) & 0x3ff
	bit11 := (imm >> 11) & 1
	bits19_12 := (imm >> 12) & 0xff
	return bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | rd<<7 | opcode
}

func TestCheckInstMatchesAddi(t *testing.T) {
	inst := encI(100, 6, 0, 5, encOpImm)
	d := checkInst(inst)
	require.NotNil(t, d)
	assert.Equal(t, "addi", d.name)
}

func TestCheckInstMatchesAddAndSub(t *testing.T) {
	add := checkInst(encR(0, 7, 6, 0, 5, encOpOp))
	require.NotNil(t, add)
	assert.Equal(t, "add", add.name)

	sub := checkInst(encR(0x20, 7, 6, 0, 5, encOpOp))
	require.NotNil(t, sub)
	assert.Equal(t, "sub", sub.name)
}

func TestCheckInstMatchesMulDivFamily(t *testing.T) {
	mul := checkInst(encR(1, 7, 6, 0, 5, encOpOp))
	require.NotNil(t, mul)
	assert.Equal(t, "mul", mul.name)

	div := checkInst(encR(1, 7, 6, 4, 5, encOpOp))
	require.NotNil(t, div)
	assert.Equal(t, "div", div.name)
}

func TestCheckInstMatchesLoadsAndStores(t *testing.T) {
	lw := checkInst(encI(8, 6, 2, 5, encOpLoad))
	require.NotNil(t, lw)
	assert.Equal(t, "lw", lw.name)

	sw := checkInst(encS(8, 5, 6, 2, encOpStore))
	require.NotNil(t, sw)
	assert.Equal(t, "sw", sw.name)
}

func TestCheckInstMatchesBranch(t *testing.T) {
	beq := checkInst(encB(16, 6, 5, 0, encOpBranch))
	require.NotNil(t, beq)
	assert.Equal(t, "beq", beq.name)
}

func TestCheckInstMatchesJalAndLui(t *testing.T) {
	jal := checkInst(encJ(16, 1, encOpJal))
	require.NotNil(t, jal)
	assert.Equal(t, "jal", jal.name)

	lui := checkInst(encU(0x12345000, 5, encOpLui))
	require.NotNil(t, lui)
	assert.Equal(t, "lui", lui.name)
}

func TestCheckInstMatchesEbreak(t *testing.T) {
	d := checkInst(0x00100073)
	require.NotNil(t, d)
	assert.Equal(t, "ebreak", d.name)
}

func TestDecodeAddiReadsRegistersAndSignExtendsImm(t *testing.T) {
	cpu := NewCPUState(0)
	cpu.Reg[6] = 5
	inst := encI(uint32(int32(-1))&0xfff, 6, 0, 5, encOpImm) // addi x5, x6, -1
	idex := Decode(cpu, &IFIDReg{PC: 0, Inst: inst})
	assert.Equal(t, int32(5), idex.RD)
	assert.Equal(t, int32(6), idex.RS1)
	assert.Equal(t, uint64(5), idex.Src1)
	assert.Equal(t, uint64(0xffffffffffffffff), idex.Imm)
}

func TestDecodeShiftImmediateUsesShamtNotSignExtendedImm(t *testing.T) {
	cpu := NewCPUState(0)
	inst := encR(0, 3, 6, 1, 5, encOpImm) // slli x5, x6, 3
	idex := Decode(cpu, &IFIDReg{Inst: inst})
	assert.Equal(t, uint64(3), idex.Imm)
}

func TestDecodeClassifiesJumpLoadStore(t *testing.T) {
	cpu := NewCPUState(0)
	beq := Decode(cpu, &IFIDReg{Inst: encB(16, 6, 5, 0, encOpBranch)})
	assert.True(t, beq.Jump)

	lw := Decode(cpu, &IFIDReg{Inst: encI(0, 6, 2, 5, encOpLoad)})
	assert.True(t, lw.Load)

	sw := Decode(cpu, &IFIDReg{Inst: encS(0, 5, 6, 2, encOpStore)})
	assert.True(t, sw.Store)
}

func TestDecodePanicsOnUnmatchedInstruction(t *testing.T) {
	cpu := NewCPUState(0)
	assert.Panics(t, func() {
		Decode(cpu, &IFIDReg{Inst: 0xFFFFFFFF})
	})
}
