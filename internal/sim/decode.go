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
	"fmt"
	"strings"
)

// InstKind names the instruction-word layout used to decode its operands
// and immediate (spec.md §4.8).
type InstKind int

const (
	KindR InstKind = iota
	KindI
	KindS
	KindB
	KindU
	KindJ
	KindN // no operand fields decoded (e.g. ebreak)
)

// instDesc is one entry of the decode table: a 32-character mask pattern
// over '0'/'1'/'?' matched against the raw instruction word, the
// mnemonic, and its field layout.
type instDesc struct {
	pattern string
	name    string
	kind    InstKind
}

// rep returns ch repeated n times, used to build don't-care/field-width
// runs when assembling a 32-bit match pattern below.
func rep(n int, ch byte) string { return strings.Repeat(string(ch), n) }

const (
	dc5  = "?????"
	dc7  = "???????"
	dc12 = "????????????"
	dc20 = "????????????????????"
)

// rType assembles an R-type match pattern: funct7 | rs2 | rs1 | funct3 | rd | opcode.
func rType(funct7, funct3, opcode string) string {
	return funct7 + dc5 + dc5 + funct3 + dc5 + opcode
}

// iType assembles a generic I-type pattern (immediate bits are operands,
// never discriminating, so left as don't-care).
func iType(funct3, opcode string) string {
	return dc12 + dc5 + funct3 + dc5 + opcode
}

// iShift64 assembles an RV64 register-shift-immediate pattern: a 6-bit
// funct6 plus a 6-bit shift amount replace the 12-bit immediate field.
func iShift64(funct6, funct3, opcode string) string {
	return funct6 + rep(6, '?') + dc5 + funct3 + dc5 + opcode
}

// iShift32 assembles the *w shift-immediate pattern, which keeps the
// full RV32-style 7-bit funct7 and a 5-bit shift amount.
func iShift32(funct7, funct3, opcode string) string {
	return funct7 + dc5 + dc5 + funct3 + dc5 + opcode
}

// sbType assembles an S- or B-type pattern; the split immediate never
// discriminates the opcode so both share this shape.
func sbType(funct3, opcode string) string {
	return dc7 + dc5 + dc5 + funct3 + dc5 + opcode
}

// uType assembles a U-type pattern.
func uType(opcode string) string { return dc20 + dc5 + opcode }

// jType assembles a J-type pattern.
func jType(opcode string) string { return dc20 + dc5 + opcode }

const (
	opLoad    = "0000011"
	opStore   = "0100011"
	opOpImm   = "0010011"
	opOpImm32 = "0011011"
	opOp      = "0110011"
	opOp32    = "0111011"
	opBranch  = "1100011"
	opJalr    = "1100111"
	opJal     = "1101111"
	opLui     = "0110111"
	opAuipc   = "0010111"
	opSystem  = "1110011"
)

// instructions is the decode table, checked top to bottom (spec.md §4.8's
// bit-pattern match table). Order matters only where two entries could
// otherwise both match, which does not happen here since funct3/funct7
// fully discriminate every mnemonic sharing an opcode.
var instructions = []instDesc{
	{uType(opLui), "lui", KindU},
	{uType(opAuipc), "auipc", KindU},
	{jType(opJal), "jal", KindJ},
	{iType("000", opJalr), "jalr", KindI},

	{sbType("000", opBranch), "beq", KindB},
	{sbType("001", opBranch), "bne", KindB},
	{sbType("100", opBranch), "blt", KindB},
	{sbType("101", opBranch), "bge", KindB},
	{sbType("110", opBranch), "bltu", KindB},
	{sbType("111", opBranch), "bgeu", KindB},

	{iType("000", opLoad), "lb", KindI},
	{iType("001", opLoad), "lh", KindI},
	{iType("010", opLoad), "lw", KindI},
	{iType("011", opLoad), "ld", KindI},
	{iType("100", opLoad), "lbu", KindI},
	{iType("101", opLoad), "lhu", KindI},
	{iType("110", opLoad), "lwu", KindI},

	{sbType("000", opStore), "sb", KindS},
	{sbType("001", opStore), "sh", KindS},
	{sbType("010", opStore), "sw", KindS},
	{sbType("011", opStore), "sd", KindS},

	{iType("000", opOpImm), "addi", KindI},
	{iType("010", opOpImm), "slti", KindI},
	{iType("011", opOpImm), "sltiu", KindI},
	{iType("100", opOpImm), "xori", KindI},
	{iType("110", opOpImm), "ori", KindI},
	{iType("111", opOpImm), "andi", KindI},
	{iShift64("000000", "001", opOpImm), "slli", KindI},
	{iShift64("000000", "101", opOpImm), "srli", KindI},
	{iShift64("010000", "101", opOpImm), "srai", KindI},

	{iType("000", opOpImm32), "addiw", KindI},
	{iShift32("0000000", "001", opOpImm32), "slliw", KindI},
	{iShift32("0000000", "101", opOpImm32), "srliw", KindI},
	{iShift32("0100000", "101", opOpImm32), "sraiw", KindI},

	{rType("0000000", "000", opOp), "add", KindR},
	{rType("0100000", "000", opOp), "sub", KindR},
	{rType("0000000", "001", opOp), "sll", KindR},
	{rType("0000000", "010", opOp), "slt", KindR},
	{rType("0000000", "011", opOp), "sltu", KindR},
	{rType("0000000", "100", opOp), "xor", KindR},
	{rType("0000000", "101", opOp), "srl", KindR},
	{rType("0100000", "101", opOp), "sra", KindR},
	{rType("0000000", "110", opOp), "or", KindR},
	{rType("0000000", "111", opOp), "and", KindR},

	{rType("0000001", "000", opOp), "mul", KindR},
	{rType("0000001", "001", opOp), "mulh", KindR},
	{rType("0000001", "010", opOp), "mulhsu", KindR},
	{rType("0000001", "011", opOp), "mulhu", KindR},
	{rType("0000001", "100", opOp), "div", KindR},
	{rType("0000001", "101", opOp), "divu", KindR},
	{rType("0000001", "110", opOp), "rem", KindR},
	{rType("0000001", "111", opOp), "remu", KindR},

	{rType("0000000", "000", opOp32), "addw", KindR},
	{rType("0100000", "000", opOp32), "subw", KindR},
	{rType("0000000", "001", opOp32), "sllw", KindR},
	{rType("0000000", "101", opOp32), "srlw", KindR},
	{rType("0100000", "101", opOp32), "sraw", KindR},
	{rType("0000001", "000", opOp32), "mulw", KindR},
	{rType("0000001", "100", opOp32), "divw", KindR},
	{rType("0000001", "101", opOp32), "divuw", KindR},
	{rType("0000001", "110", opOp32), "remw", KindR},
	{rType("0000001", "111", opOp32), "remuw", KindR},

	{"000000000001" + rep(5, '0') + "000" + rep(5, '0') + opSystem, "ebreak", KindN},
}

// instMatches tests a 32-bit word against a mask pattern of '0'/'1'/'?'.
func instMatches(inst uint32, pattern string) bool {
	var mask, value uint32
	for i, c := range pattern {
		bit := uint32(1) << uint(31-i)
		switch c {
		case '0':
			mask |= bit
		case '1':
			mask |= bit
			value |= bit
		case '?':
		default:
			panic(fmt.Sprintf("sim: invalid pattern character %q", c))
		}
	}
	return inst&mask == value
}

// checkInst returns the decode table entry matching inst, or nil.
func checkInst(inst uint32) *instDesc {
	for i := range instructions {
		if instMatches(inst, instructions[i].pattern) {
			return &instructions[i]
		}
	}
	return nil
}

func bits(val uint32, high, low uint) uint32 {
	return (val >> low) & ((1 << (high - low + 1)) - 1)
}

// sext sign-extends the low len bits of val to a full 64-bit value.
func sext(val uint64, length uint) uint64 {
	signBit := uint64(1) << (length - 1)
	if val&signBit != 0 {
		return val | (^uint64(0) << length)
	}
	return val
}

// Decode implements the decode stage (spec.md §4.8): it reads rd/rs1/rs2,
// the register file for the operands this instruction kind actually
// consumes, the sign-extended immediate for its encoding, and the
// jump/load/store classification used by hazard detection and the
// memory stage.
func Decode(cpu *CPUState, s *IFIDReg) IDEXReg {
	inst := s.Inst
	d := checkInst(inst)
	if d == nil {
		panic(fmt.Sprintf("sim: invalid instruction 0x%x at pc 0x%x", inst, s.PC))
	}

	rd := int32(bits(inst, 11, 7))
	rs1 := int32(bits(inst, 19, 15))
	rs2 := int32(bits(inst, 24, 20))

	var src1, src2 uint64
	switch d.kind {
	case KindI, KindS, KindB, KindR:
		src1 = cpu.Reg[rs1]
	}
	switch d.kind {
	case KindS, KindB, KindR:
		src2 = cpu.Reg[rs2]
	}

	var imm uint64
	switch d.kind {
	case KindI:
		imm = sext(uint64(bits(inst, 31, 20)), 12)
	case KindU:
		imm = sext(uint64(bits(inst, 31, 12)), 20) << 12
	case KindJ:
		raw := bits(inst, 31, 31)<<20 | bits(inst, 19, 12)<<12 |
			bits(inst, 20, 20)<<11 | bits(inst, 30, 21)<<1
		imm = sext(uint64(raw), 21)
	case KindS:
		raw := bits(inst, 31, 25)<<5 | bits(inst, 11, 7)
		imm = sext(uint64(raw), 12)
	case KindB:
		raw := bits(inst, 31, 31)<<12 | bits(inst, 7, 7)<<11 |
			bits(inst, 30, 25)<<5 | bits(inst, 11, 8)<<1
		imm = sext(uint64(raw), 13)
	}

	switch d.name {
	case "slli", "srli", "srai":
		imm = uint64(bits(inst, 25, 20))
	case "slliw", "srliw", "sraiw":
		imm = uint64(bits(inst, 24, 20))
	}

	jump := isJump(d.name)
	load := isLoad(d.name)
	store := isStore(d.name)

	return IDEXReg{
		PC: s.PC, Inst: s.Inst,
		RD: rd, RS1: rs1, RS2: rs2,
		Src1: src1, Src2: src2, Imm: imm,
		Jump: jump, Load: load, Store: store,
	}
}

func isJump(name string) bool {
	switch name {
	case "jal", "jalr", "beq", "bne", "blt", "bge", "bltu", "bgeu":
		return true
	}
	return false
}

func isLoad(name string) bool {
	switch name {
	case "lb", "lh", "lw", "ld", "lbu", "lhu", "lwu":
		return true
	}
	return false
}

func isStore(name string) bool {
	switch name {
	case "sb", "sh", "sw", "sd":
		return true
	}
	return false
}
