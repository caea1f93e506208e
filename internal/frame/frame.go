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

// Package frame plans the stack layout of a lowered function (spec.md
// §4.6): a byte offset for every local allocation plus every spilled
// temporary, an outgoing-argument area when a call overflows the eight
// argument registers, and a saved return-address slot. There is no
// register allocator in this backend (spec.md §4.7): a value either lives
// permanently in its alloca slot, or — if some use of it comes after a
// call that follows its definition — gets a spill slot of its own, since
// that call's callee may clobber every caller-saved register.
package frame

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/samber/lo"
)

// Frame is the planned stack layout of one function, offsets measured in
// bytes from the lowest address of the frame (the outgoing-argument area,
// when present).
type Frame struct {
	// Offsets holds, for every local alloca and every spilled value, its
	// byte offset from the frame base.
	Offsets map[value.Value]int

	// OutgoingArgBytes is the reserved outgoing-argument area size: 4
	// bytes per argument beyond the first eight of the function's widest
	// call site.
	OutgoingArgBytes int

	// RAOffset is the byte offset of the saved return address slot.
	RAOffset int

	// Size is the total frame size, rounded up to a multiple of 16.
	Size int
}

// Plan computes the frame layout of fn by walking every instruction of
// every block in layout order.
func Plan(fn *ir.Func) *Frame {
	instrs, calls, callIdx := linearize(fn)

	f := &Frame{Offsets: map[value.Value]int{}}
	cursor := 0

	// Local allocations: one slot per alloca, sized by the allocated type.
	for _, in := range instrs {
		alloc, ok := in.(*ir.InstAlloca)
		if !ok {
			continue
		}
		f.Offsets[alloc] = cursor
		cursor += sizeOf(alloc.ElemType)
	}

	// Spilled temporaries: any non-alloca result whose live range crosses
	// a call site gets a slot of its own.
	defIdx, lastUse := defUseIndices(instrs)
	for _, in := range instrs {
		v, ok := in.(value.Value)
		if !ok {
			continue
		}
		if _, isAlloc := in.(*ir.InstAlloca); isAlloc {
			continue
		}
		d, defined := defIdx[v]
		if !defined {
			continue
		}
		u, used := lastUse[v]
		if !used {
			continue
		}
		if crossesCall(calls, callIdx, d, u) {
			f.Offsets[v] = cursor
			cursor += 4
		}
	}

	f.RAOffset = cursor
	cursor += 4 // saved return address

	maxArgs := 0
	for _, c := range calls {
		if n := len(c.Args); n > maxArgs {
			maxArgs = n
		}
	}
	if maxArgs > 8 {
		f.OutgoingArgBytes = 4 * (maxArgs - 8)
		cursor += f.OutgoingArgBytes
		// Outgoing args sit below everything already assigned.
		f.RAOffset += f.OutgoingArgBytes
		for v, off := range f.Offsets {
			f.Offsets[v] = off + f.OutgoingArgBytes
		}
	}

	f.Size = roundUp16(cursor)
	return f
}

func roundUp16(n int) int { return (n + 15) / 16 * 16 }

func sizeOf(t types.Type) int {
	switch x := t.(type) {
	case *types.IntType:
		return int((x.BitSize + 7) / 8)
	case *types.ArrayType:
		return int(x.Len) * sizeOf(x.ElemType)
	case *types.PointerType:
		return 4 // 32-bit target address width
	default:
		return 4
	}
}

// linearize flattens a function's blocks (in layout order) into a single
// instruction sequence, separately collecting every call site and its
// position in that sequence.
func linearize(fn *ir.Func) (instrs []ir.Instruction, calls []*ir.InstCall, callIdx map[*ir.InstCall]int) {
	callIdx = map[*ir.InstCall]int{}
	for _, b := range fn.Blocks {
		for _, in := range b.Insts {
			idx := len(instrs)
			instrs = append(instrs, in)
			if c, ok := in.(*ir.InstCall); ok {
				calls = append(calls, c)
				callIdx[c] = idx
			}
		}
	}
	return instrs, calls, callIdx
}

// defUseIndices maps each instruction result to its definition index and
// the index of its last use, both positions in the linearized order
// returned by linearize. Index i of instrs corresponds 1:1 across both
// calls since frame.Plan calls linearize once and shares the slice order.
func defUseIndices(instrs []ir.Instruction) (def map[value.Value]int, lastUse map[value.Value]int) {
	def = map[value.Value]int{}
	lastUse = map[value.Value]int{}
	for i, in := range instrs {
		if v, ok := in.(value.Value); ok {
			def[v] = i
		}
	}
	for i, in := range instrs {
		ops, ok := in.(operandHaver)
		if !ok {
			continue
		}
		for _, opPtr := range ops.Operands() {
			op := *opPtr
			if _, isDef := def[op]; isDef {
				lastUse[op] = i
			}
		}
	}
	return def, lastUse
}

// operandHaver is implemented by every llir/llvm instruction; it exposes
// pointers to each operand slot so value.Value replacement (and, here,
// use-site discovery) doesn't need one accessor per instruction kind.
type operandHaver interface {
	Operands() []*value.Value
}

// crossesCall reports whether any call site in calls lies strictly after
// defIdx and at or before lastUseIdx — i.e. the value must survive a call
// that may clobber every caller-saved register.
func crossesCall(calls []*ir.InstCall, callIdx map[*ir.InstCall]int, defIdx, lastUseIdx int) bool {
	return lo.ContainsBy(calls, func(c *ir.InstCall) bool {
		ci := callIdx[c]
		return ci > defIdx && ci <= lastUseIdx
	})
}
