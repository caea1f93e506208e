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

// Package codegen emits RV32I-compatible assembly text from a lowered IR
// module, per spec.md §4.7. There is no persistent register allocator:
// every value is reloaded from its stack slot (a frame.Frame, plus any ad
// hoc slot this package hands out for a temporary the frame planner didn't
// reserve — see planExtras) before each use and stored back immediately
// after it is computed. Register discipline: t0/t1/t3 are scratch for a
// single instruction's worth of computation, t6 only ever holds a
// materialized 12-bit-overflowing immediate or offset, a0-a7 carry call
// arguments, sp addresses the fixed-size frame directly (this backend
// never reserves a frame pointer: frame size is fixed for a function's
// whole body, so sp-relative offsets are stable throughout).
package codegen

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/sysy-tools/sysyc/internal/frame"
)

const (
	immMin = -2048
	immMax = 2047
)

var argRegs = [8]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}

// Emit renders mod as a complete two-section (.data/.text) assembly
// program, wrapped in the fixed bare-metal runtime preamble.
func Emit(mod *ir.Module) (string, error) {
	var b strings.Builder

	b.WriteString(".globl _trm_init\n")
	b.WriteString(".globl _start\n")
	for _, g := range mod.Globals {
		fmt.Fprintf(&b, ".globl %s\n", g.GlobalName)
	}

	b.WriteString(".section .data\n")
	for _, g := range mod.Globals {
		emitGlobal(&b, g)
	}

	b.WriteString(".section .text\n")
	b.WriteString(preamble)

	for _, fn := range mod.Funcs {
		if len(fn.Blocks) == 0 {
			continue // builtin declaration, no body to emit
		}
		if err := emitFunc(&b, fn); err != nil {
			return "", err
		}
	}

	b.WriteString(bssSection)
	return b.String(), nil
}

const preamble = `_start:
  la sp, stack_top
  jal _trm_init
_trm_init:
  addi sp, sp, -16
  sw ra, 12(sp)
  jal main
  ebreak
`

const bssSection = `.section .bss
.align 4
stack_bottom:
  .skip 4096
stack_top:
`

func emitGlobal(b *strings.Builder, g *ir.Global) {
	fmt.Fprintf(b, "%s:\n", g.GlobalName)
	emitInit(b, g.Init)
}

func emitInit(b *strings.Builder, c constant.Constant) {
	switch v := c.(type) {
	case *constant.Int:
		fmt.Fprintf(b, "  .word %s\n", v.X.String())
	case *constant.Array:
		for _, e := range v.Elems {
			emitInit(b, e)
		}
	case *constant.ZeroInitializer:
		fmt.Fprintf(b, "  .zero %d\n", sizeOf(v.Typ))
	}
}

// ---- per-function emission ----

type funcEmitter struct {
	b         *strings.Builder
	fn        *ir.Func
	fr        *frame.Frame
	extra     map[value.Value]int
	total     int
	labels    map[*ir.Block]string
	nextLabel int
}

func emitFunc(b *strings.Builder, fn *ir.Func) error {
	fe := &funcEmitter{
		b:      b,
		fn:     fn,
		fr:     frame.Plan(fn),
		extra:  map[value.Value]int{},
		labels: map[*ir.Block]string{},
	}
	fe.assignLabels()
	fe.planExtras()
	fe.total = roundUp16(fe.fr.Size + 4*len(fe.extra))

	fmt.Fprintf(fe.b, "%s:\n", fn.Name())
	fe.adjustSP(-fe.total)
	fe.storeTo("ra", fe.fr.RAOffset)

	for _, bl := range fn.Blocks {
		fmt.Fprintf(fe.b, "%s:\n", fe.labels[bl])
		for _, in := range bl.Insts {
			if err := fe.emitInst(in); err != nil {
				return err
			}
		}
		fe.emitTerm(bl.Term)
	}
	return nil
}

// assignLabels names every block "<function>_<blockname>_<index>" in
// layout order (spec.md §4.7).
func (fe *funcEmitter) assignLabels() {
	for i, bl := range fe.fn.Blocks {
		fe.labels[bl] = fmt.Sprintf("%s_%s_%d", fe.fn.Name(), bl.Name(), i)
	}
}

// planExtras hands every instruction result the frame planner did not
// reserve a slot for (spec.md §4.6 only reserves allocations and results
// that must survive a call) an ad hoc slot of its own, appended after the
// planned frame. This keeps the planner's output exactly as specified
// while still giving the emitter somewhere to spill every other value, in
// keeping with "no persistent register allocation."
func (fe *funcEmitter) planExtras() {
	for _, bl := range fe.fn.Blocks {
		for _, in := range bl.Insts {
			v, ok := in.(value.Value)
			if !ok {
				continue
			}
			if _, isAlloc := in.(*ir.InstAlloca); isAlloc {
				continue
			}
			if _, isStore := in.(*ir.InstStore); isStore {
				continue // void, never an operand
			}
			if _, reserved := fe.fr.Offsets[v]; reserved {
				continue
			}
			if _, already := fe.extra[v]; already {
				continue
			}
			fe.extra[v] = fe.fr.Size + 4*len(fe.extra)
		}
	}
}

func (fe *funcEmitter) slotOf(v value.Value) int {
	if off, ok := fe.fr.Offsets[v]; ok {
		return off
	}
	return fe.extra[v]
}

func (fe *funcEmitter) paramIndex(p *ir.Param) int {
	for i, pp := range fe.fn.Params {
		if pp == p {
			return i
		}
	}
	return -1
}

func (fe *funcEmitter) emit(mnemonic string, operands ...string) {
	fmt.Fprintf(fe.b, "  %s\t%s\n", mnemonic, strings.Join(operands, ", "))
}

// adjustSP emits the stack-pointer adjustment at entry/exit, applying
// spec.md §4.7's immediate-expansion rule when delta overflows a 12-bit
// signed immediate.
func (fe *funcEmitter) adjustSP(delta int) {
	if delta >= immMin && delta <= immMax {
		fe.emit("addi", "sp", "sp", fmt.Sprint(delta))
		return
	}
	fe.emit("li", "t6", fmt.Sprint(delta))
	fe.emit("add", "sp", "sp", "t6")
}

// loadFrom/storeTo implement the same immediate-expansion rule for
// sp-relative memory operands.
func (fe *funcEmitter) loadFrom(reg string, off int) {
	if off >= immMin && off <= immMax {
		fe.emit("lw", reg, fmt.Sprintf("%d(sp)", off))
		return
	}
	fe.emit("li", "t6", fmt.Sprint(off))
	fe.emit("add", "t6", "sp", "t6")
	fe.emit("lw", reg, "0(t6)")
}

func (fe *funcEmitter) storeTo(reg string, off int) {
	if off >= immMin && off <= immMax {
		fe.emit("sw", reg, fmt.Sprintf("%d(sp)", off))
		return
	}
	fe.emit("li", "t6", fmt.Sprint(off))
	fe.emit("add", "t6", "sp", "t6")
	fe.emit("sw", reg, "0(t6)")
}

// addrOf materializes the address of a local allocation into reg.
func (fe *funcEmitter) addrOf(alloc *ir.InstAlloca, reg string) {
	off := fe.slotOf(alloc)
	if off >= immMin && off <= immMax {
		fe.emit("addi", reg, "sp", fmt.Sprint(off))
		return
	}
	fe.emit("li", "t6", fmt.Sprint(off))
	fe.emit("add", reg, "sp", "t6")
}

// loadOperand materializes v's value into reg: a literal via li, a local
// allocation's address, a global's address, a parameter straight from its
// argument register or the caller's outgoing-argument area, or a regular
// value reloaded from its slot.
func (fe *funcEmitter) loadOperand(v value.Value, reg string) {
	switch x := v.(type) {
	case *constant.Int:
		fe.emit("li", reg, x.X.String())
	case *ir.Param:
		i := fe.paramIndex(x)
		if i < 8 {
			fe.emit("mv", reg, argRegs[i])
		} else {
			fe.loadFrom(reg, fe.total+4*(i-8))
		}
	case *ir.InstAlloca:
		fe.addrOf(x, reg)
	case *ir.Global:
		fe.emit("la", reg, x.GlobalName)
	default:
		fe.loadFrom(reg, fe.slotOf(v))
	}
}

func (fe *funcEmitter) storeResult(v value.Value, reg string) {
	fe.storeTo(reg, fe.slotOf(v))
}

func sizeOf(t types.Type) int {
	switch x := t.(type) {
	case *types.IntType:
		return int((x.BitSize + 7) / 8)
	case *types.ArrayType:
		return int(x.Len) * sizeOf(x.ElemType)
	case *types.PointerType:
		return 4
	default:
		return 4
	}
}

func roundUp16(n int) int { return (n + 15) / 16 * 16 }

// ---- instructions ----

func (fe *funcEmitter) emitInst(in ir.Instruction) error {
	switch x := in.(type) {
	case *ir.InstAlloca:
		return nil // its stack slot is the allocation; no code emitted
	case *ir.InstStore:
		fe.loadOperand(x.Src, "t0")
		fe.storeThrough(x.Dst, "t0")
		return nil
	case *ir.InstLoad:
		fe.loadThrough(x.Src, "t0")
		fe.storeResult(x, "t0")
		return nil
	case *ir.InstGetElementPtr:
		fe.emitGEP(x)
		return nil
	case *ir.InstICmp:
		fe.emitICmp(x)
		return nil
	case *ir.InstZExt:
		fe.loadOperand(x.From, "t0")
		fe.storeResult(x, "t0")
		return nil
	case *ir.InstAdd:
		return fe.emitBinary(x, x.X, x.Y, "add")
	case *ir.InstSub:
		return fe.emitBinary(x, x.X, x.Y, "sub")
	case *ir.InstMul:
		return fe.emitBinary(x, x.X, x.Y, "mul")
	case *ir.InstSDiv:
		return fe.emitBinary(x, x.X, x.Y, "div")
	case *ir.InstSRem:
		return fe.emitBinary(x, x.X, x.Y, "rem")
	case *ir.InstCall:
		fe.emitCall(x)
		return nil
	}
	return fmt.Errorf("codegen: unsupported instruction %T", in)
}

func (fe *funcEmitter) emitBinary(result value.Value, l, r value.Value, op string) error {
	fe.loadOperand(l, "t0")
	fe.loadOperand(r, "t1")
	fe.emit(op, "t0", "t0", "t1")
	fe.storeResult(result, "t0")
	return nil
}

// storeThrough stores the value in reg to the address represented by dst:
// a global's symbol, a local alloca's slot, or a pointer value reloaded
// from its own slot.
func (fe *funcEmitter) storeThrough(dst value.Value, reg string) {
	switch x := dst.(type) {
	case *ir.Global:
		fe.emit("la", "t1", x.GlobalName)
		fe.emit("sw", reg, "0(t1)")
	case *ir.InstAlloca:
		fe.storeTo(reg, fe.slotOf(x))
	default:
		fe.loadOperand(dst, "t1")
		fe.emit("sw", reg, "0(t1)")
	}
}

func (fe *funcEmitter) loadThrough(src value.Value, reg string) {
	switch x := src.(type) {
	case *ir.Global:
		fe.emit("la", "t1", x.GlobalName)
		fe.emit("lw", reg, "0(t1)")
	case *ir.InstAlloca:
		fe.loadFrom(reg, fe.slotOf(x))
	default:
		fe.loadOperand(src, "t1")
		fe.emit("lw", reg, "0(t1)")
	}
}

// emitGEP computes base + lastIndex*sizeof(ElemType); every get-element-
// pointer and get-pointer this backend's irgen emits reduces to exactly
// this formula regardless of whether a leading zero index is present
// (spec.md §3.2's get-element-pointer/get-pointer invariant).
func (fe *funcEmitter) emitGEP(x *ir.InstGetElementPtr) {
	fe.loadOperand(x.Src, "t1")
	last := x.Indices[len(x.Indices)-1]
	fe.loadOperand(last, "t0")
	size := sizeOf(x.ElemType)
	fe.emit("li", "t3", fmt.Sprint(size))
	fe.emit("mul", "t0", "t0", "t3")
	fe.emit("add", "t1", "t1", "t0")
	fe.storeResult(x, "t1")
}

// emitICmp synthesizes a 0/1 result from slt/sgt/seqz/snez/xor sequences
// (spec.md §4.7).
func (fe *funcEmitter) emitICmp(x *ir.InstICmp) {
	fe.loadOperand(x.X, "t0")
	fe.loadOperand(x.Y, "t1")
	switch x.Pred {
	case enum.IPredEQ:
		fe.emit("sub", "t0", "t0", "t1")
		fe.emit("seqz", "t0", "t0")
	case enum.IPredNE:
		fe.emit("sub", "t0", "t0", "t1")
		fe.emit("snez", "t0", "t0")
	case enum.IPredSLT:
		fe.emit("slt", "t0", "t0", "t1")
	case enum.IPredSGT:
		fe.emit("slt", "t0", "t1", "t0")
	case enum.IPredSLE:
		fe.emit("slt", "t0", "t1", "t0")
		fe.emit("xori", "t0", "t0", "1")
	case enum.IPredSGE:
		fe.emit("slt", "t0", "t0", "t1")
		fe.emit("xori", "t0", "t0", "1")
	}
	fe.storeResult(x, "t0")
}

// emitCall lowers a call per spec.md §4.7: overflow arguments (beyond the
// first eight) are written directly into the function's own reserved
// outgoing-argument area (frame.Frame.OutgoingArgBytes, at the stable
// offsets 4*(i-8)(sp) the frame planner already carved out) — no sp
// adjustment, since that area is already part of the whole-function frame
// established once at entry and every sp-relative offset in this package
// assumes sp never moves mid-body. The first eight load into a0-a7, then
// `call`; a non-void result is spilled to its slot.
func (fe *funcEmitter) emitCall(x *ir.InstCall) {
	for i := 8; i < len(x.Args); i++ {
		fe.loadOperand(x.Args[i], "t0")
		fe.storeTo("t0", 4*(i-8))
	}
	for i := 0; i < len(x.Args) && i < 8; i++ {
		fe.loadOperand(x.Args[i], argRegs[i])
	}
	callee, ok := x.Callee.(*ir.Func)
	name := "?"
	if ok {
		name = callee.Name()
	}
	fe.emit("call", name)
	if !types.IsVoid(x.Typ) {
		fe.storeResult(x, "a0")
	}
}

// ---- terminators ----

func (fe *funcEmitter) emitTerm(term ir.Terminator) {
	switch x := term.(type) {
	case *ir.TermRet:
		if x.X != nil {
			fe.loadOperand(x.X, "a0")
		}
		fe.loadFrom("ra", fe.fr.RAOffset)
		fe.adjustSP(fe.total)
		fe.emit("ret")
	case *ir.TermBr:
		fe.emit("j", fe.labels[x.Target])
	case *ir.TermCondBr:
		fe.loadOperand(x.Cond, "t0")
		fe.emit("bnez", "t0", fe.labels[x.TargetTrue])
		fe.emit("j", fe.labels[x.TargetFalse])
	}
}
