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

// Package irgen lowers a SysY AST into an IR module built on
// github.com/llir/llvm's ir package, per spec.md §4.4-4.5: every variable
// and short-circuit temporary is a stack allocation, other intermediate
// results are plain instruction values (no register allocation happens
// here), control
// flow is a sequence of synthesized basic blocks, and a post-lowering
// fixup pass closes every block that fell through without a terminator.
package irgen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"github.com/sysy-tools/sysyc/internal/arrayinit"
	"github.com/sysy-tools/sysyc/internal/ast"
	"github.com/sysy-tools/sysyc/internal/eval"
	"github.com/sysy-tools/sysyc/internal/loopstack"
	"github.com/sysy-tools/sysyc/internal/scope"
)

// builtin lists the runtime-provided functions every compilation unit
// gets for free (spec.md §6), declared into the global scope before the
// rest of the unit is lowered.
var builtins = []struct {
	name string
	ret  types.Type
	args []types.Type
}{
	{"getint", types.I32, nil},
	{"getch", types.I32, nil},
	{"getarray", types.I32, []types.Type{types.NewPointer(types.I32)}},
	{"putint", types.Void, []types.Type{types.I32}},
	{"putch", types.Void, []types.Type{types.I32}},
	{"putarray", types.Void, []types.Type{types.I32, types.NewPointer(types.I32)}},
	{"starttime", types.Void, nil},
	{"stoptime", types.Void, nil},
}

// Lowerer holds the mutable lowering context: the module under
// construction, current function/block, the scope and loop stacks, and a
// counter used to synthesize unique block and temporary names.
type Lowerer struct {
	mod        *ir.Module
	scope      *scope.Scope
	loops      *loopstack.Stack
	fn         *ir.Func
	block      *ir.Block
	blockCount int
}

// New creates a Lowerer ready to lower a single compilation unit.
func New() *Lowerer {
	return &Lowerer{
		mod:   ir.NewModule(),
		scope: scope.New(),
		loops: loopstack.New(),
	}
}

// Lower walks cu and returns the built module, or the first error
// encountered.
func (lw *Lowerer) Lower(cu *ast.CompUnit) (*ir.Module, error) {
	lw.scope.Enter() // global frame

	for _, b := range builtins {
		fn := lw.mod.NewFunc(b.name, b.ret, paramsOf(b.args)...)
		lw.scope.InsertFunc(b.name, fn)
	}

	// Pre-declare every top-level function signature so forward and
	// recursive calls resolve regardless of definition order.
	for _, item := range cu.Items {
		if item.FuncDef == nil {
			continue
		}
		if err := lw.declareFunc(item.FuncDef); err != nil {
			return nil, err
		}
	}

	for _, item := range cu.Items {
		switch {
		case item.Decl != nil:
			if err := lw.lowerGlobalDecl(item.Decl); err != nil {
				return nil, err
			}
		case item.FuncDef != nil:
			if err := lw.lowerFuncBody(item.FuncDef); err != nil {
				return nil, err
			}
		}
	}

	lw.scope.Exit()
	return lw.mod, nil
}

func paramsOf(ts []types.Type) []*ir.Param {
	params := make([]*ir.Param, len(ts))
	for i, t := range ts {
		params[i] = ir.NewParam("", t)
	}
	return params
}

// retTypeOf converts the AST return type into an IR type.
func retTypeOf(b ast.BType) types.Type {
	if b == ast.Void {
		return types.Void
	}
	return types.I32
}

// arrayType builds the IR type of a value declared with the given
// trailing dimension sizes; an empty dims is a scalar i32.
func arrayType(dims []int32) types.Type {
	if len(dims) == 0 {
		return types.I32
	}
	return types.NewArray(uint64(dims[0]), arrayType(dims[1:]))
}

func (lw *Lowerer) declareFunc(fd *ast.FuncDef) error {
	paramTypes := make([]*ir.Param, len(fd.Params))
	for i, p := range fd.Params {
		if p.IsArray() {
			tail, err := lw.constDims(p.Dims[1:])
			if err != nil {
				return err
			}
			paramTypes[i] = ir.NewParam(p.Name, types.NewPointer(arrayType(tail)))
		} else {
			paramTypes[i] = ir.NewParam(p.Name, types.I32)
		}
	}
	fn := lw.mod.NewFunc(fd.Name, retTypeOf(fd.RetType), paramTypes...)
	lw.scope.InsertFunc(fd.Name, fn)
	return nil
}

// constDims evaluates a dimension-expression list in the current (global,
// per spec.md §3.1's invariant that array parameter dimensions are
// evaluated in the global scope) constant environment.
func (lw *Lowerer) constDims(dims []ast.Expr) ([]int32, error) {
	out := make([]int32, len(dims))
	for i, d := range dims {
		if d == nil { // the omitted first dimension of an array parameter
			out[i] = 0
			continue
		}
		v, err := eval.Eval(d, lw.scope.IsConst)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ---- globals ----

func (lw *Lowerer) lowerGlobalDecl(d *ast.Decl) error {
	for _, def := range d.Defs {
		dims, err := lw.constDims(def.Dims)
		if err != nil {
			return err
		}
		if len(dims) == 0 {
			if err := lw.lowerGlobalScalar(d, def); err != nil {
				return err
			}
			continue
		}
		if err := lw.lowerGlobalArray(def, dims); err != nil {
			return err
		}
	}
	return nil
}

func (lw *Lowerer) lowerGlobalScalar(d *ast.Decl, def *ast.Def) error {
	var val int32
	if def.Init != nil {
		ie, ok := def.Init.(ast.InitExpr)
		if !ok {
			return fmt.Errorf("%d:%d: scalar %q initialized with a brace list", def.Pos.Line, def.Pos.Col, def.Name)
		}
		v, err := eval.Eval(ie.Expr, lw.scope.IsConst)
		if err != nil {
			return errors.Wrapf(err, "initializing %q", def.Name)
		}
		val = v
	}
	if d.IsConst {
		lw.scope.InsertConst(def.Name, val)
		return nil
	}
	g := lw.mod.NewGlobalDef(def.Name, constant.NewInt(types.I32, int64(val)))
	lw.scope.InsertAlloc(def.Name, g, nil, false)
	return nil
}

func (lw *Lowerer) lowerGlobalArray(def *ast.Def, dims []int32) error {
	flat := make([]constant.Constant, product(dims))
	if def.Init != nil {
		elems, err := arrayinit.ExpandConst(dims, def.Init)
		if err != nil {
			return errors.Wrapf(err, "initializing %q", def.Name)
		}
		for i, e := range elems {
			v, err := eval.Eval(e.(ast.InitExpr).Expr, lw.scope.IsConst)
			if err != nil {
				return errors.Wrapf(err, "initializing %q", def.Name)
			}
			flat[i] = constant.NewInt(types.I32, int64(v))
		}
	} else {
		for i := range flat {
			flat[i] = constant.NewInt(types.I32, 0)
		}
	}
	agg := buildAggregate(dims, flat)
	g := lw.mod.NewGlobalDef(def.Name, agg)
	lw.scope.InsertAlloc(def.Name, g, dims, false)
	return nil
}

func product(dims []int32) int {
	p := 1
	for _, d := range dims {
		p *= int(d)
	}
	return p
}

// buildAggregate regroups a flat element list into nested array constants
// matching dims, innermost dimension first (spec.md §4.4 "Globals").
func buildAggregate(dims []int32, flat []constant.Constant) constant.Constant {
	if len(dims) == 0 {
		return flat[0]
	}
	stride := product(dims[1:])
	elems := make([]constant.Constant, dims[0])
	for i := range elems {
		elems[i] = buildAggregate(dims[1:], flat[i*stride:(i+1)*stride])
	}
	return constant.NewArray(types.NewArray(uint64(dims[0]), arrayType(dims[1:])), elems...)
}

// ---- functions ----

func (lw *Lowerer) lowerFuncBody(fd *ast.FuncDef) error {
	fn, ok := lw.scope.LookupFunc(fd.Name)
	if !ok {
		return fmt.Errorf("internal error: %q not pre-declared", fd.Name)
	}
	lw.fn = fn
	lw.blockCount = 0
	lw.block = fn.NewBlock(lw.blockName("entry"))

	lw.scope.Enter()
	for i, p := range fd.Params {
		param := fn.Params[i]
		if p.IsArray() {
			slot := lw.block.NewAlloca(param.Typ)
			lw.block.NewStore(param, slot)
			dims, err := lw.constDims(p.Dims)
			if err != nil {
				lw.scope.Exit()
				return err
			}
			lw.scope.InsertAlloc(p.Name, slot, dims, true)
		} else {
			slot := lw.block.NewAlloca(types.I32)
			lw.block.NewStore(param, slot)
			lw.scope.InsertAlloc(p.Name, slot, nil, false)
		}
	}

	diverged := false
	for _, item := range fd.Body.Items {
		if diverged {
			break
		}
		var err error
		if item.Decl != nil {
			err = lw.lowerLocalDecl(item.Decl)
		} else {
			diverged, err = lw.lowerStmt(item.Stmt)
		}
		if err != nil {
			lw.scope.Exit()
			return err
		}
	}
	lw.scope.Exit()

	fixupTerminators(fn, fd.RetType)
	return nil
}

// fixupTerminators implements spec.md §4.5: any block whose last
// instruction is not a terminator is closed with an implicit return.
func fixupTerminators(fn *ir.Func, ret ast.BType) {
	for _, b := range fn.Blocks {
		if b.Term != nil {
			continue
		}
		if ret == ast.Void {
			b.Term = ir.NewRet(nil)
		} else {
			b.Term = ir.NewRet(constant.NewInt(types.I32, 0))
		}
	}
}

func (lw *Lowerer) blockName(suffix string) string {
	name := fmt.Sprintf("%s_%d_%s", lw.fn.Name(), lw.blockCount, suffix)
	lw.blockCount++
	return name
}

// tempName synthesizes a deterministic, reproducible local name for the
// temporaries backing short-circuit evaluation (spec.md §4.4): the function
// name plus a monotonic counter is already unique within the module, so
// compiling the same source twice yields identical IR and assembly text.
func (lw *Lowerer) tempName(suffix string) string {
	name := fmt.Sprintf("%s_%d_%s", lw.fn.Name(), lw.blockCount, suffix)
	lw.blockCount++
	return name
}

// ---- local declarations ----

func (lw *Lowerer) lowerLocalDecl(d *ast.Decl) error {
	for _, def := range d.Defs {
		dims, err := lw.constDims(def.Dims)
		if err != nil {
			return err
		}
		if len(dims) == 0 {
			if err := lw.lowerLocalScalar(d, def); err != nil {
				return err
			}
			continue
		}
		if err := lw.lowerLocalArray(d, def, dims); err != nil {
			return err
		}
	}
	return nil
}

func (lw *Lowerer) lowerLocalScalar(d *ast.Decl, def *ast.Def) error {
	if d.IsConst {
		ie, ok := def.Init.(ast.InitExpr)
		if !ok || def.Init == nil {
			return fmt.Errorf("%d:%d: const %q requires a scalar initializer", def.Pos.Line, def.Pos.Col, def.Name)
		}
		v, err := eval.Eval(ie.Expr, lw.scope.IsConst)
		if err != nil {
			return err
		}
		lw.scope.InsertConst(def.Name, v)
		return nil
	}
	slot := lw.block.NewAlloca(types.I32)
	lw.scope.InsertAlloc(def.Name, slot, nil, false)
	if def.Init != nil {
		ie, ok := def.Init.(ast.InitExpr)
		if !ok {
			return fmt.Errorf("%d:%d: scalar %q initialized with a brace list", def.Pos.Line, def.Pos.Col, def.Name)
		}
		v, err := lw.lowerExpr(ie.Expr)
		if err != nil {
			return err
		}
		lw.block.NewStore(v, slot)
	}
	return nil
}

func (lw *Lowerer) lowerLocalArray(d *ast.Decl, def *ast.Def, dims []int32) error {
	slot := lw.block.NewAlloca(arrayType(dims))
	lw.scope.InsertAlloc(def.Name, slot, dims, false)
	if def.Init == nil {
		return nil
	}

	var elemVals []value.Value
	if d.IsConst {
		elems, err := arrayinit.ExpandConst(dims, def.Init)
		if err != nil {
			return errors.Wrapf(err, "initializing %q", def.Name)
		}
		for _, e := range elems {
			v, err := eval.Eval(e.(ast.InitExpr).Expr, lw.scope.IsConst)
			if err != nil {
				return err
			}
			elemVals = append(elemVals, constant.NewInt(types.I32, int64(v)))
		}
	} else {
		elems, err := arrayinit.Expand(dims, def.Init)
		if err != nil {
			return errors.Wrapf(err, "initializing %q", def.Name)
		}
		for _, e := range elems {
			ie, ok := e.(ast.InitExpr)
			if !ok {
				return fmt.Errorf("%d:%d: nested brace left unexpanded", def.Pos.Line, def.Pos.Col)
			}
			v, err := lw.lowerExpr(ie.Expr)
			if err != nil {
				return err
			}
			elemVals = append(elemVals, v)
		}
	}

	// Walk one get-element-pointer per rank (index 0) down to the first
	// scalar element, then store the flattened elements in sequence via
	// get-pointer, per spec.md §4.4 "Locals".
	cur := value.Value(slot)
	curDims := dims
	zero := constant.NewInt(types.I32, 0)
	for range dims {
		cur = lw.block.NewGetElementPtr(arrayType(curDims[1:]), cur, zero, zero)
		curDims = curDims[1:]
	}
	for i, v := range elemVals {
		idx := constant.NewInt(types.I32, int64(i))
		pos := lw.block.NewGetElementPtr(types.I32, cur, idx)
		lw.block.NewStore(v, pos)
	}
	return nil
}

// ---- statements ----

// lowerStmt lowers s in the current block and reports whether control
// flow diverged (return/break/continue), meaning the caller must not
// synthesize a fall-through into whatever block is now current.
func (lw *Lowerer) lowerStmt(s ast.Stmt) (bool, error) {
	switch st := s.(type) {
	case ast.EmptyStmt:
		return false, nil
	case *ast.AssignStmt:
		return false, lw.lowerAssign(st)
	case *ast.ExprStmt:
		_, err := lw.lowerExpr(st.Expr)
		return false, err
	case *ast.BlockStmt:
		return lw.lowerBlock(st.Block)
	case *ast.ReturnStmt:
		return lw.lowerReturn(st)
	case *ast.IfStmt:
		return lw.lowerIf(st)
	case *ast.WhileStmt:
		return lw.lowerWhile(st)
	case *ast.BreakStmt:
		if lw.loops.Empty() {
			return false, fmt.Errorf("%d:%d: break outside of a loop", st.Pos.Line, st.Pos.Col)
		}
		_, brk := lw.loops.Top()
		lw.block.Term = ir.NewBr(brk)
		return true, nil
	case *ast.ContinueStmt:
		if lw.loops.Empty() {
			return false, fmt.Errorf("%d:%d: continue outside of a loop", st.Pos.Line, st.Pos.Col)
		}
		cont, _ := lw.loops.Top()
		lw.block.Term = ir.NewBr(cont)
		return true, nil
	}
	return false, fmt.Errorf("unsupported statement node %T", s)
}

func (lw *Lowerer) lowerBlock(b *ast.Block) (bool, error) {
	lw.scope.Enter()
	defer lw.scope.Exit()

	diverged := false
	for _, item := range b.Items {
		if diverged {
			break
		}
		var err error
		if item.Decl != nil {
			err = lw.lowerLocalDecl(item.Decl)
		} else {
			diverged, err = lw.lowerStmt(item.Stmt)
		}
		if err != nil {
			return false, err
		}
	}
	return diverged, nil
}

func (lw *Lowerer) lowerReturn(s *ast.ReturnStmt) (bool, error) {
	if s.Expr == nil {
		lw.block.Term = ir.NewRet(nil)
		return true, nil
	}
	v, err := lw.lowerExpr(s.Expr)
	if err != nil {
		return false, err
	}
	lw.block.Term = ir.NewRet(v)
	return true, nil
}

func (lw *Lowerer) lowerIf(s *ast.IfStmt) (bool, error) {
	condBlock := lw.fn.NewBlock(lw.blockName("cond"))
	thenBlock := lw.fn.NewBlock(lw.blockName("then"))
	var elseBlock *ir.Block
	if s.Else != nil {
		elseBlock = lw.fn.NewBlock(lw.blockName("else"))
	}
	endBlock := lw.fn.NewBlock(lw.blockName("end"))

	lw.block.Term = ir.NewBr(condBlock)
	lw.block = condBlock
	cond, err := lw.lowerExpr(s.Cond)
	if err != nil {
		return false, err
	}
	condBool := lw.truthy(cond)
	if elseBlock != nil {
		lw.block.Term = ir.NewCondBr(condBool, thenBlock, elseBlock)
	} else {
		lw.block.Term = ir.NewCondBr(condBool, thenBlock, endBlock)
	}

	lw.block = thenBlock
	thenDiverged, err := lw.lowerStmt(s.Then)
	if err != nil {
		return false, err
	}
	if !thenDiverged {
		lw.block.Term = ir.NewBr(endBlock)
	}

	elseDiverged := false
	if s.Else != nil {
		lw.block = elseBlock
		elseDiverged, err = lw.lowerStmt(s.Else)
		if err != nil {
			return false, err
		}
		if !elseDiverged {
			lw.block.Term = ir.NewBr(endBlock)
		}
	}

	lw.block = endBlock
	diverged := thenDiverged && (s.Else != nil) && elseDiverged
	return diverged, nil
}

func (lw *Lowerer) lowerWhile(s *ast.WhileStmt) (bool, error) {
	condBlock := lw.fn.NewBlock(lw.blockName("cond"))
	bodyBlock := lw.fn.NewBlock(lw.blockName("body"))
	endBlock := lw.fn.NewBlock(lw.blockName("end"))

	lw.block.Term = ir.NewBr(condBlock)
	lw.block = condBlock
	cond, err := lw.lowerExpr(s.Cond)
	if err != nil {
		return false, err
	}
	lw.block.Term = ir.NewCondBr(lw.truthy(cond), bodyBlock, endBlock)

	lw.block = bodyBlock
	lw.loops.Push(condBlock, endBlock)
	bodyDiverged, err := lw.lowerStmt(s.Body)
	lw.loops.Pop()
	if err != nil {
		return false, err
	}
	if !bodyDiverged {
		lw.block.Term = ir.NewBr(condBlock)
	}

	lw.block = endBlock
	return false, nil
}

// truthy converts an i32 SysY value into an i1 used as a branch condition.
func (lw *Lowerer) truthy(v value.Value) value.Value {
	return lw.block.NewICmp(enum.IPredNE, v, constant.NewInt(types.I32, 0))
}

func (lw *Lowerer) lowerAssign(s *ast.AssignStmt) error {
	v, err := lw.lowerExpr(s.Expr)
	if err != nil {
		return err
	}
	addr, full, err := lw.lowerLValAddr(s.LVal)
	if err != nil {
		return err
	}
	if !full {
		return fmt.Errorf("%d:%d: assignment to %q is missing array indices", s.LVal.Pos.Line, s.LVal.Pos.Col, s.LVal.Name)
	}
	lw.block.NewStore(v, addr)
	return nil
}

// ---- lvalues ----

// lowerLValAddr resolves an lvalue to an address value. full reports
// whether every declared dimension was indexed (a scalar store/load
// target); when false, addr is a decayed pointer-to-subarray value
// suitable for passing to a function expecting that shape.
func (lw *Lowerer) lowerLValAddr(lv *ast.LVal) (value.Value, bool, error) {
	b, ok := lw.scope.LookupVar(lv.Name)
	if !ok {
		return nil, false, fmt.Errorf("%d:%d: undefined variable %q", lv.Pos.Line, lv.Pos.Col, lv.Name)
	}
	if b.Dims == nil {
		if len(lv.Indices) != 0 {
			return nil, false, fmt.Errorf("%d:%d: %q is not an array", lv.Pos.Line, lv.Pos.Col, lv.Name)
		}
		return b.Addr, true, nil
	}

	dims := b.Dims
	cur := b.Addr
	idxPos := 0
	zero := constant.NewInt(types.I32, 0)

	if b.IsPointer {
		ptrTyp := types.NewPointer(arrayType(dims[1:]))
		cur = lw.block.NewLoad(ptrTyp, cur)
		if len(lv.Indices) == 0 {
			return cur, false, nil
		}
		idx0, err := lw.lowerExpr(lv.Indices[0])
		if err != nil {
			return nil, false, err
		}
		cur = lw.block.NewGetElementPtr(arrayType(dims[1:]), cur, idx0)
		idxPos = 1
	}

	for ; idxPos < len(lv.Indices); idxPos++ {
		idx, err := lw.lowerExpr(lv.Indices[idxPos])
		if err != nil {
			return nil, false, err
		}
		cur = lw.block.NewGetElementPtr(arrayType(dims[idxPos+1:]), cur, zero, idx)
	}

	if len(lv.Indices) == len(dims) {
		return cur, true, nil
	}
	// Fewer indices than rank: decay to a pointer to the first remaining
	// sub-array (spec.md §4.4 "Lvalues").
	cur = lw.block.NewGetElementPtr(arrayType(dims[len(lv.Indices)+1:]), cur, zero, zero)
	return cur, false, nil
}

// ---- expressions ----

func (lw *Lowerer) lowerExpr(e ast.Expr) (value.Value, error) {
	switch x := e.(type) {
	case *ast.NumberExpr:
		return constant.NewInt(types.I32, int64(x.Val)), nil
	case *ast.ParenExpr:
		return lw.lowerExpr(x.X)
	case *ast.UnaryExpr:
		return lw.lowerUnary(x)
	case *ast.BinaryExpr:
		return lw.lowerBinary(x)
	case *ast.CallExpr:
		return lw.lowerCall(x)
	case *ast.LValExpr:
		if v, ok := lw.scope.IsConst(x.LVal.Name); ok && len(x.LVal.Indices) == 0 {
			return constant.NewInt(types.I32, int64(v)), nil
		}
		addr, full, err := lw.lowerLValAddr(x.LVal)
		if err != nil {
			return nil, err
		}
		if !full {
			return addr, nil // decayed pointer, used as-is (e.g. passed to a call)
		}
		return lw.block.NewLoad(types.I32, addr), nil
	}
	return nil, fmt.Errorf("unsupported expression node %T", e)
}

func (lw *Lowerer) lowerUnary(x *ast.UnaryExpr) (value.Value, error) {
	v, err := lw.lowerExpr(x.X)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ast.UnPlus:
		return v, nil
	case ast.UnMinus:
		return lw.block.NewSub(constant.NewInt(types.I32, 0), v), nil
	case ast.UnNot:
		cmp := lw.block.NewICmp(enum.IPredEQ, v, constant.NewInt(types.I32, 0))
		return lw.block.NewZExt(cmp, types.I32), nil
	}
	return nil, fmt.Errorf("unreachable unary op")
}

func (lw *Lowerer) lowerBinary(x *ast.BinaryExpr) (value.Value, error) {
	switch x.Op {
	case ast.OpLOr:
		return lw.lowerShortCircuit(x, true)
	case ast.OpLAnd:
		return lw.lowerShortCircuit(x, false)
	}
	l, err := lw.lowerExpr(x.L)
	if err != nil {
		return nil, err
	}
	r, err := lw.lowerExpr(x.R)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ast.OpAdd:
		return lw.block.NewAdd(l, r), nil
	case ast.OpSub:
		return lw.block.NewSub(l, r), nil
	case ast.OpMul:
		return lw.block.NewMul(l, r), nil
	case ast.OpDiv:
		return lw.block.NewSDiv(l, r), nil
	case ast.OpMod:
		return lw.block.NewSRem(l, r), nil
	case ast.OpEq:
		return lw.zextCmp(enum.IPredEQ, l, r), nil
	case ast.OpNeq:
		return lw.zextCmp(enum.IPredNE, l, r), nil
	case ast.OpLt:
		return lw.zextCmp(enum.IPredSLT, l, r), nil
	case ast.OpGt:
		return lw.zextCmp(enum.IPredSGT, l, r), nil
	case ast.OpLe:
		return lw.zextCmp(enum.IPredSLE, l, r), nil
	case ast.OpGe:
		return lw.zextCmp(enum.IPredSGE, l, r), nil
	}
	return nil, fmt.Errorf("unreachable binary op")
}

func (lw *Lowerer) zextCmp(pred enum.IPred, l, r value.Value) value.Value {
	cmp := lw.block.NewICmp(pred, l, r)
	return lw.block.NewZExt(cmp, types.I32)
}

// lowerShortCircuit implements spec.md §4.4's synthesized-temporary
// lowering for `||`/`&&`: `tmp=1; if (lhs==0) tmp=(rhs!=0)` for or,
// `tmp=0; if (lhs!=0) tmp=(rhs!=0)` for and.
func (lw *Lowerer) lowerShortCircuit(x *ast.BinaryExpr, isOr bool) (value.Value, error) {
	tmp := lw.block.NewAlloca(types.I32)
	tmp.SetName(lw.tempName("sctmp"))
	init := int64(0)
	if isOr {
		init = 1
	}
	lw.block.NewStore(constant.NewInt(types.I32, init), tmp)

	l, err := lw.lowerExpr(x.L)
	if err != nil {
		return nil, err
	}

	rhsBlock := lw.fn.NewBlock(lw.blockName("sc_rhs"))
	endBlock := lw.fn.NewBlock(lw.blockName("sc_end"))

	var takeRHS value.Value
	if isOr {
		takeRHS = lw.block.NewICmp(enum.IPredEQ, l, constant.NewInt(types.I32, 0))
	} else {
		takeRHS = lw.block.NewICmp(enum.IPredNE, l, constant.NewInt(types.I32, 0))
	}
	lw.block.Term = ir.NewCondBr(takeRHS, rhsBlock, endBlock)

	lw.block = rhsBlock
	r, err := lw.lowerExpr(x.R)
	if err != nil {
		return nil, err
	}
	rBool := lw.zextCmp(enum.IPredNE, r, constant.NewInt(types.I32, 0))
	lw.block.NewStore(rBool, tmp)
	lw.block.Term = ir.NewBr(endBlock)

	lw.block = endBlock
	return lw.block.NewLoad(types.I32, tmp), nil
}

func (lw *Lowerer) lowerCall(x *ast.CallExpr) (value.Value, error) {
	fn, ok := lw.scope.LookupFunc(x.Name)
	if !ok {
		return nil, fmt.Errorf("%d:%d: undefined function %q", x.Pos.Line, x.Pos.Col, x.Name)
	}
	args := make([]value.Value, len(x.Args))
	for i, a := range x.Args {
		v, err := lw.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return lw.block.NewCall(fn, args...), nil
}
