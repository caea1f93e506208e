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

// Package scope implements the lowering engine's stack of name->binding
// frames: a function, const, var, array, or pointer binding per name,
// scanned innermost to outermost on lookup.
package scope

import "github.com/llir/llvm/ir"

// Kind discriminates what a Binding refers to.
type Kind int

const (
	KindConst Kind = iota
	KindAlloc
	KindFunc
)

// Binding is one entry in a scope frame.
type Binding struct {
	Kind Kind

	// KindConst
	ConstVal int32

	// KindAlloc: address value (an *ir.InstAlloca, a global *ir.Global, or
	// a local alloca holding a pointer parameter's value), optional
	// dimension list (nil for scalars) and whether this is a pointer
	// parameter (array decays to pointer) as opposed to a fixed-size array.
	Addr      ir.Value
	Dims      []int32
	IsPointer bool

	// KindFunc
	Func *ir.Func
}

// Scope is a stack of frames, the first pushed is the global scope.
type Scope struct {
	frames []map[string]*Binding
}

func New() *Scope { return &Scope{} }

// Enter pushes a new innermost frame.
func (s *Scope) Enter() { s.frames = append(s.frames, map[string]*Binding{}) }

// Exit pops the innermost frame.
func (s *Scope) Exit() { s.frames = s.frames[:len(s.frames)-1] }

// Depth reports the current nesting depth (1 once the global frame exists).
func (s *Scope) Depth() int { return len(s.frames) }

func (s *Scope) top() map[string]*Binding { return s.frames[len(s.frames)-1] }

// InsertConst inserts a constant scalar binding in the innermost frame.
func (s *Scope) InsertConst(name string, val int32) {
	s.top()[name] = &Binding{Kind: KindConst, ConstVal: val}
}

// InsertAlloc inserts a variable/array binding in the innermost frame.
func (s *Scope) InsertAlloc(name string, addr ir.Value, dims []int32, isPointer bool) {
	s.top()[name] = &Binding{Kind: KindAlloc, Addr: addr, Dims: dims, IsPointer: isPointer}
}

// InsertFunc inserts a function binding. Per spec.md §4.2 this is only
// ever called with the global frame on top (top-level function defs and
// the builtin declarations).
func (s *Scope) InsertFunc(name string, fn *ir.Func) {
	s.top()[name] = &Binding{Kind: KindFunc, Func: fn}
}

func (s *Scope) lookup(name string) (*Binding, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if b, ok := s.frames[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// LookupVar returns the binding for name if it is a const or alloc
// binding (not a function).
func (s *Scope) LookupVar(name string) (*Binding, bool) {
	b, ok := s.lookup(name)
	if !ok || b.Kind == KindFunc {
		return nil, false
	}
	return b, true
}

// LookupFunc returns the function bound to name, if any.
func (s *Scope) LookupFunc(name string) (*ir.Func, bool) {
	b, ok := s.lookup(name)
	if !ok || b.Kind != KindFunc {
		return nil, false
	}
	return b.Func, true
}

// IsConst reports whether name is bound to a compile-time constant and,
// if so, its value.
func (s *Scope) IsConst(name string) (int32, bool) {
	b, ok := s.lookup(name)
	if !ok || b.Kind != KindConst {
		return 0, false
	}
	return b.ConstVal, true
}

// IsArray reports whether name is bound to an array (fixed-size or
// pointer-decayed) allocation.
func (s *Scope) IsArray(name string) bool {
	b, ok := s.lookup(name)
	return ok && b.Kind == KindAlloc && b.Dims != nil
}

// LookupDimSize returns the rank of the array bound to name.
func (s *Scope) LookupDimSize(name string) (int, bool) {
	b, ok := s.lookup(name)
	if !ok || b.Kind != KindAlloc || b.Dims == nil {
		return 0, false
	}
	return len(b.Dims), true
}

// LookupIsPointer reports whether the array bound to name is a pointer
// parameter (first dimension omitted) rather than a fixed-size array.
func (s *Scope) LookupIsPointer(name string) (bool, bool) {
	b, ok := s.lookup(name)
	if !ok || b.Kind != KindAlloc {
		return false, false
	}
	return b.IsPointer, true
}

// LookupAddress returns the address value bound to name.
func (s *Scope) LookupAddress(name string) (ir.Value, bool) {
	b, ok := s.lookup(name)
	if !ok || b.Kind != KindAlloc {
		return nil, false
	}
	return b.Addr, true
}
