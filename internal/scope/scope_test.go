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

package scope

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
)

func TestInnerFrameShadowsOuter(t *testing.T) {
	s := New()
	s.Enter()
	s.InsertConst("x", 1)
	s.Enter()
	s.InsertConst("x", 2)

	v, ok := s.IsConst("x")
	assert.True(t, ok)
	assert.Equal(t, int32(2), v)

	s.Exit()
	v, ok = s.IsConst("x")
	assert.True(t, ok)
	assert.Equal(t, int32(1), v)
}

func TestLookupMissingName(t *testing.T) {
	s := New()
	s.Enter()
	_, ok := s.IsConst("nope")
	assert.False(t, ok)
	_, ok = s.LookupVar("nope")
	assert.False(t, ok)
	_, ok = s.LookupFunc("nope")
	assert.False(t, ok)
}

func TestFuncBindingIsNotAVar(t *testing.T) {
	s := New()
	s.Enter()
	fn := &ir.Func{}
	s.InsertFunc("f", fn)

	got, ok := s.LookupFunc("f")
	assert.True(t, ok)
	assert.Same(t, fn, got)

	_, ok = s.LookupVar("f")
	assert.False(t, ok, "a function binding must not satisfy LookupVar")
}

func TestArrayBindingMetadata(t *testing.T) {
	s := New()
	s.Enter()
	alloc := &ir.InstAlloca{ElemType: types.I32}
	s.InsertAlloc("arr", alloc, []int32{2, 3}, false)

	assert.True(t, s.IsArray("arr"))
	rank, ok := s.LookupDimSize("arr")
	assert.True(t, ok)
	assert.Equal(t, 2, rank)

	isPtr, ok := s.LookupIsPointer("arr")
	assert.True(t, ok)
	assert.False(t, isPtr)

	addr, ok := s.LookupAddress("arr")
	assert.True(t, ok)
	assert.Same(t, alloc, addr)
}

func TestScalarIsNotAnArray(t *testing.T) {
	s := New()
	s.Enter()
	alloc := &ir.InstAlloca{ElemType: types.I32}
	s.InsertAlloc("x", alloc, nil, false)
	assert.False(t, s.IsArray("x"))
}
