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

package frame

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysy-tools/sysyc/internal/irgen"
	"github.com/sysy-tools/sysyc/internal/parser"
)

func lowerFunc(t *testing.T, src, name string) *ir.Func {
	t.Helper()
	cu, err := parser.Parse(src)
	require.NoError(t, err)
	mod, err := irgen.New().Lower(cu)
	require.NoError(t, err)
	for _, fn := range mod.Funcs {
		if fn.Name() == name {
			return fn
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

func TestPlanAllocaGetsSlot(t *testing.T) {
	fn := lowerFunc(t, "int f() { int x; int y; x = 1; y = 2; return x + y; }", "f")
	fr := Plan(fn)
	// Two scalar allocas, each given their own slot.
	allocaSlots := 0
	for _, b := range fn.Blocks {
		for _, in := range b.Insts {
			al, ok := in.(*ir.InstAlloca)
			if !ok {
				continue
			}
			if _, has := fr.Offsets[al]; has {
				allocaSlots++
			}
		}
	}
	assert.GreaterOrEqual(t, allocaSlots, 2)
	assert.Equal(t, 0, fr.Size%16, "frame size must be 16-byte aligned")
}

func TestPlanArrayAllocaSizedByElementCount(t *testing.T) {
	fn := lowerFunc(t, "int f() { int a[4]; a[0] = 1; return a[0]; }", "f")
	fr := Plan(fn)
	var found bool
	for _, b := range fn.Blocks {
		for _, in := range b.Insts {
			if al, ok := in.(*ir.InstAlloca); ok {
				if _, has := fr.Offsets[al]; has {
					found = true
				}
			}
		}
	}
	assert.True(t, found)
	assert.Equal(t, 0, fr.Size%16)
}

func TestPlanRAOffsetReserved(t *testing.T) {
	fn := lowerFunc(t, "int f() { return 1; }", "f")
	fr := Plan(fn)
	assert.GreaterOrEqual(t, fr.RAOffset, 0)
	assert.Equal(t, 0, fr.Size%16)
}

func TestPlanOutgoingArgAreaForManyArgCall(t *testing.T) {
	src := `int g(int a,int b,int c,int d,int e,int f,int g2,int h,int i,int j) { return a; }
int f() { return g(1,2,3,4,5,6,7,8,9,10); }`
	fn := lowerFunc(t, src, "f")
	fr := Plan(fn)
	// 10 args overflow the 8 argument registers by 2 -> 8 bytes reserved.
	assert.Equal(t, 8, fr.OutgoingArgBytes)
	assert.Equal(t, 0, fr.Size%16)
}

func TestPlanNoOutgoingAreaForFewArgCall(t *testing.T) {
	src := `int g(int a, int b) { return a; }
int f() { return g(1, 2); }`
	fn := lowerFunc(t, src, "f")
	fr := Plan(fn)
	assert.Equal(t, 0, fr.OutgoingArgBytes)
}

func TestPlanSpillsValueLiveAcrossCall(t *testing.T) {
	// The sum 1 + 2 is computed before the call to g and used after it
	// returns, so it must survive in a dedicated spill slot rather than only
	// a register.
	src := `int g(int n) { return n; }
int f() { return (1 + 2) + g(5); }`
	fn := lowerFunc(t, src, "f")
	fr := Plan(fn)
	var sum *ir.InstAdd
	for _, b := range fn.Blocks {
		for _, in := range b.Insts {
			if add, ok := in.(*ir.InstAdd); ok && sum == nil {
				sum = add
			}
		}
	}
	require.NotNil(t, sum)
	_, spilled := fr.Offsets[sum]
	assert.True(t, spilled)
	assert.Equal(t, 0, fr.Size%16)
	assert.Greater(t, fr.Size, 0)
}
