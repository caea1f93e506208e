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

package irgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysy-tools/sysyc/internal/parser"
)

func lower(t *testing.T, src string) string {
	t.Helper()
	cu, err := parser.Parse(src)
	require.NoError(t, err)
	mod, err := New().Lower(cu)
	require.NoError(t, err)
	return mod.String()
}

func TestLowerImplicitReturnFixup(t *testing.T) {
	// A non-void function whose body falls through without a return must
	// be closed with a synthesized `ret i32 0`.
	s := lower(t, "int f() { int x; x = 1; }")
	assert.Contains(t, s, "ret i32 0")
}

func TestLowerVoidImplicitReturnFixup(t *testing.T) {
	s := lower(t, "void f() { int x; }")
	assert.Contains(t, s, "ret void")
}

func TestLowerShortCircuitSynthesizesTempAndBranches(t *testing.T) {
	s := lower(t, "int f(int a, int b) { return a && b; }")
	assert.Contains(t, s, "sc_rhs")
	assert.Contains(t, s, "sc_end")
	assert.True(t, strings.Contains(s, "alloca i32"))
}

func TestLowerGlobalArrayAggregateInitializer(t *testing.T) {
	s := lower(t, "int a[2][3] = {{1,2,3},{4,5,6}};")
	assert.Contains(t, s, "@a")
	assert.Contains(t, s, "[2 x [3 x i32]]")
}

func TestLowerGlobalScalarDefault(t *testing.T) {
	s := lower(t, "int x;")
	assert.Contains(t, s, "@x")
	assert.Contains(t, s, "i32 0")
}

func TestLowerConstGlobalProducesNoStorage(t *testing.T) {
	s := lower(t, "const int N = 10; int a[N];")
	assert.NotContains(t, s, "@N")
	assert.Contains(t, s, "@a")
}

func TestLowerArrayParamDecaysToPointer(t *testing.T) {
	s := lower(t, "void f(int a[], int n) { a[0] = n; }")
	assert.Contains(t, s, "i32*")
}

func TestLowerRecursiveCallResolves(t *testing.T) {
	s := lower(t, "int fact(int n) { if (n == 0) return 1; return n * fact(n - 1); }")
	assert.Contains(t, s, "call i32 @fact")
}

func TestLowerIfElseBothDivergeIsTerminal(t *testing.T) {
	s := lower(t, "int f(int a) { if (a) return 1; else return 0; }")
	// Both arms return, so the end block is unreachable but must still be
	// present with a terminator of its own (fixup closes it too).
	assert.Contains(t, s, "ret i32 0")
	assert.Contains(t, s, "ret i32 1")
}

func TestLowerWhileLoopSynthesizesCondBodyEndBlocks(t *testing.T) {
	s := lower(t, "int f() { int i; i = 0; while (i) { break; } return i; }")
	assert.Contains(t, s, "_cond")
	assert.Contains(t, s, "_body")
	assert.Contains(t, s, "_end")
}

func TestLowerBuiltinsDeclaredWithoutBody(t *testing.T) {
	s := lower(t, "int main() { putint(1); return 0; }")
	assert.Contains(t, s, "declare void @putint(i32)")
}

func TestLowerUndefinedVariableErrors(t *testing.T) {
	cu, err := parser.Parse("int f() { return x; }")
	require.NoError(t, err)
	_, err = New().Lower(cu)
	assert.Error(t, err)
}

func TestLowerBreakOutsideLoopErrors(t *testing.T) {
	cu, err := parser.Parse("int f() { break; }")
	require.NoError(t, err)
	_, err = New().Lower(cu)
	assert.Error(t, err)
}
