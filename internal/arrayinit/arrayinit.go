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

// Package arrayinit normalizes SysY's partial-brace array initializers
// (C89-style) into a flat element list of length prod(dims), padded with
// explicit zeros, per spec.md §4.3. The alignment rule: a nested brace at
// current offset `pre` aligns to the largest suffix of dims whose product
// divides `pre` (but strictly smaller than the full rank); it owns exactly
// that many trailing dimensions.
package arrayinit

import (
	"fmt"

	"github.com/sysy-tools/sysyc/internal/ast"
)

// Zero is a sentinel Init representing an implicit zero pad element; it
// never appears in parsed source and is only produced by Expand.
var Zero ast.Init = ast.InitExpr{Expr: &ast.NumberExpr{Val: 0}}

// findAlign returns how many trailing dimensions a brace opened at offset
// pre may claim: the largest k such that pre is evenly divisible by the
// product of the innermost k dimensions, capped at limit-1 (a brace may
// never claim the full rank it is nested inside).
func findAlign(dims []int32, pre int32, limit int) int {
	align := 0
	len_ := pre
	for i := len(dims) - 1; i >= 0; i-- {
		d := dims[i]
		if d != 0 && len_%d == 0 {
			align++
			len_ /= d
		} else {
			break
		}
	}
	if align > limit-1 {
		align = limit - 1
	}
	return align
}

func suffixProduct(dims []int32, count int) int32 {
	p := int32(1)
	for i := len(dims) - count; i < len(dims); i++ {
		p *= dims[i]
	}
	return p
}

func totalProduct(dims []int32) int32 {
	p := int32(1)
	for _, d := range dims {
		p *= d
	}
	return p
}

// ExpandConst flattens a const initializer against the given declared
// dimensions.
func ExpandConst(dims []int32, init ast.Init) ([]ast.Init, error) {
	var out []ast.Init
	n, err := expandConstCur(dims, init, 0, len(dims)+1, &out)
	if err != nil {
		return nil, err
	}
	total := totalProduct(dims)
	if int32(n) != total || int32(len(out)) != total {
		return nil, fmt.Errorf("array initializer has %d elements, expected %d", len(out), total)
	}
	return out, nil
}

func expandConstCur(dims []int32, init ast.Init, preLen int32, limit int, out *[]ast.Init) (int, error) {
	switch v := init.(type) {
	case ast.InitExpr:
		*out = append(*out, v)
		return 1, nil
	case ast.InitList:
		align := findAlign(dims, preLen, limit)
		total := int(suffixProduct(dims, align))
		n := 0
		for _, item := range v.Items {
			if n >= total {
				return 0, fmt.Errorf("brace initializer has more elements than its %d-element sub-array", total)
			}
			k, err := expandConstCur(dims, item, int32(n), align, out)
			if err != nil {
				return 0, err
			}
			n += k
		}
		for ; n < total; n++ {
			*out = append(*out, Zero)
		}
		return total, nil
	}
	return 0, fmt.Errorf("unsupported initializer node %T", init)
}

// Expand is the non-const analogue of ExpandConst (same algorithm, used
// for both var and const defs since the shape-normalization rule is
// identical; only evaluation of the leaves differs downstream).
func Expand(dims []int32, init ast.Init) ([]ast.Init, error) {
	return ExpandConst(dims, init)
}
