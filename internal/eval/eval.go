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

// Package eval folds constant expressions over the AST at compile time,
// matching SysY semantics: 32-bit signed two's-complement arithmetic, '/'
// and '%' truncate toward zero, and logical operators collapse to 0/1.
package eval

import (
	"fmt"

	"github.com/sysy-tools/sysyc/internal/ast"
)

// Lookup resolves an identifier to a constant value. It must return
// (0, false) for anything that is not a compile-time constant (a variable,
// a function, an array).
type Lookup func(name string) (int32, bool)

// Eval computes the value of e. lookup resolves identifier references; it
// may be nil if the expression is known to contain none (e.g. top-level
// array dimensions before any identifiers are in scope).
func Eval(e ast.Expr, lookup Lookup) (int32, error) {
	switch x := e.(type) {
	case *ast.NumberExpr:
		return x.Val, nil
	case *ast.ParenExpr:
		return Eval(x.X, lookup)
	case *ast.UnaryExpr:
		v, err := Eval(x.X, lookup)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case ast.UnPlus:
			return v, nil
		case ast.UnMinus:
			return -v, nil
		case ast.UnNot:
			return boolInt(v == 0), nil
		}
		return 0, fmt.Errorf("unreachable unary op")
	case *ast.BinaryExpr:
		return evalBinary(x, lookup)
	case *ast.CallExpr:
		return 0, fmt.Errorf("%d:%d: function call is not a constant expression", x.Pos.Line, x.Pos.Col)
	case *ast.LValExpr:
		if len(x.LVal.Indices) > 0 {
			return 0, fmt.Errorf("%d:%d: array reference is not a constant expression", x.LVal.Pos.Line, x.LVal.Pos.Col)
		}
		if lookup == nil {
			return 0, fmt.Errorf("%d:%d: %q is not a constant expression", x.LVal.Pos.Line, x.LVal.Pos.Col, x.LVal.Name)
		}
		v, ok := lookup(x.LVal.Name)
		if !ok {
			return 0, fmt.Errorf("%d:%d: %q is not a constant expression", x.LVal.Pos.Line, x.LVal.Pos.Col, x.LVal.Name)
		}
		return v, nil
	}
	return 0, fmt.Errorf("unsupported expression node %T", e)
}

func evalBinary(x *ast.BinaryExpr, lookup Lookup) (int32, error) {
	// Short-circuit logical operators never evaluate the unneeded side,
	// mirroring the runtime semantics the IR later generates.
	if x.Op == ast.OpLOr {
		l, err := Eval(x.L, lookup)
		if err != nil {
			return 0, err
		}
		if l != 0 {
			return 1, nil
		}
		r, err := Eval(x.R, lookup)
		if err != nil {
			return 0, err
		}
		return boolInt(r != 0), nil
	}
	if x.Op == ast.OpLAnd {
		l, err := Eval(x.L, lookup)
		if err != nil {
			return 0, err
		}
		if l == 0 {
			return 0, nil
		}
		r, err := Eval(x.R, lookup)
		if err != nil {
			return 0, err
		}
		return boolInt(r != 0), nil
	}
	l, err := Eval(x.L, lookup)
	if err != nil {
		return 0, err
	}
	r, err := Eval(x.R, lookup)
	if err != nil {
		return 0, err
	}
	switch x.Op {
	case ast.OpEq:
		return boolInt(l == r), nil
	case ast.OpNeq:
		return boolInt(l != r), nil
	case ast.OpLt:
		return boolInt(l < r), nil
	case ast.OpGt:
		return boolInt(l > r), nil
	case ast.OpLe:
		return boolInt(l <= r), nil
	case ast.OpGe:
		return boolInt(l >= r), nil
	case ast.OpAdd:
		return l + r, nil
	case ast.OpSub:
		return l - r, nil
	case ast.OpMul:
		return l * r, nil
	case ast.OpDiv:
		if r == 0 {
			return 0, fmt.Errorf("%d:%d: division by zero in constant expression", x.Pos.Line, x.Pos.Col)
		}
		return l / r, nil // Go's integer division already truncates toward zero
	case ast.OpMod:
		if r == 0 {
			return 0, fmt.Errorf("%d:%d: modulo by zero in constant expression", x.Pos.Line, x.Pos.Col)
		}
		return l % r, nil
	}
	return 0, fmt.Errorf("unreachable binary op")
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
