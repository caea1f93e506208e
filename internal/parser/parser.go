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

// Package parser is a recursive-descent parser producing internal/ast
// trees from SysY source text, layer by layer over lor/land/eq/rel/add/
// mul/unary/primary precedence exactly as spec.md describes. Ambient
// plumbing (spec.md marks the grammar out of scope); kept minimal.
package parser

import (
	"fmt"

	"github.com/sysy-tools/sysyc/internal/ast"
	"github.com/sysy-tools/sysyc/internal/lexer"
)

type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse tokenizes and parses a full compilation unit.
func Parse(src string) (*ast.CompUnit, error) {
	toks, err := lexer.All(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseCompUnit()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) next() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if !p.at(k) {
		t := p.cur()
		return t, fmt.Errorf("%d:%d: expected %v, got %v", t.Line, t.Col, k, t.Kind)
	}
	return p.next(), nil
}

func pos(t lexer.Token) ast.Pos { return ast.Pos{Line: t.Line, Col: t.Col} }

func (p *Parser) parseCompUnit() (*ast.CompUnit, error) {
	cu := &ast.CompUnit{}
	for !p.at(lexer.EOF) {
		item, err := p.parseGlobalItem()
		if err != nil {
			return nil, err
		}
		cu.Items = append(cu.Items, item)
	}
	return cu, nil
}

// parseGlobalItem disambiguates `int f(...)` from `int x;`/`int x = ...;` by
// lookahead to the token after the identifier: a following '(' means a
// function definition.
func (p *Parser) parseGlobalItem() (ast.GlobalItem, error) {
	if p.at(lexer.KwConst) {
		d, err := p.parseDecl(true)
		if err != nil {
			return ast.GlobalItem{}, err
		}
		return ast.GlobalItem{Decl: d}, nil
	}
	// int | void
	startPos := p.pos
	btok := p.next()
	bty := ast.Int
	if btok.Kind == lexer.KwVoid {
		bty = ast.Void
	} else if btok.Kind != lexer.KwInt {
		return ast.GlobalItem{}, fmt.Errorf("%d:%d: expected type, got %v", btok.Line, btok.Col, btok.Kind)
	}
	idTok, err := p.expect(lexer.Ident)
	if err != nil {
		return ast.GlobalItem{}, err
	}
	if p.at(lexer.LParen) {
		fd, err := p.parseFuncDefRest(pos(btok), bty, idTok.Text)
		if err != nil {
			return ast.GlobalItem{}, err
		}
		return ast.GlobalItem{FuncDef: fd}, nil
	}
	// rewind and parse as a var decl.
	p.pos = startPos
	d, err := p.parseDecl(true)
	if err != nil {
		return ast.GlobalItem{}, err
	}
	return ast.GlobalItem{Decl: d}, nil
}

func (p *Parser) parseFuncDefRest(start ast.Pos, ty ast.BType, name string) (*ast.FuncDef, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var params []*ast.FuncParam
	for !p.at(lexer.RParen) {
		param, err := p.parseFuncParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.at(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Pos: start, RetType: ty, Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseFuncParam() (*ast.FuncParam, error) {
	btok, err := p.expect(lexer.KwInt)
	if err != nil {
		return nil, err
	}
	idTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	param := &ast.FuncParam{Pos: pos(btok), Type: ast.Int, Name: idTok.Text}
	if p.at(lexer.LBrack) {
		p.next()
		if _, err := p.expect(lexer.RBrack); err != nil {
			return nil, err
		}
		dims := []ast.Expr{nil} // first dimension unknown/pointer
		for p.at(lexer.LBrack) {
			p.next()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBrack); err != nil {
				return nil, err
			}
			dims = append(dims, e)
		}
		param.Dims = dims
	}
	return param, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	b := &ast.Block{}
	for !p.at(lexer.RBrace) {
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		b.Items = append(b.Items, item)
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) parseBlockItem() (ast.BlockItem, error) {
	if p.at(lexer.KwConst) || p.at(lexer.KwInt) {
		d, err := p.parseDecl(false)
		if err != nil {
			return ast.BlockItem{}, err
		}
		return ast.BlockItem{Decl: d}, nil
	}
	s, err := p.parseStmt()
	if err != nil {
		return ast.BlockItem{}, err
	}
	return ast.BlockItem{Stmt: s}, nil
}

func (p *Parser) parseDecl(isGlobal bool) (*ast.Decl, error) {
	start := p.cur()
	isConst := false
	if p.at(lexer.KwConst) {
		isConst = true
		p.next()
	}
	if _, err := p.expect(lexer.KwInt); err != nil {
		return nil, err
	}
	d := &ast.Decl{Pos: pos(start), IsConst: isConst, IsGlobal: isGlobal}
	for {
		def, err := p.parseDef(isConst)
		if err != nil {
			return nil, err
		}
		d.Defs = append(d.Defs, def)
		if p.at(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) parseDef(isConst bool) (*ast.Def, error) {
	idTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	def := &ast.Def{Pos: pos(idTok), Name: idTok.Text}
	for p.at(lexer.LBrack) {
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBrack); err != nil {
			return nil, err
		}
		def.Dims = append(def.Dims, e)
	}
	if p.at(lexer.Assign) {
		p.next()
		init, err := p.parseInit(isConst)
		if err != nil {
			return nil, err
		}
		def.Init = init
	} else if isConst {
		t := p.cur()
		return nil, fmt.Errorf("%d:%d: const definition %q requires an initializer", t.Line, t.Col, def.Name)
	}
	return def, nil
}

func (p *Parser) parseInit(isConst bool) (ast.Init, error) {
	if p.at(lexer.LBrace) {
		p.next()
		var items []ast.Init
		for !p.at(lexer.RBrace) {
			it, err := p.parseInit(isConst)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			if p.at(lexer.Comma) {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBrace); err != nil {
			return nil, err
		}
		return ast.InitList{Items: items}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.InitExpr{Expr: e}, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case lexer.Semi:
		p.next()
		return ast.EmptyStmt{}, nil
	case lexer.LBrace:
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{Block: b}, nil
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwBreak:
		t := p.next()
		if _, err := p.expect(lexer.Semi); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{Pos: pos(t)}, nil
	case lexer.KwContinue:
		t := p.next()
		if _, err := p.expect(lexer.Semi); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{Pos: pos(t)}, nil
	case lexer.KwReturn:
		t := p.next()
		if p.at(lexer.Semi) {
			p.next()
			return &ast.ReturnStmt{Pos: pos(t)}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Semi); err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Pos: pos(t), Expr: e}, nil
	}
	// Either an assignment `lval = exp;` or an expression statement.
	return p.parseAssignOrExprStmt()
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	p.next() // if
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	ifStmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.at(lexer.KwElse) {
		p.next()
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		ifStmt.Else = els
	}
	return ifStmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	p.next() // while
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

// parseAssignOrExprStmt resolves the `lval = exp ;` vs `exp ;` ambiguity
// by attempting to parse an expression, then checking for a following '='
// whose left side collapses to a bare LVal reference.
func (p *Parser) parseAssignOrExprStmt() (ast.Stmt, error) {
	save := p.pos
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.Assign) {
		lv, ok := asLVal(e)
		if !ok {
			return nil, fmt.Errorf("invalid assignment target")
		}
		p.pos = save
		return p.parseAssign(lv)
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: e}, nil
}

func asLVal(e ast.Expr) (*ast.LVal, bool) {
	if le, ok := e.(*ast.LValExpr); ok {
		return le.LVal, true
	}
	return nil, false
}

func (p *Parser) parseAssign(_ *ast.LVal) (ast.Stmt, error) {
	lv, err := p.parseLVal()
	if err != nil {
		return nil, err
	}
	eqTok, err := p.expect(lexer.Assign)
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Pos: pos(eqTok), LVal: lv, Expr: rhs}, nil
}

func (p *Parser) parseLVal() (*ast.LVal, error) {
	idTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	lv := &ast.LVal{Pos: pos(idTok), Name: idTok.Text}
	for p.at(lexer.LBrack) {
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBrack); err != nil {
			return nil, err
		}
		lv.Indices = append(lv.Indices, e)
	}
	return lv, nil
}

// --- expressions, precedence-descending ---

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseLOr() }

func (p *Parser) parseLOr() (ast.Expr, error) {
	l, err := p.parseLAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OrOr) {
		t := p.next()
		r, err := p.parseLAnd()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Pos: pos(t), Op: ast.OpLOr, L: l, R: r}
	}
	return l, nil
}

func (p *Parser) parseLAnd() (ast.Expr, error) {
	l, err := p.parseEq()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AndAnd) {
		t := p.next()
		r, err := p.parseEq()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Pos: pos(t), Op: ast.OpLAnd, L: l, R: r}
	}
	return l, nil
}

func (p *Parser) parseEq() (ast.Expr, error) {
	l, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Eq) || p.at(lexer.Neq) {
		t := p.next()
		op := ast.OpEq
		if t.Kind == lexer.Neq {
			op = ast.OpNeq
		}
		r, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Pos: pos(t), Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *Parser) parseRel() (ast.Expr, error) {
	l, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Lt) || p.at(lexer.Gt) || p.at(lexer.Le) || p.at(lexer.Ge) {
		t := p.next()
		var op ast.BinOp
		switch t.Kind {
		case lexer.Lt:
			op = ast.OpLt
		case lexer.Gt:
			op = ast.OpGt
		case lexer.Le:
			op = ast.OpLe
		case lexer.Ge:
			op = ast.OpGe
		}
		r, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Pos: pos(t), Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	l, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Plus) || p.at(lexer.Minus) {
		t := p.next()
		op := ast.OpAdd
		if t.Kind == lexer.Minus {
			op = ast.OpSub
		}
		r, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Pos: pos(t), Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *Parser) parseMul() (ast.Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Star) || p.at(lexer.Slash) || p.at(lexer.Percent) {
		t := p.next()
		var op ast.BinOp
		switch t.Kind {
		case lexer.Star:
			op = ast.OpMul
		case lexer.Slash:
			op = ast.OpDiv
		case lexer.Percent:
			op = ast.OpMod
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Pos: pos(t), Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case lexer.Plus, lexer.Minus, lexer.Not:
		t := p.next()
		var op ast.UnOp
		switch t.Kind {
		case lexer.Plus:
			op = ast.UnPlus
		case lexer.Minus:
			op = ast.UnMinus
		case lexer.Not:
			op = ast.UnNot
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: pos(t), Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur().Kind {
	case lexer.LParen:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{X: e}, nil
	case lexer.IntLit:
		t := p.next()
		return &ast.NumberExpr{Pos: pos(t), Val: t.Int}, nil
	case lexer.Ident:
		// lookahead: call vs lval.
		idTok := p.cur()
		if p.toks[p.pos+1].Kind == lexer.LParen {
			p.next()
			p.next() // consume '('
			var args []ast.Expr
			for !p.at(lexer.RParen) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(lexer.Comma) {
					p.next()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RParen); err != nil {
				return nil, err
			}
			return &ast.CallExpr{Pos: pos(idTok), Name: idTok.Text, Args: args}, nil
		}
		lv, err := p.parseLVal()
		if err != nil {
			return nil, err
		}
		return &ast.LValExpr{LVal: lv}, nil
	}
	t := p.cur()
	return nil, fmt.Errorf("%d:%d: unexpected token %v in expression", t.Line, t.Col, t.Kind)
}
