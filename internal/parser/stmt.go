package parser

import (
	"vc/internal/ast"
	"vc/internal/lexer"
)

// block parses a `{ ... }` compound statement body.
func (p *Parser) block() []*ast.Stmt {
	p.expect("{", "to start a block")
	var stmts []*ast.Stmt
	for !p.check("}") && !p.atEnd() {
		stmts = append(stmts, p.statement())
	}
	p.expect("}", "to close a block")
	return stmts
}

func (p *Parser) statement() *ast.Stmt {
	t := p.peek()
	switch t.Lexeme {
	case "{":
		return &ast.Stmt{Kind: ast.SBlock, Stmts: p.block(), Line: t.Line}
	case "if":
		return p.ifStmt()
	case "while":
		return p.whileStmt()
	case "do":
		return p.doWhileStmt()
	case "for":
		return p.forStmt()
	case "switch":
		return p.switchStmt()
	case "return":
		return p.returnStmt()
	case "goto":
		p.advance()
		name := p.advance().Lexeme
		p.expect(";", "after goto")
		return &ast.Stmt{Kind: ast.SGoto, Label: name, Line: t.Line}
	case "break":
		p.advance()
		p.expect(";", "after break")
		return &ast.Stmt{Kind: ast.SBreak, Line: t.Line}
	case "continue":
		p.advance()
		p.expect(";", "after continue")
		return &ast.Stmt{Kind: ast.SContinue, Line: t.Line}
	case "_Static_assert":
		return p.staticAssert()
	case ";":
		p.advance()
		return &ast.Stmt{Kind: ast.SBlock, Line: t.Line}
	}
	if t.Kind == lexer.IDENT && p.peekAt(1).Lexeme == ":" {
		p.advance()
		p.advance()
		inner := p.statement()
		return &ast.Stmt{Kind: ast.SLabel, Label: t.Lexeme, Body: []*ast.Stmt{inner}, Line: t.Line}
	}
	if p.isDeclStart() {
		return p.declStmt()
	}
	e := p.expression()
	p.expect(";", "after expression statement")
	return &ast.Stmt{Kind: ast.SExpr, Expr: e, Line: t.Line}
}

func (p *Parser) ifStmt() *ast.Stmt {
	line := p.advance().Line
	p.expect("(", "after if")
	cond := p.expression()
	p.expect(")", "to close if condition")
	then := p.statement()
	var els *ast.Stmt
	if p.match("else") {
		els = p.statement()
	}
	return &ast.Stmt{Kind: ast.SIf, Cond: cond, Then: then, Else: els, Line: line}
}

func (p *Parser) whileStmt() *ast.Stmt {
	line := p.advance().Line
	p.expect("(", "after while")
	cond := p.expression()
	p.expect(")", "to close while condition")
	body := p.statement()
	return &ast.Stmt{Kind: ast.SWhile, Cond: cond, Body: []*ast.Stmt{body}, Line: line}
}

func (p *Parser) doWhileStmt() *ast.Stmt {
	line := p.advance().Line
	body := p.statement()
	p.expect("while", "to close do-while body")
	p.expect("(", "after do-while's while")
	cond := p.expression()
	p.expect(")", "to close do-while condition")
	p.expect(";", "after do-while")
	return &ast.Stmt{Kind: ast.SDoWhile, Cond: cond, Body: []*ast.Stmt{body}, Line: line}
}

func (p *Parser) forStmt() *ast.Stmt {
	line := p.advance().Line
	p.expect("(", "after for")
	stmt := &ast.Stmt{Kind: ast.SFor, Line: line}
	if p.check(";") {
		p.advance()
	} else if p.isDeclStart() {
		stmt.ForInitDecl = p.declStmt()
	} else {
		stmt.ForInitExpr = p.expression()
		p.expect(";", "after for-loop init expression")
	}
	if !p.check(";") {
		stmt.ForCond = p.expression()
	}
	p.expect(";", "after for-loop condition")
	if !p.check(")") {
		stmt.ForPost = p.expression()
	}
	p.expect(")", "to close for-loop header")
	stmt.Body = []*ast.Stmt{p.statement()}
	return stmt
}

func (p *Parser) switchStmt() *ast.Stmt {
	line := p.advance().Line
	p.expect("(", "after switch")
	expr := p.expression()
	p.expect(")", "to close switch expression")
	p.expect("{", "to start switch body")
	var cases []*ast.CaseClause
	for !p.check("}") && !p.atEnd() {
		cc := &ast.CaseClause{Line: p.peek().Line}
		if p.match("case") {
			cc.Expr = p.conditional()
		} else {
			p.expect("default", "to start a switch arm")
			cc.IsDefault = true
		}
		p.expect(":", "after case/default label")
		for !p.check("case") && !p.check("default") && !p.check("}") && !p.atEnd() {
			cc.Body = append(cc.Body, p.statement())
		}
		cases = append(cases, cc)
	}
	p.expect("}", "to close switch body")
	return &ast.Stmt{Kind: ast.SSwitch, SwitchExpr: expr, Cases: cases, Line: line}
}

func (p *Parser) returnStmt() *ast.Stmt {
	line := p.advance().Line
	var e *ast.Expr
	if !p.check(";") {
		e = p.expression()
	}
	p.expect(";", "after return")
	return &ast.Stmt{Kind: ast.SReturn, Expr: e, Line: line}
}

// declStmt parses a local declaration statement: a typedef, or one or more
// declarators with optional initializers, ending in ';'. VLA array sizes
// (a non-constant expression between '[' and ']') are recorded on SizeExpr
// for internal/semantic to lower into an ALLOCA.
func (p *Parser) declStmt() *ast.Stmt {
	line := p.peek().Line
	storage, base, _ := p.declSpecifiers()
	if base == nil {
		p.errorf(p.peek(), "expected a declaration")
		p.synchronize()
		return &ast.Stmt{Kind: ast.SBlock, Line: line}
	}
	if storage.Has(ast.FlagTypedef) {
		name, declType, _, _ := p.declarator(base)
		p.typedefs[name] = true
		p.typedefTypes[name] = declType.Type
		p.expect(";", "after typedef")
		return &ast.Stmt{Kind: ast.STypedefDecl, TypedefName: name, TypedefType: declType, Line: line}
	}

	var alignExpr *ast.Expr
	// _Alignas may appear interleaved with other specifiers; declSpecifiers
	// doesn't consume it today, so a bare `_Alignas(n)` right before the
	// declarator is handled here as a local extension point.
	if p.check("_Alignas") {
		p.advance()
		p.expect("(", "after _Alignas")
		alignExpr = p.assignExpr()
		p.expect(")", "to close _Alignas")
	}

	name, declType, fn, vlaSize := p.declarator(base)
	if fn != nil {
		// A local function prototype declaration, e.g. `int helper(int);`
		// inside a block; vc doesn't support nested function definitions.
		p.expect(";", "after nested function declaration")
		return &ast.Stmt{Kind: ast.SBlock, Line: line}
	}

	first := &ast.Stmt{Kind: ast.SVarDecl, Name: name, DeclType: declType, Storage: storage, AlignExpr: alignExpr, SizeExpr: vlaSize, Line: line}
	if p.match("=") {
		if p.check("{") {
			first.InitList = p.initializerList()
		} else {
			first.Init = p.assignExpr()
		}
	}
	if !p.check(",") {
		p.expect(";", "after declaration")
		return first
	}
	block := &ast.Stmt{Kind: ast.SBlock, Line: line, Stmts: []*ast.Stmt{first}}
	for p.match(",") {
		var nextVLASize *ast.Expr
		name, declType, _, nextVLASize = p.declarator(base)
		s := &ast.Stmt{Kind: ast.SVarDecl, Name: name, DeclType: declType, Storage: storage, SizeExpr: nextVLASize, Line: p.peek().Line}
		if p.match("=") {
			if p.check("{") {
				s.InitList = p.initializerList()
			} else {
				s.Init = p.assignExpr()
			}
		}
		block.Stmts = append(block.Stmts, s)
	}
	p.expect(";", "after declaration")
	return block
}
