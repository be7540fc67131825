// Package parser implements the recursive-descent parser of spec.md §4.3:
// it consumes the token vector internal/lexer produces and builds the
// tagged-variant internal/ast tree, recording one diagnostic per
// unexpected token rather than panicking.
package parser

import (
	"vc/internal/ast"
	"vc/internal/diag"
	"vc/internal/lexer"
	"vc/internal/types"
)

// Parser walks a flat token vector with a single lookahead cursor, the same
// shape as a hand-written scanner: advance/check/match/expect over an
// index into the slice rather than a channel or iterator.
type Parser struct {
	toks     []lexer.Token
	pos      int
	file     string
	diags    *diag.Bag
	typedefs map[string]bool
	// typedefTypes resolves a registered typedef name straight to its
	// underlying type, so declSpecifiers never has to hand back a bare
	// UNKNOWN placeholder for semantic to chase down later.
	typedefTypes map[string]*types.Type

	// lastAggMembers holds the ast.Member view (with bit-field/enum-value
	// expressions) of the struct/union/enum body most recently closed by
	// structBody/enumBody, consumed by whichever caller asked for it before
	// the next aggregate body is opened.
	lastAggMembers []ast.Member

	// tagMembers resolves a previously-defined struct/union tag (keyed
	// "struct "+name or "union "+name) to its member list, so a later
	// bare reference like `struct Foo *p` without a brace body still sees
	// the full type instead of an incomplete one.
	tagMembers map[string][]types.Member
	// tagAggMembers is tagMembers' ast.Member counterpart, keyed the same
	// way, for the bit-field/enum-value expressions semantic checking needs.
	tagAggMembers map[string][]ast.Member
}

func New(toks []lexer.Token, file string, diags *diag.Bag) *Parser {
	return &Parser{
		toks: toks, file: file, diags: diags,
		typedefs: map[string]bool{}, typedefTypes: map[string]*types.Type{},
		tagMembers: map[string][]types.Member{}, tagAggMembers: map[string][]ast.Member{},
	}
}

// ParseTopLevel is the parser_parse_top_level entry point of spec.md §6.
func ParseTopLevel(toks []lexer.Token, file string, diags *diag.Bag) *ast.TranslationUnit {
	p := New(toks, file, diags)
	return p.Parse()
}

func (p *Parser) Parse() *ast.TranslationUnit {
	tu := &ast.TranslationUnit{}
	for !p.atEnd() {
		p.topLevelDecl(tu)
	}
	return tu
}

func (p *Parser) atEnd() bool { return p.pos >= len(p.toks) || p.toks[p.pos].Kind == lexer.EOF }

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF, File: p.file}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF, File: p.file}
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) check(lexeme string) bool { return p.peek().Lexeme == lexeme }

func (p *Parser) match(lexeme string) bool {
	if p.check(lexeme) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token with the given lexeme or records a syntax
// diagnostic naming what was expected and returns the current token without
// consuming it; the enclosing loops and synchronize are what move the cursor
// past a bad token.
func (p *Parser) expect(lexeme, context string) lexer.Token {
	if p.check(lexeme) {
		return p.advance()
	}
	t := p.peek()
	p.errorf(t, "expected %q %s, found %q", lexeme, context, t.Lexeme)
	return t
}

func (p *Parser) errorf(t lexer.Token, format string, args ...interface{}) {
	p.diags.Errorf(diag.Syntactic, p.file, "", t.Line, t.Column, format, args...)
}

// synchronize skips tokens until the next plausible declaration or
// statement boundary after a syntax error, so one malformed construct
// doesn't cascade into hundreds of spurious diagnostics.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		if p.check(";") {
			p.advance()
			return
		}
		if p.check("}") || p.isDeclStart() {
			return
		}
		p.advance()
	}
}

// isDeclStart reports whether the current token could begin a new
// declaration: a type keyword, a storage-class/qualifier keyword, or a
// name already registered as a typedef.
func (p *Parser) isDeclStart() bool {
	t := p.peek()
	if t.Kind == lexer.KEYWORD && (typeKeywords[t.Lexeme] || storageKeywords[t.Lexeme] || qualKeywords[t.Lexeme]) {
		return true
	}
	if t.Kind == lexer.IDENT && p.typedefs[t.Lexeme] {
		return true
	}
	return false
}

// funcShape is the parameter-list half of a function declarator; the
// return type is tracked separately since ast.Type itself has no room for
// "function returning T" (only pointer/array/aggregate payloads).
type funcShape struct {
	ret      *ast.Type
	params   []string
	types    []*ast.Type
	restrict []bool
	variadic bool
}

// topLevelDecl parses one file-scope construct: a typedef, a tag-only
// struct/union/enum declaration, a _Static_assert, or a declaration whose
// first declarator decides (by what follows) whether it's a function
// prototype, a function definition, or one or more global variables.
func (p *Parser) topLevelDecl(tu *ast.TranslationUnit) {
	start := p.pos
	if p.check("_Static_assert") {
		tu.Globals = append(tu.Globals, p.staticAssert())
		return
	}
	if p.check(";") {
		p.advance()
		return
	}

	storage, base, tag := p.declSpecifiers()
	if base == nil {
		t := p.peek()
		p.errorf(t, "expected a declaration, found %q", t.Lexeme)
		if p.pos == start {
			p.advance()
		}
		p.synchronize()
		return
	}

	if storage.Has(ast.FlagTypedef) {
		for {
			name, declType, _, _ := p.declarator(base)
			p.typedefs[name] = true
			p.typedefTypes[name] = declType.Type
			tu.Globals = append(tu.Globals, &ast.Stmt{Kind: ast.STypedefDecl, TypedefName: name, TypedefType: declType, Line: p.peek().Line})
			if !p.match(",") {
				break
			}
		}
		p.expect(";", "after typedef")
		return
	}

	if (base.Kind == types.STRUCT || base.Kind == types.UNION || base.Kind == types.ENUM) && p.check(";") {
		p.advance()
		kind := ast.SStructDecl
		if base.Kind == types.UNION {
			kind = ast.SUnionDecl
		} else if base.Kind == types.ENUM {
			kind = ast.SEnumDecl
		}
		tu.Globals = append(tu.Globals, &ast.Stmt{Kind: kind, Tag: tag, Members: p.lastAggMembers})
		return
	}

	if p.check(";") {
		p.advance()
		return
	}

	name, declType, fn, _ := p.declarator(base)
	if name == "" {
		p.errorf(p.peek(), "expected a declarator name")
		p.synchronize()
		return
	}

	if fn != nil {
		tu.Funcs = append(tu.Funcs, p.finishFunction(name, fn, storage))
		return
	}

	for {
		var init *ast.Expr
		var initList *ast.InitList
		if p.match("=") {
			if p.check("{") {
				initList = p.initializerList()
			} else {
				init = p.assignExpr()
			}
		}
		tu.Globals = append(tu.Globals, &ast.Stmt{
			Kind: ast.SVarDecl, Name: name, DeclType: declType, Storage: storage,
			Init: init, InitList: initList, Line: p.peek().Line,
		})
		if !p.match(",") {
			break
		}
		name, declType, fn, _ = p.declarator(base)
		if fn != nil {
			p.errorf(p.peek(), "function declarator not allowed after ','")
			break
		}
	}
	p.expect(";", "after declaration")
}

func (p *Parser) finishFunction(name string, shape *funcShape, storage ast.StorageFlags) *ast.Func {
	fn := &ast.Func{
		Name: name, ReturnType: shape.ret, ParamNames: shape.params, ParamTypes: shape.types,
		ParamIsRestrict: shape.restrict, IsVariadic: shape.variadic,
		IsInline: storage.Has(ast.FlagInline), IsNoreturn: storage.Has(ast.FlagNoreturn),
		IsStatic: storage.Has(ast.FlagStatic), Line: p.peek().Line,
	}
	if p.match(";") {
		fn.IsPrototype = true
		return fn
	}
	fn.Body = p.block()
	return fn
}
