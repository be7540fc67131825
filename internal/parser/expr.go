package parser

import (
	"strconv"
	"strings"

	"vc/internal/ast"
	"vc/internal/lexer"
)

// binaryLevels lists C's binary operator precedence ladder from lowest to
// highest, the same left-to-right table-driven shape the teacher's own
// expression parser uses, just carried all the way down to multiplicative
// instead of stopping at the four arithmetic/comparison tiers a small
// scripting language needs.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "^=": true, "|=": true,
}

// expression parses a comma-expression, the widest production used inside
// parentheses and for statement expressions.
func (p *Parser) expression() *ast.Expr {
	e := p.assignExpr()
	for p.check(",") {
		line := p.advance().Line
		rhs := p.assignExpr()
		e = &ast.Expr{Kind: ast.EBinary, Op: ",", X: e, Y: rhs, Line: line}
	}
	return e
}

func (p *Parser) assignExpr() *ast.Expr {
	left := p.conditional()
	if assignOps[p.peek().Lexeme] {
		op := p.advance().Lexeme
		right := p.assignExpr()
		viaPtr := left.Kind == ast.EMember && left.Op == "->"
		return &ast.Expr{Kind: ast.EAssign, Op: op, X: left, Y: right, ViaPtr: viaPtr, Line: left.Line}
	}
	return left
}

func (p *Parser) conditional() *ast.Expr {
	cond := p.binary(0)
	if p.check("?") {
		line := p.advance().Line
		then := p.expression()
		p.expect(":", "in conditional expression")
		els := p.conditional()
		return &ast.Expr{Kind: ast.ECond, Cond: cond, Then: then, Else: els, Line: line}
	}
	return cond
}

func (p *Parser) binary(level int) *ast.Expr {
	if level >= len(binaryLevels) {
		return p.cast()
	}
	left := p.binary(level + 1)
	for containsOp(binaryLevels[level], p.peek().Lexeme) {
		t := p.advance()
		right := p.binary(level + 1)
		left = &ast.Expr{Kind: ast.EBinary, Op: t.Lexeme, X: left, Y: right, Line: t.Line}
	}
	return left
}

func containsOp(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// cast parses `(type-name) cast-expr` ahead of unary, falling back to a
// parenthesized expression when what follows '(' isn't a type: the same
// disambiguation every C parser needs, resolved here by peeking at whether
// the token after '(' starts a type.
func (p *Parser) cast() *ast.Expr {
	if p.check("(") && p.startsTypeAt(1) {
		line := p.peek().Line
		p.advance()
		ty := p.typeName()
		p.expect(")", "to close cast type")
		if p.check("{") {
			return p.compoundLiteralTail(ty, line)
		}
		x := p.cast()
		return &ast.Expr{Kind: ast.ECast, CastType: ty, X: x, Line: line}
	}
	return p.unary()
}

// startsTypeAt reports whether the token n positions ahead begins a
// type-name: a type keyword, a type qualifier, or a registered typedef
// name.
func (p *Parser) startsTypeAt(n int) bool {
	t := p.peekAt(n)
	if t.Kind == lexer.KEYWORD && (typeKeywords[t.Lexeme] || qualKeywords[t.Lexeme]) {
		return true
	}
	if t.Kind == lexer.IDENT && p.typedefs[t.Lexeme] {
		return true
	}
	return false
}

func (p *Parser) unary() *ast.Expr {
	t := p.peek()
	switch t.Lexeme {
	case "++", "--":
		p.advance()
		x := p.unary()
		return &ast.Expr{Kind: ast.EUnary, Op: t.Lexeme, X: x, Line: t.Line}
	case "+", "-", "!", "~", "*", "&":
		p.advance()
		x := p.cast()
		return &ast.Expr{Kind: ast.EUnary, Op: t.Lexeme, X: x, Line: t.Line}
	}
	if t.Lexeme == "sizeof" {
		return p.sizeofExpr()
	}
	if t.IsKeyword("_Alignof") || t.Lexeme == "__alignof" || t.Lexeme == "__alignof__" {
		p.advance()
		p.expect("(", "after _Alignof")
		ty := p.typeName()
		p.expect(")", "to close _Alignof")
		return &ast.Expr{Kind: ast.ESizeofType, OperandType: ty, Line: t.Line}
	}
	return p.postfix()
}

func (p *Parser) sizeofExpr() *ast.Expr {
	line := p.advance().Line
	if p.check("(") && p.startsTypeAt(1) {
		p.advance()
		ty := p.typeName()
		p.expect(")", "to close sizeof(type)")
		return &ast.Expr{Kind: ast.ESizeofType, OperandType: ty, Line: line}
	}
	x := p.unary()
	return &ast.Expr{Kind: ast.ESizeofExpr, X: x, Line: line}
}

func (p *Parser) postfix() *ast.Expr {
	e := p.primary()
	for {
		t := p.peek()
		switch t.Lexeme {
		case "[":
			p.advance()
			idx := p.expression()
			p.expect("]", "to close array index")
			e = &ast.Expr{Kind: ast.EIndex, X: e, Y: idx, Line: t.Line}
		case "(":
			p.advance()
			var args []*ast.Expr
			for !p.check(")") && !p.atEnd() {
				args = append(args, p.assignExpr())
				if !p.match(",") {
					break
				}
			}
			p.expect(")", "to close call argument list")
			e = &ast.Expr{Kind: ast.ECall, Callee: e, Args: args, Line: t.Line}
		case ".":
			p.advance()
			name := p.advance().Lexeme
			e = &ast.Expr{Kind: ast.EMember, X: e, Member: name, Line: t.Line}
		case "->":
			p.advance()
			name := p.advance().Lexeme
			e = &ast.Expr{Kind: ast.EMember, X: e, Member: name, Op: "->", Line: t.Line}
		case "++", "--":
			p.advance()
			e = &ast.Expr{Kind: ast.EUnary, Op: "post" + t.Lexeme, X: e, Line: t.Line}
		default:
			return e
		}
	}
}

func (p *Parser) primary() *ast.Expr {
	t := p.advance()
	switch {
	case t.Kind == lexer.NUMBER:
		return parseNumber(t)
	case t.Kind == lexer.IMAG_NUMBER:
		e := parseNumber(t)
		e.IsImaginary = true
		return e
	case t.Kind == lexer.CHAR_LIT || t.Kind == lexer.WCHAR_LIT:
		body := lexer.DecodeEscapes(stripOuter(t.Lexeme))
		return &ast.Expr{Kind: ast.EChar, StrVal: body, IsWide: t.Kind == lexer.WCHAR_LIT, Line: t.Line}
	case t.Kind == lexer.STRING_LIT || t.Kind == lexer.WSTRING_LIT:
		body := lexer.DecodeEscapes(stripOuter(t.Lexeme))
		// Adjacent string literal concatenation.
		for p.peek().Kind == lexer.STRING_LIT || p.peek().Kind == lexer.WSTRING_LIT {
			nt := p.advance()
			body += lexer.DecodeEscapes(stripOuter(nt.Lexeme))
			if nt.Kind == lexer.WSTRING_LIT {
				t.Kind = lexer.WSTRING_LIT
			}
		}
		return &ast.Expr{Kind: ast.EString, StrVal: body, IsWide: t.Kind == lexer.WSTRING_LIT, Line: t.Line}
	case t.Lexeme == "(":
		e := p.expression()
		p.expect(")", "to close parenthesized expression")
		return e
	case t.Lexeme == "offsetof":
		return p.offsetofTail(t.Line)
	case t.Kind == lexer.IDENT:
		return &ast.Expr{Kind: ast.EIdent, Name: t.Lexeme, Line: t.Line}
	}
	p.errorf(t, "expected an expression, found %q", t.Lexeme)
	return &ast.Expr{Kind: ast.ENumber, Line: t.Line}
}

func (p *Parser) offsetofTail(line int) *ast.Expr {
	p.expect("(", "after offsetof")
	ty := p.typeName()
	p.expect(",", "between offsetof's type and member path")
	var path strings.Builder
	path.WriteString(p.advance().Lexeme)
	for p.check(".") {
		p.advance()
		path.WriteByte('.')
		path.WriteString(p.advance().Lexeme)
	}
	p.expect(")", "to close offsetof")
	return &ast.Expr{Kind: ast.EOffsetof, OperandType: ty, OffsetofPath: path.String(), Line: line}
}

// compoundLiteralTail parses the `{ ... }` initializer list that follows a
// parenthesized type-name used as a compound literal, e.g.
// `(struct point){.x = 1, .y = 2}`.
func (p *Parser) compoundLiteralTail(ty *ast.Type, line int) *ast.Expr {
	init := p.initializerList()
	return &ast.Expr{Kind: ast.ECompoundLiteral, CLType: ty, CLInit: init, Line: line}
}

func (p *Parser) initializerList() *ast.InitList {
	line := p.peek().Line
	p.expect("{", "to start initializer list")
	list := &ast.InitList{Line: line}
	for !p.check("}") && !p.atEnd() {
		item := ast.InitItem{}
		if p.check(".") {
			p.advance()
			item.Designator = p.advance().Lexeme
			p.expect("=", "after designator")
		} else if p.check("[") {
			p.advance()
			item.Index = p.assignExpr()
			p.expect("]", "to close array designator")
			p.expect("=", "after array designator")
		}
		if p.check("{") {
			item.Nested = p.initializerList()
		} else {
			item.Value = p.assignExpr()
		}
		list.Items = append(list.Items, item)
		if !p.match(",") {
			break
		}
	}
	p.expect("}", "to close initializer list")
	return list
}

func stripOuter(s string) string {
	if len(s) >= 2 {
		start := 0
		if s[0] == 'L' {
			start = 1
		}
		return s[start+1 : len(s)-1]
	}
	return s
}

// parseNumber decodes an integer or floating constant's suffix (unsigned,
// long/long-long count) per spec.md §4.2's scanNumber output, reusing the
// lexeme the lexer already validated.
func parseNumber(t lexer.Token) *ast.Expr {
	lex := t.Lexeme
	isFloat := strings.ContainsAny(lex, ".") || hasFloatExponent(lex)
	if isFloat {
		body := trimFloatSuffix(lex)
		v, _ := strconv.ParseFloat(body, 64)
		return &ast.Expr{Kind: ast.ENumber, FloatVal: v, IsFloat: true, Line: t.Line}
	}
	body, unsigned, longCount := trimIntSuffix(lex)
	base := 10
	switch {
	case strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X"):
		base = 16
		body = body[2:]
	case strings.HasPrefix(body, "0") && len(body) > 1:
		base = 8
	}
	v, _ := strconv.ParseUint(body, base, 64)
	return &ast.Expr{Kind: ast.ENumber, IntVal: v, IsUnsigned: unsigned, LongCount: longCount, Line: t.Line}
}

func hasFloatExponent(lex string) bool {
	lower := strings.ToLower(lex)
	if strings.HasPrefix(lower, "0x") {
		return strings.Contains(lower, "p")
	}
	return strings.Contains(lower, "e")
}

func trimFloatSuffix(lex string) string {
	for len(lex) > 0 {
		c := lex[len(lex)-1]
		if c == 'f' || c == 'F' || c == 'l' || c == 'L' {
			lex = lex[:len(lex)-1]
			continue
		}
		break
	}
	return lex
}

func trimIntSuffix(lex string) (string, bool, int) {
	unsigned := false
	longCount := 0
	for len(lex) > 0 {
		c := lex[len(lex)-1]
		switch c {
		case 'u', 'U':
			unsigned = true
		case 'l', 'L':
			longCount++
		default:
			return lex, unsigned, longCount
		}
		lex = lex[:len(lex)-1]
	}
	return lex, unsigned, longCount
}
