package parser

import (
	"vc/internal/ast"
	"vc/internal/lexer"
	"vc/internal/types"
)

var storageKeywords = map[string]bool{
	"typedef": true, "extern": true, "static": true, "auto": true,
	"register": true, "_Thread_local": true, "inline": true, "__inline": true,
	"__inline__": true, "_Noreturn": true,
}

var qualKeywords = map[string]bool{
	"const": true, "__const": true, "volatile": true, "__volatile__": true,
	"restrict": true, "__restrict": true, "__restrict__": true, "_Atomic": true,
}

var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "_Complex": true, "_Imaginary": true,
	"struct": true, "union": true, "enum": true,
}

// declSpecifiers parses the storage-class keywords, type qualifiers, and
// type specifier of one declaration, returning nil for base when no type
// specifier is present at all (the caller treats that as "not a
// declaration"). __attribute__((...)) annotations are accepted and
// discarded anywhere a specifier is expected; none of them, packed
// included, reaches the AST or changes the type vc reasons about.
func (p *Parser) declSpecifiers() (ast.StorageFlags, *ast.Type, string) {
	var storage ast.StorageFlags
	var signedSeen, unsignedSeen bool
	longCount := 0
	var kind types.Kind = types.UNKNOWN
	haveBase := false
	tag := ""
	var members []types.Member

	for {
		t := p.peek()
		if t.Lexeme == "__attribute__" || t.Lexeme == "__attribute" {
			p.skipAttribute()
			continue
		}
		if qualKeywords[t.Lexeme] {
			p.advance()
			continue
		}
		switch t.Lexeme {
		case "typedef":
			storage |= ast.FlagTypedef
			p.advance()
			continue
		case "extern":
			storage |= ast.FlagExtern
			p.advance()
			continue
		case "static":
			storage |= ast.FlagStatic
			p.advance()
			continue
		case "auto", "register":
			p.advance()
			continue
		case "_Thread_local":
			p.advance()
			continue
		case "inline", "__inline", "__inline__":
			storage |= ast.FlagInline
			p.advance()
			continue
		case "_Noreturn":
			storage |= ast.FlagNoreturn
			p.advance()
			continue
		}
		if haveBase {
			break
		}
		switch t.Lexeme {
		case "void":
			kind, haveBase = types.VOID, true
			p.advance()
		case "char":
			kind, haveBase = types.CHAR, true
			p.advance()
		case "_Bool":
			kind, haveBase = types.BOOL, true
			p.advance()
		case "float":
			kind, haveBase = types.FLOAT, true
			p.advance()
		case "double":
			kind, haveBase = types.DOUBLE, true
			p.advance()
		case "short":
			kind, haveBase = types.SHORT, true
			p.advance()
		case "int":
			if kind == types.UNKNOWN {
				kind = types.INT
			}
			haveBase = true
			p.advance()
		case "long":
			longCount++
			haveBase = true
			p.advance()
		case "signed":
			signedSeen = true
			haveBase = true
			p.advance()
		case "unsigned":
			unsignedSeen = true
			haveBase = true
			p.advance()
		case "_Complex", "_Imaginary":
			p.advance() // complexity folded onto FLOAT/DOUBLE below
		case "struct", "union":
			isUnion := t.Lexeme == "union"
			p.advance()
			tag, members = p.structBody(isUnion)
			if isUnion {
				kind = types.UNION
			} else {
				kind = types.STRUCT
			}
			haveBase = true
		case "enum":
			p.advance()
			tag, members = p.enumBody()
			kind = types.ENUM
			haveBase = true
		case "_Generic":
			p.errorf(t, "_Generic is not supported")
			p.advance()
			p.skipBalanced("(", ")")
			haveBase = true
			kind = types.INT
		case "_Atomic":
			p.advance()
			if p.check("(") {
				p.advance()
				_, inner, _ := p.declSpecifiersInParens()
				if inner != nil {
					kind = inner.Kind
					tag = inner.Tag
					members = inner.Members
				}
				p.expect(")", "after _Atomic(...)")
				haveBase = true
			}
		default:
			if t.Kind == lexer.IDENT && p.typedefs[t.Lexeme] && !haveBase {
				p.advance()
				underlying := p.typedefTypes[t.Lexeme]
				if underlying == nil {
					underlying = &types.Type{Kind: types.UNKNOWN}
				}
				return storage, &ast.Type{Type: underlying, TypedefName: t.Lexeme}, ""
			}
			if haveBase {
				goto done
			}
			return storage, nil, ""
		}
	}
done:
	if longCount > 0 && kind == types.DOUBLE {
		kind = types.LDOUBLE
	} else if longCount >= 2 {
		kind = types.LLONG
	} else if longCount == 1 {
		kind = types.LONG
	}
	if unsignedSeen {
		switch kind {
		case types.CHAR:
			kind = types.UCHAR
		case types.SHORT:
			kind = types.USHORT
		case types.INT, types.UNKNOWN:
			kind = types.UINT
		case types.LONG:
			kind = types.ULONG
		case types.LLONG:
			kind = types.ULLONG
		}
	}
	_ = signedSeen
	base := &ast.Type{Type: &types.Type{Kind: kind, Tag: tag, Members: members}}
	return storage, base, tag
}

func (p *Parser) declSpecifiersInParens() (ast.StorageFlags, *ast.Type, string) {
	return p.declSpecifiers()
}

// skipAttribute consumes a GNU __attribute__((...)) annotation in its
// entirety and records nothing of it, so packed/aligned attributes have no
// effect on layout.
func (p *Parser) skipAttribute() {
	p.advance()
	p.skipBalanced("(", ")")
}

func (p *Parser) skipBalanced(open, close string) {
	if !p.match(open) {
		return
	}
	depth := 1
	for depth > 0 && !p.atEnd() {
		if p.check(open) {
			depth++
		} else if p.check(close) {
			depth--
		}
		p.advance()
	}
}

func (p *Parser) structBody(isUnion bool) (tag string, members []types.Member) {
	p.lastAggMembers = nil
	if p.peek().Kind == lexer.IDENT {
		tag = p.advance().Lexeme
	}
	key := "struct " + tag
	if isUnion {
		key = "union " + tag
	}
	if !p.check("{") {
		if tag != "" {
			if m, ok := p.tagMembers[key]; ok {
				p.lastAggMembers = p.tagAggMembers[key]
				return tag, m
			}
		}
		return tag, nil
	}
	p.advance()
	var aggMembers []ast.Member
	for !p.check("}") && !p.atEnd() {
		p.structMember(&members, &aggMembers)
	}
	p.expect("}", "to close struct/union body")
	p.lastAggMembers = aggMembers
	if tag != "" {
		p.tagMembers[key] = members
		p.tagAggMembers[key] = p.lastAggMembers
	}
	return tag, members
}

func (p *Parser) structMember(members *[]types.Member, aggMembers *[]ast.Member) {
	_, base, _ := p.declSpecifiers()
	if base == nil {
		p.errorf(p.peek(), "expected a member declaration")
		p.advance()
		return
	}
	if p.check(";") {
		p.advance()
		return
	}
	for {
		name, declType, _, _ := p.declarator(base)
		var bitWidth *ast.Expr
		if p.match(":") {
			bitWidth = p.assignExpr()
		}
		*members = append(*members, types.Member{Name: name, Type: declType.Type})
		*aggMembers = append(*aggMembers, ast.Member{Name: name, Type: declType, BitWidth: bitWidth})
		if !p.match(",") {
			break
		}
	}
	p.expect(";", "after struct/union member")
}

// enumBody parses an enum body, returning both the bare-name list (threaded
// through declSpecifiers' base.Type.Members for type identity) and the
// ast.Member list with each enumerator's explicit value expression, stashed
// on the parser for topLevelDecl/structMember to pick up immediately
// afterward (an enum body is always parsed and consumed in the same
// declaration, so there is never more than one pending set at a time).
func (p *Parser) enumBody() (tag string, members []types.Member) {
	p.lastAggMembers = nil
	if p.peek().Kind == lexer.IDENT {
		tag = p.advance().Lexeme
	}
	if !p.check("{") {
		return tag, nil
	}
	p.advance()
	for !p.check("}") && !p.atEnd() {
		name := p.advance().Lexeme
		var enumVal *ast.Expr
		if p.match("=") {
			enumVal = p.assignExpr()
		}
		members = append(members, types.Member{Name: name})
		p.lastAggMembers = append(p.lastAggMembers, ast.Member{Name: name, EnumVal: enumVal})
		if !p.match(",") {
			break
		}
	}
	p.expect("}", "to close enum body")
	return tag, members
}

func (p *Parser) staticAssert() *ast.Stmt {
	line := p.peek().Line
	p.advance()
	p.expect("(", "after _Static_assert")
	cond := p.assignExpr()
	msg := ""
	if p.match(",") {
		t := p.advance()
		if t.Kind == lexer.STRING_LIT {
			msg = lexer.DecodeEscapes(trimQuotes(t.Lexeme))
		}
	}
	p.expect(")", "to close _Static_assert")
	p.expect(";", "after _Static_assert")
	return &ast.Stmt{Kind: ast.SStaticAssert, AssertCond: cond, AssertMessage: msg, Line: line}
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

// declarator parses a (possibly abstract) declarator: leading pointers,
// an identifier (or none, for abstract declarators used in casts/sizeof),
// and trailing array or function-parameter suffixes, left-associating
// array/function suffixes directly onto the name the way C's "declaration
// mirrors use" rule does. A parenthesized declarator is accepted only in
// the `(name)` form: a `*` after the '(' is not consumed, so a
// function-pointer declarator such as `(*name)(int)` is reported as a
// syntax error.
func (p *Parser) declarator(base *ast.Type) (name string, declType *ast.Type, fn *funcShape, vlaSize *ast.Expr) {
	t := base.Type
	for p.check("*") {
		p.advance()
		t = types.Ptr(t)
		for qualKeywords[p.peek().Lexeme] {
			if p.peek().Lexeme == "restrict" || p.peek().Lexeme == "__restrict" || p.peek().Lexeme == "__restrict__" {
				t.IsRestrict = true
			}
			if p.peek().Lexeme == "const" || p.peek().Lexeme == "__const" {
				t.IsConst = true
			}
			if p.peek().Lexeme == "volatile" || p.peek().Lexeme == "__volatile__" {
				t.IsVolatile = true
			}
			p.advance()
		}
	}
	parenDeclarator := false
	if p.check("(") && (p.peekAt(1).Kind == lexer.IDENT || p.peekAt(1).Lexeme == "*") {
		parenDeclarator = true
		p.advance()
	}
	if p.peek().Kind == lexer.IDENT {
		name = p.advance().Lexeme
	}
	if parenDeclarator {
		p.expect(")", "to close parenthesized declarator")
	}
	for {
		if p.check("[") {
			p.advance()
			var n int64 = -1
			if !p.check("]") {
				e := p.assignExpr()
				if e.Kind == ast.ENumber {
					n = int64(e.IntVal)
				} else {
					vlaSize = e
				}
			}
			p.expect("]", "to close array declarator")
			t = types.Array(t, n)
			continue
		}
		if p.check("(") {
			p.advance()
			shape := &funcShape{ret: &ast.Type{Type: t}}
			if p.check("void") && p.peekAt(1).Lexeme == ")" {
				p.advance()
			} else {
				for !p.check(")") && !p.atEnd() {
					if p.match("...") {
						shape.variadic = true
						break
					}
					_, pbase, _ := p.declSpecifiers()
					if pbase == nil {
						p.errorf(p.peek(), "expected a parameter declaration")
						p.advance()
						continue
					}
					pname, ptype, _, _ := p.declarator(pbase)
					shape.params = append(shape.params, pname)
					shape.types = append(shape.types, ptype)
					shape.restrict = append(shape.restrict, ptype.IsRestrict)
					if !p.match(",") {
						break
					}
				}
			}
			p.expect(")", "to close parameter list")
			fn = shape
			continue
		}
		break
	}
	return name, &ast.Type{Type: t}, fn, vlaSize
}

// typeName parses an abstract declarator for sizeof(type), casts, and
// compound literal type-names: a declSpecifiers with no name allowed.
func (p *Parser) typeName() *ast.Type {
	_, base, _ := p.declSpecifiers()
	if base == nil {
		return nil
	}
	_, declType, _, _ := p.declarator(base)
	return declType
}
