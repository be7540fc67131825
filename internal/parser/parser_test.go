package parser

import (
	"testing"

	"vc/internal/ast"
	"vc/internal/diag"
	"vc/internal/lexer"
	"vc/internal/types"
)

func parse(t *testing.T, src string) (*ast.TranslationUnit, *diag.Bag) {
	t.Helper()
	toks, err := lexer.Tokenize(src, "t.c")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	diags := &diag.Bag{}
	return ParseTopLevel(toks, "t.c", diags), diags
}

func TestParseSimpleFunction(t *testing.T) {
	tu, diags := parse(t, "int f(int a){ return a+1; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if len(tu.Funcs) != 1 {
		t.Fatalf("got %d funcs, want 1", len(tu.Funcs))
	}
	fn := tu.Funcs[0]
	if fn.Name != "f" {
		t.Errorf("fn.Name = %q, want f", fn.Name)
	}
	if fn.IsPrototype {
		t.Errorf("fn.IsPrototype = true, want a definition")
	}
	if len(fn.ParamNames) != 1 || fn.ParamNames[0] != "a" {
		t.Errorf("fn.ParamNames = %v, want [a]", fn.ParamNames)
	}
	if len(fn.Body) != 1 || fn.Body[0].Kind != ast.SReturn {
		t.Fatalf("fn.Body = %+v, want one SReturn", fn.Body)
	}
	ret := fn.Body[0].Expr
	if ret == nil || ret.Kind != ast.EBinary || ret.Op != "+" {
		t.Fatalf("return expr = %+v, want a+1 binary", ret)
	}
}

func TestParsePrototype(t *testing.T) {
	tu, diags := parse(t, "int proto(int, int);")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if len(tu.Funcs) != 1 || !tu.Funcs[0].IsPrototype {
		t.Fatalf("expected one prototype, got %+v", tu.Funcs)
	}
}

func TestParseGlobalVarDecl(t *testing.T) {
	tu, diags := parse(t, "int counter = 0;")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if len(tu.Globals) != 1 {
		t.Fatalf("got %d globals, want 1", len(tu.Globals))
	}
	g := tu.Globals[0]
	if g.Kind != ast.SVarDecl || g.Name != "counter" {
		t.Fatalf("global = %+v, want SVarDecl counter", g)
	}
}

func TestParseStructTagReference(t *testing.T) {
	tu, diags := parse(t, `
struct Node { int val; struct Node *next; };
struct Node head;
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if len(tu.Globals) != 2 {
		t.Fatalf("got %d globals, want 2", len(tu.Globals))
	}
	decl, ref := tu.Globals[0], tu.Globals[1]
	if decl.Kind != ast.SStructDecl || len(decl.Members) != 2 {
		t.Fatalf("decl = %+v, want a 2-member struct decl", decl)
	}
	if ref.Kind != ast.SVarDecl || ref.DeclType == nil || ref.DeclType.Kind != types.STRUCT {
		t.Fatalf("ref = %+v, want a struct-typed var decl", ref)
	}
	if len(ref.DeclType.Members) != 2 {
		t.Errorf("bare struct reference resolved to %d members, want 2 (tag registry lookup)", len(ref.DeclType.Members))
	}
}

func TestParseIfElse(t *testing.T) {
	tu, diags := parse(t, "void f(int x){ if (x) { x = 1; } else { x = 2; } }")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	fn := tu.Funcs[0]
	if len(fn.Body) != 1 || fn.Body[0].Kind != ast.SIf {
		t.Fatalf("fn.Body = %+v, want one SIf", fn.Body)
	}
	ifStmt := fn.Body[0]
	if ifStmt.Then == nil || ifStmt.Else == nil {
		t.Fatalf("ifStmt = %+v, want both Then and Else", ifStmt)
	}
}

func TestParseVLADeclaration(t *testing.T) {
	tu, diags := parse(t, "void f(int n){ int buf[n]; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	fn := tu.Funcs[0]
	if len(fn.Body) != 1 || fn.Body[0].Kind != ast.SVarDecl {
		t.Fatalf("fn.Body = %+v, want one SVarDecl", fn.Body)
	}
	decl := fn.Body[0]
	if decl.SizeExpr == nil {
		t.Fatalf("decl.SizeExpr = nil, want the runtime size expression for buf[n]")
	}
	if decl.SizeExpr.Kind != ast.EIdent || decl.SizeExpr.Name != "n" {
		t.Errorf("decl.SizeExpr = %+v, want ident n", decl.SizeExpr)
	}
}

func TestParseUnexpectedTokenReportsDiagnostic(t *testing.T) {
	_, diags := parse(t, "int f(int a) { return }")
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for the malformed return statement")
	}
}
