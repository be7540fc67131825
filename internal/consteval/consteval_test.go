package consteval

import (
	"math"
	"testing"

	"vc/internal/ast"
)

func num(n int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ENumber, IntVal: uint64(n)}
}

func bin(op string, x, y *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.EBinary, Op: op, X: x, Y: y}
}

type mapLookup map[string]int64

func (m mapLookup) LookupConst(name string) (int64, bool) {
	v, ok := m[name]
	return v, ok
}

func TestEvalArithmetic(t *testing.T) {
	// (2 + 3) * 4 - 1 == 19
	e := bin("-", bin("*", bin("+", num(2), num(3)), num(4)), num(1))
	got, err := Eval(e, Env{})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 19 {
		t.Errorf("got %d, want 19", got)
	}
}

func TestEvalIdentLookup(t *testing.T) {
	e := bin("+", &ast.Expr{Kind: ast.EIdent, Name: "FOO"}, num(1))
	got, err := Eval(e, Env{Lookup: mapLookup{"FOO": 41}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestEvalUndeclaredIdentFails(t *testing.T) {
	e := &ast.Expr{Kind: ast.EIdent, Name: "BAR"}
	if _, err := Eval(e, Env{Lookup: mapLookup{}}); err == nil {
		t.Fatal("expected an error for an undeclared identifier")
	}
}

func TestEvalAdditionOverflow(t *testing.T) {
	e := bin("+", num(math.MaxInt64), num(1))
	if _, err := Eval(e, Env{}); err == nil {
		t.Fatal("expected overflow error, got nil")
	}
}

func TestEvalMultiplicationOverflow(t *testing.T) {
	e := bin("*", num(math.MaxInt64), num(2))
	if _, err := Eval(e, Env{}); err == nil {
		t.Fatal("expected overflow error, got nil")
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	e := bin("/", num(1), num(0))
	if _, err := Eval(e, Env{}); err == nil {
		t.Fatal("expected division-by-zero error, got nil")
	}
}

func TestEvalIntMinDivNegOne(t *testing.T) {
	e := bin("/", num(math.MinInt64), num(-1))
	if _, err := Eval(e, Env{}); err == nil {
		t.Fatal("expected overflow error for INT_MIN / -1, got nil")
	}
}

func TestEvalConditional(t *testing.T) {
	e := &ast.Expr{Kind: ast.ECond, Cond: num(0), Then: num(1), Else: num(2)}
	got, err := Eval(e, Env{})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestEvalShortCircuitAnd(t *testing.T) {
	// 0 && (1/0) must not evaluate the right side.
	e := bin("&&", num(0), bin("/", num(1), num(0)))
	got, err := Eval(e, Env{})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestEvalRoundTripFitsInType(t *testing.T) {
	// spec.md §8 invariant 6: a literal that fits round-trips unchanged.
	for _, n := range []int64{0, 1, -1, 1000000, math.MaxInt32} {
		got, err := Eval(num(n), Env{})
		if err != nil {
			t.Fatalf("Eval(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("Eval(%d) = %d, want round-trip", n, got)
		}
	}
}
