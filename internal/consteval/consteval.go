// Package consteval implements the pure integer-constant-expression
// evaluator of spec.md §4.4: array sizes, case labels, _Static_assert,
// #if/#elif, enum values, bit-field widths, and _Alignas arguments all
// funnel through here. Overflow in +, -, *, or INT_MIN / -1 is a hard
// error, never a silent wrap, per the __builtin_add_overflow-style design
// note in spec.md §9. The overflow checks are hand-written int64 tests;
// modernc.org/mathutil supplies only the 32-bit bounds FitsInt compares
// against.
package consteval

import (
	"fmt"
	"math"

	"modernc.org/mathutil"
	"vc/internal/ast"
	"vc/internal/symtable"
)

// Lookup resolves an identifier to its constant integer value: enum
// constants during normal evaluation, and `defined(X)` state during
// #if/#elif evaluation (spec.md §4.1).
type Lookup interface {
	LookupConst(name string) (int64, bool)
}

type tableLookup struct{ t *symtable.Table }

func (l tableLookup) LookupConst(name string) (int64, bool) {
	sym, ok := l.t.Lookup(name)
	if !ok || !sym.IsEnumConst {
		return 0, false
	}
	return sym.EnumValue, true
}

func FromSymtable(t *symtable.Table) Lookup { return tableLookup{t} }

// SizeofFn resolves a type-name's byte size for sizeof(type) and the
// offsetof(type, member) member-offset table; internal/semantic supplies
// concrete implementations since layout depends on #pragma pack state.
type SizeofFn func(t *ast.Type) (int64, error)
type OffsetofFn func(t *ast.Type, path string) (int64, error)

// Env threads the lookup tables an evaluation needs without resorting to
// package-level globals.
type Env struct {
	Lookup   Lookup
	Sizeof   SizeofFn
	Offsetof OffsetofFn
}

// Eval evaluates an integer constant expression, returning a hard error on
// overflow, division by zero, an undeclared identifier, or a non-constant
// subexpression (spec.md §7's "Overflow" and "Semantic" error kinds).
func Eval(e *ast.Expr, env Env) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("nil constant expression")
	}
	switch e.Kind {
	case ast.ENumber:
		if e.IsFloat || e.IsImaginary {
			return 0, fmt.Errorf("line %d: floating constant is not an integer constant expression", e.Line)
		}
		return int64(e.IntVal), nil
	case ast.EChar:
		if len(e.StrVal) == 0 {
			return 0, nil
		}
		return int64(e.StrVal[0]), nil
	case ast.EIdent:
		if v, ok := env.Lookup.LookupConst(e.Name); ok {
			return v, nil
		}
		return 0, fmt.Errorf("line %d: %q is not a constant expression", e.Line, e.Name)
	case ast.ECond:
		c, err := Eval(e.Cond, env)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return Eval(e.Then, env)
		}
		return Eval(e.Else, env)
	case ast.EUnary:
		x, err := Eval(e.X, env)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case "-":
			return checkedNeg(x, e.Line)
		case "!":
			return boolToInt(x == 0), nil
		case "~":
			return ^x, nil
		case "+":
			return x, nil
		}
		return 0, fmt.Errorf("line %d: %q is not a valid constant unary operator", e.Line, e.Op)
	case ast.ECast:
		x, err := Eval(e.X, env)
		if err != nil {
			return 0, err
		}
		return x, nil // casts between int-like kinds are value-preserving truncations; codegen narrows, not this evaluator
	case ast.ESizeofType:
		if env.Sizeof == nil {
			return 0, fmt.Errorf("line %d: sizeof(type) requires a type environment", e.Line)
		}
		return env.Sizeof(e.OperandType)
	case ast.ESizeofExpr:
		return 0, fmt.Errorf("line %d: sizeof(expr) is not foldable at this stage", e.Line)
	case ast.EOffsetof:
		if env.Offsetof == nil {
			return 0, fmt.Errorf("line %d: offsetof requires a type environment", e.Line)
		}
		return env.Offsetof(e.OperandType, e.OffsetofPath)
	case ast.EBinary:
		return evalBinary(e, env)
	}
	return 0, fmt.Errorf("line %d: not a constant expression", e.Line)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func evalBinary(e *ast.Expr, env Env) (int64, error) {
	x, err := Eval(e.X, env)
	if err != nil {
		return 0, err
	}
	// Short-circuit && / || without requiring the other side to fold when
	// it can't affect the result, matching C's own evaluation rules.
	switch e.Op {
	case "&&":
		if x == 0 {
			return 0, nil
		}
		y, err := Eval(e.Y, env)
		if err != nil {
			return 0, err
		}
		return boolToInt(y != 0), nil
	case "||":
		if x != 0 {
			return 1, nil
		}
		y, err := Eval(e.Y, env)
		if err != nil {
			return 0, err
		}
		return boolToInt(y != 0), nil
	}
	y, err := Eval(e.Y, env)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case "+":
		return checkedAdd(x, y, e.Line)
	case "-":
		return checkedSub(x, y, e.Line)
	case "*":
		return checkedMul(x, y, e.Line)
	case "/":
		if y == 0 {
			return 0, fmt.Errorf("line %d: division by zero in constant expression", e.Line)
		}
		if x == math.MinInt64 && y == -1 {
			return 0, fmt.Errorf("line %d: constant expression overflow (INT_MIN / -1)", e.Line)
		}
		return x / y, nil
	case "%":
		if y == 0 {
			return 0, fmt.Errorf("line %d: modulo by zero in constant expression", e.Line)
		}
		return x % y, nil
	case "<<":
		return x << uint(y), nil
	case ">>":
		return x >> uint(y), nil
	case "&":
		return x & y, nil
	case "|":
		return x | y, nil
	case "^":
		return x ^ y, nil
	case "==":
		return boolToInt(x == y), nil
	case "!=":
		return boolToInt(x != y), nil
	case "<":
		return boolToInt(x < y), nil
	case ">":
		return boolToInt(x > y), nil
	case "<=":
		return boolToInt(x <= y), nil
	case ">=":
		return boolToInt(x >= y), nil
	}
	return 0, fmt.Errorf("line %d: %q is not a valid constant binary operator", e.Line, e.Op)
}

// checkedAdd/Sub/Mul/Neg mirror __builtin_{add,sub,mul}_overflow semantics:
// detect overflow against int64 (the widest integer kind this evaluator
// ever folds to) and fail hard rather than wrap, per spec.md §4.4 and §9.
func checkedAdd(a, b int64, line int) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, fmt.Errorf("line %d: constant expression overflow in addition", line)
	}
	return r, nil
}

func checkedSub(a, b int64, line int) (int64, error) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, fmt.Errorf("line %d: constant expression overflow in subtraction", line)
	}
	return r, nil
}

func checkedMul(a, b int64, line int) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a == math.MinInt64 && b == -1 {
		return 0, fmt.Errorf("line %d: constant expression overflow in multiplication", line)
	}
	r := a * b
	if r/b != a {
		return 0, fmt.Errorf("line %d: constant expression overflow in multiplication", line)
	}
	return r, nil
}

func checkedNeg(a int64, line int) (int64, error) {
	if a == math.MinInt64 {
		return 0, fmt.Errorf("line %d: constant expression overflow in negation", line)
	}
	return -a, nil
}

// FitsInt reports whether a folded constant fits a plain 32-bit `int`, the
// boundary spec.md §8 invariant 6 cares about ("for any literal integer n
// fitting in the chosen type"). mathutil.MaxInt32/MinInt32 are the same
// bound constants cznic/cc's own constant folder checks against.
func FitsInt(v int64) bool {
	return v >= int64(mathutil.MinInt32) && v <= int64(mathutil.MaxInt32)
}
