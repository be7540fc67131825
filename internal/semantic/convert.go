package semantic

import (
	"vc/internal/ast"
	"vc/internal/consteval"
	"vc/internal/symtable"
	"vc/internal/types"
)

// enumLookup adapts the Checker's symbol table to consteval.Lookup, so
// #if-style folding and enum-constant references inside ordinary constant
// expressions (array sizes, case labels, bit-field widths) share one
// evaluator.
type enumLookup struct{ t *symtable.Table }

func (l enumLookup) LookupConst(name string) (int64, bool) {
	sym, ok := l.t.Lookup(name)
	if !ok || !sym.IsEnumConst {
		return 0, false
	}
	return sym.EnumValue, true
}

func (c *Checker) constEval(e *ast.Expr) (int64, error) {
	env := consteval.Env{
		Lookup:   enumLookup{c.Globals},
		Sizeof:   func(t *ast.Type) (int64, error) { return c.SizeOf(t.Type, c.Sess.PackAlignment) },
		Offsetof: c.offsetof,
	}
	return consteval.Eval(e, env)
}

func (c *Checker) offsetof(t *ast.Type, path string) (int64, error) {
	return offsetofPath(c, t.Type, path)
}

func offsetofPath(c *Checker, t *types.Type, path string) (int64, error) {
	name, rest := splitMemberPath(path)
	_, members, err := c.layoutOf(t)
	if err != nil {
		return 0, err
	}
	for _, m := range members {
		if m.Name == name {
			if rest == "" {
				return int64(m.Offset), nil
			}
			inner, err := offsetofPath(c, m.Type, rest)
			if err != nil {
				return 0, err
			}
			return int64(m.Offset) + inner, nil
		}
	}
	return 0, &offsetofError{member: name}
}

func splitMemberPath(path string) (head, rest string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}

func (c *Checker) layoutOf(t *types.Type) (int, []types.Member, error) {
	t = c.resolveTag(t)
	pack := c.packFor(false)
	switch t.Kind {
	case types.STRUCT:
		return c.layoutStruct(t, pack)
	case types.UNION:
		return c.layoutUnion(t, pack)
	}
	return 0, nil, &offsetofError{member: "<non-aggregate>"}
}

type offsetofError struct{ member string }

func (e *offsetofError) Error() string { return "no member named " + e.member }

// classify reports the conversion-rule category of spec.md §4.4's types
// section for a binary/assignment operand pair: both int-like, both
// float-like, both complex of matching width, pointer+int, or two
// pointers.
type opClass int

const (
	classInvalid opClass = iota
	classInt
	classFloat
	classComplex
	classPtrInt
	classPtrPtr
)

func classifyBinary(lk, rk types.Kind) opClass {
	switch {
	case types.IsIntLike(lk) && types.IsIntLike(rk):
		return classInt
	case types.IsFloatLike(lk) && types.IsFloatLike(rk):
		return classFloat
	case types.IsComplex(lk) && types.IsComplex(rk):
		return classComplex
	case lk == types.PTR && types.IsIntLike(rk):
		return classPtrInt
	case types.IsIntLike(lk) && rk == types.PTR:
		return classPtrInt
	case lk == types.PTR && rk == types.PTR:
		return classPtrPtr
	case lk == types.ARRAY && types.IsIntLike(rk):
		return classPtrInt
	case types.IsIntLike(lk) && rk == types.ARRAY:
		return classPtrInt
	}
	return classInvalid
}

// widenInt reports whether width widening to 64-bit applies: spec.md §4.4
// widens to LLONG/ULLONG when either operand is already a 64-bit-or-wider
// integer kind.
func widenInt(lk, rk types.Kind) bool {
	return types.IsWide64(lk) || types.IsWide64(rk)
}

func resultUnsigned(lk, rk types.Kind) bool {
	return types.IsUnsigned(lk) || types.IsUnsigned(rk)
}

// canCast reports whether a cast between from and to is permitted: any
// int-like/pointer pair, any int/float pair, matching-width complex pairs.
func canCast(from, to types.Kind) bool {
	intOrPtr := func(k types.Kind) bool { return types.IsIntLike(k) || k == types.PTR || k == types.ARRAY }
	switch {
	case intOrPtr(from) && intOrPtr(to):
		return true
	case (types.IsIntLike(from) || types.IsFloatLike(from)) && (types.IsIntLike(to) || types.IsFloatLike(to)):
		return true
	case types.IsComplex(from) && types.IsComplex(to):
		return true
	case to == types.VOID:
		return true
	}
	return false
}
