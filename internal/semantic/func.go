package semantic

import (
	"vc/internal/ast"
	"vc/internal/symtable"
	"vc/internal/types"
)

// CheckTranslationUnit checks every global declaration and function in
// source order, matching spec.md §6's file-scope checking pass: globals
// first within a single declaration are visible to functions declared
// later in the same file, and forward-declared functions are resolved
// against their eventual definition regardless of order within the unit.
func (c *Checker) CheckTranslationUnit(tu *ast.TranslationUnit) bool {
	ok := true
	for _, g := range tu.Globals {
		if !c.CheckGlobal(g) {
			ok = false
		}
	}
	for _, fn := range tu.Funcs {
		if !c.CheckFunc(fn) {
			ok = false
		}
	}
	return ok
}

// CheckGlobal is the check_global entry point of spec.md §6: it checks one
// file-scope declaration (a global variable, typedef, struct/union/enum
// tag, or _Static_assert) against the given global table, emitting into b
// through the Checker the same way CheckFunc does for a function body.
func (c *Checker) CheckGlobal(stmt *ast.Stmt) bool {
	return c.CheckStmt(stmt, loopLabels{}, true)
}

func paramTypeList(params []*ast.Type) []*types.Type {
	out := make([]*types.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// funcsCompatible reports whether a new declaration of a function matches
// a prior one: same return type, same parameter count/types, same
// variadic flag. spec.md §4.4 treats a mismatch as an error regardless of
// which of the two is the definition.
func funcsCompatible(existing *symtable.Symbol, fn *ast.Func, newParams []*types.Type) bool {
	if existing.FuncRetType == nil || fn.ReturnType == nil {
		return true
	}
	if existing.FuncRetType.Kind != fn.ReturnType.Type.Kind {
		return false
	}
	if existing.IsVariadic != fn.IsVariadic {
		return false
	}
	if len(existing.FuncParamTypes) != len(newParams) {
		return false
	}
	for i, pt := range existing.FuncParamTypes {
		if pt.Kind != newParams[i].Kind {
			return false
		}
	}
	return true
}

// CheckFunc implements spec.md §4.4's check_func: prototype/definition
// matching, scope push, parameter insertion, reachability-tracked body
// checking, and FUNC_BEGIN/FUNC_END emission with the automatic-storage
// byte count back-patched once the body is fully checked.
func (c *Checker) CheckFunc(fn *ast.Func) bool {
	paramTypes := paramTypeList(fn.ParamTypes)
	retType := fn.ReturnType.Type

	if existing, ok := c.Funcs.Lookup(fn.Name); ok {
		if !funcsCompatible(existing, fn, paramTypes) {
			c.errorf(fn.Line, fn.Column, "conflicting types for %q", fn.Name)
			return false
		}
		if !existing.IsPrototype && !fn.IsPrototype {
			c.errorf(fn.Line, fn.Column, "redefinition of %q", fn.Name)
			return false
		}
	}

	sym := &symtable.Symbol{
		Name: fn.Name, IRName: fn.Name, Type: types.Ptr(retType),
		IsFunc: true, FuncRetType: retType, FuncParamTypes: paramTypes,
		IsVariadic: fn.IsVariadic, IsPrototype: fn.IsPrototype,
		IsInline: fn.IsInline, IsNoreturn: fn.IsNoreturn,
	}
	c.Funcs.DeclareGlobal(sym)

	if fn.IsPrototype {
		return true
	}

	if fn.IsInline {
		if c.Sess.InlineEmitted == nil {
			c.Sess.InlineEmitted = map[string]bool{}
		}
		if c.Sess.InlineEmitted[fn.Name] {
			return true
		}
		c.Sess.InlineEmitted[fn.Name] = true
	}

	c.curFunc = fn
	c.retType = retType
	c.retTag = fn.ReturnTag
	c.autoBytes = 0
	c.staticLocalCount = 0
	c.vlaCount = 0
	c.labels = map[string]string{}
	c.defined = map[string]bool{}
	c.pending = map[string]int{}
	c.Sess.Labels = nil // fresh label numbering per function

	c.Globals.PushScope()
	begin := c.B.FuncBegin(fn.Name)

	retIsAgg := retType.Kind == types.STRUCT || retType.Kind == types.UNION
	paramBase := 0
	if retIsAgg {
		c.Globals.Declare(&symtable.Symbol{
			Name: "__ret_buf", IRName: "__ret_buf", Type: types.Ptr(retType),
			IsParam: true, ParamIndex: 0,
		})
		paramBase = 1
	}
	for i, pname := range fn.ParamNames {
		if pname == "" {
			continue
		}
		c.Globals.Declare(&symtable.Symbol{
			Name: pname, IRName: pname, Type: paramTypes[i],
			IsParam: true, ParamIndex: i + paramBase,
		})
	}

	ok := true
	reachable := true
	for _, st := range fn.Body {
		if !c.CheckStmt(st, loopLabels{}, reachable) {
			ok = false
		}
		if st.Kind == ast.SLabel {
			reachable = true
		} else if endsControlFlow(st) {
			reachable = false
		}
	}

	for label, line := range c.pending {
		if !c.defined[label] {
			c.errorf(line, 0, "use of undeclared label %q", label)
			ok = false
		}
	}

	c.Globals.PopScope()
	begin.Imm = int64(c.autoBytes)
	c.B.FuncEnd(fn.Name)

	c.curFunc = nil
	c.retType = nil
	c.retTag = ""
	return ok
}
