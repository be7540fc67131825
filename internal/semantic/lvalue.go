package semantic

import (
	"vc/internal/ast"
	"vc/internal/ir"
	"vc/internal/symtable"
	"vc/internal/types"
)

// addrOf computes the address of an lvalue expression and the type stored
// there. An array-typed identifier decays to the address of its first
// element, matching ordinary array-to-pointer decay.
func (c *Checker) addrOf(e *ast.Expr) (ir.Value, *types.Type, bool) {
	switch {
	case e.Kind == ast.EIdent:
		sym, ok := c.Globals.Lookup(e.Name)
		if !ok {
			c.errorf(e.Line, e.Column, "%q undeclared", e.Name)
			return ir.Value{}, nil, false
		}
		v := c.B.EmitValue(ir.ADDR, 0, 0, 0, sym.IRName, nil, int(types.PTR))
		return v, sym.Type, true
	case e.Kind == ast.EUnary && e.Op == "*":
		xt, xv, ok := c.CheckExpr(e.X)
		if !ok || (xt.Kind != types.PTR && xt.Kind != types.ARRAY) {
			c.errorf(e.Line, e.Column, "cannot dereference a non-pointer value")
			return ir.Value{}, nil, false
		}
		return xv, xt.Elem, true
	case e.Kind == ast.EIndex:
		xt, xv, ok := c.CheckExpr(e.X)
		if !ok || (xt.Kind != types.PTR && xt.Kind != types.ARRAY) {
			c.errorf(e.Line, e.Column, "subscripted value is not an array or pointer")
			return ir.Value{}, nil, false
		}
		_, iv, ok := c.CheckExpr(e.Y)
		if !ok {
			return ir.Value{}, nil, false
		}
		sz, err := c.SizeOf(xt.Elem, c.Sess.PackAlignment)
		if err != nil {
			c.errorf(e.Line, e.Column, "%s", err)
			return ir.Value{}, nil, false
		}
		v := c.B.EmitValue(ir.PTR_ADD, xv.ID, iv.ID, sz, "", nil, int(types.PTR))
		return v, xt.Elem, true
	case e.Kind == ast.EMember:
		baseAddr, baseType, ok := c.memberBaseAddr(e)
		if !ok {
			return ir.Value{}, nil, false
		}
		_, members, err := c.layoutOf(baseType)
		if err != nil {
			c.errorf(e.Line, e.Column, "%s", err)
			return ir.Value{}, nil, false
		}
		for _, m := range members {
			if m.Name != e.Member {
				continue
			}
			v := c.B.EmitValue(ir.PTR_ADD, baseAddr.ID, 0, int64(m.Offset), "", nil, int(types.PTR))
			return v, m.Type, true
		}
		c.errorf(e.Line, e.Column, "no member named %q", e.Member)
		return ir.Value{}, nil, false
	}
	c.errorf(e.Line, e.Column, "expression is not assignable")
	return ir.Value{}, nil, false
}

// memberBaseAddr resolves the aggregate address a '.'/'->' member access is
// relative to: for '->' the base expression's pointer value itself; for
// '.' the address of the base lvalue.
func (c *Checker) memberBaseAddr(e *ast.Expr) (ir.Value, *types.Type, bool) {
	if e.Op == "->" {
		bt, bv, ok := c.CheckExpr(e.X)
		if !ok || bt.Kind != types.PTR {
			c.errorf(e.Line, e.Column, "the left operand of -> must be a pointer")
			return ir.Value{}, nil, false
		}
		return bv, bt.Elem, true
	}
	return c.addrOf(e.X)
}

// storeAt emits a store of v at addr, specialized by the target's type:
// STORE_PTR for scalars reached through a computed address.
func (c *Checker) storeAt(addr ir.Value, t *types.Type, v ir.Value, volatile bool) {
	op := ir.STORE_PTR
	if volatile {
		op = ir.STORE_PTR_RES
	}
	c.B.Emit(op, addr.ID, v.ID, 0, "", nil)
}

func (c *Checker) checkAssign(e *ast.Expr) (*types.Type, ir.Value, bool) {
	lt, rv, ok := c.checkAssignTarget(e)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	return lt, rv, true
}

func (c *Checker) checkAssignTarget(e *ast.Expr) (*types.Type, ir.Value, bool) {
	if e.X.Kind == ast.EIdent {
		sym, ok := c.Globals.Lookup(e.X.Name)
		if !ok {
			c.errorf(e.X.Line, e.X.Column, "%q undeclared", e.X.Name)
			return unknown(), ir.Value{}, false
		}
		rhs, ok2 := c.compoundOrPlain(e, sym.Type, func() (*types.Type, ir.Value, bool) { return c.checkIdent(e.X) })
		if !ok2 {
			return unknown(), ir.Value{}, false
		}
		if sym.IsParam {
			c.B.Emit(ir.STORE_PARAM, rhs.ID, 0, int64(sym.ParamIndex), sym.IRName, nil)
		} else {
			op := ir.STORE
			if sym.Storage.Has(symtable.Volatile) {
				op = ir.STORE_VOL
			}
			c.B.Emit(op, rhs.ID, 0, 0, sym.IRName, nil)
		}
		if sym.Type.Kind == types.UNION {
			sym.ActiveMember = ""
		}
		return sym.Type, rhs, true
	}
	addr, elemType, ok := c.addrOf(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	rhs, ok2 := c.compoundOrPlain(e, elemType, func() (*types.Type, ir.Value, bool) {
		v := c.B.EmitValue(ir.LOAD_PTR, addr.ID, 0, 0, "", nil, int(elemType.Kind))
		return elemType, v, true
	})
	if !ok2 {
		return unknown(), ir.Value{}, false
	}
	volatile := elemType.IsVolatile
	c.storeAt(addr, elemType, rhs, volatile)
	if e.X.Kind == ast.EMember {
		c.markActiveMember(e.X)
	}
	return elemType, rhs, true
}

// compoundOrPlain evaluates e.Y for a plain '=' or, for a compound
// assignment spelling ("+=" etc.), evaluates the binary op against the
// current lvalue value (fetched lazily via readCur, since plain '=' never
// needs it).
func (c *Checker) compoundOrPlain(e *ast.Expr, target *types.Type, readCur func() (*types.Type, ir.Value, bool)) (ir.Value, bool) {
	if e.Op == "=" {
		_, rv, ok := c.CheckExpr(e.Y)
		return rv, ok
	}
	curType, curVal, ok := readCur()
	if !ok {
		return ir.Value{}, false
	}
	op := compoundBinOp(e.Op)
	_, rv, ok := c.CheckExpr(e.Y)
	if !ok {
		return ir.Value{}, false
	}
	class := classifyBinary(curType.Kind, target.Kind)
	if class == classInt {
		iop, ok := intOp(op)
		if !ok {
			c.errorf(e.Line, e.Column, "unsupported compound-assignment operator %q", e.Op)
			return ir.Value{}, false
		}
		v := c.B.EmitValue(iop, curVal.ID, rv.ID, 0, "", nil, int(target.Kind))
		return v, true
	}
	c.errorf(e.Line, e.Column, "unsupported compound-assignment operand types")
	return ir.Value{}, false
}

func compoundBinOp(op string) string {
	if len(op) >= 2 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

func (c *Checker) markActiveMember(e *ast.Expr) {
	baseType := c.exprType(e.X)
	if e.Op == "->" && baseType != nil {
		baseType = baseType.Elem
	}
	if baseType == nil || baseType.Kind != types.UNION {
		return
	}
	// Union active-member tracking is advisory only: the symbol table entry
	// for the base variable (if it is a plain identifier) records the
	// member name last stored through, per spec.md §9's recommended
	// behavior; nested/indirect bases are not tracked.
	if e.X.Kind == ast.EIdent {
		if sym, ok := c.Globals.Lookup(e.X.Name); ok {
			sym.ActiveMember = e.Member
		}
	}
}

// exprType performs a type-only lookup without emitting IR, used by
// markActiveMember which only needs to know whether a base is a union.
func (c *Checker) exprType(e *ast.Expr) *types.Type {
	if e.Kind == ast.EIdent {
		if sym, ok := c.Globals.Lookup(e.Name); ok {
			return sym.Type
		}
	}
	return nil
}

func (c *Checker) lvalueAddr(e *ast.Expr) (*types.Type, ir.Value, bool) {
	v, t, ok := c.addrOf(e)
	return types.Ptr(t), v, ok
}
