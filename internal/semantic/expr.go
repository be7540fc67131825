package semantic

import (
	"vc/internal/ast"
	"vc/internal/ir"
	"vc/internal/symtable"
	"vc/internal/types"
)

// CheckExpr is the check_expr dispatcher of spec.md §4.4: it returns the
// inferred type (UNKNOWN on failure) and the IR value id carrying the
// result, so callers that only need the type (array bounds, case labels
// already folded by consteval) can ignore the value.
func (c *Checker) CheckExpr(e *ast.Expr) (*types.Type, ir.Value, bool) {
	if e == nil {
		return unknown(), ir.Value{}, false
	}
	c.B.SetPos(c.File, e.Line, e.Column)
	switch e.Kind {
	case ast.ENumber:
		return c.checkNumber(e)
	case ast.EChar:
		v := c.B.EmitValue(ir.CONST, 0, 0, int64(firstByte(e.StrVal)), "", nil, int(types.CHAR))
		return types.Basic(types.CHAR), v, true
	case ast.EString:
		v := c.B.EmitValue(ir.GLOB_STRING, 0, 0, 0, "", e.StrVal, int(types.PTR))
		return types.Ptr(types.Basic(types.CHAR)), v, true
	case ast.EIdent:
		return c.checkIdent(e)
	case ast.EUnary:
		return c.checkUnary(e)
	case ast.EBinary:
		return c.checkBinary(e)
	case ast.EAssign:
		return c.checkAssign(e)
	case ast.ECond:
		return c.checkCond(e)
	case ast.ECall:
		return c.checkCall(e)
	case ast.EIndex:
		return c.checkIndex(e)
	case ast.EMember:
		return c.checkMember(e)
	case ast.ECast:
		return c.checkCast(e)
	case ast.ESizeofType:
		return c.checkSizeofType(e)
	case ast.ESizeofExpr:
		return c.checkSizeofExpr(e)
	case ast.EOffsetof:
		return c.checkOffsetof(e)
	case ast.ECompoundLiteral:
		return c.checkCompoundLiteral(e)
	}
	c.errorf(e.Line, e.Column, "unsupported expression")
	return unknown(), ir.Value{}, false
}

func unknown() *types.Type { return &types.Type{Kind: types.UNKNOWN} }

func firstByte(s string) byte {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

func (c *Checker) checkNumber(e *ast.Expr) (*types.Type, ir.Value, bool) {
	if e.IsFloat {
		t := types.Basic(types.DOUBLE)
		v := c.B.EmitValue(ir.CONST, 0, 0, int64(e.FloatVal), "", e.FloatVal, int(types.DOUBLE))
		return t, v, true
	}
	kind := types.INT
	switch {
	case e.IsUnsigned && e.LongCount >= 2:
		kind = types.ULLONG
	case e.LongCount >= 2:
		kind = types.LLONG
	case e.IsUnsigned && e.LongCount == 1:
		kind = types.ULONG
	case e.LongCount == 1:
		kind = types.LONG
	case e.IsUnsigned:
		kind = types.UINT
	}
	v := c.B.EmitValue(ir.CONST, 0, 0, int64(e.IntVal), "", nil, int(kind))
	return types.Basic(kind), v, true
}

func (c *Checker) checkIdent(e *ast.Expr) (*types.Type, ir.Value, bool) {
	sym, ok := c.Globals.Lookup(e.Name)
	if !ok {
		if fsym, fok := c.Funcs.Lookup(e.Name); fok {
			v := c.B.EmitValue(ir.GLOB_ADDR, 0, 0, 0, fsym.IRName, nil, int(types.PTR))
			return types.Ptr(&types.Type{Kind: types.INT}), v, true
		}
		c.errorf(e.Line, e.Column, "%q undeclared", e.Name)
		return unknown(), ir.Value{}, false
	}
	if sym.IsEnumConst {
		v := c.B.EmitValue(ir.CONST, 0, 0, sym.EnumValue, "", nil, int(types.INT))
		return types.Basic(types.INT), v, true
	}
	if sym.IsParam {
		v := c.B.EmitValue(ir.LOAD_PARAM, 0, 0, int64(sym.ParamIndex), sym.IRName, nil, int(sym.Type.Kind))
		return sym.Type, v, true
	}
	op := ir.LOAD
	if sym.Storage.Has(symtable.Volatile) {
		op = ir.LOAD_VOL
	}
	v := c.B.EmitValue(op, 0, 0, 0, sym.IRName, nil, int(sym.Type.Kind))
	return sym.Type, v, true
}

func (c *Checker) checkUnary(e *ast.Expr) (*types.Type, ir.Value, bool) {
	switch e.Op {
	case "&":
		return c.checkAddrOf(e.X)
	case "*":
		return c.checkDeref(e)
	case "++", "--", "post++", "post--":
		return c.checkIncDec(e)
	}
	xt, xv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	switch e.Op {
	case "-":
		if types.IsFloatLike(xt.Kind) {
			v := c.B.EmitValue(negOpFloat(xt.Kind), xv.ID, 0, 0, "", nil, int(xt.Kind))
			return xt, v, true
		}
		zero := c.B.EmitValue(ir.CONST, 0, 0, 0, "", nil, int(xt.Kind))
		v := c.B.EmitValue(ir.SUB, zero.ID, xv.ID, 0, "", nil, int(xt.Kind))
		return xt, v, true
	case "+":
		return xt, xv, true
	case "~":
		v := c.B.EmitValue(ir.XOR, xv.ID, 0, -1, "", nil, int(xt.Kind))
		return xt, v, true
	case "!":
		zero := c.B.EmitValue(ir.CONST, 0, 0, 0, "", nil, int(xt.Kind))
		v := c.B.EmitValue(ir.CMPEQ, xv.ID, zero.ID, 0, "", nil, int(types.INT))
		return types.Basic(types.INT), v, true
	}
	c.errorf(e.Line, e.Column, "unsupported unary operator %q", e.Op)
	return unknown(), ir.Value{}, false
}

func negOpFloat(k types.Kind) ir.Op {
	if k == types.FLOAT {
		return ir.FSUB
	}
	return ir.LFSUB
}

// checkAddrOf produces the address of an lvalue: ADDR for a named variable,
// the base value itself for a pointer/array already holding an address
// (deref, index, member).
func (c *Checker) checkAddrOf(x *ast.Expr) (*types.Type, ir.Value, bool) {
	switch x.Kind {
	case ast.EIdent:
		sym, ok := c.Globals.Lookup(x.Name)
		if !ok {
			c.errorf(x.Line, x.Column, "%q undeclared", x.Name)
			return unknown(), ir.Value{}, false
		}
		v := c.B.EmitValue(ir.ADDR, 0, 0, 0, sym.IRName, nil, int(types.PTR))
		return types.Ptr(sym.Type), v, true
	default:
		return c.lvalueAddr(x)
	}
}

func (c *Checker) checkDeref(e *ast.Expr) (*types.Type, ir.Value, bool) {
	xt, xv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	if xt.Kind != types.PTR && xt.Kind != types.ARRAY {
		c.errorf(e.Line, e.Column, "cannot dereference a non-pointer value")
		return unknown(), ir.Value{}, false
	}
	v := c.B.EmitValue(ir.LOAD_PTR, xv.ID, 0, 0, "", nil, int(xt.Elem.Kind))
	return xt.Elem, v, true
}

func (c *Checker) checkIncDec(e *ast.Expr) (*types.Type, ir.Value, bool) {
	xt, xv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	delta := int64(1)
	if e.Op == "--" || e.Op == "post--" {
		delta = -1
	}
	step := delta
	if xt.Kind == types.PTR {
		sz, err := c.SizeOf(xt.Elem, c.Sess.PackAlignment)
		if err != nil {
			c.errorf(e.Line, e.Column, "%s", err)
			return unknown(), ir.Value{}, false
		}
		step = delta * sz
	}
	op := ir.ADD
	if delta < 0 {
		op = ir.SUB
		step = -step
	}
	newVal := c.B.EmitValue(op, xv.ID, 0, step, "", nil, int(xt.Kind))
	if !c.storeScalar(e.X, xt, newVal) {
		return unknown(), ir.Value{}, false
	}
	if e.Op == "post++" || e.Op == "post--" {
		return xt, xv, true
	}
	return xt, newVal, true
}

// storeScalar writes val back to the lvalue target, an identifier (direct
// STORE/STORE_PARAM) or a computed address (STORE_PTR): the common tail
// shared by ++/-- and is reused nowhere else, since plain assignment has
// its own slightly richer checkAssignTarget.
func (c *Checker) storeScalar(target *ast.Expr, t *types.Type, val ir.Value) bool {
	if target.Kind == ast.EIdent {
		sym, ok := c.Globals.Lookup(target.Name)
		if !ok {
			c.errorf(target.Line, target.Column, "%q undeclared", target.Name)
			return false
		}
		if sym.IsParam {
			c.B.Emit(ir.STORE_PARAM, val.ID, 0, int64(sym.ParamIndex), sym.IRName, nil)
			return true
		}
		op := ir.STORE
		if sym.Storage.Has(symtable.Volatile) {
			op = ir.STORE_VOL
		}
		c.B.Emit(op, val.ID, 0, 0, sym.IRName, nil)
		return true
	}
	addr, elemType, ok := c.addrOf(target)
	if !ok {
		return false
	}
	c.storeAt(addr, elemType, val, t.IsVolatile)
	return true
}

func (c *Checker) checkBinary(e *ast.Expr) (*types.Type, ir.Value, bool) {
	if e.Op == "&&" || e.Op == "||" {
		return c.checkShortCircuit(e)
	}
	if e.Op == "," {
		c.CheckExpr(e.X)
		return c.CheckExpr(e.Y)
	}
	lt, lv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	rt, rv, ok := c.CheckExpr(e.Y)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	class := classifyBinary(lt.Kind, rt.Kind)
	switch class {
	case classPtrInt:
		return c.checkPtrArith(e, lt, lv, rt, rv)
	case classPtrPtr:
		return c.checkPtrPtr(e, lt, lv, rt, rv)
	case classInvalid:
		c.errorf(e.Line, e.Column, "invalid operands to binary %q", e.Op)
		return unknown(), ir.Value{}, false
	}
	if isCompare(e.Op) {
		op := compareOp(e.Op)
		v := c.B.EmitValue(op, lv.ID, rv.ID, 0, "", nil, int(types.INT))
		return types.Basic(types.INT), v, true
	}
	resultKind := lt.Kind
	if class == classInt {
		if widenInt(lt.Kind, rt.Kind) {
			if resultUnsigned(lt.Kind, rt.Kind) {
				resultKind = types.ULLONG
			} else {
				resultKind = types.LLONG
			}
		} else if resultUnsigned(lt.Kind, rt.Kind) {
			resultKind = types.UINT
		} else {
			resultKind = types.INT
		}
		op, ok := intOp(e.Op)
		if !ok {
			c.errorf(e.Line, e.Column, "unsupported binary operator %q", e.Op)
			return unknown(), ir.Value{}, false
		}
		v := c.B.EmitValue(op, lv.ID, rv.ID, 0, "", nil, int(resultKind))
		return types.Basic(resultKind), v, true
	}
	// classFloat / classComplex: width selects F*/LF* (or CPLX_*) ops.
	if class == classComplex {
		op, ok := complexOp(e.Op)
		if !ok {
			c.errorf(e.Line, e.Column, "unsupported complex binary operator %q", e.Op)
			return unknown(), ir.Value{}, false
		}
		resultKind = widerFloat(lt.Kind, rt.Kind)
		v := c.B.EmitValue(op, lv.ID, rv.ID, 0, "", nil, int(resultKind))
		return types.Basic(resultKind), v, true
	}
	resultKind = widerFloat(lt.Kind, rt.Kind)
	op, ok := floatOp(e.Op, resultKind)
	if !ok {
		c.errorf(e.Line, e.Column, "unsupported binary operator %q", e.Op)
		return unknown(), ir.Value{}, false
	}
	v := c.B.EmitValue(op, lv.ID, rv.ID, 0, "", nil, int(resultKind))
	return types.Basic(resultKind), v, true
}

func widerFloat(a, b types.Kind) types.Kind {
	if a == types.LDOUBLE || b == types.LDOUBLE {
		return types.LDOUBLE
	}
	if a == types.DOUBLE || b == types.DOUBLE {
		return types.DOUBLE
	}
	return types.FLOAT
}

func isCompare(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func compareOp(op string) ir.Op {
	switch op {
	case "==":
		return ir.CMPEQ
	case "!=":
		return ir.CMPNE
	case "<":
		return ir.CMPLT
	case ">":
		return ir.CMPGT
	case "<=":
		return ir.CMPLE
	case ">=":
		return ir.CMPGE
	}
	return ir.CMPEQ
}

func intOp(op string) (ir.Op, bool) {
	switch op {
	case "+":
		return ir.ADD, true
	case "-":
		return ir.SUB, true
	case "*":
		return ir.MUL, true
	case "/":
		return ir.DIV, true
	case "%":
		return ir.MOD, true
	case "<<":
		return ir.SHL, true
	case ">>":
		return ir.SHR, true
	case "&":
		return ir.AND, true
	case "|":
		return ir.OR, true
	case "^":
		return ir.XOR, true
	}
	return 0, false
}

func floatOp(op string, k types.Kind) (ir.Op, bool) {
	wide := k != types.FLOAT
	switch op {
	case "+":
		if wide {
			return ir.LFADD, true
		}
		return ir.FADD, true
	case "-":
		if wide {
			return ir.LFSUB, true
		}
		return ir.FSUB, true
	case "*":
		if wide {
			return ir.LFMUL, true
		}
		return ir.FMUL, true
	case "/":
		if wide {
			return ir.LFDIV, true
		}
		return ir.FDIV, true
	}
	return 0, false
}

func complexOp(op string) (ir.Op, bool) {
	switch op {
	case "+":
		return ir.CPLX_ADD, true
	case "-":
		return ir.CPLX_SUB, true
	case "*":
		return ir.CPLX_MUL, true
	case "/":
		return ir.CPLX_DIV, true
	}
	return 0, false
}

func (c *Checker) checkPtrArith(e *ast.Expr, lt *types.Type, lv ir.Value, rt *types.Type, rv ir.Value) (*types.Type, ir.Value, bool) {
	ptrType, ptrVal, idxVal := lt, lv, rv
	if !(lt.Kind == types.PTR || lt.Kind == types.ARRAY) {
		ptrType, ptrVal, idxVal = rt, rv, lv
	}
	elem := ptrType.Elem
	sz, err := c.SizeOf(elem, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	switch e.Op {
	case "+":
		v := c.B.EmitValue(ir.PTR_ADD, ptrVal.ID, idxVal.ID, sz, "", nil, int(types.PTR))
		return types.Ptr(elem), v, true
	case "-":
		if ptrVal.ID != lv.ID {
			c.errorf(e.Line, e.Column, "cannot subtract a pointer from an integer")
			return unknown(), ir.Value{}, false
		}
		neg := c.B.EmitValue(ir.SUB, 0, idxVal.ID, 0, "", nil, int(types.INT))
		v := c.B.EmitValue(ir.PTR_ADD, ptrVal.ID, neg.ID, sz, "", nil, int(types.PTR))
		return types.Ptr(elem), v, true
	}
	c.errorf(e.Line, e.Column, "invalid pointer arithmetic operator %q", e.Op)
	return unknown(), ir.Value{}, false
}

func (c *Checker) checkPtrPtr(e *ast.Expr, lt *types.Type, lv ir.Value, rt *types.Type, rv ir.Value) (*types.Type, ir.Value, bool) {
	if isCompare(e.Op) {
		v := c.B.EmitValue(compareOp(e.Op), lv.ID, rv.ID, 0, "", nil, int(types.INT))
		return types.Basic(types.INT), v, true
	}
	if e.Op != "-" {
		c.errorf(e.Line, e.Column, "invalid operator %q between two pointers", e.Op)
		return unknown(), ir.Value{}, false
	}
	sz, err := c.SizeOf(lt.Elem, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	v := c.B.EmitValue(ir.PTR_DIFF, lv.ID, rv.ID, sz, "", nil, int(types.LONG))
	return types.Basic(types.LONG), v, true
}

// checkShortCircuit lowers && / || through BCOND/BR rather than eager
// AND/OR, since the right operand must not be evaluated when the left
// already decides the result.
func (c *Checker) checkShortCircuit(e *ast.Expr) (*types.Type, ir.Value, bool) {
	op := ir.LOGAND
	if e.Op == "||" {
		op = ir.LOGOR
	}
	_, lv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	_, rv, ok := c.CheckExpr(e.Y)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	v := c.B.EmitValue(op, lv.ID, rv.ID, 0, "", nil, int(types.INT))
	return types.Basic(types.INT), v, true
}

func (c *Checker) checkCond(e *ast.Expr) (*types.Type, ir.Value, bool) {
	_, cv, ok := c.CheckExpr(e.Cond)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	elseLabel := c.freshLabel("cond_else")
	endLabel := c.freshLabel("cond_end")
	c.B.Emit(ir.BCOND, cv.ID, 0, 0, elseLabel, nil)
	tt, tv, ok := c.CheckExpr(e.Then)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	c.B.Emit(ir.BR, 0, 0, 0, endLabel, nil)
	c.B.Label(elseLabel)
	_, ev, ok := c.CheckExpr(e.Else)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	c.B.Label(endLabel)
	_ = ev
	return tt, tv, true
}

func (c *Checker) checkCall(e *ast.Expr) (*types.Type, ir.Value, bool) {
	if e.Callee.Kind != ast.EIdent {
		c.errorf(e.Line, e.Column, "indirect calls through a function pointer value are not supported")
		return unknown(), ir.Value{}, false
	}
	sym, ok := c.Funcs.Lookup(e.Callee.Name)
	if !ok {
		c.errorf(e.Line, e.Column, "call to undeclared function %q", e.Callee.Name)
		return unknown(), ir.Value{}, false
	}
	if !sym.IsVariadic && len(e.Args) != len(sym.FuncParamTypes) {
		c.errorf(e.Line, e.Column, "%q expects %d argument(s), got %d", e.Callee.Name, len(sym.FuncParamTypes), len(e.Args))
		return unknown(), ir.Value{}, false
	}
	for i, a := range e.Args {
		_, av, ok := c.CheckExpr(a)
		if !ok {
			return unknown(), ir.Value{}, false
		}
		c.B.Emit(ir.ARG, av.ID, 0, int64(i), "", nil)
	}
	retKind := types.VOID
	if sym.FuncRetType != nil {
		retKind = sym.FuncRetType.Kind
	}
	if retKind == types.VOID {
		c.B.Emit(ir.CALL, 0, 0, int64(len(e.Args)), sym.IRName, nil)
		return types.Basic(types.VOID), ir.Value{}, true
	}
	v := c.B.EmitValue(ir.CALL, 0, 0, int64(len(e.Args)), sym.IRName, nil, int(retKind))
	return sym.FuncRetType, v, true
}

func (c *Checker) checkIndex(e *ast.Expr) (*types.Type, ir.Value, bool) {
	xt, xv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	_, iv, ok := c.CheckExpr(e.Y)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	if xt.Kind != types.PTR && xt.Kind != types.ARRAY {
		c.errorf(e.Line, e.Column, "subscripted value is not an array or pointer")
		return unknown(), ir.Value{}, false
	}
	elemSize, err := c.SizeOf(xt.Elem, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	v := c.B.EmitValue(ir.LOAD_IDX, xv.ID, iv.ID, elemSize, "", nil, int(xt.Elem.Kind))
	return xt.Elem, v, true
}

func (c *Checker) checkMember(e *ast.Expr) (*types.Type, ir.Value, bool) {
	baseType, baseVal, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	aggType := baseType
	if e.Op == "->" {
		if baseType.Kind != types.PTR {
			c.errorf(e.Line, e.Column, "the left operand of -> must be a pointer")
			return unknown(), ir.Value{}, false
		}
		aggType = baseType.Elem
	}
	if aggType.Kind != types.STRUCT && aggType.Kind != types.UNION {
		c.errorf(e.Line, e.Column, "member reference base is not a struct or union")
		return unknown(), ir.Value{}, false
	}
	_, members, err := c.layoutOf(aggType)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	for _, m := range members {
		if m.Name != e.Member {
			continue
		}
		if e.Op == "->" {
			v := c.B.EmitValue(ir.LOAD_PTR, baseVal.ID, 0, int64(m.Offset), "", nil, int(m.Type.Kind))
			return m.Type, v, true
		}
		v := c.B.EmitValue(ir.LOAD, baseVal.ID, 0, int64(m.Offset), "", nil, int(m.Type.Kind))
		return m.Type, v, true
	}
	c.errorf(e.Line, e.Column, "no member named %q", e.Member)
	return unknown(), ir.Value{}, false
}

func (c *Checker) checkCast(e *ast.Expr) (*types.Type, ir.Value, bool) {
	xt, xv, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	target := e.CastType.Type
	if !canCast(xt.Kind, target.Kind) {
		c.errorf(e.Line, e.Column, "invalid cast from %s to %s", xt.Kind, target.Kind)
		return unknown(), ir.Value{}, false
	}
	if target.Kind == xt.Kind {
		return target, xv, true
	}
	v := c.B.EmitValue(ir.CONST, xv.ID, 0, 0, "cast", nil, int(target.Kind))
	return target, v, true
}

func (c *Checker) checkSizeofType(e *ast.Expr) (*types.Type, ir.Value, bool) {
	sz, err := c.SizeOf(e.OperandType.Type, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	kind := types.ULONG
	v := c.B.EmitValue(ir.CONST, 0, 0, sz, "", nil, int(kind))
	return types.Basic(kind), v, true
}

func (c *Checker) checkSizeofExpr(e *ast.Expr) (*types.Type, ir.Value, bool) {
	xt, _, ok := c.CheckExpr(e.X)
	if !ok {
		return unknown(), ir.Value{}, false
	}
	sz, err := c.SizeOf(xt, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	kind := types.ULONG
	v := c.B.EmitValue(ir.CONST, 0, 0, sz, "", nil, int(kind))
	return types.Basic(kind), v, true
}

func (c *Checker) checkOffsetof(e *ast.Expr) (*types.Type, ir.Value, bool) {
	off, err := offsetofPath(c, e.OperandType.Type, e.OffsetofPath)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	kind := types.ULONG
	v := c.B.EmitValue(ir.CONST, 0, 0, off, "", nil, int(kind))
	return types.Basic(kind), v, true
}

func (c *Checker) checkCompoundLiteral(e *ast.Expr) (*types.Type, ir.Value, bool) {
	t := e.CLType.Type
	sz, err := c.SizeOf(t, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(e.Line, e.Column, "%s", err)
		return unknown(), ir.Value{}, false
	}
	addr := c.B.EmitValue(ir.ALLOCA, 0, 0, sz, "", nil, int(types.PTR))
	if !c.storeInitList(addr, t, e.CLInit) {
		return unknown(), ir.Value{}, false
	}
	return t, addr, true
}
