package semantic

import (
	"vc/internal/ast"
	"vc/internal/diag"
	"vc/internal/ir"
	"vc/internal/symtable"
	"vc/internal/types"
)

// loopLabels threads the break/continue targets of the innermost enclosing
// loop or switch through CheckStmt, mirroring check_stmt's explicit
// break_label/continue_label parameters in spec.md §4.4.
type loopLabels struct {
	breakLabel    string
	continueLabel string
}

// CheckStmt is the check_stmt dispatcher of spec.md §4.4. reachable is
// false for a statement that follows a return, goto, break or continue in
// the same statement list with no label in between; a call to a _Noreturn
// function does not end reachability. CheckStmt still checks such a
// statement (so symbols it declares remain visible) but reports it as
// unreachable.
func (c *Checker) CheckStmt(s *ast.Stmt, ll loopLabels, reachable bool) bool {
	if s == nil {
		return true
	}
	if !reachable && s.Kind != ast.SLabel {
		c.Sess.Diags.Errorf(diag.Info, c.File, c.funcName(), s.Line, s.Column, "unreachable code")
	}
	c.B.SetPos(c.File, s.Line, s.Column)
	switch s.Kind {
	case ast.SExpr:
		_, _, ok := c.CheckExpr(s.Expr)
		return ok
	case ast.SReturn:
		return c.checkReturn(s)
	case ast.SVarDecl:
		return c.checkVarDecl(s)
	case ast.SIf:
		return c.checkIf(s, ll)
	case ast.SWhile:
		return c.checkWhile(s)
	case ast.SDoWhile:
		return c.checkDoWhile(s)
	case ast.SFor:
		return c.checkFor(s)
	case ast.SSwitch:
		return c.checkSwitch(s)
	case ast.SLabel:
		return c.checkLabel(s, ll)
	case ast.SGoto:
		return c.checkGoto(s)
	case ast.SBreak:
		return c.checkBreakContinue(s, ll.breakLabel)
	case ast.SContinue:
		return c.checkBreakContinue(s, ll.continueLabel)
	case ast.SBlock:
		return c.checkBlock(s, ll)
	case ast.SEnumDecl:
		return c.checkEnumDecl(s)
	case ast.SStructDecl, ast.SUnionDecl:
		return c.checkAggDecl(s)
	case ast.STypedefDecl:
		return true // the parser has already registered the name; nothing to emit
	case ast.SStaticAssert:
		return c.checkStaticAssert(s)
	}
	c.errorf(s.Line, s.Column, "unsupported statement")
	return false
}

func (c *Checker) checkBlock(s *ast.Stmt, ll loopLabels) bool {
	c.Globals.PushScope()
	defer c.Globals.PopScope()
	ok := true
	reachable := true
	for _, sub := range s.Stmts {
		if !c.CheckStmt(sub, ll, reachable) {
			ok = false
		}
		if sub.Kind == ast.SLabel {
			reachable = true
		} else if endsControlFlow(sub) {
			reachable = false
		}
	}
	return ok
}

// endsControlFlow reports whether a checked statement unconditionally
// leaves the containing block, starting the unreachable-code run the next
// statement (if any, before the next label) gets flagged with.
func endsControlFlow(s *ast.Stmt) bool {
	switch s.Kind {
	case ast.SReturn, ast.SGoto, ast.SBreak, ast.SContinue:
		return true
	}
	return false
}

func (c *Checker) checkReturn(s *ast.Stmt) bool {
	if s.Expr == nil {
		if c.retType != nil && c.retType.Kind != types.VOID {
			c.errorf(s.Line, s.Column, "non-void function must return a value")
			return false
		}
		c.B.Emit(ir.RETURN, 0, 0, 0, "", nil)
		return true
	}
	rt, rv, ok := c.CheckExpr(s.Expr)
	if !ok {
		return false
	}
	if c.retType != nil && (c.retType.Kind == types.STRUCT || c.retType.Kind == types.UNION) {
		if rt.Kind != c.retType.Kind {
			c.errorf(s.Line, s.Column, "return type does not match the struct/union return type")
			return false
		}
		// The first implicit parameter (index 0, pre-inserted by checkFunc
		// for aggregate-returning functions) holds the return buffer.
		bufAddr := c.B.EmitValue(ir.LOAD_PARAM, 0, 0, 0, "__ret_buf", nil, int(types.PTR))
		c.B.Emit(ir.STORE_PTR, bufAddr.ID, rv.ID, 0, "", nil)
		c.B.Emit(ir.RETURN_AGG, 0, 0, 0, "", nil)
		return true
	}
	c.B.Emit(ir.RETURN, rv.ID, 0, 0, "", nil)
	return true
}

func (c *Checker) checkIf(s *ast.Stmt, ll loopLabels) bool {
	_, cv, ok := c.CheckExpr(s.Cond)
	if !ok {
		return false
	}
	elseLabel := c.freshLabel("if_else")
	endLabel := c.freshLabel("if_end")
	target := elseLabel
	if s.Else == nil {
		target = endLabel
	}
	c.B.Emit(ir.BCOND, cv.ID, 0, 0, target, nil)
	ok = c.CheckStmt(s.Then, ll, true)
	if s.Else != nil {
		c.B.Emit(ir.BR, 0, 0, 0, endLabel, nil)
		c.B.Label(elseLabel)
		if !c.CheckStmt(s.Else, ll, true) {
			ok = false
		}
	}
	c.B.Label(endLabel)
	return ok
}

func (c *Checker) checkWhile(s *ast.Stmt) bool {
	start := c.freshLabel("while_start")
	end := c.freshLabel("while_end")
	c.B.Label(start)
	_, cv, ok := c.CheckExpr(s.Cond)
	if !ok {
		return false
	}
	c.B.Emit(ir.BCOND, cv.ID, 0, 0, end, nil)
	bodyOK := c.checkLoopBody(s.Body, loopLabels{breakLabel: end, continueLabel: start})
	c.B.Emit(ir.BR, 0, 0, 0, start, nil)
	c.B.Label(end)
	return ok && bodyOK
}

func (c *Checker) checkDoWhile(s *ast.Stmt) bool {
	start := c.freshLabel("do_start")
	condLabel := c.freshLabel("do_cond")
	end := c.freshLabel("do_end")
	c.B.Label(start)
	bodyOK := c.checkLoopBody(s.Body, loopLabels{breakLabel: end, continueLabel: condLabel})
	c.B.Label(condLabel)
	_, cv, ok := c.CheckExpr(s.Cond)
	if !ok {
		return false
	}
	c.B.Emit(ir.BCOND, cv.ID, 0, 0, end, nil)
	c.B.Emit(ir.BR, 0, 0, 0, start, nil)
	c.B.Label(end)
	return ok && bodyOK
}

func (c *Checker) checkFor(s *ast.Stmt) bool {
	c.Globals.PushScope()
	defer c.Globals.PopScope()
	ok := true
	if s.ForInitDecl != nil {
		if !c.CheckStmt(s.ForInitDecl, loopLabels{}, true) {
			ok = false
		}
	} else if s.ForInitExpr != nil {
		if _, _, eok := c.CheckExpr(s.ForInitExpr); !eok {
			ok = false
		}
	}
	start := c.freshLabel("for_start")
	cont := c.freshLabel("for_cont")
	end := c.freshLabel("for_end")
	c.B.Label(start)
	if s.ForCond != nil {
		_, cv, cok := c.CheckExpr(s.ForCond)
		if !cok {
			ok = false
		} else {
			c.B.Emit(ir.BCOND, cv.ID, 0, 0, end, nil)
		}
	}
	if !c.checkLoopBody(s.Body, loopLabels{breakLabel: end, continueLabel: cont}) {
		ok = false
	}
	c.B.Label(cont)
	if s.ForPost != nil {
		if _, _, pok := c.CheckExpr(s.ForPost); !pok {
			ok = false
		}
	}
	c.B.Emit(ir.BR, 0, 0, 0, start, nil)
	c.B.Label(end)
	return ok
}

func (c *Checker) checkLoopBody(body []*ast.Stmt, ll loopLabels) bool {
	ok := true
	for _, s := range body {
		if !c.CheckStmt(s, ll, true) {
			ok = false
		}
	}
	return ok
}

func (c *Checker) checkSwitch(s *ast.Stmt) bool {
	_, ev, ok := c.CheckExpr(s.SwitchExpr)
	if !ok {
		return false
	}
	end := c.freshLabel("switch_end")
	seen := map[int64]bool{}
	var defaultClause *ast.CaseClause
	allOK := true
	for _, cc := range s.Cases {
		if cc.IsDefault {
			if defaultClause != nil {
				c.errorf(cc.Line, 0, "duplicate default label in switch")
				allOK = false
				continue
			}
			defaultClause = cc
			continue
		}
		v, err := c.constEval(cc.Expr)
		if err != nil {
			c.errorf(cc.Line, 0, "%s", err)
			allOK = false
			continue
		}
		if seen[v] {
			c.errorf(cc.Line, 0, "duplicate case value %d", v)
			allOK = false
			continue
		}
		seen[v] = true
		next := c.freshLabel("case_next")
		cmp := c.B.EmitValue(ir.CMPEQ, ev.ID, 0, v, "", nil, int(types.INT))
		c.B.Emit(ir.BCOND, cmp.ID, 0, 0, next, nil)
		if !c.checkLoopBody(cc.Body, loopLabels{breakLabel: end}) {
			allOK = false
		}
		c.B.Label(next)
	}
	if defaultClause != nil {
		if !c.checkLoopBody(defaultClause.Body, loopLabels{breakLabel: end}) {
			allOK = false
		}
	}
	c.B.Label(end)
	return allOK
}

func (c *Checker) checkLabel(s *ast.Stmt, ll loopLabels) bool {
	irLabel := c.labelFor(s.Label)
	if c.defined == nil {
		c.defined = map[string]bool{}
	}
	c.defined[s.Label] = true
	c.B.Label(irLabel)
	ok := true
	for _, inner := range s.Body {
		if !c.CheckStmt(inner, ll, true) {
			ok = false
		}
	}
	return ok
}

func (c *Checker) labelFor(name string) string {
	if c.labels == nil {
		c.labels = map[string]string{}
	}
	if l, ok := c.labels[name]; ok {
		return l
	}
	l := "L_" + name
	c.labels[name] = l
	return l
}

func (c *Checker) checkGoto(s *ast.Stmt) bool {
	if c.pending == nil {
		c.pending = map[string]int{}
	}
	if _, ok := c.labels[s.Label]; !ok {
		c.pending[s.Label] = s.Line
	}
	c.B.Emit(ir.BR, 0, 0, 0, c.labelFor(s.Label), nil)
	return true
}

func (c *Checker) checkBreakContinue(s *ast.Stmt, target string) bool {
	if target == "" {
		c.errorf(s.Line, s.Column, "break/continue not within a loop or switch")
		return false
	}
	c.B.Emit(ir.BR, 0, 0, 0, target, nil)
	return true
}

func (c *Checker) checkStaticAssert(s *ast.Stmt) bool {
	v, err := c.constEval(s.AssertCond)
	if err != nil {
		c.errorf(s.Line, s.Column, "%s", err)
		return false
	}
	if v == 0 {
		msg := s.AssertMessage
		if msg == "" {
			msg = "static assertion failed"
		}
		c.errorf(s.Line, s.Column, "%s", msg)
		return false
	}
	return true
}

func (c *Checker) checkEnumDecl(s *ast.Stmt) bool {
	consts, err := c.buildEnumMembers(s.Members)
	if err != nil {
		c.errorf(s.Line, s.Column, "%s", err)
		return false
	}
	for _, ec := range consts {
		c.Globals.Declare(&symtable.Symbol{
			Name:        ec.Name,
			IRName:      ec.Name,
			Type:        &types.Type{Kind: types.INT},
			IsEnumConst: true,
			EnumValue:   ec.Value,
		})
	}
	return true
}

func (c *Checker) checkAggDecl(s *ast.Stmt) bool {
	pack := c.packFor(false)
	members, err := c.buildStructMembers(s.Members)
	if err != nil {
		c.errorf(s.Line, s.Column, "%s", err)
		return false
	}
	t := &types.Type{Kind: types.STRUCT, Tag: s.Tag, Members: members}
	if s.Kind == ast.SUnionDecl {
		t.Kind = types.UNION
	}
	if s.Kind == ast.SUnionDecl {
		_, _, err = c.layoutUnion(t, pack)
	} else {
		_, _, err = c.layoutStruct(t, pack)
	}
	if err != nil {
		c.errorf(s.Line, s.Column, "%s", err)
		return false
	}
	if s.Tag != "" {
		if c.tags == nil {
			c.tags = map[string]*types.Type{}
		}
		c.tags[c.tagKey(s.Kind == ast.SUnionDecl, s.Tag)] = t
	}
	return true
}
