package semantic

import (
	"fmt"

	"vc/internal/ast"
	"vc/internal/ir"
	"vc/internal/symtable"
	"vc/internal/types"
)

// storageClass translates the parser's StorageFlags bitset into the
// symbol table's StorageClass bitset; the two are kept separate because
// ast.StorageFlags also carries FlagTypedef, which never reaches a Symbol.
func storageClass(f ast.StorageFlags) symtable.StorageClass {
	var s symtable.StorageClass
	if f.Has(ast.FlagStatic) {
		s |= symtable.Static
	}
	if f.Has(ast.FlagExtern) {
		s |= symtable.Extern
	}
	if f.Has(ast.FlagRegister) {
		s |= symtable.Register
	}
	if f.Has(ast.FlagConst) {
		s |= symtable.Const
	}
	if f.Has(ast.FlagVolatile) {
		s |= symtable.Volatile
	}
	if f.Has(ast.FlagRestrict) {
		s |= symtable.Restrict
	}
	if f.Has(ast.FlagInline) {
		s |= symtable.Inline
	}
	if f.Has(ast.FlagNoreturn) {
		s |= symtable.Noreturn
	}
	return s
}

// checkVarDecl implements spec.md §4.4's var-decl lowering: a static-
// duration declaration emits GLOB_VAR/GLOB_ARRAY/GLOB_STRUCT/GLOB_UNION
// once, up front; an automatic one is a named local slot whose size is
// folded into the enclosing FUNC_BEGIN's total, with per-element stores
// for any initializer.
func (c *Checker) checkVarDecl(s *ast.Stmt) bool {
	t := s.DeclType.Type
	storage := storageClass(s.Storage)

	if t.Kind == types.ARRAY && t.ArrayLen < 0 {
		if s.SizeExpr != nil {
			return c.checkVLADecl(s, t, storage)
		}
		if s.InitList == nil {
			c.errorf(s.Line, s.Column, "array %q has incomplete type and no initializer", s.Name)
			return false
		}
		t = types.Array(t.Elem, int64(len(s.InitList.Items)))
	}

	pack := c.Sess.PackAlignment
	align := 0
	if s.AlignExpr != nil {
		v, err := c.constEval(s.AlignExpr)
		if err != nil {
			c.errorf(s.Line, s.Column, "%s", err)
			return false
		}
		align = int(v)
	}

	irName := s.Name
	if storage.Has(symtable.Static) && c.curFunc != nil {
		c.staticLocalCount++
		irName = fmt.Sprintf("__static_%s_%d", c.curFunc.Name, c.staticLocalCount)
	}

	sym := &symtable.Symbol{Name: s.Name, IRName: irName, Type: t, Storage: storage, Alignment: align}
	if _, dup := c.Globals.LookupLocal(s.Name); dup && c.curFunc != nil && !storage.Has(symtable.Extern) {
		c.errorf(s.Line, s.Column, "redeclaration of %q in the same scope", s.Name)
		return false
	}
	c.Globals.Declare(sym)

	if storage.Has(symtable.Extern) {
		return true // no storage or initializer of its own
	}

	isFileScope := c.curFunc == nil
	if storage.Has(symtable.Static) || isFileScope {
		return c.checkStaticVarDecl(s, sym, t)
	}

	sz, err := c.SizeOf(t, pack)
	if err != nil {
		c.errorf(s.Line, s.Column, "%s", err)
		return false
	}
	c.autoBytes += int(sz)

	if s.InitList != nil {
		addr := c.B.EmitValue(ir.ADDR, 0, 0, 0, sym.IRName, nil, int(types.PTR))
		return c.storeInitList(addr, t, s.InitList)
	}
	if s.Init != nil {
		_, v, ok := c.CheckExpr(s.Init)
		if !ok {
			return false
		}
		op := ir.STORE
		if storage.Has(symtable.Volatile) {
			op = ir.STORE_VOL
		}
		c.B.Emit(op, v.ID, 0, 0, sym.IRName, nil)
	}
	return true
}

// checkStaticVarDecl handles both file-scope globals and `static` locals:
// a constant initializer (or none) is folded up front into a single
// GLOB_* instruction: spec.md §4.4 requires static-duration objects to be
// materialized once, not re-initialized on every entry into scope.
func (c *Checker) checkStaticVarDecl(s *ast.Stmt, sym *symtable.Symbol, t *types.Type) bool {
	switch t.Kind {
	case types.ARRAY:
		data, ok := c.constArrayData(t, s.InitList)
		if !ok {
			return false
		}
		c.B.Emit(ir.GLOB_ARRAY, 0, 0, t.ArrayLen, sym.IRName, data)
	case types.STRUCT:
		data, ok := c.constAggData(t, s.InitList)
		if !ok {
			return false
		}
		c.B.Emit(ir.GLOB_STRUCT, 0, 0, 0, sym.IRName, data)
	case types.UNION:
		data, ok := c.constAggData(t, s.InitList)
		if !ok {
			return false
		}
		c.B.Emit(ir.GLOB_UNION, 0, 0, 0, sym.IRName, data)
	default:
		var v int64
		if s.Init != nil {
			cv, err := c.constEval(s.Init)
			if err != nil {
				c.errorf(s.Line, s.Column, "%s", err)
				return false
			}
			v = cv
		} else if s.InitList != nil && len(s.InitList.Items) == 1 {
			cv, err := c.constEval(s.InitList.Items[0].Value)
			if err != nil {
				c.errorf(s.Line, s.Column, "%s", err)
				return false
			}
			v = cv
		}
		c.B.Emit(ir.GLOB_VAR, 0, 0, v, sym.IRName, nil)
	}
	return true
}

// constArrayData folds an array initializer into a flat []int64 of
// per-element constant values, 0 for any element left implicit.
func (c *Checker) constArrayData(t *types.Type, init *ast.InitList) ([]int64, bool) {
	n := t.ArrayLen
	out := make([]int64, n)
	if init == nil {
		return out, true
	}
	idx := int64(0)
	for _, item := range init.Items {
		if item.Index != nil {
			iv, err := c.constEval(item.Index)
			if err == nil {
				idx = iv
			}
		}
		if idx < 0 || idx >= n {
			c.errorf(init.Line, 0, "array initializer index %d out of bounds", idx)
			return nil, false
		}
		if item.Value != nil {
			v, err := c.constEval(item.Value)
			if err != nil {
				c.errorf(init.Line, 0, "%s", err)
				return nil, false
			}
			out[idx] = v
		}
		idx++
	}
	return out, true
}

// constAggData folds a struct/union initializer into a member-name ->
// constant-value map for the backend to place at each member's offset.
func (c *Checker) constAggData(t *types.Type, init *ast.InitList) (map[string]int64, bool) {
	out := map[string]int64{}
	if init == nil {
		return out, true
	}
	_, members, err := c.layoutOf(t)
	if err != nil {
		c.errorf(init.Line, 0, "%s", err)
		return nil, false
	}
	mi := 0
	for _, item := range init.Items {
		name := item.Designator
		if name == "" {
			if mi >= len(members) {
				c.errorf(init.Line, 0, "too many initializers")
				return nil, false
			}
			name = members[mi].Name
			mi++
		} else {
			for i, m := range members {
				if m.Name == name {
					mi = i + 1
					break
				}
			}
		}
		if item.Value == nil {
			continue
		}
		v, err := c.constEval(item.Value)
		if err != nil {
			c.errorf(init.Line, 0, "%s", err)
			return nil, false
		}
		out[name] = v
	}
	return out, true
}

// checkVLADecl lowers a variable-length array: its element count is a
// runtime value, so storage comes from an explicit ALLOCA rather than a
// folded-in FUNC_BEGIN byte count, and indexing reuses PTR_ADD like any
// other pointer arithmetic.
func (c *Checker) checkVLADecl(s *ast.Stmt, t *types.Type, storage symtable.StorageClass) bool {
	if storage.Has(symtable.Static) {
		c.errorf(s.Line, s.Column, "variable-length array %q cannot have static storage duration", s.Name)
		return false
	}
	_, nv, ok := c.CheckExpr(s.SizeExpr)
	if !ok {
		return false
	}
	elemSize, err := c.SizeOf(t.Elem, c.Sess.PackAlignment)
	if err != nil {
		c.errorf(s.Line, s.Column, "%s", err)
		return false
	}
	totalSize := c.B.EmitValue(ir.MUL, nv.ID, 0, elemSize, "", nil, int(types.LONG))
	addr := c.B.EmitValue(ir.ALLOCA, totalSize.ID, 0, 0, "", nil, int(types.PTR))
	c.vlaCount++
	ptrType := types.Ptr(t.Elem)
	sym := &symtable.Symbol{
		Name: s.Name, IRName: s.Name, Type: ptrType, Storage: storage,
		VLAAddr: addr.ID, VLASize: nv.ID,
	}
	c.Globals.Declare(sym)
	c.B.Emit(ir.STORE, addr.ID, 0, 0, sym.IRName, nil)
	return true
}

// storeInitList writes an (optionally nested, optionally designated)
// brace initializer through addr, the address of an aggregate or scalar
// object: arrays advance by element size, structs by each member's
// layout offset, unions initialize only their first (or designated)
// member, matching spec.md §4.4's initializer-lowering shape.
func (c *Checker) storeInitList(addr ir.Value, t *types.Type, init *ast.InitList) bool {
	if init == nil {
		return true
	}
	switch t.Kind {
	case types.ARRAY:
		elemSize, err := c.SizeOf(t.Elem, c.Sess.PackAlignment)
		if err != nil {
			c.errorf(init.Line, 0, "%s", err)
			return false
		}
		ok := true
		idx := int64(0)
		for _, item := range init.Items {
			if item.Index != nil {
				iv, err := c.constEval(item.Index)
				if err == nil {
					idx = iv
				}
			}
			elemAddr := c.B.EmitValue(ir.PTR_ADD, addr.ID, 0, idx*elemSize, "", nil, int(types.PTR))
			if !c.storeInitItem(elemAddr, t.Elem, item) {
				ok = false
			}
			idx++
		}
		return ok
	case types.STRUCT:
		_, members, err := c.layoutOf(t)
		if err != nil {
			c.errorf(init.Line, 0, "%s", err)
			return false
		}
		ok := true
		mi := 0
		for _, item := range init.Items {
			var m *types.Member
			if item.Designator != "" {
				for i := range members {
					if members[i].Name == item.Designator {
						m = &members[i]
						mi = i + 1
						break
					}
				}
			} else if mi < len(members) {
				m = &members[mi]
				mi++
			}
			if m == nil {
				c.errorf(init.Line, 0, "too many initializers for struct")
				ok = false
				continue
			}
			memberAddr := c.B.EmitValue(ir.PTR_ADD, addr.ID, 0, int64(m.Offset), "", nil, int(types.PTR))
			if !c.storeInitItem(memberAddr, m.Type, item) {
				ok = false
			}
		}
		return ok
	case types.UNION:
		if len(init.Items) == 0 {
			return true
		}
		_, members, err := c.layoutOf(t)
		if err != nil {
			c.errorf(init.Line, 0, "%s", err)
			return false
		}
		item := init.Items[0]
		var m *types.Member
		if item.Designator != "" {
			for i := range members {
				if members[i].Name == item.Designator {
					m = &members[i]
					break
				}
			}
		} else if len(members) > 0 {
			m = &members[0]
		}
		if m == nil {
			c.errorf(init.Line, 0, "no member to initialize in union")
			return false
		}
		return c.storeInitItem(addr, m.Type, item)
	default:
		if len(init.Items) != 1 {
			c.errorf(init.Line, 0, "too many initializers for scalar")
			return false
		}
		return c.storeInitItem(addr, t, init.Items[0])
	}
}

func (c *Checker) storeInitItem(addr ir.Value, t *types.Type, item ast.InitItem) bool {
	if item.Nested != nil {
		return c.storeInitList(addr, t, item.Nested)
	}
	_, v, ok := c.CheckExpr(item.Value)
	if !ok {
		return false
	}
	c.storeAt(addr, t, v, t.IsVolatile)
	return true
}
