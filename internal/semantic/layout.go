package semantic

import (
	"fmt"

	"vc/internal/ast"
	"vc/internal/types"
)

// packFor resolves the pack alignment in effect for one aggregate: 1 when
// packed is true, otherwise the ambient #pragma pack state (0 for natural
// alignment). Every caller passes false: the parser discards
// __attribute__((packed)), so only #pragma pack changes layout.
func (c *Checker) packFor(packed bool) int {
	if packed {
		return 1
	}
	if c.Sess.PackAlignment > 0 {
		return c.Sess.PackAlignment
	}
	return 0
}

// SizeOf computes a type's byte size, laying out STRUCT/UNION/ARRAY
// members as needed; pack is the #pragma pack alignment in effect, 0 for
// natural alignment.
func (c *Checker) SizeOf(t *types.Type, pack int) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("sizeof applied to an unresolved type")
	}
	t = c.resolveTag(t)
	switch t.Kind {
	case types.ARRAY:
		if t.ArrayLen < 0 {
			return 0, fmt.Errorf("sizeof applied to an incomplete array type")
		}
		elemSize, err := c.SizeOf(t.Elem, pack)
		if err != nil {
			return 0, err
		}
		return elemSize * t.ArrayLen, nil
	case types.STRUCT:
		total, _, err := c.layoutStruct(t, pack)
		return int64(total), err
	case types.UNION:
		total, _, err := c.layoutUnion(t, pack)
		return int64(total), err
	default:
		return int64(types.Size(t.Kind, c.x64())), nil
	}
}

func (c *Checker) AlignOf(t *types.Type, pack int) (int, error) {
	if t == nil {
		return 1, fmt.Errorf("alignof applied to an unresolved type")
	}
	t = c.resolveTag(t)
	switch t.Kind {
	case types.ARRAY:
		return c.AlignOf(t.Elem, pack)
	case types.STRUCT, types.UNION:
		max := 1
		for _, m := range t.Members {
			a, err := c.AlignOf(m.Type, pack)
			if err != nil {
				return 1, err
			}
			if pack > 0 && a > pack {
				a = pack
			}
			if a > max {
				max = a
			}
		}
		return max, nil
	default:
		return types.Align(t.Kind, c.x64()), nil
	}
}

// layoutUnion implements spec.md §4.4's layout_union_members: offset 0 for
// every member, total size the widest member.
func (c *Checker) layoutUnion(t *types.Type, pack int) (int, []types.Member, error) {
	out := make([]types.Member, len(t.Members))
	max := 0
	for i, m := range t.Members {
		sz, err := c.SizeOf(m.Type, pack)
		if err != nil {
			return 0, nil, err
		}
		out[i] = m
		out[i].Offset = 0
		out[i].ElemSize = int(sz)
		if int(sz) > max {
			max = int(sz)
		}
	}
	return max, out, nil
}

// layoutStruct implements spec.md §4.4's layout_struct_members: non-bit-
// field members advance to the next min(elem_size, pack)-aligned boundary;
// bit-fields pack into the current byte, a zero-width field forcing a
// boundary, and mixing with non-bit-fields flushing any partial byte.
func (c *Checker) layoutStruct(t *types.Type, pack int) (int, []types.Member, error) {
	out := make([]types.Member, len(t.Members))
	byteOff := 0
	bitOff := 0 // bits consumed in the byte at byteOff, 0 if no partial byte is open

	flush := func() {
		if bitOff > 0 {
			byteOff++
			bitOff = 0
		}
	}

	for i, m := range t.Members {
		out[i] = m
		if m.BitWidth > 0 || (m.BitWidth == 0 && isBitFieldDecl(m)) {
			if m.BitWidth == 0 {
				flush()
				continue
			}
			if bitOff+m.BitWidth > 8 {
				flush()
			}
			out[i].Offset = byteOff
			out[i].BitOffset = bitOff
			out[i].ElemSize = 1
			bitOff += m.BitWidth
			continue
		}
		flush()
		if m.IsFlexible {
			out[i].Offset = byteOff
			out[i].ElemSize = 0
			continue
		}
		sz, err := c.SizeOf(m.Type, pack)
		if err != nil {
			return 0, nil, err
		}
		align := types.Align(m.Type.Kind, c.x64())
		if m.Type.Kind == types.STRUCT || m.Type.Kind == types.UNION {
			align, err = c.AlignOf(m.Type, pack)
			if err != nil {
				return 0, nil, err
			}
		}
		if pack > 0 && align > pack {
			align = pack
		}
		byteOff = types.AlignUp(byteOff, align)
		out[i].Offset = byteOff
		out[i].ElemSize = int(sz)
		byteOff += int(sz)
	}
	flush()
	total := byteOff
	if pack > 0 {
		total = types.AlignUp(total, pack)
	} else {
		structAlign, err := c.AlignOf(t, pack)
		if err == nil {
			total = types.AlignUp(total, structAlign)
		}
	}
	return total, out, nil
}

// isBitFieldDecl is a defensive guard for an explicit `: 0` bit-field
// member that layoutStruct's BitWidth>0 test alone wouldn't catch; the
// parser always records a zero-width bit-field with BitWidth == 0 and no
// other signal, so buildStructMembers below tags it via ElemSize == -1
// before layout runs.
func isBitFieldDecl(m types.Member) bool { return m.ElemSize == -1 }

// buildStructMembers resolves an ast.Member list (carrying the full
// bit-field width expressions the parser couldn't fold) into a
// types.Member list with BitWidth populated via consteval.
func (c *Checker) buildStructMembers(members []ast.Member) ([]types.Member, error) {
	out := make([]types.Member, 0, len(members))
	for _, m := range members {
		tm := types.Member{Name: m.Name, Type: m.Type.Type}
		if m.BitWidth != nil {
			v, err := c.constEval(m.BitWidth)
			if err != nil {
				return nil, err
			}
			if v == 0 {
				tm.ElemSize = -1 // zero-width: forces a boundary, see isBitFieldDecl
			} else {
				tm.BitWidth = int(v)
			}
		}
		out = append(out, tm)
	}
	if n := len(out); n > 0 && out[n-1].Type != nil && out[n-1].Type.Kind == types.ARRAY && out[n-1].Type.ArrayLen < 0 {
		out[n-1].IsFlexible = true
	}
	return out, nil
}

// EnumConst is one resolved enumerator: a name and its evaluated value,
// ready to be declared as a symtable.Symbol with IsEnumConst set.
type EnumConst struct {
	Name  string
	Value int64
}

// buildEnumMembers evaluates each enumerator's explicit value (or
// auto-increments from the previous one) and returns the resolved
// name/value pairs in declaration order.
func (c *Checker) buildEnumMembers(members []ast.Member) ([]EnumConst, error) {
	out := make([]EnumConst, 0, len(members))
	next := int64(0)
	for _, m := range members {
		v := next
		if m.EnumVal != nil {
			ev, err := c.constEval(m.EnumVal)
			if err != nil {
				return nil, err
			}
			v = ev
		}
		out = append(out, EnumConst{Name: m.Name, Value: v})
		next = v + 1
	}
	return out, nil
}
