// Package ir implements the compiler's linear three-address intermediate
// representation: the instruction list, SSA-style value ids, and the
// fresh-label allocator consumed (once, in a single forward walk) by the
// out-of-scope code generator.
package ir

import (
	"fmt"
	"io"
)

// Op enumerates every IR opcode named in spec.md §3.
type Op int

const (
	CONST Op = iota
	GLOB_STRING
	GLOB_VAR
	GLOB_ARRAY
	GLOB_UNION
	GLOB_STRUCT
	GLOB_ADDR
	LOAD
	LOAD_VOL
	STORE
	STORE_VOL
	LOAD_PARAM
	STORE_PARAM
	LOAD_IDX
	STORE_IDX
	LOAD_IDX_VOL
	STORE_IDX_VOL
	ADDR
	LOAD_PTR
	LOAD_PTR_RES
	STORE_PTR
	STORE_PTR_RES
	PTR_ADD
	PTR_DIFF
	ALLOCA
	ADD
	SUB
	MUL
	DIV
	MOD
	SHL
	SHR
	AND
	OR
	XOR
	FADD
	FSUB
	FMUL
	FDIV
	LFADD
	LFSUB
	LFMUL
	LFDIV
	CPLX_CONST
	CPLX_ADD
	CPLX_SUB
	CPLX_MUL
	CPLX_DIV
	CMPEQ
	CMPNE
	CMPLT
	CMPGT
	CMPLE
	CMPGE
	LOGAND
	LOGOR
	ARG
	CALL
	RETURN
	RETURN_AGG
	BR
	BCOND
	LABEL
	FUNC_BEGIN
	FUNC_END
)

var opNames = map[Op]string{
	CONST: "CONST", GLOB_STRING: "GLOB_STRING", GLOB_VAR: "GLOB_VAR",
	GLOB_ARRAY: "GLOB_ARRAY", GLOB_UNION: "GLOB_UNION", GLOB_STRUCT: "GLOB_STRUCT",
	GLOB_ADDR: "GLOB_ADDR", LOAD: "LOAD", LOAD_VOL: "LOAD_VOL", STORE: "STORE",
	STORE_VOL: "STORE_VOL", LOAD_PARAM: "LOAD_PARAM", STORE_PARAM: "STORE_PARAM",
	LOAD_IDX: "LOAD_IDX", STORE_IDX: "STORE_IDX", LOAD_IDX_VOL: "LOAD_IDX_VOL",
	STORE_IDX_VOL: "STORE_IDX_VOL", ADDR: "ADDR", LOAD_PTR: "LOAD_PTR",
	LOAD_PTR_RES: "LOAD_PTR_RES", STORE_PTR: "STORE_PTR", STORE_PTR_RES: "STORE_PTR_RES",
	PTR_ADD: "PTR_ADD", PTR_DIFF: "PTR_DIFF", ALLOCA: "ALLOCA",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD",
	SHL: "SHL", SHR: "SHR", AND: "AND", OR: "OR", XOR: "XOR",
	FADD: "FADD", FSUB: "FSUB", FMUL: "FMUL", FDIV: "FDIV",
	LFADD: "LFADD", LFSUB: "LFSUB", LFMUL: "LFMUL", LFDIV: "LFDIV",
	CPLX_CONST: "CPLX_CONST", CPLX_ADD: "CPLX_ADD", CPLX_SUB: "CPLX_SUB",
	CPLX_MUL: "CPLX_MUL", CPLX_DIV: "CPLX_DIV",
	CMPEQ: "CMPEQ", CMPNE: "CMPNE", CMPLT: "CMPLT", CMPGT: "CMPGT",
	CMPLE: "CMPLE", CMPGE: "CMPGE", LOGAND: "LOGAND", LOGOR: "LOGOR",
	ARG: "ARG", CALL: "CALL", RETURN: "RETURN", RETURN_AGG: "RETURN_AGG",
	BR: "BR", BCOND: "BCOND", LABEL: "LABEL",
	FUNC_BEGIN: "FUNC_BEGIN", FUNC_END: "FUNC_END",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("OP(%d)", int(o))
}

// Value is an opaque handle to the result of an instruction that produces
// one: its Dest value id.
type Value struct {
	ID int
}

func (v Value) Valid() bool { return v.ID != 0 }

// Inst is one IR instruction. Not every field is meaningful for every Op;
// this mirrors the C union-like instruction record of spec.md §3 rather
// than splitting into one Go type per opcode, which would make the
// strictly-linear, append-only instruction list harder to walk.
type Inst struct {
	Op          Op
	Dest        int // 0 if this instruction produces no value
	Src1, Src2  int // value ids of operands, 0 if unused
	Imm         int64
	Name        string      // symbol or label name
	Data        interface{} // literal payload: string bytes, []int64 initializer, etc.
	Type        int         // ast.Kind of the operand/result type, stored as int to avoid an import cycle
	IsVolatile  bool
	IsRestrict  bool
	AliasSet    int
	File        string
	Line        int
	Column      int
}

// Builder accumulates one function's (or the global scope's) instruction
// list in order, handing out monotonically increasing value ids starting
// at 1 immediately after FUNC_BEGIN (spec.md §8 invariant 2).
type Builder struct {
	insts      []*Inst
	nextValue  int
	nextAlias  int
	aliasOf    map[string]int
	File       string
	Line       int
	Column     int
}

func NewBuilder() *Builder {
	return &Builder{nextValue: 1, nextAlias: 1, aliasOf: make(map[string]int)}
}

// SetPos records the source position that subsequent emitted instructions
// should carry, mirroring the analyzer updating ir_builder_t's current
// location before checking each statement.
func (b *Builder) SetPos(file string, line, col int) {
	b.File, b.Line, b.Column = file, line, col
}

// ResetValues restarts value-id allocation at 1; called at FUNC_BEGIN so ids
// are scoped per function as spec.md §8 invariant 2 requires.
func (b *Builder) ResetValues() { b.nextValue = 1 }

func (b *Builder) AliasSet(name string) int {
	if id, ok := b.aliasOf[name]; ok {
		return id
	}
	id := b.nextAlias
	b.nextAlias++
	b.aliasOf[name] = id
	return id
}

func (b *Builder) append(i *Inst) *Inst {
	i.File, i.Line, i.Column = b.File, b.Line, b.Column
	b.insts = append(b.insts, i)
	return i
}

// Emit appends an instruction that produces no value (e.g. STORE, BR,
// LABEL, FUNC_END).
func (b *Builder) Emit(op Op, src1, src2 int, imm int64, name string, data interface{}) *Inst {
	return b.append(&Inst{Op: op, Src1: src1, Src2: src2, Imm: imm, Name: name, Data: data})
}

// EmitValue appends an instruction that produces a value and returns the
// handle to it.
func (b *Builder) EmitValue(op Op, src1, src2 int, imm int64, name string, data interface{}, typ int) Value {
	id := b.nextValue
	b.nextValue++
	b.append(&Inst{Op: op, Dest: id, Src1: src1, Src2: src2, Imm: imm, Name: name, Data: data, Type: typ})
	return Value{ID: id}
}

// FuncBegin emits FUNC_BEGIN and returns the instruction so its Imm (total
// automatic-storage bytes) can be back-patched once the body is checked.
func (b *Builder) FuncBegin(name string) *Inst {
	b.ResetValues()
	return b.append(&Inst{Op: FUNC_BEGIN, Name: name})
}

func (b *Builder) FuncEnd(name string) *Inst {
	return b.append(&Inst{Op: FUNC_END, Name: name})
}

func (b *Builder) Label(name string) *Inst {
	return b.append(&Inst{Op: LABEL, Name: name})
}

func (b *Builder) Insts() []*Inst { return b.insts }

// WriteTo renders the instruction list as a stable text form, one
// instruction per line, used by cmd/vc --dump-ir and by tests asserting on
// IR shape without hand-walking the slice.
func (b *Builder) WriteTo(w io.Writer) {
	for _, i := range b.insts {
		fmt.Fprintln(w, formatInst(i))
	}
}

func formatInst(i *Inst) string {
	lhs := ""
	if i.Dest != 0 {
		lhs = fmt.Sprintf("%%%d = ", i.Dest)
	}
	rhs := i.Op.String()
	switch {
	case i.Name != "" && i.Src1 != 0:
		rhs += fmt.Sprintf(" %s, %%%d", i.Name, i.Src1)
	case i.Name != "":
		rhs += " " + i.Name
	case i.Src1 != 0 && i.Src2 != 0:
		rhs += fmt.Sprintf(" %%%d, %%%d", i.Src1, i.Src2)
	case i.Src1 != 0:
		rhs += fmt.Sprintf(" %%%d", i.Src1)
	}
	if i.Op == CONST {
		rhs += fmt.Sprintf(" %v", i.Imm)
	}
	return lhs + rhs
}

// Label allocates fresh label names for a function's control-flow
// constructs; it is owned by the caller (usually a diag.Session) rather
// than being global state, per spec.md §9's re-architecture note.
type Label struct {
	counter int
}

func (l *Label) New(suffix string) string {
	n := l.counter
	l.counter++
	return fmt.Sprintf("L%d_%s", n, suffix)
}
