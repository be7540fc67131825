// Package symtable implements the scoped symbol table of spec.md §3: a
// lexical-scope chain ("head") plus a file-scope map ("globals"), with
// scope entry/exit realized as push/pop over a slice-backed stack rather
// than the original's linked list of heap-allocated frames.
package symtable

import "vc/internal/types"

// StorageClass bundles the storage-class flags spec.md's Symbol record
// carries, as a small bitset rather than four separate bools.
type StorageClass uint8

const (
	Static StorageClass = 1 << iota
	Register
	Extern
	Const
	Volatile
	Restrict
	Inline
	Noreturn
)

func (s StorageClass) Has(f StorageClass) bool { return s&f != 0 }

// Symbol mirrors spec.md §3's Symbol record: one entry per variable,
// parameter, function, typedef, or enum constant.
type Symbol struct {
	Name    string
	IRName  string // linker-visible name; __static_<id> for static locals
	Type    *types.Type
	ArraySize int64
	ElemSize  int
	Alignment int
	IsParam    bool
	ParamIndex int
	Storage StorageClass

	EnumValue   int64
	IsEnumConst bool

	IsTypedef bool
	AliasType *types.Type

	// Aggregate layout, populated by internal/semantic's layout routines.
	Members         []types.Member
	TotalSize       int
	StructTotalSize int

	// Function / function-pointer symbols.
	IsFunc         bool
	FuncRetType    *types.Type
	FuncParamTypes []*types.Type
	IsVariadic     bool
	IsPrototype    bool
	IsInline       bool
	IsNoreturn     bool

	// VLA bookkeeping: the base-address and length value ids produced by
	// the ALLOCA that reserved this array's stack space.
	VLAAddr int
	VLASize int

	// Union "active member" tracking (spec.md §9's recommended behavior):
	// the name of the last member assigned through a non-pointer lvalue.
	ActiveMember string
}

// scopeMark records where a lexical scope began, so leaving it can pop
// exactly the symbols it introduced.
type scopeMark int

// Table is the two-stack structure of spec.md §3: Head is the current
// lexical scope chain (LIFO, searched first), Globals is file scope.
type Table struct {
	head    []*Symbol
	globals map[string]*Symbol
	marks   []scopeMark
}

func New() *Table {
	return &Table{globals: make(map[string]*Symbol)}
}

// PushScope saves the current head length; PopScope trims back to it,
// discarding every symbol declared since — spec.md §3's
// "Scope entry saves the current head pointer; scope exit pops and frees
// entries until the saved pointer is reached."
func (t *Table) PushScope() {
	t.marks = append(t.marks, scopeMark(len(t.head)))
}

func (t *Table) PopScope() {
	if len(t.marks) == 0 {
		return
	}
	mark := t.marks[len(t.marks)-1]
	t.marks = t.marks[:len(t.marks)-1]
	t.head = t.head[:mark]
}

// Depth reports how many locals are currently live in the head chain,
// used by spec.md §8 invariant 4 ("after check_func returns, the local
// symbol table is empty").
func (t *Table) Depth() int { return len(t.head) }

// Declare inserts sym into the innermost open scope (or into Globals if no
// scope is open).
func (t *Table) Declare(sym *Symbol) {
	if len(t.marks) == 0 {
		t.globals[sym.Name] = sym
		return
	}
	t.head = append(t.head, sym)
}

// DeclareGlobal always inserts into file scope, regardless of any open
// local scope — used for globals declared while checking is nested (e.g.
// nested function declarations in GNU C are not supported, but a file
// static initialized during local checking of an aggregate literal is).
func (t *Table) DeclareGlobal(sym *Symbol) {
	t.globals[sym.Name] = sym
}

// Lookup probes head first (innermost scope outward), then Globals,
// matching spec.md §3's "Lookup probes head first, then globals."
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.head) - 1; i >= 0; i-- {
		if t.head[i].Name == name {
			return t.head[i], true
		}
	}
	if sym, ok := t.globals[name]; ok {
		return sym, true
	}
	return nil, false
}

// LookupLocal reports whether name is declared in the innermost open
// scope only (not an enclosing one), used to reject re-declaration within
// the same block.
func (t *Table) LookupLocal(name string) (*Symbol, bool) {
	start := 0
	if len(t.marks) > 0 {
		start = int(t.marks[len(t.marks)-1])
	}
	for i := len(t.head) - 1; i >= start; i-- {
		if t.head[i].Name == name {
			return t.head[i], true
		}
	}
	return nil, false
}

func (t *Table) Global(name string) (*Symbol, bool) {
	sym, ok := t.globals[name]
	return sym, ok
}

func (t *Table) Globals() map[string]*Symbol { return t.globals }
