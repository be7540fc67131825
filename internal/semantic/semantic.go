// Package semantic implements the per-construct checkers of spec.md §4.4:
// name resolution, type/conversion rules, constant-folding hookup, layout
// of aggregates under #pragma pack, reachability analysis, and emission of
// a linear three-address IR into an internal/ir.Builder.
package semantic

import (
	"vc/internal/ast"
	"vc/internal/diag"
	"vc/internal/ir"
	"vc/internal/symtable"
	"vc/internal/types"
)

// Checker threads the tables and builder one check_func/check_global
// invocation needs, replacing the "global error context" of spec.md §5
// with fields on a value passed explicitly through the call chain.
type Checker struct {
	Funcs   *symtable.Table
	Globals *symtable.Table
	B       *ir.Builder
	Sess    *diag.Session
	File    string

	labels  map[string]string // source label -> IR label
	defined map[string]bool   // source label -> has a checkLabel visited it
	pending map[string]int    // forward gotos: source label -> line first referenced
	curFunc *ast.Func
	retType *types.Type
	retTag  string
	// vlaCount disambiguates fresh VLA-related temporaries across a function.
	vlaCount int
	// autoBytes accumulates the automatic-storage byte count for the
	// function currently being checked; back-patched into FUNC_BEGIN's Imm
	// once the body is fully checked.
	autoBytes int
	// staticLocalCount disambiguates __static_<func>_<n> names across a
	// function's static locals.
	staticLocalCount int

	// tags resolves a struct/union tag (keyed "struct NAME"/"union NAME")
	// to its full member list, so a pointer field typed from a forward or
	// bare reference to a tag (the common case for self-referential types
	// like a linked-list node) still resolves to the complete definition
	// once one is checked.
	tags map[string]*types.Type
}

func (c *Checker) tagKey(unionKind bool, tag string) string {
	if unionKind {
		return "union " + tag
	}
	return "struct " + tag
}

// resolveTag returns t unless it is an incomplete (no-member) tagged
// struct/union reference that a previously checked declaration can fill
// in, in which case the complete type is returned instead.
func (c *Checker) resolveTag(t *types.Type) *types.Type {
	if t == nil || t.Tag == "" || len(t.Members) > 0 {
		return t
	}
	if t.Kind != types.STRUCT && t.Kind != types.UNION {
		return t
	}
	if full, ok := c.tags[c.tagKey(t.Kind == types.UNION, t.Tag)]; ok {
		return full
	}
	return t
}

// NewChecker builds a Checker sharing funcs/globals/ir/session across the
// whole translation unit, mirroring check_func/check_global's shared
// (funcs, globals, ir) triple in spec.md §6.
func NewChecker(funcs, globals *symtable.Table, b *ir.Builder, sess *diag.Session, file string) *Checker {
	return &Checker{Funcs: funcs, Globals: globals, B: b, Sess: sess, File: file}
}

func (c *Checker) errorf(line, col int, format string, args ...interface{}) {
	c.Sess.Diags.Errorf(diag.Semantic, c.File, c.funcName(), line, col, format, args...)
}

func (c *Checker) funcName() string {
	if c.curFunc != nil {
		return c.curFunc.Name
	}
	return ""
}

func (c *Checker) hasErrors() bool { return c.Sess.Diags.HasErrors() }

// x64 reports whether the session targets the 64-bit x86 ABI, consulted by
// every size/alignment computation in this package.
func (c *Checker) x64() bool { return c.Sess.X86_64 }

// freshLabel allocates a function-scoped label through the Checker's own
// counter; spec.md §9 recommends owning the allocator per compilation
// rather than as a package global, so it lives on diag.Session alongside
// the other per-invocation bookkeeping.
func (c *Checker) freshLabel(suffix string) string {
	return c.curLabels().New(suffix)
}

func (c *Checker) curLabels() *ir.Label {
	if c.Sess.Labels == nil {
		c.Sess.Labels = &ir.Label{}
	}
	return c.Sess.Labels
}
