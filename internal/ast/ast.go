// Package ast defines the tagged-variant expression, statement, function,
// and initializer nodes spec.md §3 describes: a Kind discriminator plus a
// payload, the native-sum-type shape spec.md §9 recommends in place of
// pointer-linked nodes with mixed ownership.
package ast

import "vc/internal/types"

// ExprKind discriminates the Expr variants of spec.md §3.
type ExprKind int

const (
	ENumber ExprKind = iota
	EChar
	EString
	EIdent
	EUnary
	EBinary
	EAssign
	ECond
	ECall
	EIndex
	EMember
	ECast
	ESizeofType
	ESizeofExpr
	EOffsetof
	ECompoundLiteral
)

// Expr is every expression node. Only the fields relevant to Kind are
// populated; this mirrors the C tagged-union payload spec.md §3 specifies
// rather than one Go type per kind, keeping the visitor-free tree walk in
// internal/semantic a single type switch.
type Expr struct {
	Kind         ExprKind
	Line, Column int

	// ENumber
	IntVal     uint64
	FloatVal   float64
	IsUnsigned bool
	LongCount  int // count of l/L suffixes: 0, 1 (long), 2 (long long)
	IsFloat    bool
	IsImaginary bool

	// EChar / EString
	StrVal string
	IsWide bool

	// EIdent
	Name string

	// EUnary: Op in {"-","!","~","*","&","++","--","post++","post--"}
	// EBinary: Op is the textual operator, X/Y the operands
	// EAssign: Op is "=" or a compound-assignment spelling; X is the
	//   target (EIdent/EIndex/EMember), Y is the value
	Op   string
	X, Y *Expr

	// EAssign member-based target flag: true for `p->f = v`.
	ViaPtr bool

	// ECond
	Cond, Then, Else *Expr

	// ECall
	Callee *Expr
	Args   []*Expr

	// EIndex: X is the array expr, Y is the index expr (reused above)
	// EMember: X is the base expr (reused above), Member is the field
	Member string

	// ECast
	CastType *Type
	// ECast source expression reuses X.

	// ESizeofType / EOffsetof
	OperandType *Type
	// EOffsetof: dotted member path, e.g. "a.b.c"
	OffsetofPath string

	// ECompoundLiteral
	CLType *Type
	CLSize *Expr // optional VLA-style size expression
	CLInit *InitList
}

// StmtKind discriminates the Stmt variants of spec.md §3.
type StmtKind int

const (
	SExpr StmtKind = iota
	SReturn
	SVarDecl
	SIf
	SWhile
	SDoWhile
	SFor
	SSwitch
	SLabel
	SGoto
	SBreak
	SContinue
	SBlock
	SEnumDecl
	SStructDecl
	SUnionDecl
	STypedefDecl
	SStaticAssert
)

// CaseClause is one `case expr:` (or the sole `default:`) arm of a switch.
type CaseClause struct {
	Expr      *Expr // nil for default
	IsDefault bool
	Body      []*Stmt
	Line      int
}

// Stmt is every statement node, tagged the same way as Expr.
type Stmt struct {
	Kind         StmtKind
	Line, Column int

	// SExpr / SReturn
	Expr *Expr // return value, or nil for bare `return;`

	// SVarDecl
	Name         string
	DeclType     *Type
	Storage      StorageFlags
	Init         *Expr
	InitList     *InitList
	SizeExpr     *Expr // VLA runtime size, nil otherwise
	AlignExpr    *Expr // _Alignas argument, nil otherwise

	// SIf
	Cond *Expr
	Then *Stmt
	Else *Stmt

	// SWhile / SDoWhile: Cond above, Body below
	Body []*Stmt

	// SFor
	ForInitDecl *Stmt // non-nil if the init clause is a declaration
	ForInitExpr *Expr
	ForCond     *Expr
	ForPost     *Expr

	// SSwitch
	SwitchExpr *Expr
	Cases      []*CaseClause

	// SLabel / SGoto
	Label string

	// SBlock
	Stmts []*Stmt

	// SEnumDecl / SStructDecl / SUnionDecl
	Tag     string
	Members []Member

	// STypedefDecl
	TypedefName string
	TypedefType *Type

	// SStaticAssert
	AssertCond    *Expr
	AssertMessage string
}

// StorageFlags are the declaration-specifier keywords spec.md's Statement
// (var-decl) and Function records carry.
type StorageFlags uint16

const (
	FlagStatic StorageFlags = 1 << iota
	FlagExtern
	FlagRegister
	FlagConst
	FlagVolatile
	FlagRestrict
	FlagInline
	FlagNoreturn
	FlagTypedef
)

func (f StorageFlags) Has(b StorageFlags) bool { return f&b != 0 }

// Member is one struct/union/enum member as written in source, before
// layout assigns offsets (that result lives on symtable.Symbol).
type Member struct {
	Name     string
	Type     *Type
	BitWidth *Expr // nil if not a bit-field
	EnumVal  *Expr // enum member's explicit value, nil to auto-increment
	Line     int
}

// InitItem is one element of a brace initializer list, optionally
// designated (".field = " or "[index] = ").
type InitItem struct {
	Designator string // member name, "" if positional
	Index      *Expr  // array designator, nil if not indexed
	Value      *Expr
	Nested     *InitList // for nested aggregate initializers
}

type InitList struct {
	Items []InitItem
	Line  int
}

// Type is the parser's view of a type-name: either a basic/aggregate
// kind or a typedef reference resolved during semantic checking.
type Type struct {
	*types.Type
	TypedefName string // set instead of Type when a typedef name is used
}

// Func mirrors spec.md §3's Function record.
type Func struct {
	Name            string
	ReturnType      *Type
	ReturnTag       string
	ParamNames      []string
	ParamTypes      []*Type
	ParamIsRestrict []bool
	IsVariadic      bool
	IsPrototype     bool // no Body: a declaration, not a definition
	Body            []*Stmt
	IsInline        bool
	IsNoreturn      bool
	IsStatic        bool
	Line, Column    int
}

// TranslationUnit is the top-level parse result for one preprocessed file:
// every function declaration/definition and every file-scope declaration
// (globals, struct/union/enum tags, typedefs, _Static_assert) in source
// order, since order matters for tentative-definition merging and for
// typedefs that later declarations depend on.
type TranslationUnit struct {
	Funcs   []*Func
	Globals []*Stmt
}
