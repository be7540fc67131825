// Package diag implements compiler diagnostics: the error-kind taxonomy,
// source-quoted messages, and the small set of bookkeeping values that used
// to live as process-wide globals in the original implementation.
package diag

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"golang.org/x/exp/slices"
	"vc/internal/ir"
)

// Kind classifies a diagnostic by the pipeline stage that raised it.
type Kind int

const (
	Lexical Kind = iota
	Preprocessor
	Syntactic
	Semantic
	Overflow
	Internal
	Info // #pragma message and similar non-fatal notes
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical error"
	case Preprocessor:
		return "preprocessor error"
	case Syntactic:
		return "syntax error"
	case Semantic:
		return "error"
	case Overflow:
		return "overflow error"
	case Internal:
		return "internal error"
	case Info:
		return "note"
	default:
		return "error"
	}
}

// Diagnostic is one error, warning, or note produced anywhere in the
// pipeline. File/Function/Line/Column mirror the "global error context"
// spec.md describes, but here they are fields on a value rather than
// mutable package state.
type Diagnostic struct {
	Kind     Kind
	File     string
	Function string
	Line     int
	Column   int
	Message  string
	Source   string // the offending source line, when available
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Kind, d.Message)
	if d.Function != "" {
		fmt.Fprintf(&b, " (in %s)", d.Function)
	}
	if d.Source != "" {
		fmt.Fprintf(&b, "\n  %d | %s", d.Line, d.Source)
		caret := strings.Repeat(" ", len(fmt.Sprintf("  %d | ", d.Line))+maxInt(d.Column-1, 0)) + "^"
		b.WriteByte('\n')
		b.WriteString(caret)
	}
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Bag accumulates diagnostics for a single checker invocation. Once a bag
// has an entry for a given (File, Line) pair, callers are expected to bail
// out of that statement early rather than keep appending — this realizes
// "subsequent errors in the same statement are suppressed" (spec.md §7)
// without mutable suppression state.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Errorf(kind Kind, file, function string, line, column int, format string, args ...interface{}) {
	b.Add(Diagnostic{
		Kind:     kind,
		File:     file,
		Function: function,
		Line:     line,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Kind != Info {
			return true
		}
	}
	return false
}

func (b *Bag) Items() []Diagnostic { return b.items }

// Sorted returns diagnostics ordered by file then line then column, with
// duplicates (same file/line/column/message) collapsed — useful once a
// failing statement has produced several related notes.
func (b *Bag) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	slices.SortStableFunc(out, func(a, c Diagnostic) int {
		if a.File != c.File {
			return strings.Compare(a.File, c.File)
		}
		if a.Line != c.Line {
			return a.Line - c.Line
		}
		return a.Column - c.Column
	})
	deduped := out[:0]
	seen := map[string]bool{}
	for _, d := range out {
		key := fmt.Sprintf("%s:%d:%d:%s", d.File, d.Line, d.Column, d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, d)
	}
	return deduped
}

// Session carries the handful of process-wide bookkeeping values spec.md §5
// describes: the active pack alignment, the x86-64 target flag, the set of
// inline functions already emitted in this translation unit, and the
// fresh-label counter. A second compilation invocation constructs a second
// Session instead of resetting package-level globals.
type Session struct {
	ID            uuid.UUID
	PackAlignment int // 0 means natural alignment
	X86_64        bool
	InlineEmitted map[string]bool
	Diags         Bag
	Labels        *ir.Label
}

func NewSession() *Session {
	return &Session{
		ID:            uuid.New(),
		InlineEmitted: make(map[string]bool),
	}
}

func (s *Session) SetPack(n int)       { s.PackAlignment = n }
func (s *Session) SetX86_64(flag bool) { s.X86_64 = flag }

// Colorize wraps s in an ANSI color code for severity kind k, but only when
// stdout is a terminal (fd 1) — mirrors the common "color only when a TTY"
// convention rather than always emitting escape codes.
func Colorize(fd uintptr, isTerm bool, k Kind, s string) string {
	if !isTerm {
		return s
	}
	code := "31" // red
	if k == Info {
		code = "36" // cyan
	}
	return fmt.Sprintf("\x1b[%sm%s\x1b[0m", code, s)
}

// IsTerminal reports whether fd refers to a terminal, used by cmd/vc to
// decide whether Colorize should do anything.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd)
}
