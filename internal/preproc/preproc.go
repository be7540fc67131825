// Package preproc implements the translation-phase-4 preprocessor of
// spec.md §4.1: macro expansion, conditional inclusion, and #include
// resolution over a single translation unit. Output is preprocessed C text
// ready for internal/lexer, not a token stream — mirroring how a real
// compiler driver pipes cpp through a separate lexer pass.
package preproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"vc/internal/consteval"
	"vc/internal/diag"
)

// MaxIncludeDepth bounds #include nesting so a self-including header chain
// fails fast instead of recursing until the process runs out of memory.
const MaxIncludeDepth = 20

// Dependency records one file the preprocessor actually read, fingerprinted
// with blake2b so a build system can decide whether a cached preprocessed
// unit is stale without re-running cpp (spec.md's DOMAIN STACK expansion).
type Dependency struct {
	Path string
	Sum  [32]byte
}

// CondState tracks one #if/#ifdef nesting level. ParentActive is false when
// an enclosing conditional is itself not taking its branch, in which case
// every nested directive is inert regardless of its own condition; Taken
// latches once any branch of this conditional has already fired, which is
// what makes a later #else/#elif correctly refuse to also take effect.
type CondState struct {
	ParentActive bool
	Taking       bool
	Taken        bool
	SawElse      bool
}

// includeFrame is one entry of the active #include stack. DirIndex records
// which search-path entry supplied this file, which is exactly what
// #include_next needs to resume searching just past it (spec.md §4.1).
type includeFrame struct {
	Path     string
	DirIndex int
}

// Context is the preprocessor's per-translation-unit state, threaded
// explicitly rather than kept in package globals so concurrent compiles in
// the same process (spec.md §5) never share mutable preprocessor state.
type Context struct {
	Macros        map[string]*Macro
	PragmaOnce    map[string]bool
	Deps          []Dependency
	PackStack     []int
	PackAlignment int

	CurrentFile string
	CurrentLine int
	BaseFile    string
	LineDelta   int
	Counter     int

	IncludeDirs  []string
	SystemDirs   []string
	Sysroot      string

	includeStack []includeFrame
	fileGroup    singleflight.Group
	fileCache    map[string]string

	Diags *diag.Bag

	out strings.Builder
}

// NewContext builds a Context with the predefined macros a hosted C99+GNU
// compiler carries (spec.md §4.1): __STDC__, __STDC_VERSION__,
// __STDC_HOSTED__, and __x86_64__/__LP64__ or __i386__ for the target.
// Command-line -D/-U adjustments are applied afterwards by Run.
func NewContext(x8664 bool, diags *diag.Bag) *Context {
	c := &Context{
		Macros:     map[string]*Macro{},
		PragmaOnce: map[string]bool{},
		fileCache:  map[string]string{},
		Diags:      diags,
	}
	c.predefine("__STDC__", "1")
	c.predefine("__STDC_VERSION__", "199901L")
	c.predefine("__STDC_HOSTED__", "1")
	if x8664 {
		c.predefine("__x86_64__", "1")
		c.predefine("__LP64__", "1")
	} else {
		c.predefine("__i386__", "1")
	}
	return c
}

func (c *Context) predefine(name, value string) {
	c.Macros[name] = &Macro{Name: name, Value: value, IsBuiltin: true}
}

// Run is the preproc_run entry point of spec.md §6: it preprocesses path
// and returns the resulting translation unit text.
func Run(path string, incdirs, isystemDirs, defines, undefines []string, sysroot string, x8664 bool, diags *diag.Bag) (string, []Dependency, error) {
	c := NewContext(x8664, diags)
	c.IncludeDirs = incdirs
	c.SystemDirs = isystemDirs
	c.Sysroot = sysroot
	c.BaseFile = path

	for _, d := range defines {
		name, value, hasValue := strings.Cut(d, "=")
		if !hasValue {
			value = "1"
		}
		c.Macros[name] = &Macro{Name: name, Value: value}
	}
	for _, u := range undefines {
		delete(c.Macros, u)
	}

	if err := c.processFile(path, -1); err != nil {
		return "", c.Deps, err
	}
	return c.out.String(), c.Deps, nil
}

// readFile memoizes file reads with singleflight so two #include edges to
// the same header (common with guard-protected utility headers) never pay
// the disk read twice within one compile, and fingerprints every file it
// reads into Deps.
func (c *Context) readFile(path string) (string, error) {
	if body, ok := c.fileCache[path]; ok {
		return body, nil
	}
	v, err, _ := c.fileGroup.Do(path, func() (interface{}, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "preproc: reading %s", path)
		}
		sum := blake2b.Sum256(data)
		c.Deps = append(c.Deps, Dependency{Path: path, Sum: sum})
		return string(data), nil
	})
	if err != nil {
		return "", err
	}
	body := v.(string)
	c.fileCache[path] = body
	return body, nil
}

// processFile preprocesses one file and appends its output to c.out.
// dirIndex is the search-path index this file was resolved through, or -1
// for the root translation unit, for a quoted #include found in the
// including file's own directory, and for an #include of an absolute path.
func (c *Context) processFile(path string, dirIndex int) error {
	if len(c.includeStack) >= MaxIncludeDepth {
		return fmt.Errorf("%s: #include nesting exceeds %d levels", path, MaxIncludeDepth)
	}
	if c.PragmaOnce[path] {
		return nil
	}
	body, err := c.readFile(path)
	if err != nil {
		return err
	}

	c.includeStack = append(c.includeStack, includeFrame{Path: path, DirIndex: dirIndex})
	savedFile, savedLine, savedDelta := c.CurrentFile, c.CurrentLine, c.LineDelta
	c.CurrentFile = path
	c.LineDelta = 0

	var conds []CondState
	active := func() bool {
		for _, cs := range conds {
			if !cs.Taking {
				return false
			}
		}
		return true
	}

	lines := splitLogicalLines(body)
	for lineNo, raw := range lines {
		c.CurrentLine = lineNo + 1
		line := strings.TrimLeft(raw, " \t")
		if strings.HasPrefix(line, "#") {
			if err := c.directive(line[1:], &conds, active, dirIndex); err != nil {
				return err
			}
			continue
		}
		if !active() {
			continue
		}
		if strings.TrimSpace(line) == "" {
			c.out.WriteByte('\n')
			continue
		}
		expanded := c.expandText(line, c.Macros, map[string]bool{})
		c.out.WriteString(expanded)
		c.out.WriteByte('\n')
	}

	if len(conds) != 0 {
		c.Diags.Errorf(diag.Preprocessor, path, "", c.CurrentLine, 1, "unterminated #if at end of file")
	}

	c.includeStack = c.includeStack[:len(c.includeStack)-1]
	c.CurrentFile, c.CurrentLine, c.LineDelta = savedFile, savedLine, savedDelta
	return nil
}

// splitLogicalLines joins backslash-newline continuations into single
// logical lines, keeping line count in lockstep with the physical file by
// emitting an empty placeholder line for every physical line a
// continuation swallows — so __LINE__ inside a multi-line macro body still
// reports a position a human would recognize.
func splitLogicalLines(body string) []string {
	physical := strings.Split(body, "\n")
	var out []string
	var cur strings.Builder
	continuing := false
	for _, p := range physical {
		if continuing {
			cur.WriteByte(' ')
		}
		trimmed := strings.TrimSuffix(p, "\r")
		if strings.HasSuffix(trimmed, "\\") {
			cur.WriteString(strings.TrimSuffix(trimmed, "\\"))
			continuing = true
			out = append(out, "")
			continue
		}
		cur.WriteString(trimmed)
		out = append(out, cur.String())
		cur.Reset()
		continuing = false
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// directive dispatches one #-line. active reports whether the directive's
// own enclosing conditionals are all currently taking their branch;
// structural directives (#if family, #else, #endif) must still run their
// bookkeeping even when inactive, but everything else is skipped.
func (c *Context) directive(text string, conds *[]CondState, active func() bool, dirIndex int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil // a bare '#' is a legal null directive
	}
	kw, rest := splitWord(text)
	switch kw {
	case "ifdef":
		_, ok := c.Macros[strings.TrimSpace(rest)]
		c.pushCond(conds, active(), ok)
	case "ifndef":
		_, ok := c.Macros[strings.TrimSpace(rest)]
		c.pushCond(conds, active(), !ok)
	case "if":
		v := false
		if active() {
			var err error
			v, err = c.evalCondition(rest)
			if err != nil {
				return err
			}
		}
		c.pushCond(conds, active(), v)
	case "elif":
		if len(*conds) == 0 {
			return fmt.Errorf("%s:%d: #elif without #if", c.CurrentFile, c.CurrentLine)
		}
		top := &(*conds)[len(*conds)-1]
		if top.SawElse {
			return fmt.Errorf("%s:%d: #elif after #else", c.CurrentFile, c.CurrentLine)
		}
		if top.Taken || !top.ParentActive {
			top.Taking = false
			return nil
		}
		v, err := c.evalCondition(rest)
		if err != nil {
			return err
		}
		top.Taking = v
		if v {
			top.Taken = true
		}
	case "else":
		if len(*conds) == 0 {
			return fmt.Errorf("%s:%d: #else without #if", c.CurrentFile, c.CurrentLine)
		}
		top := &(*conds)[len(*conds)-1]
		if top.SawElse {
			return fmt.Errorf("%s:%d: duplicate #else", c.CurrentFile, c.CurrentLine)
		}
		top.SawElse = true
		top.Taking = top.ParentActive && !top.Taken
		top.Taken = true
	case "endif":
		if len(*conds) == 0 {
			return fmt.Errorf("%s:%d: #endif without #if", c.CurrentFile, c.CurrentLine)
		}
		*conds = (*conds)[:len(*conds)-1]
	default:
		if !active() {
			return nil
		}
		return c.activeDirective(kw, rest, dirIndex)
	}
	return nil
}

func (c *Context) pushCond(conds *[]CondState, parentActive, taking bool) {
	*conds = append(*conds, CondState{ParentActive: parentActive, Taking: parentActive && taking, Taken: parentActive && taking})
}

// activeDirective handles every directive that only matters when its
// enclosing conditionals are all taking their branch.
func (c *Context) activeDirective(kw, rest string, dirIndex int) error {
	switch kw {
	case "include":
		return c.include(rest, dirIndex, false)
	case "include_next":
		return c.include(rest, dirIndex, true)
	case "define":
		return c.define(rest)
	case "undef":
		name := strings.TrimSpace(rest)
		delete(c.Macros, name)
	case "pragma":
		return c.pragma(rest)
	case "line":
		return c.lineDirective(rest)
	case "error":
		return fmt.Errorf("%s:%d: #error %s", c.CurrentFile, c.CurrentLine, rest)
	case "warning":
		c.Diags.Add(diag.Diagnostic{Kind: diag.Info, File: c.CurrentFile, Line: c.CurrentLine, Message: "#warning " + rest})
	case "ident", "sccs", "assert", "unassert":
		// accepted and ignored; no observable effect on the translation unit
	default:
		return fmt.Errorf("%s:%d: unknown preprocessing directive #%s", c.CurrentFile, c.CurrentLine, kw)
	}
	return nil
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := 0
	for i < len(s) && (isIdentByte(s[i])) {
		i++
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// evalCondition evaluates a #if/#elif expression, first resolving defined()
// operators (which must see un-expanded identifiers) and macro references,
// then folding the remaining C integer constant expression through
// internal/consteval.
func (c *Context) evalCondition(text string) (bool, error) {
	resolved := c.resolveDefined(text)
	expanded := c.expandText(resolved, c.Macros, map[string]bool{})
	expr, err := newCondParser(expanded).parseExpr()
	if err != nil {
		return false, errors.Wrapf(err, "%s:%d: #if", c.CurrentFile, c.CurrentLine)
	}
	v, err := consteval.Eval(expr, consteval.Env{Lookup: identLookup{c}})
	if err != nil {
		return false, errors.Wrapf(err, "%s:%d: #if", c.CurrentFile, c.CurrentLine)
	}
	return v != 0, nil
}

// identLookup treats any bare identifier left in a #if expression (one that
// survived macro expansion because it was never #defined) as the constant
// 0, per the C standard's rule for #if.
type identLookup struct{ c *Context }

func (l identLookup) LookupConst(name string) (int64, bool) { return 0, true }

// resolveDefined replaces `defined(X)` / `defined X` with 1 or 0 before
// macro expansion runs, since defined's operand must not itself be
// macro-expanded.
func (c *Context) resolveDefined(text string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		if strings.HasPrefix(text[i:], "defined") && (i+7 >= len(text) || !isIdentByte(text[i+7])) {
			j := i + 7
			for j < len(text) && text[j] == ' ' {
				j++
			}
			paren := j < len(text) && text[j] == '('
			if paren {
				j++
			}
			for j < len(text) && text[j] == ' ' {
				j++
			}
			start := j
			for j < len(text) && isIdentByte(text[j]) {
				j++
			}
			name := text[start:j]
			for j < len(text) && text[j] == ' ' {
				j++
			}
			if paren && j < len(text) && text[j] == ')' {
				j++
			}
			if _, ok := c.Macros[name]; ok {
				b.WriteString("1")
			} else {
				b.WriteString("0")
			}
			i = j
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func (c *Context) define(rest string) error {
	rest = strings.TrimLeft(rest, " \t")
	nameEnd := 0
	for nameEnd < len(rest) && isIdentByte(rest[nameEnd]) {
		nameEnd++
	}
	name := rest[:nameEnd]
	if name == "" {
		return fmt.Errorf("%s:%d: macro name missing in #define", c.CurrentFile, c.CurrentLine)
	}
	// A '(' with no space right after the name makes this a function-like
	// macro; any other following character (including a space) makes it
	// object-like even if the value itself begins with '('.
	functionLike := nameEnd < len(rest) && rest[nameEnd] == '('
	body := strings.TrimLeft(rest[nameEnd:], " \t")
	if functionLike {
		closeIdx := strings.Index(body, ")")
		if closeIdx < 0 {
			return fmt.Errorf("%s:%d: unterminated macro parameter list", c.CurrentFile, c.CurrentLine)
		}
		paramList := body[1:closeIdx]
		value := strings.TrimLeft(body[closeIdx+1:], " \t")
		params, variadic := parseParams(paramList)
		c.Macros[name] = &Macro{Name: name, Params: params, Value: value, IsFunction: true, IsVariadic: variadic}
		return nil
	}
	c.Macros[name] = &Macro{Name: name, Value: strings.TrimSpace(body)}
	return nil
}

func parseParams(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, ",")
	var params []string
	variadic := false
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "..." {
			variadic = true
			params = append(params, "__VA_ARGS__")
			continue
		}
		params = append(params, p)
	}
	return params, variadic
}

// pragma handles the #pragma forms spec.md §4.1 names: once, pack, and
// message. Unrecognized pragmas pass through silently, matching a real
// compiler's tolerance for vendor pragmas it doesn't implement.
func (c *Context) pragma(rest string) error {
	kw, arg := splitWord(rest)
	switch kw {
	case "once":
		c.PragmaOnce[c.CurrentFile] = true
	case "pack":
		return c.pragmaPack(arg)
	case "message":
		c.Diags.Add(diag.Diagnostic{Kind: diag.Info, File: c.CurrentFile, Line: c.CurrentLine, Message: "#pragma message" + arg})
	}
	return nil
}

func (c *Context) pragmaPack(arg string) error {
	arg = strings.TrimSpace(arg)
	arg = strings.TrimPrefix(arg, "(")
	arg = strings.TrimSuffix(arg, ")")
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		c.PackAlignment = 0
	case arg == "push":
		c.PackStack = append(c.PackStack, c.PackAlignment)
	case arg == "pop":
		if len(c.PackStack) > 0 {
			c.PackAlignment = c.PackStack[len(c.PackStack)-1]
			c.PackStack = c.PackStack[:len(c.PackStack)-1]
		}
	default:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%s:%d: malformed #pragma pack(%s)", c.CurrentFile, c.CurrentLine, arg)
		}
		c.PackAlignment = n
	}
	return nil
}

// lineDirective implements #line N ["file"], adjusting the synthetic line
// number __LINE__ reports without touching the physical scan position.
func (c *Context) lineDirective(rest string) error {
	n, tail := splitWord(rest)
	line, err := strconv.Atoi(n)
	if err != nil {
		return fmt.Errorf("%s:%d: malformed #line directive", c.CurrentFile, c.CurrentLine)
	}
	c.LineDelta = line - c.CurrentLine - 1
	tail = strings.TrimSpace(tail)
	if strings.HasPrefix(tail, "\"") {
		file := strings.Trim(tail, "\"")
		c.CurrentFile = file
	}
	return nil
}

// include resolves and processes a #include / #include_next target.
// Resolution order for "quoted" includes is: the directory of the
// including file, then -I directories, then -isystem directories; for
// <angled> includes the including-file directory is skipped. #include_next
// instead starts the search one entry past whichever directory supplied
// the current file (spec.md §4.1).
func (c *Context) include(rest string, dirIndex int, next bool) error {
	rest = strings.TrimSpace(rest)
	if rest == "" || (rest[0] != '"' && rest[0] != '<') {
		expanded := strings.TrimSpace(c.expandText(rest, c.Macros, map[string]bool{}))
		rest = expanded
	}
	if len(rest) < 2 {
		return fmt.Errorf("%s:%d: malformed #include", c.CurrentFile, c.CurrentLine)
	}
	quoted := rest[0] == '"'
	closing := byte('"')
	if !quoted {
		closing = '>'
	}
	end := strings.IndexByte(rest[1:], closing)
	if end < 0 {
		return fmt.Errorf("%s:%d: malformed #include", c.CurrentFile, c.CurrentLine)
	}
	name := rest[1 : end+1]

	searchStart := 0
	if next && dirIndex >= 0 {
		searchStart = dirIndex + 1
	}

	if quoted && !next {
		if full, ok := c.tryDir(filepath.Dir(c.CurrentFile), name); ok {
			return c.processFile(full, -1)
		}
	}
	dirs := c.searchDirs()
	for i := searchStart; i < len(dirs); i++ {
		if full, ok := c.tryDir(dirs[i], name); ok {
			return c.processFile(full, i)
		}
	}
	if filepath.IsAbs(name) {
		if full, ok := c.tryDir("", name); ok {
			return c.processFile(full, -1)
		}
	}
	return fmt.Errorf("%s:%d: %s: no such file or directory", c.CurrentFile, c.CurrentLine, name)
}

func (c *Context) searchDirs() []string {
	var dirs []string
	dirs = append(dirs, c.IncludeDirs...)
	dirs = append(dirs, c.SystemDirs...)
	if c.Sysroot != "" {
		dirs = append(dirs, filepath.Join(c.Sysroot, "usr", "include"))
	}
	return dirs
}

func (c *Context) tryDir(dir, name string) (string, bool) {
	full := name
	if dir != "" {
		full = filepath.Join(dir, name)
	}
	if _, err := os.Stat(full); err == nil {
		return full, true
	}
	return "", false
}
