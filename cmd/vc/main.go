// Command vc is a minimal harness over the compiler core: it reads one
// source file, runs it through preproc -> lexer -> parser -> semantic, and
// prints the result. It implements none of the option parsing, codegen, or
// dependency-file logic spec.md §6 assigns to the external driver; it
// exists so the core packages are reachable and testable end to end.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"vc/internal/diag"
	"vc/internal/ir"
	"vc/internal/lexer"
	"vc/internal/parser"
	"vc/internal/preproc"
	"vc/internal/semantic"
	"vc/internal/symtable"
)

// envIncludeDirs appends the directories named by VCPATH, VCINC, CPATH, and
// C_INCLUDE_PATH (spec.md §6) to dirs, in that order, matching the driver's
// documented environment-variable handling.
func envIncludeDirs(dirs []string) []string {
	for _, name := range []string{"VCPATH", "VCINC", "CPATH", "C_INCLUDE_PATH"} {
		if v := os.Getenv(name); v != "" {
			dirs = append(dirs, filepath.SplitList(v)...)
		}
	}
	return dirs
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(vcMain())
}

// vcMain holds the entire CLI body and returns an exit code instead of
// calling os.Exit directly, so testscript's in-process "vc" command (see
// main_test.go) can invoke it repeatedly within one test binary. It uses
// its own FlagSet rather than the global flag.CommandLine for the same
// reason: the global set cannot be parsed twice in one process.
func vcMain() int {
	fs := flag.NewFlagSet("vc", flag.ContinueOnError)
	var incdirs, isystemDirs, defines, undefines stringList
	fs.Var(&incdirs, "I", "add directory to the include search path")
	fs.Var(&isystemDirs, "isystem", "add directory to the system include search path")
	fs.Var(&defines, "D", "define NAME[=VALUE] before preprocessing")
	fs.Var(&undefines, "U", "undefine NAME before preprocessing")
	sysroot := fs.String("sysroot", "", "system root for <...> includes")
	x8664 := fs.Bool("x86-64", true, "target the x86-64 ABI (false targets i386)")
	pack := fs.Int("pack", 0, "ambient #pragma pack alignment (0 = natural)")
	dumpTokens := fs.Bool("dump-tokens", false, "print the lexed token stream and exit")
	dumpAST := fs.Bool("dump-ast", false, "print the parsed translation unit and exit")
	dumpIR := fs.Bool("dump-ir", false, "print the emitted IR after checking")
	verbose := fs.Bool("v", false, "log include-path resolution and pipeline stages")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	log.SetFlags(0)
	log.SetPrefix("vc: ")
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vc [flags] <file.c>")
		return 2
	}
	path := fs.Arg(0)
	incdirsFull := envIncludeDirs([]string(incdirs))
	log.Printf("include search path: %v", incdirsFull)

	start := time.Now()
	if err := run(path, incdirsFull, []string(isystemDirs), []string(defines), []string(undefines), *sysroot, *x8664, *pack, *dumpTokens, *dumpAST, *dumpIR); err != nil {
		fmt.Fprintf(os.Stderr, "vc: %+v\n", err)
		return 1
	}
	elapsed := time.Since(start)
	fmt.Fprintf(os.Stderr, "vc: %s compiled in %s\n", filepath.Base(path), elapsed.Round(time.Microsecond))
	return 0
}

func run(path string, incdirs, isystemDirs, defines, undefines []string, sysroot string, x8664 bool, pack int, dumpTokens, dumpAST, dumpIR bool) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}

	pDiags := &diag.Bag{}
	src, deps, err := preproc.Run(path, incdirs, isystemDirs, defines, undefines, sysroot, x8664, pDiags)
	if err != nil {
		return errors.Wrap(err, "preprocessing")
	}
	if printDiags(pDiags) {
		return fmt.Errorf("preprocessing failed with errors")
	}

	toks, err := lexer.Tokenize(src, path)
	if err != nil {
		return errors.Wrap(err, "lexing")
	}
	if dumpTokens {
		for _, t := range toks {
			fmt.Println(t)
		}
		return nil
	}

	lDiags := &diag.Bag{}
	tu := parser.ParseTopLevel(toks, path, lDiags)
	if printDiags(lDiags) {
		return fmt.Errorf("parsing failed with errors")
	}
	if dumpAST {
		pretty.Println(tu)
		return nil
	}

	sess := diag.NewSession()
	sess.SetPack(pack)
	sess.SetX86_64(x8664)

	funcs := symtable.New()
	globals := symtable.New()
	b := ir.NewBuilder()
	checker := semantic.NewChecker(funcs, globals, b, sess, path)
	ok := checker.CheckTranslationUnit(tu)

	if printDiags(&sess.Diags) || !ok {
		return fmt.Errorf("semantic analysis failed with errors")
	}

	if dumpIR {
		b.WriteTo(os.Stdout)
	}

	var depPaths []string
	for _, d := range deps {
		depPaths = append(depPaths, d.Path)
	}
	fmt.Fprintf(os.Stderr, "vc: %s: %s preprocessed, %d instructions, %d dependency file%s\n",
		path, humanize.Bytes(uint64(len(src))), len(b.Insts()), len(depPaths), plural(len(depPaths)))
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// printDiags prints every diagnostic in bag, colorized when stdout is a
// terminal, and reports whether any of them is an error (as opposed to an
// Info-level note like an unreachable-code warning or #pragma message).
func printDiags(bag *diag.Bag) bool {
	term := diag.IsTerminal(os.Stdout.Fd())
	hadError := false
	for _, d := range bag.Sorted() {
		line := d.String()
		fmt.Fprintln(os.Stderr, diag.Colorize(os.Stdout.Fd(), term, d.Kind, line))
		if d.Kind != diag.Info {
			hadError = true
		}
	}
	return hadError
}
