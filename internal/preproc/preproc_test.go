package preproc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"vc/internal/diag"
)

// loadArchive extracts a txtar fixture's files into a fresh temp directory
// and returns that directory's path, so preproc.Run can resolve #include
// the same way it would against a real source tree.
func loadArchive(t *testing.T, name string) string {
	t.Helper()
	a, err := txtar.ParseFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	dir := t.TempDir()
	for _, f := range a.Files {
		full := filepath.Join(dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, f.Data, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return dir
}

// S5 (spec.md §8): a macro that expands back to its own name through an
// intermediate definition must not recurse forever; the painted-name
// guard leaves the reintroduced name as a literal token instead.
func TestMacroRecursionGuard(t *testing.T) {
	dir := loadArchive(t, "macro_recursion.txtar")
	diags := &diag.Bag{}
	out, _, err := Run(filepath.Join(dir, "main.c"), nil, nil, nil, nil, "", true, diags)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if !strings.Contains(out, "A") {
		t.Errorf("output = %q, want the painted macro A left as a literal token", out)
	}
}

// S6 (spec.md §8): #include_next resumes the search past the directory
// that supplied the current file, and #pragma once makes a repeated
// #include of the same resolved path a no-op.
func TestIncludeNextAndPragmaOnce(t *testing.T) {
	dir := loadArchive(t, "include_next.txtar")
	incdirs := []string{filepath.Join(dir, "inc1"), filepath.Join(dir, "inc2")}
	diags := &diag.Bag{}
	out, deps, err := Run(filepath.Join(dir, "main.c"), incdirs, nil, nil, nil, "", true, diags)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if !strings.Contains(out, "2") {
		t.Errorf("output = %q, want GREETING resolved to 2 via include_next", out)
	}
	if strings.Count(out, "2") != 1 {
		t.Errorf("output = %q, want #pragma once to suppress the second #include entirely", out)
	}
	seen := map[string]int{}
	for _, d := range deps {
		seen[filepath.Base(d.Path)]++
	}
	if seen["greet.h"] != 2 {
		t.Errorf("deps = %v, want greet.h read exactly once per directory (2 total)", deps)
	}
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	if err := os.WriteFile(path, []byte("#define SIZE 64\nint buf[SIZE];\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &diag.Bag{}
	out, _, err := Run(path, nil, nil, nil, nil, "", true, diags)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "64") {
		t.Errorf("output = %q, want SIZE expanded to 64", out)
	}
}

func TestFunctionLikeMacroWithStringize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	src := "#define STR(x) #x\nchar *s = STR(hello);\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &diag.Bag{}
	out, _, err := Run(path, nil, nil, nil, nil, "", true, diags)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, `"hello"`) {
		t.Errorf("output = %q, want the stringized argument", out)
	}
}

func TestConditionalInclusionSkipsInactiveBranch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	src := "#if 0\nint dead;\n#else\nint live;\n#endif\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &diag.Bag{}
	out, _, err := Run(path, nil, nil, nil, nil, "", true, diags)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out, "dead") {
		t.Errorf("output = %q, want the #if 0 branch stripped", out)
	}
	if !strings.Contains(out, "live") {
		t.Errorf("output = %q, want the #else branch kept", out)
	}
}

func TestCommandLineDefineAndUndefine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	src := "#ifdef FROM_CLI\nint a;\n#endif\n#ifdef ALSO_CLI\nint b;\n#endif\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &diag.Bag{}
	out, _, err := Run(path, nil, nil, []string{"FROM_CLI", "ALSO_CLI=1"}, []string{"ALSO_CLI"}, "", true, diags)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "int a ;") {
		t.Errorf("output = %q, want -D FROM_CLI to take the #ifdef branch", out)
	}
	if strings.Contains(out, "int b ;") {
		t.Errorf("output = %q, want -U ALSO_CLI to undo the earlier -D", out)
	}
}

func TestUnterminatedConditionalIsDiagnosed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	if err := os.WriteFile(path, []byte("#if 1\nint x;\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	diags := &diag.Bag{}
	if _, _, err := Run(path, nil, nil, nil, nil, "", true, diags); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !diags.HasErrors() {
		t.Error("expected a diagnostic for the unterminated #if")
	}
}
