// Package arch_test enforces structural rules across the internal packages:
// the dependency layering, GoDoc on exported symbols, the absence of mutable
// package state, interface placement, and file size limits.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

const internalImportPrefix = "github.com/papapumpkin/releaseme/internal/"

// internalDirPath returns the absolute path of internal/, found relative to
// this source file.
func internalDirPath(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Dir(filepath.Dir(thisFile))
}

// internalPackages returns the top-level package directories under internal/
// that hold Go source, excluding arch_test itself.
func internalPackages(t *testing.T) []string {
	t.Helper()
	dir := internalDirPath(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		if len(goFilesIn(t, filepath.Join(dir, e.Name()))) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// goFilesIn returns the non-test .go files directly inside dir.
func goFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	return filesIn(t, dir, false)
}

// filesIn returns the .go files directly inside dir, with or without tests.
func filesIn(t *testing.T, dir string, withTests bool) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !withTests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files
}

// parseFiles parses every non-test file of pkgDir with comments.
func parseFiles(t *testing.T, pkgDir string) (*token.FileSet, []*ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	var out []*ast.File
	for _, f := range goFilesIn(t, pkgDir) {
		node, err := parser.ParseFile(fset, f, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", f, err)
		}
		out = append(out, node)
	}
	return fset, out
}

// importsOf returns the internal packages imported by the non-test files of
// pkgDir, collapsed to their top-level directory (shell/shelltest -> shell).
func importsOf(t *testing.T, pkgDir string) []string {
	t.Helper()
	_, files := parseFiles(t, pkgDir)
	seen := make(map[string]bool)
	for _, f := range files {
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			rel, ok := strings.CutPrefix(path, internalImportPrefix)
			if !ok {
				continue
			}
			top, _, _ := strings.Cut(rel, "/")
			seen[top] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// lineCount returns the number of lines in the file at path.
func lineCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func TestInternalPackagesFound(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	for _, want := range []string{"orchestrator", "rollback", "shell"} {
		i := sort.SearchStrings(pkgs, want)
		if i == len(pkgs) || pkgs[i] != want {
			t.Errorf("package %q not discovered in %v", want, pkgs)
		}
	}
	for _, p := range pkgs {
		if p == "arch_test" {
			t.Error("arch_test must not list itself")
		}
	}
}

func TestImportsOfCollapsesSubpackages(t *testing.T) {
	t.Parallel()

	got := importsOf(t, filepath.Join(internalDirPath(t), "orchestrator"))
	for _, want := range []string{"rollback", "workspace"} {
		i := sort.SearchStrings(got, want)
		if i == len(got) || got[i] != want {
			t.Errorf("orchestrator imports %v, missing %q", got, want)
		}
	}
	for _, p := range got {
		if strings.Contains(p, "/") {
			t.Errorf("import %q not collapsed", p)
		}
	}
}
