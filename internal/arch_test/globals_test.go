package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"testing"
)

// TestNoMutableGlobalState rejects package-level vars other than error
// sentinels, compiled regular expressions, sync primitives, literals, and
// compile-time interface checks.
func TestNoMutableGlobalState(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		pkg := pkg
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			fset, files := parseFiles(t, filepath.Join(internalDirPath(t), pkg))
			for _, f := range files {
				for _, name := range mutableGlobals(f) {
					pos := fset.Position(name.Pos())
					t.Errorf("%s:%d: mutable global state: var %s; inject it or move it into a function",
						filepath.Base(pos.Filename), pos.Line, name.Name)
				}
			}
		})
	}
}

// mutableGlobals returns the package-level vars of f that fail every
// allowed pattern.
func mutableGlobals(f *ast.File) []*ast.Ident {
	var out []*ast.Ident
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				var val ast.Expr
				if i < len(vs.Values) {
					val = vs.Values[i]
				}
				if name.Name == "_" || allowedGlobal(vs.Type, val) {
					continue
				}
				out = append(out, name)
			}
		}
	}
	return out
}

func allowedGlobal(typ, val ast.Expr) bool {
	if id, ok := typ.(*ast.Ident); ok && id.Name == "error" {
		return true
	}
	if pkg, _ := selector(typ); pkg == "sync" || pkg == "atomic" {
		return true
	}
	switch v := val.(type) {
	case *ast.BasicLit:
		return true
	case *ast.CallExpr:
		switch pkg, fn := selector(v.Fun); {
		case pkg == "errors" && fn == "New",
			pkg == "fmt" && fn == "Errorf",
			pkg == "regexp" && fn == "MustCompile":
			return true
		}
	}
	return false
}

// selector splits pkg.Name expressions.
func selector(expr ast.Expr) (pkg, name string) {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return "", ""
	}
	id, ok := sel.X.(*ast.Ident)
	if !ok {
		return "", ""
	}
	return id.Name, sel.Sel.Name
}

func TestMutableGlobalsDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{name: "sentinel", src: `var ErrX = errors.New("x")`},
		{name: "wrapped sentinel", src: `var ErrY = fmt.Errorf("y: %w", ErrX)`},
		{name: "regexp", src: `var re = regexp.MustCompile("a+")`},
		{name: "typed error", src: `var errZ error`},
		{name: "once", src: `var once sync.Once`},
		{name: "literal", src: `var name = "x"`},
		{name: "interface check", src: `var _ io.Reader = (*T)(nil)`},
		{name: "map", src: `var cache = make(map[string]string)`, want: []string{"cache"}},
		{name: "composite", src: `var table = map[string]int{"a": 1}`, want: []string{"table"}},
		{name: "pointer", src: `var current *T`, want: []string{"current"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := parser.ParseFile(token.NewFileSet(), "x.go", "package x\n"+tt.src+"\n", 0)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, id := range mutableGlobals(f) {
				got = append(got, id.Name)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("flagged %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("flagged %v, want %v", got, tt.want)
				}
			}
		})
	}
}
