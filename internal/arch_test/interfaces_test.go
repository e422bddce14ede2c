package arch_test

import (
	"go/ast"
	"path/filepath"
	"testing"
)

// allowedColocations lists interfaces that may live beside a type whose
// method names happen to cover them.
var allowedColocations = map[string]map[string]string{
	"orchestrator": {
		"Runner": "Orchestrator.Run shares the method name but runs a release, not a command",
	},
}

// TestInterfacePlacement requires interfaces to be declared by their
// consumers: a package must not declare an interface that one of its own
// types satisfies by method names.
func TestInterfacePlacement(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		pkg := pkg
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			_, files := parseFiles(t, filepath.Join(internalDirPath(t), pkg))
			ifaces := make(map[string][]string)
			methods := make(map[string]map[string]bool)
			for _, f := range files {
				for _, decl := range f.Decls {
					collectInterfaces(decl, ifaces)
					collectMethods(decl, methods)
				}
			}
			for name, want := range ifaces {
				if _, ok := allowedColocations[pkg][name]; ok || len(want) == 0 {
					continue
				}
				for typ, have := range methods {
					if coversAll(have, want) {
						t.Errorf("interface %s is implemented by %s in the same package; declare it where it is consumed",
							name, typ)
					}
				}
			}
		})
	}
}

func collectInterfaces(decl ast.Decl, into map[string][]string) {
	gd, ok := decl.(*ast.GenDecl)
	if !ok {
		return
	}
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		it, ok := ts.Type.(*ast.InterfaceType)
		if !ok {
			continue
		}
		var names []string
		for _, m := range it.Methods.List {
			for _, n := range m.Names {
				names = append(names, n.Name)
			}
		}
		into[ts.Name.Name] = names
	}
}

func collectMethods(decl ast.Decl, into map[string]map[string]bool) {
	fd, ok := decl.(*ast.FuncDecl)
	if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
		return
	}
	expr := fd.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	id, ok := expr.(*ast.Ident)
	if !ok {
		return
	}
	if into[id.Name] == nil {
		into[id.Name] = make(map[string]bool)
	}
	into[id.Name][fd.Name.Name] = true
}

func coversAll(have map[string]bool, want []string) bool {
	for _, m := range want {
		if !have[m] {
			return false
		}
	}
	return true
}

func TestAllowedColocationsAreUsed(t *testing.T) {
	t.Parallel()

	for pkg, names := range allowedColocations {
		_, files := parseFiles(t, filepath.Join(internalDirPath(t), pkg))
		ifaces := make(map[string][]string)
		for _, f := range files {
			for _, decl := range f.Decls {
				collectInterfaces(decl, ifaces)
			}
		}
		for name := range names {
			if _, ok := ifaces[name]; !ok {
				t.Errorf("stale allowlist entry: %s declares no interface %s", pkg, name)
			}
		}
	}
}
