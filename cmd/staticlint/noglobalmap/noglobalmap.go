// Package noglobalmap defines an analyzer that reports writes to package-level maps.
// Mutable state belongs to store objects constructed at startup and passed explicitly.
package noglobalmap

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/ast/astutil"
)

// Analyzer reports assignments, increments and delete() calls on package-level maps
// outside of test files. Reading such maps (lookup tables) is allowed.
var Analyzer = &analysis.Analyzer{
	Name: "noglobalmap",
	Doc:  "prohibits mutation of package-level maps",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) || strings.HasSuffix(filename, "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				for _, lhs := range node.Lhs {
					reportIfPackageMapIndex(pass, lhs)
				}
			case *ast.IncDecStmt:
				reportIfPackageMapIndex(pass, node.X)
			case *ast.CallExpr:
				if isBuiltin(pass, node.Fun, "delete") && len(node.Args) > 0 {
					if name, ok := packageMap(pass, node.Args[0]); ok {
						pass.Reportf(node.Pos(), "package-level map %s is mutated", name)
					}
				}
			}
			return true
		})
	}
	return nil, nil
}

func reportIfPackageMapIndex(pass *analysis.Pass, expr ast.Expr) {
	index, ok := astutil.Unparen(expr).(*ast.IndexExpr)
	if !ok {
		return
	}
	if name, ok := packageMap(pass, index.X); ok {
		pass.Reportf(index.Pos(), "package-level map %s is mutated", name)
	}
}

func packageMap(pass *analysis.Pass, expr ast.Expr) (string, bool) {
	ident, ok := astutil.Unparen(expr).(*ast.Ident)
	if !ok {
		return "", false
	}

	variable, ok := pass.TypesInfo.Uses[ident].(*types.Var)
	if !ok || variable.Parent() != pass.Pkg.Scope() {
		return "", false
	}

	_, isMap := variable.Type().Underlying().(*types.Map)
	return variable.Name(), isMap
}

func isBuiltin(pass *analysis.Pass, fun ast.Expr, name string) bool {
	ident, ok := astutil.Unparen(fun).(*ast.Ident)
	if !ok {
		return false
	}
	builtin, ok := pass.TypesInfo.Uses[ident].(*types.Builtin)
	return ok && builtin.Name() == name
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
