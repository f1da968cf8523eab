// Package enumvalidator reports string literals assigned to the pipeline's
// enum-typed fields, where a typo would silently produce an unknown stage or
// status.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that enum fields only use defined constants, not string literals",
	Run:  run,
}

var enumTypes = map[string]bool{
	"Stage":            true,
	"StageRunStatus":   true,
	"TranscriptStatus": true,
	"ArtifactsStatus":  true,
	"AggregateType":    true,
	"TaskType":         true,
	"Severity":         true,
}

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				for i, lhs := range node.Lhs {
					if i >= len(node.Rhs) {
						continue
					}
					sel, ok := lhs.(*ast.SelectorExpr)
					if ok && isEnum(pass.TypesInfo.TypeOf(sel)) && isStringLiteral(node.Rhs[i]) {
						pass.Reportf(node.Pos(),
							"enum field %s assigned string literal; use defined constant instead",
							sel.Sel.Name)
					}
				}
			case *ast.KeyValueExpr:
				key, ok := node.Key.(*ast.Ident)
				if !ok || !isStringLiteral(node.Value) {
					return true
				}
				if isEnum(pass.TypesInfo.TypeOf(node.Value)) {
					pass.Reportf(node.Pos(),
						"enum field %s set to string literal; use defined constant instead",
						key.Name)
				}
			}
			return true
		})
	}
	return nil, nil
}

func isEnum(t types.Type) bool {
	if named, ok := t.(*types.Named); ok {
		return enumTypes[named.Obj().Name()]
	}
	return false
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}
