// Package nosecretlog defines an analyzer that keeps passwords and password
// hashes out of log output and formatted strings.
package nosecretlog

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

var Analyzer = &analysis.Analyzer{
	Name:     "nosecretlog",
	Doc:      "reports passwords or password hashes passed to zap, fmt or log calls",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var loggingPackages = map[string]bool{
	"go.uber.org/zap": true,
	"fmt":             true,
	"log":             true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	ins := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	ins.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		if !isLoggingCall(pass, call) {
			return
		}

		for _, arg := range call.Args {
			ast.Inspect(arg, func(node ast.Node) bool {
				switch expr := node.(type) {
				case *ast.FuncLit:
					return false
				case *ast.SelectorExpr:
					if isSecretName(expr.Sel.Name) {
						pass.Reportf(expr.Pos(), "secret %s passed to a logging call", expr.Sel.Name)
						return false
					}
				case *ast.Ident:
					if isSecretName(expr.Name) {
						if _, isVar := pass.TypesInfo.Uses[expr].(*types.Var); isVar {
							pass.Reportf(expr.Pos(), "secret %s passed to a logging call", expr.Name)
						}
					}
				}
				return true
			})
		}
	})

	return nil, nil
}

func isLoggingCall(pass *analysis.Pass, call *ast.CallExpr) bool {
	callee, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
	if !ok || callee.Pkg() == nil {
		return false
	}

	return loggingPackages[callee.Pkg().Path()]
}

func isSecretName(name string) bool {
	lower := strings.ToLower(name)
	return lower == "password" || lower == "passwordhash"
}
