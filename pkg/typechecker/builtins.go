package typechecker

import (
	"fmt"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/runtime"
)

// checkPrintln validates the builtin print call: a literal format
// string first, then exactly one i64 argument per {} placeholder. The
// placeholder count is known statically because format strings are
// always literals, so count mismatches surface here rather than
// mid-run.
func (c *Checker) checkPrintln(call *ast.CallExpression) ([]Diagnostic, exprType) {
	if len(call.Arguments) == 0 {
		return []Diagnostic{{
			Err:  runtime.NewError(runtime.Parse, "call to '%s' passes 0 arguments, expected at least a format string", runtime.PrintlnName),
			Node: call,
		}}, typeVoid
	}

	var diags []Diagnostic
	lit, ok := call.Arguments[0].(*ast.StringLiteral)
	if !ok {
		diags = append(diags, Diagnostic{
			Err:  runtime.NewError(runtime.TypeMismatch, "the format argument of %s requires a string literal", runtime.PrintlnName),
			Node: call.Arguments[0],
		})
	} else {
		want := runtime.CountPlaceholders(lit.Value)
		got := len(call.Arguments) - 1
		if want != got {
			diags = append(diags, Diagnostic{
				Err:  runtime.NewError(runtime.Format, "format string has %d placeholders, %d arguments given", want, got),
				Node: call,
			})
		}
	}

	for i, arg := range call.Arguments[1:] {
		diags = append(diags, c.requireI64(arg, fmt.Sprintf("argument %d of '%s'", i+2, runtime.PrintlnName))...)
	}
	return diags, typeVoid
}
