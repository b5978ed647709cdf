package typechecker

import (
	"fmt"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/runtime"
)

// exprType is the static type of an expression. typeUnknown marks
// subtrees that already reported a diagnostic, suppressing cascades.
type exprType int

const (
	typeUnknown exprType = iota
	typeI64
	typeString
	typeVoid
)

func (t exprType) String() string {
	switch t {
	case typeI64:
		return "i64"
	case typeString:
		return "string"
	case typeVoid:
		return "unit"
	default:
		return "unknown"
	}
}

func (c *Checker) checkExpression(expr ast.Expression) ([]Diagnostic, exprType) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return nil, typeI64
	case *ast.StringLiteral:
		return nil, typeString
	case *ast.Identifier:
		// Variables hold i64 only; whether the name is declared is
		// the environment's call at evaluation time.
		return nil, typeI64
	case *ast.UnaryExpression:
		diags := c.requireI64(e.Operand, fmt.Sprintf("the operand of unary '%s'", e.Operator))
		return diags, typeI64
	case *ast.BinaryExpression:
		diags := c.requireI64(e.Left, fmt.Sprintf("the left operand of '%s'", e.Operator))
		diags = append(diags, c.requireI64(e.Right, fmt.Sprintf("the right operand of '%s'", e.Operator))...)
		return diags, typeI64
	case *ast.CallExpression:
		return c.checkCall(e)
	default:
		return []Diagnostic{{
			Err:  runtime.NewError(runtime.TypeMismatch, "unsupported expression node %T", expr),
			Node: expr,
		}}, typeUnknown
	}
}

// requireI64 checks expr and reports a mismatch unless it is i64.
// Unknown-typed subtrees pass silently; they already reported.
func (c *Checker) requireI64(expr ast.Expression, context string) []Diagnostic {
	diags, typ := c.checkExpression(expr)
	if typ == typeI64 || typ == typeUnknown {
		return diags
	}
	return append(diags, Diagnostic{
		Err:  runtime.NewError(runtime.TypeMismatch, "%s requires an i64 value (got %s)", context, typ),
		Node: expr,
	})
}

func (c *Checker) checkCall(call *ast.CallExpression) ([]Diagnostic, exprType) {
	name := call.Callee.Name
	if name == runtime.PrintlnName {
		return c.checkPrintln(call)
	}

	fn, ok := c.functions[name]
	if !ok {
		return []Diagnostic{{
			Err:  runtime.NewError(runtime.UnknownFunction, "function '%s' is not declared", name),
			Node: call,
		}}, typeUnknown
	}

	var diags []Diagnostic
	if len(call.Arguments) != len(fn.Params) {
		diags = append(diags, Diagnostic{
			Err:  runtime.NewError(runtime.Parse, "call to '%s' passes %d arguments, expected %d", name, len(call.Arguments), len(fn.Params)),
			Node: call,
		})
	}
	for i, arg := range call.Arguments {
		diags = append(diags, c.requireI64(arg, fmt.Sprintf("argument %d of '%s'", i+1, name))...)
	}

	if fn.ReturnType == nil {
		return diags, typeVoid
	}
	return diags, typeI64
}
