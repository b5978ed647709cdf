package interpreter

import (
	"fmt"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.IntegerLiteral:
		return runtime.IntegerValue{Val: n.Value}, nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.Identifier:
		return env.Get(n.Name)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n, env)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n, env)
	case *ast.CallExpression:
		return i.evaluateCallExpression(n, env)
	default:
		return nil, runtime.NewError(runtime.TypeMismatch, "unsupported expression node %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(expr.Operand, env)
	if err != nil {
		return nil, err
	}
	intVal, ok := operand.(runtime.IntegerValue)
	if !ok {
		return nil, runtime.NewError(runtime.TypeMismatch, "the operand of unary '%s' requires an i64 value (got %s)", expr.Operator, operand.Kind())
	}
	switch expr.Operator {
	case "-":
		return runtime.IntegerValue{Val: -intVal.Val}, nil
	default:
		return nil, runtime.NewError(runtime.TypeMismatch, "unsupported unary operator '%s'", expr.Operator)
	}
}

func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "+", "-", "*", "/":
		return evaluateArithmetic(expr.Operator, left, right)
	case "==", "<=", ">=", "<", ">":
		return evaluateComparison(expr.Operator, left, right)
	default:
		return nil, runtime.NewError(runtime.TypeMismatch, "unsupported binary operator '%s'", expr.Operator)
	}
}

// evaluateCallExpression evaluates arguments left to right in the
// caller's scope before the callee's frame exists.
func (i *Interpreter) evaluateCallExpression(call *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	name := call.Callee.Name
	if name == runtime.PrintlnName {
		return i.evaluatePrintln(call, env)
	}

	fn, ok := i.functions[name]
	if !ok {
		return nil, runtime.NewError(runtime.UnknownFunction, "function '%s' is not declared", name)
	}
	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return i.invokeFunction(fn, args)
}

func (i *Interpreter) evaluatePrintln(call *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	if len(call.Arguments) == 0 {
		return nil, runtime.NewError(runtime.Parse, "call to '%s' passes 0 arguments, expected at least a format string", runtime.PrintlnName)
	}
	first, err := i.evaluateExpression(call.Arguments[0], env)
	if err != nil {
		return nil, err
	}
	template, ok := first.(runtime.StringValue)
	if !ok {
		return nil, runtime.NewError(runtime.TypeMismatch, "the format argument of %s requires a string (got %s)", runtime.PrintlnName, first.Kind())
	}

	args := make([]runtime.Value, 0, len(call.Arguments)-1)
	for _, argExpr := range call.Arguments[1:] {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	line, err := runtime.RenderTemplate(template.Val, args)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintln(i.stdout, line); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return runtime.UnitValue{}, nil
}
