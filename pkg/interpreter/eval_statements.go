package interpreter

import (
	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateStatement(node ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case ast.Expression:
		return i.evaluateExpression(n, env)
	case *ast.VarDecl:
		return i.evaluateVarDecl(n, env)
	case *ast.Assignment:
		return i.evaluateAssignment(n, env)
	case *ast.IfStatement:
		return i.evaluateIfStatement(n, env)
	case *ast.WhileStatement:
		return i.evaluateWhileLoop(n, env)
	case *ast.ReturnStatement:
		return i.evaluateReturnStatement(n, env)
	case *ast.Block:
		return i.evaluateBlock(n, env)
	default:
		return nil, runtime.NewError(runtime.TypeMismatch, "unsupported statement node %s", n.NodeType())
	}
}

// evaluateBlock runs statements in a fresh child scope, dropped when
// the block exits.
func (i *Interpreter) evaluateBlock(block *ast.Block, env *runtime.Environment) (runtime.Value, error) {
	scope := runtime.NewEnvironment(env)
	for _, stmt := range block.Statements {
		if _, err := i.evaluateStatement(stmt, scope); err != nil {
			return nil, err
		}
	}
	return runtime.UnitValue{}, nil
}

func (i *Interpreter) evaluateVarDecl(decl *ast.VarDecl, env *runtime.Environment) (runtime.Value, error) {
	var value runtime.Value
	if decl.Initializer != nil {
		val, err := i.evaluateExpression(decl.Initializer, env)
		if err != nil {
			return nil, err
		}
		value = val
	}
	if err := env.Declare(decl.Name.Name, runtime.KindInteger, value); err != nil {
		return nil, err
	}
	return runtime.UnitValue{}, nil
}

func (i *Interpreter) evaluateAssignment(stmt *ast.Assignment, env *runtime.Environment) (runtime.Value, error) {
	value, err := i.evaluateExpression(stmt.Value, env)
	if err != nil {
		return nil, err
	}
	if err := env.Assign(stmt.Target.Name, value); err != nil {
		return nil, err
	}
	return runtime.UnitValue{}, nil
}

func (i *Interpreter) evaluateIfStatement(stmt *ast.IfStatement, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateExpression(stmt.Condition, env)
	if err != nil {
		return nil, err
	}
	truthy, err := isTruthy(cond)
	if err != nil {
		return nil, err
	}
	if truthy {
		return i.evaluateBlock(stmt.Then, env)
	}
	if stmt.Else != nil {
		// Else is either a block or the next link of an else-if chain.
		return i.evaluateStatement(stmt.Else, env)
	}
	return runtime.UnitValue{}, nil
}

// evaluateWhileLoop re-tests the condition before every iteration and
// runs each iteration's body in its own scope, so declarations inside
// the body do not persist across iterations.
func (i *Interpreter) evaluateWhileLoop(loop *ast.WhileStatement, env *runtime.Environment) (runtime.Value, error) {
	for {
		cond, err := i.evaluateExpression(loop.Condition, env)
		if err != nil {
			return nil, err
		}
		truthy, err := isTruthy(cond)
		if err != nil {
			return nil, err
		}
		if !truthy {
			return runtime.UnitValue{}, nil
		}
		if _, err := i.evaluateBlock(loop.Body, env); err != nil {
			return nil, err
		}
	}
}

func (i *Interpreter) evaluateReturnStatement(stmt *ast.ReturnStatement, env *runtime.Environment) (runtime.Value, error) {
	if stmt.Value == nil {
		return nil, returnSignal{}
	}
	val, err := i.evaluateExpression(stmt.Value, env)
	if err != nil {
		return nil, err
	}
	return nil, returnSignal{value: val}
}
