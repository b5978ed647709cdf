package typechecker

import (
	"fmt"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/runtime"
)

// Checker validates a parsed program against the callable surface it
// declares, so that a malformed program fails before producing any
// output. It verifies call shapes, expression types, return-statement
// placement, and println format strings. Variable scoping stays a
// runtime concern; the evaluator's environment reports it.
type Checker struct {
	functions map[string]*ast.FunctionDecl
}

// Diagnostic pairs a reported error with the node that raised it.
type Diagnostic struct {
	Err  *runtime.Error
	Node ast.Node
}

// New returns a checker with an empty function table.
func New() *Checker {
	return &Checker{functions: make(map[string]*ast.FunctionDecl)}
}

// Functions exposes the declared function table, keyed by name.
func (c *Checker) Functions() map[string]*ast.FunctionDecl {
	return c.functions
}

// CheckProgram validates a whole program. The function table is built
// first, so bodies may call functions declared later in the file.
func (c *Checker) CheckProgram(program *ast.Program) ([]Diagnostic, error) {
	if program == nil {
		return nil, fmt.Errorf("typechecker: program is nil")
	}
	var diagnostics []Diagnostic
	for _, fn := range program.Functions {
		diagnostics = append(diagnostics, c.DeclareFunction(fn)...)
	}
	for _, fn := range program.Functions {
		diagnostics = append(diagnostics, c.checkBlock(fn, fn.Body)...)
	}
	return diagnostics, nil
}

// DeclareFunction records fn in the table and validates its signature.
// The first declaration of a name wins; later ones are reported and
// discarded.
func (c *Checker) DeclareFunction(fn *ast.FunctionDecl) []Diagnostic {
	var diags []Diagnostic
	name := fn.Name.Name
	if name == runtime.PrintlnName {
		return append(diags, Diagnostic{
			Err:  runtime.NewError(runtime.DuplicateDeclaration, "function '%s' would shadow the builtin of the same name", name),
			Node: fn,
		})
	}
	if _, exists := c.functions[name]; exists {
		return append(diags, Diagnostic{
			Err:  runtime.NewError(runtime.DuplicateDeclaration, "function '%s' is declared more than once", name),
			Node: fn,
		})
	}

	seen := make(map[string]struct{}, len(fn.Params))
	for _, param := range fn.Params {
		if _, dup := seen[param.Name.Name]; dup {
			diags = append(diags, Diagnostic{
				Err:  runtime.NewError(runtime.DuplicateDeclaration, "parameter '%s' appears twice in function '%s'", param.Name.Name, name),
				Node: param,
			})
		}
		seen[param.Name.Name] = struct{}{}
	}

	c.functions[name] = fn
	return diags
}

// CheckStatement validates one statement outside any function body, the
// shape REPL input takes. Valued returns have no function to return
// from, so they are rejected here.
func (c *Checker) CheckStatement(stmt ast.Statement) []Diagnostic {
	return c.checkStatement(nil, stmt)
}

// CheckFunction validates fn's signature and body, replacing any
// earlier definition of the same name. REPL sessions use it so a
// definition can be refined; whole programs go through CheckProgram,
// which rejects duplicates. The table is updated before the body is
// checked so recursive calls see the new signature.
func (c *Checker) CheckFunction(fn *ast.FunctionDecl) []Diagnostic {
	var diags []Diagnostic
	name := fn.Name.Name
	if name == runtime.PrintlnName {
		return append(diags, Diagnostic{
			Err:  runtime.NewError(runtime.DuplicateDeclaration, "function '%s' would shadow the builtin of the same name", name),
			Node: fn,
		})
	}

	seen := make(map[string]struct{}, len(fn.Params))
	for _, param := range fn.Params {
		if _, dup := seen[param.Name.Name]; dup {
			diags = append(diags, Diagnostic{
				Err:  runtime.NewError(runtime.DuplicateDeclaration, "parameter '%s' appears twice in function '%s'", param.Name.Name, name),
				Node: param,
			})
		}
		seen[param.Name.Name] = struct{}{}
	}

	c.functions[name] = fn
	return append(diags, c.checkBlock(fn, fn.Body)...)
}

func (c *Checker) checkBlock(fn *ast.FunctionDecl, block *ast.Block) []Diagnostic {
	var diags []Diagnostic
	for _, stmt := range block.Statements {
		diags = append(diags, c.checkStatement(fn, stmt)...)
	}
	return diags
}

func (c *Checker) checkStatement(fn *ast.FunctionDecl, stmt ast.Statement) []Diagnostic {
	switch s := stmt.(type) {
	case ast.Expression:
		diags, typ := c.checkExpression(s)
		if typ == typeString {
			diags = append(diags, Diagnostic{
				Err:  runtime.NewError(runtime.TypeMismatch, "a string literal may only appear as the format argument of %s", runtime.PrintlnName),
				Node: s,
			})
		}
		return diags
	case *ast.VarDecl:
		if s.Initializer == nil {
			return nil
		}
		return c.requireI64(s.Initializer, fmt.Sprintf("the initializer of '%s'", s.Name.Name))
	case *ast.Assignment:
		return c.requireI64(s.Value, fmt.Sprintf("the value assigned to '%s'", s.Target.Name))
	case *ast.IfStatement:
		diags := c.requireI64(s.Condition, "the condition of 'if'")
		diags = append(diags, c.checkBlock(fn, s.Then)...)
		if s.Else != nil {
			diags = append(diags, c.checkStatement(fn, s.Else)...)
		}
		return diags
	case *ast.WhileStatement:
		diags := c.requireI64(s.Condition, "the condition of 'while'")
		return append(diags, c.checkBlock(fn, s.Body)...)
	case *ast.ReturnStatement:
		return c.checkReturn(fn, s)
	case *ast.Block:
		return c.checkBlock(fn, s)
	default:
		return []Diagnostic{{
			Err:  runtime.NewError(runtime.TypeMismatch, "unsupported statement node %T", stmt),
			Node: stmt,
		}}
	}
}

func (c *Checker) checkReturn(fn *ast.FunctionDecl, ret *ast.ReturnStatement) []Diagnostic {
	if fn == nil {
		if ret.Value == nil {
			return nil
		}
		return []Diagnostic{{
			Err:  runtime.NewError(runtime.TypeMismatch, "cannot return a value outside a function"),
			Node: ret,
		}}
	}
	if fn.ReturnType == nil && ret.Value != nil {
		diags := []Diagnostic{{
			Err:  runtime.NewError(runtime.TypeMismatch, "function '%s' does not declare a return type", fn.Name.Name),
			Node: ret,
		}}
		moreDiags, _ := c.checkExpression(ret.Value)
		return append(diags, moreDiags...)
	}
	if fn.ReturnType != nil && ret.Value == nil {
		return []Diagnostic{{
			Err:  runtime.NewError(runtime.TypeMismatch, "function '%s' must return a value of type %s", fn.Name.Name, fn.ReturnType.Name),
			Node: ret,
		}}
	}
	if ret.Value != nil {
		return c.requireI64(ret.Value, fmt.Sprintf("the return value of '%s'", fn.Name.Name))
	}
	return nil
}
