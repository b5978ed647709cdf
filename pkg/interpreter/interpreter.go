package interpreter

import (
	"io"
	"os"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/runtime"
)

// DefaultMaxDepth bounds the call stack. Programs that recurse past it
// fail with a StackOverflowError instead of exhausting the host.
const DefaultMaxDepth = 10000

// Interpreter walks a parsed program tree. It owns the function table,
// the output stream for println, and an explicit call-frame stack that
// enforces the depth limit. A fresh run starts with an empty
// environment; only the REPL's top-level scope persists across
// ExecuteStatement calls.
type Interpreter struct {
	functions map[string]*ast.FunctionDecl
	global    *runtime.Environment
	stdout    io.Writer
	frames    []callFrame
	maxDepth  int
}

// callFrame records one active invocation.
type callFrame struct {
	function string
	env      *runtime.Environment
}

// New returns an interpreter writing to standard output.
func New() *Interpreter {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput returns an interpreter writing println lines to w.
func NewWithOutput(w io.Writer) *Interpreter {
	return &Interpreter{
		functions: make(map[string]*ast.FunctionDecl),
		global:    runtime.NewEnvironment(nil),
		stdout:    w,
		maxDepth:  DefaultMaxDepth,
	}
}

// LoadProgram registers every function declaration in program.
func (i *Interpreter) LoadProgram(program *ast.Program) error {
	for _, fn := range program.Functions {
		if err := i.DeclareFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// DeclareFunction adds one function to the table.
func (i *Interpreter) DeclareFunction(fn *ast.FunctionDecl) error {
	name := fn.Name.Name
	if name == runtime.PrintlnName {
		return runtime.NewError(runtime.DuplicateDeclaration, "function '%s' would shadow the builtin of the same name", name)
	}
	if _, exists := i.functions[name]; exists {
		return runtime.NewError(runtime.DuplicateDeclaration, "function '%s' is declared more than once", name)
	}
	i.functions[name] = fn
	return nil
}

// RedeclareFunction adds or replaces one function. REPL sessions use
// it so a definition can be refined in place; file execution goes
// through DeclareFunction, which rejects duplicates.
func (i *Interpreter) RedeclareFunction(fn *ast.FunctionDecl) error {
	name := fn.Name.Name
	if name == runtime.PrintlnName {
		return runtime.NewError(runtime.DuplicateDeclaration, "function '%s' would shadow the builtin of the same name", name)
	}
	i.functions[name] = fn
	return nil
}

// Run invokes the entry function, which must take no parameters and
// declare no return type. It is called exactly once per program run.
func (i *Interpreter) Run(entry string) error {
	fn, ok := i.functions[entry]
	if !ok {
		return runtime.NewError(runtime.UnknownFunction, "entry function '%s' is not declared", entry)
	}
	if len(fn.Params) != 0 {
		return runtime.NewError(runtime.TypeMismatch, "entry function '%s' must not take parameters", entry)
	}
	if fn.ReturnType != nil {
		return runtime.NewError(runtime.TypeMismatch, "entry function '%s' must not declare a return type", entry)
	}
	_, err := i.invokeFunction(fn, nil)
	return err
}

// CallFunction invokes a declared function with integer arguments and
// returns its result. Tests and embedders use it to probe single
// functions without an entry point.
func (i *Interpreter) CallFunction(name string, args ...int64) (runtime.Value, error) {
	fn, ok := i.functions[name]
	if !ok {
		return nil, runtime.NewError(runtime.UnknownFunction, "function '%s' is not declared", name)
	}
	values := make([]runtime.Value, len(args))
	for idx, arg := range args {
		values[idx] = runtime.IntegerValue{Val: arg}
	}
	return i.invokeFunction(fn, values)
}

// ExecuteStatement runs one statement in the interpreter's persistent
// top-level scope, the REPL's working environment. The statement's
// value, when it has one, is returned for echoing.
func (i *Interpreter) ExecuteStatement(stmt ast.Statement) (runtime.Value, error) {
	val, err := i.evaluateStatement(stmt, i.global)
	if err != nil {
		if sig, ok := err.(returnSignal); ok {
			if sig.value != nil {
				return sig.value, nil
			}
			return runtime.UnitValue{}, nil
		}
		return nil, err
	}
	return val, nil
}

// invokeFunction pushes a call frame, binds parameters into a fresh
// environment, and executes the body. Parameters and the body's own
// declarations share the function frame, so re-declaring a parameter
// name collides rather than shadows.
func (i *Interpreter) invokeFunction(fn *ast.FunctionDecl, args []runtime.Value) (runtime.Value, error) {
	name := fn.Name.Name
	if len(args) != len(fn.Params) {
		return nil, runtime.NewError(runtime.Parse, "call to '%s' passes %d arguments, expected %d", name, len(args), len(fn.Params))
	}
	if len(i.frames) >= i.maxDepth {
		return nil, runtime.NewError(runtime.StackOverflow, "call depth exceeded %d frames invoking '%s'", i.maxDepth, name)
	}

	local := runtime.NewEnvironment(nil)
	for idx, param := range fn.Params {
		if err := local.Declare(param.Name.Name, runtime.KindInteger, args[idx]); err != nil {
			return nil, err
		}
	}

	i.frames = append(i.frames, callFrame{function: name, env: local})
	defer func() { i.frames = i.frames[:len(i.frames)-1] }()

	for _, stmt := range fn.Body.Statements {
		if _, err := i.evaluateStatement(stmt, local); err != nil {
			if sig, ok := err.(returnSignal); ok {
				return i.finishReturn(fn, sig)
			}
			return nil, err
		}
	}

	if fn.ReturnType != nil {
		return nil, runtime.NewError(runtime.MissingReturn, "function '%s' ended without returning a value", name)
	}
	return runtime.UnitValue{}, nil
}

func (i *Interpreter) finishReturn(fn *ast.FunctionDecl, sig returnSignal) (runtime.Value, error) {
	name := fn.Name.Name
	if fn.ReturnType == nil {
		if sig.value != nil {
			return nil, runtime.NewError(runtime.TypeMismatch, "function '%s' does not declare a return type", name)
		}
		return runtime.UnitValue{}, nil
	}
	if sig.value == nil {
		return nil, runtime.NewError(runtime.TypeMismatch, "function '%s' must return a value of type %s", name, fn.ReturnType.Name)
	}
	if sig.value.Kind() != runtime.KindInteger {
		return nil, runtime.NewError(runtime.TypeMismatch, "function '%s' must return a value of type %s (got %s)", name, fn.ReturnType.Name, sig.value.Kind())
	}
	return sig.value, nil
}

// returnSignal unwinds a function body. It travels the error channel so
// every statement loop stops on it; invokeFunction absorbs it. A nil
// value marks a bare return.
type returnSignal struct {
	value runtime.Value
}

func (r returnSignal) Error() string { return "return" }

func isTruthy(val runtime.Value) (bool, error) {
	intVal, ok := val.(runtime.IntegerValue)
	if !ok {
		return false, runtime.NewError(runtime.TypeMismatch, "a condition requires an i64 value (got %s)", val.Kind())
	}
	return intVal.Val != 0, nil
}

func evaluateArithmetic(op string, left, right runtime.Value) (runtime.Value, error) {
	lv, lok := left.(runtime.IntegerValue)
	rv, rok := right.(runtime.IntegerValue)
	if !lok || !rok {
		return nil, runtime.NewError(runtime.TypeMismatch, "operator '%s' requires i64 operands (got %s and %s)", op, left.Kind(), right.Kind())
	}
	switch op {
	case "+":
		return runtime.IntegerValue{Val: lv.Val + rv.Val}, nil
	case "-":
		return runtime.IntegerValue{Val: lv.Val - rv.Val}, nil
	case "*":
		return runtime.IntegerValue{Val: lv.Val * rv.Val}, nil
	case "/":
		if rv.Val == 0 {
			return nil, runtime.NewError(runtime.Arithmetic, "division by zero")
		}
		if rv.Val == -1 {
			// MinInt64 / -1 overflows the host division; negation
			// wraps to the same result the other operators give.
			return runtime.IntegerValue{Val: -lv.Val}, nil
		}
		return runtime.IntegerValue{Val: lv.Val / rv.Val}, nil
	default:
		return nil, runtime.NewError(runtime.TypeMismatch, "unsupported arithmetic operator '%s'", op)
	}
}

func evaluateComparison(op string, left, right runtime.Value) (runtime.Value, error) {
	lv, lok := left.(runtime.IntegerValue)
	rv, rok := right.(runtime.IntegerValue)
	if !lok || !rok {
		return nil, runtime.NewError(runtime.TypeMismatch, "operator '%s' requires i64 operands (got %s and %s)", op, left.Kind(), right.Kind())
	}
	var truth bool
	switch op {
	case "==":
		truth = lv.Val == rv.Val
	case "<=":
		truth = lv.Val <= rv.Val
	case ">=":
		truth = lv.Val >= rv.Val
	case "<":
		truth = lv.Val < rv.Val
	case ">":
		truth = lv.Val > rv.Val
	default:
		return nil, runtime.NewError(runtime.TypeMismatch, "unsupported comparison operator '%s'", op)
	}
	if truth {
		return runtime.IntegerValue{Val: 1}, nil
	}
	return runtime.IntegerValue{Val: 0}, nil
}
