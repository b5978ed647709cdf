package ast

// Builder helpers used heavily by tests; each wraps a New* constructor
// with a terser spelling.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Ty(name string) *TypeName {
	return NewTypeName(name)
}

// I64 is the annotation every declaration in the sample programs uses.
func I64() *TypeName {
	return Ty(TypeI64)
}

// Expression helpers.

func Un(operator string, operand Expression) *UnaryExpression {
	return NewUnaryExpression(operator, operand)
}

func Neg(operand Expression) *UnaryExpression {
	return Un("-", operand)
}

func Bin(operator string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(operator, left, right)
}

func Call(name string, args ...Expression) *CallExpression {
	return NewCallExpression(ID(name), args)
}

// Statement helpers.

func Blk(statements ...Statement) *Block {
	return NewBlock(statements)
}

func Var(name string, initializer Expression) *VarDecl {
	return NewVarDecl(ID(name), I64(), initializer)
}

func VarUninit(name string) *VarDecl {
	return NewVarDecl(ID(name), I64(), nil)
}

func Assign(name string, value Expression) *Assignment {
	return NewAssignment(ID(name), value)
}

func If(condition Expression, then *Block) *IfStatement {
	return NewIfStatement(condition, then, nil)
}

func IfElse(condition Expression, then *Block, elseBranch Statement) *IfStatement {
	return NewIfStatement(condition, then, elseBranch)
}

func While(condition Expression, body *Block) *WhileStatement {
	return NewWhileStatement(condition, body)
}

func Ret(value Expression) *ReturnStatement {
	return NewReturnStatement(value)
}

func RetVoid() *ReturnStatement {
	return NewReturnStatement(nil)
}

// Declaration helpers.

func Param(name string) *Parameter {
	return NewParameter(ID(name), I64())
}

func Params(names ...string) []*Parameter {
	out := make([]*Parameter, 0, len(names))
	for _, name := range names {
		out = append(out, Param(name))
	}
	return out
}

// Fn declares a function returning i64.
func Fn(name string, params []*Parameter, body ...Statement) *FunctionDecl {
	return NewFunctionDecl(ID(name), params, I64(), NewBlock(body))
}

// FnVoid declares a function with no return type, the shape the entry
// function must have.
func FnVoid(name string, params []*Parameter, body ...Statement) *FunctionDecl {
	return NewFunctionDecl(ID(name), params, nil, NewBlock(body))
}

func Prog(functions ...*FunctionDecl) *Program {
	return NewProgram(functions)
}
