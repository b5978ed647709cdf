package ast

type NodeType string

const (
	NodeProgram             NodeType = "Program"
	NodeFunctionDecl        NodeType = "FunctionDecl"
	NodeParameter           NodeType = "Parameter"
	NodeTypeName            NodeType = "TypeName"
	NodeBlock               NodeType = "Block"
	NodeVarDecl             NodeType = "VarDecl"
	NodeAssignment          NodeType = "Assignment"
	NodeIfStatement         NodeType = "IfStatement"
	NodeWhileStatement      NodeType = "WhileStatement"
	NodeReturnStatement     NodeType = "ReturnStatement"
	NodeIdentifier          NodeType = "Identifier"
	NodeIntegerLiteral      NodeType = "IntegerLiteral"
	NodeStringLiteral       NodeType = "StringLiteral"
	NodeUnaryExpression     NodeType = "UnaryExpression"
	NodeBinaryExpression    NodeType = "BinaryExpression"
	NodeCallExpression      NodeType = "CallExpression"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// TypeName names a declared type. The language has a single concrete
// type, i64, but annotations stay explicit in the tree so the checker
// works from what the source said rather than from an assumption.
type TypeName struct {
	nodeImpl

	Name string `json:"name"`
}

func NewTypeName(name string) *TypeName {
	return &TypeName{nodeImpl: newNodeImpl(NodeTypeName), Name: name}
}

// TypeI64 is the sole value type a program can declare.
const TypeI64 = "i64"

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value int64 `json:"value"`
}

func NewIntegerLiteral(value int64) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

// StringLiteral only ever appears as the template argument of a print
// call; strings are not storable values.
type StringLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

// Expressions

type UnaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

type CallExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee    *Identifier  `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewCallExpression(callee *Identifier, arguments []Expression) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Callee: callee, Arguments: arguments}
}

// Statements

type Block struct {
	nodeImpl
	statementMarker

	Statements []Statement `json:"statements"`
}

func NewBlock(statements []Statement) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Statements: statements}
}

// VarDecl declares a typed variable. Initializer is nil when the
// declaration carries no `= expr`; such a binding must be assigned
// before its first read.
type VarDecl struct {
	nodeImpl
	statementMarker

	Name        *Identifier `json:"name"`
	Type        *TypeName   `json:"varType"`
	Initializer Expression  `json:"initializer,omitempty"`
}

func NewVarDecl(name *Identifier, typeName *TypeName, initializer Expression) *VarDecl {
	return &VarDecl{nodeImpl: newNodeImpl(NodeVarDecl), Name: name, Type: typeName, Initializer: initializer}
}

type Assignment struct {
	nodeImpl
	statementMarker

	Target *Identifier `json:"target"`
	Value  Expression  `json:"value"`
}

func NewAssignment(target *Identifier, value Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Target: target, Value: value}
}

// IfStatement's Else is nil, a *Block, or another *IfStatement (an
// `else if` chain).
type IfStatement struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Then      *Block     `json:"then"`
	Else      Statement  `json:"else,omitempty"`
}

func NewIfStatement(condition Expression, then *Block, elseBranch Statement) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: condition, Then: then, Else: elseBranch}
}

type WhileStatement struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Body      *Block     `json:"body"`
}

func NewWhileStatement(condition Expression, body *Block) *WhileStatement {
	return &WhileStatement{nodeImpl: newNodeImpl(NodeWhileStatement), Condition: condition, Body: body}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnStatement(value Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Value: value}
}

// Declarations

type Parameter struct {
	nodeImpl

	Name *Identifier `json:"name"`
	Type *TypeName   `json:"paramType"`
}

func NewParameter(name *Identifier, typeName *TypeName) *Parameter {
	return &Parameter{nodeImpl: newNodeImpl(NodeParameter), Name: name, Type: typeName}
}

// FunctionDecl's ReturnType is nil for functions that produce no value.
type FunctionDecl struct {
	nodeImpl

	Name       *Identifier  `json:"name"`
	Params     []*Parameter `json:"params"`
	ReturnType *TypeName    `json:"returnType,omitempty"`
	Body       *Block       `json:"body"`
}

func NewFunctionDecl(name *Identifier, params []*Parameter, returnType *TypeName, body *Block) *FunctionDecl {
	return &FunctionDecl{nodeImpl: newNodeImpl(NodeFunctionDecl), Name: name, Params: params, ReturnType: returnType, Body: body}
}

// Program is the parse result: the ordered function declarations of
// one source unit.
type Program struct {
	nodeImpl

	Functions []*FunctionDecl `json:"functions"`
}

func NewProgram(functions []*FunctionDecl) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Functions: functions}
}
