package parser

import (
	"errors"
	"fmt"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/lexer"
)

// ParseError names the expected construct and the actual token found,
// with the found token's 1-based position.
type ParseError struct {
	Line int
	Col  int
	Msg  string

	atEOF bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ParseError at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a parse failure caused by running
// out of input, so that more lines could still complete the form. The
// REPL uses this to decide between continuing a multi-line entry and
// reporting the error.
func IsIncomplete(err error) bool {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return false
	}
	return parseErr.atEOF
}

// Parse scans and parses one complete source unit: a non-empty
// sequence of function declarations. Parsing is all-or-nothing; no
// partial tree is returned alongside an error.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.New(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

// Fragment is the looser REPL parse result: function declarations and
// immediate statements may interleave, in input order.
type Fragment struct {
	Functions  []*ast.FunctionDecl
	Statements []ast.Statement
}

// ParseFragment parses REPL input. Statement terminators may be
// omitted at the very end of the input, so `factorial(5)` works as an
// entry without a trailing semicolon.
func ParseFragment(src string) (*Fragment, error) {
	tokens, err := lexer.New(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, replMode: true}
	frag := &Fragment{}
	for !p.atEnd() {
		if p.check(lexer.FUN) {
			fn, err := p.parseFunctionDecl()
			if err != nil {
				return nil, err
			}
			frag.Functions = append(frag.Functions, fn)
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		frag.Statements = append(frag.Statements, stmt)
	}
	return frag, nil
}

type parser struct {
	tokens   []lexer.Token
	pos      int
	replMode bool
}

// Token basics.

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) prev() lexer.Token { return p.tokens[p.pos-1] }

func (p *parser) atEnd() bool { return p.peek().Type == lexer.EOF }

func (p *parser) check(tt lexer.TokenType) bool { return p.peek().Type == tt }

func (p *parser) match(types ...lexer.TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, tt := range types {
		if p.peek().Type == tt {
			p.pos++
			return true
		}
	}
	return false
}

func (p *parser) expect(tt lexer.TokenType, context string) (lexer.Token, error) {
	if p.match(tt) {
		return p.prev(), nil
	}
	found := p.peek()
	return lexer.Token{}, p.errAt(found, fmt.Sprintf("expected %s %s, found %s", tt, context, found.Describe()))
}

func (p *parser) errAt(tok lexer.Token, msg string) error {
	return &ParseError{Line: tok.Line, Col: tok.Col, Msg: msg, atEOF: tok.Type == lexer.EOF}
}

// endStatement consumes the terminating semicolon. REPL fragments may
// leave it off at the very end of the input.
func (p *parser) endStatement(context string) error {
	if p.match(lexer.SEMICOLON) {
		return nil
	}
	if p.replMode && p.atEnd() {
		return nil
	}
	found := p.peek()
	return p.errAt(found, fmt.Sprintf("expected ';' %s, found %s", context, found.Describe()))
}

// Declarations.

func (p *parser) parseProgram() (*ast.Program, error) {
	functions := make([]*ast.FunctionDecl, 0)
	for !p.atEnd() {
		fn, err := p.parseFunctionDecl()
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	if len(functions) == 0 {
		return nil, p.errAt(p.peek(), "a program needs at least one function declaration")
	}
	return ast.NewProgram(functions), nil
}

func (p *parser) parseFunctionDecl() (*ast.FunctionDecl, error) {
	if _, err := p.expect(lexer.FUN, "at the start of a function declaration"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "as the function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LROUND, "after the function name"); err != nil {
		return nil, err
	}

	params := make([]*ast.Parameter, 0)
	if !p.check(lexer.RROUND) {
		for {
			param, err := p.parseParameter()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RROUND, "after the parameter list"); err != nil {
		return nil, err
	}

	var returnType *ast.TypeName
	if p.match(lexer.ARROW) {
		returnType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDecl(ast.NewIdentifier(nameTok.Lexeme), params, returnType, body), nil
}

func (p *parser) parseParameter() (*ast.Parameter, error) {
	nameTok, err := p.expect(lexer.IDENT, "as a parameter name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "after the parameter name"); err != nil {
		return nil, err
	}
	typeName, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return ast.NewParameter(ast.NewIdentifier(nameTok.Lexeme), typeName), nil
}

func (p *parser) parseType() (*ast.TypeName, error) {
	tok, err := p.expect(lexer.TYPE, "as a type annotation")
	if err != nil {
		return nil, err
	}
	return ast.NewTypeName(tok.Lexeme), nil
}

// Statements.

func (p *parser) parseBlock() (*ast.Block, error) {
	if _, err := p.expect(lexer.LCURLY, "to open a block"); err != nil {
		return nil, err
	}
	statements := make([]ast.Statement, 0)
	for !p.check(lexer.RCURLY) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	if _, err := p.expect(lexer.RCURLY, "to close the block"); err != nil {
		return nil, err
	}
	return ast.NewBlock(statements), nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch p.peek().Type {
	case lexer.VAR:
		return p.parseVarDecl()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.IDENT:
		if p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == lexer.ASSIGN {
			return p.parseAssignment()
		}
		return p.parseExpressionStatement()
	case lexer.INT, lexer.STRING, lexer.MINUS, lexer.LROUND:
		return p.parseExpressionStatement()
	default:
		found := p.peek()
		return nil, p.errAt(found, fmt.Sprintf("expected a statement, found %s", found.Describe()))
	}
}

func (p *parser) parseVarDecl() (ast.Statement, error) {
	if _, err := p.expect(lexer.VAR, "at the start of a variable declaration"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "as the variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON, "after the variable name"); err != nil {
		return nil, err
	}
	typeName, err := p.parseType()
	if err != nil {
		return nil, err
	}

	var initializer ast.Expression
	if p.match(lexer.ASSIGN) {
		initializer, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.endStatement("after the variable declaration"); err != nil {
		return nil, err
	}
	return ast.NewVarDecl(ast.NewIdentifier(nameTok.Lexeme), typeName, initializer), nil
}

func (p *parser) parseAssignment() (ast.Statement, error) {
	nameTok, err := p.expect(lexer.IDENT, "as the assignment target")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN, "after the assignment target"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement("after the assignment"); err != nil {
		return nil, err
	}
	return ast.NewAssignment(ast.NewIdentifier(nameTok.Lexeme), value), nil
}

func (p *parser) parseIfStatement() (ast.Statement, error) {
	if _, err := p.expect(lexer.IF, "at the start of an if statement"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LROUND, "after 'if'"); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RROUND, "after the condition"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseBranch ast.Statement
	if p.match(lexer.ELSE) {
		if p.check(lexer.IF) {
			elseBranch, err = p.parseIfStatement()
		} else {
			elseBranch, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
	}
	return ast.NewIfStatement(condition, then, elseBranch), nil
}

func (p *parser) parseWhileStatement() (ast.Statement, error) {
	if _, err := p.expect(lexer.WHILE, "at the start of a while statement"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LROUND, "after 'while'"); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RROUND, "after the condition"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewWhileStatement(condition, body), nil
}

func (p *parser) parseReturnStatement() (ast.Statement, error) {
	if _, err := p.expect(lexer.RETURN, "at the start of a return statement"); err != nil {
		return nil, err
	}
	var value ast.Expression
	if !p.check(lexer.SEMICOLON) && !p.atEnd() {
		var err error
		value, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.endStatement("after the return statement"); err != nil {
		return nil, err
	}
	return ast.NewReturnStatement(value), nil
}

func (p *parser) parseExpressionStatement() (ast.Statement, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement("after the expression"); err != nil {
		return nil, err
	}
	return expr, nil
}

// Expressions, lowest to highest precedence. All binary operators are
// left-associative.

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseEquality()
}

func (p *parser) parseEquality() (ast.Expression, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.EQ) {
		op := p.prev().Lexeme
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left, nil
}

func (p *parser) parseRelational() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.LESS_EQ, lexer.GREATER_EQ, lexer.LESS, lexer.GREATER) {
		op := p.prev().Lexeme
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left, nil
}

func (p *parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.PLUS, lexer.MINUS) {
		op := p.prev().Lexeme
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.MULT, lexer.DIV) {
		op := p.prev().Lexeme
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expression, error) {
	if p.match(lexer.MINUS) {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression("-", operand), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	switch {
	case p.match(lexer.INT):
		return ast.NewIntegerLiteral(p.prev().Literal.(int64)), nil
	case p.match(lexer.STRING):
		return ast.NewStringLiteral(p.prev().Literal.(string)), nil
	case p.match(lexer.IDENT):
		name := p.prev().Lexeme
		if p.check(lexer.LROUND) {
			return p.parseCallArguments(ast.NewIdentifier(name))
		}
		return ast.NewIdentifier(name), nil
	case p.match(lexer.LROUND):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RROUND, "after the parenthesized expression"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		found := p.peek()
		return nil, p.errAt(found, fmt.Sprintf("expected an expression, found %s", found.Describe()))
	}
}

func (p *parser) parseCallArguments(callee *ast.Identifier) (ast.Expression, error) {
	if _, err := p.expect(lexer.LROUND, "to open the argument list"); err != nil {
		return nil, err
	}
	args := make([]ast.Expression, 0)
	if !p.check(lexer.RROUND) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RROUND, "after the argument list"); err != nil {
		return nil, err
	}
	return ast.NewCallExpression(callee, args), nil
}
