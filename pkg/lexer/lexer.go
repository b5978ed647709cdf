package lexer

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota

	// Literals & identifiers
	IDENT
	INT
	STRING
	TYPE

	// Keywords
	FUN
	VAR
	IF
	ELSE
	WHILE
	RETURN

	// Operators
	PLUS
	MINUS
	MULT
	DIV
	ASSIGN // "="
	EQ     // "=="
	LESS
	LESS_EQ
	GREATER
	GREATER_EQ
	ARROW // "->"

	// Punctuation
	LROUND
	RROUND
	LCURLY
	RCURLY
	COMMA
	COLON
	SEMICOLON
)

var tokenNames = map[TokenType]string{
	EOF:        "end of input",
	IDENT:      "identifier",
	INT:        "integer literal",
	STRING:     "string literal",
	TYPE:       "type name",
	FUN:        "'fun'",
	VAR:        "'var'",
	IF:         "'if'",
	ELSE:       "'else'",
	WHILE:      "'while'",
	RETURN:     "'return'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	MULT:       "'*'",
	DIV:        "'/'",
	ASSIGN:     "'='",
	EQ:         "'=='",
	LESS:       "'<'",
	LESS_EQ:    "'<='",
	GREATER:    "'>'",
	GREATER_EQ: "'>='",
	ARROW:      "'->'",
	LROUND:     "'('",
	RROUND:     "')'",
	LCURLY:     "'{'",
	RCURLY:     "'}'",
	COMMA:      "','",
	COLON:      "':'",
	SEMICOLON:  "';'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical token with optional literal value.
type Token struct {
	Type    TokenType
	Lexeme  string      // raw text slice
	Literal interface{} // int64 for INT, decoded string for STRING
	Line    int         // 1-based
	Col     int         // 1-based
}

// Describe renders the token for diagnostics: the quoted lexeme, or the
// class name when there is no useful text to quote.
func (t Token) Describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case STRING:
		return "string literal"
	default:
		return fmt.Sprintf("'%s'", t.Lexeme)
	}
}

var keywords = map[string]TokenType{
	"fun":    FUN,
	"var":    VAR,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
	"i64":    TYPE,
}

// LexError reports an unrecognized character, a malformed literal, or
// an unterminated string, with its 1-based source position.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LexError at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Lexer scans a source string into tokens in a single forward pass.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int
	col    int
	tokens []Token

	tokStartLine int
	tokStartCol  int
}

// New creates a lexer for the given source.
func New(src string) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		col:  1,
	}
}

// Scan tokenizes the entire source. The returned slice always ends with
// an EOF token when err is nil.
func (l *Lexer) Scan() ([]Token, error) {
	for {
		l.skipWhitespaceAndComments()
		l.start = l.cur
		l.tokStartLine = l.line
		l.tokStartCol = l.col

		if l.isAtEnd() {
			l.addToken(EOF, nil)
			return l.tokens, nil
		}

		ch, _ := l.advance()
		switch {
		case isDigit(ch):
			if err := l.scanNumber(); err != nil {
				return nil, err
			}
		case isAlpha(ch):
			l.scanIdentifier()
		case ch == '"':
			if err := l.scanString(); err != nil {
				return nil, err
			}
		default:
			if err := l.scanOperator(ch); err != nil {
				return nil, err
			}
		}
	}
}

func (l *Lexer) scanOperator(ch byte) error {
	switch ch {
	case '+':
		l.addToken(PLUS, nil)
	case '-':
		if l.match('>') {
			l.addToken(ARROW, nil)
		} else {
			l.addToken(MINUS, nil)
		}
	case '*':
		l.addToken(MULT, nil)
	case '/':
		l.addToken(DIV, nil)
	case '=':
		if l.match('=') {
			l.addToken(EQ, nil)
		} else {
			l.addToken(ASSIGN, nil)
		}
	case '<':
		if l.match('=') {
			l.addToken(LESS_EQ, nil)
		} else {
			l.addToken(LESS, nil)
		}
	case '>':
		if l.match('=') {
			l.addToken(GREATER_EQ, nil)
		} else {
			l.addToken(GREATER, nil)
		}
	case '(':
		l.addToken(LROUND, nil)
	case ')':
		l.addToken(RROUND, nil)
	case '{':
		l.addToken(LCURLY, nil)
	case '}':
		l.addToken(RCURLY, nil)
	case ',':
		l.addToken(COMMA, nil)
	case ':':
		l.addToken(COLON, nil)
	case ';':
		l.addToken(SEMICOLON, nil)
	default:
		return l.errAtTokenStart(fmt.Sprintf("unexpected character %q", rune(ch)))
	}
	return nil
}

// scanNumber parses a decimal integer literal. Negative values come
// from unary minus in the grammar, never from the literal itself.
func (l *Lexer) scanNumber() error {
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}
	lexeme := l.src[l.start:l.cur]
	value, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return l.errAtTokenStart(fmt.Sprintf("integer literal %s out of range", lexeme))
	}
	l.addToken(INT, value)
	return nil
}

// scanIdentifier parses [A-Za-z_][A-Za-z0-9_]* and classifies keywords
// and type names via the keywords map.
func (l *Lexer) scanIdentifier() {
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
	}
	lexeme := l.src[l.start:l.cur]
	if tt, ok := keywords[lexeme]; ok {
		l.addToken(tt, nil)
		return
	}
	l.addToken(IDENT, nil)
}

// scanString parses a double-quoted template literal. Templates are
// single-line; a newline before the closing quote is an error.
func (l *Lexer) scanString() error {
	var out []byte
	for {
		b, ok := l.peek()
		if !ok {
			return l.errAtTokenStart("unterminated string literal")
		}
		if b == '\n' {
			return l.errAtTokenStart("unterminated string literal")
		}
		l.advance()
		if b == '"' {
			l.addToken(STRING, string(out))
			return nil
		}
		if b == '\\' {
			esc, ok := l.peek()
			if !ok {
				return l.errAtTokenStart("unterminated string literal")
			}
			l.advance()
			switch esc {
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				return l.errAt(l.line, l.col-2, fmt.Sprintf("invalid escape sequence \\%c", esc))
			}
			continue
		}
		out = append(out, b)
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch ch {
		case ' ', '\r', '\n', '\t':
			l.advance()
		case '/':
			next, ok := l.peekN(1)
			if !ok || next != '/' {
				return
			}
			for {
				b, ok := l.peek()
				if !ok || b == '\n' {
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch, true
}

// match consumes the next byte when it equals expected.
func (l *Lexer) match(expected byte) bool {
	b, ok := l.peek()
	if !ok || b != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) {
	l.tokens = append(l.tokens, Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.cur],
		Literal: lit,
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
	})
	l.start = l.cur
}

func (l *Lexer) errAtTokenStart(msg string) error {
	return l.errAt(l.tokStartLine, l.tokStartCol, msg)
}

func (l *Lexer) errAt(line, col int, msg string) error {
	return &LexError{Line: line, Col: col, Msg: msg}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '_'
}
