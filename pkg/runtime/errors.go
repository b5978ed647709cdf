package runtime

import "fmt"

// ErrorKind enumerates the failure categories evaluation can raise.
// Each renders as the diagnostic label the CLI reports.
type ErrorKind int

const (
	UndeclaredVariable ErrorKind = iota
	DuplicateDeclaration
	UninitializedVariable
	TypeMismatch
	Arithmetic
	MissingReturn
	Format
	UnknownFunction
	StackOverflow

	// Parse tags call-shape violations found by the static checker,
	// which reports them under the same label the parser uses.
	Parse
)

func (k ErrorKind) String() string {
	switch k {
	case UndeclaredVariable:
		return "UndeclaredVariableError"
	case DuplicateDeclaration:
		return "DuplicateDeclarationError"
	case UninitializedVariable:
		return "UninitializedVariableError"
	case TypeMismatch:
		return "TypeMismatchError"
	case Arithmetic:
		return "ArithmeticError"
	case MissingReturn:
		return "MissingReturnError"
	case Format:
		return "FormatError"
	case UnknownFunction:
		return "UnknownFunctionError"
	case StackOverflow:
		return "StackOverflowError"
	case Parse:
		return "ParseError"
	default:
		return fmt.Sprintf("RuntimeError(%d)", int(k))
	}
}

// Error is an evaluation failure. Every Error aborts the run; there is
// no recovery inside the language.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
