package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wave/interpreter-go/pkg/ast"
	"wave/interpreter-go/pkg/lexer"
	"wave/interpreter-go/pkg/parser"
	"wave/interpreter-go/pkg/typechecker"
)

// SourceExtension is the file suffix for Wave sources.
const SourceExtension = ".wave"

// Program couples a checked syntax tree with the source text it came
// from, so later failures can still point into the file.
type Program struct {
	Path   string
	Source string
	AST    *ast.Program
}

// LoadFile reads one source file and runs it through the front half of
// the pipeline: lex, parse, check.
func LoadFile(path string) (*Program, error) {
	if path == "" {
		return nil, fmt.Errorf("loader: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("loader: stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("loader: %s is a directory", abs)
	}
	if filepath.Ext(abs) != SourceExtension {
		return nil, fmt.Errorf("loader: %s is not a %s source file", abs, SourceExtension)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", abs, err)
	}
	return LoadSource(abs, string(data))
}

// LoadSource parses and checks in-memory source. The name labels
// diagnostics; it is usually a file path.
func LoadSource(name, source string) (*Program, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return nil, WrapSourceError(err, name, source)
	}
	checker := typechecker.New()
	diagnostics, err := checker.CheckProgram(program)
	if err != nil {
		return nil, fmt.Errorf("loader: check %s: %w", name, err)
	}
	if len(diagnostics) > 0 {
		return nil, newCheckError(name, diagnostics)
	}
	return &Program{Path: name, Source: source, AST: program}, nil
}

// SourceError carries a positioned lex or parse failure together with a
// rendering that points at the offending source line.
type SourceError struct {
	Name string
	Line int
	Col  int
	Err  error

	rendered string
}

func (e *SourceError) Error() string { return e.rendered }

func (e *SourceError) Unwrap() error { return e.Err }

// WrapSourceError attaches a caret-annotated snippet to lex and parse
// failures. Any other error passes through untouched.
func WrapSourceError(err error, name, source string) error {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return &SourceError{
			Name:     name,
			Line:     lexErr.Line,
			Col:      lexErr.Col,
			Err:      err,
			rendered: renderCaret(source, "LexError", name, lexErr.Line, lexErr.Col, lexErr.Msg),
		}
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return &SourceError{
			Name:     name,
			Line:     parseErr.Line,
			Col:      parseErr.Col,
			Err:      err,
			rendered: renderCaret(source, "ParseError", name, parseErr.Line, parseErr.Col, parseErr.Msg),
		}
	}
	return err
}

// renderCaret builds a snippet with numbered context lines and a caret
// under the 1-based column. Out-of-range coordinates are clamped so a
// stale position still renders something usable.
func renderCaret(source, label, name string, line, col int, msg string) string {
	lines := strings.Split(source, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", label, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", label, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "\n%4d | %s", line+1, lines[line])
	}
	return b.String()
}

// CheckError aggregates the checker's findings for one source unit.
type CheckError struct {
	Name        string
	Diagnostics []Diagnostic
}

func newCheckError(name string, diagnostics []typechecker.Diagnostic) *CheckError {
	out := make([]Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		if d.Err == nil {
			continue
		}
		out = append(out, Diagnostic{
			Severity: SeverityError,
			Message:  d.Err.Error(),
			Location: Location{Path: name},
		})
	}
	return &CheckError{Name: name, Diagnostics: out}
}

func (e *CheckError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("check failed for %s", e.Name)
	}
	lines := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		lines = append(lines, Describe(d))
	}
	return strings.Join(lines, "\n")
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}
