package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wave/interpreter-go/pkg/parser"
)

func TestLoadSourcePipeline(t *testing.T) {
	source := "fun main() {\n    println(\"{}\", 42);\n}\n"

	program, err := LoadSource("main.wave", source)
	if err != nil {
		t.Fatalf("LoadSource returned error: %v", err)
	}
	if program.Path != "main.wave" {
		t.Fatalf("Path = %q, want main.wave", program.Path)
	}
	if program.Source != source {
		t.Fatalf("Source not preserved")
	}
	if program.AST == nil || len(program.AST.Functions) != 1 {
		t.Fatalf("AST not populated: %#v", program.AST)
	}
}

func TestLoadSourceParseCaret(t *testing.T) {
	source := "fun main() {\n    var x: i64 = 1\n}"

	_, err := LoadSource("main.wave", source)
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}

	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected *SourceError, got %T: %v", err, err)
	}
	if srcErr.Line != 3 || srcErr.Col != 1 {
		t.Fatalf("position = %d:%d, want 3:1", srcErr.Line, srcErr.Col)
	}
	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("SourceError should unwrap to *parser.ParseError, got %v", err)
	}

	want := strings.Join([]string{
		"ParseError in main.wave at 3:1: expected ';' after the variable declaration, found '}'",
		"",
		"   2 |     var x: i64 = 1",
		"   3 | }",
		"     | ^",
	}, "\n")
	if got := err.Error(); got != want {
		t.Fatalf("snippet mismatch\nexpected:\n%s\n   actual:\n%s", want, got)
	}
}

func TestLoadSourceLexCaret(t *testing.T) {
	source := "fun main() {\n    var x: i64 = 5 % 2;\n}"

	_, err := LoadSource("calc.wave", source)
	if err == nil {
		t.Fatal("expected lex error, got nil")
	}

	want := strings.Join([]string{
		"LexError in calc.wave at 2:20: unexpected character '%'",
		"",
		"   1 | fun main() {",
		"   2 |     var x: i64 = 5 % 2;",
		"     | " + strings.Repeat(" ", 19) + "^",
		"   3 | }",
	}, "\n")
	if got := err.Error(); got != want {
		t.Fatalf("snippet mismatch\nexpected:\n%s\n   actual:\n%s", want, got)
	}
}

func TestLoadSourceCheckDiagnostics(t *testing.T) {
	source := "fun f(n: i64) -> i64 {\n    return n;\n}\n\nfun main() {\n    f(1, 2);\n}\n"

	_, err := LoadSource("main.wave", source)
	if err == nil {
		t.Fatal("expected check error, got nil")
	}

	var checkErr *CheckError
	if !errors.As(err, &checkErr) {
		t.Fatalf("expected *CheckError, got %T: %v", err, err)
	}
	if len(checkErr.Diagnostics) != 1 {
		t.Fatalf("expected a single diagnostic, got %#v", checkErr.Diagnostics)
	}
	want := "error: main.wave: ParseError: call to 'f' passes 2 arguments, expected 1"
	if got := Describe(checkErr.Diagnostics[0]); got != want {
		t.Fatalf("Describe = %q, want %q", got, want)
	}
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapSourceErrorPassthrough(t *testing.T) {
	original := errors.New("boom")
	if got := WrapSourceError(original, "x.wave", "source"); got != original {
		t.Fatalf("unpositioned errors must pass through, got %v", got)
	}
}

func TestLoadFileReadsAndChecks(t *testing.T) {
	source := "fun square(n: i64) -> i64 {\n    return n * n;\n}\n\nfun main() {\n    println(\"{}\", square(7));\n}\n"
	path := filepath.Join(t.TempDir(), "squares.wave")
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	program, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if program.Path != path {
		t.Fatalf("Path = %q, want %q", program.Path, path)
	}
	if len(program.AST.Functions) != 2 {
		t.Fatalf("function count = %d, want 2", len(program.AST.Functions))
	}
}

func TestLoadFileRejectsDirectory(t *testing.T) {
	_, err := LoadFile(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestLoadFileRejectsOtherExtensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.txt")
	if err := os.WriteFile(path, []byte("fun main() {}\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "is not a .wave source file") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.wave")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
