package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestReplSessionEchoesExpressionValues(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("fun double(n: i64) -> i64 { return n * 2; }")
	if buf.Len() != 0 {
		t.Fatalf("function definition should produce no output, got %q", buf.String())
	}

	session.Eval("double(21)")
	if got := buf.String(); got != "= 42\n" {
		t.Fatalf("expression echo = %q, want %q", got, "= 42\n")
	}
}

func TestReplSessionSupportsRedefinition(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("fun answer() -> i64 { return 1; }")
	session.Eval("answer()")
	if got := buf.String(); got != "= 1\n" {
		t.Fatalf("first call echo = %q, want %q", got, "= 1\n")
	}

	buf.Reset()
	session.Eval("fun answer() -> i64 { return 2; }")
	session.Eval("answer()")
	if got := buf.String(); got != "= 2\n" {
		t.Fatalf("redefined call echo = %q, want %q", got, "= 2\n")
	}
}

func TestReplSessionPersistsVariables(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("var total: i64 = 2;")
	session.Eval("total = total + 3;")
	if buf.Len() != 0 {
		t.Fatalf("declarations and assignments should not echo, got %q", buf.String())
	}

	session.Eval("total")
	if got := buf.String(); got != "= 5\n" {
		t.Fatalf("variable echo = %q, want %q", got, "= 5\n")
	}
}

func TestReplSessionMixedFragment(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("fun triple(n: i64) -> i64 { return n * 3; }\nvar seed: i64 = 7;\ntriple(seed)")
	if got := buf.String(); got != "= 21\n" {
		t.Fatalf("mixed fragment echo = %q, want %q", got, "= 21\n")
	}
}

func TestReplSessionPrintlnIsNotEchoed(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval(`println("{}", 7)`)
	if got := buf.String(); got != "7\n" {
		t.Fatalf("println output = %q, want %q", got, "7\n")
	}
}

func TestReplSessionReportsParseErrors(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("var;")
	if got := buf.String(); !strings.Contains(got, "ParseError at") {
		t.Fatalf("expected parse error report, got %q", got)
	}
}

func TestReplSessionReportsCheckerDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("missing()")
	if got := buf.String(); !strings.Contains(got, "function 'missing' is not declared") {
		t.Fatalf("expected unknown function diagnostic, got %q", got)
	}
	if strings.Contains(buf.String(), "= ") {
		t.Fatalf("diagnosed statement must not echo a value, got %q", buf.String())
	}
}

func TestReplSessionReportsRuntimeErrors(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("1 / 0")
	if got := buf.String(); !strings.Contains(got, "ArithmeticError: division by zero") {
		t.Fatalf("expected runtime error report, got %q", got)
	}
}

func TestReplSessionRejectsBuiltinShadow(t *testing.T) {
	var buf bytes.Buffer
	session := newReplSession(&buf)

	session.Eval("fun println() { }")
	if got := buf.String(); !strings.Contains(got, "would shadow the builtin") {
		t.Fatalf("expected builtin shadow diagnostic, got %q", got)
	}
}

func TestRunReplRejectsArguments(t *testing.T) {
	code, _, stderr := captureCLI(t, []string{"repl", "extra"})
	if code != 2 {
		t.Fatalf("repl exited %d, want 2", code)
	}
	if !strings.Contains(stderr, "does not take arguments") {
		t.Fatalf("expected usage error, got %q", stderr)
	}
}
