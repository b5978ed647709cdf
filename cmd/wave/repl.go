package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"wave/interpreter-go/pkg/interpreter"
	"wave/interpreter-go/pkg/parser"
	"wave/interpreter-go/pkg/runtime"
	"wave/interpreter-go/pkg/typechecker"
)

const (
	historyFileName = ".wave_history"
	replPrompt      = "wave> "
	replContinue    = "  ... "
)

func runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "wave repl does not take arguments (received %s)\n", strings.Join(args, " "))
		return 2
	}

	fmt.Fprintln(os.Stdout, cliToolVersion)
	fmt.Fprintln(os.Stdout, "Functions persist across entries; Ctrl+D exits.")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	session := newReplSession(os.Stdout)
	for {
		src, ok := readReplInput(ln)
		if !ok {
			fmt.Fprintln(os.Stdout)
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		session.Eval(src)
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return 0
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}

// readReplInput collects one entry, prompting for continuation lines
// while the parse still wants more input. Ctrl+C abandons the pending
// entry; Ctrl+D ends the session.
func readReplInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := replPrompt
		if b.Len() > 0 {
			prompt = replContinue
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if errors.Is(err, io.EOF) || err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.TrimSpace(src) == "" {
			return src, true
		}
		if _, err := parser.ParseFragment(src); err != nil && parser.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

// replSession is the persistent state behind the prompt: one checker
// and one interpreter that accumulate definitions and top-level
// bindings across entries.
type replSession struct {
	checker *typechecker.Checker
	interp  *interpreter.Interpreter
	out     io.Writer
}

func newReplSession(out io.Writer) *replSession {
	return &replSession{
		checker: typechecker.New(),
		interp:  interpreter.NewWithOutput(out),
		out:     out,
	}
}

// Eval parses one entry and feeds it through the session. Function
// declarations replace earlier definitions of the same name; bare
// statements run against the session's top-level frame, and integer
// results echo as `= <value>`.
func (s *replSession) Eval(src string) {
	frag, err := parser.ParseFragment(src)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}

	for _, fn := range frag.Functions {
		if diags := s.checker.CheckFunction(fn); len(diags) > 0 {
			s.reportDiagnostics(diags)
			return
		}
		if err := s.interp.RedeclareFunction(fn); err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
	}

	for _, stmt := range frag.Statements {
		if diags := s.checker.CheckStatement(stmt); len(diags) > 0 {
			s.reportDiagnostics(diags)
			return
		}
		val, err := s.interp.ExecuteStatement(stmt)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		if iv, ok := val.(runtime.IntegerValue); ok {
			fmt.Fprintf(s.out, "= %s\n", iv)
		}
	}
}

func (s *replSession) reportDiagnostics(diags []typechecker.Diagnostic) {
	for _, diag := range diags {
		if diag.Err == nil {
			continue
		}
		fmt.Fprintln(s.out, diag.Err)
	}
}
