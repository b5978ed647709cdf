package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"wave/interpreter-go/pkg/driver"
	"wave/interpreter-go/pkg/interpreter"
)

// expectedExtension marks the golden output file paired with a source
// file of the same stem.
const expectedExtension = ".expected"

type goldenCase struct {
	source   string
	expected string
}

// runTest discovers golden cases under dir (default ".") and runs each
// one, diffing captured output against the .expected file. Exit code 0
// means every case passed, 1 means at least one mismatch or program
// failure, 2 means the harness itself could not do its job.
func runTest(args []string) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		printUsage()
		return 2
	}
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	cases, err := collectGoldenCases(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wave test: %v\n", err)
		return 2
	}
	if len(cases) == 0 {
		fmt.Fprintln(os.Stdout, "wave test: no golden cases found")
		return 0
	}

	failures := 0
	frameworkErrors := 0
	for _, tc := range cases {
		want, err := os.ReadFile(tc.expected)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wave test: read %s: %v\n", tc.expected, err)
			frameworkErrors++
			continue
		}
		got, err := runGoldenCase(tc.source)
		if err != nil {
			fmt.Fprintf(os.Stdout, "FAIL %s\n", tc.source)
			fmt.Fprintf(os.Stdout, "  error: %v\n", err)
			failures++
			continue
		}
		wantText := ensureTrailingNewline(string(want))
		gotText := ensureTrailingNewline(got)
		if wantText == gotText {
			fmt.Fprintf(os.Stdout, "ok %s\n", tc.source)
			continue
		}
		fmt.Fprintf(os.Stdout, "FAIL %s\n", tc.source)
		fmt.Fprint(os.Stdout, udiff.Unified("expected", "actual", wantText, gotText))
		failures++
	}

	passed := len(cases) - failures - frameworkErrors
	if frameworkErrors > 0 {
		fmt.Fprintf(os.Stdout, "wave test: %d passed, %d failed, %d errors\n", passed, failures, frameworkErrors)
		return 2
	}
	fmt.Fprintf(os.Stdout, "wave test: %d passed, %d failed\n", passed, failures)
	if failures > 0 {
		return 1
	}
	return 0
}

// collectGoldenCases walks dir for .wave files with a sibling .expected
// file. Sources without an expectation are not test cases and are
// skipped silently.
func collectGoldenCases(dir string) ([]goldenCase, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var cases []goldenCase
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, driver.SourceExtension) {
			return nil
		}
		expected := strings.TrimSuffix(path, driver.SourceExtension) + expectedExtension
		if _, err := os.Stat(expected); err != nil {
			return nil
		}
		cases = append(cases, goldenCase{source: path, expected: expected})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].source < cases[j].source })
	return cases, nil
}

// runGoldenCase executes one source file with output captured. A
// manifest governing the file decides the entry function, the same way
// `wave run` would.
func runGoldenCase(path string) (string, error) {
	program, err := driver.LoadFile(path)
	if err != nil {
		return "", err
	}

	entry := driver.DefaultEntryFunction
	if manifestPath, err := findManifest(filepath.Dir(program.Path)); err == nil {
		manifest, loadErr := driver.LoadManifest(manifestPath)
		if loadErr != nil {
			return "", loadErr
		}
		entry = manifest.EntryFunction()
	} else if !errors.Is(err, errManifestNotFound) {
		return "", err
	}

	var buf bytes.Buffer
	interp := interpreter.NewWithOutput(&buf)
	if err := interp.LoadProgram(program.AST); err != nil {
		return "", err
	}
	if err := interp.Run(entry); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
