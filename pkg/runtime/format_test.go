package runtime

import (
	"errors"
	"testing"
)

func TestCountPlaceholders(t *testing.T) {
	cases := []struct {
		template string
		want     int
	}{
		{"", 0},
		{"no slots here", 0},
		{"{}", 1},
		{"{} is prime? {}", 2},
		{"{}{}{}", 3},
		{"{ }", 0},
		{"}{", 0},
		{"tail {", 0},
	}
	for _, c := range cases {
		if got := CountPlaceholders(c.template); got != c.want {
			t.Fatalf("CountPlaceholders(%q) = %d, want %d", c.template, got, c.want)
		}
	}
}

func TestRenderTemplate(t *testing.T) {
	cases := []struct {
		name     string
		template string
		args     []Value
		want     string
	}{
		{
			name:     "no placeholders",
			template: "done",
			args:     nil,
			want:     "done",
		},
		{
			name:     "single substitution",
			template: "factorial(5) = {}",
			args:     []Value{IntegerValue{Val: 120}},
			want:     "factorial(5) = 120",
		},
		{
			name:     "left to right order",
			template: "{} is prime? {}",
			args:     []Value{IntegerValue{Val: 17}, IntegerValue{Val: 1}},
			want:     "17 is prime? 1",
		},
		{
			name:     "negative values",
			template: "{} / {} = {}",
			args:     []Value{IntegerValue{Val: -7}, IntegerValue{Val: 2}, IntegerValue{Val: -3}},
			want:     "-7 / 2 = -3",
		},
		{
			name:     "adjacent placeholders",
			template: "{}{}",
			args:     []Value{IntegerValue{Val: 1}, IntegerValue{Val: 2}},
			want:     "12",
		},
		{
			name:     "lone braces stay literal",
			template: "set { {} }",
			args:     []Value{IntegerValue{Val: 9}},
			want:     "set { 9 }",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderTemplate(tc.template, tc.args)
			if err != nil {
				t.Fatalf("RenderTemplate returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("RenderTemplate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderTemplateCountMismatch(t *testing.T) {
	cases := []struct {
		name     string
		template string
		args     []Value
	}{
		{name: "too few arguments", template: "{} and {}", args: []Value{IntegerValue{Val: 1}}},
		{name: "too many arguments", template: "{}", args: []Value{IntegerValue{Val: 1}, IntegerValue{Val: 2}}},
		{name: "arguments without placeholders", template: "static", args: []Value{IntegerValue{Val: 1}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := RenderTemplate(tc.template, tc.args)
			if err == nil {
				t.Fatalf("expected FormatError, got none")
			}
			var rtErr *Error
			if !errors.As(err, &rtErr) {
				t.Fatalf("expected *runtime.Error, got %T: %v", err, err)
			}
			if rtErr.Kind != Format {
				t.Fatalf("expected Format kind, got %v", rtErr.Kind)
			}
		})
	}
}

func TestRenderTemplateRejectsNonInteger(t *testing.T) {
	_, err := RenderTemplate("{}", []Value{StringValue{Val: "oops"}})
	if err == nil {
		t.Fatalf("expected TypeMismatchError, got none")
	}
	var rtErr *Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *runtime.Error, got %T: %v", err, err)
	}
	if rtErr.Kind != TypeMismatch {
		t.Fatalf("expected TypeMismatch kind, got %v", rtErr.Kind)
	}
}
