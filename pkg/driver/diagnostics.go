package driver

import (
	"fmt"
	"strings"
)

// Severity ranks a diagnostic for CLI presentation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Location pins a diagnostic to a source position. Zero-valued fields
// drop out of the rendering.
type Location struct {
	Path string
	Line int
	Col  int
}

func (l Location) String() string {
	path := strings.TrimSpace(l.Path)
	switch {
	case path != "" && l.Line > 0 && l.Col > 0:
		return fmt.Sprintf("%s:%d:%d", path, l.Line, l.Col)
	case path != "" && l.Line > 0:
		return fmt.Sprintf("%s:%d", path, l.Line)
	case path != "":
		return path
	case l.Line > 0 && l.Col > 0:
		return fmt.Sprintf("line %d, column %d", l.Line, l.Col)
	case l.Line > 0:
		return fmt.Sprintf("line %d", l.Line)
	default:
		return ""
	}
}

// Diagnostic is one problem report, shared by `wave check` and the
// golden-file runner.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
}

// Describe formats a diagnostic for CLI output.
func Describe(d Diagnostic) string {
	message := strings.TrimSpace(d.Message)
	severity := d.Severity
	if severity == "" {
		severity = SeverityError
	}
	if location := d.Location.String(); location != "" {
		return fmt.Sprintf("%s: %s: %s", severity, location, message)
	}
	return fmt.Sprintf("%s: %s", severity, message)
}
