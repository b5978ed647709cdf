package runtime

import (
	"strconv"
	"strings"
)

// PrintlnName is the one builtin callable from programs.
const PrintlnName = "println"

// CountPlaceholders reports how many {} slots template contains.
func CountPlaceholders(template string) int {
	count := 0
	for i := 0; i+1 < len(template); i++ {
		if template[i] == '{' && template[i+1] == '}' {
			count++
			i++
		}
	}
	return count
}

// RenderTemplate substitutes each {} in template, left to right, with
// the decimal rendering of the corresponding argument. The argument
// count must match the placeholder count exactly; the trailing newline
// is the caller's job.
func RenderTemplate(template string, args []Value) (string, error) {
	if want := CountPlaceholders(template); want != len(args) {
		return "", NewError(Format, "format string has %d placeholders, %d arguments given", want, len(args))
	}

	var sb strings.Builder
	argIdx := 0
	for i := 0; i < len(template); i++ {
		if template[i] == '{' && i+1 < len(template) && template[i+1] == '}' {
			arg := args[argIdx]
			intVal, ok := arg.(IntegerValue)
			if !ok {
				return "", NewError(TypeMismatch, "placeholder %d requires an i64 value (got %s)", argIdx+1, arg.Kind())
			}
			sb.WriteString(strconv.FormatInt(intVal.Val, 10))
			argIdx++
			i++
			continue
		}
		sb.WriteByte(template[i])
	}
	return sb.String(), nil
}
